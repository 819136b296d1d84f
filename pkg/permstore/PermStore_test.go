package permstore_test

import (
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/accessmanager-go/pkg/docstore"
	"github.com/wostzone/accessmanager-go/pkg/permstore"
)

func newTestStore(t *testing.T) (folder string, store *docstore.DocStore) {
	folder, err := ioutil.TempDir("", "accessmanager-permstore-")
	require.NoError(t, err)
	require.NoError(t, os.Mkdir(path.Join(folder, ".storage"), 0700))
	return folder, docstore.NewDocStore(folder)
}

func TestGetAllMissingDocument(t *testing.T) {
	folder, store := newTestStore(t)
	defer os.RemoveAll(folder)

	permStore := permstore.NewPermStore(store)
	all := permStore.GetAll()
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestGetOneAbsentGroup(t *testing.T) {
	folder, store := newTestStore(t)
	defer os.RemoveAll(folder)

	permStore := permstore.NewPermStore(store)
	state := permStore.GetOne("nosuchgroup")
	require.NotNil(t, state, "Absent group must read as empty, never nil")
	// callers can index freely
	_, found := state["lovelace"]
	assert.False(t, found)
}

func TestUpsertOneRoundtrip(t *testing.T) {
	folder, store := newTestStore(t)
	defer os.RemoveAll(folder)
	permStore := permstore.NewPermStore(store)

	visible := true
	state := permstore.GroupDashboards{
		"lovelace": {Visible: &visible, Views: map[string]bool{"home": true, "admin": false}},
	}
	require.NoError(t, permStore.UpsertOne("custom-group-family", state))

	reloaded := permStore.GetOne("custom-group-family")
	require.Contains(t, reloaded, "lovelace")
	assert.True(t, *reloaded["lovelace"].Visible)
	assert.True(t, reloaded["lovelace"].Views["home"])
	assert.False(t, reloaded["lovelace"].Views["admin"])
}

func TestUpsertOneKeepsOtherGroups(t *testing.T) {
	folder, store := newTestStore(t)
	defer os.RemoveAll(folder)
	permStore := permstore.NewPermStore(store)

	require.NoError(t, permStore.UpsertOne("group-a", permstore.GroupDashboards{
		"lovelace": {Views: map[string]bool{"home": true}},
	}))
	require.NoError(t, permStore.UpsertOne("group-b", permstore.GroupDashboards{
		"energy": {Views: map[string]bool{"usage": true}},
	}))

	all := permStore.GetAll()
	assert.Len(t, all, 2)
	assert.True(t, all["group-a"]["lovelace"].Views["home"])
}

func TestParseGroupDashboardsTolerantOfShape(t *testing.T) {
	state := permstore.ParseGroupDashboards("not a map")
	assert.Empty(t, state)

	state = permstore.ParseGroupDashboards(map[string]interface{}{
		"lovelace": map[string]interface{}{
			"visible": true,
			"views":   map[string]interface{}{"home": true, "bogus": "yes"},
		},
		"broken": 42,
	})
	require.Contains(t, state, "lovelace")
	assert.NotContains(t, state, "broken")
	assert.True(t, state["lovelace"].Views["home"])
	_, found := state["lovelace"].Views["bogus"]
	assert.False(t, found, "Non-bool view flags are dropped")
}
