package visibility_test

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/accessmanager-go/pkg/authstore"
	"github.com/wostzone/accessmanager-go/pkg/dashboards"
	"github.com/wostzone/accessmanager-go/pkg/docstore"
	"github.com/wostzone/accessmanager-go/pkg/permstore"
	"github.com/wostzone/accessmanager-go/pkg/visibility"
)

// loadView builds a typed view from a JSON view body via a throwaway config
// document, the same parse path the syncer uses
func loadView(t *testing.T, viewJSON string) *dashboards.View {
	folder, err := ioutil.TempDir("", "accessmanager-resolver-")
	require.NoError(t, err)
	defer os.RemoveAll(folder)
	require.NoError(t, os.Mkdir(path.Join(folder, ".storage"), 0700))
	store := docstore.NewDocStore(folder)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(viewJSON), &view))
	doc := map[string]interface{}{
		"data": map[string]interface{}{
			"config": map[string]interface{}{
				"views": []interface{}{view},
			},
		},
	}
	require.NoError(t, store.Save(dashboards.StoragePrefix+"test", doc))
	config := dashboards.NewCatalog(store).LoadConfig("test", "")
	require.NotNil(t, config)
	require.Len(t, config.Views(), 1)
	return config.Views()[0]
}

func grants(groupID string, dashboardID string, viewFlags map[string]bool, visible *bool) map[string]permstore.GroupDashboards {
	return map[string]permstore.GroupDashboards{
		groupID: {dashboardID: {Visible: visible, Views: viewFlags}},
	}
}

func TestUnionSemantics(t *testing.T) {
	// user in groups A and B; only A grants the view
	userGroups := []authstore.UserGroups{
		{UserID: "u1", GroupIDs: []string{"group-a", "group-b"}},
	}
	groupDashboards := grants("group-a", "lovelace", map[string]bool{"home": true}, nil)
	groupDashboards["group-b"] = permstore.GroupDashboards{}

	view := loadView(t, `{"path": "home"}`)
	changed := visibility.ResolveView(userGroups, groupDashboards, "lovelace", view)
	assert.True(t, changed)

	expected := []interface{}{map[string]interface{}{"user": "u1"}}
	if diff := cmp.Diff(expected, view.Visible()); diff != "" {
		t.Errorf("visible list mismatch (-want +got):\n%s", diff)
	}
}

func TestDashboardFlagAppliesOnlyWithoutViewEntry(t *testing.T) {
	visible := true
	userGroups := []authstore.UserGroups{{UserID: "u1", GroupIDs: []string{"g"}}}

	// dashboard-wide grant, no entry for this view
	view := loadView(t, `{"path": "home"}`)
	changed := visibility.ResolveView(userGroups,
		grants("g", "lovelace", map[string]bool{}, &visible), "lovelace", view)
	assert.True(t, changed)
	assert.Len(t, view.Visible(), 1)

	// an explicit false for the view overrides the dashboard-wide grant
	view = loadView(t, `{"path": "home"}`)
	changed = visibility.ResolveView(userGroups,
		grants("g", "lovelace", map[string]bool{"home": false}, &visible), "lovelace", view)
	assert.True(t, changed, "null becomes an empty list")
	assert.Empty(t, view.Visible())
}

func TestAbsentStateMeansNotEntitled(t *testing.T) {
	userGroups := []authstore.UserGroups{{UserID: "u1", GroupIDs: []string{"g"}}}
	view := loadView(t, `{"path": "home", "visible": [{"user": "u1"}]}`)

	changed := visibility.ResolveView(userGroups,
		map[string]permstore.GroupDashboards{}, "lovelace", view)
	assert.True(t, changed)
	assert.Empty(t, view.Visible())
}

func TestForeignEntriesPreserved(t *testing.T) {
	// u1 loses entitlement; the non-user entry stays, after user entries
	userGroups := []authstore.UserGroups{{UserID: "u1", GroupIDs: []string{"g"}}}
	view := loadView(t, `{"path": "home", "visible": [{"user": "u1"}, {"special": "x"}]}`)

	changed := visibility.ResolveView(userGroups,
		grants("g", "lovelace", map[string]bool{"home": false}, nil), "lovelace", view)
	assert.True(t, changed)

	expected := []interface{}{map[string]interface{}{"special": "x"}}
	if diff := cmp.Diff(expected, view.Visible()); diff != "" {
		t.Errorf("visible list mismatch (-want +got):\n%s", diff)
	}
}

func TestForeignEntriesReorderedAfterUsers(t *testing.T) {
	userGroups := []authstore.UserGroups{{UserID: "u1", GroupIDs: []string{"g"}}}
	view := loadView(t, `{"path": "home", "visible": [{"special": "x"}, {"user": "u1"}]}`)

	changed := visibility.ResolveView(userGroups,
		grants("g", "lovelace", map[string]bool{"home": true}, nil), "lovelace", view)
	assert.True(t, changed, "Order changed even though membership did not")

	expected := []interface{}{
		map[string]interface{}{"user": "u1"},
		map[string]interface{}{"special": "x"},
	}
	if diff := cmp.Diff(expected, view.Visible()); diff != "" {
		t.Errorf("visible list mismatch (-want +got):\n%s", diff)
	}
}

func TestNoChangeMeansNoWrite(t *testing.T) {
	userGroups := []authstore.UserGroups{{UserID: "u1", GroupIDs: []string{"g"}}}
	groupDashboards := grants("g", "lovelace", map[string]bool{"home": true}, nil)

	view := loadView(t, `{"path": "home", "visible": [{"user": "u1"}]}`)
	changed := visibility.ResolveView(userGroups, groupDashboards, "lovelace", view)
	assert.False(t, changed, "Recomputing an up-to-date list is a no-op")

	// an empty list stays an empty list
	view = loadView(t, `{"path": "home", "visible": []}`)
	changed = visibility.ResolveView(userGroups,
		map[string]permstore.GroupDashboards{}, "lovelace", view)
	assert.False(t, changed)
}

func TestEntitlementIsPure(t *testing.T) {
	// the result does not depend on the prior user entries
	userGroups := []authstore.UserGroups{
		{UserID: "u1", GroupIDs: []string{"g"}},
		{UserID: "u2", GroupIDs: []string{"g"}},
	}
	groupDashboards := grants("g", "lovelace", map[string]bool{"home": true}, nil)

	viewA := loadView(t, `{"path": "home"}`)
	viewB := loadView(t, `{"path": "home", "visible": [{"user": "stale"}, {"user": "u2"}]}`)
	visibility.ResolveView(userGroups, groupDashboards, "lovelace", viewA)
	visibility.ResolveView(userGroups, groupDashboards, "lovelace", viewB)

	if diff := cmp.Diff(viewA.Visible(), viewB.Visible()); diff != "" {
		t.Errorf("resolver not pure (-a +b):\n%s", diff)
	}
}

func TestNoDuplicateUsers(t *testing.T) {
	userGroups := []authstore.UserGroups{
		{UserID: "u1", GroupIDs: []string{"g"}},
		{UserID: "u1", GroupIDs: []string{"g"}},
	}
	view := loadView(t, `{"path": "home"}`)
	visibility.ResolveView(userGroups,
		grants("g", "lovelace", map[string]bool{"home": true}, nil), "lovelace", view)
	assert.Len(t, view.Visible(), 1)
}

func TestVisibleForUser(t *testing.T) {
	view := loadView(t, `{"path": "home"}`)
	assert.True(t, visibility.VisibleForUser(view, "u1"), "No visibility list means visible to all")
	assert.False(t, visibility.VisibleForUser(view, ""), "No user means not visible")

	view = loadView(t, `{"path": "home", "visible": [{"user": "u1"}]}`)
	assert.True(t, visibility.VisibleForUser(view, "u1"))
	assert.False(t, visibility.VisibleForUser(view, "u2"))

	view = loadView(t, `{"path": "home", "visible": false}`)
	assert.False(t, visibility.VisibleForUser(view, "u1"), "A non-list value hides the view")
}
