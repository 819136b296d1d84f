package docstore_test

import (
	"io/ioutil"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wostzone/accessmanager-go/pkg/docstore"
)

func newTestFolder(t *testing.T) string {
	folder, err := ioutil.TempDir("", "accessmanager-docstore-")
	require.NoError(t, err)
	return folder
}

func TestLoadMissingDocument(t *testing.T) {
	folder := newTestFolder(t)
	defer os.RemoveAll(folder)
	store := docstore.NewDocStore(folder)

	doc := store.Load("doesnotexist.json")
	assert.Nil(t, doc, "A missing document should read as nil")
}

func TestLoadMalformedDocument(t *testing.T) {
	folder := newTestFolder(t)
	defer os.RemoveAll(folder)
	store := docstore.NewDocStore(folder)

	err := ioutil.WriteFile(path.Join(folder, "broken.json"), []byte("{not json"), 0600)
	require.NoError(t, err)

	doc := store.Load("broken.json")
	assert.Nil(t, doc, "A malformed document should read as nil")
}

func TestSaveAndLoad(t *testing.T) {
	folder := newTestFolder(t)
	defer os.RemoveAll(folder)
	store := docstore.NewDocStore(folder)

	err := store.Save("sub.json", map[string]interface{}{"hello": "world"})
	require.NoError(t, err)

	doc := store.Load("sub.json")
	require.NotNil(t, doc)
	assert.Equal(t, "world", doc["hello"])
}

func TestRenameReplacesDocument(t *testing.T) {
	folder := newTestFolder(t)
	defer os.RemoveAll(folder)
	store := docstore.NewDocStore(folder)

	require.NoError(t, store.Save("old.json", map[string]interface{}{"value": "old"}))
	require.NoError(t, store.Save("new.json", map[string]interface{}{"value": "new"}))
	require.NoError(t, store.Rename("new.json", "old.json"))

	doc := store.Load("old.json")
	require.NotNil(t, doc)
	assert.Equal(t, "new", doc["value"])
	assert.False(t, store.Exists("new.json"))
}

func TestRemoveMissingDocument(t *testing.T) {
	folder := newTestFolder(t)
	defer os.RemoveAll(folder)
	store := docstore.NewDocStore(folder)

	err := store.Remove("neverexisted.json")
	assert.NoError(t, err)
}

func TestListFiles(t *testing.T) {
	folder := newTestFolder(t)
	defer os.RemoveAll(folder)
	store := docstore.NewDocStore(folder)

	require.NoError(t, os.Mkdir(path.Join(folder, "docs"), 0700))
	require.NoError(t, store.Save("docs/a.json", map[string]interface{}{}))
	require.NoError(t, store.Save("docs/b.json", map[string]interface{}{}))

	names := store.ListFiles("docs")
	assert.Len(t, names, 2)
	assert.Empty(t, store.ListFiles("nosuchfolder"))
}
