// Package docstore with JSON document storage for the access manager.
// Documents are addressed by a logical path relative to the store root,
// eg ".storage/auth". Missing and malformed documents both read as nil so
// callers can treat them as absent.
package docstore

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path"

	"github.com/sirupsen/logrus"
)

// DocStore loads and saves JSON documents by logical path
type DocStore struct {
	rootFolder string
}

// FilePath returns the absolute path of a logical document path
func (store *DocStore) FilePath(docPath string) string {
	if path.IsAbs(docPath) {
		return docPath
	}
	return path.Join(store.rootFolder, docPath)
}

// Exists tests whether a document is present without loading it
func (store *DocStore) Exists(docPath string) bool {
	_, err := os.Stat(store.FilePath(docPath))
	return err == nil
}

// Load reads a JSON document.
// A missing file is not an error and returns nil. Unparsable content is
// logged and also returns nil; the caller treats it as absent.
func (store *DocStore) Load(docPath string) map[string]interface{} {
	fullPath := store.FilePath(docPath)
	raw, err := ioutil.ReadFile(fullPath)
	if err != nil {
		logrus.Debugf("DocStore.Load: document '%s' not found", fullPath)
		return nil
	}
	var doc map[string]interface{}
	err = json.Unmarshal(raw, &doc)
	if err != nil {
		logrus.Errorf("DocStore.Load: document '%s' is not valid JSON: %s", fullPath, err)
		return nil
	}
	return doc
}

// Save writes a JSON document, replacing the whole file.
// The document is pretty-printed with 4 space indents as the platform does.
// Atomicity is the caller's responsibility; see authstore for the
// write-then-rename commit of the auth record.
func (store *DocStore) Save(docPath string, doc map[string]interface{}) error {
	fullPath := store.FilePath(docPath)
	raw, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		logrus.Errorf("DocStore.Save: cannot serialize document '%s': %s", fullPath, err)
		return err
	}
	err = ioutil.WriteFile(fullPath, raw, 0600)
	if err != nil {
		logrus.Errorf("DocStore.Save: cannot write document '%s': %s", fullPath, err)
		return err
	}
	logrus.Debugf("DocStore.Save: wrote document '%s'", fullPath)
	return nil
}

// Remove deletes a document. Removing an absent document is not an error.
func (store *DocStore) Remove(docPath string) error {
	fullPath := store.FilePath(docPath)
	err := os.Remove(fullPath)
	if err != nil && !os.IsNotExist(err) {
		logrus.Errorf("DocStore.Remove: cannot remove document '%s': %s", fullPath, err)
		return err
	}
	return nil
}

// Rename atomically replaces the document at toPath with the one at fromPath.
// This is the commit step of the pending/authoritative auth record pattern.
func (store *DocStore) Rename(fromPath string, toPath string) error {
	err := os.Rename(store.FilePath(fromPath), store.FilePath(toPath))
	if err != nil {
		logrus.Errorf("DocStore.Rename: cannot rename '%s' over '%s': %s", fromPath, toPath, err)
	}
	return err
}

// ListFiles returns the names of the files in a folder relative to the store
// root, in directory listing order. A missing folder returns an empty list.
func (store *DocStore) ListFiles(folder string) []string {
	entries, err := ioutil.ReadDir(store.FilePath(folder))
	if err != nil {
		logrus.Debugf("DocStore.ListFiles: folder '%s' not found", folder)
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names
}

// NewDocStore creates a document store rooted at the given folder.
// The folder is typically the platform configuration directory containing
// the .storage subfolder.
func NewDocStore(rootFolder string) *DocStore {
	return &DocStore{rootFolder: rootFolder}
}
