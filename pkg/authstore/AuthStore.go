package authstore

import (
	"fmt"
	"time"

	"github.com/juju/fslock"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/accessmanager-go/pkg/docstore"
)

// Storage keys of the auth documents, relative to the store root
const (
	// AuthPath is the authoritative auth record
	AuthPath = ".storage/auth"
	// PendingAuthPath is the staging copy promoted at commit
	PendingAuthPath = ".storage/auth.new"
	// ValidMarkerPath signals collaborators that the pending record passed
	// the validity check. Existence is the signal; content is ignored.
	ValidMarkerPath = ".storage/auth.valid"
)

// commitLockTimeout bounds how long a commit waits for a concurrent writer
const commitLockTimeout = 10 * time.Second

// AuthStore resolves and commits the effective authentication record.
//
// A pending record may exist transiently during a multi-step update. Reads
// always prefer the pending record so a crash between staging and commit
// self-heals on the next read. The commit itself is a single atomic rename,
// serialized across processes with a file lock next to the auth document.
type AuthStore struct {
	store *docstore.DocStore
}

// GetEffective returns the pending auth record if loadable, else the
// committed record. An error is returned only when neither is readable.
func (authStore *AuthStore) GetEffective() (*AuthRecord, error) {
	doc := authStore.store.Load(PendingAuthPath)
	if doc != nil {
		logrus.Debugf("AuthStore.GetEffective: using pending record '%s'", PendingAuthPath)
		return NewAuthRecord(doc), nil
	}
	doc = authStore.store.Load(AuthPath)
	if doc == nil {
		err := fmt.Errorf("AuthStore.GetEffective: neither pending nor committed auth record is readable")
		logrus.Error(err)
		return nil, err
	}
	return NewAuthRecord(doc), nil
}

// Commit stages the record in the pending location, refreshes the validity
// marker, and atomically renames the pending record over the authoritative
// one. A crash mid-commit leaves at worst a recoverable pending file that
// the next GetEffective picks up.
func (authStore *AuthStore) Commit(record *AuthRecord) error {
	lock := fslock.New(authStore.store.FilePath(AuthPath) + ".lock")
	err := lock.LockWithTimeout(commitLockTimeout)
	if err != nil {
		logrus.Errorf("AuthStore.Commit: cannot acquire auth lock: %s", err)
		return err
	}
	defer lock.Unlock()

	err = authStore.store.Save(PendingAuthPath, record.Doc())
	if err != nil {
		return err
	}
	authStore.updateValidMarker(record)
	return authStore.store.Rename(PendingAuthPath, AuthPath)
}

// StagePending writes the record to the pending location without committing.
// Intended for multi-step updates that commit once all steps succeeded.
func (authStore *AuthStore) StagePending(record *AuthRecord) error {
	return authStore.store.Save(PendingAuthPath, record.Doc())
}

// updateValidMarker creates or removes the validity marker file.
// The marker is present exactly when every custom group carries a non-empty
// entity policy. An invalid record still commits; the marker is advisory.
func (authStore *AuthStore) updateValidMarker(record *AuthRecord) {
	if record.IsValid() {
		err := authStore.store.Save(ValidMarkerPath, map[string]interface{}{"valid": true})
		if err != nil {
			logrus.Errorf("AuthStore.Commit: cannot write validity marker: %s", err)
		}
	} else {
		logrus.Warningf("AuthStore.Commit: record has a custom group without entity policy, removing validity marker")
		authStore.store.Remove(ValidMarkerPath)
	}
}

// NewAuthStore creates the auth record repository on the given document store
func NewAuthStore(store *docstore.DocStore) *AuthStore {
	return &AuthStore{store: store}
}
