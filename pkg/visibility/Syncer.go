package visibility

import (
	"github.com/sirupsen/logrus"

	"github.com/wostzone/accessmanager-go/pkg/authstore"
	"github.com/wostzone/accessmanager-go/pkg/dashboards"
	"github.com/wostzone/accessmanager-go/pkg/docstore"
	"github.com/wostzone/accessmanager-go/pkg/permstore"
)

// Syncer propagates permission changes into the dashboard documents.
// All handles are explicit; the syncer holds no global state and can be
// constructed once at startup and shared.
type Syncer struct {
	authStore *authstore.AuthStore
	permStore *permstore.PermStore
	catalog   *dashboards.Catalog
	store     *docstore.DocStore
}

// SyncAll recomputes the visibility of every view of every dashboard and
// persists the documents that changed.
// Documents are independent: a document that fails to persist is logged and
// counted as a failure while the sweep continues with the others.
// Returns the number of documents written. A second run without intervening
// permission changes writes zero documents.
func (syncer *Syncer) SyncAll() (updated int, err error) {
	record, err := syncer.authStore.GetEffective()
	if err != nil {
		return 0, err
	}
	userGroups := record.UserGroupIDs()
	groupDashboards := syncer.permStore.GetAll()

	failures := 0
	for _, target := range syncer.catalog.ResolveTargets() {
		config := syncer.catalog.LoadConfig(target.DashboardID, target.Filename)
		if config == nil || len(config.Views()) == 0 {
			continue
		}
		changed := false
		for _, view := range config.Views() {
			if ResolveView(userGroups, groupDashboards, target.DashboardID, view) {
				changed = true
			}
		}
		if !changed {
			continue
		}
		saveErr := syncer.store.Save(config.Filename, config.Doc())
		if saveErr != nil {
			logrus.Errorf("Syncer.SyncAll: dashboard '%s' not persisted: %s", target.DashboardID, saveErr)
			failures++
			continue
		}
		logrus.Infof("Syncer.SyncAll: updated visibility in dashboard '%s' (%s)", target.DashboardID, config.Filename)
		updated++
	}
	if failures > 0 {
		logrus.Warningf("Syncer.SyncAll: %d dashboard(s) failed to persist, %d updated", failures, updated)
	}
	return updated, nil
}

// OnGroupAssignmentChanged stores a group's new dashboard assignments and
// resynchronizes the full catalog
func (syncer *Syncer) OnGroupAssignmentChanged(groupID string, state permstore.GroupDashboards) error {
	err := syncer.permStore.UpsertOne(groupID, state)
	if err != nil {
		return err
	}
	_, err = syncer.SyncAll()
	return err
}

// OnAuthEntryChanged upserts a user or group entry into the effective auth
// record, commits it, and resynchronizes the full catalog. A changed group
// policy or user membership can change entitlement everywhere.
// Returns the committed record.
func (syncer *Syncer) OnAuthEntryChanged(isUser bool, entry map[string]interface{}) (*authstore.AuthRecord, error) {
	record, err := syncer.authStore.GetEffective()
	if err != nil {
		return nil, err
	}
	record.UpsertEntry(isUser, entry)
	err = syncer.authStore.Commit(record)
	if err != nil {
		return nil, err
	}
	_, err = syncer.SyncAll()
	return record, err
}

// NewSyncer creates the sync orchestrator with explicit repository handles
func NewSyncer(authStore *authstore.AuthStore, permStore *permstore.PermStore,
	catalog *dashboards.Catalog, store *docstore.DocStore) *Syncer {

	return &Syncer{
		authStore: authStore,
		permStore: permStore,
		catalog:   catalog,
		store:     store,
	}
}
