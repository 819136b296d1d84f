// Package permstore with the per-group dashboard visibility assignments.
// This is the plugin's own side-store next to the platform documents. It maps
// a group id to the dashboards and views that group may see.
package permstore

import (
	"time"

	"github.com/juju/fslock"
	"github.com/sirupsen/logrus"

	"github.com/wostzone/accessmanager-go/pkg/docstore"
)

// PermissionsPath is the storage key of the assignment document
const PermissionsPath = ".storage/access_manager.dashboards"

// upsertLockTimeout bounds how long an update waits for a concurrent writer
const upsertLockTimeout = 10 * time.Second

// DashboardVisibility is one group's grant on one dashboard.
// Views maps a view id to an explicit grant. Visible is the dashboard-wide
// fallback used only for views that have no entry in Views.
type DashboardVisibility struct {
	Visible *bool
	Views   map[string]bool
}

// GroupDashboards maps dashboard id to the group's grant on it.
// Absence of a dashboard key means no grant.
type GroupDashboards map[string]DashboardVisibility

// PermStore reads and updates the group dashboard assignment document
type PermStore struct {
	store *docstore.DocStore
}

// GetAll returns the assignments of every group.
// A missing or malformed backing document reads as an empty mapping.
func (permStore *PermStore) GetAll() map[string]GroupDashboards {
	doc := permStore.store.Load(PermissionsPath)
	result := make(map[string]GroupDashboards)
	for groupID, rawState := range doc {
		result[groupID] = ParseGroupDashboards(rawState)
	}
	return result
}

// GetOne returns a single group's assignments.
// An absent group reads as an empty mapping, never nil, so callers can index
// into the result freely.
func (permStore *PermStore) GetOne(groupID string) GroupDashboards {
	state, found := permStore.GetAll()[groupID]
	if !found {
		return make(GroupDashboards)
	}
	return state
}

// UpsertOne replaces a group's assignments.
// The full mapping is re-read immediately before writing and the write is
// serialized with a file lock, so concurrent updates to different groups are
// not lost (last writer wins per group).
func (permStore *PermStore) UpsertOne(groupID string, state GroupDashboards) error {
	lock := fslock.New(permStore.store.FilePath(PermissionsPath) + ".lock")
	err := lock.LockWithTimeout(upsertLockTimeout)
	if err != nil {
		logrus.Errorf("PermStore.UpsertOne: cannot acquire assignment lock: %s", err)
		return err
	}
	defer lock.Unlock()

	doc := permStore.store.Load(PermissionsPath)
	if doc == nil {
		doc = make(map[string]interface{})
	}
	doc[groupID] = state.ToDoc()
	logrus.Infof("PermStore.UpsertOne: updating dashboard assignments of group '%s'", groupID)
	return permStore.store.Save(PermissionsPath, doc)
}

// ParseGroupDashboards converts the raw JSON shape of one group's
// assignments into the typed form. Unknown shapes read as no grant.
func ParseGroupDashboards(rawState interface{}) GroupDashboards {
	result := make(GroupDashboards)
	stateMap, isMap := rawState.(map[string]interface{})
	if !isMap {
		return result
	}
	for dashboardID, rawVisibility := range stateMap {
		visibilityMap, isMap := rawVisibility.(map[string]interface{})
		if !isMap {
			continue
		}
		visibility := DashboardVisibility{Views: make(map[string]bool)}
		if visible, found := visibilityMap["visible"].(bool); found {
			visibility.Visible = &visible
		}
		if views, found := visibilityMap["views"].(map[string]interface{}); found {
			for viewID, rawFlag := range views {
				if flag, isBool := rawFlag.(bool); isBool {
					visibility.Views[viewID] = flag
				}
			}
		}
		result[dashboardID] = visibility
	}
	return result
}

// ToDoc converts the typed assignments back to the raw JSON document shape
func (state GroupDashboards) ToDoc() map[string]interface{} {
	result := make(map[string]interface{})
	for dashboardID, visibility := range state {
		views := make(map[string]interface{})
		for viewID, flag := range visibility.Views {
			views[viewID] = flag
		}
		entry := map[string]interface{}{"views": views}
		if visibility.Visible != nil {
			entry["visible"] = *visibility.Visible
		}
		result[dashboardID] = entry
	}
	return result
}

// NewPermStore creates the assignment store on the given document store
func NewPermStore(store *docstore.DocStore) *PermStore {
	return &PermStore{store: store}
}
