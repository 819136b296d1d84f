// Package visibility with the view visibility resolver and the sync
// orchestrator.
// The resolver computes, for one dashboard view, the exact list of users
// entitled to see it from group memberships and group dashboard assignments.
// The orchestrator sweeps the full catalog and persists only the documents
// whose visibility actually changed.
package visibility

import (
	"reflect"

	"github.com/wostzone/accessmanager-go/pkg/authstore"
	"github.com/wostzone/accessmanager-go/pkg/dashboards"
	"github.com/wostzone/accessmanager-go/pkg/permstore"
)

// ResolveView recomputes a view's visibility list and rewrites it in place.
//
// A user is entitled when at least one of its groups has an assignment for
// the dashboard that grants this view: an explicit entry for the view id
// wins, and only when the assignment has no entry for this view does the
// dashboard-wide visible flag apply. Union semantics: any granting group
// suffices.
//
// The new list holds the entitled users in userGroups order followed by the
// visibility entries of other mechanisms in their original order. When the
// new list is value-equal to the stored one nothing is written and false is
// returned, so repeated syncs without permission changes are no-ops.
func ResolveView(userGroups []authstore.UserGroups,
	groupDashboards map[string]permstore.GroupDashboards,
	dashboardID string, view *dashboards.View) bool {

	viewID := view.ViewID(dashboardID)

	newVisible := make([]interface{}, 0)
	seen := make(map[string]bool)
	for _, userGroup := range userGroups {
		if seen[userGroup.UserID] {
			continue
		}
		if isEntitled(userGroup.GroupIDs, groupDashboards, dashboardID, viewID) {
			newVisible = append(newVisible, map[string]interface{}{"user": userGroup.UserID})
			seen[userGroup.UserID] = true
		}
	}
	for _, entry := range foreignEntries(view.Visible()) {
		newVisible = append(newVisible, entry)
	}

	if reflect.DeepEqual(view.Visible(), newVisible) {
		return false
	}
	view.SetVisible(newVisible)
	return true
}

// VisibleForUser reports whether a stored view is visible to the given user.
// A view without a visibility list is visible to everyone; a non-list value
// hides the view; a list is checked for a matching user entry.
func VisibleForUser(view *dashboards.View, userID string) bool {
	if userID == "" {
		return false
	}
	visible := view.Visible()
	if visible == nil {
		return true
	}
	entries, isList := visible.([]interface{})
	if !isList {
		return false
	}
	for _, rawEntry := range entries {
		entry, isMap := rawEntry.(map[string]interface{})
		if !isMap {
			continue
		}
		if entryUser, _ := entry["user"].(string); entryUser == userID {
			return true
		}
	}
	return false
}

// isEntitled tests whether any of the groups grants the view
func isEntitled(groupIDs []string, groupDashboards map[string]permstore.GroupDashboards,
	dashboardID string, viewID string) bool {

	for _, groupID := range groupIDs {
		assignment, found := groupDashboards[groupID]
		if !found {
			continue
		}
		state, found := assignment[dashboardID]
		if !found {
			continue
		}
		if flag, found := state.Views[viewID]; found {
			if flag {
				return true
			}
			continue
		}
		if state.Visible != nil && *state.Visible {
			return true
		}
	}
	return false
}

// foreignEntries returns the visibility entries placed by other mechanisms,
// in their original order. Only list values carry entries; user-keyed
// entries are this plugin's own and are recomputed instead.
func foreignEntries(visible interface{}) []interface{} {
	entries, isList := visible.([]interface{})
	if !isList {
		return nil
	}
	foreign := make([]interface{}, 0)
	for _, rawEntry := range entries {
		if entry, isMap := rawEntry.(map[string]interface{}); isMap {
			if _, isUserEntry := entry["user"]; isUserEntry {
				continue
			}
		}
		foreign = append(foreign, rawEntry)
	}
	return foreign
}
