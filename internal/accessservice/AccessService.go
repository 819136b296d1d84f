// Package accessservice with the command handlers of the access manager.
// Protocol bindings decode an inbound command, authenticate the caller and
// hand the request to HandleCommand; the response echoes the caller-supplied
// correlation id. Every command requires an administrator.
package accessservice

import (
	"github.com/sirupsen/logrus"

	"github.com/wostzone/accessmanager-go/pkg/accessapi"
	"github.com/wostzone/accessmanager-go/pkg/authstore"
	"github.com/wostzone/accessmanager-go/pkg/dashboards"
	"github.com/wostzone/accessmanager-go/pkg/permstore"
	"github.com/wostzone/accessmanager-go/pkg/registry"
	"github.com/wostzone/accessmanager-go/pkg/visibility"
)

// AccessService dispatches the access manager commands.
// All repository handles are explicit and shared; the service itself holds
// no mutable state.
type AccessService struct {
	authStore *authstore.AuthStore
	permStore *permstore.PermStore
	catalog   *dashboards.Catalog
	registry  *registry.Registry
	syncer    *visibility.Syncer
}

// HandleCommand dispatches a decoded command request.
// isAdmin tells whether the binding authenticated the caller as an
// administrator; non-admin callers are refused for every command.
func (service *AccessService) HandleCommand(request *accessapi.CommandRequest, isAdmin bool) *accessapi.CommandResponse {
	response := &accessapi.CommandResponse{ID: request.ID, Type: "result"}
	if !isAdmin {
		logrus.Warningf("AccessService.HandleCommand: refusing command '%s', caller is not an administrator", request.Type)
		response.Error = accessapi.NewCommandError(accessapi.ErrorCodeUnauthorized, "administrator access required")
		return response
	}

	var result interface{}
	var cmdErr *accessapi.CommandError
	switch request.Type {
	case accessapi.CmdListUsers:
		result, cmdErr = service.ListUsers()
	case accessapi.CmdListAuths:
		result, cmdErr = service.ListAuths()
	case accessapi.CmdListDashboards:
		result = service.ListDashboards(request.UserID)
	case accessapi.CmdListEntities:
		result = service.registry.ListEntities()
	case accessapi.CmdListDevices:
		result = service.registry.ListDevices()
	case accessapi.CmdListHelpers:
		result = service.registry.ListHelpers()
	case accessapi.CmdSetAuths:
		result, cmdErr = service.SetAuths(request.IsAnUser, request.Data)
	default:
		cmdErr = accessapi.NewCommandError(accessapi.ErrorCodeUnknownCommand, "unknown command type '"+request.Type+"'")
	}

	if cmdErr != nil {
		response.Error = cmdErr
		return response
	}
	response.Success = true
	response.Result = result
	return response
}

// ListUsers returns the users that can log in: those with a primary provider
// credential and active status
func (service *AccessService) ListUsers() ([]accessapi.UserInfo, *accessapi.CommandError) {
	record, err := service.authStore.GetEffective()
	if err != nil {
		return nil, accessapi.NewCommandError(accessapi.ErrorCodeFileError, "Error reading auth file.")
	}
	usernames := record.Usernames()
	result := make([]accessapi.UserInfo, 0)
	for _, userGroup := range record.UserGroupIDs() {
		result = append(result, accessapi.UserInfo{
			ID:       userGroup.UserID,
			Username: usernames[userGroup.UserID],
			GroupIDs: userGroup.GroupIDs,
		})
	}
	return result, nil
}

// ListAuths returns the effective auth record's data with each group's
// dashboards field populated from the assignment store.
// The enrichment happens on copies; the stored record is not modified.
func (service *AccessService) ListAuths() (map[string]interface{}, *accessapi.CommandError) {
	record, err := service.authStore.GetEffective()
	if err != nil {
		return nil, accessapi.NewCommandError(accessapi.ErrorCodeFileError, "Error reading auth file.")
	}
	assignments := service.permStore.GetAll()

	data := make(map[string]interface{})
	for key, value := range record.Data() {
		data[key] = value
	}
	groups := make([]interface{}, 0)
	for _, group := range record.Groups() {
		enriched := make(map[string]interface{})
		for field, value := range group {
			enriched[field] = value
		}
		groupID, _ := group["id"].(string)
		if state, found := assignments[groupID]; found {
			enriched["dashboards"] = state.ToDoc()
		}
		groups = append(groups, enriched)
	}
	data["groups"] = groups
	return data, nil
}

// ListDashboards returns the dashboard catalog with each dashboard's views.
// When userID is given, each view's visible flag tells whether that user may
// see it; the dashboard level flag is always false since visibility is
// per-view, per-user.
func (service *AccessService) ListDashboards(userID string) []accessapi.DashboardInfo {
	result := make([]accessapi.DashboardInfo, 0)
	for _, dashboard := range service.catalog.List() {
		config := service.catalog.LoadConfig(dashboard.ID, dashboard.Filename)

		views := make([]accessapi.ViewInfo, 0)
		name := dashboard.Title
		if config != nil {
			if name == "" {
				name = config.Title()
			}
			for _, view := range config.Views() {
				var pathValue interface{}
				if viewPath := view.Path(); viewPath != "" {
					pathValue = viewPath
				}
				views = append(views, accessapi.ViewInfo{
					ID:      view.ViewID(dashboard.ID),
					Name:    view.Name(),
					Path:    pathValue,
					Visible: visibility.VisibleForUser(view, userID),
				})
			}
		}
		if name == "" {
			name = dashboard.ID
		}
		result = append(result, accessapi.DashboardInfo{
			ID:      dashboard.ID,
			Name:    name,
			URLPath: dashboard.URLPath,
			Visible: false,
			Views:   views,
		})
	}
	return result
}

// SetAuths upserts a user or group entry into the auth record and returns
// the resulting record data.
// A group entry may carry a dashboards sub-payload with the group's view
// assignments; it is stripped before storage and stored in the assignment
// store instead. The auth record is committed even when storing the
// sub-payload fails; the failure is logged and the sync still runs.
func (service *AccessService) SetAuths(isUser bool, data map[string]interface{}) (map[string]interface{}, *accessapi.CommandError) {
	if data == nil {
		return nil, accessapi.NewCommandError(accessapi.ErrorCodeInvalidRequest, "missing entry data")
	}
	entryID, _ := data["id"].(string)
	if entryID == "" {
		return nil, accessapi.NewCommandError(accessapi.ErrorCodeInvalidRequest, "entry data has no id")
	}

	entry := make(map[string]interface{})
	for field, value := range data {
		entry[field] = value
	}
	rawDashboards, hasDashboards := entry["dashboards"]
	delete(entry, "dashboards")

	if !isUser && hasDashboards {
		state := permstore.ParseGroupDashboards(rawDashboards)
		err := service.permStore.UpsertOne(entryID, state)
		if err != nil {
			// the auth record still commits; the assignment can be retried
			logrus.Errorf("AccessService.SetAuths: dashboards of group '%s' not stored: %s", entryID, err)
		}
	}

	record, err := service.syncer.OnAuthEntryChanged(isUser, entry)
	if err != nil {
		if record == nil {
			return nil, accessapi.NewCommandError(accessapi.ErrorCodeFileError, "Error reading auth file.")
		}
		// the record committed but the sweep had failures; the next sync converges
		logrus.Errorf("AccessService.SetAuths: sync after upsert of '%s' incomplete: %s", entryID, err)
	}
	return record.Data(), nil
}

// NewAccessService creates the command service with explicit handles
func NewAccessService(authStore *authstore.AuthStore, permStore *permstore.PermStore,
	catalog *dashboards.Catalog, reg *registry.Registry, syncer *visibility.Syncer) *AccessService {

	return &AccessService{
		authStore: authStore,
		permStore: permStore,
		catalog:   catalog,
		registry:  reg,
		syncer:    syncer,
	}
}
