// Package accessapi with the access manager message contract definitions.
// These definitions are intended for use by protocol bindings that carry the
// access manager commands, and by clients that invoke them.
package accessapi

// Command types carried in the request 'type' field
const (
	CmdListAuths      = "ha_access_control/list_auths"
	CmdListDashboards = "ha_access_control/list_dashboards"
	CmdListDevices    = "ha_access_control/list_devices"
	CmdListEntities   = "ha_access_control/list_entities"
	CmdListHelpers    = "ha_access_control/list_helpers"
	CmdListUsers      = "ha_access_control/list_users"
	CmdSetAuths       = "ha_access_control/set_auths"
)

// Error codes returned in a command error response
const (
	// ErrorCodeFileError when neither the pending nor the committed auth document is readable
	ErrorCodeFileError = "file_error"
	// ErrorCodeInvalidRequest when the request payload is missing required fields
	ErrorCodeInvalidRequest = "invalid_request"
	// ErrorCodeNotFound when the addressed document or entry does not exist
	ErrorCodeNotFound = "not_found"
	// ErrorCodeUnauthorized when the caller is not an administrator
	ErrorCodeUnauthorized = "unauthorized"
	// ErrorCodeUnknownCommand when the request type is not a known command
	ErrorCodeUnknownCommand = "unknown_command"
)

// CommandRequest is the envelope of an inbound command.
// ID is a caller-supplied correlation id that is echoed in the response.
type CommandRequest struct {
	ID       int                    `json:"id"`
	Type     string                 `json:"type"`
	UserID   string                 `json:"user_id,omitempty"`  // list_dashboards: resolve per-view visibility for this user
	IsAnUser bool                   `json:"isAnUser,omitempty"` // set_auths: user entry when true, group entry when false
	Data     map[string]interface{} `json:"data,omitempty"`     // set_auths: the entry to upsert
}

// CommandError with a stable code and a human readable message
type CommandError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (ce *CommandError) Error() string {
	return ce.Code + ": " + ce.Message
}

// NewCommandError returns a command level error with the given stable code
func NewCommandError(code string, message string) *CommandError {
	return &CommandError{Code: code, Message: message}
}

// CommandResponse is the envelope of a command result.
// Exactly one of Result and Error is set; ID echoes the request correlation id.
type CommandResponse struct {
	ID      int           `json:"id"`
	Type    string        `json:"type"`
	Success bool          `json:"success"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *CommandError `json:"error,omitempty"`
}

// UserInfo is the list_users record shape
type UserInfo struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	GroupIDs []string `json:"group_ids"`
}

// ViewInfo is the per-view record in a list_dashboards result
type ViewInfo struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Path    interface{} `json:"path"`
	Visible bool        `json:"visible"`
}

// DashboardInfo is the per-dashboard record in a list_dashboards result.
// Visible is always false at the top level; visibility is per-view, per-user.
type DashboardInfo struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	URLPath string     `json:"url_path"`
	Visible bool       `json:"visible"`
	Views   []ViewInfo `json:"views"`
}
