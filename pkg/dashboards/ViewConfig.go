package dashboards

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DashboardConfig wraps one dashboard's loaded configuration document.
// It keeps the raw document so a save after a visibility rewrite preserves
// every attribute this plugin does not manage.
type DashboardConfig struct {
	DashboardID string
	Filename    string
	doc         map[string]interface{}
	config      map[string]interface{}
	views       []*View
}

// Doc returns the raw document for persisting
func (dashConfig *DashboardConfig) Doc() map[string]interface{} {
	return dashConfig.doc
}

// Title returns the title stored in the configuration, or ""
func (dashConfig *DashboardConfig) Title() string {
	title, _ := dashConfig.config["title"].(string)
	return title
}

// Views returns the typed view wrappers, parsed once at load
func (dashConfig *DashboardConfig) Views() []*View {
	return dashConfig.views
}

// View wraps a single raw view object of a dashboard configuration.
// Only the visible field is ever written; every other attribute stays in the
// raw map untouched. The index is the view's position in the stored views
// list, counting entries the parser skipped, so positional ids stay aligned
// with what the platform frontend shows.
type View struct {
	raw   map[string]interface{}
	index int
}

// Path returns the view's path, or ""
func (view *View) Path() string {
	viewPath, _ := view.raw["path"].(string)
	return viewPath
}

// ID returns the view's explicit id, or ""
func (view *View) ID() string {
	viewID, _ := view.raw["id"].(string)
	return viewID
}

// Title returns the view's title, or ""
func (view *View) Title() string {
	title, _ := view.raw["title"].(string)
	return title
}

// ViewID returns the id used for cross-referencing visibility grants:
// the path if present, else the explicit id, else a synthesized positional
// id. The synthesized fallback is unstable across view reordering.
func (view *View) ViewID(dashboardID string) string {
	if viewPath := view.Path(); viewPath != "" {
		return viewPath
	}
	if viewID := view.ID(); viewID != "" {
		return viewID
	}
	syntheticID := SyntheticViewID(dashboardID, view.index)
	logrus.Debugf("View.ViewID: view %d of dashboard '%s' has no path or id, using positional id '%s'",
		view.index, dashboardID, syntheticID)
	return syntheticID
}

// Name returns the display name of the view for catalog listings
func (view *View) Name() string {
	if title := view.Title(); title != "" {
		return title
	}
	if viewPath := view.Path(); viewPath != "" {
		return viewPath
	}
	return fmt.Sprintf("View %d", view.index+1)
}

// Visible returns the raw visibility value: nil, a bool, or a list of
// visibility entries
func (view *View) Visible() interface{} {
	return view.raw["visible"]
}

// SetVisible replaces the view's visibility value in the raw document
func (view *View) SetVisible(visible interface{}) {
	view.raw["visible"] = visible
}

// newDashboardConfig wraps a loaded document and parses its views once.
// Non-object entries in the views list are skipped, matching how the
// platform itself tolerates them.
func newDashboardConfig(dashboardID string, filename string,
	doc map[string]interface{}, config map[string]interface{}) *DashboardConfig {

	rawViews, _ := config["views"].([]interface{})
	views := make([]*View, 0, len(rawViews))
	for index, rawView := range rawViews {
		viewMap, isMap := rawView.(map[string]interface{})
		if !isMap {
			continue
		}
		views = append(views, &View{raw: viewMap, index: index})
	}
	return &DashboardConfig{
		DashboardID: dashboardID,
		Filename:    filename,
		doc:         doc,
		config:      config,
		views:       views,
	}
}
