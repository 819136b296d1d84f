// Package dashboards with the catalog of dashboards and their stored
// configuration documents.
// The catalog is the union of the dashboard registry document, the implicit
// default dashboard, and storage files discovered on disk. Configurations are
// never restructured; the sync path only rewrites each view's visibility.
package dashboards

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/wostzone/accessmanager-go/pkg/docstore"
)

// Storage keys of the dashboard documents, relative to the store root
const (
	// RegistryPath is the dashboard registry document
	RegistryPath = ".storage/lovelace_dashboards"
	// StorageFolder holds the per-dashboard configuration documents
	StorageFolder = ".storage"
	// StoragePrefix prefixes a per-dashboard configuration filename
	StoragePrefix = ".storage/lovelace."
	// DefaultDashboardID is the implicit default dashboard
	DefaultDashboardID = "lovelace"
	// DefaultStorage is the current-format filename of the default dashboard
	DefaultStorage = ".storage/lovelace"
)

// storageFilePrefix is the bare filename prefix used for disk discovery
const storageFilePrefix = "lovelace."

// Dashboard describes a catalog entry. The id is stable across catalog
// rebuilds; Title may be empty when the registry carries none.
type Dashboard struct {
	ID       string
	Title    string
	URLPath  string
	Filename string
}

// Target is a catalog entry reduced to what the sync sweep needs
type Target struct {
	DashboardID string
	Filename    string
}

// Catalog enumerates dashboards and loads their configurations
type Catalog struct {
	store *docstore.DocStore
}

// List returns the known dashboards, metadata only.
// Order: registry items in registry order, legacy registry entries, the
// implicit default dashboard, then disk-discovered files in directory
// listing order. Deduplication is by id, first occurrence wins.
func (catalog *Catalog) List() []Dashboard {
	result := make([]Dashboard, 0)
	seen := make(map[string]bool)

	for _, dashboard := range catalog.registryEntries() {
		if seen[dashboard.ID] {
			continue
		}
		result = append(result, dashboard)
		seen[dashboard.ID] = true
	}

	if !seen[DefaultDashboardID] {
		result = append(result, Dashboard{
			ID:       DefaultDashboardID,
			Title:    "Lovelace",
			URLPath:  DefaultDashboardID,
			Filename: DefaultStorage,
		})
		seen[DefaultDashboardID] = true
	}

	for _, filename := range catalog.store.ListFiles(StorageFolder) {
		if !strings.HasPrefix(filename, storageFilePrefix) {
			continue
		}
		dashboardID := filename[len(storageFilePrefix):]
		if dashboardID == "" || seen[dashboardID] {
			continue
		}
		result = append(result, Dashboard{
			ID:       dashboardID,
			URLPath:  dashboardID,
			Filename: StorageFolder + "/" + filename,
		})
		seen[dashboardID] = true
	}
	return result
}

// ResolveTargets returns the id and filename of every known dashboard.
// Used by the sync sweep to avoid loading full configurations twice.
func (catalog *Catalog) ResolveTargets() []Target {
	dashboards := catalog.List()
	targets := make([]Target, 0, len(dashboards))
	for _, dashboard := range dashboards {
		targets = append(targets, Target{DashboardID: dashboard.ID, Filename: dashboard.Filename})
	}
	return targets
}

// LoadConfig loads a dashboard's stored configuration.
// For the default dashboard the legacy filename is tried first since that is
// the older deployment default. A missing or malformed document at any level
// returns nil; callers treat nil as "no views to update", not an error.
func (catalog *Catalog) LoadConfig(dashboardID string, filename string) *DashboardConfig {
	if filename == "" {
		filename = FilenameFor(dashboardID)
	}
	if dashboardID == DefaultDashboardID {
		legacyFilename := StoragePrefix + DefaultDashboardID
		if filename == DefaultStorage {
			if config := catalog.loadConfigFile(dashboardID, legacyFilename); config != nil {
				return config
			}
		}
		if config := catalog.loadConfigFile(dashboardID, filename); config != nil {
			return config
		}
		if legacyFilename != filename {
			return catalog.loadConfigFile(dashboardID, legacyFilename)
		}
		return nil
	}
	return catalog.loadConfigFile(dashboardID, filename)
}

// loadConfigFile loads one configuration document and extracts .data.config
func (catalog *Catalog) loadConfigFile(dashboardID string, filename string) *DashboardConfig {
	doc := catalog.store.Load(filename)
	if doc == nil {
		return nil
	}
	data, isMap := doc["data"].(map[string]interface{})
	if !isMap {
		logrus.Warningf("Catalog.LoadConfig: document '%s' has no data section", filename)
		return nil
	}
	config, isMap := data["config"].(map[string]interface{})
	if !isMap {
		logrus.Warningf("Catalog.LoadConfig: document '%s' has no config in its data section", filename)
		return nil
	}
	return newDashboardConfig(dashboardID, filename, doc, config)
}

// registryEntries reads the registry document's item list and its legacy
// dict-of-dashboards field. Items take precedence on id collision. The
// legacy dict is ordered by key for a deterministic catalog.
func (catalog *Catalog) registryEntries() []Dashboard {
	doc := catalog.store.Load(RegistryPath)
	data, _ := doc["data"].(map[string]interface{})

	entries := make([]Dashboard, 0)
	seen := make(map[string]bool)

	items, _ := data["items"].([]interface{})
	for _, rawItem := range items {
		item, isMap := rawItem.(map[string]interface{})
		if !isMap {
			continue
		}
		dashboardID, _ := item["id"].(string)
		if dashboardID == "" || seen[dashboardID] {
			continue
		}
		entries = append(entries, registryDashboard(dashboardID, item))
		seen[dashboardID] = true
	}

	legacy, _ := data["dashboards"].(map[string]interface{})
	legacyIDs := make([]string, 0, len(legacy))
	for dashboardID := range legacy {
		legacyIDs = append(legacyIDs, dashboardID)
	}
	sort.Strings(legacyIDs)
	for _, dashboardID := range legacyIDs {
		if seen[dashboardID] {
			continue
		}
		info, _ := legacy[dashboardID].(map[string]interface{})
		entries = append(entries, registryDashboard(dashboardID, info))
		seen[dashboardID] = true
	}
	return entries
}

// registryDashboard builds a catalog entry from a registry record
func registryDashboard(dashboardID string, info map[string]interface{}) Dashboard {
	dashboard := Dashboard{ID: dashboardID, URLPath: dashboardID}
	if info != nil {
		if title, found := info["title"].(string); found {
			dashboard.Title = title
		}
		if urlPath, found := info["url_path"].(string); found && urlPath != "" {
			dashboard.URLPath = urlPath
		}
		if filename, found := info["filename"].(string); found && filename != "" {
			dashboard.Filename = filename
		}
	}
	if dashboard.Filename == "" {
		dashboard.Filename = FilenameFor(dashboardID)
	}
	return dashboard
}

// FilenameFor returns the conventional storage filename of a dashboard
func FilenameFor(dashboardID string) string {
	if dashboardID == DefaultDashboardID {
		return DefaultStorage
	}
	return StoragePrefix + dashboardID
}

// SyntheticViewID builds the fallback view id for a view without a path or
// id. This id is positional: reordering or removing views reassigns it, so
// dashboards should give every view a stable path.
func SyntheticViewID(dashboardID string, index int) string {
	return fmt.Sprintf("%s-view-%d", dashboardID, index)
}

// NewCatalog creates a dashboard catalog on the given document store
func NewCatalog(store *docstore.DocStore) *Catalog {
	return &Catalog{store: store}
}
