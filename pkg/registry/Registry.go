// Package registry with read-only access to the platform entity and device
// registries.
// The registries are read from their storage documents and reshaped into
// flat JSON-serializable records for the listing commands. Nothing here is
// part of the sync core; a missing registry reads as empty.
package registry

import (
	"strings"

	"github.com/wostzone/accessmanager-go/pkg/docstore"
)

// Storage keys of the registry documents, relative to the store root
const (
	EntityRegistryPath = ".storage/core.entity_registry"
	DeviceRegistryPath = ".storage/core.device_registry"
)

// WithoutDevicesID is the synthetic device bucket for entities that are not
// linked to any device
const WithoutDevicesID = "withoutDevices"

// helper classification rules
const (
	inputDomainPrefix  = "input_"
	lightGroupPlatform = "group"
)

var helperDomains = map[string]bool{
	"schedule": true,
}

// Registry reads the platform entity and device registry documents
type Registry struct {
	store *docstore.DocStore
}

// ListEntities returns every registered entity as a flat record
func (registry *Registry) ListEntities() []map[string]interface{} {
	entities := registry.entityEntries()
	result := make([]map[string]interface{}, 0, len(entities))
	for _, entity := range entities {
		result = append(result, convertEntity(entity))
	}
	return result
}

// ListDevices returns every device with its linked entities attached.
// Entities without a device are collected under a synthetic bucket that is
// appended only when it is not empty.
func (registry *Registry) ListDevices() []map[string]interface{} {
	devices := make([]map[string]interface{}, 0)
	deviceIndex := make(map[string]map[string]interface{})
	for _, device := range registry.deviceEntries() {
		converted := convertDevice(device)
		deviceID, _ := converted["id"].(string)
		devices = append(devices, converted)
		deviceIndex[deviceID] = converted
	}

	withoutDevices := map[string]interface{}{
		"id":           WithoutDevicesID,
		"name":         "Entities without Devices",
		"manufacturer": "Home Assistant",
		"model":        "Virtual",
		"entities":     []interface{}{},
	}

	for _, entity := range registry.entityEntries() {
		converted := convertEntity(entity)
		deviceID, _ := converted["device_id"].(string)
		owner, found := deviceIndex[deviceID]
		if deviceID == "" || !found {
			owner = withoutDevices
		}
		owner["entities"] = append(owner["entities"].([]interface{}), converted)
	}

	if len(withoutDevices["entities"].([]interface{})) > 0 {
		devices = append(devices, withoutDevices)
	}
	return devices
}

// ListHelpers returns the helper entities: schedules, input_* entities and
// light groups, each tagged with its helper type
func (registry *Registry) ListHelpers() []map[string]interface{} {
	result := make([]map[string]interface{}, 0)
	for _, entity := range registry.entityEntries() {
		helperType, isHelper := classifyHelper(entity)
		if !isHelper {
			continue
		}
		converted := convertEntity(entity)
		converted["helper_type"] = helperType
		result = append(result, converted)
	}
	return result
}

// entityEntries returns the raw entity registry records
func (registry *Registry) entityEntries() []map[string]interface{} {
	return registryEntries(registry.store.Load(EntityRegistryPath), "entities")
}

// deviceEntries returns the raw device registry records
func (registry *Registry) deviceEntries() []map[string]interface{} {
	return registryEntries(registry.store.Load(DeviceRegistryPath), "devices")
}

// registryEntries extracts the record list of a registry document
func registryEntries(doc map[string]interface{}, key string) []map[string]interface{} {
	data, _ := doc["data"].(map[string]interface{})
	rawList, _ := data[key].([]interface{})
	result := make([]map[string]interface{}, 0, len(rawList))
	for _, rawEntry := range rawList {
		if entry, isMap := rawEntry.(map[string]interface{}); isMap {
			result = append(result, entry)
		}
	}
	return result
}

// classifyHelper decides whether an entity is a helper and of which type
func classifyHelper(entity map[string]interface{}) (helperType string, isHelper bool) {
	domain := entityDomain(entity)
	platform, _ := entity["platform"].(string)

	if domain == "light" && platform == lightGroupPlatform {
		return "light_group", true
	}
	if helperDomains[domain] {
		return domain, true
	}
	if strings.HasPrefix(domain, inputDomainPrefix) {
		return domain, true
	}
	return "", false
}

// entityDomain returns the domain part of an entity id
func entityDomain(entity map[string]interface{}) string {
	entityID, _ := entity["entity_id"].(string)
	if sep := strings.Index(entityID, "."); sep > 0 {
		return entityID[:sep]
	}
	return entityID
}

// convertEntity reshapes an entity registry record
func convertEntity(entity map[string]interface{}) map[string]interface{} {
	name, _ := entity["name"].(string)
	if name == "" {
		name, _ = entity["original_name"].(string)
	}
	entityID, _ := entity["entity_id"].(string)
	if name == "" {
		name = entityID
	}
	return map[string]interface{}{
		"entity_id":     entityID,
		"name":          name,
		"platform":      entity["platform"],
		"domain":        entityDomain(entity),
		"device_id":     entity["device_id"],
		"unique_id":     entity["unique_id"],
		"disabled_by":   entity["disabled_by"],
		"original_name": entity["original_name"],
	}
}

// convertDevice reshapes a device registry record
func convertDevice(device map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"id":                stringOr(device["id"], ""),
		"name":              stringOr(device["name"], "Unknown"),
		"manufacturer":      stringOr(device["manufacturer"], "Unknown"),
		"model":             stringOr(device["model"], "Unknown"),
		"identifiers":       device["identifiers"],
		"connections":       device["connections"],
		"config_entries":    device["config_entries"],
		"sw_version":        device["sw_version"],
		"hw_version":        device["hw_version"],
		"via_device_id":     device["via_device_id"],
		"configuration_url": device["configuration_url"],
		"entry_type":        device["entry_type"],
		"entities":          []interface{}{},
	}
}

// stringOr returns the string value or a fallback when absent or empty
func stringOr(value interface{}, fallback string) string {
	if text, isString := value.(string); isString && text != "" {
		return text
	}
	return fallback
}

// NewRegistry creates the registry reader on the given document store
func NewRegistry(store *docstore.DocStore) *Registry {
	return &Registry{store: store}
}
