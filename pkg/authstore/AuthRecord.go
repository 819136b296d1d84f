// Package authstore with the repository for the platform authentication record.
// The record lives in the platform storage folder as a JSON document. Updates
// are staged in a pending copy and promoted with an atomic rename so readers
// always see either the fully-old or the fully-new record.
package authstore

import (
	"strings"
)

// CustomGroupPrefix marks groups that must carry an entity policy
const CustomGroupPrefix = "custom-group-"

// PrimaryAuthProvider is the credential provider that links a user to the
// platform's own login. Users without such a credential are not real logins
// and never receive view visibility.
const PrimaryAuthProvider = "homeassistant"

// AuthRecord wraps the raw authentication document.
// Only ids, group memberships, activity flags and the group entity policy are
// interpreted; all other fields round-trip unchanged.
type AuthRecord struct {
	doc map[string]interface{}
}

// UserGroups holds a user's group memberships in record order
type UserGroups struct {
	UserID   string
	GroupIDs []string
}

// Doc returns the raw document for persisting
func (record *AuthRecord) Doc() map[string]interface{} {
	return record.doc
}

// Data returns the record's data section, creating it if absent
func (record *AuthRecord) Data() map[string]interface{} {
	data, found := record.doc["data"].(map[string]interface{})
	if !found {
		data = make(map[string]interface{})
		record.doc["data"] = data
	}
	return data
}

// entryList returns the users or groups list from the data section
func (record *AuthRecord) entryList(key string) []interface{} {
	list, _ := record.Data()[key].([]interface{})
	return list
}

// Users returns the raw user entries in record order
func (record *AuthRecord) Users() []map[string]interface{} {
	return entryMaps(record.entryList("users"))
}

// Groups returns the raw group entries in record order
func (record *AuthRecord) Groups() []map[string]interface{} {
	return entryMaps(record.entryList("groups"))
}

// UpsertEntry merges an entry into the users or groups list.
// The entry whose id matches is updated with a shallow field overwrite; an
// unknown id is appended. The record is mutated in place.
func (record *AuthRecord) UpsertEntry(isUser bool, entry map[string]interface{}) {
	key := "groups"
	if isUser {
		key = "users"
	}
	entryID, _ := entry["id"].(string)
	list := record.entryList(key)
	for _, item := range list {
		existing, isMap := item.(map[string]interface{})
		if !isMap {
			continue
		}
		if existingID, _ := existing["id"].(string); existingID == entryID {
			for field, value := range entry {
				existing[field] = value
			}
			return
		}
	}
	record.Data()[key] = append(list, entry)
}

// UserGroupIDs returns each user's group memberships in record order.
// Users without a primary provider credential, inactive users and
// system generated users are excluded; they never appear in a view's
// visibility list.
func (record *AuthRecord) UserGroupIDs() []UserGroups {
	credentials := record.credentialIndex()
	result := make([]UserGroups, 0)
	for _, user := range record.Users() {
		userID, _ := user["id"].(string)
		if userID == "" {
			continue
		}
		if _, hasCredential := credentials[userID]; !hasCredential {
			continue
		}
		if isActive, found := user["is_active"].(bool); found && !isActive {
			continue
		}
		if systemGenerated, _ := user["system_generated"].(bool); systemGenerated {
			continue
		}
		result = append(result, UserGroups{
			UserID:   userID,
			GroupIDs: stringList(user["group_ids"]),
		})
	}
	return result
}

// Usernames returns the primary provider login name per user id
func (record *AuthRecord) Usernames() map[string]string {
	return record.credentialIndex()
}

// IsValid checks the record's validity invariant: every custom group must
// carry a non-empty entity policy. The result controls the validity marker
// written at commit time; it is a signal for external collaborators, not a
// hard error.
func (record *AuthRecord) IsValid() bool {
	for _, group := range record.Groups() {
		groupID, _ := group["id"].(string)
		if !strings.HasPrefix(groupID, CustomGroupPrefix) {
			continue
		}
		policy, _ := group["policy"].(map[string]interface{})
		entities, _ := policy["entities"].(map[string]interface{})
		if isEmptyValue(entities["entity_ids"]) {
			return false
		}
	}
	return true
}

// credentialIndex maps user id to primary provider username
func (record *AuthRecord) credentialIndex() map[string]string {
	index := make(map[string]string)
	credentialList, _ := record.Data()["credentials"].([]interface{})
	for _, item := range credentialList {
		credential, isMap := item.(map[string]interface{})
		if !isMap {
			continue
		}
		providerType, _ := credential["auth_provider_type"].(string)
		if providerType != PrimaryAuthProvider {
			continue
		}
		userID, _ := credential["user_id"].(string)
		if userID == "" {
			continue
		}
		credentialData, _ := credential["data"].(map[string]interface{})
		username, _ := credentialData["username"].(string)
		index[userID] = username
	}
	return index
}

// NewAuthRecord wraps a raw auth document. Nil creates an empty record.
func NewAuthRecord(doc map[string]interface{}) *AuthRecord {
	if doc == nil {
		doc = make(map[string]interface{})
	}
	return &AuthRecord{doc: doc}
}

// entryMaps filters a raw list down to its object entries
func entryMaps(list []interface{}) []map[string]interface{} {
	result := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if entry, isMap := item.(map[string]interface{}); isMap {
			result = append(result, entry)
		}
	}
	return result
}

// stringList converts a raw JSON list to strings, dropping other values
func stringList(value interface{}) []string {
	list, _ := value.([]interface{})
	result := make([]string, 0, len(list))
	for _, item := range list {
		if text, isString := item.(string); isString {
			result = append(result, text)
		}
	}
	return result
}

// isEmptyValue tests whether a policy value holds no entity ids.
// The platform stores entity_ids as either an object or a list.
func isEmptyValue(value interface{}) bool {
	switch typed := value.(type) {
	case map[string]interface{}:
		return len(typed) == 0
	case []interface{}:
		return len(typed) == 0
	default:
		return true
	}
}
