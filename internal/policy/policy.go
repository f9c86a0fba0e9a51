// Package policy decides whether a principal may modify an entity.
package policy

// Owned is implemented by entities that have a single owning user.
type Owned interface {
	OwnerID() uint
}

// CanModify reports whether principalID owns entity. Unauthenticated
// callers (id 0) and missing entities are never allowed.
func CanModify(principalID uint, entity Owned) bool {
	if principalID == 0 || entity == nil {
		return false
	}
	return entity.OwnerID() == principalID
}
