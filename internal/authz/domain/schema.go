// Package domain defines the authorization graph's fixed type/relation schema and
// the tuples that populate it. The schema is closed: object types and relations are
// not configurable at runtime, only the tuples between them are.
package domain

// ObjectType is one of the eight fixed types in the authorization schema.
type ObjectType string

const (
	TypeTenant       ObjectType = "tenant"
	TypeOrganization ObjectType = "organization"
	TypeUser         ObjectType = "user"
	TypeRole         ObjectType = "role"
	TypeLog          ObjectType = "log"
	TypeLogEntry     ObjectType = "log_entry"
	TypeAPIKey       ObjectType = "apikey"
	TypeSystem       ObjectType = "system"
)

// Relation is a named edge in the authorization graph.
type Relation string

const (
	RelationAdmin    Relation = "admin"
	RelationMember   Relation = "member"
	RelationExists   Relation = "exists"
	RelationIdentity Relation = "identity"
	RelationAssignee Relation = "assignee"
	RelationOwner    Relation = "owner"
	RelationReader   Relation = "reader"
	RelationWriter   Relation = "writer"
	RelationManager  Relation = "manager"
	RelationParent   Relation = "parent"
)

// schema maps each object type to the relations it supports. It is read only by
// SupportsRelation; the resolver itself does not consult it.
var schema = map[ObjectType]map[Relation]bool{
	TypeTenant:       {RelationAdmin: true, RelationMember: true, RelationExists: true},
	TypeOrganization: {RelationAdmin: true, RelationMember: true, RelationParent: true},
	TypeUser:         {RelationIdentity: true},
	TypeRole:         {RelationAssignee: true, RelationParent: true},
	TypeLog:          {RelationOwner: true, RelationReader: true, RelationWriter: true, RelationParent: true},
	TypeLogEntry:     {RelationOwner: true, RelationReader: true, RelationWriter: true, RelationParent: true},
	TypeAPIKey:       {RelationOwner: true, RelationManager: true, RelationParent: true},
	TypeSystem:       {RelationAdmin: true},
}

// unionedViaAdmin lists the relations that are a union of their directly assigned
// users and whoever is an admin reachable via the object's parent chain.
var unionedViaAdmin = map[Relation]bool{
	RelationReader:  true,
	RelationWriter:  true,
	RelationManager: true,
}

// IsUnionedViaAdmin reports whether a relation implicitly includes admins of the
// object's ancestors (see the resolver in repository.LocalTupleStore.Check).
func IsUnionedViaAdmin(r Relation) bool {
	return unionedViaAdmin[r]
}

// SupportsRelation reports whether the schema defines relation r on type t. Unknown
// types/relations are permitted through (the schema only validates known types);
// callers outside this package should prefer PermissionToRelation for the common
// read/write/admin/owner vocabulary.
func SupportsRelation(t ObjectType, r Relation) bool {
	relations, ok := schema[t]
	if !ok {
		return true
	}
	return relations[r]
}

// PermissionToRelation applies the fixed permission→relation mapping from the
// authorization service: read↔reader, write↔writer, admin↔admin, owner↔owner.
// Any other permission name passes through verbatim.
func PermissionToRelation(permission string) Relation {
	switch permission {
	case "read":
		return RelationReader
	case "write":
		return RelationWriter
	case "admin":
		return RelationAdmin
	case "owner":
		return RelationOwner
	default:
		return Relation(permission)
	}
}
