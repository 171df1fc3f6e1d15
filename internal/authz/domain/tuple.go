package domain

import (
	"strings"
	"time"
)

// ObjectRef is a tagged string identifier of the form "<type>:<id>", e.g.
// "tenant:acme" or "log:sys". Per DESIGN NOTES, principals, rolesets, and objects
// are kept as fluid tagged strings throughout the authorization graph rather than
// lifted into a structural sum type; validation happens only at the boundary.
type ObjectRef string

// Type returns the "<type>" portion of the ref, or "" if malformed.
func (o ObjectRef) Type() string {
	t, _, ok := strings.Cut(string(o), ":")
	if !ok {
		return ""
	}
	return t
}

// Valid reports whether the ref has the "<type>:<id>" shape with a non-empty id.
func (o ObjectRef) Valid() bool {
	t, id, ok := strings.Cut(string(o), ":")
	return ok && t != "" && id != ""
}

// Tuple is a single relationship edge (user_or_userset, relation, object).
// The User field may itself reference a userset, e.g. "role:engineer#assignee",
// meaning "anyone who is an assignee of role:engineer".
type Tuple struct {
	User     string
	Relation Relation
	Object   string
}

// UsersetParts splits a userset reference "type:id#relation" into the object ref
// and relation. ok is false if User does not reference a userset.
func (t Tuple) UsersetParts() (object string, relation Relation, ok bool) {
	obj, rel, found := strings.Cut(t.User, "#")
	if !found {
		return "", "", false
	}
	return obj, Relation(rel), true
}

// StoredTuple is a Tuple persisted in the local SQL-backed tuple store.
type StoredTuple struct {
	TenantID  string
	Tuple     Tuple
	CreatedAt time.Time
}
