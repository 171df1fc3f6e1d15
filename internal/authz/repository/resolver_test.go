package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/allisson/authkeyd/internal/authz/domain"
)

func resolve(tuples []domain.Tuple, user string, relation domain.Relation, object string) bool {
	r := &resolver{tuples: tuples, visited: map[string]bool{}}
	return r.resolve(user, relation, object)
}

func TestResolverDirectTuple(t *testing.T) {
	tuples := []domain.Tuple{
		{User: "user:alice", Relation: domain.RelationAdmin, Object: "tenant:acme"},
	}

	assert.True(t, resolve(tuples, "user:alice", domain.RelationAdmin, "tenant:acme"))
	assert.False(t, resolve(tuples, "user:bob", domain.RelationAdmin, "tenant:acme"))
	assert.False(t, resolve(tuples, "user:alice", domain.RelationMember, "tenant:acme"))
}

func TestResolverAdminUnionsIntoReader(t *testing.T) {
	// S2: admin of the parent tenant reads a log under it.
	tuples := []domain.Tuple{
		{User: "user:alice", Relation: domain.RelationAdmin, Object: "tenant:acme"},
		{User: "log:sys", Relation: domain.RelationParent, Object: "tenant:acme"},
	}

	assert.True(t, resolve(tuples, "user:alice", domain.RelationReader, "log:sys"))
	assert.True(t, resolve(tuples, "user:alice", domain.RelationWriter, "log:sys"))
	assert.False(t, resolve(tuples, "user:bob", domain.RelationReader, "log:sys"))

	// Revoking admin removes the derived reader relation.
	withoutAdmin := tuples[1:]
	assert.False(t, resolve(withoutAdmin, "user:alice", domain.RelationReader, "log:sys"))
}

func TestResolverAdminUnionsOnSameObject(t *testing.T) {
	tuples := []domain.Tuple{
		{User: "user:carol", Relation: domain.RelationAdmin, Object: "log:sys"},
	}

	assert.True(t, resolve(tuples, "user:carol", domain.RelationReader, "log:sys"))
	assert.True(t, resolve(tuples, "user:carol", domain.RelationWriter, "log:sys"))
	// Owner is not unioned via admin.
	assert.False(t, resolve(tuples, "user:carol", domain.RelationOwner, "log:sys"))
}

func TestResolverUsersetIndirection(t *testing.T) {
	tuples := []domain.Tuple{
		{User: "user:bob", Relation: domain.RelationAssignee, Object: "role:engineer"},
		{User: "role:engineer#assignee", Relation: domain.RelationReader, Object: "log:sys"},
	}

	assert.True(t, resolve(tuples, "user:bob", domain.RelationReader, "log:sys"))
	assert.False(t, resolve(tuples, "user:carol", domain.RelationReader, "log:sys"))
}

func TestResolverRecursiveRoleParent(t *testing.T) {
	tuples := []domain.Tuple{
		{User: "user:bob", Relation: domain.RelationAssignee, Object: "role:junior"},
		{User: "role:junior", Relation: domain.RelationParent, Object: "role:senior"},
		{User: "role:senior", Relation: domain.RelationParent, Object: "role:junior"}, // cycle
	}

	assert.True(t, resolve(tuples, "user:bob", domain.RelationAssignee, "role:junior"))
	// Walking the junior<->senior parent cycle terminates instead of recursing
	// forever, and still answers false for a non-assignee.
	assert.False(t, resolve(tuples, "user:carol", domain.RelationAssignee, "role:junior"))
	assert.False(t, resolve(tuples, "user:bob", domain.RelationAssignee, "role:staff"))
}

func TestResolverParentChainPropagation(t *testing.T) {
	// log_entry -> log -> organization -> tenant, admin at the top.
	tuples := []domain.Tuple{
		{User: "user:alice", Relation: domain.RelationAdmin, Object: "tenant:acme"},
		{User: "organization:core", Relation: domain.RelationParent, Object: "tenant:acme"},
		{User: "log:sys", Relation: domain.RelationParent, Object: "organization:core"},
		{User: "log_entry:42", Relation: domain.RelationParent, Object: "log:sys"},
	}

	assert.True(t, resolve(tuples, "user:alice", domain.RelationReader, "log_entry:42"))
	assert.False(t, resolve(tuples, "user:mallory", domain.RelationReader, "log_entry:42"))
}

func TestSortedCopyIsDeterministic(t *testing.T) {
	tuples := []domain.Tuple{
		{User: "user:b", Relation: domain.RelationReader, Object: "log:b"},
		{User: "user:a", Relation: domain.RelationReader, Object: "log:a"},
		{User: "user:a", Relation: domain.RelationAdmin, Object: "log:a"},
	}

	sorted := sortedCopy(tuples)
	assert.Equal(t, "log:a", sorted[0].Object)
	assert.Equal(t, domain.RelationAdmin, sorted[0].Relation)
	assert.Equal(t, "log:a", sorted[1].Object)
	assert.Equal(t, "log:b", sorted[2].Object)
	// Input order is untouched.
	assert.Equal(t, "log:b", tuples[0].Object)
}
