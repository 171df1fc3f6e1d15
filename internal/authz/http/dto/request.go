// Package dto provides data transfer objects for the authorization endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	"github.com/allisson/authkeyd/internal/authz/domain"
	customValidation "github.com/allisson/authkeyd/internal/validation"
)

// TupleRequest is one relationship edge on the wire.
type TupleRequest struct {
	User     string `json:"user"`
	Relation string `json:"relation"`
	Object   string `json:"object"`
}

// Validate checks the tuple's shape: user and relation must be non-blank and
// object must be a "<type>:<id>" tagged ref. The user's form is not checked.
func (r *TupleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.User, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Relation, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Object, validation.Required, customValidation.ObjectRef),
	)
}

// Tuple converts the request to its domain form.
func (r *TupleRequest) Tuple() domain.Tuple {
	return domain.Tuple{User: r.User, Relation: domain.Relation(r.Relation), Object: r.Object}
}

// CheckRequest asks whether user holds relation on object, optionally folding
// in ephemeral contextual tuples.
type CheckRequest struct {
	User             string         `json:"user"`
	Relation         string         `json:"relation"`
	Object           string         `json:"object"`
	ContextualTuples []TupleRequest `json:"contextual_tuples"`
}

// Validate checks if the check request is valid.
func (r *CheckRequest) Validate() error {
	if err := validation.ValidateStruct(r,
		validation.Field(&r.User, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Relation, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Object, validation.Required, customValidation.ObjectRef),
	); err != nil {
		return err
	}
	for i := range r.ContextualTuples {
		if err := r.ContextualTuples[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// CreateTenantRequest bootstraps a tenant with its first admin.
type CreateTenantRequest struct {
	TenantID    string `json:"tenant_id"`
	AdminUserID string `json:"admin_user_id"`
}

// Validate checks if the create-tenant request is valid.
func (r *CreateTenantRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.TenantID, validation.Required, customValidation.TenantID),
		validation.Field(&r.AdminUserID, validation.Required, customValidation.NotBlank),
	)
}

// AddUserRequest grants a user membership (and optionally admin) on a tenant.
type AddUserRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Validate checks if the add-user request is valid.
func (r *AddUserRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, customValidation.NotBlank),
		validation.Field(&r.Role, validation.Required, validation.In("member", "admin")),
	)
}

// UpdateRoleRequest changes a user's role on a tenant.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// Validate checks if the update-role request is valid.
func (r *UpdateRoleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Role, validation.Required, validation.In("member", "admin")),
	)
}
