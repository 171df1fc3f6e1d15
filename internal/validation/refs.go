package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"
)

var tenantIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*$`)

// TenantID validates a tenant identifier: alphanumeric with dashes and
// underscores, no leading separator, and free of the ":" that delimits object
// refs in the authorization graph.
var TenantID = validation.NewStringRuleWithError(
	func(s string) bool {
		return tenantIDRegex.MatchString(s)
	},
	validation.NewError("validation_tenant_id", "must be alphanumeric with optional dashes or underscores"),
)

// ObjectRef validates a tagged object reference of the form "<type>:<id>".
var ObjectRef = validation.NewStringRuleWithError(
	func(s string) bool {
		typ, id, ok := strings.Cut(s, ":")
		return ok && typ != "" && id != ""
	},
	validation.NewError("validation_object_ref", "must be a tagged reference of the form type:id"),
)
