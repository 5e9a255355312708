package permission

import (
	"fmt"

	"github.com/tasklane/tasklane/internal/shared/authorization"
	"github.com/tasklane/tasklane/internal/shared/logger"
)

// Resources guarded on the admin API.
const (
	ResourcePlan         = "plan"
	ResourcePlanOverride = "plan_override"

	ActionRead  = "read"
	ActionWrite = "write"
)

// DefaultAdminPolicies grants admins full plan administration and lets
// support staff inspect plans and overrides.
func DefaultAdminPolicies() [][]string {
	admin := authorization.RoleAdmin.String()
	support := authorization.RoleSupport.String()
	return [][]string{
		{admin, ResourcePlan, "*"},
		{admin, ResourcePlanOverride, "*"},
		{support, ResourcePlan, ActionRead},
		{support, ResourcePlanOverride, ActionRead},
	}
}

// InitAdminPolicies seeds the default policies. Existing rows are left as
// they are, so edits made in the casbin_rule table survive restarts.
func InitAdminPolicies(e *Enforcer, log logger.Interface) error {
	for _, policy := range DefaultAdminPolicies() {
		if err := e.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return fmt.Errorf("failed to add policy [%s, %s, %s]: %w",
				policy[0], policy[1], policy[2], err)
		}
	}

	log.Infow("admin permissions initialized", "policies", len(DefaultAdminPolicies()))
	return nil
}
