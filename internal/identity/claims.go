package identity

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// PlanPro is the only paid tier recognized by the service.
const PlanPro = "pro"

// SessionClaims are the claims carried by a provider session token. Plan
// membership arrives either as a `plans` list or a single `plan` string,
// depending on how the provider instance is configured.
type SessionClaims struct {
	jwt.RegisteredClaims
	Plans []string `json:"plans,omitempty"`
	Plan  string   `json:"plan,omitempty"`
}

// UserID returns the stable principal identifier.
func (c *SessionClaims) UserID() string {
	if c == nil {
		return ""
	}
	return c.Subject
}

// HasPlan reports whether the principal currently holds the named plan.
func (c *SessionClaims) HasPlan(name string) bool {
	if c == nil {
		return false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return false
	}
	for _, p := range c.Plans {
		if strings.EqualFold(strings.TrimSpace(p), name) {
			return true
		}
	}
	return strings.EqualFold(strings.TrimSpace(c.Plan), name)
}
