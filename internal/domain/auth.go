package domain

// Plan is the subscription tier of a principal. Exactly two tiers exist.
type Plan string

const (
	PlanFree Plan = "free"
	PlanPro  Plan = "pro"
)

// AuthContext is the per-request authorization context produced by the auth
// gate. FreeUsage is only meaningful when Plan == PlanFree; pro usage is
// unmetered and the ledger is never consulted for pro principals.
type AuthContext struct {
	UserID    string
	Plan      Plan
	FreeUsage int
}

// IsPro reports whether the principal holds the pro plan.
func (a AuthContext) IsPro() bool {
	return a.Plan == PlanPro
}
