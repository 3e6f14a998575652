package handlers

import (
	"context"
	"net/http"

	"inkwell/internal/domain"
	"inkwell/internal/metrics"
	"inkwell/internal/middleware"
)

// toolSpec declares the gating rules for one AI capability. Free-eligible
// tools share the app-wide quota; the rest require the pro plan outright.
type toolSpec struct {
	name         string
	creationType domain.CreationType
	requiresPro  bool
}

var (
	toolArticle    = toolSpec{name: "generate-article", creationType: domain.CreationTypeArticle}
	toolBlogTitle  = toolSpec{name: "generate-blog-title", creationType: domain.CreationTypeBlogTitle}
	toolImage      = toolSpec{name: "generate-image", creationType: domain.CreationTypeImage, requiresPro: true}
	toolBackground = toolSpec{name: "remove-image-background", creationType: domain.CreationTypeImage, requiresPro: true}
	toolObject     = toolSpec{name: "remove-image-object", creationType: domain.CreationTypeImage, requiresPro: true}
	toolResume     = toolSpec{name: "resume-review", creationType: domain.CreationTypeResumeReview, requiresPro: true}
)

// admit runs the admission check for a tool invocation. It writes the
// rejection response itself and reports whether the handler may proceed.
// No provider is called and nothing is persisted for a rejected request.
func (a *App) admit(w http.ResponseWriter, r *http.Request, spec toolSpec) (domain.AuthContext, bool) {
	auth, ok := middleware.AuthFromContext(r.Context())
	if !ok {
		a.fail(w, http.StatusUnauthorized, "unauthorized")
		return domain.AuthContext{}, false
	}
	if spec.requiresPro && !auth.IsPro() {
		a.Metrics.ObserveTool(spec.name, metrics.OutcomeUpgradeRequired)
		a.fail(w, http.StatusForbidden, "Upgrade to pro to continue.")
		return domain.AuthContext{}, false
	}
	if !spec.requiresPro && !auth.IsPro() && auth.FreeUsage >= a.FreeQuota {
		a.Metrics.ObserveTool(spec.name, metrics.OutcomeQuotaExceeded)
		a.fail(w, http.StatusTooManyRequests, "Limit reached. Upgrade to continue.")
		return domain.AuthContext{}, false
	}
	return auth, true
}

// record persists the creation produced by a successful provider call and,
// for free-plan principals, charges one unit of quota. The two effects are
// not transactional: a failed increment after a successful insert is logged
// and the request still succeeds, since the artifact already exists and the
// provider has been paid.
func (a *App) record(ctx context.Context, auth domain.AuthContext, spec toolSpec, promptText, content string, publish bool) (*domain.Creation, error) {
	creation := &domain.Creation{
		UserID:  auth.UserID,
		Prompt:  promptText,
		Content: content,
		Type:    spec.creationType,
		Publish: publish,
	}
	if err := a.Creations.Insert(ctx, creation); err != nil {
		return nil, err
	}
	if !auth.IsPro() {
		if _, err := a.Ledger.Increment(ctx, auth.UserID); err != nil {
			a.Logger.Error().Err(err).
				Str("user_id", auth.UserID).
				Str("tool", spec.name).
				Msg("usage increment failed after successful creation")
		}
	}
	if publish {
		if err := a.Feed.Invalidate(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("feed cache invalidation failed")
		}
	}
	a.Metrics.ObserveTool(spec.name, metrics.OutcomeOK)
	return creation, nil
}

// providerFailed logs a provider error and answers with the uniform failure
// shape. Nothing has been persisted and no quota has been charged.
func (a *App) providerFailed(w http.ResponseWriter, spec toolSpec, err error) {
	a.Logger.Error().Err(err).Str("tool", spec.name).Msg("provider call failed")
	a.Metrics.ObserveTool(spec.name, metrics.OutcomeProviderError)
	a.fail(w, http.StatusBadGateway, "The provider could not complete this request. Please try again.")
}

// invalidInput answers a validation failure before any provider call.
func (a *App) invalidInput(w http.ResponseWriter, spec toolSpec, message string) {
	a.Metrics.ObserveTool(spec.name, metrics.OutcomeInvalidInput)
	a.fail(w, http.StatusBadRequest, message)
}
