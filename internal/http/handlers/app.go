package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"inkwell/internal/cache"
	"inkwell/internal/domain"
	"inkwell/internal/identity"
	"inkwell/internal/infra"
	"inkwell/internal/metrics"
	"inkwell/internal/providers/imagegen"
	"inkwell/internal/providers/media"
	"inkwell/internal/providers/pdftext"
	"inkwell/internal/providers/prompt"
)

// App carries every dependency the HTTP handlers need.
type App struct {
	Logger    infra.Logger
	Creations domain.CreationRepository
	Ledger    identity.UsageLedger
	Completer prompt.Completer
	Images    imagegen.Generator
	Media     media.Store
	Resumes   pdftext.Extractor
	Feed      *cache.FeedCache
	Metrics   *metrics.Metrics

	FreeQuota      int
	MaxUploadBytes int64

	validate *validator.Validate
}

// AppOptions configures NewApp.
type AppOptions struct {
	Logger    infra.Logger
	Creations domain.CreationRepository
	Ledger    identity.UsageLedger
	Completer prompt.Completer
	Images    imagegen.Generator
	Media     media.Store
	Resumes   pdftext.Extractor
	Feed      *cache.FeedCache
	Metrics   *metrics.Metrics

	FreeQuota      int
	MaxUploadBytes int64
}

// NewApp wires an App container.
func NewApp(opts AppOptions) *App {
	freeQuota := opts.FreeQuota
	if freeQuota <= 0 {
		freeQuota = 10
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 5 * 1024 * 1024
	}
	return &App{
		Logger:         opts.Logger,
		Creations:      opts.Creations,
		Ledger:         opts.Ledger,
		Completer:      opts.Completer,
		Images:         opts.Images,
		Media:          opts.Media,
		Resumes:        opts.Resumes,
		Feed:           opts.Feed,
		Metrics:        opts.Metrics,
		FreeQuota:      freeQuota,
		MaxUploadBytes: maxUpload,
		validate:       validator.New(),
	}
}

type contentResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
}

type imageResponse struct {
	Success   bool   `json:"success"`
	SecureURL string `json:"secure_url"`
}

type creationsResponse struct {
	Success   bool              `json:"success"`
	Creations []domain.Creation `json:"creations"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) fail(w http.ResponseWriter, code int, message string) {
	a.json(w, code, errorResponse{Success: false, Message: message})
}

// decodeJSON decodes and validates a JSON request body.
func (a *App) decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("invalid request payload")
	}
	if err := a.validate.Struct(v); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return errors.New("invalid request payload")
		}
		return err
	}
	return nil
}
