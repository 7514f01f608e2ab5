package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/catscan/internal/catalog"
	"github.com/lehigh-university-libraries/catscan/internal/cataloging"
	"github.com/lehigh-university-libraries/catscan/internal/extract"
	"github.com/lehigh-university-libraries/catscan/internal/filler"
	"github.com/lehigh-university-libraries/catscan/internal/models"
	"github.com/lehigh-university-libraries/catscan/internal/scanner"
	"github.com/lehigh-university-libraries/catscan/internal/storage"
)

type Handler struct {
	sessionStore      *storage.SessionStore
	catalogingService *cataloging.Service
	detector          scanner.Detector
	media             *storage.MediaLibrary
	validate          *validator.Validate
	now               func() time.Time
}

// Deps are the collaborators of the HTTP API. Detector and Media are
// optional; without them the scan and media routes answer 503 and 404.
type Deps struct {
	Service  *cataloging.Service
	Detector scanner.Detector
	Media    *storage.MediaLibrary
	Sessions *storage.SessionStore
}

func New(deps Deps) *Handler {
	if deps.Sessions == nil {
		deps.Sessions = storage.New()
	}

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})

	return &Handler{
		sessionStore:      deps.Sessions,
		catalogingService: deps.Service,
		detector:          deps.Detector,
		media:             deps.Media,
		validate:          v,
		now:               time.Now,
	}
}

// Router mounts every route of the API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthcheck", h.HandleHealthcheck)
	r.Get("/media/{name}", h.HandleMedia)

	r.Route("/api", func(r chi.Router) {
		r.Get("/lookup", h.HandleLookup)
		r.Post("/fill", h.HandleFill)
		r.Post("/scan", h.HandleScan)
		r.Get("/sessions", h.HandleSessions)
		r.Get("/sessions/{id}", h.HandleSessionDetail)
		r.Delete("/sessions/{id}", h.HandleDeleteSession)
	})

	return r
}

func (h *Handler) HandleHealthcheck(w http.ResponseWriter, r *http.Request) {
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Unable to write healthcheck", "err", err)
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, message string, code int) {
	if code >= http.StatusInternalServerError {
		slog.Error(message, "status", code)
	} else {
		slog.Warn(message, "status", code)
	}
	h.writeJSON(w, code, map[string]string{"error": message})
}

// writeLookupError answers with the user message of err and the status
// matching its cause.
func (h *Handler) writeLookupError(w http.ResponseWriter, err error) {
	h.writeError(w, cataloging.UserMessage(err), statusFor(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrTransport), errors.Is(err, catalog.ErrEmptyPayload),
		errors.Is(err, catalog.ErrPayloadTooLarge):
		return http.StatusBadGateway
	case errors.Is(err, extract.ErrUnknownCategory), errors.Is(err, filler.ErrUnknownCategory):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) validationError(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		h.writeError(w, "Invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		names = append(names, fe.Field())
	}
	h.writeError(w, "Missing or invalid fields: "+strings.Join(names, ", "), http.StatusBadRequest)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, sessionID string) (*models.FillSession, bool) {
	session, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, "Session not found", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func (h *Handler) newSession(barcode string, category models.Category) *models.FillSession {
	return &models.FillSession{
		ID:        uuid.NewString(),
		Barcode:   barcode,
		Category:  category,
		Messages:  []string{},
		CreatedAt: h.now(),
	}
}
