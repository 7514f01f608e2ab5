package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/catscan/internal/cataloging"
	"github.com/lehigh-university-libraries/catscan/internal/filler"
	"github.com/lehigh-university-libraries/catscan/internal/form"
	"github.com/lehigh-university-libraries/catscan/internal/models"
)

type fillRequest struct {
	Barcode  string             `json:"barcode" validate:"required"`
	Category string             `json:"category" validate:"required"`
	Form     *models.FormValues `json:"form"`
}

type fillResponse struct {
	SessionID string             `json:"session_id"`
	Metadata  *models.Metadata   `json:"metadata,omitempty"`
	Messages  []string           `json:"messages"`
	Form      *models.FormValues `json:"form"`
}

func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	barcode := r.URL.Query().Get("barcode")
	if barcode == "" {
		h.writeError(w, "barcode is required", http.StatusBadRequest)
		return
	}

	category, err := models.ParseCategory(r.URL.Query().Get("category"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	md, err := h.catalogingService.Lookup(r.Context(), barcode, category)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, md)
}

func (h *Handler) HandleFill(w http.ResponseWriter, r *http.Request) {
	var request fillRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.writeError(w, "Invalid JSON: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(request); err != nil {
		h.validationError(w, err)
		return
	}

	category, err := models.ParseCategory(request.Category)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.fill(r.Context(), request.Barcode, category, request.Form)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// fill runs one lookup and fill into a form built from values, or into an
// empty form of the category when values is nil. The session is stored
// whether or not the fill succeeded.
func (h *Handler) fill(ctx context.Context, barcode string, category models.Category, values *models.FormValues) (*fillResponse, error) {
	var sink *form.Memory
	if values != nil {
		sink = form.FromValues(values)
	} else {
		var ok bool
		if sink, ok = filler.NewForm(category); !ok {
			return nil, fmt.Errorf("%w: %q", filler.ErrUnknownCategory, category)
		}
	}

	session := h.newSession(barcode, category)
	md, messages, err := h.catalogingService.Fill(ctx, barcode, category, sink)
	session.Metadata = md
	session.Form = sink.Values()
	if messages != nil {
		session.Messages = messages
	}
	if err != nil {
		session.Error = cataloging.UserMessage(err)
	}
	h.sessionStore.Set(session.ID, session)
	if err != nil {
		return nil, err
	}

	slog.Info("Form filled", "session_id", session.ID, "barcode", barcode, "category", category, "messages", len(session.Messages))
	return &fillResponse{
		SessionID: session.ID,
		Metadata:  md,
		Messages:  session.Messages,
		Form:      session.Form,
	}, nil
}
