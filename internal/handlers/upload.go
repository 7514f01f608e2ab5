package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/catscan/internal/models"
)

// maxUploadSize caps an uploaded frame.
const maxUploadSize = 10 * 1024 * 1024

type scanResponse struct {
	fillResponse
	Barcode string   `json:"barcode"`
	Format  string   `json:"format"`
	Others  []string `json:"others,omitempty"`
}

// HandleScan reads a multipart "file" holding a photo of a barcode, decodes
// the barcode and fills a form with its record. The category comes from the
// "category" field and an optional "form" field carries the form as JSON.
func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	if h.detector == nil {
		h.writeError(w, "Barcode detection is not available", http.StatusServiceUnavailable)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1024*1024)
	file, header, err := r.FormFile("file")
	if err != nil {
		file, header, err = r.FormFile("files")
		if err != nil {
			h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	defer file.Close()

	category, err := models.ParseCategory(r.FormValue("category"))
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var values *models.FormValues
	if raw := r.FormValue("form"); raw != "" {
		values = &models.FormValues{}
		if err := json.Unmarshal([]byte(raw), values); err != nil {
			h.writeError(w, "Invalid form JSON: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	fileData, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(fileData) >= maxUploadSize {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return
	}

	frame, err := h.processFrame(r.Context(), fileData, header.Filename)
	if err != nil {
		h.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(frame.Codes) == 0 {
		h.writeError(w, "No barcode found in image", http.StatusUnprocessableEntity)
		return
	}

	first := frame.Codes[0]
	slog.Info("Barcode decoded from upload",
		"filename", header.Filename,
		"barcode", first.RawValue,
		"format", first.Format,
		"width", frame.Width,
		"height", frame.Height)

	filled, err := h.fill(r.Context(), first.RawValue, category, values)
	if err != nil {
		h.writeLookupError(w, err)
		return
	}

	resp := scanResponse{
		fillResponse: *filled,
		Barcode:      first.RawValue,
		Format:       first.Format,
	}
	for _, c := range frame.Codes[1:] {
		resp.Others = append(resp.Others, c.RawValue)
	}
	h.writeJSON(w, http.StatusOK, resp)
}
