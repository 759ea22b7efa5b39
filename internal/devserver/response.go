package devserver

import (
	"encoding/json"
	"net/http"

	"github.com/me/jejakliqo/pkg/model"
)

type envelope struct {
	Status  string              `json:"status"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Meta    *model.Pagination   `json:"meta,omitempty"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// respondOK writes a success envelope.
func respondOK(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusOK, envelope{Status: "success", Message: message, Data: data})
}

// respondCreated writes a 201 envelope.
func respondCreated(w http.ResponseWriter, message string, data any) {
	writeJSON(w, http.StatusCreated, envelope{Status: "success", Message: message, Data: data})
}

// respondList writes a success envelope with pagination.
func respondList(w http.ResponseWriter, data any, pg *model.Pagination) {
	writeJSON(w, http.StatusOK, envelope{Status: "success", Data: data, Meta: pg})
}

// respondError writes an error envelope.
func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Status: "error", Message: message})
}

// respondValidation writes a 422 with per-field messages.
func respondValidation(w http.ResponseWriter, fields map[string][]string) {
	writeJSON(w, http.StatusUnprocessableEntity, envelope{
		Status:  "error",
		Message: "The given data was invalid.",
		Errors:  fields,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// paginate slices items according to the page and per_page query
// parameters.
func paginate[T any](r *http.Request, items []T) ([]T, *model.Pagination) {
	opts := listOptions(r)
	total := len(items)
	last := (total + opts.PerPage - 1) / opts.PerPage
	if last == 0 {
		last = 1
	}
	start := (opts.Page - 1) * opts.PerPage
	if start > total {
		start = total
	}
	end := start + opts.PerPage
	if end > total {
		end = total
	}
	page := items[start:end]
	if page == nil {
		page = []T{}
	}
	return page, &model.Pagination{
		CurrentPage: opts.Page,
		LastPage:    last,
		PerPage:     opts.PerPage,
		Total:       total,
	}
}
