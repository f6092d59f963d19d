package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/errors"
)

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderError writes a structured error response. Unknown errors are wrapped
// as internal so the HTTP status is always meaningful.
func renderError(w http.ResponseWriter, err error) {
	var pErr *errors.Error
	if !stderrors.As(err, &pErr) {
		pErr = errors.NewInternal(err)
	}

	renderJSON(w, pErr.Status, map[string]any{
		"error": map[string]any{
			"code":    string(pErr.Code),
			"message": pErr.Message,
			"status":  pErr.Status,
		},
	})
}

// renderMarkdown converts markdown note text to HTML.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return ""
	}
	return buf.String()
}

// fillNoteHTML renders the markdown of every note on a view. The projection
// layer leaves TextHTML empty; rendering is a transport concern.
func fillNoteHTML(view *creature.View) {
	for i := range view.Notes {
		view.Notes[i].TextHTML = renderMarkdown(view.Notes[i].Text)
	}
}
