package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/porystore/porystore/internal/auth"
	"github.com/porystore/porystore/internal/config"
	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/errors"
	"github.com/porystore/porystore/internal/metrics"
	"github.com/porystore/porystore/internal/ops"
)

// Handlers contains HTTP route handlers for the porystore API.
type Handlers struct {
	db    *sql.DB
	cfg   *config.Config
	sched *ops.Scheduler
	m     *metrics.Metrics
	log   zerolog.Logger
}

type viewerKey struct{}

// withViewer resolves the Authorization header into a viewer. Requests
// without a token proceed anonymously; a token that is present but invalid
// is rejected so a client never silently falls back to anonymous access.
func (h *Handlers) withViewer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			renderError(w, errors.NewUnauthorized("malformed authorization header"))
			return
		}
		claims, err := auth.ParseToken(token, []byte(h.cfg.JWTSecret))
		if err != nil {
			renderError(w, err)
			return
		}

		viewer := ops.Viewer{Name: claims.Username, Admin: claims.Admin}
		ctx := context.WithValue(r.Context(), viewerKey{}, viewer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// viewer returns the authenticated viewer, or the anonymous viewer.
func viewer(r *http.Request) ops.Viewer {
	if v, ok := r.Context().Value(viewerKey{}).(ops.Viewer); ok {
		return v
	}
	return ops.Anonymous
}

// HandleRegister handles POST /api/register — create a user account.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}
	if req.Username == "" || req.Password == "" {
		renderError(w, errors.NewInvalidRequest("username and password are required"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		renderError(w, errors.NewInternal(err))
		return
	}

	err = db.InsertUser(r.Context(), h.db, &creature.User{
		Name:                  req.Username,
		PasswordHash:          hash,
		DefaultVisibility:     creature.Visibility(h.cfg.DefaultVisibility),
		DefaultNoteVisibility: creature.VisibilityPrivate,
		CreatedAt:             time.Now().Unix(),
	})
	if err != nil {
		renderError(w, err)
		return
	}

	h.log.Info().Str("user", req.Username).Msg("registered user")
	renderJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

// HandleLogin handles POST /api/login — exchange credentials for a token.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}

	user, err := db.GetUser(r.Context(), h.db, req.Username)
	if err != nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// Same answer for unknown user and wrong password.
		renderError(w, errors.NewUnauthorized("invalid credentials"))
		return
	}

	token, err := auth.GenerateToken(user.Name, user.Admin, []byte(h.cfg.JWTSecret), h.cfg.TokenTTL())
	if err != nil {
		renderError(w, errors.NewInternal(err))
		return
	}

	renderJSON(w, http.StatusOK, map[string]string{"token": token})
}

// HandleUpload handles POST /api/creatures — upload a save file. The request
// body is the raw save; visibility and box are query parameters.
func (h *Handlers) HandleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, int64(h.cfg.MaxUploadBytes)+1)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		renderError(w, errors.NewPayloadTooLarge(h.cfg.MaxUploadBytes, len(raw)))
		return
	}

	out, err := ops.Upload(r.Context(), h.db, h.cfg, creature.JSONDecoder{}, h.m, ops.UploadInput{
		Viewer:     viewer(r),
		Raw:        raw,
		Visibility: r.URL.Query().Get("visibility"),
		BoxID:      r.URL.Query().Get("box"),
	})
	if err != nil {
		renderError(w, err)
		return
	}

	fillNoteHTML(out.View)
	renderJSON(w, http.StatusCreated, out)
}

// HandleFetch handles GET /api/creatures/{id} — view one creature.
func (h *Handlers) HandleFetch(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Fetch(r.Context(), h.db, ops.FetchInput{
		ID:     r.PathValue("id"),
		Viewer: viewer(r),
	})
	if err != nil {
		renderError(w, err)
		return
	}

	fillNoteHTML(out.View)
	renderJSON(w, http.StatusOK, out)
}

// HandleMine handles GET /api/creatures/mine — list the viewer's creatures.
func (h *Handlers) HandleMine(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Mine(r.Context(), h.db, ops.MineInput{Viewer: viewer(r)})
	if err != nil {
		renderError(w, err)
		return
	}

	for _, v := range out.Creatures {
		fillNoteHTML(v)
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleEdit handles PATCH /api/creatures/{id} — change visibility.
func (h *Handlers) HandleEdit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Visibility string `json:"visibility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}

	out, err := ops.Edit(r.Context(), h.db, ops.EditInput{
		ID:         r.PathValue("id"),
		Visibility: req.Visibility,
		Viewer:     viewer(r),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleDelete handles DELETE /api/creatures/{id} — soft delete with a grace
// period. ?immediate=true skips the grace period.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	immediate := r.URL.Query().Get("immediate") == "true"

	out, err := ops.Delete(r.Context(), h.db, h.sched, ops.DeleteInput{
		ID:        r.PathValue("id"),
		Viewer:    viewer(r),
		Immediate: immediate,
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleUndelete handles POST /api/creatures/{id}/undelete — cancel a
// pending deletion.
func (h *Handlers) HandleUndelete(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Undelete(r.Context(), h.db, h.sched, ops.UndeleteInput{
		ID:     r.PathValue("id"),
		Viewer: viewer(r),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleDownload handles GET /api/creatures/{id}/download — the original
// save bytes.
func (h *Handlers) HandleDownload(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Download(r.Context(), h.db, h.m, ops.DownloadInput{
		ID:     r.PathValue("id"),
		Viewer: viewer(r),
	})
	if err != nil {
		renderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out.Raw)
}

// HandleMove handles POST /api/creatures/{id}/move — move to another box.
func (h *Handlers) HandleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Box string `json:"box"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}

	out, err := ops.Move(r.Context(), h.db, ops.MoveInput{
		ID:     r.PathValue("id"),
		BoxID:  req.Box,
		Viewer: viewer(r),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleAddNote handles POST /api/creatures/{id}/notes.
func (h *Handlers) HandleAddNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text       string `json:"text"`
		Visibility string `json:"visibility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}

	out, err := ops.AddNote(r.Context(), h.db, ops.AddNoteInput{
		CreatureID: r.PathValue("id"),
		Text:       req.Text,
		Visibility: req.Visibility,
		Viewer:     viewer(r),
	})
	if err != nil {
		renderError(w, err)
		return
	}

	out.Note.TextHTML = renderMarkdown(out.Note.Text)
	renderJSON(w, http.StatusCreated, out)
}

// HandleEditNote handles PATCH /api/creatures/{id}/notes/{noteId}.
func (h *Handlers) HandleEditNote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text       *string `json:"text"`
		Visibility *string `json:"visibility"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}

	out, err := ops.EditNote(r.Context(), h.db, ops.EditNoteInput{
		CreatureID: r.PathValue("id"),
		NoteID:     r.PathValue("noteId"),
		Text:       req.Text,
		Visibility: req.Visibility,
		Viewer:     viewer(r),
	})
	if err != nil {
		renderError(w, err)
		return
	}

	out.Note.TextHTML = renderMarkdown(out.Note.Text)
	renderJSON(w, http.StatusOK, out)
}

// HandleDeleteNote handles DELETE /api/creatures/{id}/notes/{noteId}.
func (h *Handlers) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	out, err := ops.DeleteNote(r.Context(), h.db, ops.DeleteNoteInput{
		CreatureID: r.PathValue("id"),
		NoteID:     r.PathValue("noteId"),
		Viewer:     viewer(r),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleCreateBox handles POST /api/boxes.
func (h *Handlers) HandleCreateBox(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, errors.NewInvalidRequest("invalid JSON body"))
		return
	}

	out, err := ops.CreateBox(r.Context(), h.db, ops.CreateBoxInput{
		Name:   req.Name,
		Viewer: viewer(r),
	})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, out)
}

// HandleMyBoxes handles GET /api/boxes.
func (h *Handlers) HandleMyBoxes(w http.ResponseWriter, r *http.Request) {
	out, err := ops.MyBoxes(r.Context(), h.db, ops.MyBoxesInput{Viewer: viewer(r)})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandlePending handles GET /api/admin/pending — the operator view of
// creatures awaiting purge.
func (h *Handlers) HandlePending(w http.ResponseWriter, r *http.Request) {
	out, err := ops.Pending(r.Context(), h.db, ops.PendingInput{Viewer: viewer(r)})
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleHealth handles GET /healthz.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		renderError(w, errors.NewInternal(err))
		return
	}
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
