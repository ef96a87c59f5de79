package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/changeorders/internal/changeorder"
	"github.com/JonMunkholm/changeorders/internal/fieldstore"
	"github.com/JonMunkholm/changeorders/internal/host"
	"github.com/JonMunkholm/changeorders/internal/logging"
	"github.com/JonMunkholm/changeorders/internal/web/views"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// errFieldNotFound is returned by the field API for ids never saved.
var errFieldNotFound = errors.New("field not found")

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"sessions": s.sessions.Len(),
	})
}

// handleIndex lists the stored fields.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	fields, err := s.store.List(ctx)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("load field list: %w", err))
		return
	}

	summaries := make([]views.FieldSummary, len(fields))
	for i, f := range fields {
		summaries[i] = views.FieldSummary{ID: f.ID, Bytes: f.Bytes, UpdatedAt: f.UpdatedAt}
	}
	s.renderPage(w, r, "Change order fields", views.FieldIndex(summaries))
}

// handleOpenByQuery redirects the index page's open form to the field route.
func (s *Server) handleOpenByQuery(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if err := fieldstore.ValidateFieldID(id); err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, "/fields/"+url.PathEscape(id), http.StatusSeeOther)
}

// handleOpenField starts an editor session on a field and redirects to it.
func (s *Server) handleOpenField(w http.ResponseWriter, r *http.Request) {
	fieldID, err := url.PathUnescape(chi.URLParam(r, "fieldID"))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", fieldstore.ErrInvalidFieldID, err))
		return
	}

	sess, err := s.sessions.Open(r.Context(), fieldID, newHTMLSurface())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	http.Redirect(w, r, sessionPath(sess), http.StatusSeeOther)
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	sess, surf, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.renderEditor(w, r, sess, surf)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	s.edit(w, r, "add", func(surf *htmlSurface) error {
		return surf.clickAdd()
	})
}

func (s *Server) handleAmount(w http.ResponseWriter, r *http.Request) {
	rowID := chi.URLParam(r, "rowID")
	amount := r.PostFormValue("amount")
	s.edit(w, r, "amount", func(surf *htmlSurface) error {
		return surf.typeAmount(rowID, amount)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	rowID := chi.URLParam(r, "rowID")
	n, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("status")))
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: status %q", errInvalidInput, r.PostFormValue("status")))
		return
	}
	s.edit(w, r, "status", func(surf *htmlSurface) error {
		return surf.selectStatus(rowID, changeorder.Status(n))
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	rowID := chi.URLParam(r, "rowID")
	s.edit(w, r, "delete", func(surf *htmlSurface) error {
		return surf.clickDelete(rowID)
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, surf, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sess.Refresh(); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.afterEdit(w, r, sess, surf)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	sess, surf, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sess.Reload(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.afterEdit(w, r, sess, surf)
}

// handleCloseSession tears a session down. DELETE answers 204; the page's
// close form is sent back to the index.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.respondError(w, r, host.ErrSessionNotFound)
		return
	}
	if err := s.sessions.Close(id); err != nil {
		s.respondError(w, r, err)
		return
	}
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handleOutput returns the session's output keyed by field name.
func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	sess, _, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var out map[string]string
	if err := sess.Do("output", func(c *changeorder.Controller) error {
		out = c.Outputs()
		return nil
	}); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListFields(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	fields, err := s.store.List(ctx)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("load field list: %w", err))
		return
	}
	if fields == nil {
		fields = []fieldstore.Field{}
	}
	writeJSON(w, http.StatusOK, fields)
}

// handleFieldValue returns the persisted text of a field as stored.
func (s *Server) handleFieldValue(w http.ResponseWriter, r *http.Request) {
	fieldID, err := url.PathUnescape(chi.URLParam(r, "fieldID"))
	if err == nil {
		err = fieldstore.ValidateFieldID(fieldID)
	}
	if err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", fieldstore.ErrInvalidFieldID, err))
		return
	}

	ctx, cancel := s.storeContext(r.Context())
	defer cancel()

	text, found, err := s.store.Load(ctx, fieldID)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("load field: %w", err))
		return
	}
	if !found {
		s.respondError(w, r, errFieldNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

// edit runs one user action against the session's surface and answers with
// the updated editor.
func (s *Server) edit(w http.ResponseWriter, r *http.Request, op string, fn func(*htmlSurface) error) {
	sess, surf, err := s.session(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	err = sess.Do(op, func(*changeorder.Controller) error { return fn(surf) })
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Debug("edit applied",
		"op", op,
		"session_id", sess.ID.String(),
		"field_id", sess.FieldID,
	)
	s.afterEdit(w, r, sess, surf)
}

// afterEdit re-renders the panel for HTMX and redirects plain form posts.
func (s *Server) afterEdit(w http.ResponseWriter, r *http.Request, sess *host.Session, surf *htmlSurface) {
	if isHTMX(r) {
		s.renderEditor(w, r, sess, surf)
		return
	}
	http.Redirect(w, r, sessionPath(sess), http.StatusSeeOther)
}

// renderEditor re-syncs the rows from the records, then renders them.
func (s *Server) renderEditor(w http.ResponseWriter, r *http.Request, sess *host.Session, surf *htmlSurface) {
	var e views.Editor
	err := sess.Do("view", func(c *changeorder.Controller) error {
		if err := c.Refresh(); err != nil {
			return err
		}
		e = surf.view(sess.ID.String(), sess.FieldID)
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if ferr := sess.FlushErr(); ferr != nil {
		e.FlushError = MapError(ferr).Message
	}

	panel := views.EditorPanel(e)
	if isHTMX(r) {
		s.render(w, r, panel)
		return
	}
	s.renderPage(w, r, e.Title+" · "+e.FieldID, panel)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, title string, body templ.Component) {
	s.render(w, r, views.Page(title, body))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
	}
}

// session resolves the session named in the URL together with its surface.
func (s *Server) session(r *http.Request) (*host.Session, *htmlSurface, error) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		return nil, nil, host.ErrSessionNotFound
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, nil, err
	}
	surf, ok := sess.Surface().(*htmlSurface)
	if !ok {
		return nil, nil, fmt.Errorf("session %s is not served over http", id)
	}
	return sess, surf, nil
}

func (s *Server) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Store.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Store.OpTimeout)
}

func sessionPath(sess *host.Session) string {
	return "/sessions/" + sess.ID.String()
}
