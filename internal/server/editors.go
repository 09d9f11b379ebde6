package server

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/leapstack-labs/recipekit/internal/editor"
	"github.com/leapstack-labs/recipekit/internal/server/notifier"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

const (
	cookieName     = "recipekit"
	editorIDKey    = "editor_id"
	maxAlertsQueue = 8
)

// workspace is one browser's editor plus the alerts waiting to be shown.
type workspace struct {
	id     string
	editor *editor.Editor

	// Guarded by workspaces.mu.
	lastSeen time.Time
	streams  int

	mu     sync.Mutex
	alerts []string
}

func (w *workspace) pushAlert(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.alerts) == maxAlertsQueue {
		w.alerts = w.alerts[1:]
	}
	w.alerts = append(w.alerts, msg)
}

func (w *workspace) takeAlerts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.alerts
	w.alerts = nil
	return out
}

// workspaces maps browser sessions to editors. Editors idle longer than
// idleTTL are evicted, and at most max are kept. Editors with an open
// update stream are never evicted.
type workspaces struct {
	mu       sync.Mutex
	byID     map[string]*workspace
	idleTTL  time.Duration
	max      int
	now      func() time.Time
	sessions sessions.Store
	notify   *notifier.Notifier
	metrics  *metrics
	logger   *slog.Logger

	compiler core.Compiler
	store    core.Store
	settings core.CompileSettings

	// recipes counts writes to the recipe store.
	recipes atomic.Int64
}

// get returns the workspace of the requesting browser, creating it and
// setting the session cookie when needed. It must run before the response
// body is written.
func (ws *workspaces) get(w http.ResponseWriter, r *http.Request) (*workspace, error) {
	sess, err := ws.sessions.Get(r, cookieName)
	if err != nil {
		// A cookie signed with an old secret yields a fresh session.
		ws.logger.Debug("discarding unreadable session", slog.String("error", err.Error()))
	}

	id, _ := sess.Values[editorIDKey].(string)
	if id == "" {
		id = uuid.NewString()
		sess.Values[editorIDKey] = id
		if err := sess.Save(r, w); err != nil {
			return nil, err
		}
	}
	return ws.lookup(id), nil
}

func (ws *workspaces) lookup(id string) *workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	now := ws.now()
	if w, ok := ws.byID[id]; ok {
		w.lastSeen = now
		return w
	}

	ws.evictLocked(now)

	w := &workspace{id: id, lastSeen: now}
	opts := editor.Options{
		Compiler: ws.compiler,
		Settings: ws.settings,
		Alerter:  editor.AlertFunc(w.pushAlert),
		OnChange: func(editor.Snapshot) { ws.notify.Publish(id) },
		Logger:   ws.logger.With(slog.String("editor", id)),
	}
	if ws.store != nil {
		opts.OnSave = func(ctx context.Context, r *core.Recipe) error {
			if err := ws.store.SaveRecipe(ctx, r); err != nil {
				return err
			}
			ws.recipesChanged()
			return nil
		}
	}
	w.editor = editor.New(opts, nil)

	ws.byID[id] = w
	ws.metrics.editors.Set(float64(len(ws.byID)))
	ws.logger.Debug("created editor session", slog.String("editor", id))
	return w
}

// evictLocked drops idle editors, then the least recently used ones until
// there is room for one more.
func (ws *workspaces) evictLocked(now time.Time) {
	var lru *workspace
	for id, w := range ws.byID {
		if w.streams > 0 {
			continue
		}
		if now.Sub(w.lastSeen) > ws.idleTTL {
			ws.removeLocked(id, "idle")
			continue
		}
		if lru == nil || w.lastSeen.Before(lru.lastSeen) {
			lru = w
		}
	}
	if len(ws.byID) >= ws.max && lru != nil {
		ws.removeLocked(lru.id, "capacity")
	}
}

func (ws *workspaces) removeLocked(id, reason string) {
	delete(ws.byID, id)
	ws.metrics.editors.Set(float64(len(ws.byID)))
	ws.logger.Debug("evicted editor session", slog.String("editor", id), slog.String("reason", reason))
}

// attach pins w while an update stream is open.
func (ws *workspaces) attach(w *workspace) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	w.streams++
}

func (ws *workspaces) detach(w *workspace) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	w.streams--
	w.lastSeen = ws.now()
}

// recipesChanged bumps the recipe revision and wakes every update stream.
func (ws *workspaces) recipesChanged() {
	ws.recipes.Add(1)
	ws.notify.Broadcast()
}

func (ws *workspaces) count() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.byID)
}
