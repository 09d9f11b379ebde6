package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/recipekit/internal/catalog"
	"github.com/leapstack-labs/recipekit/internal/editor"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// editorHandlers serves /api/editor for the requesting browser's editor.
type editorHandlers struct {
	ws      *workspaces
	store   core.Store
	metrics *metrics
	logger  *slog.Logger
}

func (h *editorHandlers) routes(r chi.Router) {
	r.Get("/", h.snapshot)
	r.Get("/updates", h.updates)
	r.Put("/meta", h.meta)
	r.Put("/viewport", h.viewport)
	r.Put("/settings", h.settings)
	r.Post("/drop", h.drop)
	r.Post("/connect", h.connect)
	r.Patch("/nodes/{id}", h.updateNode)
	r.Delete("/nodes/{id}", h.removeNode)
	r.Delete("/edges/{id}", h.removeEdge)
	r.Put("/selection", h.selection)
	r.Get("/validate", h.validate)
	r.Post("/compile", h.compile)
	r.Post("/clear", h.clear)
	r.Post("/save", h.save)
	r.Post("/load/{id}", h.load)
}

// withEditor resolves the browser's workspace before the handler writes.
func (h *editorHandlers) withEditor(w http.ResponseWriter, r *http.Request) (*workspace, bool) {
	ws, err := h.ws.get(w, r)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "session: "+err.Error())
		return nil, false
	}
	return ws, true
}

func (h *editorHandlers) snapshot(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, ws.editor.Snapshot())
}

// updates streams the editor snapshot as datastar signals on every change,
// along with the recipe store revision so front-ends can refresh listings.
// Pending alerts are shown with a browser alert.
func (h *editorHandlers) updates(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}

	h.ws.attach(ws)
	defer h.ws.detach(ws)
	pings := h.ws.notify.Subscribe(ws.id)
	defer h.ws.notify.Unsubscribe(ws.id, pings)
	h.metrics.streams.Inc()
	defer h.metrics.streams.Dec()

	sse := datastar.NewSSE(w, r)
	send := func() {
		if err := sse.MarshalAndPatchSignals(map[string]any{
			"editor":          ws.editor.Snapshot(),
			"recipesRevision": h.ws.recipes.Load(),
		}); err != nil {
			_ = sse.ConsoleError(err)
			return
		}
		for _, msg := range ws.takeAlerts() {
			quoted, _ := json.Marshal(msg)
			_ = sse.ExecuteScript("alert(" + string(quoted) + ")")
		}
	}

	send()
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-pings:
			send()
		}
	}
}

type metaRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (h *editorHandlers) meta(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	var req metaRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Name != nil {
		ws.editor.SetName(*req.Name)
	}
	if req.Description != nil {
		ws.editor.SetDescription(*req.Description)
	}
	writeJSON(w, http.StatusOK, ws.editor.Snapshot())
}

func (h *editorHandlers) viewport(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	var v core.Viewport
	if err := decodeJSON(r, &v); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ws.editor.SetViewport(v)
	w.WriteHeader(http.StatusNoContent)
}

func (h *editorHandlers) settings(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	var s core.CompileSettings
	if err := decodeJSON(r, &s); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ws.editor.SetSettings(s); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ws.editor.Settings())
}

// dropRequest is the drag payload plus the screen position of the drop.
type dropRequest struct {
	Type string  `json:"type"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

func (h *editorHandlers) drop(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	var req dropRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	node, err := ws.editor.Drop(req.Type, core.Position{X: req.X, Y: req.Y})
	switch {
	case errors.Is(err, editor.ErrUnknownNodeType):
		h.metrics.drops.WithLabelValues("unknown_type").Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, editor.ErrViewNotReady):
		h.metrics.drops.WithLabelValues("view_not_ready").Inc()
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		h.metrics.drops.WithLabelValues("placed").Inc()
		writeJSON(w, http.StatusCreated, node)
	}
}

func (h *editorHandlers) connect(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	var c core.Connection
	if err := decodeJSON(r, &c); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, ws.editor.Connect(c))
}

// nodeUpdate is a patch plus an optional move.
type nodeUpdate struct {
	editor.NodePatch
	Position *core.Position `json:"position,omitempty"`
}

func (h *editorHandlers) updateNode(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	var req nodeUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Config != nil {
		n, found := ws.editor.Recipe().NodeByID(id)
		if found {
			if _, err := catalog.DecodeConfig(n.Type, req.Config); err != nil {
				writeError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
		}
	}

	err := ws.editor.UpdateNode(id, req.NodePatch)
	if err == nil && req.Position != nil {
		err = ws.editor.MoveNode(id, *req.Position)
	}
	if errors.Is(err, editor.ErrNodeNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	n, _ := ws.editor.Recipe().NodeByID(id)
	writeJSON(w, http.StatusOK, n)
}

func (h *editorHandlers) removeNode(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	if ws.editor.RemoveNodes(chi.URLParam(r, "id")) == 0 {
		writeError(w, http.StatusNotFound, editor.ErrNodeNotFound.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *editorHandlers) removeEdge(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	if ws.editor.RemoveEdges(chi.URLParam(r, "id")) == 0 {
		writeError(w, http.StatusNotFound, "edge not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectionRequest struct {
	NodeID string `json:"node_id"`
}

func (h *editorHandlers) selection(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	var req selectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.NodeID == "" {
		ws.editor.ClearSelection()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := ws.editor.Select(req.NodeID); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type validateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

func (h *editorHandlers) validate(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	errs := ws.editor.Validate()
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: len(errs) == 0, Errors: errs})
}

func (h *editorHandlers) compile(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}

	res, err := ws.editor.Compile(r.Context())
	var verr *editor.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "recipe is invalid", Errors: verr.Errors})
	case errors.Is(err, editor.ErrCompileInProgress), errors.Is(err, editor.ErrCompileSuperseded):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, editor.ErrNoCompiler):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Warn("compile failed", slog.String("editor", ws.id), slog.String("error", err.Error()))
		msg := ws.editor.Snapshot().LastError
		if msg == "" {
			msg = err.Error()
		}
		writeError(w, http.StatusBadGateway, "Compilation failed: "+msg)
	}
}

func (h *editorHandlers) clear(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	ws.editor.Clear()
	writeJSON(w, http.StatusOK, ws.editor.Snapshot())
}

func (h *editorHandlers) save(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	saved, err := ws.editor.Save(r.Context())
	if errors.Is(err, editor.ErrNoSaveHook) {
		writeError(w, http.StatusServiceUnavailable, "no recipe store configured")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *editorHandlers) load(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.withEditor(w, r)
	if !ok {
		return
	}
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "no recipe store configured")
		return
	}
	rc, err := h.store.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	ws.editor.Reset(rc)
	writeJSON(w, http.StatusOK, ws.editor.Snapshot())
}
