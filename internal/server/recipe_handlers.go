package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/recipekit/internal/catalog"
	"github.com/leapstack-labs/recipekit/internal/recipe"
	"github.com/leapstack-labs/recipekit/pkg/core"
)

// recipeHandlers serves the stored recipe collection.
type recipeHandlers struct {
	store core.Store
	// changed runs after every successful write.
	changed func()
}

func (h *recipeHandlers) routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.put)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/lint", h.lint)
	r.Get("/{id}/runs", h.runs)
}

func (h *recipeHandlers) storeError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (h *recipeHandlers) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListRecipes(r.Context())
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *recipeHandlers) create(w http.ResponseWriter, r *http.Request) {
	rc, err := recipe.Decode(r.Body, recipe.FormatJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rc.ID = ""
	if err := h.store.SaveRecipe(r.Context(), rc); err != nil {
		h.storeError(w, err)
		return
	}
	h.changed()
	writeJSON(w, http.StatusCreated, rc)
}

func (h *recipeHandlers) get(w http.ResponseWriter, r *http.Request) {
	rc, err := h.store.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rc)
}

func (h *recipeHandlers) put(w http.ResponseWriter, r *http.Request) {
	rc, err := recipe.Decode(r.Body, recipe.FormatJSON)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rc.ID = chi.URLParam(r, "id")
	if err := h.store.SaveRecipe(r.Context(), rc); err != nil {
		h.storeError(w, err)
		return
	}
	h.changed()
	writeJSON(w, http.StatusOK, rc)
}

func (h *recipeHandlers) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteRecipe(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.storeError(w, err)
		return
	}
	h.changed()
	w.WriteHeader(http.StatusNoContent)
}

type lintResponse struct {
	Errors   []string       `json:"validation_errors"`
	Findings []core.Finding `json:"findings"`
	Levels   [][]string     `json:"levels,omitempty"`
}

func (h *recipeHandlers) lint(w http.ResponseWriter, r *http.Request) {
	rc, err := h.store.GetRecipe(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.storeError(w, err)
		return
	}
	resp := lintResponse{
		Errors:   recipe.Validate(rc.Nodes, rc.Edges),
		Findings: recipe.Lint(rc),
	}
	if resp.Errors == nil {
		resp.Errors = []string{}
	}
	if resp.Findings == nil {
		resp.Findings = []core.Finding{}
	}
	if levels, err := recipe.Plan(rc); err == nil {
		resp.Levels = levels
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *recipeHandlers) runs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	runs, err := h.store.ListCompileRuns(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		h.storeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func catalogHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, catalog.All())
}
