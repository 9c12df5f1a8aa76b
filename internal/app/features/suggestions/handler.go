// Package suggestions exposes the friend-suggestion generator and its
// advisory results over HTTP.
package suggestions

import (
	"net/http"

	suggestionstore "github.com/dalemusser/clubhub/internal/app/store/suggestions"
	"github.com/dalemusser/clubhub/internal/app/system/apperr"
	"github.com/dalemusser/clubhub/internal/app/system/auth"
	"github.com/dalemusser/clubhub/internal/app/system/observe"
	"github.com/dalemusser/clubhub/internal/app/system/timeouts"
	"github.com/dalemusser/clubhub/internal/app/system/webutil"
	"go.uber.org/zap"
)

// Handler holds the suggestion feature's dependencies.
type Handler struct {
	Suggestions *suggestionstore.Store
	Log         *zap.Logger
}

// NewHandler constructs a suggestions Handler.
func NewHandler(suggestions *suggestionstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Suggestions: suggestions, Log: logger}
}

// HandleGenerate handles POST /suggestions/generate. The scan replaces
// the caller's stored batch and returns the fresh one.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Batch(), h.Log, "suggestion generate")
	defer cancel()

	batch, err := h.Suggestions.Generate(ctx, id.UserID)
	observe.Mutation("suggestion.generate", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, batch)
}

// ServeList handles GET /suggestions.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "suggestion list")
	defer cancel()

	batch, err := h.Suggestions.ListForUser(ctx, id.UserID)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, batch)
}

// HandleDismiss handles DELETE /suggestions/{userID}. {userID} is the
// suggested counterpart, not the suggestion document id.
func (h *Handler) HandleDismiss(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.CurrentIdentity(r)
	suggestedID, err := webutil.PathID(r, "userID")
	if err != nil {
		apperr.WriteError(w, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "suggestion dismiss")
	defer cancel()

	err = h.Suggestions.Dismiss(ctx, id.UserID, suggestedID)
	observe.Mutation("suggestion.dismiss", err)
	if err != nil {
		apperr.WriteError(w, err)
		return
	}
	apperr.WriteJSON(w, http.StatusOK, nil)
}
