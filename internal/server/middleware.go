package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/matchday/internal/match"
	"github.com/playperu/matchday/internal/matchday"
)

type ctxKey int

const ctxKeyController ctxKey = iota

// matchMiddleware resolves {matchID} to its live controller.
func matchMiddleware(logger *slog.Logger, matches *match.Registry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "matchID")
			c, err := matches.Get(r.Context(), id)
			if errors.Is(err, matchday.ErrNotFound) {
				writeError(w, http.StatusNotFound, "match not found")
				return
			}
			if err != nil {
				writeFailure(w, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyController, c)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func controller(r *http.Request) *match.Controller {
	return r.Context().Value(ctxKeyController).(*match.Controller)
}
