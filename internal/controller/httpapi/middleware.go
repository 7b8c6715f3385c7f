package httpapi

import (
	"context"
	"net/http"

	"github.com/Freeeeeet/tutorhub/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type contextKey string

const actorKey contextKey = "actor"

// withActor достаёт идентичность из заголовка внешнего identity-слоя
// и собирает Actor для авторизации. Аутентификацию ядро не выполняет.
func (h *Handler) withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.Header.Get("X-User-Id"))
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing or invalid X-User-Id header"})
			return
		}

		actor, err := h.users.Actor(r.Context(), userID)
		if err != nil {
			h.logger.Warn("Failed to resolve actor", zap.String("user_id", userID.String()), zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unknown user"})
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(r *http.Request) service.Actor {
	actor, _ := r.Context().Value(actorKey).(service.Actor)
	return actor
}
