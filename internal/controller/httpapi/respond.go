package httpapi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Freeeeeet/tutorhub/internal/service"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errBadID = fmt.Errorf("%w: malformed id in path", service.ErrValidation)

type errorResponse struct {
	Error string `json:"error"`
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", service.ErrValidation, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError маппит таксономию ошибок ядра в HTTP-коды:
// 403 — не тот актор, 409 — не тот статус или проигранная гонка, 422 — плохие данные
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var status int

	switch {
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrStaleState),
		errors.Is(err, service.ErrPaymentAlreadyActive),
		errors.Is(err, service.ErrReschedulePending):
		status = http.StatusConflict
	case errors.Is(err, service.ErrValidation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrPaymentGateway):
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
		logger.Error("Unhandled error", zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}
