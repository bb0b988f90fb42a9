package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ong-aas/claims-portal/internal/admin"
	"github.com/ong-aas/claims-portal/internal/claims"
	"github.com/ong-aas/claims-portal/internal/http/respond"
	"github.com/ong-aas/claims-portal/internal/storage"
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return false
	}
	return true
}

// writeServiceError maps domain and storage errors to responses. Anything unrecognised is
// logged and answered with fallback.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var verr *claims.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Fail(w, http.StatusBadRequest, verr.Key, verr.Message, nil)
	case errors.Is(err, storage.ErrConflict):
		respond.Fail(w, http.StatusConflict, "record.conflict", "record was changed by someone else; reload and retry", nil)
	case errors.Is(err, storage.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, admin.ErrInvalidPost), errors.Is(err, admin.ErrVersionRequired):
		respond.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		logger.Debug("request cancelled", zap.Error(err))
	default:
		logger.Error(fallback, zap.Error(err))
		respond.Error(w, http.StatusInternalServerError, fallback)
	}
}
