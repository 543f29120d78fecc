package api

import (
	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"pm-tracker-backend/internal/pm"
	"pm-tracker-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	svc       *pm.Service
	store     store.Store
	webpush   *webpush.Options
	log       *zap.Logger
	maxUpload int64
}

// NewHandler creates a new API handler. maxUploadMB caps the size of
// spreadsheet uploads.
func NewHandler(svc *pm.Service, s store.Store, webpushOptions *webpush.Options, maxUploadMB int, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		svc:       svc,
		store:     s,
		webpush:   webpushOptions,
		log:       log,
		maxUpload: int64(maxUploadMB) << 20,
	}
}
