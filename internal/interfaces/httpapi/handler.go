package httpapi

import (
	"context"
	"fmt"
	"io"
	"net/http"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"
	"github.com/pitchside/matchtracker/internal/domain/stream"
	"github.com/pitchside/matchtracker/internal/platform/logging"
	"github.com/pitchside/matchtracker/internal/usecase"
)

// StreamSource hands out live per-match delta subscriptions.
type StreamSource interface {
	Subscribe(matchID string) (<-chan stream.Delta, func())
}

type Handler struct {
	matchService       *usecase.MatchService
	assignmentService  *usecase.AssignmentService
	pendingService     *usecase.PendingQueueService
	recorderService    *usecase.RecorderService
	livenessService    *usecase.LivenessService
	replacementService *usecase.ReplacementService
	notifications      *usecase.NotificationService
	streams            StreamSource
	logger             *logging.Logger
	validator          *validator.Validate
}

func NewHandler(
	matchService *usecase.MatchService,
	assignmentService *usecase.AssignmentService,
	pendingService *usecase.PendingQueueService,
	recorderService *usecase.RecorderService,
	livenessService *usecase.LivenessService,
	replacementService *usecase.ReplacementService,
	notifications *usecase.NotificationService,
	streams StreamSource,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		matchService:       matchService,
		assignmentService:  assignmentService,
		pendingService:     pendingService,
		recorderService:    recorderService,
		livenessService:    livenessService,
		replacementService: replacementService,
		notifications:      notifications,
		streams:            streams,
		logger:             logger,
		validator:          validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func decodeJSON(body io.Reader, target any) error {
	decoder := sonic.ConfigDefault.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}
