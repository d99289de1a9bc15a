package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/pkg/logger"
)

const (
	reviewCreatePath   = "/resenas/crear/"
	reviewSentPath     = "/resenas/enviadas/"
	reviewReceivedPath = "/resenas/recibidas/"

	// ReviewSubmittedMessage confirms a posted review.
	ReviewSubmittedMessage = "¡Reseña enviada! Gracias por calificar."
)

var reviewFieldMessages = map[string]string{
	"Booking": "Completa reserva y puntuación",
	"Score":   "La puntuación debe estar entre 1 y 5.",
	"Comment": "El comentario es demasiado largo.",
}

// ReviewService posts and lists reviews of finished bookings.
type ReviewService struct {
	api       BackendAPI
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReviewService constructs a ReviewService.
func NewReviewService(api BackendAPI, validate *validator.Validate, logger *zap.Logger) *ReviewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewService{api: api, validator: newValidator(validate), logger: logger}
}

// Create rates a booking.
func (s *ReviewService) Create(ctx context.Context, caller Caller, req dto.CreateReviewRequest) (*models.Review, error) {
	req.Comment = strings.TrimSpace(req.Comment)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, firstFieldMessage(err, reviewFieldMessages, "invalid review payload"))
	}
	body := map[string]any{"reserva": req.Booking, "puntuacion": req.Score, "comentario": req.Comment}
	var created models.Review
	if err := s.api.Post(ctx, caller.Creds, reviewCreatePath, body, &created); err != nil {
		return nil, backend.ToAppError(err)
	}
	if created.Booking == 0 {
		created.Booking, created.Score, created.Comment = req.Booking, req.Score, req.Comment
	}
	logger.FromContext(ctx, s.logger).Info("review submitted", zap.Int64("booking_id", int64(req.Booking)), zap.Int("score", req.Score))
	return &created, nil
}

// Sent lists reviews written by the caller.
func (s *ReviewService) Sent(ctx context.Context, caller Caller) ([]models.Review, *models.Pagination, error) {
	return s.list(ctx, caller, reviewSentPath)
}

// Received lists reviews about the caller.
func (s *ReviewService) Received(ctx context.Context, caller Caller) ([]models.Review, *models.Pagination, error) {
	return s.list(ctx, caller, reviewReceivedPath)
}

func (s *ReviewService) list(ctx context.Context, caller Caller, path string) ([]models.Review, *models.Pagination, error) {
	reviews, page, err := listFrom[models.Review](ctx, s.api, caller.Creds, path, nil)
	if err != nil {
		return nil, nil, backend.ToAppError(err)
	}
	return reviews, page, nil
}
