package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/pkg/logger"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

const (
	bookingRequestsPath = "/crud/solicitudes-reserva/"

	// BookingSubmittedMessage confirms a created booking request.
	BookingSubmittedMessage = "Solicitud enviada. El tutor será notificado."
	bookingMissingFields    = "Completa fecha y modalidad"
	existingRequestNotice   = "Ya existe una solicitud %s para este curso."
)

var bookingFieldMessages = map[string]string{
	"ProposedDate": "La fecha propuesta debe tener el formato AAAA-MM-DD.",
	"Modality":     "Selecciona una modalidad válida.",
	"DurationMin":  "La duración mínima es de 15 minutos.",
	"Message":      "El mensaje es demasiado largo.",
}

// BookingService drives the booking request form.
type BookingService struct {
	api       BackendAPI
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBookingService constructs a BookingService.
func NewBookingService(api BackendAPI, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{api: api, validator: newValidator(validate), logger: logger}
}

// Requests lists the booking requests that belong to the caller: as tutor
// those addressed to them, as student those they sent.
func (s *BookingService) Requests(ctx context.Context, caller Caller, status models.RequestStatus) ([]models.BookingRequest, error) {
	all, err := s.allRequests(ctx, caller)
	if err != nil {
		return nil, backend.ToAppError(err)
	}
	status = status.Normalize()
	mine := make([]models.BookingRequest, 0, len(all))
	for _, r := range all {
		if !ownsRequest(caller, r) {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		mine = append(mine, r)
	}
	return mine, nil
}

func (s *BookingService) allRequests(ctx context.Context, caller Caller) ([]models.BookingRequest, error) {
	requests, _, err := listFrom[models.BookingRequest](ctx, s.api, caller.Creds, bookingRequestsPath, nil)
	return requests, err
}

func ownsRequest(caller Caller, r models.BookingRequest) bool {
	switch {
	case caller.User.IsTutor():
		return r.TutorID() == caller.ID()
	case caller.User.IsStudent():
		return r.Student.ID == caller.ID()
	default:
		return false
	}
}

// Status reports whether the caller already holds an active request for the
// course and which modalities the form may offer.
func (s *BookingService) Status(ctx context.Context, caller Caller, courseID models.ID) (*dto.BookingStatus, error) {
	if courseID <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid course id")
	}
	status := &dto.BookingStatus{CourseID: courseID, ModalityOptions: models.ModalityOptions("")}

	var course models.Course
	if err := s.api.Get(ctx, caller.Creds, idPath(coursesPath, courseID), nil, &course); err == nil {
		status.ModalityOptions = models.ModalityOptions(course.Modality)
	}

	if active, ok := s.activeRequest(ctx, caller, courseID); ok {
		status.HasActive = true
		status.Status = active.Status
		status.Notice = fmt.Sprintf(existingRequestNotice, active.Status)
	}
	return status, nil
}

// activeRequest looks for an open request. A listing failure counts as none,
// so the backend stays the final judge of duplicates.
func (s *BookingService) activeRequest(ctx context.Context, caller Caller, courseID models.ID) (models.BookingRequest, bool) {
	requests, err := s.allRequests(ctx, caller)
	if err != nil {
		logger.FromContext(ctx, s.logger).Warn("could not list booking requests for duplicate check", zap.Error(err))
		return models.BookingRequest{}, false
	}
	return models.FindActiveRequest(requests, caller.ID(), courseID)
}

// Submit validates and posts a booking request.
func (s *BookingService) Submit(ctx context.Context, caller Caller, req dto.SubmitBookingRequest) (*dto.BookingSubmitted, error) {
	req.ProposedDate = strings.TrimSpace(req.ProposedDate)
	req.Modality = string(models.Modality(req.Modality).Normalize())
	req.Message = strings.TrimSpace(req.Message)

	if req.ProposedDate == "" || req.Modality == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, bookingMissingFields)
	}
	if req.Course <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid course id")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, firstFieldMessage(err, bookingFieldMessages, "invalid booking payload"))
	}

	if _, exists := s.activeRequest(ctx, caller, req.Course); exists {
		return nil, appErrors.ErrActiveRequestExists
	}

	payload := map[string]any{
		"curso":           req.Course,
		"fecha_propuesta": req.ProposedDate,
		"modalidad":       req.Modality,
	}
	if req.DurationMin > 0 {
		payload["duracion"] = req.DurationMin
	}
	if req.Message != "" {
		payload["mensaje"] = req.Message
	}

	var created models.BookingRequest
	if err := s.api.Post(ctx, caller.Creds, bookingRequestsPath, payload, &created); err != nil {
		return nil, backend.ToAppError(err)
	}
	logger.FromContext(ctx, s.logger).Info("booking request submitted",
		zap.Int64("course_id", int64(req.Course)),
		zap.Int64("student_id", int64(caller.ID())),
		zap.Int64("request_id", int64(created.ID)))

	result := &dto.BookingSubmitted{Message: BookingSubmittedMessage}
	if created.ID != 0 {
		result.Request = &created
	}
	return result, nil
}

// SetStatus lets the tutor accept, reject or finish a request, and the
// student cancel one, via PATCH on the request.
func (s *BookingService) SetStatus(ctx context.Context, caller Caller, id models.ID, next models.RequestStatus) (*models.BookingRequest, error) {
	next = next.Normalize()
	switch next {
	case models.RequestAccepted, models.RequestRejected, models.RequestFinished:
		if !caller.User.IsTutor() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "only the tutor can change this request")
		}
	case models.RequestCancelled:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid request status")
	}

	var current models.BookingRequest
	if err := s.api.Get(ctx, caller.Creds, idPath(bookingRequestsPath, id), nil, &current); err != nil {
		return nil, backend.ToAppError(err)
	}
	if !ownsRequest(caller, current) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "request does not belong to you")
	}
	if current.Status.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("request is already %s", current.Status))
	}

	var updated models.BookingRequest
	body := map[string]any{"estado": next}
	if err := s.api.Patch(ctx, caller.Creds, idPath(bookingRequestsPath, id), body, &updated); err != nil {
		return nil, backend.ToAppError(err)
	}
	return &updated, nil
}
