package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/pkg/export"
	"github.com/noah-isme/myteacher-portal/pkg/logger"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

// EndpointResolver yields the pinned backend path for a resource.
type EndpointResolver interface {
	Endpoint(resource string) (string, error)
}

// AvailabilityService manages a tutor's weekly slots and blackout intervals.
type AvailabilityService struct {
	api       BackendAPI
	endpoints EndpointResolver
	validator *validator.Validate
	renderer  *export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewAvailabilityService constructs an AvailabilityService.
func NewAvailabilityService(api BackendAPI, endpoints EndpointResolver, validate *validator.Validate, renderer *export.Renderer, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = export.NewRenderer()
	}
	return &AvailabilityService{
		api:       api,
		endpoints: endpoints,
		validator: newValidator(validate),
		renderer:  renderer,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *AvailabilityService) paths() (string, string, error) {
	slots, err := s.endpoints.Endpoint(ResourceAvailability)
	if err != nil {
		return "", "", err
	}
	blocks, err := s.endpoints.Endpoint(ResourceBlackout)
	if err != nil {
		return "", "", err
	}
	return slots, blocks, nil
}

// Summary loads slots and blocks in parallel and builds the weekly panel.
func (s *AvailabilityService) Summary(ctx context.Context, caller Caller) (*dto.AvailabilitySummary, error) {
	slotsPath, blocksPath, err := s.paths()
	if err != nil {
		return nil, err
	}

	var (
		slots  []models.AvailabilitySlot
		blocks []models.BlockedInterval
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		slots, _, err = listFrom[models.AvailabilitySlot](gctx, s.api, caller.Creds, slotsPath, nil)
		return err
	})
	g.Go(func() error {
		var err error
		blocks, _, err = listFrom[models.BlockedInterval](gctx, s.api, caller.Creds, blocksPath, nil)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, backend.ToAppError(err)
	}

	models.SortBlocks(blocks)
	summary := &dto.AvailabilitySummary{
		Week:       models.GroupByWeekday(slots),
		Blocks:     blocks,
		TotalHours: models.TotalWeeklyHours(slots),
		SlotCount:  len(slots),
		Endpoints:  dto.ResolvedEndpoints{Availability: slotsPath, Blackout: blocksPath},
	}
	if next, ok := models.NextBlock(blocks, s.now()); ok {
		summary.NextBlock = &next
	}
	return summary, nil
}

// CreateSlot adds a weekly slot.
func (s *AvailabilityService) CreateSlot(ctx context.Context, caller Caller, req dto.CreateSlotRequest) (*models.AvailabilitySlot, error) {
	if err := requireTutor(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "dia_semana must be between 0 and 6 and both times are required")
	}
	start, errStart := models.ParseClock(req.Start)
	end, errEnd := models.ParseClock(req.End)
	if errStart != nil || errEnd != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "times must use HH:MM")
	}
	if start >= end {
		return nil, appErrors.Clone(appErrors.ErrValidation, "hora_inicio must be before hora_fin")
	}
	path, err := s.endpoints.Endpoint(ResourceAvailability)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"dia_semana":  *req.Day,
		"hora_inicio": clock(start),
		"hora_fin":    clock(end),
		"activo":      true,
	}
	var created models.AvailabilitySlot
	if err := s.api.Post(ctx, caller.Creds, path, body, &created); err != nil {
		return nil, backend.ToAppError(err)
	}
	return &created, nil
}

// DeleteSlot removes a slot on the backend.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, caller Caller, id models.ID) error {
	return s.delete(ctx, caller, ResourceAvailability, id)
}

// CreateBlock adds a blackout interval.
func (s *AvailabilityService) CreateBlock(ctx context.Context, caller Caller, req dto.CreateBlockRequest) (*models.BlockedInterval, error) {
	if err := requireTutor(caller); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "inicio and fin are required")
	}
	start, errStart := models.ParseTimestamp(req.Start)
	end, errEnd := models.ParseTimestamp(req.End)
	if errStart != nil || errEnd != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "inicio and fin must be datetimes")
	}
	if !start.Before(end.Time) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "inicio must be before fin")
	}
	path, err := s.endpoints.Endpoint(ResourceBlackout)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"inicio": start.Format(time.RFC3339),
		"fin":    end.Format(time.RFC3339),
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		body["motivo"] = reason
	}
	var created models.BlockedInterval
	if err := s.api.Post(ctx, caller.Creds, path, body, &created); err != nil {
		return nil, backend.ToAppError(err)
	}
	return &created, nil
}

// DeleteBlock removes a blackout interval on the backend.
func (s *AvailabilityService) DeleteBlock(ctx context.Context, caller Caller, id models.ID) error {
	return s.delete(ctx, caller, ResourceBlackout, id)
}

func (s *AvailabilityService) delete(ctx context.Context, caller Caller, resource string, id models.ID) error {
	if err := requireTutor(caller); err != nil {
		return err
	}
	if id <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "invalid id")
	}
	path, err := s.endpoints.Endpoint(resource)
	if err != nil {
		return err
	}
	if err := s.api.Delete(ctx, caller.Creds, idPath(path, id)); err != nil {
		return backend.ToAppError(err)
	}
	logger.FromContext(ctx, s.logger).Info("availability entry deleted", zap.String("resource", resource), zap.Int64("id", int64(id)))
	return nil
}

// Export renders the weekly schedule as CSV or PDF.
func (s *AvailabilityService) Export(ctx context.Context, caller Caller, format export.Format) ([]byte, string, error) {
	summary, err := s.Summary(ctx, caller)
	if err != nil {
		return nil, "", err
	}
	table := export.Table{
		Title:   fmt.Sprintf("Horario semanal de %s", caller.User.DisplayName()),
		Columns: []string{"Día", "Inicio", "Fin", "Horas", "Activo"},
	}
	for _, day := range summary.Week {
		for _, slot := range day.Slots {
			active := "No"
			if slot.Active {
				active = "Sí"
			}
			table.Rows = append(table.Rows, []string{
				day.Label,
				slot.Start,
				slot.End,
				strconv.FormatFloat(float64(slot.Minutes())/60, 'f', 2, 64),
				active,
			})
		}
	}
	for _, block := range summary.Blocks {
		table.Rows = append(table.Rows, []string{
			"Bloqueo",
			block.Start.Format("2006-01-02 15:04"),
			block.End.Format("2006-01-02 15:04"),
			strconv.FormatFloat(block.End.Sub(block.Start.Time).Hours(), 'f', 2, 64),
			block.Reason,
		})
	}
	data, err := s.renderer.Render(table, format)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule")
	}
	filename := fmt.Sprintf("horario-%s.%s", s.now().Format("20060102"), format)
	return data, filename, nil
}

func requireTutor(caller Caller) error {
	if !caller.User.IsTutor() {
		return appErrors.Clone(appErrors.ErrForbidden, "only tutors manage availability")
	}
	return nil
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
