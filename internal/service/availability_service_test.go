package service

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/pkg/export"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

type staticEndpoints map[string]string

func (e staticEndpoints) Endpoint(resource string) (string, error) {
	if path, ok := e[resource]; ok {
		return path, nil
	}
	return "", appErrors.ErrEndpointNotConfigured
}

var testEndpoints = staticEndpoints{ResourceAvailability: DefaultAvailabilityPath, ResourceBlackout: DefaultBlackoutPath}

func newTestAvailabilityService(api BackendAPI, endpoints EndpointResolver) *AvailabilityService {
	svc := NewAvailabilityService(api, endpoints, nil, nil, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestAvailabilitySummary(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, DefaultAvailabilityPath, []map[string]any{
			{"id": 1, "dia_semana": 0, "hora_inicio": "14:00", "hora_fin": "16:30"},
			{"id": 2, "dia_semana": 0, "hora_inicio": "08:00:00", "hora_fin": "09:00:00", "activo": false},
			{"id": 3, "dia_semana": 9, "hora_inicio": "08:00", "hora_fin": "09:00"},
		}).
		on(http.MethodGet, DefaultBlackoutPath, []map[string]any{
			{"id": 5, "inicio": "2026-10-25T10:00:00Z", "fin": "2026-10-25T12:00:00Z"},
			{"id": 4, "inicio": "2026-10-10T10:00:00Z", "fin": "2026-10-11T10:00:00Z"},
			{"id": 6, "inicio": "2026-10-20T10:00:00Z", "fin": "2026-10-21T10:00:00Z"},
		})
	svc := newTestAvailabilityService(api, testEndpoints)

	summary, err := svc.Summary(context.Background(), tutorCaller(9))
	require.NoError(t, err)
	require.Len(t, summary.Week, 7)
	require.Len(t, summary.Week[0].Slots, 2)
	assert.Equal(t, models.ID(2), summary.Week[0].Slots[0].ID)
	assert.InDelta(t, 2.5, summary.TotalHours, 0.001)
	assert.Equal(t, 3, summary.SlotCount)
	assert.Equal(t, models.ID(4), summary.Blocks[0].ID)
	require.NotNil(t, summary.NextBlock)
	assert.Equal(t, models.ID(6), summary.NextBlock.ID)
	assert.Equal(t, DefaultBlackoutPath, summary.Endpoints.Blackout)
}

func TestAvailabilityUnresolvedEndpoint(t *testing.T) {
	svc := newTestAvailabilityService(newFakeAPI(), staticEndpoints{ResourceAvailability: DefaultAvailabilityPath})
	_, err := svc.Summary(context.Background(), tutorCaller(9))
	assert.ErrorIs(t, err, appErrors.ErrEndpointNotConfigured)
}

func TestCreateSlotValidatesTimes(t *testing.T) {
	api := newFakeAPI().on(http.MethodPost, DefaultAvailabilityPath, map[string]any{"id": 11, "dia_semana": 2, "hora_inicio": "09:00", "hora_fin": "10:15"})
	svc := newTestAvailabilityService(api, testEndpoints)
	ctx := context.Background()
	day := 2

	_, err := svc.CreateSlot(ctx, studentCaller(3), dto.CreateSlotRequest{Day: &day, Start: "09:00", End: "10:00"})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.CreateSlot(ctx, tutorCaller(9), dto.CreateSlotRequest{Day: &day, Start: "10:00", End: "09:00"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.CreateSlot(ctx, tutorCaller(9), dto.CreateSlotRequest{Day: &day, Start: "9am", End: "10:00"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	bad := 7
	_, err = svc.CreateSlot(ctx, tutorCaller(9), dto.CreateSlotRequest{Day: &bad, Start: "09:00", End: "10:00"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	slot, err := svc.CreateSlot(ctx, tutorCaller(9), dto.CreateSlotRequest{Day: &day, Start: "9:00", End: "10:15:00"})
	require.NoError(t, err)
	assert.Equal(t, models.ID(11), slot.ID)
	assert.True(t, slot.Active)
	posts := api.callsTo(http.MethodPost, DefaultAvailabilityPath)
	require.Len(t, posts, 1)
	assert.Equal(t, map[string]any{"dia_semana": float64(2), "hora_inicio": "09:00", "hora_fin": "10:15", "activo": true}, posts[0].Body)
}

func TestCreateBlockAndDelete(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodPost, DefaultBlackoutPath, map[string]any{"id": 12, "inicio": "2026-11-01T08:00:00Z", "fin": "2026-11-01T12:00:00Z"}).
		on(http.MethodDelete, DefaultBlackoutPath+"12/", nil)
	svc := newTestAvailabilityService(api, testEndpoints)
	ctx := context.Background()

	_, err := svc.CreateBlock(ctx, tutorCaller(9), dto.CreateBlockRequest{Start: "2026-11-01T12:00:00Z", End: "2026-11-01T08:00:00Z"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	block, err := svc.CreateBlock(ctx, tutorCaller(9), dto.CreateBlockRequest{Start: "2026-11-01T08:00:00Z", End: "2026-11-01T12:00:00Z", Reason: " viaje "})
	require.NoError(t, err)
	assert.Equal(t, models.ID(12), block.ID)
	posts := api.callsTo(http.MethodPost, DefaultBlackoutPath)
	require.Len(t, posts, 1)
	assert.Equal(t, "viaje", posts[0].Body["motivo"])

	require.NoError(t, svc.DeleteBlock(ctx, tutorCaller(9), 12))
	assert.Len(t, api.callsTo(http.MethodDelete, DefaultBlackoutPath+"12/"), 1)
	assert.ErrorIs(t, svc.DeleteSlot(ctx, tutorCaller(9), 0), appErrors.ErrValidation)
}

func TestAvailabilityExportCSV(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, DefaultAvailabilityPath, []map[string]any{{"id": 1, "dia_semana": 1, "hora_inicio": "14:00", "hora_fin": "15:30"}}).
		on(http.MethodGet, DefaultBlackoutPath, []map[string]any{{"id": 4, "inicio": "2026-10-20T10:00:00Z", "fin": "2026-10-20T12:00:00Z", "motivo": "cita"}})
	svc := newTestAvailabilityService(api, testEndpoints)
	caller := tutorCaller(9)
	caller.User.FirstName = "Ana"

	data, filename, err := svc.Export(context.Background(), caller, export.FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "horario-20261019.csv", filename)
	body := string(data)
	assert.True(t, strings.Contains(body, "Martes,14:00,15:30,1.50,Sí"), body)
	assert.Contains(t, body, "Bloqueo,2026-10-20 10:00,2026-10-20 12:00,2.00,cita")
}
