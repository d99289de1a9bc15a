package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/middleware"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/internal/service"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

type fakeDashboardSrv struct {
	resp   *dto.TutorDashboard
	hit    bool
	err    error
	caller service.Caller
}

func (f *fakeDashboardSrv) Tutor(_ context.Context, caller service.Caller) (*dto.TutorDashboard, bool, error) {
	f.caller = caller
	return f.resp, f.hit, f.err
}

func TestDashboardHandlerRequiresSession(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{})
	c, rec := newTestContext(http.MethodGet, "/tutor/dashboard", nil)

	handler.Tutor(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDashboardHandlerReportsCacheHit(t *testing.T) {
	srv := &fakeDashboardSrv{resp: &dto.TutorDashboard{ActiveCourses: 3, PendingRequests: 1}, hit: true}
	handler := NewDashboardHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/tutor/dashboard", nil)
	middleware.WithResponseMeta()(c)
	signIn(c, 9, models.RoleTutor)

	handler.Tutor(c)

	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env.Meta["cache_hit"])
	var summary dto.TutorDashboard
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 3, summary.ActiveCourses)
	assert.Equal(t, models.ID(9), srv.caller.ID())
}

func TestDashboardHandlerPropagatesForbidden(t *testing.T) {
	handler := NewDashboardHandler(&fakeDashboardSrv{err: appErrors.ErrForbidden})
	c, rec := newTestContext(http.MethodGet, "/tutor/dashboard", nil)
	signIn(c, 4, models.RoleStudent)

	handler.Tutor(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeEnvelope(t, rec).Error.Code)
}
