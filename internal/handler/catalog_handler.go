package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/middleware"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/internal/service"
	"github.com/noah-isme/myteacher-portal/pkg/response"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

type catalogService interface {
	Categories(ctx context.Context, q dto.CategoryQuery) ([]dto.CategoryCard, *models.Pagination, error)
	InvalidateCategories(ctx context.Context) error
	Category(ctx context.Context, id models.ID) (dto.CategoryDetail, error)
	Courses(ctx context.Context, creds backend.Credentials, q dto.CourseQuery) (*dto.CourseListing, error)
	TutorCourses(ctx context.Context, caller service.Caller) ([]dto.CourseCard, error)
	CreateCourse(ctx context.Context, caller service.Caller, req dto.CreateCourseRequest) (*models.Course, error)
}

// CatalogHandler serves categories and courses.
type CatalogHandler struct {
	service catalogService
}

// NewCatalogHandler constructs the handler.
func NewCatalogHandler(svc catalogService) *CatalogHandler {
	return &CatalogHandler{service: svc}
}

// Categories godoc
// @Summary List categories
// @Tags Catalog
// @Produce json
// @Param search query string false "Name filter"
// @Param page query int false "Backend page"
// @Success 200 {object} response.Envelope
// @Router /categories [get]
func (h *CatalogHandler) Categories(c *gin.Context) {
	q := dto.CategoryQuery{Search: c.Query("search")}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			fail(c, appErrors.Clone(appErrors.ErrValidation, "page must be a positive integer"))
			return
		}
		q.Page = page
	}
	cards, page, err := h.service.Categories(c.Request.Context(), q)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cards, page)
}

// InvalidateCategories godoc
// @Summary Drop cached category pages
// @Tags Catalog
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /categories/cache [delete]
func (h *CatalogHandler) InvalidateCategories(c *gin.Context) {
	if err := h.service.InvalidateCategories(c.Request.Context()); err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to invalidate category cache"))
		return
	}
	response.NoContent(c)
}

// Category godoc
// @Summary Category header
// @Tags Catalog
// @Produce json
// @Param id path int true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /categories/{id} [get]
func (h *CatalogHandler) Category(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.service.Category(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Courses godoc
// @Summary List courses
// @Description Filters by category, modality and city. A search term uses the backend search endpoint.
// @Tags Catalog
// @Produce json
// @Param categoria query int false "Category ID"
// @Param modalidad query string false "Modality"
// @Param ciudad query string false "City substring"
// @Param ciudades query string false "Comma separated cities"
// @Param modalidades query string false "Comma separated modalities"
// @Param search query string false "Search term"
// @Success 200 {object} response.Envelope
// @Router /courses [get]
func (h *CatalogHandler) Courses(c *gin.Context) {
	q := dto.CourseQuery{
		Modality:   c.Query("modalidad"),
		City:       c.Query("ciudad"),
		Search:     c.Query("search"),
		Cities:     splitList(c.Query("ciudades")),
		Modalities: splitList(c.Query("modalidades")),
	}
	if raw := c.Query("categoria"); raw != "" {
		id, err := models.ParseID(raw)
		if err != nil {
			fail(c, appErrors.Clone(appErrors.ErrValidation, "invalid categoria"))
			return
		}
		q.Category = id
	}
	listing, err := h.service.Courses(c.Request.Context(), middleware.CredentialsFromContext(c), q)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// TutorCourses godoc
// @Summary The tutor's own courses
// @Tags Tutor
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /tutor/courses [get]
func (h *CatalogHandler) TutorCourses(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	cards, err := h.service.TutorCourses(c.Request.Context(), caller)
	if err != nil {
		fail(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cards, nil)
}

// CreateCourse godoc
// @Summary Publish a course
// @Tags Tutor
// @Accept json
// @Produce json
// @Param payload body dto.CreateCourseRequest true "Course"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tutor/courses [post]
func (h *CatalogHandler) CreateCourse(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	var req dto.CreateCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	course, err := h.service.CreateCourse(c.Request.Context(), caller, req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, course)
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
