package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

type memoryCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{items: make(map[string][]byte)}
}

func (m *memoryCacheRepo) Get(_ context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.items[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(_ context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func TestCategoriesAreCachedAndInvalidated(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, categoriesPath, map[string]any{
		"count":   2,
		"results": []map[string]any{{"id_categoria": 1, "nombre": "Matemáticas"}, {"id": 2, "nombre": "Idiomas"}},
	})
	metrics := NewMetricsService()
	cache := NewCacheService(newMemoryCacheRepo(), metrics, time.Minute, nil, true)
	svc := NewCatalogService(api, cache, nil, nil, CatalogConfig{})
	ctx := context.Background()

	cards, page, err := svc.Categories(ctx, dto.CategoryQuery{})
	require.NoError(t, err)
	require.Len(t, cards, 2)
	assert.Equal(t, "/categoria/2", cards[1].Link)
	require.NotNil(t, page)

	_, _, err = svc.Categories(ctx, dto.CategoryQuery{})
	require.NoError(t, err)
	assert.Len(t, api.callsTo(http.MethodGet, categoriesPath), 1)

	require.NoError(t, svc.InvalidateCategories(ctx))
	_, _, err = svc.Categories(ctx, dto.CategoryQuery{})
	require.NoError(t, err)
	assert.Len(t, api.callsTo(http.MethodGet, categoriesPath), 2)
}

func TestCategoryFallsBackToPlaceholder(t *testing.T) {
	svc := NewCatalogService(newFakeAPI(), nil, nil, nil, CatalogConfig{})
	detail, err := svc.Category(context.Background(), 12)
	require.NoError(t, err)
	assert.True(t, detail.Placeholder)
	assert.Equal(t, "Categoría 12", detail.Name)

	_, err = svc.Category(context.Background(), 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestCoursesResolveTutorsAndFacets(t *testing.T) {
	api := newFakeAPI().
		on(http.MethodGet, coursesPath, []map[string]any{
			{"id_curso": 1, "nombre": "Álgebra", "modalidad": "Ambas", "ciudad": "Medellín", "precio": "25000", "tutor": 9, "categoria": 3},
			{"id_curso": 2, "nombre": "Cálculo", "modalidad": "virtual", "tutor": 10, "categoria": 3},
			{"id_curso": 3, "nombre": "Inglés", "modalidad": "presencial", "categoria": 4},
		}).
		on(http.MethodGet, usersPath+"9/", map[string]any{"id": 9, "username": "profe_ana", "calificacion_promedio": "4.5"}).
		fail(http.MethodGet, usersPath+"10/", http.StatusNotFound, "Not found.").
		on(http.MethodGet, categoriesPath+"3/", map[string]any{"id_categoria": 3, "nombre": "Matemáticas"})
	svc := NewCatalogService(api, nil, nil, nil, CatalogConfig{ProfileConcurrency: 2})

	listing, err := svc.Courses(context.Background(), nil, dto.CourseQuery{Category: 3})
	require.NoError(t, err)
	require.Len(t, listing.Courses, 2)
	assert.Equal(t, 2, listing.Total)

	first := listing.Courses[0]
	assert.Equal(t, "profe_ana", first.TutorName)
	require.NotNil(t, first.TutorRating)
	assert.InDelta(t, 4.5, *first.TutorRating, 0.001)
	assert.Equal(t, 25000.0, first.Price)
	assert.Equal(t, []models.Modality{models.ModalityInPerson, models.ModalityVirtual}, first.ModalityOptions)
	assert.Equal(t, "/categoria/3?curso=1", first.Link)
	assert.Equal(t, "Tutor 10", listing.Courses[1].TutorName)

	assert.Equal(t, []string{"Medellín"}, listing.Cities)
	require.NotNil(t, listing.Category)
	assert.Equal(t, "Matemáticas", listing.Category.Name)
}

func TestCoursesFallBackToFullListing(t *testing.T) {
	query := url.Values{}
	query.Set("modalidad", "virtual")
	api := newFakeAPI().
		onQuery(http.MethodGet, coursesPath, query, []map[string]any{
			{"id_curso": 1, "modalidad": "presencial"},
		}).
		on(http.MethodGet, coursesPath, []map[string]any{
			{"id_curso": 1, "modalidad": "presencial"},
			{"id_curso": 2, "modalidad": "virtual"},
		})
	svc := NewCatalogService(api, nil, nil, nil, CatalogConfig{})

	listing, err := svc.Courses(context.Background(), nil, dto.CourseQuery{Modality: "virtual"})
	require.NoError(t, err)
	require.Len(t, listing.Courses, 1)
	assert.Equal(t, models.ID(2), listing.Courses[0].ID)
	assert.Equal(t, "Tutor disponible", listing.Courses[0].TutorName)
	assert.Equal(t, DefaultCities, listing.Cities)
	assert.Len(t, api.callsTo(http.MethodGet, coursesPath), 2)
}

func TestCoursesSearchUsesSearchEndpoint(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, courseSearchPath, []map[string]any{{"id_curso": 8, "nombre": "Piano"}})
	svc := NewCatalogService(api, nil, nil, nil, CatalogConfig{})

	listing, err := svc.Courses(context.Background(), nil, dto.CourseQuery{Search: " piano "})
	require.NoError(t, err)
	require.Len(t, listing.Courses, 1)
	calls := api.callsTo(http.MethodGet, courseSearchPath)
	require.Len(t, calls, 1)
	assert.Equal(t, "piano", calls[0].Query.Get("search"))
	assert.Empty(t, api.callsTo(http.MethodGet, coursesPath))
}

func TestTutorCoursesKeepsOnlyOwn(t *testing.T) {
	api := newFakeAPI().on(http.MethodGet, coursesPath, []map[string]any{
		{"id_curso": 1, "tutor": 9},
		{"id_curso": 2, "tutor": 11},
	})
	svc := NewCatalogService(api, nil, nil, nil, CatalogConfig{})

	cards, err := svc.TutorCourses(context.Background(), tutorCaller(9))
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "tutor", cards[0].TutorName)
	assert.Empty(t, api.callsTo(http.MethodGet, usersPath+"9/"))
}

func TestCreateCourseValidation(t *testing.T) {
	api := newFakeAPI().on(http.MethodPost, coursesPath, map[string]any{"id_curso": 30, "nombre": "Guitarra"})
	svc := NewCatalogService(api, nil, nil, nil, CatalogConfig{})
	ctx := context.Background()
	valid := dto.CreateCourseRequest{Category: 2, Name: "Guitarra", Description: "Acordes", Modality: "Virtual", Price: "30000"}

	cases := []struct {
		name    string
		mutate  func(*dto.CreateCourseRequest)
		message string
	}{
		{"category", func(r *dto.CreateCourseRequest) { r.Category = 0 }, "Selecciona una categoría."},
		{"title", func(r *dto.CreateCourseRequest) { r.Name = "  " }, "Completa el título y la descripción del curso."},
		{"price", func(r *dto.CreateCourseRequest) { r.Price = "-4" }, "Indica un precio válido."},
		{"price text", func(r *dto.CreateCourseRequest) { r.Price = "gratis" }, "Indica un precio válido."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mutate(&req)
			_, err := svc.CreateCourse(ctx, tutorCaller(9), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, appErrors.ErrValidation)
			assert.Contains(t, err.Error(), tc.message)
		})
	}

	created, err := svc.CreateCourse(ctx, tutorCaller(9), valid)
	require.NoError(t, err)
	assert.Equal(t, models.ID(30), created.ID)
	posts := api.callsTo(http.MethodPost, coursesPath)
	require.Len(t, posts, 1)
	assert.Equal(t, "virtual", posts[0].Body["modalidad"])
	assert.Equal(t, 30000.0, posts[0].Body["precio"])
}
