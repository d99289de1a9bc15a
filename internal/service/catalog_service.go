package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/dto"
	"github.com/noah-isme/myteacher-portal/internal/models"
	"github.com/noah-isme/myteacher-portal/pkg/logger"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

const (
	categoriesPath    = "/crud/categorias/"
	coursesPath       = "/crud/cursos/"
	courseSearchPath  = "/filtrar-cursos/"
	usersPath         = "/crud/usuarios/"
	categoryLinkFmt   = "/categoria/%d"
	courseLinkFmt     = "/categoria/%d?curso=%d"
	tutorUnassigned   = "Tutor disponible"
	categoryCacheKeys = "categories:*"
)

// DefaultCities is offered as the city facet when no course carries one.
var DefaultCities = []string{"Barranquilla", "Cartagena", "Medellín"}

// CatalogConfig tunes the catalog service.
type CatalogConfig struct {
	ProfileConcurrency int
}

// CatalogService builds the category grid and course listings.
type CatalogService struct {
	api       BackendAPI
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
	limit     int
}

// NewCatalogService constructs a CatalogService.
func NewCatalogService(api BackendAPI, cache *CacheService, validate *validator.Validate, logger *zap.Logger, cfg CatalogConfig) *CatalogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProfileConcurrency <= 0 {
		cfg.ProfileConcurrency = 8
	}
	return &CatalogService{
		api:       api,
		cache:     cache,
		validator: newValidator(validate),
		logger:    logger,
		limit:     cfg.ProfileConcurrency,
	}
}

type categoryPage struct {
	Cards      []dto.CategoryCard `json:"cards"`
	Pagination *models.Pagination `json:"pagination,omitempty"`
}

// Categories returns the category grid.
func (s *CatalogService) Categories(ctx context.Context, q dto.CategoryQuery) ([]dto.CategoryCard, *models.Pagination, error) {
	key := fmt.Sprintf("categories:%s:%d", strings.ToLower(strings.TrimSpace(q.Search)), q.Page)
	page, err := remember(ctx, s.cache, key, func() (categoryPage, error) {
		query := url.Values{}
		if search := strings.TrimSpace(q.Search); search != "" {
			query.Set("search", search)
		}
		if q.Page > 0 {
			query.Set("page", strconv.Itoa(q.Page))
		}
		categories, pagination, err := listFrom[models.Category](ctx, s.api, nil, categoriesPath, query)
		if err != nil {
			return categoryPage{}, err
		}
		cards := make([]dto.CategoryCard, 0, len(categories))
		for _, c := range categories {
			cards = append(cards, dto.CategoryCard{
				ID:          c.ID,
				Name:        c.Name,
				Description: c.Description,
				Link:        fmt.Sprintf(categoryLinkFmt, c.ID),
			})
		}
		if pagination != nil && q.Page > 0 {
			pagination.Page = q.Page
		}
		return categoryPage{Cards: cards, Pagination: pagination}, nil
	})
	if err != nil {
		return nil, nil, backend.ToAppError(err)
	}
	return page.Cards, page.Pagination, nil
}

// InvalidateCategories drops every cached category page.
func (s *CatalogService) InvalidateCategories(ctx context.Context) error {
	return s.cache.Invalidate(ctx, categoryCacheKeys)
}

// Category loads a category header. Backend failures degrade to a placeholder.
func (s *CatalogService) Category(ctx context.Context, id models.ID) (dto.CategoryDetail, error) {
	if id <= 0 {
		return dto.CategoryDetail{}, appErrors.Clone(appErrors.ErrValidation, "invalid category id")
	}
	var category models.Category
	if err := s.api.Get(ctx, nil, idPath(categoriesPath, id), nil, &category); err != nil {
		logger.FromContext(ctx, s.logger).Debug("category detail unavailable", zap.Int64("category_id", int64(id)), zap.Error(err))
		return dto.CategoryDetail{ID: id, Name: models.CategoryPlaceholder(id), Placeholder: true}, nil
	}
	if category.ID == 0 {
		category.ID = id
	}
	name := category.Name
	if strings.TrimSpace(name) == "" {
		name = models.CategoryPlaceholder(id)
	}
	return dto.CategoryDetail{ID: category.ID, Name: name, Description: category.Description}, nil
}

// Courses lists courses for the grid. A search term goes to the backend's
// search endpoint; otherwise the CRUD listing is queried and filtered locally,
// falling back to the full listing when the filtered query matches nothing.
func (s *CatalogService) Courses(ctx context.Context, creds backend.Credentials, q dto.CourseQuery) (*dto.CourseListing, error) {
	filter := models.CourseFilter{
		Category:   q.Category,
		Modality:   strings.TrimSpace(q.Modality),
		City:       strings.TrimSpace(q.City),
		Cities:     q.Cities,
		Modalities: q.Modalities,
	}

	var (
		courses []models.Course
		err     error
	)
	if strings.TrimSpace(q.Search) != "" {
		courses, err = s.searchCourses(ctx, creds, q)
	} else {
		courses, err = s.listCourses(ctx, creds, filter)
	}
	if err != nil {
		return nil, backend.ToAppError(err)
	}

	courses = filter.Apply(courses)
	cards := s.cards(ctx, creds, courses)

	listing := &dto.CourseListing{Courses: cards, Cities: cityFacet(courses), Total: len(cards)}
	if q.Category != 0 {
		detail, err := s.Category(ctx, q.Category)
		if err == nil {
			listing.Category = &detail
		}
	}
	return listing, nil
}

func (s *CatalogService) searchCourses(ctx context.Context, creds backend.Credentials, q dto.CourseQuery) ([]models.Course, error) {
	query := url.Values{}
	query.Set("search", strings.TrimSpace(q.Search))
	if q.Category != 0 {
		query.Set("categoria", q.Category.String())
	}
	courses, _, err := listFrom[models.Course](ctx, s.api, creds, courseSearchPath, query)
	return courses, err
}

func (s *CatalogService) listCourses(ctx context.Context, creds backend.Credentials, filter models.CourseFilter) ([]models.Course, error) {
	query := url.Values{}
	if filter.Category != 0 {
		query.Set("categoria", filter.Category.String())
	}
	if filter.Modality != "" {
		query.Set("modalidad", filter.Modality)
	}
	if filter.City != "" {
		query.Set("ciudad", filter.City)
	}
	log := logger.FromContext(ctx, s.logger)

	byQuery, _, err := listFrom[models.Course](ctx, s.api, creds, coursesPath, query)
	if err == nil && (len(byQuery) == 0 || len(filter.Apply(byQuery)) > 0) {
		return byQuery, nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		log.Debug("filtered course query failed, loading full listing", zap.Error(err))
	}

	all, _, err := listFrom[models.Course](ctx, s.api, creds, coursesPath, nil)
	return all, err
}

// TutorCourses lists the caller's own courses.
func (s *CatalogService) TutorCourses(ctx context.Context, caller Caller) ([]dto.CourseCard, error) {
	query := url.Values{}
	query.Set("tutor", caller.ID().String())
	courses, _, err := listFrom[models.Course](ctx, s.api, caller.Creds, coursesPath, query)
	if err != nil {
		return nil, backend.ToAppError(err)
	}
	own := make([]models.Course, 0, len(courses))
	for _, c := range courses {
		if c.Tutor.ID == caller.ID() {
			if c.Tutor.Value == nil {
				me := caller.User
				c.Tutor.Value = &me
			}
			own = append(own, c)
		}
	}
	return s.cards(ctx, caller.Creds, own), nil
}

var courseFieldMessages = map[string]string{
	"Category":    "Selecciona una categoría.",
	"Name":        "Completa el título y la descripción del curso.",
	"Description": "Completa el título y la descripción del curso.",
	"Price":       "Indica un precio válido.",
	"Modality":    "Selecciona una modalidad válida.",
}

// CreateCourse publishes a course for the caller.
func (s *CatalogService) CreateCourse(ctx context.Context, caller Caller, req dto.CreateCourseRequest) (*models.Course, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	req.Modality = string(models.Modality(req.Modality).Normalize())
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, firstFieldMessage(err, courseFieldMessages, "invalid course payload"))
	}
	price, err := strconv.ParseFloat(strings.TrimSpace(req.Price), 64)
	if err != nil || price <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, courseFieldMessages["Price"])
	}

	payload := map[string]any{
		"nombre":      req.Name,
		"descripcion": req.Description,
		"modalidad":   req.Modality,
		"precio":      price,
		"categoria":   req.Category,
	}
	if city := strings.TrimSpace(req.City); city != "" {
		payload["ciudad"] = city
	}

	var created models.Course
	if err := s.api.Post(ctx, caller.Creds, coursesPath, payload, &created); err != nil {
		return nil, backend.ToAppError(err)
	}
	logger.FromContext(ctx, s.logger).Info("course created", zap.Int64("course_id", int64(created.ID)), zap.Int64("tutor_id", int64(caller.ID())))
	return &created, nil
}

func (s *CatalogService) cards(ctx context.Context, creds backend.Credentials, courses []models.Course) []dto.CourseCard {
	tutors := s.resolveUsers(ctx, creds, tutorRefs(courses))
	cards := make([]dto.CourseCard, 0, len(courses))
	for _, c := range courses {
		card := dto.CourseCard{
			ID:              c.ID,
			Name:            c.DisplayName(),
			Description:     c.Description,
			Modality:        c.Modality.Normalize(),
			ModalityOptions: models.ModalityOptions(c.Modality),
			City:            strings.TrimSpace(c.City),
			Price:           float64(c.Price),
			TutorID:         c.Tutor.ID,
			CategoryID:      c.Category.ID,
			Link:            fmt.Sprintf(courseLinkFmt, c.Category.ID, c.ID),
		}
		tutor := c.Tutor.Value
		if tutor == nil {
			if resolved, ok := tutors[c.Tutor.ID]; ok {
				tutor = &resolved
			}
		}
		switch {
		case tutor != nil:
			card.TutorName = tutor.TutorLabel()
			if tutor.Rating != nil {
				rating := float64(*tutor.Rating)
				card.TutorRating = &rating
			}
		case c.Tutor.ID != 0:
			card.TutorName = models.TutorPlaceholder(c.Tutor.ID)
		default:
			card.TutorName = tutorUnassigned
		}
		cards = append(cards, card)
	}
	return cards
}

func tutorRefs(courses []models.Course) []models.ID {
	ids := make([]models.ID, 0, len(courses))
	for _, c := range courses {
		if c.Tutor.Value == nil && c.Tutor.ID != 0 {
			ids = append(ids, c.Tutor.ID)
		}
	}
	return ids
}

// resolveUsers fetches profiles in parallel. Failed lookups are left out so
// callers fall back to placeholders.
func (s *CatalogService) resolveUsers(ctx context.Context, creds backend.Credentials, ids []models.ID) map[models.ID]models.User {
	return fetchProfiles(ctx, s.api, creds, ids, s.limit, s.logger)
}

func fetchProfiles(ctx context.Context, api BackendAPI, creds backend.Credentials, ids []models.ID, limit int, log *zap.Logger) map[models.ID]models.User {
	out := make(map[models.ID]models.User, len(ids))
	if len(ids) == 0 {
		return out
	}
	seen := make(map[models.ID]struct{}, len(ids))
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(limit)
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == 0 {
			continue
		}
		seen[id] = struct{}{}
		g.Go(func() error {
			var user models.User
			if err := api.Get(ctx, creds, idPath(usersPath, id), nil, &user); err != nil {
				logger.FromContext(ctx, log).Debug("profile lookup failed", zap.Int64("user_id", int64(id)), zap.Error(err))
				return nil
			}
			if user.ID == 0 {
				user.ID = id
			}
			mu.Lock()
			out[id] = user
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func cityFacet(courses []models.Course) []string {
	seen := make(map[string]struct{})
	cities := make([]string, 0)
	for _, c := range courses {
		city := strings.TrimSpace(c.City)
		if city == "" {
			continue
		}
		key := strings.ToLower(city)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cities = append(cities, city)
	}
	if len(cities) == 0 {
		return append([]string(nil), DefaultCities...)
	}
	sort.Strings(cities)
	return cities
}

func firstFieldMessage(err error, messages map[string]string, fallback string) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if msg, ok := messages[fe.Field()]; ok {
				return msg
			}
		}
	}
	return fallback
}
