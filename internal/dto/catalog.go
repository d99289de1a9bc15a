package dto

import "github.com/noah-isme/myteacher-portal/internal/models"

// CategoryCard is one tile of the category grid.
type CategoryCard struct {
	ID          models.ID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Link        string    `json:"link"`
}

// CategoryQuery filters the category grid.
type CategoryQuery struct {
	Search string
	Page   int
}

// CategoryDetail is the header of a category page.
type CategoryDetail struct {
	ID          models.ID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Placeholder bool      `json:"placeholder"`
}

// CourseQuery filters course listings.
type CourseQuery struct {
	Category   models.ID
	Modality   string
	City       string
	Search     string
	Cities     []string
	Modalities []string
}

// CourseCard is one course as rendered in listings.
type CourseCard struct {
	ID              models.ID         `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Modality        models.Modality   `json:"modality,omitempty"`
	ModalityOptions []models.Modality `json:"modality_options"`
	City            string            `json:"city,omitempty"`
	Price           float64           `json:"price"`
	TutorID         models.ID         `json:"tutor_id"`
	TutorName       string            `json:"tutor_name"`
	TutorRating     *float64          `json:"tutor_rating,omitempty"`
	CategoryID      models.ID         `json:"category_id"`
	Link            string            `json:"link"`
}

// CourseListing is a filtered course page plus the city facets derived from it.
type CourseListing struct {
	Category *CategoryDetail `json:"category,omitempty"`
	Courses  []CourseCard    `json:"courses"`
	Cities   []string        `json:"cities"`
	Total    int             `json:"total"`
}

// CreateCourseRequest is the tutor's course creation form.
type CreateCourseRequest struct {
	Category    models.ID `json:"categoria" validate:"required,gt=0"`
	Name        string    `json:"nombre" validate:"required,max=200"`
	Description string    `json:"descripcion" validate:"required"`
	Modality    string    `json:"modalidad" validate:"required,oneof=presencial virtual ambas"`
	City        string    `json:"ciudad"`
	Price       string    `json:"precio" validate:"required"`
}
