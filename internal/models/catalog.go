package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Modality is how a course is delivered.
type Modality string

const (
	ModalityInPerson Modality = "presencial"
	ModalityVirtual  Modality = "virtual"
	ModalityBoth     Modality = "ambas"
)

// Normalize lower-cases and trims the modality.
func (m Modality) Normalize() Modality {
	return Modality(strings.ToLower(strings.TrimSpace(string(m))))
}

// Valid reports whether m is one of the known course modalities.
func (m Modality) Valid() bool {
	switch m.Normalize() {
	case ModalityInPerson, ModalityVirtual, ModalityBoth:
		return true
	}
	return false
}

// ModalityOptions lists what a student may pick when requesting a course:
// both concrete modalities for "ambas", otherwise only the course's own.
func ModalityOptions(m Modality) []Modality {
	switch m.Normalize() {
	case ModalityBoth:
		return []Modality{ModalityInPerson, ModalityVirtual}
	case ModalityInPerson, ModalityVirtual:
		return []Modality{m.Normalize()}
	default:
		return []Modality{ModalityInPerson, ModalityVirtual}
	}
}

// Category groups courses.
type Category struct {
	ID          ID     `json:"id_categoria"`
	Name        string `json:"nombre"`
	Description string `json:"descripcion,omitempty"`
}

func (c *Category) Identity() ID { return c.ID }

func (c *Category) UnmarshalJSON(b []byte) error {
	type alias Category
	aux := struct {
		*alias
		AltID ID `json:"id"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if c.ID == 0 {
		c.ID = aux.AltID
	}
	return nil
}

// CategoryPlaceholder is shown when the category detail cannot be loaded.
func CategoryPlaceholder(id ID) string { return fmt.Sprintf("Categoría %d", id) }

// Course is a tutor's offering.
type Course struct {
	ID          ID            `json:"id_curso"`
	Name        string        `json:"nombre"`
	Description string        `json:"descripcion,omitempty"`
	Modality    Modality      `json:"modalidad,omitempty"`
	City        string        `json:"ciudad,omitempty"`
	Price       Number        `json:"precio"`
	Tutor       Ref[User]     `json:"tutor"`
	Category    Ref[Category] `json:"categoria"`
	Active      *bool         `json:"activo,omitempty"`
}

func (c *Course) Identity() ID { return c.ID }

func (c *Course) UnmarshalJSON(b []byte) error {
	type alias Course
	aux := struct {
		*alias
		AltID ID `json:"id"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if c.ID == 0 {
		c.ID = aux.AltID
	}
	return nil
}

// DisplayName falls back to "Curso {id}" for unnamed courses.
func (c Course) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Curso %d", c.ID)
}

// IsActive treats a missing flag as active.
func (c Course) IsActive() bool {
	return c.Active == nil || *c.Active
}

// CourseFilter narrows a course list. Category matches by id, modality by
// case-insensitive equality, city by case-insensitive substring. Cities and
// Modalities are multi-select sets matched by case-insensitive equality.
type CourseFilter struct {
	Category   ID
	Modality   string
	City       string
	Cities     []string
	Modalities []string
}

// Matches applies every populated criterion.
func (f CourseFilter) Matches(c Course) bool {
	if f.Category != 0 && c.Category.ID != f.Category {
		return false
	}
	if f.Modality != "" && !strings.EqualFold(strings.TrimSpace(string(c.Modality)), strings.TrimSpace(f.Modality)) {
		return false
	}
	if f.City != "" && !strings.Contains(strings.ToLower(c.City), strings.ToLower(strings.TrimSpace(f.City))) {
		return false
	}
	if len(f.Cities) > 0 && !containsFold(f.Cities, c.City) {
		return false
	}
	if len(f.Modalities) > 0 && !containsFold(f.Modalities, string(c.Modality)) {
		return false
	}
	return true
}

// Apply returns the matching courses in their original order.
func (f CourseFilter) Apply(courses []Course) []Course {
	out := make([]Course, 0, len(courses))
	for _, c := range courses {
		if f.Matches(c) {
			out = append(out, c)
		}
	}
	return out
}

func containsFold(set []string, value string) bool {
	value = strings.TrimSpace(value)
	for _, s := range set {
		if strings.EqualFold(strings.TrimSpace(s), value) {
			return true
		}
	}
	return false
}
