package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourseDecodesEmbeddedReferences(t *testing.T) {
	var c Course
	raw := `{"id_curso": 10, "nombre": "Álgebra", "modalidad": "Ambas", "ciudad": "Medellín",
		"precio": 30000, "tutor": {"id": 4, "username": "profe"}, "categoria": {"id": 2, "nombre": "Matemáticas"}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &c))

	assert.Equal(t, ID(10), c.ID)
	assert.Equal(t, ID(4), c.Tutor.ID)
	assert.Equal(t, ID(2), c.Category.ID)
	require.NotNil(t, c.Category.Value)
	assert.Equal(t, "Matemáticas", c.Category.Value.Name)
	assert.True(t, c.IsActive())
}

func TestCourseFilter(t *testing.T) {
	courses := []Course{
		{ID: 1, Modality: "Presencial", City: "Barranquilla", Category: RefTo[Category](1)},
		{ID: 2, Modality: "virtual", City: "Medellín", Category: RefTo[Category](1)},
		{ID: 3, Modality: "ambas", City: "Cartagena", Category: RefTo[Category](2)},
	}

	tests := []struct {
		name   string
		filter CourseFilter
		want   []ID
	}{
		{"category", CourseFilter{Category: 1}, []ID{1, 2}},
		{"modality case insensitive", CourseFilter{Modality: "PRESENCIAL"}, []ID{1}},
		{"city substring", CourseFilter{City: "barran"}, []ID{1}},
		{"multi city", CourseFilter{Cities: []string{"cartagena", "medellín"}}, []ID{2, 3}},
		{"multi modality", CourseFilter{Modalities: []string{"virtual", "ambas"}}, []ID{2, 3}},
		{"no match", CourseFilter{Category: 2, Modality: "virtual"}, []ID{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := []ID{}
			for _, c := range tt.filter.Apply(courses) {
				got = append(got, c.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModalityOptions(t *testing.T) {
	assert.Equal(t, []Modality{ModalityInPerson, ModalityVirtual}, ModalityOptions("Ambas"))
	assert.Equal(t, []Modality{ModalityVirtual}, ModalityOptions("virtual"))
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "Categoría 3", CategoryPlaceholder(3))
	assert.Equal(t, "Curso 8", Course{ID: 8}.DisplayName())
}
