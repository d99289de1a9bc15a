package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetail(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		isJSON bool
		want   string
	}{
		{"plain text", "Bad Gateway", false, "Bad Gateway"},
		{"empty", "", true, "Error"},
		{"detail field", `{"detail": "No encontrado."}`, true, "No encontrado."},
		{"message field", `{"message": "Algo falló"}`, true, "Algo falló"},
		{"json string", `"solo texto"`, true, "solo texto"},
		{"field errors in key order", `{"username": ["Ya existe."], "email": ["Inválido.", "Otro"]}`, true, "email: Inválido.; username: Ya existe."},
		{"non field errors", `{"non_field_errors": ["Credenciales inválidas"]}`, true, "Credenciales inválidas"},
		{"json sent as text", `{"detail": "x"}`, false, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detail([]byte(tt.body), tt.isJSON))
		})
	}
}
