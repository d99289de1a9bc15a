package backend

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/myteacher-portal/internal/models"
)

type pageEnvelope struct {
	Count    *int            `json:"count"`
	Next     *string         `json:"next"`
	Previous *string         `json:"previous"`
	Results  json.RawMessage `json:"results"`
}

// DecodeList accepts either a bare JSON array or a paginated
// {count, next, previous, results} envelope. Pagination is nil for bare arrays.
// An object without results decodes to an empty list.
func DecodeList[T any](raw []byte) ([]T, *models.Pagination, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil, nil
	}

	switch trimmed[0] {
	case '[':
		items := []T{}
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, nil, fmt.Errorf("decode list: %w", err)
		}
		return items, nil, nil
	case '{':
		var env pageEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, nil, fmt.Errorf("decode page: %w", err)
		}
		items := []T{}
		if len(env.Results) > 0 && !bytes.Equal(env.Results, []byte("null")) {
			if err := json.Unmarshal(env.Results, &items); err != nil {
				return nil, nil, fmt.Errorf("decode page results: %w", err)
			}
		}
		page := &models.Pagination{Count: len(items)}
		if env.Count != nil {
			page.Count = *env.Count
		}
		if env.Next != nil {
			page.Next = *env.Next
		}
		if env.Previous != nil {
			page.Previous = *env.Previous
		}
		return items, page, nil
	default:
		return nil, nil, fmt.Errorf("decode list: unexpected payload %.32q", trimmed)
	}
}
