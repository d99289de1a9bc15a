package service

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/myteacher-portal/internal/backend"
	"github.com/noah-isme/myteacher-portal/internal/models"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

// BackendAPI is the subset of *backend.Client the services call.
type BackendAPI interface {
	Get(ctx context.Context, creds backend.Credentials, path string, query url.Values, out any) error
	Post(ctx context.Context, creds backend.Credentials, path string, body, out any) error
	Patch(ctx context.Context, creds backend.Credentials, path string, body, out any) error
	Delete(ctx context.Context, creds backend.Credentials, path string) error
}

// Caller is the signed-in user a service acts for. Creds may be nil for
// anonymous pages.
type Caller struct {
	User  models.User
	Creds backend.Credentials
}

// ID returns the caller's backend user id.
func (c Caller) ID() models.ID { return c.User.ID }

func listFrom[T any](ctx context.Context, api BackendAPI, creds backend.Credentials, path string, query url.Values) ([]T, *models.Pagination, error) {
	var raw json.RawMessage
	if err := api.Get(ctx, creds, path, query, &raw); err != nil {
		return nil, nil, err
	}
	items, page, err := backend.DecodeList[T](raw)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "unexpected backend list payload")
	}
	return items, page, nil
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}

func newValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return validator.New()
	}
	return v
}

func idPath(prefix string, id models.ID) string {
	return prefix + id.String() + "/"
}
