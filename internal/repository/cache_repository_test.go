package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/myteacher-portal/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "catalog")
	ctx := context.Background()

	var dest []string
	assert.ErrorIs(t, repo.Get(ctx, "categories", &dest), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Set(ctx, "categories", []string{"a"}, time.Minute))
	require.NoError(t, repo.DeleteByPattern(ctx, "*"))
	require.NoError(t, repo.Ping(ctx))
}

func TestCacheRepositoryNamespacesKeys(t *testing.T) {
	assert.Equal(t, "catalog:categories", NewCacheRepository(nil, "catalog").key("categories"))
	assert.Equal(t, "categories", NewCacheRepository(nil, "").key("categories"))
}
