package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOpenSessionStoreWithoutRedis(t *testing.T) {
	s, closeFn, err := openSessionStore(context.Background(), &Config{}, discardLogger())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &shared.MemorySessionStore{}, s)
}

func TestOpenSessionStoreUsesRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	s, closeFn, err := openSessionStore(context.Background(), &Config{RedisAddr: mr.Addr()}, discardLogger())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &shared.RedisSessionStore{}, s)
}

func TestOpenBackendSeedsMemoryCatalog(t *testing.T) {
	b, err := OpenBackend(context.Background(), &Config{}, discardLogger())
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, BackendMemory, b.Name)
	n, err := b.Stores.Books.Count(context.Background(), store.Query{})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}
