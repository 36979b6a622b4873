package health_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-tourbook/api"
	"github.com/jrsteele09/go-tourbook/health"
	"github.com/jrsteele09/go-tourbook/internal/apitest"
)

func TestFetch(t *testing.T) {
	backend := apitest.New()
	t.Cleanup(backend.Close)

	store := health.NewStore(api.New(backend.URL(), 5*time.Second))
	require.NoError(t, store.Fetch(context.Background()))

	data := store.Data()
	require.NotNil(t, data)
	require.Equal(t, "ok", data.Status)
	require.NotEmpty(t, data.Version)
	require.NotEmpty(t, data.Timestamp)
}

func TestFetch_NetworkFailure(t *testing.T) {
	backend := apitest.New()
	backend.Close()

	store := health.NewStore(api.New(backend.URL(), time.Second))
	require.Error(t, store.Fetch(context.Background()))
	require.NotEmpty(t, store.Err())
	require.Nil(t, store.Data())
}
