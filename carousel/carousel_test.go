package carousel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-tourbook/api"
	"github.com/jrsteele09/go-tourbook/carousel"
	"github.com/jrsteele09/go-tourbook/internal/apitest"
)

func TestFetchActive(t *testing.T) {
	backend := apitest.New()
	t.Cleanup(backend.Close)

	store := carousel.NewStore(api.New(backend.URL(), 5*time.Second))
	require.NoError(t, store.FetchActive(context.Background()))

	items := store.Items()
	require.NotEmpty(t, items)
	require.Equal(t, carousel.ActionInternal, items[0].ActionType)
	require.True(t, items[0].IsActive)
	require.False(t, store.Loading())
	require.Empty(t, store.Err())
}

func TestFetchActive_NetworkFailure(t *testing.T) {
	backend := apitest.New()
	backend.Close()

	store := carousel.NewStore(api.New(backend.URL(), time.Second))
	err := store.FetchActive(context.Background())
	require.Error(t, err)
	require.NotEmpty(t, store.Err())
	require.Empty(t, store.Items())
}
