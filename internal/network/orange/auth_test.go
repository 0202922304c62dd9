package orange

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/klesify/klesify-backend/internal/testutil"
	"github.com/klesify/klesify-backend/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenServer struct {
	*httptest.Server
	calls     atomic.Int32
	expiresIn int
	status    int
}

func newTokenServer(t *testing.T) *tokenServer {
	t.Helper()
	ts := &tokenServer{expiresIn: 3600, status: http.StatusOK}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tokenPath {
			http.NotFound(w, r)
			return
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "client" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		n := ts.calls.Add(1)
		if ts.status != http.StatusOK {
			w.WriteHeader(ts.status)
			_, _ = w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if ts.expiresIn > 0 {
			fmt.Fprintf(w, `{"access_token":"tok-%d","expires_in":%d}`, n, ts.expiresIn)
			return
		}
		fmt.Fprintf(w, `{"access_token":"tok-%d"}`, n)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func newTestTokenSource(t *testing.T, serverURL string) (*TokenSource, *time.Time) {
	t.Helper()
	src, err := NewTokenSource(Credentials{ClientID: "client", ClientSecret: "secret", ServerURL: serverURL}, nil, testutil.NewTestLogger(t))
	require.NoError(t, err)
	now := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	src.now = func() time.Time { return now }
	return src, &now
}

func TestNewTokenSource_MissingCredentials(t *testing.T) {
	_, err := NewTokenSource(Credentials{ClientID: "client"}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotConfigured)
}

func TestToken_CachesUntilBuffer(t *testing.T) {
	ts := newTokenServer(t)
	src, now := newTestTokenSource(t, ts.URL)
	ctx := context.Background()

	tok, err := src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)

	tok, err = src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok)
	assert.Equal(t, int32(1), ts.calls.Load())

	// 59 minutes later the token is inside the refresh buffer.
	*now = now.Add(59*time.Minute + time.Second)
	tok, err = src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
	assert.Equal(t, int32(2), ts.calls.Load())
}

func TestToken_DefaultExpiry(t *testing.T) {
	ts := newTokenServer(t)
	ts.expiresIn = 0
	src, now := newTestTokenSource(t, ts.URL)
	ctx := context.Background()

	_, err := src.Token(ctx)
	require.NoError(t, err)

	*now = now.Add(58 * time.Minute)
	_, err = src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), ts.calls.Load())
}

func TestToken_Clear(t *testing.T) {
	ts := newTokenServer(t)
	src, _ := newTestTokenSource(t, ts.URL)
	ctx := context.Background()

	_, err := src.Token(ctx)
	require.NoError(t, err)
	src.Clear()
	tok, err := src.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-2", tok)
}

func TestToken_Rejected(t *testing.T) {
	ts := newTokenServer(t)
	ts.status = http.StatusForbidden
	src, _ := newTestTokenSource(t, ts.URL)

	_, err := src.Token(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUpstream)

	var upErr *core.UpstreamError
	require.True(t, errors.As(err, &upErr))
	assert.Equal(t, http.StatusForbidden, upErr.StatusCode)
	assert.Equal(t, "oauth", upErr.Service)
}

func TestToken_ConcurrentCallersShareFetch(t *testing.T) {
	ts := newTokenServer(t)
	src, _ := newTestTokenSource(t, ts.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := src.Token(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, ts.calls.Load(), int32(10))

	tok, err := src.Token(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, tok)
}

func TestToken_CancelledCallerDoesNotFailWaiters(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"shared","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	src, _ := newTestTokenSource(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := src.Token(ctx)
		first <- err
	}()
	<-started

	second := make(chan string, 1)
	go func() {
		tok, err := src.Token(context.Background())
		assert.NoError(t, err)
		second <- tok
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(release)
	assert.Equal(t, "shared", <-second)
	assert.Equal(t, int32(1), calls.Load())
}
