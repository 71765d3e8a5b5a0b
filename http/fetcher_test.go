package http_test

import (
	"context"
	"errors"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	imghttp "github.com/meigma/imgcache/http"
	"github.com/meigma/imgcache/internal/codec"
	"github.com/meigma/imgcache/internal/testutil"
)

func TestFetcher_Fetch(t *testing.T) {
	t.Parallel()

	srv := testutil.NewImageServer(t)
	good := srv.Handle("/good.png", testutil.PNG(t, 5))
	empty := srv.Handle("/empty.png", nil)
	garbage := srv.Handle("/garbage.png", []byte("<html>not an image</html>"))
	missing := srv.URL + "/missing.png"

	f := imghttp.NewFetcher()

	tests := []struct {
		name    string
		url     string
		wantErr error
	}{
		{name: "decodes png", url: good},
		{name: "empty body", url: empty, wantErr: imghttp.ErrNoContent},
		{name: "undecodable body", url: garbage, wantErr: codec.ErrDecode},
		{name: "non-200 status", url: missing, wantErr: imghttp.ErrDownload},
		{name: "bad url", url: "://nope", wantErr: imghttp.ErrDownload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			img, err := f.Fetch(context.Background(), tt.url)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, img)
				return
			}
			require.NoError(t, err)
			assert.True(t, testutil.SameImage(testutil.Image(5), img))
		})
	}
}

func TestFetcher_Headers(t *testing.T) {
	t.Parallel()

	body := testutil.PNG(t, 1)
	seen := make(chan nethttp.Header, 1)
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		seen <- r.Header.Clone()
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	headers := nethttp.Header{}
	headers.Set("X-Extra", "1")
	f := imghttp.NewFetcher(
		imghttp.WithHeaders(headers),
		imghttp.WithHeader("User-Agent", "imgcache-test"),
		imghttp.WithClient(server.Client()),
	)

	_, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	got := <-seen
	assert.Equal(t, "imgcache-test", got.Get("User-Agent"))
	assert.Equal(t, "1", got.Get("X-Extra"))
}

func TestFetcher_Timeout(t *testing.T) {
	t.Parallel()

	srv := testutil.NewImageServer(t)
	url := srv.Handle("/slow.png", testutil.PNG(t, 1))
	release := srv.Block("/slow.png")
	t.Cleanup(func() { close(release) })

	f := imghttp.NewFetcher(imghttp.WithTimeout(50 * time.Millisecond))

	start := time.Now()
	_, err := f.Fetch(context.Background(), url)
	require.ErrorIs(t, err, imghttp.ErrDownload)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetcher_ContextCancel(t *testing.T) {
	t.Parallel()

	srv := testutil.NewImageServer(t)
	url := srv.Handle("/hang.png", testutil.PNG(t, 1))
	release := srv.Block("/hang.png")
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := imghttp.NewFetcher().Fetch(ctx, url)
	require.ErrorIs(t, err, imghttp.ErrDownload)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetcher_MaxBytes(t *testing.T) {
	t.Parallel()

	srv := testutil.NewImageServer(t)
	url := srv.Handle("/big.png", testutil.PNG(t, 1))

	_, err := imghttp.NewFetcher(imghttp.WithMaxBytes(16)).Fetch(context.Background(), url)
	require.ErrorIs(t, err, codec.ErrDecode)
}
