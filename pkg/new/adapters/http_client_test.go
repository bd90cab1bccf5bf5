package adapters_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/piraces/feedloader/pkg/loader"
	"github.com/piraces/feedloader/pkg/new/adapters"
	"github.com/piraces/feedloader/pkg/new/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_GetDeliversStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "feedloader", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("body"))
	}))
	defer server.Close()

	received := make(chan loader.Result[app.HTTPResponse], 1)
	adapters.NewHTTPClient(time.Second, 0).Get(server.URL, func(result loader.Result[app.HTTPResponse]) {
		received <- result
	})

	result := <-received
	require.NoError(t, result.Err)
	assert.Equal(t, http.StatusTeapot, result.Value.StatusCode)
	assert.Equal(t, []byte("body"), result.Value.Body)
}

func TestHTTPClient_GetFailsOnConnectionError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	received := make(chan loader.Result[app.HTTPResponse], 1)
	adapters.NewHTTPClient(time.Second, 0).Get(url, func(result loader.Result[app.HTTPResponse]) {
		received <- result
	})

	assert.Error(t, (<-received).Err)
}

func TestHTTPClient_CancelAbortsRequestAndDeliversNothing(t *testing.T) {
	requested := make(chan struct{})
	aborted := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(requested)
		<-r.Context().Done()
		close(aborted)
	}))
	defer server.Close()

	received := make(chan loader.Result[app.HTTPResponse], 1)
	task := adapters.NewHTTPClient(10*time.Second, 0).Get(server.URL, func(result loader.Result[app.HTTPResponse]) {
		received <- result
	})

	<-requested
	task.Cancel()

	select {
	case <-aborted:
	case <-time.After(5 * time.Second):
		t.Fatal("request was not aborted")
	}

	select {
	case <-received:
		t.Fatal("completion delivered after cancel")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHTTPClient_GetBoundsTheBodySize(t *testing.T) {
	testCases := []struct {
		name     string
		bodySize int
		tooLarge bool
	}{
		{name: "below_limit", bodySize: 15, tooLarge: false},
		{name: "at_limit", bodySize: 16, tooLarge: false},
		{name: "above_limit", bodySize: 17, tooLarge: true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			body := strings.Repeat("a", testCase.bodySize)
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			received := make(chan loader.Result[app.HTTPResponse], 1)
			adapters.NewHTTPClient(time.Second, 16).Get(server.URL, func(result loader.Result[app.HTTPResponse]) {
				received <- result
			})

			result := <-received
			if testCase.tooLarge {
				assert.ErrorIs(t, result.Err, adapters.ErrBodyTooLarge)
				return
			}
			require.NoError(t, result.Err)
			assert.Equal(t, []byte(body), result.Value.Body)
		})
	}
}
