package nps

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "test-key"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(baseURL string) *Client {
	return &Client{
		client:  &http.Client{Timeout: 5 * time.Second},
		baseURL: baseURL,
		apiKey:  testKey,
		logger:  discardLogger(),
	}
}

func TestClient_Parks_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/parks", r.URL.Path)
		assert.Equal(t, "600", r.URL.Query().Get("limit"))
		assert.Equal(t, testKey, r.Header.Get("X-Api-Key"))
		_, _ = w.Write([]byte(`{"total":"1","data":[{"id":"P1","fullName":"Yellowstone National Park","parkCode":"yell","states":"ID,MT,WY","latitude":"44.59824417","longitude":"-110.5471695","activities":[{"id":"A1","name":"Hiking"}]}]}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Parks(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Parks, 1)

	p := resp.Parks[0]
	assert.Equal(t, "P1", *p.ID)
	assert.Equal(t, "yell", *p.ParkCode)
	assert.Equal(t, "ID,MT,WY", *p.States)
	assert.Nil(t, p.Description)
	assert.InDelta(t, 44.59824417, float64(p.Latitude), 1e-9)
	assert.InDelta(t, -110.5471695, float64(p.Longitude), 1e-9)
	require.Len(t, p.Activities, 1)
	assert.Equal(t, "Hiking", *p.Activities[0].Name)
	assert.Contains(t, string(resp.Raw), `"total":"1"`)
}

func TestClient_Amenities_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/amenities/parksplaces", r.URL.Path)
		assert.Equal(t, "600", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"data":[[{"id":"A1","name":"Restrooms","parks":[{"parkCode":"YELL"}]}]]}`))
	}))
	defer srv.Close()

	resp, err := testClient(srv.URL).Amenities(context.Background())
	require.NoError(t, err)
	require.Len(t, resp.Amenities, 1)
	require.Len(t, resp.Amenities[0], 1)
	a := resp.Amenities[0][0]
	assert.Equal(t, "A1", *a.ID)
	assert.Equal(t, "Restrooms", *a.Name)
	require.Len(t, a.Parks, 1)
	assert.Equal(t, "YELL", *a.Parks[0].ParkCode)
}

func TestClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":"API_KEY_INVALID"}}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Parks(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusForbidden, httpErr.StatusCode)
	assert.Equal(t, "parks", httpErr.Endpoint)
	assert.Contains(t, err.Error(), "API_KEY_INVALID")
}

func TestClient_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Amenities(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestClient_EmptyKeyIsSent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	c := NewClient("", discardLogger())
	c.baseURL = srv.URL

	_, err := c.Parks(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"data":[]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := testClient(srv.URL).Parks(ctx)
	require.Error(t, err)
}
