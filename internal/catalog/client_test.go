package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rhdh-mcp/internal/upstream"
)

func TestBuildRequest(t *testing.T) {
	tests := []struct {
		query Query
		want  string
	}{
		{QueryTags, "https://hub.example.com/api/catalog/entity-facets?facet=metadata.tags&filter=kind%3Dresource"},
		{QueryAPIs, "https://hub.example.com/api/catalog/entities/by-query?filter=kind=api&fields=" + entityFields},
		{QueryInferenceServers, "https://hub.example.com/api/catalog/entities/by-query?filter=kind=component,spec.type=model-server&fields=" + entityFields},
	}
	for _, tt := range tests {
		t.Run(tt.query.String(), func(t *testing.T) {
			req, err := BuildRequest("https://hub.example.com/", "tok", tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.URL)
			assert.Equal(t, "Bearer tok", req.Header.Get("Authorization"))
			assert.Equal(t, upstream.UserAgent, req.Header.Get("User-Agent"))
		})
	}
}

func TestBuildRequestIsPure(t *testing.T) {
	a, err := BuildRequest("https://hub.example.com", "tok", QueryAPIs)
	require.NoError(t, err)
	b, err := BuildRequest("https://hub.example.com", "tok", QueryAPIs)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestBuildRequestUnknownQuery(t *testing.T) {
	_, err := BuildRequest("https://hub.example.com", "tok", Query(42))
	assert.Error(t, err)
}

func TestQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/catalog/entity-facets", r.URL.Path)
		assert.Equal(t, "metadata.tags", r.URL.Query().Get("facet"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"facets":{"metadata.tags":[{"value":"ai","count":3}]}}`))
	}))
	defer srv.Close()

	body, err := New(nil).Query(context.Background(), srv.URL, "tok", QueryTags)
	require.NoError(t, err)
	assert.Contains(t, body, `"ai"`)
}

func TestQueryUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(nil).Query(context.Background(), srv.URL, "bad", QueryAPIs)
	var se *upstream.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusUnauthorized, se.StatusCode)
}

func TestGetWithoutKeySendsNoAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	body, err := New(nil).Get(context.Background(), srv.URL+"/api/catalog/entities", "")
	require.NoError(t, err)
	assert.Equal(t, "[]", body)
}
