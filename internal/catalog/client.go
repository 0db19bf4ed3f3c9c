// Package catalog queries the Developer Hub (Backstage) software catalog API.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"rhdh-mcp/internal/upstream"
)

const (
	basePath        = "/api/catalog"
	entityFacetPath = "/entity-facets"
	queryPath       = "/entities/by-query"

	// entityFields is the projection requested for entity queries.
	entityFields = "kind,metadata.namespace,metadata.name,metadata.title,metadata.description,metadata.tags,metadata.links"
)

// Query is a logical catalog question.
type Query int

const (
	QueryTags Query = iota
	QueryAPIs
	QueryInferenceServers
)

func (q Query) String() string {
	switch q {
	case QueryTags:
		return "tags"
	case QueryAPIs:
		return "apis"
	case QueryInferenceServers:
		return "inference_servers"
	}
	return fmt.Sprintf("Query(%d)", int(q))
}

// suffix returns the path and query string appended to the catalog base path.
func (q Query) suffix() (string, error) {
	switch q {
	case QueryTags:
		return entityFacetPath + "?facet=metadata.tags&filter=kind%3Dresource", nil
	case QueryAPIs:
		return queryPath + "?filter=kind=api&fields=" + entityFields, nil
	case QueryInferenceServers:
		return queryPath + "?filter=kind=component,spec.type=model-server&fields=" + entityFields, nil
	}
	return "", fmt.Errorf("unknown catalog query %d", int(q))
}

// Request is a fully built catalog GET.
type Request struct {
	URL    string
	Header http.Header
}

// BuildRequest turns (base URL, query) into the concrete authenticated request.
func BuildRequest(baseURL, apiKey string, q Query) (Request, error) {
	suffix, err := q.suffix()
	if err != nil {
		return Request{}, err
	}
	return Request{
		URL:    strings.TrimRight(baseURL, "/") + basePath + suffix,
		Header: header(apiKey),
	}, nil
}

func header(apiKey string) http.Header {
	h := http.Header{}
	h.Set("User-Agent", upstream.UserAgent)
	if apiKey != "" {
		h.Set("Authorization", "Bearer "+apiKey)
	}
	return h
}

// Client runs catalog queries over a shared upstream client.
type Client struct {
	HTTP *upstream.Client
}

// New returns a Client. A nil httpClient gets a default upstream client.
func New(httpClient *upstream.Client) *Client {
	if httpClient == nil {
		httpClient = upstream.New(upstream.Options{})
	}
	return &Client{HTTP: httpClient}
}

// Query runs q against the catalog at baseURL and returns the raw JSON text.
func (c *Client) Query(ctx context.Context, baseURL, apiKey string, q Query) (string, error) {
	req, err := BuildRequest(baseURL, apiKey, q)
	if err != nil {
		return "", err
	}
	body, err := c.HTTP.Get(ctx, req.URL, req.Header)
	if err != nil {
		return "", fmt.Errorf("catalog %s: %w", q, err)
	}
	return body, nil
}

// Get fetches an arbitrary catalog URL. apiKey may be empty.
func (c *Client) Get(ctx context.Context, url, apiKey string) (string, error) {
	body, err := c.HTTP.Get(ctx, url, header(apiKey))
	if err != nil {
		return "", fmt.Errorf("catalog get: %w", err)
	}
	return body, nil
}
