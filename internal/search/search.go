// Package search exposes the backend's paginated full-text search
// endpoint, the query interface every timeline fetch goes through.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/nhle/crm-timeline/internal/rest"
)

// Params describe one search query against a named entity type.
type Params struct {
	// Type is the entity type tag (e.g. "note", "case").
	Type string

	// FilterQuery scopes the search using the backend's query DSL
	// (field:value, AND/OR, [start TO end] ranges).
	FilterQuery string

	// Size is the maximum number of hits to return.
	Size int

	// Page is the zero-based result page.
	Page int

	// Sort is the sort field, prefixed with "-" for descending.
	Sort string
}

// Result holds one page of search hits. Hits stay raw so each caller
// can decode them into its own shape.
type Result struct {
	Hits  []json.RawMessage `json:"hits"`
	Total int               `json:"total"`
}

// Client is the query interface to the search backend.
type Client interface {
	Query(ctx context.Context, params Params) (*Result, error)
}

// HTTPClient implements Client against the REST search endpoint.
type HTTPClient struct {
	rc *rest.Client
}

// NewHTTPClient creates a search client on top of the shared REST
// client.
func NewHTTPClient(rc *rest.Client) *HTTPClient {
	return &HTTPClient{rc: rc}
}

// Query runs one search request. A 404 from the backend resolves to
// an empty result rather than an error.
func (c *HTTPClient) Query(ctx context.Context, params Params) (*Result, error) {
	path := "/search/search/" + rest.Values(map[string]string{
		"type":        params.Type,
		"filterquery": params.FilterQuery,
		"size":        strconv.Itoa(params.Size),
		"page":        strconv.Itoa(params.Page),
		"sort":        params.Sort,
	})

	var result Result
	if err := c.rc.Get(ctx, path, &result); err != nil {
		if errors.Is(err, rest.ErrNotFound) {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("searching %s: %w", params.Type, err)
	}

	return &result, nil
}
