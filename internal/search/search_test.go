package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/crm-timeline/internal/rest"
)

func TestQuerySendsParams(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"type":        r.URL.Query().Get("type"),
			"filterquery": r.URL.Query().Get("filterquery"),
			"size":        r.URL.Query().Get("size"),
			"sort":        r.URL.Query().Get("sort"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"hits": [{"id": "n1"}, {"id": "n2"}], "total": 2}`))
	}))
	defer server.Close()

	client := NewHTTPClient(rest.NewClient(server.URL, "token", "tenant", time.Second))
	result, err := client.Query(context.Background(), Params{
		Type:        "note",
		FilterQuery: "gfk_content_type:account AND gfk_object_id:42",
		Size:        20,
		Sort:        "-date",
	})

	require.NoError(t, err)
	assert.Len(t, result.Hits, 2)
	assert.Equal(t, 2, result.Total)
	assert.Equal(t, "note", gotQuery["type"])
	assert.Equal(t, "gfk_content_type:account AND gfk_object_id:42", gotQuery["filterquery"])
	assert.Equal(t, "20", gotQuery["size"])
	assert.Equal(t, "-date", gotQuery["sort"])
}

func TestQueryNotFoundIsEmptyResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(rest.NewClient(server.URL, "token", "", time.Second))
	result, err := client.Query(context.Background(), Params{Type: "note", Size: 20})

	require.NoError(t, err)
	assert.Empty(t, result.Hits)
	assert.Equal(t, 0, result.Total)
}

func TestQueryServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(rest.NewClient(server.URL, "token", "", time.Second))
	_, err := client.Query(context.Background(), Params{Type: "case", Size: 20})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "searching case")
}
