package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nahankar/shatika/internal/repository"
	"github.com/nahankar/shatika/internal/search"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

// fakeCluster answers the handful of Elasticsearch endpoints the engine uses.
type fakeCluster struct {
	mu          sync.Mutex
	requests    []recordedRequest
	indexExists bool
	respond     func(w http.ResponseWriter, r *http.Request, body string) bool
}

func (f *fakeCluster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{r.Method, r.URL.Path, r.URL.RawQuery, string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	if f.respond != nil && f.respond(w, r, string(body)) {
		return
	}
	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/shatika_products":
		if f.indexExists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		_, _ = io.WriteString(w, `{"acknowledged":true,"result":"created"}`)
	}
}

func (f *fakeCluster) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeCluster) find(method, path string) (recordedRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.Method == method && r.Path == path {
			return r, true
		}
	}
	return recordedRequest{}, false
}

func newEngine(t *testing.T, cluster *fakeCluster) *Engine {
	t.Helper()
	srv := httptest.NewServer(cluster)
	t.Cleanup(srv.Close)

	e, err := New(context.Background(), srv.URL, "", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return e
}

func TestNew_CreatesMissingIndex(t *testing.T) {
	cluster := &fakeCluster{}
	newEngine(t, cluster)

	create, ok := cluster.find(http.MethodPut, "/shatika_products")
	require.True(t, ok, "index should be created")
	assert.Contains(t, create.Body, `"autocomplete_analyzer"`)
	assert.Contains(t, create.Body, `"is_active"`)
}

func TestNew_KeepsExistingIndex(t *testing.T) {
	cluster := &fakeCluster{indexExists: true}
	newEngine(t, cluster)

	_, created := cluster.find(http.MethodPut, "/shatika_products")
	assert.False(t, created)
}

func TestEngine_Index(t *testing.T) {
	cluster := &fakeCluster{indexExists: true}
	e := newEngine(t, cluster)

	cat := "cat-1"
	doc := search.Document{ID: "prod-1", Name: "Ikat Saree", CategoryID: cat, Price: 450000, IsActive: true, CreatedAt: time.Now()}
	require.NoError(t, e.Index(context.Background(), doc))

	req := cluster.last()
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/shatika_products/_doc/prod-1", req.Path)
	assert.Contains(t, req.Query, "refresh=true")

	var got search.Document
	require.NoError(t, json.Unmarshal([]byte(req.Body), &got))
	assert.Equal(t, "Ikat Saree", got.Name)
	assert.Equal(t, "cat-1", got.CategoryID)
}

func TestEngine_Delete_IgnoresMissing(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, respond: func(w http.ResponseWriter, r *http.Request, _ string) bool {
		if r.Method != http.MethodDelete {
			return false
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"result":"not_found"}`)
		return true
	}}
	e := newEngine(t, cluster)

	assert.NoError(t, e.Delete(context.Background(), "gone"))
	assert.Equal(t, "/shatika_products/_doc/gone", cluster.last().Path)
}

func TestEngine_Search(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, respond: func(w http.ResponseWriter, r *http.Request, _ string) bool {
		if !strings.HasSuffix(r.URL.Path, "/_search") {
			return false
		}
		_, _ = io.WriteString(w, `{"hits":{"total":{"value":7},"hits":[{"_id":"p2"},{"_id":"p1"}]}}`)
		return true
	}}
	e := newEngine(t, cluster)

	minPrice := int64(1000)
	art := "art-1"
	res, err := e.Search(context.Background(), search.Query{
		Text:       "kalamkari",
		ArtID:      &art,
		MinPrice:   &minPrice,
		ActiveOnly: true,
		Offset:     20,
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"p2", "p1"}, res.IDs)
	assert.Equal(t, 7, res.Total)

	req := cluster.last()
	assert.Equal(t, "/shatika_products/_search", req.Path)
	assert.Contains(t, req.Body, `"multi_match"`)
	assert.Contains(t, req.Body, `"kalamkari"`)
	assert.Contains(t, req.Body, `"art_id":"art-1"`)
	assert.Contains(t, req.Body, `"is_active":true`)
	assert.Contains(t, req.Body, `"from":20`)
}

func TestEngine_Search_ErrorResponse(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, respond: func(w http.ResponseWriter, r *http.Request, _ string) bool {
		if !strings.HasSuffix(r.URL.Path, "/_search") {
			return false
		}
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"type":"parsing_exception","reason":"bad query"}}`)
		return true
	}}
	e := newEngine(t, cluster)

	_, err := e.Search(context.Background(), search.Query{Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing_exception")
}

func TestEngine_BulkIndex(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, respond: func(w http.ResponseWriter, r *http.Request, _ string) bool {
		if !strings.HasSuffix(r.URL.Path, "/_bulk") {
			return false
		}
		_, _ = io.WriteString(w, `{"errors":false,"items":[]}`)
		return true
	}}
	e := newEngine(t, cluster)

	docs := []search.Document{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}
	require.NoError(t, e.BulkIndex(context.Background(), docs))

	lines := strings.Split(strings.TrimSpace(cluster.last().Body), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], `"_id":"a"`)
	assert.Contains(t, lines[3], `"name":"B"`)

	assert.NoError(t, e.BulkIndex(context.Background(), nil))
}

func TestEngine_BulkIndex_PartialFailure(t *testing.T) {
	cluster := &fakeCluster{indexExists: true, respond: func(w http.ResponseWriter, r *http.Request, _ string) bool {
		if !strings.HasSuffix(r.URL.Path, "/_bulk") {
			return false
		}
		_, _ = io.WriteString(w, `{"errors":true,"items":[{"index":{"_id":"b","error":{"type":"mapper_parsing_exception","reason":"bad price"}}}]}`)
		return true
	}}
	e := newEngine(t, cluster)

	err := e.BulkIndex(context.Background(), []search.Document{{ID: "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id=b")
}

func TestBuildQuery_MatchAllWithoutText(t *testing.T) {
	q := buildQuery(search.Query{})

	body, err := json.Marshal(q)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"match_all"`)
	assert.NotContains(t, string(body), `"filter"`)
	assert.Equal(t, 20, q["size"])
}

func TestBuildSort(t *testing.T) {
	assert.Equal(t, []any{map[string]any{"_score": "desc"}}, buildSort(""))
	assert.Equal(t, map[string]any{"price": "desc"}, buildSort(repository.SortPriceDesc)[0])
	assert.Equal(t, map[string]any{"name.keyword": "asc"}, buildSort(repository.SortNameAsc)[0])
}
