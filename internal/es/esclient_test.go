package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/optica/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	requests []string
	bodies   []string
	hitID    string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.bodies = append(f.bodies, string(body))
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	switch {
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_ = json.NewEncoder(w).Encode(map[string]any{
			"hits": map[string]any{
				"hits": []map[string]any{
					{"_source": map[string]any{"id": f.hitID, "national_id": "12.345.678-9", "name": "Ana"}},
					{"_source": map[string]any{"id": "not-a-uuid"}},
				},
			},
		})
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"result":"not_found"}`))
	default:
		_, _ = w.Write([]byte(`{"result":"created"}`))
	}
}

func newTestIndex(t *testing.T, f *fakeES) *ClientIndex {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewClientIndex(client, "clients")
}

func TestClientIndex_IndexAndSearch(t *testing.T) {
	id := uuid.New()
	f := &fakeES{hitID: id.String()}
	idx := newTestIndex(t, f)
	ctx := context.Background()

	require.NoError(t, idx.Index(ctx, models.Client{ID: id, NationalID: "12.345.678-9", Name: "Ana"}))

	ids, err := idx.Search(ctx, "ana", 10)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)

	require.NoError(t, idx.Delete(ctx, id))

	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Contains(t, f.requests, "PUT /clients/_doc/"+id.String())
	assert.Contains(t, f.requests, "POST /clients/_search")
	assert.Contains(t, f.requests, "DELETE /clients/_doc/"+id.String())
	all := strings.Join(f.bodies, "\n")
	assert.Contains(t, all, `"national_id":"12.345.678-9"`)
	assert.Contains(t, all, `"fuzziness":"AUTO"`)
}
