package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/readly/internal/domain/entity"
)

type fakeES struct {
	mu     sync.Mutex
	bodies map[string]string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	b, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.bodies[r.Method+" "+r.URL.Path] = string(b)
	f.mu.Unlock()

	if strings.HasSuffix(r.URL.Path, "/_search") {
		_, _ = io.WriteString(w, `{"hits":{"hits":[{"_id":"u1","_source":{"id":"u1","email":"ann@example.com","name":"Ann","role":"user","isVerified":true}}]}}`)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_, _ = io.WriteString(w, `{"result":"created"}`)
}

func newIndex(t *testing.T) (*UserIndex, *fakeES) {
	t.Helper()
	f := &fakeES{bodies: map[string]string{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewUserIndex(es, "users"), f
}

func TestIndexUser_OmitsSecrets(t *testing.T) {
	x, f := newIndex(t)
	u := &entity.User{ID: "u1", Email: "ann@example.com", Name: "Ann", PasswordHash: "$2a$10$secret", Role: entity.RoleUser}
	u.SetVerificationToken("123456", u.CreatedAt)

	require.NoError(t, x.IndexUser(context.Background(), u))

	body := f.bodies["PUT /users/_doc/u1"]
	require.NotEmpty(t, body)
	assert.NotContains(t, body, "secret")
	assert.NotContains(t, body, "123456")

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, "ann@example.com", doc["email"])
}

func TestSearch_DecodesHits(t *testing.T) {
	x, f := newIndex(t)
	got, err := x.Search(context.Background(), "ann", 500)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ann", got[0].Name)
	assert.Contains(t, f.bodies["POST /users/_search"], `"size":10`)
}

func TestDisabledIndexIsNoop(t *testing.T) {
	var x *UserIndex
	assert.NoError(t, x.IndexUser(context.Background(), &entity.User{ID: "x"}))
	got, err := x.Search(context.Background(), "q", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}
