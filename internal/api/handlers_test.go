package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"remedy/internal/catalog"
	"remedy/internal/errors"
	"remedy/internal/evidence"
	"remedy/internal/recommend"
	"remedy/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cat, err := catalog.Load(filepath.Join("..", "catalog", "testdata", "catalog.yaml"))
	require.NoError(t, err)
	require.NoError(t, store.ImportCatalog(context.Background(), cat))

	logger := zap.NewNop().Sugar()
	svc := recommend.NewService(store, evidence.NewEngine(evidence.DefaultOptions()), logger)
	srv := httptest.NewServer(NewHandler(svc, store, logger).Routes())
	t.Cleanup(srv.Close)
	return srv
}

type envelope struct {
	Status    string          `json:"status"`
	Data      json.RawMessage `json:"data"`
	Error     *APIError       `json:"error"`
	RequestID string          `json:"request_id"`
}

func decode(t *testing.T, resp *http.Response) envelope {
	t.Helper()
	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return env
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	env := decode(t, resp)
	assert.Equal(t, "success", env.Status)
	assert.Equal(t, resp.Header.Get("X-Request-ID"), env.RequestID)
}

func TestListObservations(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/observations")
	require.NoError(t, err)
	env := decode(t, resp)

	var obs []catalog.Observation
	require.NoError(t, json.Unmarshal(env.Data, &obs))
	require.Len(t, obs, 3)
	assert.Equal(t, "G01", obs[0].Code)
}

func TestRecommend_Chosen(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/recommendations", "application/json",
		strings.NewReader(`{"observations":["G01","G02"],"trace":true}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	env := decode(t, resp)

	var rec struct {
		Outcome    string          `json:"outcome"`
		Categories []string        `json:"categories"`
		Items      []catalog.Item  `json:"items"`
		Trace      *evidence.Trace `json:"trace"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "chosen", rec.Outcome)
	assert.Equal(t, []string{"O01"}, rec.Categories)
	require.Len(t, rec.Items, 1)
	assert.Equal(t, "Paracetamol 500 mg", rec.Items[0].Name)
	require.NotNil(t, rec.Trace)
	require.NotNil(t, rec.Trace.Final)
	assert.InDelta(t, 0.9, rec.Trace.Final.Get(evidence.MustParseLabel("O01")), 1e-9)
}

func TestRecommend_KeepsRequestID(t *testing.T) {
	srv := newTestServer(t)
	id := "0b6f0f2e-8a4e-4c2a-9d53-3d1f8f8f7a10"

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/recommendations", strings.NewReader(`{"observations":[]}`))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", id)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	env := decode(t, resp)
	assert.Equal(t, id, env.RequestID)
	assert.Contains(t, string(env.Data), `"outcome":"no_recommendation"`)
}

func TestRecommend_BadRequests(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/v1/recommendations", "application/json", strings.NewReader(`not json`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	env := decode(t, resp)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	resp, err = http.Post(srv.URL+"/api/v1/recommendations", "application/json",
		strings.NewReader(`{"observations":["G0123456789012"]}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	env = decode(t, resp)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestCategoryItems(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/categories/o02/items")
	require.NoError(t, err)
	env := decode(t, resp)

	var items []catalog.Item
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "B002", items[0].Code)

	resp, err = http.Get(srv.URL + "/api/v1/categories/O77/items")
	require.NoError(t, err)
	env = decode(t, resp)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)

	post, err := http.Post(srv.URL+"/api/v1/recommendations", "application/json", strings.NewReader(`{"observations":["G01"]}`))
	require.NoError(t, err)
	post.Body.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

type failingRecommender struct{}

func (failingRecommender) Recommend(context.Context, []string, bool) (*recommend.Recommendation, error) {
	return nil, errors.New("database is locked")
}

func TestRecommend_ServiceFailure(t *testing.T) {
	h := NewHandler(failingRecommender{}, nil, nil)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recommendations", strings.NewReader(`{"observations":["G01"]}`))

	h.Routes().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "RECOMMENDATION_FAILED")
	assert.NotContains(t, rr.Body.String(), "database is locked")
}
