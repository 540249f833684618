package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/flin-agency/keyword-research-tool/internal/ai"
	"github.com/flin-agency/keyword-research-tool/internal/cluster"
	"github.com/flin-agency/keyword-research-tool/internal/config"
	"github.com/flin-agency/keyword-research-tool/internal/jobstore"
	"github.com/flin-agency/keyword-research-tool/internal/orchestrator"
	"github.com/flin-agency/keyword-research-tool/internal/ratelimit"
	"github.com/flin-agency/keyword-research-tool/internal/research"
	"github.com/flin-agency/keyword-research-tool/internal/scraper"
	"github.com/flin-agency/keyword-research-tool/internal/seeds"
	"github.com/flin-agency/keyword-research-tool/internal/telemetry"
)

const samplePage = `<html><head>
<title>Dental Implants Zurich</title>
<meta name="description" content="Dental implants and gentle dental care in Zurich.">
</head><body>
<h1>Dental Implants</h1>
<h2>Dental Care</h2>
<p>We offer dental implants, dental cleaning and gentle dental care for patients of all ages.</p>
</body></html>`

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, rawURL string, _ string, _ int) (research.FetchPage, error) {
	return research.FetchPage{HTML: samplePage, FinalURL: rawURL, Strategy: research.StrategyHTTP}, nil
}

func (fakeFetcher) Close(context.Context) error { return nil }

type stubMetrics struct{}

func (stubMetrics) KeywordMetrics(context.Context, []string, string, string) ([]research.Keyword, error) {
	return []research.Keyword{
		{Text: "dental implants", SearchVolume: 900, Competition: research.CompetitionHigh, CPCLow: 2.1, CPCHigh: 5.0},
		{Text: "dental care", SearchVolume: 700, Competition: research.CompetitionMedium, CPCLow: 1.1, CPCHigh: 2.2},
		{Text: "dental clinic", SearchVolume: 500, Competition: research.CompetitionMedium, CPCLow: 1.4, CPCHigh: 2.9},
	}, nil
}

func (stubMetrics) Healthy(context.Context) bool { return true }

type testEnv struct {
	api    *httptest.Server
	target *httptest.Server
}

func newTestEnv(t *testing.T, maxRequests int) *testEnv {
	t.Helper()
	telemetry.Init()
	logger := zap.NewNop()

	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(samplePage))
	}))
	t.Cleanup(target.Close)

	cfg := config.Config{
		Server:   config.ServerConfig{Port: 8080, CORSOrigins: []string{"*"}},
		Scraper:  config.ScraperConfig{MaxPages: 20, UserAgent: "test-agent", Attempts: 1},
		Keywords: config.KeywordsConfig{Max: 500, MinSearchVolume: 10},
	}
	store := jobstore.New(time.Hour, logger)
	scr := scraper.New(fakeFetcher{}, 1, logger)
	gen := seeds.New(ai.Noop{}, logger)
	engine := cluster.NewEngine(logger)
	orch := orchestrator.New(cfg, store, scr, gen, stubMetrics{}, engine, ai.Noop{}, logger)
	srv := NewServer(cfg, orch, ratelimit.New(maxRequests, time.Hour), logger)

	apiSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(apiSrv.Close)
	return &testEnv{api: apiSrv, target: target}
}

func (e *testEnv) createJob(t *testing.T, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(e.api.URL+"/api/research", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) startJob(t *testing.T) string {
	t.Helper()
	resp := e.createJob(t, `{"url":"`+e.target.URL+`","options":{"maxPages":1,"useAI":false}}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var created map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created["job_id"])
	assert.Equal(t, "processing", created["status"])
	return created["job_id"]
}

func (e *testEnv) waitCompleted(t *testing.T, id string) map[string]any {
	t.Helper()
	var job map[string]any
	require.Eventually(t, func() bool {
		resp, err := http.Get(e.api.URL + "/api/research/" + id)
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		job = map[string]any{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
		return job["status"] == "completed"
	}, 5*time.Second, 20*time.Millisecond)
	return job
}

func TestCreateJobAndFetchResult(t *testing.T) {
	env := newTestEnv(t, 10)
	id := env.startJob(t)
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	job := env.waitCompleted(t, id)
	assert.Equal(t, float64(100), job["progress"])
	data, ok := job["data"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, data["clusters"])

	// Internal metadata is never exposed.
	_, leaked := job["stageDurationsMs"]
	assert.False(t, leaked)
}

func TestCreateJobInvalidURL(t *testing.T) {
	env := newTestEnv(t, 10)
	resp := env.createJob(t, `{"url":"ftp://example.com"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateJobInvalidJSON(t *testing.T) {
	env := newTestEnv(t, 10)
	resp := env.createJob(t, `{not json`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateJobRateLimited(t *testing.T) {
	env := newTestEnv(t, 1)
	env.startJob(t)

	resp := env.createJob(t, `{"url":"`+env.target.URL+`"}`)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Greater(t, body["retryAfter"].(float64), float64(0))
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestGetJobBadID(t *testing.T) {
	env := newTestEnv(t, 10)
	resp, err := http.Get(env.api.URL + "/api/research/not-a-uuid")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetJobNotFound(t *testing.T) {
	env := newTestEnv(t, 10)
	resp, err := http.Get(env.api.URL + "/api/research/" + uuid.NewString())
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteJob(t *testing.T) {
	env := newTestEnv(t, 10)
	id := env.startJob(t)
	env.waitCompleted(t, id)

	req, err := http.NewRequest(http.MethodDelete, env.api.URL+"/api/research/"+id, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	after, err := http.Get(env.api.URL + "/api/research/" + id)
	require.NoError(t, err)
	defer after.Body.Close()
	assert.Equal(t, http.StatusNotFound, after.StatusCode)
}

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t, 10)
	id := env.startJob(t)
	env.waitCompleted(t, id)

	resp, err := http.Get(env.api.URL + "/api/research/" + id + "/export?format=csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Contains(t, lines[0], "Cluster ID,Pillar Topic,Keyword,Search Volume")
	// Header plus one row per keyword.
	assert.Len(t, lines, 4)
	assert.Contains(t, buf.String(), "dental implants")
}

func TestExportBadFormat(t *testing.T) {
	env := newTestEnv(t, 10)
	id := env.startJob(t)
	env.waitCompleted(t, id)

	resp, err := http.Get(env.api.URL + "/api/research/" + id + "/export?format=xml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfigEndpoints(t *testing.T) {
	env := newTestEnv(t, 10)

	resp, err := http.Get(env.api.URL + "/api/research/config/countries")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var countries []research.Country
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&countries))
	codes := make(map[string]bool)
	for _, c := range countries {
		codes[c.Code] = true
	}
	assert.True(t, codes["2756"])

	resp, err = http.Get(env.api.URL + "/api/research/config/languages")
	require.NoError(t, err)
	defer resp.Body.Close()
	var languages []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&languages))
	assert.Contains(t, languages, "de")
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, 10)
	resp, err := http.Get(env.api.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	services, ok := body["services"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, services["metrics"])
	assert.Equal(t, false, services["ai"])
}
