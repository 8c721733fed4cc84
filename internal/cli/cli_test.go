package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
scheduler:
  tick: 1m
  max_concurrent: 1
  default_schedule: every 24h
content:
  topics: [kubernetes]
pipeline:
  retries: 0
ai:
  providers: []
  enhance: false
research:
  feeds: []
  subreddits: []
  github_trending: false
store:
  driver: file
  path: %s
linkedin:
  dry_run: true
logging:
  level: error
`

// offlineConfig writes a config with no research sources, no AI providers and
// a temporary file store, so every run is served by the template provider.
func offlineConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "postpilot.yaml")
	body := bytes.ReplaceAll([]byte(testConfig), []byte("%s"), []byte(filepath.Join(dir, "jobs.json")))
	require.NoError(t, os.WriteFile(path, body, 0o600))
	return path
}

func execute(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestRoot_HasSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range NewRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run-once", "daemon", "add-job", "remove-job", "pause-job", "resume-job", "list-jobs", "status"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRoot_UnknownCommand(t *testing.T) {
	_, err := execute(t, offlineConfig(t), "unknown-command-xyz")
	assert.Error(t, err)
}

func TestRoot_InvalidFlagOverrides(t *testing.T) {
	cfg := offlineConfig(t)

	_, err := execute(t, cfg, "--store", "mysql", "list-jobs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTPILOT_STORE")

	_, err = execute(t, cfg, "--log-level", "loud", "list-jobs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "POSTPILOT_LOG_LEVEL")
}

func TestRoot_MissingConfigFile(t *testing.T) {
	_, err := execute(t, filepath.Join(t.TempDir(), "nope.yaml"), "list-jobs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load config")
}

func TestJobCommands_Lifecycle(t *testing.T) {
	cfg := offlineConfig(t)

	out, err := execute(t, cfg, "list-jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "No jobs found")

	out, err = execute(t, cfg, "add-job", "k8s", "--topic", "kubernetes", "--schedule", "every 48h", "--type", "article")
	require.NoError(t, err)
	assert.Contains(t, out, "Job k8s saved")

	out, err = execute(t, cfg, "list-jobs")
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "k8s")
	assert.Contains(t, out, "every 48h")
	assert.Contains(t, out, "article")

	out, err = execute(t, cfg, "pause-job", "k8s")
	require.NoError(t, err)
	assert.Contains(t, out, "Job k8s paused")

	out, err = execute(t, cfg, "status", "k8s")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: paused")

	out, err = execute(t, cfg, "resume-job", "k8s")
	require.NoError(t, err)
	assert.Contains(t, out, "Job k8s resumed")

	out, err = execute(t, cfg, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "Jobs: 1")

	out, err = execute(t, cfg, "remove-job", "k8s")
	require.NoError(t, err)
	assert.Contains(t, out, "Job k8s removed")

	_, err = execute(t, cfg, "status", "k8s")
	assert.Error(t, err)
}

func TestAddJob_Validation(t *testing.T) {
	cfg := offlineConfig(t)

	_, err := execute(t, cfg, "add-job", "bad", "--topic", "go", "--type", "podcast")
	assert.Error(t, err)

	_, err = execute(t, cfg, "add-job", "bad", "--topic", "go", "--schedule", "whenever")
	assert.Error(t, err)

	_, err = execute(t, cfg, "add-job")
	assert.Error(t, err)
}

func TestPauseJob_NotFound(t *testing.T) {
	_, err := execute(t, offlineConfig(t), "pause-job", "ghost")
	assert.Error(t, err)
}

func TestRunOnce_AdHocTopic(t *testing.T) {
	out, err := execute(t, offlineConfig(t), "run-once", "platform engineering", "--type", "article")
	require.NoError(t, err)

	assert.Contains(t, out, "Latest Insights on Platform Engineering")
	assert.Contains(t, out, ": degraded")
	assert.Contains(t, out, "Provider: template")
	assert.Contains(t, out, "Post: dryrun-")
}

func TestRunOnce_DefaultsToFirstTopic(t *testing.T) {
	out, err := execute(t, offlineConfig(t), "run-once", "--type", "slide-deck")
	require.NoError(t, err)
	assert.Contains(t, out, "Kubernetes Update")
}

func TestRunOnce_Job(t *testing.T) {
	cfg := offlineConfig(t)
	_, err := execute(t, cfg, "add-job", "k8s", "--topic", "kubernetes", "--type", "infographic")
	require.NoError(t, err)

	out, err := execute(t, cfg, "run-once", "k8s")
	require.NoError(t, err)
	assert.Contains(t, out, "Kubernetes Infographic")

	out, err = execute(t, cfg, "status", "k8s")
	require.NoError(t, err)
	assert.Contains(t, out, "Status: succeeded")
	assert.Contains(t, out, "degraded")
	assert.Contains(t, out, "post dryrun-")

	_, err = execute(t, cfg, "run-once", "k8s", "--type", "graph")
	assert.Error(t, err)
}

func TestRunOnce_InvalidType(t *testing.T) {
	_, err := execute(t, offlineConfig(t), "run-once", "--type", "podcast")
	assert.Error(t, err)
}

func loadTestApp(t *testing.T) *app {
	t.Helper()
	cfg, err := config.Load(offlineConfig(t))
	require.NoError(t, err)
	cfg.Server.Addr = "127.0.0.1:0"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := newApp(context.Background(), cfg, logger, io.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestApp_Router(t *testing.T) {
	a := loadTestApp(t)
	h := a.router()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	// No token hash configured.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/jobs/trigger", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	a := loadTestApp(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}
