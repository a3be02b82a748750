package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danilgotvyansky/cpanel-exporter/internal/collectors"
	"github.com/danilgotvyansky/cpanel-exporter/internal/config"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi/uapitest"

	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T, executor *uapitest.Executor) *Server {
	t.Helper()

	cfg := config.New()
	cfg.Server.ListenAddress = "127.0.0.1"
	cfg.Server.Port = 0
	logger := zap.NewNop()
	metrics := collectors.NewExporterCollector()
	client := uapi.NewClient(executor, cfg, logger, metrics)
	deps := collectors.NewCollectorDependencies(client, logger, cfg, metrics)

	return New(ServerParams{
		Config:  cfg,
		Logger:  logger,
		Scraper: collectors.NewScraper(deps),
		Metrics: metrics,
		Client:  client,
	})
}

func seededExecutor() *uapitest.Executor {
	return uapitest.NewExecutor().
		SetData("StatsBar", "get_stats", []map[string]any{
			{"name": "hostname", "value": `srv "one"`},
			{"name": "diskusage", "value": "100", "units": "MB", "percent": "10", "_max": "1000"},
		}).
		SetData("Variables", "get_user_information", map[string]any{"user": "alice", "ip": "203.0.113.7"}).
		SetData("ResourceUsage", "get_usages", []map[string]any{{"id": "lvecpu", "usage": "50", "maximum": "100"}}).
		SetErrors("Mysql", "list_databases", "You do not have the feature mysql.").
		SetData("Postgresql", "list_databases", nil).
		SetData("Email", "list_pops_with_disk", []map[string]any{{"email": "info@example.com", "_diskused": "2048"}}).
		SetData("Ftp", "list_ftp_with_disk", []map[string]any{{"login": "alice", "_diskused": "2.5"}})
}

func get(t *testing.T, handler http.Handler, method, path string) *http.Response {
	t.Helper()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec.Result()
}

func TestMetrics_Success(t *testing.T) {
	srv := newTestServer(t, seededExecutor())

	resp := get(t, srv.Handler(), http.MethodGet, "/metrics")
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d body=%s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("unexpected content type: %q", ct)
	}

	l := `hostname="srv \"one\"",user="alice",ip="203.0.113.7"`
	wantPrefix := strings.Join([]string{
		`cpanel_free_diskusage{` + l + `} 943718400.0`,
		`cpanel_free_diskusage_percent{` + l + `} 90.0`,
		`cpanel_diskusage_percent{` + l + `} 10.0`,
		`cpanel_diskusage{` + l + `} 104857600.0`,
		`cpanel_info{` + l + `} 1`,
		`cpanel_cpu_percent{` + l + `} 50.0`,
		`cpanel_cpu{` + l + `} 50.0`,
		`cpanel_email_disk_usage{email="info@example.com",` + l + `} 2048`,
		`cpanel_ftp_account_disk_usage{ftp_account="alice",` + l + `} 2621440`,
	}, "\n") + "\n"
	if !strings.HasPrefix(string(body), wantPrefix) {
		t.Fatalf("unexpected body:\n%s", body)
	}
	if !strings.Contains(string(body), `cpanel_exporter_scrapes_total{result="success"} 1`) {
		t.Fatalf("missing exporter metrics:\n%s", body)
	}
	if !strings.Contains(string(body), `cpanel_exporter_category_failures_total{category="mysql",reason="feature_unavailable"} 1`) {
		t.Fatalf("missing category failure metric:\n%s", body)
	}

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("body is not valid text exposition: %v", err)
	}
	if _, ok := families["cpanel_info"]; !ok {
		t.Fatalf("cpanel_info missing from parsed families")
	}
}

func TestMetrics_FatalFailure(t *testing.T) {
	executor := seededExecutor().Set("StatsBar", "get_stats", uapitest.Response{Stdout: "<html>"})
	srv := newTestServer(t, executor)

	resp := get(t, srv.Handler(), http.MethodGet, "/metrics")
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if string(body) != "Internal server error" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestMetrics_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, seededExecutor())

	resp := get(t, srv.Handler(), http.MethodPost, "/metrics")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
}

func TestMetrics_Head(t *testing.T) {
	srv := newTestServer(t, seededExecutor())

	resp := get(t, srv.Handler(), http.MethodHead, "/metrics")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || len(body) != 0 {
		t.Fatalf("unexpected HEAD response: %d %q", resp.StatusCode, body)
	}
}

func TestHealthAndInfo(t *testing.T) {
	srv := newTestServer(t, seededExecutor())

	if resp := get(t, srv.Handler(), http.MethodGet, "/health"); resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected health status: %d", resp.StatusCode)
	}

	resp := get(t, srv.Handler(), http.MethodGet, "/info")
	var info struct {
		Service    string   `json:"service"`
		UAPIPath   string   `json:"uapi_path"`
		Categories []string `json:"categories"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode info: %v", err)
	}
	if info.Service != "cpanel_exporter" || info.UAPIPath != "uapi" || len(info.Categories) != 5 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestStartStop(t *testing.T) {
	srv := newTestServer(t, seededExecutor())
	lifecycle := NewServerLifecycle(srv, zap.NewNop())

	if err := lifecycle.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := lifecycle.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
}
