package collectors

import (
	"testing"

	"github.com/danilgotvyansky/cpanel-exporter/internal/config"
	"github.com/danilgotvyansky/cpanel-exporter/internal/exposition"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi/uapitest"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEnv struct {
	executor *uapitest.Executor
	deps     *CollectorDependencies
	logs     *observer.ObservedLogs
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)
	cfg := config.New()
	executor := uapitest.NewExecutor()
	metrics := NewExporterCollector()
	client := uapi.NewClient(executor, cfg, logger, metrics)

	return &testEnv{
		executor: executor,
		deps:     NewCollectorDependencies(client, logger, cfg, metrics),
		logs:     logs,
	}
}

func (e *testEnv) scrape() *Scrape {
	return &Scrape{
		ID:     "test",
		Logger: e.deps.Logger,
		Labels: exposition.NewLabelSet(exposition.Label{Name: "user", Value: "alice"}),
	}
}

func renderLines(lines []exposition.Line) string {
	return exposition.Render(lines)
}

func stat(name string, fields map[string]any) map[string]any {
	item := map[string]any{"name": name}
	for k, v := range fields {
		item[k] = v
	}
	return item
}

func uapitestMalformed() uapitest.Response {
	return uapitest.Response{Stdout: "Setuid failed: not json"}
}
