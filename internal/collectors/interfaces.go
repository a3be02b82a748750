package collectors

import (
	"context"

	"github.com/danilgotvyansky/cpanel-exporter/internal/config"
	"github.com/danilgotvyansky/cpanel-exporter/internal/exposition"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi"

	"go.uber.org/zap"
)

// CategoryCollector produces the lines of one independently fetched category.
// Failures stay inside the category: it logs them and returns no lines.
type CategoryCollector interface {
	Name() string
	CollectLines(ctx context.Context, scrape *Scrape) []exposition.Line
}

type CollectorDependencies struct {
	Client  *uapi.Client
	Logger  *zap.Logger
	Config  *config.Config
	Metrics *ExporterCollector
}

func NewCollectorDependencies(client *uapi.Client, logger *zap.Logger, cfg *config.Config, metrics *ExporterCollector) *CollectorDependencies {
	return &CollectorDependencies{
		Client:  client,
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics,
	}
}

// Scrape carries what every collector shares during one scrape.
type Scrape struct {
	ID     string
	Logger *zap.Logger
	Labels exposition.LabelSet
}
