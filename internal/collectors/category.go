package collectors

import (
	"context"
	"errors"

	"github.com/danilgotvyansky/cpanel-exporter/internal/exposition"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi"

	"go.uber.org/zap"
)

// CategoryPolicy describes one category: how to fetch its records and how to
// turn a record into lines.
type CategoryPolicy[T any] struct {
	Name   string
	Fetch  func(ctx context.Context) ([]T, error)
	Format func(record T, labels exposition.LabelSet) ([]exposition.Line, error)
}

// Category runs the fetch, availability check, map and format sequence shared
// by every per-account category.
type Category[T any] struct {
	deps   *CollectorDependencies
	policy CategoryPolicy[T]
}

func NewCategory[T any](deps *CollectorDependencies, policy CategoryPolicy[T]) *Category[T] {
	return &Category[T]{deps: deps, policy: policy}
}

func (c *Category[T]) Name() string {
	return c.policy.Name
}

// CollectLines implements CategoryCollector
func (c *Category[T]) CollectLines(ctx context.Context, scrape *Scrape) []exposition.Line {
	logger := scrape.Logger.With(zap.String("category", c.policy.Name))

	records, err := c.policy.Fetch(ctx)
	if err != nil {
		switch {
		case errors.Is(err, uapi.ErrFeatureUnavailable):
			logger.Warn("Feature unavailable", zap.Error(err))
		case errors.Is(err, uapi.ErrNoData):
			logger.Warn("No records found or the feature is disabled")
		default:
			logger.Error("Failed to fetch category", zap.Error(err))
		}
		c.observe(0, uapi.Outcome(err))
		return nil
	}

	var lines []exposition.Line
	for _, record := range records {
		formatted, err := c.policy.Format(record, scrape.Labels)
		if err != nil {
			logger.Warn("Skipping record", zap.Error(err))
			continue
		}
		lines = append(lines, formatted...)
	}

	c.observe(len(lines), "")
	return lines
}

func (c *Category[T]) observe(lines int, reason string) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.ObserveCategory(c.policy.Name, lines, reason)
	}
}
