package collectors

import (
	"context"
	"time"

	"github.com/danilgotvyansky/cpanel-exporter/internal/exposition"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Scraper runs one complete fetch, normalize and format cycle
type Scraper struct {
	deps       *CollectorDependencies
	stats      *StatsCollector
	categories []CategoryCollector
}

// NewScraper creates a new Scraper with the categories in output order:
// resource usage, MySQL, email, PostgreSQL, FTP
// Args:
// - deps: CollectorDependencies
// Returns:
// - *Scraper: new Scraper instance
func NewScraper(deps *CollectorDependencies) *Scraper {
	return &Scraper{
		deps:  deps,
		stats: NewStatsCollector(deps),
		categories: []CategoryCollector{
			NewResourceCollector(deps),
			NewMySQLCollector(deps),
			NewEmailCollector(deps),
			NewPostgresCollector(deps),
			NewFTPCollector(deps),
		},
	}
}

// Categories returns the names of the independently fetched categories in output order
func (s *Scraper) Categories() []string {
	names := make([]string, 0, len(s.categories))
	for _, c := range s.categories {
		names = append(names, c.Name())
	}
	return names
}

// Scrape returns every line of one scrape. An error means the general stats
// or the account identity could not be read and nothing should be served.
func (s *Scraper) Scrape(ctx context.Context) ([]exposition.Line, error) {
	start := time.Now()
	scrape := &Scrape{ID: uuid.NewString()}
	scrape.Logger = s.deps.Logger.With(zap.String("scrape_id", scrape.ID))

	lines, labels, err := s.stats.Collect(ctx, scrape.Logger)
	if err != nil {
		s.observe(false, time.Since(start))
		return nil, err
	}
	scrape.Labels = labels

	for _, category := range s.categories {
		lines = append(lines, category.CollectLines(ctx, scrape)...)
	}

	duration := time.Since(start)
	s.observe(true, duration)
	scrape.Logger.Debug("Scrape completed",
		zap.Duration("duration", duration),
		zap.Int("lines", len(lines)),
	)
	return lines, nil
}

func (s *Scraper) observe(success bool, duration time.Duration) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveScrape(success, duration)
	}
}
