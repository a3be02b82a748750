package collectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/danilgotvyansky/cpanel-exporter/internal/exposition"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi"

	"github.com/prometheus/common/model"
	"go.uber.org/zap"
)

const (
	mebibyte = 1 << 20
	gibibyte = 1 << 30

	metricPrefix = "cpanel_"
	infoMetric   = "cpanel_info"
)

// unconvertedItems report their value in bytes even when they carry units.
var unconvertedItems = map[string]struct{}{
	"mysqldiskusage":          {},
	"cachedmysqldiskusage":    {},
	"postgresdiskusage":       {},
	"cachedpostgresdiskusage": {},
}

// nonLabelItems never become labels even though their value is text.
var nonLabelItems = map[string]struct{}{
	"diskusage":      {},
	"bandwidthusage": {},
}

// MetricRecord is one normalized StatsBar metric.
type MetricRecord struct {
	Name  string
	Value exposition.Value
}

// StatsCollector turns StatsBar::get_stats into the general metrics and the
// label set shared by every line of a scrape. Its failures are fatal for the scrape.
type StatsCollector struct {
	deps *CollectorDependencies
}

// NewStatsCollector creates a new StatsCollector
// Args:
// - deps: CollectorDependencies
// Returns:
// - *StatsCollector: new StatsCollector instance
func NewStatsCollector(deps *CollectorDependencies) *StatsCollector {
	return &StatsCollector{deps: deps}
}

func (c *StatsCollector) Name() string {
	return "stats"
}

// Collect fetches the general stats and the account identity, builds the label
// set and returns the general lines ending with cpanel_info
func (c *StatsCollector) Collect(ctx context.Context, logger *zap.Logger) ([]exposition.Line, exposition.LabelSet, error) {
	items, err := c.deps.Client.GetStats(ctx)
	if err != nil {
		return nil, exposition.LabelSet{}, fmt.Errorf("fetch general stats: %w", err)
	}

	user, err := c.deps.Client.GetUserInformation(ctx)
	if err != nil {
		return nil, exposition.LabelSet{}, fmt.Errorf("fetch user information: %w", err)
	}

	labels := BuildLabels(items, user, logger)
	records := NormalizeStats(items)

	lines := make([]exposition.Line, 0, len(records))
	for _, r := range records {
		lines = append(lines, exposition.Line{Name: r.Name, Labels: labels, Value: r.Value})
	}

	logger.Debug("Collected general stats",
		zap.Int("items", len(items)),
		zap.Int("lines", len(lines)),
		zap.Int("labels", labels.Len()),
	)
	return lines, labels, nil
}

// NormalizeStats converts StatsBar items into metric records: values in
// bytes, quota derived free space and percentages, and a trailing cpanel_info
func NormalizeStats(items []uapi.StatItem) []MetricRecord {
	records := make([]MetricRecord, 0, len(items)+1)

	for _, item := range items {
		raw := item.Value
		if item.Count.Present() && item.Count.String() != "" {
			raw = item.Count
		}

		value, numeric := raw.Decimal()
		if numeric {
			if _, exempt := unconvertedItems[item.Name]; !exempt {
				switch item.Units.String() {
				case "GB":
					value *= gibibyte
				case "MB":
					value *= mebibyte
				}
			}
		}

		if item.Name == "diskusage" || item.Name == "filesusage" {
			records = append(records, quotaRecords(item, value, numeric)...)
		}

		if numeric {
			records = append(records, MetricRecord{Name: metricPrefix + item.Name, Value: exposition.Float(value)})
		}
	}

	return append(records, MetricRecord{Name: infoMetric, Value: exposition.Int(1)})
}

// quotaRecords derives free space and usage percentages for diskusage and
// filesusage. The diskusage quota is reported in megabytes, the filesusage
// quota is a plain count.
func quotaRecords(item uapi.StatItem, value float64, numeric bool) []MetricRecord {
	percent, hasPercent := item.Percent.Float()

	if !numeric || !item.Max.Present() || strings.EqualFold(item.Max.String(), "unlimited") {
		return nil
	}
	quota, ok := item.Max.Float()
	if !ok || quota == 0 {
		return nil
	}
	if item.Name == "diskusage" {
		quota *= mebibyte
	}

	records := []MetricRecord{
		{Name: metricPrefix + "free_" + item.Name, Value: exposition.Float(quota - value)},
	}
	if hasPercent {
		records = append(records,
			MetricRecord{Name: metricPrefix + "free_" + item.Name + "_percent", Value: exposition.Float(100 - percent)},
			MetricRecord{Name: metricPrefix + item.Name + "_percent", Value: exposition.Float(percent)},
		)
	}
	return records
}

// BuildLabels collects the descriptive StatsBar items, then the account user
// and ip, into the label set shared by every line of the scrape
func BuildLabels(items []uapi.StatItem, user *uapi.UserInformation, logger *zap.Logger) exposition.LabelSet {
	var labels exposition.LabelSet

	for _, item := range items {
		if !item.Value.IsString() {
			continue
		}
		if _, skip := nonLabelItems[item.Name]; skip {
			continue
		}
		if _, numeric := item.Value.Decimal(); numeric {
			continue
		}
		if !model.LabelName(item.Name).IsValid() {
			logger.Debug("Skipping stat with invalid label name", zap.String("name", item.Name))
			continue
		}
		labels = labels.Set(item.Name, item.Value.String())
	}

	labels = labels.Set("user", user.User.String())
	labels = labels.Set("ip", user.IP.String())
	return labels
}
