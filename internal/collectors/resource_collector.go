package collectors

import (
	"fmt"
	"math"

	"github.com/danilgotvyansky/cpanel-exporter/internal/exposition"
	"github.com/danilgotvyansky/cpanel-exporter/internal/uapi"
)

// resourceNames maps the CloudLinux LVE identifiers the exporter reports to
// their metric names. Other identifiers are dropped.
var resourceNames = map[string]string{
	"lvecpu":    "cpu",
	"lveep":     "ep",
	"lvememphy": "memphy",
	"lveiops":   "iops",
	"lveio":     "io",
	"lvenproc":  "nproc",
}

// resourcePercentIDs also get a usage percentage of their limit.
var resourcePercentIDs = map[string]struct{}{
	"lvecpu":    {},
	"lvememphy": {},
}

// NewResourceCollector creates the ResourceUsage::get_usages category
// Args:
// - deps: CollectorDependencies
// Returns:
// - *Category[uapi.ResourceUsage]: the resource usage category
func NewResourceCollector(deps *CollectorDependencies) *Category[uapi.ResourceUsage] {
	return NewCategory(deps, CategoryPolicy[uapi.ResourceUsage]{
		Name:   "resource_usage",
		Fetch:  deps.Client.GetResourceUsages,
		Format: FormatResourceUsage,
	})
}

// FormatResourceUsage renders one LVE record as cpanel_<name>, preceded by
// cpanel_<name>_percent for CPU and physical memory when a limit is set
func FormatResourceUsage(r uapi.ResourceUsage, labels exposition.LabelSet) ([]exposition.Line, error) {
	name, ok := resourceNames[r.ID]
	if !ok {
		return nil, nil
	}

	usage, ok := r.Usage.Float()
	if !ok {
		return nil, fmt.Errorf("resource %s: usage %q is not numeric", r.ID, r.Usage.String())
	}
	metric := metricPrefix + name

	var lines []exposition.Line
	if _, withPercent := resourcePercentIDs[r.ID]; withPercent {
		if maximum, ok := r.Maximum.Float(); ok && maximum != 0 {
			lines = append(lines, exposition.Line{
				Name:   metric + "_percent",
				Labels: labels,
				Value:  exposition.Float(round2(usage / maximum * 100)),
			})
		}
	}
	lines = append(lines, exposition.Line{Name: metric, Labels: labels, Value: exposition.Float(usage)})
	return lines, nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
