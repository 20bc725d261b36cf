package cfg

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/lysyi3m/folio-pulse/app/analytics"
	"github.com/lysyi3m/folio-pulse/app/content"
)

const (
	FeedViewDashboard = "dashboard"
	FeedViewAnalytics = "analytics"
)

// Dashboard holds the presentation settings of the refresh pass.
type Dashboard struct {
	DefaultRange  analytics.Range
	Months        int
	TimelineKinds []content.Kind
	TopPerKind    int
	TopLimit      int
	Feeds         map[string]analytics.FeedPolicy
}

type rawFeed struct {
	Limit          int            `yaml:"limit"`
	PerKind        map[string]int `yaml:"per_kind"`
	PublishedBlogs *bool          `yaml:"published_blogs"`
}

type rawDashboard struct {
	DefaultRange  string   `yaml:"default_range"`
	Months        int      `yaml:"months"`
	TimelineKinds []string `yaml:"timeline_kinds"`
	TopContent    struct {
		PerKind int `yaml:"per_kind"`
		Limit   int `yaml:"limit"`
	} `yaml:"top_content"`
	Feeds map[string]rawFeed `yaml:"feeds"`
}

func DefaultDashboard() *Dashboard {
	return &Dashboard{
		DefaultRange:  analytics.DefaultRange,
		Months:        6,
		TimelineKinds: slices.Clone(analytics.AnalyticsTimelineKinds),
		TopPerKind:    5,
		TopLimit:      8,
		Feeds: map[string]analytics.FeedPolicy{
			FeedViewDashboard: analytics.DashboardFeed(),
			FeedViewAnalytics: analytics.AnalyticsFeed(),
		},
	}
}

// LoadDashboard reads dashboard settings from path. An empty path or a
// missing file yields the defaults.
func LoadDashboard(path string) (*Dashboard, error) {
	if path == "" {
		return DefaultDashboard(), nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("Dashboard config not found, using defaults", "path", path)
		return DefaultDashboard(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	dashboard, err := ParseDashboard(data)
	if err != nil {
		return nil, fmt.Errorf("invalid dashboard config %s: %w", path, err)
	}

	slog.Debug("Dashboard config loaded", "path", path, "range", dashboard.DefaultRange, "feeds", len(dashboard.Feeds))
	return dashboard, nil
}

func ParseDashboard(data []byte) (*Dashboard, error) {
	var raw rawDashboard
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateDashboard(&raw); err != nil {
		return nil, err
	}

	dashboard := DefaultDashboard()

	if raw.DefaultRange != "" {
		r, err := analytics.ParseRange(raw.DefaultRange)
		if err != nil {
			return nil, err
		}
		dashboard.DefaultRange = r
	}
	if raw.Months != 0 {
		dashboard.Months = raw.Months
	}
	if raw.TopContent.PerKind != 0 {
		dashboard.TopPerKind = raw.TopContent.PerKind
	}
	if raw.TopContent.Limit != 0 {
		dashboard.TopLimit = raw.TopContent.Limit
	}

	if len(raw.TimelineKinds) > 0 {
		kinds, err := parseKinds(raw.TimelineKinds)
		if err != nil {
			return nil, fmt.Errorf("invalid timeline kinds: %w", err)
		}
		dashboard.TimelineKinds = kinds
	}

	for view, feed := range raw.Feeds {
		policy := dashboard.Feeds[view]
		if feed.Limit != 0 {
			policy.Limit = feed.Limit
		}
		if feed.PublishedBlogs != nil {
			policy.PublishedBlogs = *feed.PublishedBlogs
		}
		if len(feed.PerKind) > 0 {
			perKind := make(map[content.Kind]int, len(feed.PerKind))
			for name, limit := range feed.PerKind {
				kind, err := content.ParseKind(name)
				if err != nil {
					return nil, fmt.Errorf("invalid per-kind limit in feed %s: %w", view, err)
				}
				perKind[kind] = limit
			}
			policy.PerKind = perKind
		}
		if policy.PerKind == nil {
			policy.PerKind = analytics.DefaultPerKindLimits
		}
		dashboard.Feeds[view] = policy
	}

	return dashboard, nil
}

// Feed returns the policy for view, or false when no such view is configured.
func (d *Dashboard) Feed(view string) (analytics.FeedPolicy, bool) {
	policy, ok := d.Feeds[view]
	return policy, ok
}

func (d *Dashboard) FeedViews() []string {
	views := make([]string, 0, len(d.Feeds))
	for view := range d.Feeds {
		views = append(views, view)
	}
	slices.Sort(views)
	return views
}

func validateDashboard(raw *rawDashboard) error {
	nonNegativeFields := map[string]int{
		"months":               raw.Months,
		"top content per kind": raw.TopContent.PerKind,
		"top content limit":    raw.TopContent.Limit,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	for view, feed := range raw.Feeds {
		if view == "" {
			return fmt.Errorf("feed view name is required")
		}
		if feed.Limit < 0 {
			return fmt.Errorf("feed %s: limit must be non-negative", view)
		}
		for kind, limit := range feed.PerKind {
			if limit < 0 {
				return fmt.Errorf("feed %s: per-kind limit for %s must be non-negative", view, kind)
			}
		}
	}

	return nil
}

func parseKinds(names []string) ([]content.Kind, error) {
	kinds := make([]content.Kind, 0, len(names))
	for _, name := range names {
		kind, err := content.ParseKind(name)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}
