package cfg

import (
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/lysyi3m/folio-pulse/app/analytics"
	"github.com/lysyi3m/folio-pulse/app/content"
)

func TestLoadDashboardValidConfig(t *testing.T) {
	tempDir := t.TempDir()

	data := `
default_range: 90days
months: 12
timeline_kinds: [projects, blog, messages, testimonial]
top_content:
  per_kind: 3
  limit: 4
feeds:
  analytics:
    limit: 6
    per_kind:
      messages: 4
      projects: 2
  inbox:
    limit: 3
    published_blogs: true
    per_kind:
      message: 3
  dashboard:
    published_blogs: false
`

	path := filepath.Join(tempDir, "dashboard.yml")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	dashboard, err := LoadDashboard(path)
	if err != nil {
		t.Fatal(err)
	}

	if dashboard.DefaultRange != analytics.Range90Days {
		t.Errorf("Expected range 90d, got %s", dashboard.DefaultRange)
	}
	if dashboard.Months != 12 {
		t.Errorf("Expected 12 months, got %d", dashboard.Months)
	}
	if len(dashboard.TimelineKinds) != 4 || dashboard.TimelineKinds[3] != content.KindTestimonial {
		t.Errorf("Unexpected timeline kinds: %v", dashboard.TimelineKinds)
	}
	if dashboard.TopPerKind != 3 || dashboard.TopLimit != 4 {
		t.Errorf("Unexpected top content settings: %d/%d", dashboard.TopPerKind, dashboard.TopLimit)
	}

	analyticsFeed, ok := dashboard.Feed(FeedViewAnalytics)
	if !ok {
		t.Fatal("Expected analytics feed")
	}
	if analyticsFeed.Limit != 6 || analyticsFeed.PerKind[content.KindMessage] != 4 {
		t.Errorf("Unexpected analytics feed: %+v", analyticsFeed)
	}
	if _, ok := analyticsFeed.PerKind[content.KindBlog]; ok {
		t.Error("Expected per-kind map to be replaced, not merged")
	}
	if !analyticsFeed.PublishedBlogs {
		t.Error("Expected analytics feed to keep its published-only default")
	}
	if inbox, _ := dashboard.Feed("inbox"); !inbox.PublishedBlogs {
		t.Error("Expected inbox feed to enable published-only blogs")
	}

	if dashboardFeed, _ := dashboard.Feed(FeedViewDashboard); dashboardFeed.Limit != 5 {
		t.Errorf("Expected untouched dashboard feed to keep limit 5, got %d", dashboardFeed.Limit)
	}

	views := dashboard.FeedViews()
	if strings.Join(views, ",") != "analytics,dashboard,inbox" {
		t.Errorf("Unexpected feed views: %v", views)
	}
}

func TestLoadDashboardDefaults(t *testing.T) {
	dashboard, err := LoadDashboard(filepath.Join(t.TempDir(), "missing.yml"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}

	if dashboard.DefaultRange != analytics.Range30Days {
		t.Errorf("Expected default range 30d, got %s", dashboard.DefaultRange)
	}
	if dashboard.Months != 6 || dashboard.TopPerKind != 5 || dashboard.TopLimit != 8 {
		t.Errorf("Unexpected defaults: %+v", dashboard)
	}
	if len(dashboard.TimelineKinds) != 4 || dashboard.TimelineKinds[3] != content.KindTestimonial {
		t.Errorf("Expected testimonials in default timeline kinds, got %v", dashboard.TimelineKinds)
	}
	analyticsFeed, ok := dashboard.Feed(FeedViewAnalytics)
	if !ok {
		t.Fatal("Expected default analytics feed")
	}
	if !analyticsFeed.PublishedBlogs || analyticsFeed.Limit != 10 {
		t.Errorf("Expected analytics feed of 10 published-only posts, got %+v", analyticsFeed)
	}
	if dashboardFeed, _ := dashboard.Feed(FeedViewDashboard); dashboardFeed.PublishedBlogs {
		t.Error("Expected dashboard feed to keep drafts")
	}

	empty, err := ParseDashboard([]byte(""))
	if err != nil {
		t.Fatalf("Expected empty document to parse, got %v", err)
	}
	if empty.Months != 6 {
		t.Errorf("Expected zero months to default to 6, got %d", empty.Months)
	}
}

func TestShippedDashboardMatchesDefaults(t *testing.T) {
	shipped, err := LoadDashboard(filepath.Join("..", "..", "dashboard.yml"))
	if err != nil {
		t.Fatalf("Failed to load shipped dashboard.yml: %v", err)
	}
	defaults := DefaultDashboard()

	if shipped.DefaultRange != defaults.DefaultRange || shipped.Months != defaults.Months {
		t.Errorf("Expected range %s and %d months, got %s and %d",
			defaults.DefaultRange, defaults.Months, shipped.DefaultRange, shipped.Months)
	}
	if !slices.Equal(shipped.TimelineKinds, defaults.TimelineKinds) {
		t.Errorf("Expected timeline kinds %v, got %v", defaults.TimelineKinds, shipped.TimelineKinds)
	}
	if shipped.TopPerKind != defaults.TopPerKind || shipped.TopLimit != defaults.TopLimit {
		t.Errorf("Unexpected top content settings: %d/%d", shipped.TopPerKind, shipped.TopLimit)
	}

	for _, view := range defaults.FeedViews() {
		want, _ := defaults.Feed(view)
		got, ok := shipped.Feed(view)
		if !ok {
			t.Errorf("Expected feed view %s in shipped config", view)
			continue
		}
		if got.Limit != want.Limit || got.PublishedBlogs != want.PublishedBlogs || !maps.Equal(got.PerKind, want.PerKind) {
			t.Errorf("Feed %s: expected %+v, got %+v", view, want, got)
		}
	}
}

func TestParseDashboardRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"negative months", "months: -1", "months must be non-negative"},
		{"negative feed limit", "feeds:\n  dashboard:\n    limit: -2", "limit must be non-negative"},
		{"negative per kind", "feeds:\n  dashboard:\n    per_kind:\n      blog: -1", "per-kind limit"},
		{"unknown kind", "timeline_kinds: [gallery]", "unknown content kind"},
		{"unknown per kind", "feeds:\n  dashboard:\n    per_kind:\n      gallery: 1", "unknown content kind"},
		{"unknown range", "default_range: 2w", "unsupported range"},
		{"bad yaml", "months: [", "failed to parse YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDashboard([]byte(tt.data))
			if err == nil {
				t.Fatal("Expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
