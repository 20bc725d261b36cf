package analytics

import (
	"fmt"
	"slices"
	"time"

	"github.com/lysyi3m/folio-pulse/app/content"
)

const defaultActor = "Admin"

type ActivityEvent struct {
	ID          string       `json:"id"`
	Kind        content.Kind `json:"kind"`
	Actor       string       `json:"actor"`
	Description string       `json:"description"`
	Detail      string       `json:"detail,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Read        *bool        `json:"read,omitempty"`
}

// FeedPolicy caps how many items each kind contributes before the global
// ranking, and how long the final feed is. A kind never contributes more
// than its cap, however recent its items are.
type FeedPolicy struct {
	PerKind        map[content.Kind]int `yaml:"per_kind" json:"per_kind"`
	Limit          int                  `yaml:"limit" json:"limit"`
	// PublishedBlogs drops drafts and dates posts by publication.
	PublishedBlogs bool                 `yaml:"published_blogs" json:"published_blogs"`
}

var DefaultPerKindLimits = map[content.Kind]int{
	content.KindProject:     2,
	content.KindBlog:        2,
	content.KindMessage:     2,
	content.KindTestimonial: 1,
}

func DashboardFeed() FeedPolicy {
	return FeedPolicy{PerKind: DefaultPerKindLimits, Limit: 5}
}

func AnalyticsFeed() FeedPolicy {
	return FeedPolicy{
		PerKind: map[content.Kind]int{
			content.KindMessage:     3,
			content.KindBlog:        2,
			content.KindProject:     2,
			content.KindTestimonial: 1,
		},
		Limit:          10,
		PublishedBlogs: true,
	}
}

// Build takes the newest per-kind items, maps them to events and ranks the
// union newest first. Equal timestamps keep the canonical kind order. A
// Limit <= 0 disables truncation.
func (p FeedPolicy) Build(itemsByKind map[content.Kind][]content.Item) []ActivityEvent {
	perKindLimit := p.PerKind
	if perKindLimit == nil {
		perKindLimit = DefaultPerKindLimits
	}

	events := make([]ActivityEvent, 0)
	for _, kind := range content.AllKinds {
		limit := perKindLimit[kind]
		if limit <= 0 {
			continue
		}

		items, stamp := itemsByKind[kind], createdAt
		if p.PublishedBlogs && kind == content.KindBlog {
			items, stamp = publishedOnly(items), publishedAt
		}

		for _, item := range newestBy(items, limit, stamp) {
			event := toEvent(item)
			event.Timestamp = stamp(item)
			events = append(events, event)
		}
	}

	slices.SortStableFunc(events, func(a, b ActivityEvent) int {
		return b.Timestamp.Compare(a.Timestamp)
	})

	if p.Limit > 0 && len(events) > p.Limit {
		events = events[:p.Limit]
	}
	return events
}

// BuildFeed ranks by creation time with explicit limits.
func BuildFeed(itemsByKind map[content.Kind][]content.Item, perKindLimit map[content.Kind]int, feedLimit int) []ActivityEvent {
	return FeedPolicy{PerKind: perKindLimit, Limit: feedLimit}.Build(itemsByKind)
}

type TopItem struct {
	Title    string       `json:"title"`
	Kind     content.Kind `json:"kind"`
	Date     time.Time    `json:"date"`
	Featured bool         `json:"featured"`
}

// TopContent lists the newest projects and blog posts. A blog counts as
// featured once it is published.
func TopContent(itemsByKind map[content.Kind][]content.Item, perKind, limit int) []TopItem {
	top := make([]TopItem, 0)
	for _, kind := range []content.Kind{content.KindProject, content.KindBlog} {
		for _, item := range newest(itemsByKind[kind], perKind) {
			featured := item.Featured
			if kind == content.KindBlog {
				featured = item.Published
			}
			top = append(top, TopItem{Title: item.Label(), Kind: kind, Date: item.CreatedAt, Featured: featured})
		}
	}

	slices.SortStableFunc(top, func(a, b TopItem) int {
		return b.Date.Compare(a.Date)
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top
}

func newest(items []content.Item, n int) []content.Item {
	return newestBy(items, n, createdAt)
}

func newestBy(items []content.Item, n int, stamp func(content.Item) time.Time) []content.Item {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b content.Item) int {
		return stamp(b).Compare(stamp(a))
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

func createdAt(item content.Item) time.Time {
	return item.CreatedAt
}

// publishedAt falls back to the creation time for posts without one.
func publishedAt(item content.Item) time.Time {
	if item.PublishedAt != nil {
		return *item.PublishedAt
	}
	return item.CreatedAt
}

func publishedOnly(items []content.Item) []content.Item {
	published := make([]content.Item, 0, len(items))
	for _, item := range items {
		if item.Published {
			published = append(published, item)
		}
	}
	return published
}

func toEvent(item content.Item) ActivityEvent {
	event := ActivityEvent{
		ID:        fmt.Sprintf("%s-%s", item.Kind, item.ID),
		Kind:      item.Kind,
		Actor:     defaultActor,
		Timestamp: item.CreatedAt,
	}

	switch item.Kind {
	case content.KindProject:
		event.Description = fmt.Sprintf(`created project "%s"`, item.Label())
		if item.Featured {
			event.Detail = "Featured"
		}
	case content.KindBlog:
		if item.Author != "" {
			event.Actor = item.Author
		}
		if item.Published {
			event.Description = fmt.Sprintf(`published blog "%s"`, item.Label())
		} else {
			event.Description = fmt.Sprintf(`created blog draft "%s"`, item.Label())
		}
	case content.KindMessage:
		event.Actor = item.Name
		event.Description = "sent a message"
		event.Detail = item.Subject
		read := item.Read
		event.Read = &read
	case content.KindTestimonial:
		event.Actor = item.Name
		event.Description = "left a testimonial"
		event.Detail = item.Company
		if event.Detail == "" {
			event.Detail = item.Role
		}
	default:
		event.Description = fmt.Sprintf(`added %s "%s"`, item.Kind, item.Label())
	}

	return event
}
