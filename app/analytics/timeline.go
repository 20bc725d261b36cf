package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lysyi3m/folio-pulse/app/content"
)

type Range string

const (
	Range7Days  Range = "7d"
	Range30Days Range = "30d"
	Range90Days Range = "90d"
	Range1Year  Range = "1y"
)

const DefaultRange = Range30Days

var rangeDays = map[Range]int{
	Range7Days:  7,
	Range30Days: 30,
	Range90Days: 90,
	Range1Year:  365,
}

var rangeAliases = map[string]Range{
	"7days":  Range7Days,
	"30days": Range30Days,
	"90days": Range90Days,
	"1year":  Range1Year,
}

// DefaultTimelineKinds are the kinds counted when the caller names none.
var DefaultTimelineKinds = []content.Kind{content.KindProject, content.KindBlog, content.KindMessage}

// AnalyticsTimelineKinds adds testimonials for the analytics activity chart.
var AnalyticsTimelineKinds = []content.Kind{content.KindProject, content.KindBlog, content.KindMessage, content.KindTestimonial}

func ParseRange(s string) (Range, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := rangeDays[Range(s)]; ok {
		return Range(s), nil
	}
	if r, ok := rangeAliases[s]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unsupported range %q: must be one of 7d, 30d, 90d, 1y", s)
}

// Days returns the number of calendar days covered by r, or 0 for an unknown range.
func (r Range) Days() int {
	return rangeDays[r]
}

// Window returns the half-open interval [start, end) covered by r ending on now's day.
func (r Range) Window(now time.Time) (time.Time, time.Time) {
	end := startOfDay(now).AddDate(0, 0, 1)
	return end.AddDate(0, 0, -r.Days()), end
}

type TimeBucket struct {
	Label  string               `json:"label"`
	Start  time.Time            `json:"start"`
	End    time.Time            `json:"end"` // exclusive
	Counts map[content.Kind]int `json:"counts"`
}

func (b TimeBucket) Total() int {
	total := 0
	for _, n := range b.Counts {
		total += n
	}
	return total
}

// Bucketize returns one bucket per calendar day of r, oldest first, in
// now's location. Items outside the window are not counted.
func Bucketize(items []content.Item, r Range, now time.Time, kinds ...content.Kind) []TimeBucket {
	days := r.Days()
	buckets := make([]TimeBucket, 0, days)
	if days == 0 {
		return buckets
	}

	first := startOfDay(now).AddDate(0, 0, -(days - 1))
	for i := 0; i < days; i++ {
		start := first.AddDate(0, 0, i)
		buckets = append(buckets, TimeBucket{
			Label: start.Format("Jan 2"),
			Start: start,
			End:   start.AddDate(0, 0, 1),
		})
	}

	countInto(buckets, items, trackedKinds(kinds))
	return buckets
}

// BucketizeMonths returns one bucket per calendar month for the last months
// months, the current month last.
func BucketizeMonths(items []content.Item, months int, now time.Time, kinds ...content.Kind) []TimeBucket {
	if months <= 0 {
		return []TimeBucket{}
	}

	buckets := make([]TimeBucket, 0, months)
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	for i := months - 1; i >= 0; i-- {
		start := current.AddDate(0, -i, 0)
		buckets = append(buckets, TimeBucket{
			Label: start.Format("Jan 06"),
			Start: start,
			End:   start.AddDate(0, 1, 0),
		})
	}

	countInto(buckets, items, trackedKinds(kinds))
	return buckets
}

// MessageStatsDays is how many message days the report keeps.
const MessageStatsDays = 30

type DayCount struct {
	Label string    `json:"label"`
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// MessagesByDay counts messages per calendar day in loc, oldest first. Only
// days with messages appear; limit > 0 keeps the latest limit of them.
func MessagesByDay(messages []content.Item, loc *time.Location, limit int) []DayCount {
	counts := make(map[time.Time]int)
	for _, msg := range messages {
		counts[startOfDay(msg.CreatedAt.In(loc))]++
	}

	days := make([]DayCount, 0, len(counts))
	for day, n := range counts {
		days = append(days, DayCount{Label: day.Format("Jan 2"), Day: day, Count: n})
	}
	sort.Slice(days, func(i, j int) bool {
		return days[i].Day.Before(days[j].Day)
	})

	if limit > 0 && len(days) > limit {
		days = days[len(days)-limit:]
	}
	return days
}

func countInto(buckets []TimeBucket, items []content.Item, kinds []content.Kind) {
	tracked := make(map[content.Kind]bool, len(kinds))
	for i := range buckets {
		buckets[i].Counts = make(map[content.Kind]int, len(kinds))
		for _, kind := range kinds {
			buckets[i].Counts[kind] = 0
		}
	}
	for _, kind := range kinds {
		tracked[kind] = true
	}

	if len(buckets) == 0 {
		return
	}
	rangeStart := buckets[0].Start
	rangeEnd := buckets[len(buckets)-1].End

	for _, item := range items {
		if !tracked[item.Kind] {
			continue
		}
		t := item.CreatedAt
		if t.Before(rangeStart) || !t.Before(rangeEnd) {
			continue
		}
		// First bucket whose end is after t; buckets are sorted and contiguous.
		idx := sort.Search(len(buckets), func(i int) bool {
			return buckets[i].End.After(t)
		})
		if idx < len(buckets) {
			buckets[idx].Counts[item.Kind]++
		}
	}
}

func trackedKinds(kinds []content.Kind) []content.Kind {
	if len(kinds) == 0 {
		return DefaultTimelineKinds
	}
	return kinds
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
