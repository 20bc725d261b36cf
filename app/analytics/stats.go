package analytics

import (
	"math"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lysyi3m/folio-pulse/app/content"
)

const uncategorized = "uncategorized"

type Distribution struct {
	Total       int                `json:"total"`
	Counts      map[string]int     `json:"counts"`
	Percentages map[string]float64 `json:"percentages"`
	Labels      map[string]string  `json:"labels"`
}

type StatsSnapshot struct {
	Counts        map[content.Kind]int    `json:"counts"`
	Metrics       map[string]float64      `json:"metrics"`
	Distributions map[string]Distribution `json:"distributions"`
}

var featuredMetrics = map[content.Kind]string{
	content.KindProject:     "featuredProjects",
	content.KindTestimonial: "featuredTestimonials",
	content.KindCertificate: "featuredCertificates",
	content.KindAchievement: "featuredAchievements",
}

// ComputeStats derives counts and metrics from the item set alone.
func ComputeStats(itemsByKind map[content.Kind][]content.Item) StatsSnapshot {
	snapshot := StatsSnapshot{
		Counts:        make(map[content.Kind]int, len(content.AllKinds)),
		Metrics:       make(map[string]float64),
		Distributions: make(map[string]Distribution),
	}

	total := 0
	for _, kind := range content.AllKinds {
		n := len(itemsByKind[kind])
		snapshot.Counts[kind] = n
		total += n
	}
	snapshot.Metrics["total"] = float64(total)

	published := countWhere(itemsByKind[content.KindBlog], func(i content.Item) bool { return i.Published })
	snapshot.Metrics["publishedBlogs"] = float64(published)
	snapshot.Metrics["draftBlogs"] = float64(len(itemsByKind[content.KindBlog]) - published)

	unread := countWhere(itemsByKind[content.KindMessage], func(i content.Item) bool { return !i.Read })
	snapshot.Metrics["unreadMessages"] = float64(unread)
	snapshot.Metrics["readMessages"] = float64(len(itemsByKind[content.KindMessage]) - unread)

	for kind, metric := range featuredMetrics {
		snapshot.Metrics[metric] = float64(countWhere(itemsByKind[kind], func(i content.Item) bool { return i.Featured }))
	}

	snapshot.Metrics["currentExperience"] = float64(countWhere(itemsByKind[content.KindExperience], func(i content.Item) bool { return i.Current }))

	skills := itemsByKind[content.KindSkill]
	skillsByCategory := distribute(skills, func(i content.Item) string { return i.Category })
	snapshot.Distributions["skillsByCategory"] = skillsByCategory
	snapshot.Metrics["skillCategories"] = float64(len(skillsByCategory.Counts))
	snapshot.Metrics["averageSkillProficiency"] = averageProficiency(skills)

	snapshot.Distributions["achievementsByCategory"] = distribute(itemsByKind[content.KindAchievement], func(i content.Item) string { return i.Category })
	snapshot.Distributions["certificatesByIssuer"] = distribute(itemsByKind[content.KindCertificate], func(i content.Item) string { return i.Issuer })

	return snapshot
}

type PerformanceRow struct {
	Kind     content.Kind `json:"kind"`
	Label    string       `json:"label"`
	Total    int          `json:"total"`
	Featured int          `json:"featured"`
	Recent   int          `json:"recent"`
}

var performanceRows = []struct {
	kind     content.Kind
	label    string
	featured func(content.Item) bool
	dated    bool
}{
	{content.KindProject, "Projects", func(i content.Item) bool { return i.Featured }, true},
	{content.KindBlog, "Blog Posts", func(i content.Item) bool { return i.Published }, true},
	{content.KindTestimonial, "Testimonials", func(i content.Item) bool { return i.Featured }, true},
	{content.KindExperience, "Experience", func(i content.Item) bool { return i.Current }, true},
	{content.KindService, "Services", func(content.Item) bool { return true }, false},
}

// Performance summarizes each headline kind: its size, how much of it is
// featured (published blogs, current roles, every service) and how much
// was created inside r. Services are undated offerings and never count as
// recent.
func Performance(itemsByKind map[content.Kind][]content.Item, r Range, now time.Time) []PerformanceRow {
	start, end := r.Window(now)
	rows := make([]PerformanceRow, 0, len(performanceRows))

	for _, def := range performanceRows {
		items := itemsByKind[def.kind]
		row := PerformanceRow{
			Kind:     def.kind,
			Label:    def.label,
			Total:    len(items),
			Featured: countWhere(items, def.featured),
		}
		if def.dated {
			row.Recent = countWhere(items, func(i content.Item) bool {
				return !i.CreatedAt.Before(start) && i.CreatedAt.Before(end)
			})
		}
		rows = append(rows, row)
	}

	return rows
}

// Percentage returns part/whole*100, or 0 when whole is 0.
func Percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func distribute(items []content.Item, key func(content.Item) string) Distribution {
	dist := Distribution{
		Total:       len(items),
		Counts:      make(map[string]int),
		Percentages: make(map[string]float64),
		Labels:      make(map[string]string),
	}

	for _, item := range items {
		k := strings.ToLower(strings.TrimSpace(key(item)))
		if k == "" {
			k = uncategorized
		}
		dist.Counts[k]++
	}

	title := cases.Title(language.English)
	for k, n := range dist.Counts {
		dist.Percentages[k] = Percentage(n, dist.Total)
		dist.Labels[k] = title.String(strings.NewReplacer("_", " ", "-", " ").Replace(k))
	}

	return dist
}

func averageProficiency(skills []content.Item) float64 {
	if len(skills) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range skills {
		sum += s.Proficiency
	}
	return math.Round(sum / float64(len(skills)))
}

func countWhere(items []content.Item, pred func(content.Item) bool) int {
	n := 0
	for _, item := range items {
		if pred(item) {
			n++
		}
	}
	return n
}
