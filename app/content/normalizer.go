package content

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

const subjectPreviewLength = 50

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize flattens raw collections into items. Kinds are visited in
// AllKinds order so the output is stable for a given input. Records with
// a missing id or an unparseable created_at are dropped.
func Normalize(raw map[Kind][]Record) []Item {
	items := make([]Item, 0)

	for _, kind := range AllKinds {
		for i, record := range raw[kind] {
			item, err := normalizeRecord(kind, record)
			if err != nil {
				slog.Debug("Dropping malformed record", "kind", kind, "index", i, "error", err)
				continue
			}
			items = append(items, item)
		}
	}

	return items
}

// GroupByKind returns a map with an entry (possibly empty) for every known kind.
func GroupByKind(items []Item) map[Kind][]Item {
	grouped := make(map[Kind][]Item, len(AllKinds))
	for _, kind := range AllKinds {
		grouped[kind] = []Item{}
	}
	for _, item := range items {
		grouped[item.Kind] = append(grouped[item.Kind], item)
	}
	return grouped
}

// CountUnread counts message records whose read flag is false. Dates are
// not required here.
func CountUnread(records []Record) int {
	count := 0
	for _, record := range records {
		if record == nil {
			continue
		}
		if !boolField(record, "read", "is_read") {
			count++
		}
	}
	return count
}

func normalizeRecord(kind Kind, record Record) (Item, error) {
	if record == nil {
		return Item{}, fmt.Errorf("nil record")
	}

	id := stringField(record, "id", "_id")
	if id == "" {
		return Item{}, fmt.Errorf("missing id")
	}

	createdAt, ok := timeField(record, "created_at", "createdAt")
	if !ok {
		return Item{}, fmt.Errorf("invalid created_at for id %s", id)
	}

	item := Item{
		ID:        id,
		Kind:      kind,
		CreatedAt: createdAt,
		Title:     stringField(record, "title"),
		Name:      stringField(record, "name"),
		Author:    stringField(record, "author"),
		Featured:  boolField(record, "featured"),
	}

	switch kind {
	case KindBlog:
		item.Published = boolField(record, "published")
		if publishedAt, ok := timeField(record, "published_at", "publishedAt"); ok {
			item.PublishedAt = &publishedAt
		}
	case KindMessage:
		item.Read = boolField(record, "read", "is_read")
		item.Email = stringField(record, "email")
		item.Subject = stringField(record, "subject")
		if item.Subject == "" {
			item.Subject = preview(stringField(record, "message"), subjectPreviewLength)
		}
	case KindTestimonial:
		item.Company = stringField(record, "company")
		item.Role = stringField(record, "role")
	case KindExperience:
		item.Company = stringField(record, "company")
		item.Role = stringField(record, "position")
		item.Current = boolField(record, "current")
		if item.Title == "" {
			item.Title = item.Role
		}
	case KindSkill:
		item.Category = stringField(record, "category")
		item.Proficiency = numberField(record, "proficiency")
	case KindAchievement:
		item.Category = stringField(record, "category")
	case KindCertificate:
		item.Issuer = stringField(record, "issuer")
	}

	return item, nil
}

func stringField(record Record, keys ...string) string {
	for _, key := range keys {
		switch v := record[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			if v == math.Trunc(v) {
				return strconv.FormatInt(int64(v), 10)
			}
			return strconv.FormatFloat(v, 'f', -1, 64)
		case json.Number:
			return v.String()
		case int:
			return strconv.Itoa(v)
		case int64:
			return strconv.FormatInt(v, 10)
		}
	}
	return ""
}

func boolField(record Record, keys ...string) bool {
	for _, key := range keys {
		switch v := record[key].(type) {
		case bool:
			return v
		case float64:
			return v != 0
		case int:
			return v != 0
		case int64:
			return v != 0
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f != 0
			}
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err == nil {
				return b
			}
		}
	}
	return false
}

func numberField(record Record, keys ...string) float64 {
	for _, key := range keys {
		switch v := record[key].(type) {
		case float64:
			return v
		case int:
			return float64(v)
		case int64:
			return float64(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				return f
			}
		}
	}
	return 0
}

func timeField(record Record, keys ...string) (time.Time, bool) {
	for _, key := range keys {
		switch v := record[key].(type) {
		case string:
			if t, ok := ParseTime(v); ok {
				return t, true
			}
		case float64:
			return time.UnixMilli(int64(v)).UTC(), true
		case int64:
			return time.UnixMilli(v).UTC(), true
		case json.Number:
			if ms, err := v.Int64(); err == nil {
				return time.UnixMilli(ms).UTC(), true
			}
		case time.Time:
			if !v.IsZero() {
				return v, true
			}
		}
	}
	return time.Time{}, false
}

// ParseTime accepts the timestamp layouts the content API is known to emit.
// Layouts without an offset are read as UTC.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
