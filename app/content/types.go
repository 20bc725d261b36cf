package content

import (
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindProject     Kind = "project"
	KindBlog        Kind = "blog"
	KindMessage     Kind = "message"
	KindTestimonial Kind = "testimonial"
	KindExperience  Kind = "experience"
	KindSkill       Kind = "skill"
	KindService     Kind = "service"
	KindCertificate Kind = "certificate"
	KindAchievement Kind = "achievement"
)

// AllKinds is the canonical fetch order. Feed tie-breaks and normalization
// output follow it.
var AllKinds = []Kind{
	KindProject,
	KindBlog,
	KindMessage,
	KindTestimonial,
	KindExperience,
	KindSkill,
	KindService,
	KindCertificate,
	KindAchievement,
}

var kindAliases = map[string]Kind{
	"projects":     KindProject,
	"blogs":        KindBlog,
	"posts":        KindBlog,
	"messages":     KindMessage,
	"testimonials": KindTestimonial,
	"experiences":  KindExperience,
	"skills":       KindSkill,
	"services":     KindService,
	"certificates": KindCertificate,
	"achievements": KindAchievement,
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range AllKinds {
		if string(k) == s {
			return k, nil
		}
	}
	if k, ok := kindAliases[s]; ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown content kind %q", s)
}

// Position returns the index of k in AllKinds, or len(AllKinds) for unknown kinds.
func (k Kind) Position() int {
	for i, known := range AllKinds {
		if known == k {
			return i
		}
	}
	return len(AllKinds)
}

// Record is a raw collection entry as decoded from the content API.
type Record map[string]any

// Item is the normalized shape shared by every kind. Kind-specific fields
// stay zero for kinds that do not carry them.
type Item struct {
	ID        string
	Kind      Kind
	CreatedAt time.Time

	Title  string
	Name   string
	Author string

	Featured    bool       // project, testimonial, certificate, achievement
	Published   bool       // blog
	PublishedAt *time.Time // blog
	Read        bool       // message
	Email       string     // message
	Subject     string     // message
	Company     string     // testimonial
	Role        string     // testimonial, experience
	Current     bool       // experience
	Category    string     // skill, achievement
	Proficiency float64    // skill
	Issuer      string     // certificate
}

// Label is the human name used in feeds: title, then name, then id.
func (i Item) Label() string {
	if i.Title != "" {
		return i.Title
	}
	if i.Name != "" {
		return i.Name
	}
	return i.ID
}
