// Package content defines the persisted content model (Project,
// ContentItem) and the derived ContentMap used during rendering.
//
// A ContentMap is an ephemeral flattening of a project's key/value items
// with synthesized entries added before rendering: the current year,
// alias propagation between rendered_* and bare keys, social title
// cross-filling, and empty-string defaults for the required key set so
// templates never render literal "undefined" text.
package content

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// ContentItem is one key/value pair belonging to a Project. Values are
// free-form text, HTML fragments, URLs or color codes depending on key
// naming convention.
type ContentItem struct {
	Key   string `bson:"key" json:"key"`
	Value string `bson:"value" json:"value"`
}

// Project is the persisted unit: a unique string id owning an ordered
// collection of content items with unique keys.
type Project struct {
	ProjectID string        `bson:"projectId" json:"projectId"`
	Content   []ContentItem `bson:"content" json:"content"`
	CreatedAt time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Item returns the value for key and whether it exists.
func (p *Project) Item(key string) (string, bool) {
	for _, item := range p.Content {
		if item.Key == key {
			return item.Value, true
		}
	}
	return "", false
}

// Platforms lists the social platforms with per-index title/post slots.
var Platforms = []string{"facebook", "twitter", "instagram", "linkedin"}

// PostSlots is the number of per-platform post slots.
const PostSlots = 4

// FieldKind is the typed classification of a content key, resolved once
// at ContentMap build time instead of re-derived from naming conventions
// in each rendering pass.
type FieldKind int

const (
	KindPlainText FieldKind = iota
	KindColor
	KindImageURL
	KindHTML
	KindSocialTitle
)

// String returns the string representation of the field kind.
func (k FieldKind) String() string {
	switch k {
	case KindColor:
		return "color"
	case KindImageURL:
		return "image_url"
	case KindHTML:
		return "html"
	case KindSocialTitle:
		return "social_title"
	default:
		return "plain_text"
	}
}

// FieldClass carries the kind plus platform/index for social titles.
type FieldClass struct {
	Kind     FieldKind
	Platform string
	Index    int
}

var socialTitleRe = regexp.MustCompile(`^(facebook|twitter|instagram|linkedin)_title_([1-4])$`)

// ClassifyKey resolves the field class of a content key.
func ClassifyKey(key string) FieldClass {
	if m := socialTitleRe.FindStringSubmatch(key); m != nil {
		index, _ := strconv.Atoi(m[2])
		return FieldClass{Kind: KindSocialTitle, Platform: m[1], Index: index}
	}
	switch {
	case strings.HasSuffix(key, "_color"):
		return FieldClass{Kind: KindColor}
	case strings.HasSuffix(key, "_image_url") || bannerImageRe.MatchString(key):
		return FieldClass{Kind: KindImageURL}
	case strings.HasSuffix(key, "_html"):
		return FieldClass{Kind: KindHTML}
	default:
		return FieldClass{Kind: KindPlainText}
	}
}

var bannerImageRe = regexp.MustCompile(`^banner_image_url_[1-3]$`)

// Map is the derived, render-time view of a project's content.
type Map map[string]string

// Classes returns the field class for every key in the map.
func (m Map) Classes() map[string]FieldClass {
	classes := make(map[string]FieldClass, len(m))
	for key := range m {
		classes[key] = ClassifyKey(key)
	}
	return classes
}

// MapOptions controls ContentMap derivation.
type MapOptions struct {
	// Now supplies the render timestamp; the zero value means time.Now.
	Now time.Time
	// SanitizeHTML runs *_html values through a bluemonday UGC policy.
	SanitizeHTML bool
}

// aliases maps a target key to the source it is copied from when the
// target is absent.
var aliases = [][2]string{
	{"title", "rendered_title"},
	{"subtitle", "rendered_subtitle"},
	{"bio_html", "rendered_bio_html"},
}

// requiredKeys is the fixed set defaulted to empty string so templates
// never see a missing entry.
func requiredKeys() []string {
	keys := []string{
		"primary_color", "secondary_color", "accent_color",
		"text_color", "background_color",
		"heading_font", "body_font",
	}
	for i := 1; i <= PostSlots; i++ {
		keys = append(keys, "rendered_blog_post_"+strconv.Itoa(i))
	}
	for _, platform := range Platforms {
		for i := 1; i <= PostSlots; i++ {
			n := strconv.Itoa(i)
			keys = append(keys, platform+"_title_"+n, platform+"_post_"+n)
		}
	}
	return keys
}

// Synthesized marks map keys whose values were derived during BuildMap
// rather than authored. Rendering skips anomaly reporting for these:
// a backfilled title slot with no matching template element is not a
// placement failure, because the author never wrote that slot.
type Synthesized map[string]bool

// BuildMap flattens a project's content items into a Map with all
// derived entries applied, returning the set of cross-filled title keys
// alongside it. Later items win on duplicate keys, matching the store's
// last-write semantics.
func BuildMap(items []ContentItem, opts MapOptions) (Map, Synthesized) {
	m := make(Map, len(items)+32)
	for _, item := range items {
		m[item.Key] = item.Value
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	m["current_year"] = strconv.Itoa(now.Year())

	for _, alias := range aliases {
		target, source := alias[0], alias[1]
		if _, ok := m[target]; !ok {
			if v, ok := m[source]; ok {
				m[target] = v
			}
		}
	}
	for i := 1; i <= PostSlots; i++ {
		n := strconv.Itoa(i)
		rendered, bare := "rendered_blog_post_"+n, "blog_"+n
		if _, ok := m[rendered]; !ok {
			if v, ok := m[bare]; ok {
				m[rendered] = v
			}
		}
	}

	synthesized := crossFillSocialTitles(m)

	for _, key := range requiredKeys() {
		if _, ok := m[key]; !ok {
			m[key] = ""
		}
	}

	if opts.SanitizeHTML {
		policy := bluemonday.UGCPolicy()
		for key, value := range m {
			if ClassifyKey(key).Kind == KindHTML && value != "" {
				m[key] = policy.Sanitize(value)
			}
		}
	}

	return m, synthesized
}

// crossFillSocialTitles propagates titles between the platform-level key
// and the per-index keys: a titled first post backfills the platform
// default, and a platform-level title backfills empty per-index slots.
// The returned set holds every per-index key the cross-fill wrote.
func crossFillSocialTitles(m Map) Synthesized {
	synthesized := make(Synthesized)
	for _, platform := range Platforms {
		platformKey := platform + "_title"

		if v := m[platform+"_title_1"]; v != "" && m[platformKey] == "" {
			m[platformKey] = v
		}

		if v := m[platformKey]; v != "" {
			for i := 1; i <= PostSlots; i++ {
				indexKey := platform + "_title_" + strconv.Itoa(i)
				if m[indexKey] == "" {
					m[indexKey] = v
					synthesized[indexKey] = true
				}
			}
		}
	}
	return synthesized
}
