package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func itemList(list ...ContentItem) []ContentItem {
	return list
}

func TestClassifyKey(t *testing.T) {
	tests := []struct {
		key      string
		kind     FieldKind
		platform string
		index    int
	}{
		{"primary_color", KindColor, "", 0},
		{"background_color", KindColor, "", 0},
		{"profile_image_url", KindImageURL, "", 0},
		{"banner_image_url_2", KindImageURL, "", 0},
		{"bio_html", KindHTML, "", 0},
		{"rendered_bio_html", KindHTML, "", 0},
		{"facebook_title_1", KindSocialTitle, "facebook", 1},
		{"linkedin_title_4", KindSocialTitle, "linkedin", 4},
		{"facebook_title_5", KindPlainText, "", 0},
		{"myspace_title_1", KindPlainText, "", 0},
		{"rendered_title", KindPlainText, "", 0},
		{"quote_1", KindPlainText, "", 0},
	}

	for _, tt := range tests {
		class := ClassifyKey(tt.key)
		assert.Equal(t, tt.kind, class.Kind, "kind of %s", tt.key)
		assert.Equal(t, tt.platform, class.Platform, "platform of %s", tt.key)
		assert.Equal(t, tt.index, class.Index, "index of %s", tt.key)
	}
}

func TestBuildMapCurrentYear(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	m, _ := BuildMap(itemList(), MapOptions{Now: now})
	assert.Equal(t, "2026", m["current_year"])
}

func TestBuildMapAliasPropagation(t *testing.T) {
	m, _ := BuildMap(itemList(
		ContentItem{Key: "rendered_title", Value: "Hi"},
		ContentItem{Key: "rendered_bio_html", Value: "<p>About me</p>"},
		ContentItem{Key: "blog_2", Value: "Second post"},
	), MapOptions{})

	assert.Equal(t, "Hi", m["title"])
	assert.Equal(t, "<p>About me</p>", m["bio_html"])
	assert.Equal(t, "Second post", m["rendered_blog_post_2"])
}

func TestBuildMapAliasDoesNotOverwrite(t *testing.T) {
	m, _ := BuildMap(itemList(
		ContentItem{Key: "rendered_title", Value: "Rendered"},
		ContentItem{Key: "title", Value: "Explicit"},
	), MapOptions{})

	assert.Equal(t, "Explicit", m["title"])
}

func TestBuildMapCrossFillFromFirstPost(t *testing.T) {
	m, _ := BuildMap(itemList(
		ContentItem{Key: "facebook_title_1", Value: "Launch Day"},
	), MapOptions{})

	assert.Equal(t, "Launch Day", m["facebook_title"])
	// The platform-level title then backfills the empty slots.
	assert.Equal(t, "Launch Day", m["facebook_title_2"])
	assert.Equal(t, "Launch Day", m["facebook_title_4"])
}

func TestBuildMapCrossFillFromPlatformTitle(t *testing.T) {
	m, _ := BuildMap(itemList(
		ContentItem{Key: "twitter_title", Value: "Weekly Thread"},
		ContentItem{Key: "twitter_title_3", Value: "Special Edition"},
	), MapOptions{})

	assert.Equal(t, "Weekly Thread", m["twitter_title_1"])
	assert.Equal(t, "Special Edition", m["twitter_title_3"])
	assert.Equal(t, "Weekly Thread", m["twitter_title_4"])
}

func TestBuildMapMarksCrossFilledTitles(t *testing.T) {
	m, synthesized := BuildMap(itemList(
		ContentItem{Key: "facebook_title_1", Value: "Launch Day"},
	), MapOptions{})

	// The authored slot stays authored; only the backfilled slots are
	// marked as synthesized.
	assert.False(t, synthesized["facebook_title_1"])
	assert.True(t, synthesized["facebook_title_2"])
	assert.True(t, synthesized["facebook_title_3"])
	assert.True(t, synthesized["facebook_title_4"])
	assert.Equal(t, "Launch Day", m["facebook_title_4"])

	// Untouched platforms contribute nothing.
	assert.False(t, synthesized["twitter_title_1"])
}

func TestBuildMapRequiredDefaults(t *testing.T) {
	m, _ := BuildMap(itemList(), MapOptions{})

	for _, key := range []string{
		"primary_color", "secondary_color", "accent_color", "text_color",
		"background_color", "heading_font", "body_font",
		"rendered_blog_post_1", "rendered_blog_post_4",
		"facebook_title_1", "linkedin_post_4", "instagram_post_2",
	} {
		v, ok := m[key]
		assert.True(t, ok, "required key %s missing", key)
		assert.Equal(t, "", v, "required key %s should default to empty", key)
	}
}

func TestBuildMapNeverUndefined(t *testing.T) {
	m, _ := BuildMap(itemList(), MapOptions{})
	for key, value := range m {
		assert.NotEqual(t, "undefined", value, "key %s", key)
		assert.NotEqual(t, "null", value, "key %s", key)
	}
}

func TestBuildMapSanitizeHTML(t *testing.T) {
	m, _ := BuildMap(itemList(
		ContentItem{Key: "bio_html", Value: `<p>Hello</p><script>alert(1)</script>`},
		ContentItem{Key: "rendered_title", Value: `<script>keep</script>`},
	), MapOptions{SanitizeHTML: true})

	assert.Equal(t, "<p>Hello</p>", m["bio_html"])
	// Only *_html keys are sanitized.
	assert.Equal(t, "<script>keep</script>", m["rendered_title"])
}

func TestProjectItem(t *testing.T) {
	p := &Project{Content: []ContentItem{{Key: "style_package", Value: "modern"}}}

	v, ok := p.Item("style_package")
	assert.True(t, ok)
	assert.Equal(t, "modern", v)

	_, ok = p.Item("missing")
	assert.False(t, ok)
}
