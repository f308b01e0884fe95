package placeholder

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/selfcaststudios/sitecast/internal/content"
	"github.com/selfcaststudios/sitecast/internal/errors"
)

var titleCaser = cases.Title(language.English)

// DefaultSocialTitle is the visible placeholder text templates ship
// with for a platform's post titles ("Facebook Update").
func DefaultSocialTitle(platform string) string {
	return titleCaser.String(platform) + " Update"
}

// socialStrategy is one step of the ordered matching cascade. It
// returns the rewritten document and whether it matched.
type socialStrategy struct {
	name  string
	apply func(html, key, value, platform string) (string, bool)
}

// The template's literal formatting is not guaranteed byte-for-byte
// after prior edits, so matching runs from strictest to loosest and
// stops at the first success.
var socialStrategies = []socialStrategy{
	{name: "exact", apply: socialExact},
	{name: "scoped-regex", apply: socialScopedRegex},
	{name: "any-element", apply: socialAnyElement},
}

// ApplySocialTitles overwrites the default placeholder titles for every
// per-platform title key that has content. An authored key with content
// and no matching element is recorded as an anomaly and generation
// proceeds; keys in synthesized were cross-filled rather than authored,
// so a template with fewer post slots stays anomaly-free.
func ApplySocialTitles(html string, m content.Map, synthesized content.Synthesized) PassResult {
	result := PassResult{HTML: html}

	for _, platform := range content.Platforms {
		for i := 1; i <= content.PostSlots; i++ {
			key := platform + "_title_" + strconv.Itoa(i)
			value := m[key]
			if value == "" {
				continue
			}

			matched := false
			for _, strategy := range socialStrategies {
				rewritten, ok := strategy.apply(result.HTML, key, value, platform)
				if ok {
					result.HTML = rewritten
					result.Matches = append(result.Matches, Match{Key: key, Strategy: strategy.name})
					matched = true
					break
				}
			}
			if !matched && !synthesized[key] {
				result.Anomalies = append(result.Anomalies, errors.Anomaly{
					Key:     key,
					Message: "title content present but no matching element",
				})
			}
		}
	}

	return result
}

// socialExact replaces the untouched template pattern byte-for-byte.
func socialExact(html, key, value, platform string) (string, bool) {
	pattern := fmt.Sprintf(`<h4 class="post-title" data-key="%s">%s</h4>`, key, DefaultSocialTitle(platform))
	replacement := fmt.Sprintf(`<h4 class="post-title" data-key="%s">%s</h4>`, key, value)

	idx := strings.Index(html, pattern)
	if idx < 0 {
		return html, false
	}
	return html[:idx] + replacement + html[idx+len(pattern):], true
}

// socialScopedRegex matches any h4 carrying the key marker with
// text-only content, preserving the element's own attributes.
func socialScopedRegex(html, key, value, platform string) (string, bool) {
	re := regexp.MustCompile(`(<h4[^>]*\bdata-key="` + regexp.QuoteMeta(key) + `"[^>]*>)[^<]*(</h4>)`)
	return replaceInner(re, html, value)
}

// socialAnyElement is the permissive fallback: any element carrying the
// key marker, regardless of tag or nested content.
func socialAnyElement(html, key, value, platform string) (string, bool) {
	openRe := regexp.MustCompile(`<([a-zA-Z][a-zA-Z0-9]*)[^>]*\bdata-key="` + regexp.QuoteMeta(key) + `"`)
	sub := openRe.FindStringSubmatch(html)
	if sub == nil {
		return html, false
	}
	tag := sub[1]

	re := regexp.MustCompile(`(?s)(<` + tag + `[^>]*\bdata-key="` + regexp.QuoteMeta(key) + `"[^>]*>).*?(</` + tag + `>)`)
	return replaceInner(re, html, value)
}

// replaceInner swaps the captured inner content for value on the first
// match, keeping the open and close tags as captured.
func replaceInner(re *regexp.Regexp, html, value string) (string, bool) {
	idx := re.FindStringSubmatchIndex(html)
	if idx == nil {
		return html, false
	}
	open := html[idx[2]:idx[3]]
	closing := html[idx[4]:idx[5]]
	return html[:idx[0]] + open + value + closing + html[idx[1]:], true
}
