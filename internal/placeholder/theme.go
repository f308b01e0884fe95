package placeholder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/selfcaststudios/sitecast/internal/content"
	"github.com/selfcaststudios/sitecast/internal/errors"
)

// themeStyleRe matches the designated style container the theme CSS is
// injected into.
var themeStyleRe = regexp.MustCompile(`(?s)<style[^>]*\bid="dynamic-theme"[^>]*>.*?</style>`)

var themeStyleOpenRe = regexp.MustCompile(`<style[^>]*\bid="dynamic-theme"[^>]*>`)

// themeDefaults mirrors the fallback values the template's runtime
// script uses, so a missing color never renders as empty CSS.
var themeDefaults = map[string]string{
	"primary_color":    "#3498db",
	"secondary_color":  "#2c3e50",
	"accent_color":     "#e74c3c",
	"text_color":       "#333333",
	"background_color": "#ffffff",
	"heading_font":     "Roboto",
	"body_font":        "Open Sans",
}

func themeValue(m content.Map, key string) string {
	if v := m[key]; v != "" {
		return v
	}
	return themeDefaults[key]
}

// ThemeCSS synthesizes the custom-property block for the content map.
func ThemeCSS(m content.Map) string {
	var b strings.Builder
	b.WriteString(":root {\n")
	for _, key := range []string{"primary_color", "secondary_color", "accent_color", "text_color", "background_color"} {
		fmt.Fprintf(&b, "    --%s: %s;\n", strings.ReplaceAll(key, "_", "-"), themeValue(m, key))
	}
	fmt.Fprintf(&b, "    --heading-font: '%s', sans-serif;\n", themeValue(m, "heading_font"))
	fmt.Fprintf(&b, "    --body-font: '%s', sans-serif;\n", themeValue(m, "body_font"))
	b.WriteString("}")
	return b.String()
}

// InjectTheme replaces the body of the dynamic-theme style container
// with the synthesized CSS block. Injection happens once per document;
// per-element color substitution is deliberately avoided. A key with
// color content but no container is a recorded anomaly.
func InjectTheme(html string, m content.Map) PassResult {
	result := PassResult{HTML: html}

	loc := themeStyleRe.FindStringIndex(html)
	if loc == nil {
		for key, class := range m.Classes() {
			if class.Kind == content.KindColor && m[key] != "" {
				result.Anomalies = append(result.Anomalies, errors.Anomaly{
					Key:     key,
					Message: "color content present but no dynamic-theme style container in template",
				})
				break
			}
		}
		return result
	}

	open := themeStyleOpenRe.FindString(html[loc[0]:loc[1]])
	replacement := open + "\n" + ThemeCSS(m) + "\n</style>"

	result.HTML = html[:loc[0]] + replacement + html[loc[1]:]
	result.Matches = append(result.Matches, Match{Key: "theme", Strategy: "style-container"})
	return result
}
