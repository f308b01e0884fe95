package placeholder

import (
	"regexp"

	"github.com/selfcaststudios/sitecast/internal/content"
)

// tokenRe matches well-formed inline tokens: {{some_key}}.
var tokenRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// stragglerRe matches any residual double-brace token, well-formed or
// not, for the final cleanup.
var stragglerRe = regexp.MustCompile(`\{\{[^{}]*\}\}`)

// ReplaceTokens substitutes every {{key}} occurrence with the map value,
// or empty string for unknown keys. Substituted values are not
// re-scanned, so content containing brace sequences cannot trigger a
// second substitution within the same pass.
func ReplaceTokens(doc string, m content.Map) string {
	return tokenRe.ReplaceAllStringFunc(doc, func(token string) string {
		key := tokenRe.FindStringSubmatch(token)[1]
		return m[key]
	})
}

// StripTokens removes whatever double-brace syntax survived the main
// token pass, treating stragglers as "no value". No raw placeholder
// syntax ever reaches the output.
func StripTokens(doc string) string {
	return stragglerRe.ReplaceAllString(doc, "")
}
