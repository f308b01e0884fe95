package placeholder

import (
	"encoding/json"
	"regexp"

	"github.com/selfcaststudios/sitecast/internal/content"
)

// bootstrapHeadRe locates the start of the designated embedded data
// block in the entry document. Only the first occurrence is replaced.
var bootstrapHeadRe = regexp.MustCompile(`window\.siteContent\s*=\s*\{`)

// ReplaceBootstrap replaces the window.siteContent assignment with a
// JSON serialization of the full content map, so the generated page
// renders without a live API call. json.Marshal escapes '<' and sorts
// map keys, which keeps the block script-safe and deterministic; the
// block always parses as valid data afterwards because every value is a
// plain string by the time it reaches the map.
//
// The end of the block is found by walking to the balanced closing
// brace, honoring string literals and comments, so values containing
// "};" do not truncate the match when a resolved document is resolved
// again.
func ReplaceBootstrap(html string, m content.Map) (string, error) {
	payload, err := json.Marshal(map[string]string(m))
	if err != nil {
		// Unreachable for map[string]string, kept for interface safety.
		return html, err
	}

	head := bootstrapHeadRe.FindStringIndex(html)
	if head == nil {
		return html, nil
	}

	end, ok := scanObjectEnd(html, head[1]-1)
	if !ok {
		return html, nil
	}

	rest := end + 1
	if rest < len(html) && html[rest] == ';' {
		rest++
	}

	return html[:head[0]] + "window.siteContent = " + string(payload) + ";" + html[rest:], nil
}

// scanObjectEnd walks from the opening brace at start to its balanced
// closing brace. String literals (with backslash escapes) and JS
// comments are skipped so braces inside them do not count.
func scanObjectEnd(s string, start int) (int, bool) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch c := s[i]; c {
		case '"', '\'', '`':
			for i++; i < len(s); i++ {
				if s[i] == '\\' {
					i++
				} else if s[i] == c {
					break
				}
			}
		case '/':
			if i+1 < len(s) && s[i+1] == '/' {
				for i++; i < len(s) && s[i] != '\n'; i++ {
				}
			} else if i+1 < len(s) && s[i+1] == '*' {
				for i += 2; i+1 < len(s); i++ {
					if s[i] == '*' && s[i+1] == '/' {
						i++
						break
					}
				}
			}
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, true
			}
		}
	}
	return 0, false
}
