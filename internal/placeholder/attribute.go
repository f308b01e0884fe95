package placeholder

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/selfcaststudios/sitecast/internal/content"
)

// DataKeyAttr is the identifier attribute binding elements to content
// keys. It is never consumed by rendering -- the client script uses it
// for late binding.
const DataKeyAttr = "data-key"

// DocumentKeys walks the document with an HTML tokenizer and returns
// every data-key value in first-appearance order, without duplicates.
func DocumentKeys(doc string) []string {
	tokenizer := html.NewTokenizer(strings.NewReader(doc))

	var keys []string
	seen := make(map[string]bool)

	for {
		tt := tokenizer.Next()
		if tt == html.ErrorToken {
			return keys
		}
		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			continue
		}

		_, hasAttr := tokenizer.TagName()
		for hasAttr {
			var k, v []byte
			k, v, hasAttr = tokenizer.TagAttr()
			if string(k) == DataKeyAttr {
				key := string(v)
				if key != "" && !seen[key] {
					seen[key] = true
					keys = append(keys, key)
				}
			}
		}
	}
}

// ApplyDataKeys replaces the inner content of every text-only element
// whose data-key has an entry in the content map. Elements bound to
// keys the map does not know stay untouched for client-side late
// binding; the marker attribute is always preserved. Image-class keys
// substitute into attributes, not text, and social title keys belong
// to the strategy cascade, so both are skipped here.
func ApplyDataKeys(doc string, m content.Map) string {
	for _, key := range DocumentKeys(doc) {
		value, ok := m[key]
		if !ok {
			continue
		}
		switch content.ClassifyKey(key).Kind {
		case content.KindImageURL, content.KindSocialTitle:
			continue
		}

		re := regexp.MustCompile(
			`(<[a-zA-Z][^>]*\b` + DataKeyAttr + `="` + regexp.QuoteMeta(key) + `"[^>]*>)[^<]*(</)`)
		doc = re.ReplaceAllStringFunc(doc, func(match string) string {
			sub := re.FindStringSubmatch(match)
			return sub[1] + value + sub[2]
		})
	}
	return doc
}
