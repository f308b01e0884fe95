package placeholder

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/selfcaststudios/sitecast/internal/content"
	"github.com/selfcaststudios/sitecast/internal/errors"
)

// ProfileImageKey is the content key bound to the profile <img>.
const ProfileImageKey = "profile_image_url"

// BannerImageKeys are the banner slots substituted as background images.
var BannerImageKeys = []string{"banner_image_url_1", "banner_image_url_2", "banner_image_url_3"}

var (
	profileDataKeySrcRe = regexp.MustCompile(`(<img[^>]*\bdata-key="profile_image_url"[^>]*\bsrc=")[^"]*(")`)
	profileSrcDataKeyRe = regexp.MustCompile(`(<img[^>]*\bsrc=")[^"]*("[^>]*\bdata-key="profile_image_url")`)
	profileClassSrcRe   = regexp.MustCompile(`(<img[^>]*\bclass="[^"]*profile-image[^"]*"[^>]*\bsrc=")[^"]*(")`)
	profileSrcClassRe   = regexp.MustCompile(`(<img[^>]*\bsrc=")[^"]*("[^>]*\bclass="[^"]*profile-image[^"]*")`)

	backgroundImageRe = regexp.MustCompile(`background-image:\s*url\([^)]*\)`)
	styleAttrRe       = regexp.MustCompile(`\bstyle="([^"]*)"`)
)

// ApplyImages substitutes image URL content: the profile image into the
// matching img src attribute, banner images as inline background-image
// styles on their marked elements. Elements genuinely absent from the
// template are tolerated; a key with content and no target is an
// anomaly.
func ApplyImages(html string, m content.Map) PassResult {
	result := PassResult{HTML: html}

	if url := m[ProfileImageKey]; url != "" {
		replaced := false
		for _, candidate := range []struct {
			re       *regexp.Regexp
			strategy string
		}{
			{profileDataKeySrcRe, "data-key-src"},
			{profileSrcDataKeyRe, "src-data-key"},
			{profileClassSrcRe, "class-src"},
			{profileSrcClassRe, "src-class"},
		} {
			if candidate.re.MatchString(result.HTML) {
				result.HTML = candidate.re.ReplaceAllStringFunc(result.HTML, func(match string) string {
					sub := candidate.re.FindStringSubmatch(match)
					return sub[1] + url + sub[2]
				})
				if !replaced {
					result.Matches = append(result.Matches, Match{Key: ProfileImageKey, Strategy: candidate.strategy})
					replaced = true
				}
			}
		}
		if !replaced {
			result.Anomalies = append(result.Anomalies, errors.Anomaly{
				Key:     ProfileImageKey,
				Message: "profile image content present but no matching img element",
			})
		}
	}

	for _, key := range BannerImageKeys {
		url := m[key]
		if url == "" {
			continue
		}
		html, matched := applyBanner(result.HTML, key, url)
		result.HTML = html
		if matched {
			result.Matches = append(result.Matches, Match{Key: key, Strategy: "background-image"})
		} else {
			result.Anomalies = append(result.Anomalies, errors.Anomaly{
				Key:     key,
				Message: "banner image content present but no marked element",
			})
		}
	}

	return result
}

// applyBanner sets an inline background-image on the element carrying
// the key's data-key marker, replacing an existing declaration so reruns
// converge.
func applyBanner(html, key, url string) (string, bool) {
	openTagRe := regexp.MustCompile(`<[a-zA-Z][a-zA-Z0-9]*[^>]*\bdata-key="` + regexp.QuoteMeta(key) + `"[^>]*>`)
	declaration := fmt.Sprintf("background-image: url('%s')", url)

	matched := false
	html = openTagRe.ReplaceAllStringFunc(html, func(tag string) string {
		matched = true

		if idx := styleAttrRe.FindStringSubmatchIndex(tag); idx != nil {
			style := tag[idx[2]:idx[3]]
			if backgroundImageRe.MatchString(style) {
				style = backgroundImageRe.ReplaceAllLiteralString(style, declaration)
			} else {
				style = strings.TrimRight(style, "; ")
				if style != "" {
					style += "; "
				}
				style += declaration
			}
			return tag[:idx[0]] + `style="` + style + `"` + tag[idx[1]:]
		}

		// No style attribute yet: add one just before the tag close.
		if strings.HasSuffix(tag, "/>") {
			return tag[:len(tag)-2] + ` style="` + declaration + `"/>`
		}
		return tag[:len(tag)-1] + ` style="` + declaration + `">`
	})

	return html, matched
}
