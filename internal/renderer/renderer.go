// Package renderer turns a template's entry document plus a project's
// content map into final HTML by running the substitution passes in a
// fixed order.
package renderer

import (
	"context"

	"github.com/selfcaststudios/sitecast/internal/content"
	"github.com/selfcaststudios/sitecast/internal/errors"
	"github.com/selfcaststudios/sitecast/internal/logging"
	"github.com/selfcaststudios/sitecast/internal/placeholder"
)

// Report aggregates what every pass did to the document: which keys
// were resolved by which strategy, and which keys had content but no
// matching target. Anomalies are informational; a render with
// anomalies still produced a complete document.
type Report struct {
	Matches   []placeholder.Match
	Anomalies []errors.Anomaly
}

// Renderer applies the substitution pipeline. It is stateless and safe
// for concurrent use.
type Renderer struct {
	logger logging.Logger
}

// New returns a Renderer that logs pass anomalies through logger.
func New(logger logging.Logger) *Renderer {
	return &Renderer{logger: logger.WithComponent("renderer")}
}

// Render runs the full pipeline over the document. Pass order is part
// of the output contract:
//
//  1. bootstrap block, so the embedded data reflects the map before
//     any markup edits
//  2. image attributes, before the text pass can see image keys
//  3. theme CSS
//  4. social title cascade, which needs the pristine title markup
//  5. data-key scoped text replacement
//  6. inline tokens, then straggler cleanup
//
// Rendering never fails on content/template mismatches; those surface
// in the report. The only error path is bootstrap serialization.
// synthesized identifies cross-filled map entries whose placement
// failures are not worth reporting; nil means every entry is authored.
func (r *Renderer) Render(ctx context.Context, doc string, m content.Map, synthesized content.Synthesized) (string, Report, error) {
	var report Report

	doc, err := placeholder.ReplaceBootstrap(doc, m)
	if err != nil {
		return "", report, errors.Generation("bootstrap_serialize", "serializing embedded content block").WithCause(err)
	}

	images := placeholder.ApplyImages(doc, m)
	report.absorb(images)

	theme := placeholder.InjectTheme(images.HTML, m)
	report.absorb(theme)

	social := placeholder.ApplySocialTitles(theme.HTML, m, synthesized)
	report.absorb(social)

	doc = placeholder.ApplyDataKeys(social.HTML, m)
	doc = placeholder.StripTokens(placeholder.ReplaceTokens(doc, m))

	for _, a := range report.Anomalies {
		r.logger.Warn(ctx, nil, "content key had no target in template",
			"key", a.Key,
			"detail", a.Message,
		)
	}

	return doc, report, nil
}

func (rep *Report) absorb(res placeholder.PassResult) {
	rep.Matches = append(rep.Matches, res.Matches...)
	rep.Anomalies = append(rep.Anomalies, res.Anomalies...)
}
