// Package placeholder implements the substitution passes applied to a
// template's entry document: bootstrap-block replacement, theme CSS
// synthesis, image attribute injection, the social-title strategy
// cascade, data-key scoped replacement and inline {{token}} handling.
//
// Every pass takes the document as a string and returns the rewritten
// string; passes that can fail to find a target for a key with content
// report that as a non-fatal anomaly instead of an error. Passes are
// idempotent: running one over its own output is a no-op.
package placeholder

import (
	"github.com/selfcaststudios/sitecast/internal/errors"
)

// Match records which strategy resolved a key, for observability.
type Match struct {
	Key      string
	Strategy string
}

// PassResult carries a rewritten document plus what happened per key.
type PassResult struct {
	HTML      string
	Matches   []Match
	Anomalies []errors.Anomaly
}
