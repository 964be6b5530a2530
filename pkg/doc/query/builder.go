/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package query

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/PaesslerAG/gval"
	"github.com/PaesslerAG/jsonpath"
	"github.com/pkg/errors"

	"github.com/credentive/sdcore/pkg/doc/claimpath"
	"github.com/credentive/sdcore/pkg/doc/engine"
)

// nolint:gochecknoglobals
var pathLanguage = gval.Full(jsonpath.PlaceholderExtension())

// BuildMatch evaluates one credential query against a credential's resolved
// claims and produces the disclosure match the engine consumes.
//
// claims is the credential's clear-text claim document (for mdoc
// credentials: namespaces mapped to attribute/value maps). available is the
// full set of paths the holder can disclose for this credential; mandatory
// are the always-disclosed paths. A required path counts as matched when it
// resolves against claims and, if the claim query lists values, the resolved
// value equals one of them.
func BuildMatch[C any](cq *CredentialQuery, credential C, claims map[string]interface{},
	available, mandatory claimpath.Set) (*engine.DisclosureMatch[C], error) {
	required, err := cq.ClaimPaths()
	if err != nil {
		return nil, errors.Wrapf(err, "credential query '%s'", cq.ID)
	}

	matched := claimpath.NewSet()

	for _, claim := range cq.Claims {
		p, err := cq.claimPath(claim)
		if err != nil {
			return nil, errors.Wrapf(err, "credential query '%s'", cq.ID)
		}

		value, found := resolvePath(p, claims)
		if !found {
			continue
		}

		if len(claim.Values) > 0 && !valueMatches(value, claim.Values) {
			continue
		}

		matched.Add(p)
	}

	format := claimpath.FormatJSON
	if cq.Format == FormatMdoc {
		format = claimpath.FormatMdoc
	}

	return &engine.DisclosureMatch[C]{
		Credential:     credential,
		RequirementID:  cq.ID,
		RequiredPaths:  required,
		MatchedPaths:   matched,
		AvailablePaths: available,
		MandatoryPaths: mandatory,
		Format:         format,
	}, nil
}

// resolvePath evaluates a claim path against the claim document with a
// JSONPath expression. Evaluation failure means the claim is absent, never
// an error: partial matches are legitimate.
func resolvePath(p claimpath.Path, claims map[string]interface{}) (interface{}, bool) {
	eval, err := pathLanguage.NewEvaluable(jsonPathFor(p))
	if err != nil {
		return nil, false
	}

	value, err := eval(context.Background(), interface{}(claims))
	if err != nil {
		return nil, false
	}

	return value, true
}

// jsonPathFor renders a claim path as a bracket-notation JSONPath
// expression, e.g. $["address"]["street_address"] or $["nationalities"][0].
func jsonPathFor(p claimpath.Path) string {
	var b strings.Builder

	b.WriteString("$")

	for _, seg := range p.Segments() {
		if isAllDigits(seg) || strings.HasPrefix(seg, "-") {
			fmt.Fprintf(&b, "[%s]", seg)
			continue
		}

		fmt.Fprintf(&b, "[%q]", seg)
	}

	return b.String()
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}

	return true
}

// valueMatches compares the resolved claim value against the claim query's
// allowed values, tolerating the numeric type differences JSON decoding
// introduces.
func valueMatches(value interface{}, allowed []interface{}) bool {
	for _, candidate := range allowed {
		if reflect.DeepEqual(normalize(value), normalize(candidate)) {
			return true
		}
	}

	return false
}

func normalize(v interface{}) interface{} {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}

		return n.String()
	default:
		return v
	}
}
