/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package query models the DCQL credential queries a verifier sends and
// converts them into the path sets and disclosure matches the computation
// engine consumes. Only the claim-addressing subset of DCQL is interpreted
// here; trust-framework and credential-set constraints belong to the outer
// presentation layer.
package query

import (
	"encoding/json"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"

	"github.com/credentive/sdcore/pkg/doc/claimpath"
)

// Credential format identifiers used by DCQL.
const (
	FormatSDJWT = "dc+sd-jwt"
	FormatMdoc  = "mso_mdoc"
)

// Query is a DCQL query.
type Query struct {
	Credentials    []CredentialQuery    `json:"credentials"`
	CredentialSets []CredentialSetQuery `json:"credential_sets,omitempty"`
}

// CredentialQuery requests a single credential.
type CredentialQuery struct {
	// ID identifies the requirement in the response. Unique within a
	// query.
	ID     string          `json:"id"`
	Format string          `json:"format"`
	Meta   *CredentialMeta `json:"meta,omitempty"`
	Claims []ClaimQuery    `json:"claims"`
}

// CredentialMeta carries format-specific metadata constraints.
type CredentialMeta struct {
	VCTValues    []string `json:"vct_values,omitempty"`
	DoctypeValue string   `json:"doctype_value,omitempty"`
}

// ClaimQuery requests a single claim. Path elements are strings (object
// keys) or integers (array indices / CBOR keys); for mdoc credentials the
// path is the namespace/attribute pair.
type ClaimQuery struct {
	Path []interface{} `json:"path"`

	// Values, when present, restricts the match to credentials whose
	// claim value equals one of the listed values.
	Values []interface{} `json:"values,omitempty"`
}

// CredentialSetQuery constrains which combinations of credential queries
// satisfy the verifier's use case.
type CredentialSetQuery struct {
	Options  [][]string `json:"options"`
	Required *bool      `json:"required,omitempty"`
}

// ParseQuery parses a DCQL query from JSON.
func ParseQuery(raw []byte) (*Query, error) {
	var q Query

	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, errors.Wrap(err, "parse DCQL query")
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}

	return &q, nil
}

// DecodeQuery decodes a DCQL query from a generic map, as delivered inside
// authorization request objects.
func DecodeQuery(raw map[string]interface{}) (*Query, error) {
	var q Query

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName: "json",
		Result:  &q,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create DCQL decoder")
	}

	if err := dec.Decode(raw); err != nil {
		return nil, errors.Wrap(err, "decode DCQL query")
	}

	if err := q.Validate(); err != nil {
		return nil, err
	}

	return &q, nil
}

// Validate enforces the DCQL rules this package depends on: non-empty
// credential ids, unique ids, and no duplicate claim paths within one
// credential query.
func (q *Query) Validate() error {
	ids := make(map[string]bool, len(q.Credentials))

	for i := range q.Credentials {
		cq := &q.Credentials[i]

		if cq.ID == "" {
			return errors.Errorf("credential query %d has no id", i)
		}

		if ids[cq.ID] {
			return errors.Errorf("credential query id '%s' used more than once", cq.ID)
		}

		ids[cq.ID] = true

		if err := cq.validateClaims(); err != nil {
			return errors.Wrapf(err, "credential query '%s'", cq.ID)
		}
	}

	return nil
}

func (cq *CredentialQuery) validateClaims() error {
	seen := make(map[string]bool, len(cq.Claims))

	for _, claim := range cq.Claims {
		p, err := cq.claimPath(claim)
		if err != nil {
			return err
		}

		if seen[p.Key()] {
			return errors.Errorf("claim path '%s' requested more than once", p.String())
		}

		seen[p.Key()] = true
	}

	return nil
}

// ClaimPaths converts the credential query's claim queries into a path set.
func (cq *CredentialQuery) ClaimPaths() (claimpath.Set, error) {
	paths := claimpath.NewSet()

	for _, claim := range cq.Claims {
		p, err := cq.claimPath(claim)
		if err != nil {
			return nil, err
		}

		paths.Add(p)
	}

	return paths, nil
}

func (cq *CredentialQuery) claimPath(claim ClaimQuery) (claimpath.Path, error) {
	if len(claim.Path) == 0 {
		return claimpath.Path{}, errors.New("claim query has an empty path")
	}

	if cq.Format == FormatMdoc {
		if len(claim.Path) != 2 { // nolint:gomnd // namespace + attribute
			return claimpath.Path{}, errors.Errorf("mdoc claim path must have 2 elements, got %d", len(claim.Path))
		}

		namespace, ok1 := claim.Path[0].(string)
		attribute, ok2 := claim.Path[1].(string)

		if !ok1 || !ok2 {
			return claimpath.Path{}, errors.New("mdoc claim path elements must be strings")
		}

		return claimpath.NewMdocPath(false, namespace, attribute), nil
	}

	p, err := claimpath.FromSegments(claimpath.FormatJSON, claim.Path...)
	if err != nil {
		return claimpath.Path{}, errors.Wrap(err, "convert claim path")
	}

	return p, nil
}

// RequirementPaths returns the required path set per credential query id for
// a whole query.
func (q *Query) RequirementPaths() (map[string]claimpath.Set, error) {
	out := make(map[string]claimpath.Set, len(q.Credentials))

	for i := range q.Credentials {
		cq := &q.Credentials[i]

		paths, err := cq.ClaimPaths()
		if err != nil {
			return nil, errors.Wrapf(err, "credential query '%s'", cq.ID)
		}

		out[cq.ID] = paths
	}

	return out, nil
}
