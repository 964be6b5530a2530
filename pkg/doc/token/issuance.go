/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

import (
	"fmt"
	mathrand "math/rand"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v3/jwt"
	"golang.org/x/exp/slices"

	"github.com/credentive/sdcore/pkg/doc/disclosure"
)

// SDKey is the digest list claim.
const SDKey = "_sd"

// SDAlgorithmKey is the digest algorithm claim.
const SDAlgorithmKey = "_sd_alg"

// CNFKey is the confirmation (holder key) claim.
const CNFKey = "cnf"

const (
	decoyMinElements = 1
	decoyMaxElements = 4
)

var mr = mathrand.New(mathrand.NewSource(time.Now().Unix())) // nolint:gochecknoglobals,gosec

type buildOpts struct {
	issuer   string
	subject  string
	audience string
	jti      string

	issuedAt  *jwt.NumericDate
	expiry    *jwt.NumericDate
	notBefore *jwt.NumericDate

	cnf map[string]interface{}

	hashAlg         string
	addDecoyDigests bool

	nonSDClaims map[string]bool

	saltOpts []disclosure.Opt
}

// BuildOpt configures payload construction.
type BuildOpt func(*buildOpts)

// WithIssuer sets the iss claim. Clear-text claims are always disclosed.
func WithIssuer(issuer string) BuildOpt {
	return func(o *buildOpts) {
		o.issuer = issuer
	}
}

// WithSubject sets the sub claim.
func WithSubject(subject string) BuildOpt {
	return func(o *buildOpts) {
		o.subject = subject
	}
}

// WithAudience sets the aud claim.
func WithAudience(audience string) BuildOpt {
	return func(o *buildOpts) {
		o.audience = audience
	}
}

// WithJTI sets the jti claim.
func WithJTI(jti string) BuildOpt {
	return func(o *buildOpts) {
		o.jti = jti
	}
}

// WithIssuedAt sets the iat claim.
func WithIssuedAt(issuedAt *jwt.NumericDate) BuildOpt {
	return func(o *buildOpts) {
		o.issuedAt = issuedAt
	}
}

// WithExpiry sets the exp claim.
func WithExpiry(expiry *jwt.NumericDate) BuildOpt {
	return func(o *buildOpts) {
		o.expiry = expiry
	}
}

// WithNotBefore sets the nbf claim.
func WithNotBefore(notBefore *jwt.NumericDate) BuildOpt {
	return func(o *buildOpts) {
		o.notBefore = notBefore
	}
}

// WithHolderConfirmation sets the cnf claim binding the credential to the
// holder's key. The value must represent a single proof-of-possession key,
// typically {"jwk": ...}.
func WithHolderConfirmation(cnf map[string]interface{}) BuildOpt {
	return func(o *buildOpts) {
		o.cnf = cnf
	}
}

// WithHashAlgorithm overrides the digest algorithm identifier (default
// sha-256).
func WithHashAlgorithm(alg string) BuildOpt {
	return func(o *buildOpts) {
		o.hashAlg = alg
	}
}

// WithDecoyDigests adds a random number of decoy digests to the _sd list so
// the digest count does not leak the claim count.
func WithDecoyDigests(flag bool) BuildOpt {
	return func(o *buildOpts) {
		o.addDecoyDigests = flag
	}
}

// WithNonSelectivelyDisclosableClaims names top-level claims that stay in the
// payload as clear text instead of becoming disclosures.
func WithNonSelectivelyDisclosableClaims(names []string) BuildOpt {
	return func(o *buildOpts) {
		o.nonSDClaims = make(map[string]bool, len(names))
		for _, n := range names {
			o.nonSDClaims[n] = true
		}
	}
}

// WithDisclosureOpts passes options through to disclosure construction,
// mostly for deterministic salts in tests.
func WithDisclosureOpts(opts ...disclosure.Opt) BuildOpt {
	return func(o *buildOpts) {
		o.saltOpts = opts
	}
}

// BuildPayload turns a flat claim map into the envelope payload an external
// signer signs, plus the disclosures the holder keeps. Each selectively
// disclosable claim becomes one disclosure; its digest lands in the shuffled
// _sd list. The payload never contains the disclosures themselves, so
// removing disclosures later cannot invalidate the envelope signature.
func BuildPayload(claims map[string]interface{}, opts ...BuildOpt) (map[string]interface{}, []*disclosure.Disclosure, error) { // nolint:lll
	o := &buildOpts{
		hashAlg:     disclosure.DefaultAlgorithm,
		nonSDClaims: map[string]bool{},
	}

	for _, opt := range opts {
		opt(o)
	}

	if _, found := claims[SDKey]; found {
		return nil, nil, fmt.Errorf("key '%s' cannot be present in the claims", SDKey)
	}

	payload := registeredClaims(o)

	var disclosures []*disclosure.Disclosure

	var digests []string

	for _, name := range sortedClaimNames(claims) {
		if o.nonSDClaims[name] {
			payload[name] = claims[name]
			continue
		}

		d, err := disclosure.New(name, claims[name], o.saltOpts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create disclosure for claim '%s': %w", name, err)
		}

		digest, err := d.Digest(o.hashAlg)
		if err != nil {
			return nil, nil, fmt.Errorf("hash disclosure: %w", err)
		}

		disclosures = append(disclosures, d)
		digests = append(digests, digest)
	}

	decoys, err := createDecoyDigests(o)
	if err != nil {
		return nil, nil, err
	}

	digests = append(digests, decoys...)

	mr.Shuffle(len(digests), func(i, j int) {
		digests[i], digests[j] = digests[j], digests[i]
	})

	if len(digests) > 0 {
		payload[SDKey] = digests
	}

	payload[SDAlgorithmKey] = strings.ToLower(o.hashAlg)

	return payload, disclosures, nil
}

func registeredClaims(o *buildOpts) map[string]interface{} {
	payload := map[string]interface{}{}

	setIfPresent := func(key, value string) {
		if value != "" {
			payload[key] = value
		}
	}

	setIfPresent("iss", o.issuer)
	setIfPresent("sub", o.subject)
	setIfPresent("aud", o.audience)
	setIfPresent("jti", o.jti)

	if o.issuedAt != nil {
		payload["iat"] = int64(*o.issuedAt)
	}

	if o.expiry != nil {
		payload["exp"] = int64(*o.expiry)
	}

	if o.notBefore != nil {
		payload["nbf"] = int64(*o.notBefore)
	}

	if o.cnf != nil {
		payload[CNFKey] = o.cnf
	}

	return payload
}

// createDecoyDigests hashes throwaway salts so decoys are indistinguishable
// from real digests.
func createDecoyDigests(o *buildOpts) ([]string, error) {
	if !o.addDecoyDigests {
		return nil, nil
	}

	n := mr.Intn(decoyMaxElements-decoyMinElements+1) + decoyMinElements

	var decoys []string

	for i := 0; i < n; i++ {
		d, err := disclosure.NewArrayElement(nil)
		if err != nil {
			return nil, err
		}

		digest, err := disclosure.ComputeDigest(d.Salt(), o.hashAlg)
		if err != nil {
			return nil, err
		}

		decoys = append(decoys, digest)
	}

	return decoys, nil
}

func sortedClaimNames(claims map[string]interface{}) []string {
	names := make([]string, 0, len(claims))
	for name := range claims {
		names = append(names, name)
	}

	// stable disclosure order keeps issuance reproducible under test salts
	slices.Sort(names)

	return names
}
