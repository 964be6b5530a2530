/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package token implements the disclosure token: a signed envelope, which
// this package treats as an opaque string, paired with the ordered list of
// disclosures the holder may reveal, plus an optional key binding envelope.
// The envelope signature is computed over disclosure digests, never the
// disclosures themselves, so deriving a presentation token by removing
// disclosures never touches the signature-relevant bytes.
package token

import (
	"fmt"
	"strings"

	"github.com/bluele/gcache"
	"github.com/tidwall/gjson"

	"github.com/credentive/sdcore/pkg/doc/claimpath"
	"github.com/credentive/sdcore/pkg/doc/disclosure"
)

// Separator splits the envelope, disclosures and key binding in the combined
// serialization format.
const Separator = "~"

const digestCacheSize = 256

// digestCache memoizes disclosure digests; the same encoded disclosure is
// hashed on every verification and selection round-trip.
var digestCache = gcache.New(digestCacheSize).LRU().Build() // nolint:gochecknoglobals

// Token pairs an opaque signed envelope with its disclosures.
type Token struct {
	// IssuerSigned is the envelope, opaque to this package (for SD-JWT
	// credentials this is the compact JWS).
	IssuerSigned string

	// Disclosures is the ordered list of revealable claims.
	Disclosures []*disclosure.Disclosure

	// KeyBinding is the optional key binding envelope, opaque to this
	// package.
	KeyBinding string

	presentation bool
}

// ParseIssuance parses the combined format for issuance:
//
//	<envelope>~<disclosure 1>~...~<disclosure n>
func ParseIssuance(serialized string) (*Token, error) {
	parts := strings.Split(serialized, Separator)

	disclosures, err := disclosure.ParseAll(parts[1:])
	if err != nil {
		return nil, err
	}

	return &Token{IssuerSigned: parts[0], Disclosures: disclosures}, nil
}

// ParsePresentation parses the combined format for presentation:
//
//	<envelope>~<disclosure 1>~...~<disclosure n>~<key binding>
//
// where the key binding element may be empty.
func ParsePresentation(serialized string) (*Token, error) {
	parts := strings.Split(serialized, Separator)

	var encoded []string
	if len(parts) > 2 { // nolint:gomnd
		encoded = parts[1 : len(parts)-1]
	}

	var keyBinding string
	if len(parts) > 1 {
		keyBinding = parts[len(parts)-1]
	}

	disclosures, err := disclosure.ParseAll(encoded)
	if err != nil {
		return nil, err
	}

	return &Token{
		IssuerSigned: parts[0],
		Disclosures:  disclosures,
		KeyBinding:   keyBinding,
		presentation: true,
	}, nil
}

// Serialize assembles the combined format. Presentation tokens always end
// with the key binding element (possibly empty); issuance tokens never do.
func (t *Token) Serialize() string {
	out := t.IssuerSigned

	for _, d := range t.Disclosures {
		out += Separator + d.Encoded()
	}

	if t.presentation {
		out += Separator + t.KeyBinding
	}

	return out
}

// Select derives a presentation token whose disclosures are the ordered
// sub-sequence satisfying the predicate. The envelope and key binding are
// carried over unchanged and the surviving disclosure instances are shared,
// not copied. No cryptographic operation occurs.
func (t *Token) Select(predicate func(*disclosure.Disclosure) bool) *Token {
	var selected []*disclosure.Disclosure

	for _, d := range t.Disclosures {
		if predicate(d) {
			selected = append(selected, d)
		}
	}

	return &Token{
		IssuerSigned: t.IssuerSigned,
		Disclosures:  selected,
		KeyBinding:   t.KeyBinding,
		presentation: true,
	}
}

// SelectPaths derives a presentation token keeping the disclosures addressed
// by the given path set. A disclosure is addressed when some selected path's
// claim name equals the disclosure name. An array-element disclosure carries
// no name, so its position cannot be recovered from the disclosure alone; it
// is kept only when the set contains an integer-tailed path, whose claim
// name is empty.
func (t *Token) SelectPaths(paths claimpath.Set) *Token {
	names := make(map[string]bool, paths.Len())

	for _, p := range paths.Paths() {
		names[p.ClaimName()] = true
	}

	return t.Select(func(d *disclosure.Disclosure) bool {
		return names[d.Name()]
	})
}

// VerifyDigests checks that the digest of every disclosure held by the token
// appears in the envelope payload's digest lists, using the payload's
// _sd_alg. The payload is the decoded envelope claim set as JSON bytes; _sd
// lists are collected recursively so nested structured claims are honored.
func (t *Token) VerifyDigests(payload []byte) error {
	if !gjson.ValidBytes(payload) {
		return fmt.Errorf("envelope payload is not valid JSON")
	}

	root := gjson.ParseBytes(payload)

	alg := lookupString(root, "_sd_alg")
	if alg == "" {
		return fmt.Errorf("_sd_alg must be present in envelope payload")
	}

	digests := make(map[string]bool)
	collectDigests(root, digests)

	for _, d := range t.Disclosures {
		digest, err := cachedDigest(d.Encoded(), alg)
		if err != nil {
			return err
		}

		if !digests[digest] {
			return fmt.Errorf("disclosure digest '%s' not found in envelope digest lists", digest)
		}
	}

	return nil
}

// lookupString reads a top-level string claim, falling back to the embedded
// vc claim set used by JWT-VC envelopes.
func lookupString(root gjson.Result, key string) string {
	if v := root.Get(key); v.Type == gjson.String {
		return v.String()
	}

	if v := root.Get("vc." + key); v.Type == gjson.String {
		return v.String()
	}

	return ""
}

func collectDigests(node gjson.Result, out map[string]bool) {
	if !node.IsObject() {
		return
	}

	node.ForEach(func(key, value gjson.Result) bool {
		if key.String() == "_sd" && value.IsArray() {
			for _, e := range value.Array() {
				if e.Type == gjson.String {
					out[e.String()] = true
				}
			}

			return true
		}

		if value.IsObject() {
			collectDigests(value, out)
		}

		return true
	})
}

func cachedDigest(encoded, alg string) (string, error) {
	key := alg + "|" + encoded

	if cached, err := digestCache.Get(key); err == nil {
		if digest, ok := cached.(string); ok {
			return digest, nil
		}
	}

	digest, err := disclosure.ComputeDigest(encoded, alg)
	if err != nil {
		return "", err
	}

	_ = digestCache.Set(key, digest)

	return digest, nil
}
