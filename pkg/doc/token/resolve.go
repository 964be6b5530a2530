/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package token

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/credentive/sdcore/pkg/doc/disclosure"
)

// ResolveClaims rebuilds the clear-text claim document a verifier sees:
// every held disclosure whose digest appears in one of the payload's _sd
// lists is inserted at that list's level, and the _sd and _sd_alg bookkeeping
// claims are removed. A digest referenced from more than one place, or a
// disclosure whose claim name already exists at its level, fails resolution.
func (t *Token) ResolveClaims(payload []byte) ([]byte, error) {
	if !gjson.ValidBytes(payload) {
		return nil, fmt.Errorf("envelope payload is not valid JSON")
	}

	alg := lookupString(gjson.ParseBytes(payload), SDAlgorithmKey)
	if alg == "" {
		return nil, fmt.Errorf("%s must be present in envelope payload", SDAlgorithmKey)
	}

	byDigest := make(map[string]*disclosure.Disclosure, len(t.Disclosures))

	for _, d := range t.Disclosures {
		digest, err := cachedDigest(d.Encoded(), alg)
		if err != nil {
			return nil, err
		}

		byDigest[digest] = d
	}

	out := payload
	included := make(map[string]bool)

	var err error

	out, err = resolveObject(out, "", byDigest, included)
	if err != nil {
		return nil, err
	}

	return out, nil
}

// resolveObject processes one object level identified by prefix ("" for the
// root), then recurses into child objects.
func resolveObject(doc []byte, prefix string, byDigest map[string]*disclosure.Disclosure, included map[string]bool) ([]byte, error) { // nolint:lll
	node := nodeAt(doc, prefix)
	if !node.IsObject() {
		return doc, nil
	}

	for _, entry := range node.Get(SDKey).Array() {
		digest := entry.String()

		d, held := byDigest[digest]
		if !held {
			continue
		}

		if included[digest] {
			return nil, fmt.Errorf("digest '%s' has been included in more than one place", digest)
		}

		if d.IsArrayElement() {
			return nil, fmt.Errorf("array element disclosure cannot be resolved from an object digest list")
		}

		claimPath := joinPath(prefix, d.Name())

		if nodeAt(doc, claimPath).Exists() {
			return nil, fmt.Errorf("claim name '%s' already exists at the same level", d.Name())
		}

		var err error

		doc, err = sjson.SetBytes(doc, claimPath, d.Value())
		if err != nil {
			return nil, fmt.Errorf("insert disclosed claim '%s': %w", d.Name(), err)
		}

		included[digest] = true
	}

	for _, key := range []string{SDKey, SDAlgorithmKey} {
		cleaned, err := sjson.DeleteBytes(doc, joinPath(prefix, key))
		if err == nil {
			doc = cleaned
		}
	}

	// child objects may carry their own _sd lists
	children := nodeAt(doc, prefix)

	var resolveErr error

	children.ForEach(func(key, value gjson.Result) bool {
		if !value.IsObject() {
			return true
		}

		var err error

		doc, err = resolveObject(doc, joinPath(prefix, key.String()), byDigest, included)
		if err != nil {
			resolveErr = err
			return false
		}

		return true
	})

	if resolveErr != nil {
		return nil, resolveErr
	}

	return doc, nil
}

func nodeAt(doc []byte, path string) gjson.Result {
	if path == "" {
		return gjson.ParseBytes(doc)
	}

	return gjson.GetBytes(doc, path)
}

func joinPath(prefix, key string) string {
	escaped := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`).Replace(key)

	if prefix == "" {
		return escaped
	}

	return prefix + "." + escaped
}
