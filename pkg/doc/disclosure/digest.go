/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package disclosure

import (
	"crypto"
	_ "crypto/sha256" // registers SHA-256 and SHA-224
	_ "crypto/sha512" // registers SHA-384 and SHA-512
	"encoding/base64"
	"fmt"
	"strings"
)

// DefaultAlgorithm is the digest algorithm identifier issuers use unless
// configured otherwise.
const DefaultAlgorithm = "sha-256"

// ComputeDigest applies the named hash algorithm to the encoded disclosure
// and returns the base64url digest. It operates on the already-encoded string
// so a verifier holding only the wire form can recompute digests.
func ComputeDigest(encoded, alg string) (string, error) {
	hash, err := HashFromAlgorithm(alg)
	if err != nil {
		return "", err
	}

	h := hash.New()

	if _, err := h.Write([]byte(encoded)); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

// HashFromAlgorithm resolves a digest algorithm identifier to a hash
// function. Identifiers are matched case-insensitively against the IANA hash
// names used by the _sd_alg claim. Weak algorithms (MD5, SHA-1) are never
// accepted.
func HashFromAlgorithm(alg string) (crypto.Hash, error) {
	var hash crypto.Hash

	switch strings.ToUpper(alg) {
	case crypto.SHA256.String():
		hash = crypto.SHA256
	case crypto.SHA384.String():
		hash = crypto.SHA384
	case crypto.SHA512.String():
		hash = crypto.SHA512
	default:
		return 0, fmt.Errorf("digest algorithm '%s' not supported", alg)
	}

	if !hash.Available() {
		return 0, fmt.Errorf("hash function not available for: %s", alg)
	}

	return hash, nil
}

// Digest is a convenience for computing a disclosure's digest directly.
func (d *Disclosure) Digest(alg string) (string, error) {
	return ComputeDigest(d.encoded, alg)
}
