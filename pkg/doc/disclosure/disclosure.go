/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package disclosure implements the salted disclosure data model shared by
// SD-JWT and SD-CWT credentials. A disclosure is one independently revealable
// claim: a random salt, an optional claim name and the claim value, encoded
// as a canonical base64url JSON array. The issuer embeds the digest of the
// encoded form in the signed envelope; anyone holding the encoded form can
// recompute the digest without reconstructing typed values.
package disclosure

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
)

const saltSizeBytes = 16

// Disclosure is one revealable claim. Instances are immutable: selection
// filters token disclosure lists, it never copies or alters the members.
type Disclosure struct {
	salt    string
	name    string
	value   interface{}
	encoded string
}

type newOpts struct {
	salt string
}

// Opt configures disclosure construction.
type Opt func(*newOpts)

// WithSalt overrides the generated salt. A new salt must be chosen for each
// claim independently; this option exists for deterministic tests and for
// re-issuing a claim with a known salt.
func WithSalt(salt string) Opt {
	return func(o *newOpts) {
		o.salt = salt
	}
}

// New creates an object-property disclosure for the named claim, generating
// a fresh 128-bit base64url salt unless one is supplied.
func New(name string, value interface{}, opts ...Opt) (*Disclosure, error) {
	if name == "" {
		return nil, fmt.Errorf("disclosure claim name cannot be empty")
	}

	return create(name, value, opts)
}

// NewArrayElement creates an array-element disclosure, which carries no claim
// name and encodes as a two-element array.
func NewArrayElement(value interface{}, opts ...Opt) (*Disclosure, error) {
	return create("", value, opts)
}

func create(name string, value interface{}, opts []Opt) (*Disclosure, error) {
	o := &newOpts{}

	for _, opt := range opts {
		opt(o)
	}

	salt := o.salt

	if salt == "" {
		var err error

		salt, err = generateSalt(saltSizeBytes)
		if err != nil {
			return nil, fmt.Errorf("generate salt: %w", err)
		}
	}

	encoded, err := encode(salt, name, value)
	if err != nil {
		return nil, err
	}

	return &Disclosure{salt: salt, name: name, value: value, encoded: encoded}, nil
}

// Parse reconstructs a disclosure from its encoded form. The given encoding
// is retained verbatim so digests computed over it match the issuer's,
// whatever canonicalization the issuer applied.
func Parse(encoded string) (*Disclosure, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode disclosure: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(decoded))
	dec.UseNumber()

	var arr []interface{}

	if err := dec.Decode(&arr); err != nil {
		return nil, fmt.Errorf("failed to unmarshal disclosure array: %w", err)
	}

	switch len(arr) {
	case 2: // nolint:gomnd // [salt, value]
		salt, ok := arr[0].(string)
		if !ok {
			return nil, fmt.Errorf("disclosure salt type[%T] must be string", arr[0])
		}

		return &Disclosure{salt: salt, value: arr[1], encoded: encoded}, nil
	case 3: // nolint:gomnd // [salt, name, value]
		salt, ok := arr[0].(string)
		if !ok {
			return nil, fmt.Errorf("disclosure salt type[%T] must be string", arr[0])
		}

		name, ok := arr[1].(string)
		if !ok {
			return nil, fmt.Errorf("disclosure name type[%T] must be string", arr[1])
		}

		return &Disclosure{salt: salt, name: name, value: arr[2], encoded: encoded}, nil
	default:
		return nil, fmt.Errorf("disclosure array size[%d] must be 2 or 3", len(arr))
	}
}

// ParseAll reconstructs a list of disclosures, failing on the first invalid
// entry.
func ParseAll(encoded []string) ([]*Disclosure, error) {
	var out []*Disclosure

	for _, e := range encoded {
		d, err := Parse(e)
		if err != nil {
			return nil, err
		}

		out = append(out, d)
	}

	return out, nil
}

// Salt returns the disclosure salt.
func (d *Disclosure) Salt() string {
	return d.salt
}

// Name returns the claim name; empty for array-element disclosures.
func (d *Disclosure) Name() string {
	return d.name
}

// Value returns the claim value. Numbers parsed from an encoded form are
// json.Number.
func (d *Disclosure) Value() interface{} {
	return d.value
}

// IsArrayElement reports whether the disclosure has no claim name.
func (d *Disclosure) IsArrayElement() bool {
	return d.name == ""
}

// Encoded returns the base64url encoding of the canonical disclosure array.
func (d *Disclosure) Encoded() string {
	return d.encoded
}

// encode produces the canonical base64url wrapping of [salt, value] or
// [salt, name, value]. The same (salt, name, value) triple always yields the
// same bytes: object keys marshal sorted (encoding/json map behavior) and
// numeric values are narrowed first (see normalizeValue).
func encode(salt, name string, value interface{}) (string, error) {
	arr := []interface{}{salt}

	if name != "" {
		arr = append(arr, name)
	}

	arr = append(arr, normalizeValue(value))

	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(arr); err != nil {
		return "", fmt.Errorf("marshal disclosure array: %w", err)
	}

	raw := bytes.TrimRight(buf.Bytes(), "\n")

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// normalizeValue rewrites numeric values to the narrowest representation
// that holds them exactly: integers (including integral floats in int64
// range) encode without fraction or exponent, other numbers keep their
// literal decimal form via json.Number. Strings, booleans and null pass
// through; maps and slices are normalized recursively.
func normalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}

		return v
	case float64:
		if v == math.Trunc(v) && v >= math.MinInt64 && v <= math.MaxInt64 {
			return int64(v)
		}

		return v
	case float32:
		return normalizeValue(float64(v))
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, e := range v {
			out[k] = normalizeValue(e)
		}

		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = normalizeValue(e)
		}

		return out
	default:
		return v
	}
}

func generateSalt(sizeBytes int) (string, error) {
	salt := make([]byte, sizeBytes)

	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	// it is RECOMMENDED to base64url-encode the salt value, producing a string.
	return base64.RawURLEncoding.EncodeToString(salt), nil
}
