/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package claimpath implements the format-agnostic address of one claim
// inside a credential. A path is an immutable value: a sequence of string or
// integer segments plus a format tag. Paths from different credential
// families (JSON claim sets, CBOR integer-keyed claim sets, mdoc
// namespace/attribute pairs) can share one Set because comparison is over the
// full segment sequence and tag, never per-format.
package claimpath

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Format identifies the credential family a path addresses.
type Format int

const (
	// FormatJSON addresses claims in JSON claim sets (SD-JWT family).
	FormatJSON Format = iota

	// FormatCBOR addresses claims in CBOR integer-keyed claim sets (SD-CWT family).
	FormatCBOR

	// FormatMdoc addresses ISO 18013-5 namespace/attribute pairs.
	FormatMdoc
)

// String returns the format label used in audit records.
func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatCBOR:
		return "cbor"
	case FormatMdoc:
		return "mdoc"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

// ErrMalformedPath is returned when a claim path string fails to parse.
var ErrMalformedPath = errors.New("malformed claim path")

type segmentKind int

const (
	segmentKey segmentKind = iota
	segmentIndex
)

type segment struct {
	kind  segmentKind
	key   string
	index int64
}

func (s segment) text() string {
	if s.kind == segmentIndex {
		return strconv.FormatInt(s.index, 10)
	}

	return s.key
}

// Path is one claim address. The zero value is the empty path and matches
// nothing; construct paths with Parse, FromSegments, NewCBORPath or
// NewMdocPath.
type Path struct {
	format   Format
	segments []segment

	// mandatory marks an mdoc attribute the issuer requires to be disclosed
	// in every presentation. It is carried for callers building mandatory
	// path sets and is not part of equality.
	mandatory bool
}

// Parse parses a slash-delimited pointer string into a JSON-format path,
// unescaping per JSON pointer rules (~0 for '~', ~1 for '/'). Digit-only
// segments without a leading zero become integer segments. An empty segment
// where a key is expected fails with an error wrapping ErrMalformedPath.
func Parse(pointer string) (Path, error) {
	if pointer == "" || pointer[0] != '/' {
		return Path{}, fmt.Errorf("%w: pointer must start with '/': '%s'", ErrMalformedPath, pointer)
	}

	parts := strings.Split(pointer[1:], "/")

	segments := make([]segment, 0, len(parts))

	for i, part := range parts {
		if part == "" {
			return Path{}, fmt.Errorf("%w: empty segment at position %d in '%s'", ErrMalformedPath, i, pointer)
		}

		seg, err := parseSegment(part)
		if err != nil {
			return Path{}, fmt.Errorf("%w: segment %d in '%s': %s", ErrMalformedPath, i, pointer, err.Error())
		}

		segments = append(segments, seg)
	}

	return Path{format: FormatJSON, segments: segments}, nil
}

func parseSegment(part string) (segment, error) {
	if isIntegerSegment(part) {
		index, err := strconv.ParseInt(part, 10, 64)
		if err == nil {
			return segment{kind: segmentIndex, index: index}, nil
		}
		// out of int64 range: keep the literal digits as a key so the
		// pointer still round-trips
	}

	key, err := unescapeSegment(part)
	if err != nil {
		return segment{}, err
	}

	return segment{kind: segmentKey, key: key}, nil
}

// isIntegerSegment reports whether the raw segment text denotes an integer
// key: an optional minus sign and digits, with no redundant leading zero.
// Leading zeros keep the segment a string key so String reproduces the
// original text.
func isIntegerSegment(part string) bool {
	digits := part
	if strings.HasPrefix(part, "-") {
		digits = part[1:]
	}

	if digits == "" {
		return false
	}

	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}

	if len(digits) > 1 && digits[0] == '0' {
		return false
	}

	if part == "-0" {
		return false
	}

	return true
}

func unescapeSegment(part string) (string, error) {
	if !strings.ContainsRune(part, '~') {
		return part, nil
	}

	var b strings.Builder

	for i := 0; i < len(part); i++ {
		if part[i] != '~' {
			b.WriteByte(part[i])
			continue
		}

		if i+1 >= len(part) {
			return "", errors.New("incomplete escape sequence")
		}

		switch part[i+1] {
		case '0':
			b.WriteByte('~')
		case '1':
			b.WriteByte('/')
		default:
			return "", fmt.Errorf("invalid escape sequence '~%c'", part[i+1])
		}

		i++
	}

	return b.String(), nil
}

// FromSegments builds a path of the given format from raw segment values.
// Strings become key segments, Go integer types become integer segments.
func FromSegments(format Format, segments ...interface{}) (Path, error) {
	parsed := make([]segment, 0, len(segments))

	for i, raw := range segments {
		switch v := raw.(type) {
		case string:
			parsed = append(parsed, segment{kind: segmentKey, key: v})
		case int:
			parsed = append(parsed, segment{kind: segmentIndex, index: int64(v)})
		case int32:
			parsed = append(parsed, segment{kind: segmentIndex, index: int64(v)})
		case int64:
			parsed = append(parsed, segment{kind: segmentIndex, index: v})
		case uint64:
			parsed = append(parsed, segment{kind: segmentIndex, index: int64(v)})
		case float64:
			if v != float64(int64(v)) {
				return Path{}, fmt.Errorf("%w: segment %d is a non-integer number", ErrMalformedPath, i)
			}

			parsed = append(parsed, segment{kind: segmentIndex, index: int64(v)})
		case json.Number:
			index, err := v.Int64()
			if err != nil {
				return Path{}, fmt.Errorf("%w: segment %d is not an integer: %s", ErrMalformedPath, i, v.String())
			}

			parsed = append(parsed, segment{kind: segmentIndex, index: index})
		case nil:
			return Path{}, fmt.Errorf("%w: segment %d is an array wildcard, which is not addressable", ErrMalformedPath, i)
		default:
			return Path{}, fmt.Errorf("%w: segment %d has unsupported type %T", ErrMalformedPath, i, raw)
		}
	}

	if len(parsed) == 0 {
		return Path{}, fmt.Errorf("%w: no segments", ErrMalformedPath)
	}

	return Path{format: format, segments: parsed}, nil
}

// NewCBORPath builds an integer-keyed path tagged with the CBOR format.
func NewCBORPath(keys ...int64) Path {
	segments := make([]segment, len(keys))
	for i, k := range keys {
		segments[i] = segment{kind: segmentIndex, index: k}
	}

	return Path{format: FormatCBOR, segments: segments}
}

// NewMdocPath builds a two-segment namespace/attribute path tagged with the
// mdoc format. The mandatory flag marks attributes the issuer requires in
// every presentation; it does not participate in equality.
func NewMdocPath(mandatory bool, namespace, attribute string) Path {
	return Path{
		format: FormatMdoc,
		segments: []segment{
			{kind: segmentKey, key: namespace},
			{kind: segmentKey, key: attribute},
		},
		mandatory: mandatory,
	}
}

// String renders the path as a slash-delimited pointer, the exact inverse of
// Parse for JSON-format paths.
func (p Path) String() string {
	var b strings.Builder

	for _, seg := range p.segments {
		b.WriteByte('/')

		if seg.kind == segmentIndex {
			b.WriteString(strconv.FormatInt(seg.index, 10))
			continue
		}

		b.WriteString(escapeSegment(seg.key))
	}

	return b.String()
}

func escapeSegment(key string) string {
	key = strings.ReplaceAll(key, "~", "~0")

	return strings.ReplaceAll(key, "/", "~1")
}

// Format returns the credential family tag.
func (p Path) Format() Format {
	return p.format
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p.segments)
}

// IsZero reports whether the path is the empty path.
func (p Path) IsZero() bool {
	return len(p.segments) == 0
}

// Mandatory reports whether the path was constructed as an always-disclosed
// mdoc attribute.
func (p Path) Mandatory() bool {
	return p.mandatory
}

// ClaimName returns the last segment when it is a string key, or empty. For
// an mdoc path this is the attribute identifier.
func (p Path) ClaimName() string {
	if len(p.segments) == 0 {
		return ""
	}

	last := p.segments[len(p.segments)-1]
	if last.kind != segmentKey {
		return ""
	}

	return last.key
}

// Namespace returns the first segment of an mdoc path, or empty for other
// formats.
func (p Path) Namespace() string {
	if p.format != FormatMdoc || len(p.segments) != 2 {
		return ""
	}

	return p.segments[0].key
}

// Segments returns the textual form of each segment in order.
func (p Path) Segments() []string {
	out := make([]string, len(p.segments))
	for i, seg := range p.segments {
		out[i] = seg.text()
	}

	return out
}

// Key returns the canonical map key for the path: format tag plus pointer
// string. Two paths are equal iff their keys are equal.
func (p Path) Key() string {
	return p.format.String() + ":" + p.String()
}

// Equal reports structural equality over format tag and segment sequence.
func (p Path) Equal(other Path) bool {
	if p.format != other.format || len(p.segments) != len(other.segments) {
		return false
	}

	for i, seg := range p.segments {
		if seg != other.segments[i] {
			return false
		}
	}

	return true
}

// Less reports whether p sorts before other in the path total order.
func (p Path) Less(other Path) bool {
	return p.Compare(other) < 0
}

// Compare imposes a total order: format tag first, then segment by segment
// (integer segments before key segments, then by value), then length.
func (p Path) Compare(other Path) int {
	if p.format != other.format {
		return compareInt(int64(p.format), int64(other.format))
	}

	for i := 0; i < len(p.segments) && i < len(other.segments); i++ {
		a, b := p.segments[i], other.segments[i]

		if a.kind != b.kind {
			if a.kind == segmentIndex {
				return -1
			}

			return 1
		}

		if a.kind == segmentIndex {
			if c := compareInt(a.index, b.index); c != 0 {
				return c
			}

			continue
		}

		if c := strings.Compare(a.key, b.key); c != 0 {
			return c
		}
	}

	return compareInt(int64(len(p.segments)), int64(len(other.segments)))
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
