/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package claimpath

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("success - round trip", func(t *testing.T) {
		pointers := []string{
			"/iss",
			"/vct",
			"/given_name",
			"/address/street_address",
			"/nationalities/0",
			"/nationalities/12",
			"/-3",
			"/0100",
			"/a~1b",
			"/tilde~0key",
			"/deep/nested/claim/path",
		}

		for _, pointer := range pointers {
			p, err := Parse(pointer)
			require.NoError(t, err, pointer)
			require.Equal(t, pointer, p.String())
			require.Equal(t, FormatJSON, p.Format())
		}
	})

	t.Run("success - escaped segments decode", func(t *testing.T) {
		p, err := Parse("/a~1b/c~0d")
		require.NoError(t, err)
		require.Equal(t, []string{"a/b", "c~d"}, p.Segments())
	})

	t.Run("success - integer segments", func(t *testing.T) {
		p, err := Parse("/nationalities/0")
		require.NoError(t, err)
		require.Equal(t, []string{"nationalities", "0"}, p.Segments())
	})

	t.Run("error - empty pointer", func(t *testing.T) {
		_, err := Parse("")
		require.Error(t, err)
		require.ErrorIs(t, err, ErrMalformedPath)
	})

	t.Run("error - missing leading slash", func(t *testing.T) {
		_, err := Parse("iss")
		require.ErrorIs(t, err, ErrMalformedPath)
	})

	t.Run("error - empty segment", func(t *testing.T) {
		for _, pointer := range []string{"/", "//", "/a//b", "/a/"} {
			_, err := Parse(pointer)
			require.ErrorIs(t, err, ErrMalformedPath, pointer)
		}
	})

	t.Run("error - invalid escape sequence", func(t *testing.T) {
		_, err := Parse("/a~2b")
		require.ErrorIs(t, err, ErrMalformedPath)

		_, err = Parse("/trailing~")
		require.ErrorIs(t, err, ErrMalformedPath)
	})
}

func TestFromSegments(t *testing.T) {
	t.Run("success - mixed segments", func(t *testing.T) {
		p, err := FromSegments(FormatJSON, "nationalities", 0)
		require.NoError(t, err)
		require.Equal(t, "/nationalities/0", p.String())
	})

	t.Run("success - json numbers", func(t *testing.T) {
		p, err := FromSegments(FormatJSON, "list", json.Number("2"))
		require.NoError(t, err)
		require.Equal(t, "/list/2", p.String())
	})

	t.Run("success - integral float from json decoding", func(t *testing.T) {
		p, err := FromSegments(FormatJSON, "list", float64(3))
		require.NoError(t, err)
		require.Equal(t, "/list/3", p.String())
	})

	t.Run("error - wildcard segment", func(t *testing.T) {
		_, err := FromSegments(FormatJSON, "list", nil)
		require.ErrorIs(t, err, ErrMalformedPath)
		require.Contains(t, err.Error(), "wildcard")
	})

	t.Run("error - fractional number", func(t *testing.T) {
		_, err := FromSegments(FormatJSON, "list", 1.5)
		require.ErrorIs(t, err, ErrMalformedPath)
	})

	t.Run("error - no segments", func(t *testing.T) {
		_, err := FromSegments(FormatJSON)
		require.ErrorIs(t, err, ErrMalformedPath)
	})
}

func TestEquality(t *testing.T) {
	t.Run("structural equality over segments and format", func(t *testing.T) {
		a, err := Parse("/given_name")
		require.NoError(t, err)

		b, err := Parse("/given_name")
		require.NoError(t, err)

		require.True(t, a.Equal(b))
		require.Equal(t, a.Key(), b.Key())
	})

	t.Run("different formats never equal", func(t *testing.T) {
		jsonPath, err := FromSegments(FormatJSON, "org.iso.18013.5.1", "family_name")
		require.NoError(t, err)

		mdocPath := NewMdocPath(false, "org.iso.18013.5.1", "family_name")

		require.False(t, jsonPath.Equal(mdocPath))
		require.NotEqual(t, jsonPath.Key(), mdocPath.Key())
	})

	t.Run("mandatory flag not part of equality", func(t *testing.T) {
		a := NewMdocPath(true, "ns", "attr")
		b := NewMdocPath(false, "ns", "attr")

		require.True(t, a.Equal(b))
		require.Equal(t, a.Key(), b.Key())
		require.True(t, a.Mandatory())
		require.False(t, b.Mandatory())
	})
}

func TestOrdering(t *testing.T) {
	t.Run("total order over format then segments", func(t *testing.T) {
		a, err := Parse("/a")
		require.NoError(t, err)

		b, err := Parse("/b")
		require.NoError(t, err)

		require.True(t, a.Less(b))
		require.False(t, b.Less(a))
		require.False(t, a.Less(a))

		cborPath := NewCBORPath(1)
		require.True(t, a.Less(cborPath))

		mdocPath := NewMdocPath(false, "ns", "attr")
		require.True(t, cborPath.Less(mdocPath))
	})

	t.Run("prefix sorts before extension", func(t *testing.T) {
		short, err := Parse("/address")
		require.NoError(t, err)

		long, err := Parse("/address/street_address")
		require.NoError(t, err)

		require.True(t, short.Less(long))
	})

	t.Run("integer segments sort numerically", func(t *testing.T) {
		two, err := Parse("/list/2")
		require.NoError(t, err)

		ten, err := Parse("/list/10")
		require.NoError(t, err)

		require.True(t, two.Less(ten))
	})
}

func TestAccessors(t *testing.T) {
	t.Run("claim name is last string segment", func(t *testing.T) {
		p, err := Parse("/address/street_address")
		require.NoError(t, err)
		require.Equal(t, "street_address", p.ClaimName())
	})

	t.Run("claim name empty for integer tail", func(t *testing.T) {
		p, err := Parse("/nationalities/0")
		require.NoError(t, err)
		require.Empty(t, p.ClaimName())
	})

	t.Run("mdoc namespace and attribute", func(t *testing.T) {
		p := NewMdocPath(true, "org.iso.18013.5.1", "family_name")
		require.Equal(t, "org.iso.18013.5.1", p.Namespace())
		require.Equal(t, "family_name", p.ClaimName())
		require.Equal(t, "/org.iso.18013.5.1/family_name", p.String())
	})

	t.Run("cbor path", func(t *testing.T) {
		p := NewCBORPath(1, -2)
		require.Equal(t, FormatCBOR, p.Format())
		require.Equal(t, "/1/-2", p.String())
	})

	t.Run("zero value", func(t *testing.T) {
		var p Path
		require.True(t, p.IsZero())
		require.Empty(t, p.ClaimName())
	})
}
