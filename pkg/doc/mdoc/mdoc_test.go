/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package mdoc

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
	"github.com/veraison/go-cose"

	"github.com/credentive/sdcore/pkg/doc/claimpath"
)

const testNamespace = "org.iso.18013.5.1"

func encodeItem(t *testing.T, digestID uint64, identifier string, value interface{}) cbor.RawMessage {
	t.Helper()

	itemBytes, err := cbor.Marshal(map[string]interface{}{
		"digestID":          digestID,
		"random":            []byte{0x01, 0x02, 0x03},
		"elementIdentifier": identifier,
		"elementValue":      value,
	})
	require.NoError(t, err)

	wrapped, err := cbor.Marshal(cbor.Tag{Number: 24, Content: itemBytes})
	require.NoError(t, err)

	return wrapped
}

func encodeIssuerAuth(t *testing.T, docType string, tagged bool) cbor.RawMessage {
	t.Helper()

	msoBytes, err := cbor.Marshal(map[string]interface{}{
		"version":         "1.0",
		"digestAlgorithm": "SHA-256",
		"docType":         docType,
	})
	require.NoError(t, err)

	payload, err := cbor.Marshal(cbor.Tag{Number: 24, Content: msoBytes})
	require.NoError(t, err)

	sign1 := cose.UntaggedSign1Message{
		Payload:   payload,
		Signature: []byte{0xde, 0xad, 0xbe, 0xef},
	}

	var issuerAuth []byte

	if tagged {
		taggedSign1 := cose.Sign1Message(sign1)
		issuerAuth, err = taggedSign1.MarshalCBOR()
	} else {
		issuerAuth, err = sign1.MarshalCBOR()
	}

	require.NoError(t, err)

	return issuerAuth
}

func encodeIssuerSigned(t *testing.T, issuerAuth cbor.RawMessage, namespaces map[string][]cbor.RawMessage) []byte {
	t.Helper()

	doc := map[string]interface{}{"nameSpaces": namespaces}

	if issuerAuth != nil {
		doc["issuerAuth"] = issuerAuth
	}

	data, err := cbor.Marshal(doc)
	require.NoError(t, err)

	return data
}

func TestParseIssuerSigned(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		data := encodeIssuerSigned(t,
			encodeIssuerAuth(t, "org.iso.18013.5.1.mDL", false),
			map[string][]cbor.RawMessage{
				testNamespace: {
					encodeItem(t, 1, "family_name", "Doe"),
					encodeItem(t, 2, "given_name", "John"),
					encodeItem(t, 3, "age_over_18", true),
				},
			})

		parsed, err := ParseIssuerSigned(data)
		require.NoError(t, err)

		require.Equal(t, "org.iso.18013.5.1.mDL", parsed.DocType)
		require.Equal(t, "SHA-256", parsed.DigestAlgorithm)
		require.Len(t, parsed.Namespaces[testNamespace], 3)

		first := parsed.Namespaces[testNamespace][0]
		require.Equal(t, uint64(1), first.DigestID)
		require.Equal(t, []byte{0x01, 0x02, 0x03}, first.Random)
		require.Equal(t, "family_name", first.Identifier)
		require.Equal(t, "Doe", first.Value)
	})

	t.Run("success - tagged issuerAuth", func(t *testing.T) {
		data := encodeIssuerSigned(t,
			encodeIssuerAuth(t, "org.iso.18013.5.1.mDL", true),
			map[string][]cbor.RawMessage{
				testNamespace: {encodeItem(t, 1, "family_name", "Doe")},
			})

		parsed, err := ParseIssuerSigned(data)
		require.NoError(t, err)
		require.Equal(t, "org.iso.18013.5.1.mDL", parsed.DocType)
	})

	t.Run("success - missing issuerAuth leaves doc type empty", func(t *testing.T) {
		data := encodeIssuerSigned(t, nil, map[string][]cbor.RawMessage{
			testNamespace: {encodeItem(t, 1, "family_name", "Doe")},
		})

		parsed, err := ParseIssuerSigned(data)
		require.NoError(t, err)
		require.Empty(t, parsed.DocType)
		require.Empty(t, parsed.DigestAlgorithm)
		require.Len(t, parsed.Namespaces[testNamespace], 1)
	})

	t.Run("success - multiple namespaces", func(t *testing.T) {
		data := encodeIssuerSigned(t, nil, map[string][]cbor.RawMessage{
			testNamespace:             {encodeItem(t, 1, "family_name", "Doe")},
			"org.iso.18013.5.1.aamva": {encodeItem(t, 2, "organ_donor", uint64(1))},
		})

		parsed, err := ParseIssuerSigned(data)
		require.NoError(t, err)
		require.Len(t, parsed.Namespaces, 2)
	})

	t.Run("error - not CBOR", func(t *testing.T) {
		_, err := ParseIssuerSigned([]byte("not cbor"))
		require.Error(t, err)
		require.Contains(t, err.Error(), "decode IssuerSigned")
	})

	t.Run("error - malformed item", func(t *testing.T) {
		badItem, err := cbor.Marshal(cbor.Tag{Number: 24, Content: []byte{0xff}})
		require.NoError(t, err)

		data := encodeIssuerSigned(t, nil, map[string][]cbor.RawMessage{
			testNamespace: {badItem},
		})

		_, err = ParseIssuerSigned(data)
		require.Error(t, err)
		require.Contains(t, err.Error(), "item 0")
	})

	t.Run("error - malformed issuerAuth", func(t *testing.T) {
		bad, err := cbor.Marshal("not a COSE message")
		require.NoError(t, err)

		data := encodeIssuerSigned(t, bad, map[string][]cbor.RawMessage{
			testNamespace: {encodeItem(t, 1, "family_name", "Doe")},
		})

		_, err = ParseIssuerSigned(data)
		require.Error(t, err)
	})
}

func TestIssuerSignedPaths(t *testing.T) {
	parsed := &IssuerSigned{
		Namespaces: map[string][]Item{
			testNamespace: {
				{Identifier: "family_name", Value: "Doe"},
				{Identifier: "given_name", Value: "John"},
				{Identifier: "portrait", Value: []byte{0xff, 0xd8}},
			},
		},
	}

	t.Run("available paths", func(t *testing.T) {
		available := parsed.AvailablePaths()
		require.Equal(t, 3, available.Len())
		require.True(t, available.Contains(claimpath.NewMdocPath(false, testNamespace, "family_name")))
		require.True(t, available.Contains(claimpath.NewMdocPath(false, testNamespace, "portrait")))
	})

	t.Run("mandatory paths restricted to held attributes", func(t *testing.T) {
		mandatory := parsed.MandatoryPaths(map[string][]string{
			testNamespace: {"family_name", "issue_date"},
			"other.ns":    {"anything"},
		})

		require.Equal(t, 1, mandatory.Len())
		require.True(t, mandatory.Contains(claimpath.NewMdocPath(true, testNamespace, "family_name")))

		// mandatory flag does not affect path identity
		require.True(t, mandatory.SubsetOf(parsed.AvailablePaths()))
	})

	t.Run("claims document", func(t *testing.T) {
		claims := parsed.Claims()

		attributes, ok := claims[testNamespace].(map[string]interface{})
		require.True(t, ok)
		require.Equal(t, "Doe", attributes["family_name"])
		require.Equal(t, "John", attributes["given_name"])
	})
}
