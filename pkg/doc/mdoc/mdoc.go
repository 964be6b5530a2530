/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package mdoc decodes ISO 18013-5 IssuerSigned structures far enough to
// enumerate the namespace/attribute claim paths a credential can disclose.
// Signature verification of the issuerAuth COSE envelope is external to this
// package; the MSO payload is decoded unverified for its digest metadata.
package mdoc

import (
	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"github.com/veraison/go-cose"

	"github.com/credentive/sdcore/pkg/doc/claimpath"
)

const tag24 = 24

// nolint:gochecknoglobals
var decMode cbor.DecMode

// nolint:gochecknoinits
func init() {
	var err error

	decMode, err = cbor.DecOptions{IntDec: cbor.IntDecConvertSigned}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Item is one claim within a namespace.
type Item struct {
	DigestID   uint64
	Random     []byte
	Identifier string
	Value      interface{}
}

// IssuerSigned is the decoded issuer-signed portion of an mdoc credential.
type IssuerSigned struct {
	// DocType from the mobile security object, empty when issuerAuth is
	// absent.
	DocType string

	// DigestAlgorithm from the mobile security object.
	DigestAlgorithm string

	// Namespaces maps namespace identifiers to their claims.
	Namespaces map[string][]Item
}

type issuerSignedDoc struct {
	NameSpaces map[string][]cbor.RawMessage `cbor:"nameSpaces"`
	IssuerAuth cbor.RawMessage              `cbor:"issuerAuth"`
}

type issuerSignedItem struct {
	DigestID          uint64      `cbor:"digestID"`
	Random            []byte      `cbor:"random"`
	ElementIdentifier string      `cbor:"elementIdentifier"`
	ElementValue      interface{} `cbor:"elementValue"`
}

type mobileSecurityObject struct {
	Version         string `cbor:"version"`
	DigestAlgorithm string `cbor:"digestAlgorithm"`
	DocType         string `cbor:"docType"`
}

// ParseIssuerSigned decodes an IssuerSigned structure.
func ParseIssuerSigned(data []byte) (*IssuerSigned, error) {
	var doc issuerSignedDoc

	if err := decMode.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode IssuerSigned")
	}

	out := &IssuerSigned{Namespaces: make(map[string][]Item, len(doc.NameSpaces))}

	for namespace, rawItems := range doc.NameSpaces {
		items := make([]Item, 0, len(rawItems))

		for i, raw := range rawItems {
			item, err := decodeItem(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "namespace '%s' item %d", namespace, i)
			}

			items = append(items, item)
		}

		out.Namespaces[namespace] = items
	}

	if len(doc.IssuerAuth) > 0 {
		mso, err := decodeMSO(doc.IssuerAuth)
		if err != nil {
			return nil, err
		}

		out.DocType = mso.DocType
		out.DigestAlgorithm = mso.DigestAlgorithm
	}

	return out, nil
}

// decodeItem unwraps the tag 24 envelope around IssuerSignedItemBytes and
// decodes the item.
func decodeItem(raw cbor.RawMessage) (Item, error) {
	inner, err := unwrapTag24(raw)
	if err != nil {
		return Item{}, err
	}

	var item issuerSignedItem

	if err := decMode.Unmarshal(inner, &item); err != nil {
		return Item{}, errors.Wrap(err, "decode IssuerSignedItem")
	}

	return Item{
		DigestID:   item.DigestID,
		Random:     item.Random,
		Identifier: item.ElementIdentifier,
		Value:      item.ElementValue,
	}, nil
}

// decodeMSO extracts the mobile security object from the issuerAuth
// COSE_Sign1 payload without verifying the signature.
func decodeMSO(issuerAuth cbor.RawMessage) (*mobileSecurityObject, error) {
	var sign1 cose.UntaggedSign1Message

	if err := sign1.UnmarshalCBOR(issuerAuth); err != nil {
		// issuerAuth may carry the COSE tag
		var tagged cose.Sign1Message

		if tErr := tagged.UnmarshalCBOR(issuerAuth); tErr != nil {
			return nil, errors.Wrap(err, "decode issuerAuth COSE_Sign1")
		}

		sign1 = cose.UntaggedSign1Message(tagged)
	}

	payload, err := unwrapTag24(sign1.Payload)
	if err != nil {
		return nil, err
	}

	var mso mobileSecurityObject

	if err := decMode.Unmarshal(payload, &mso); err != nil {
		return nil, errors.Wrap(err, "decode mobile security object")
	}

	return &mso, nil
}

func unwrapTag24(data []byte) ([]byte, error) {
	var raw cbor.RawTag

	if err := decMode.Unmarshal(data, &raw); err != nil {
		// not tagged
		return data, nil
	}

	if raw.Number != tag24 {
		return data, nil
	}

	var inner []byte

	if err := decMode.Unmarshal(raw.Content, &inner); err != nil {
		return nil, errors.Wrap(err, "unwrap tag 24 content")
	}

	return inner, nil
}

// AvailablePaths enumerates every namespace/attribute path the credential
// can disclose.
func (d *IssuerSigned) AvailablePaths() claimpath.Set {
	paths := claimpath.NewSet()

	for namespace, items := range d.Namespaces {
		for _, item := range items {
			paths.Add(claimpath.NewMdocPath(false, namespace, item.Identifier))
		}
	}

	return paths
}

// MandatoryPaths returns the subset of the credential's paths listed in the
// issuer's mandatory attribute table (namespace to attribute identifiers).
// Attributes the credential does not carry are ignored.
func (d *IssuerSigned) MandatoryPaths(mandatory map[string][]string) claimpath.Set {
	paths := claimpath.NewSet()

	for namespace, attributes := range mandatory {
		items, ok := d.Namespaces[namespace]
		if !ok {
			continue
		}

		held := make(map[string]bool, len(items))
		for _, item := range items {
			held[item.Identifier] = true
		}

		for _, attribute := range attributes {
			if held[attribute] {
				paths.Add(claimpath.NewMdocPath(true, namespace, attribute))
			}
		}
	}

	return paths
}

// Claims flattens the credential into the namespace/attribute claim document
// that query matching consumes.
func (d *IssuerSigned) Claims() map[string]interface{} {
	claims := make(map[string]interface{}, len(d.Namespaces))

	for namespace, items := range d.Namespaces {
		attributes := make(map[string]interface{}, len(items))

		for _, item := range items {
			attributes[item.Identifier] = item.Value
		}

		claims[namespace] = attributes
	}

	return claims
}
