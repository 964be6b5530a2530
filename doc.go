/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package sdcore provides the selective disclosure engine used by Credentive
// wallet and verifier services: a format-agnostic claim path model, the
// salted disclosure/digest data model of SD-JWT and SD-CWT credentials, and
// the computation engine that decides, per verifier requirement, the minimum
// policy-compliant set of claims to disclose.
//
// Packages for end developer usage
//
// pkg/doc/claimpath: Claim path value type and path-set algebra shared by all
// credential formats (JSON claim sets, CBOR integer-keyed claim sets, ISO
// 18013-5 mdoc namespace/attribute pairs).
//
// pkg/doc/disclosure: Disclosure model, canonical disclosure encoding and
// digest computation.
//
// pkg/doc/token: Disclosure token (signed envelope plus disclosures),
// combined serialization format, selection of disclosures for presentation
// and issuance-side payload construction.
//
// pkg/doc/engine: Disclosure computation engine producing an auditable
// disclosure plan from disclosure matches, user exclusions and policy
// assessors.
//
// pkg/doc/query: DCQL credential query structures and conversion into
// disclosure matches.
//
// pkg/doc/mdoc: Claim enumeration for ISO 18013-5 IssuerSigned structures.
package sdcore
