/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"github.com/credentive/sdcore/pkg/doc/claimpath"
)

// DisclosureMatch is the per-credential input to the engine: one credential
// matched against one verifier requirement. Matching itself happens outside
// the engine (see pkg/doc/query); the engine only consumes the resulting
// path sets.
//
// A well-formed match has MandatoryPaths and RequiredPaths contained in
// AvailablePaths. The engine does not require callers to enforce this;
// paths outside AvailablePaths are silently dropped from the candidate set,
// which is what makes an ill-formed match surface as
// SatisfiesRequirements=false rather than an error.
type DisclosureMatch[C any] struct {
	// Credential is the matched credential, opaque to the engine.
	Credential C

	// RequirementID identifies the verifier query requirement this match
	// answers. Unique within one Compute call.
	RequirementID string

	// RequiredPaths are the paths the verifier asked for.
	RequiredPaths claimpath.Set

	// MatchedPaths are the required paths actually found on this credential.
	MatchedPaths claimpath.Set

	// AvailablePaths is the full set of paths this credential can disclose.
	AvailablePaths claimpath.Set

	// MandatoryPaths are always disclosed regardless of the verifier
	// request (issuer identity, credential type and similar).
	MandatoryPaths claimpath.Set

	// Format tags the credential family of the match.
	Format claimpath.Format
}

// Decision is the engine's verdict for one match. Immutable after creation.
type Decision[C any] struct {
	// RequirementID mirrors the input match.
	RequirementID string

	// Credential mirrors the input match.
	Credential C

	// SelectedPaths is the final disclosure set for this credential.
	SelectedPaths claimpath.Set

	// SatisfiesRequirements reports whether every required path is in
	// SelectedPaths. False is a normal outcome, not an error.
	SatisfiesRequirements bool

	// ConflictingPaths holds required paths withheld by exclusions or
	// policy. Nil when the requirement is satisfied.
	ConflictingPaths claimpath.Set
}

// Plan is the complete result of one Compute call.
type Plan[C any] struct {
	// Satisfied reports whether every match was processed without a hard
	// failure (format mismatch, mandatory paths the credential cannot
	// disclose). It is independent of the individual decisions'
	// SatisfiesRequirements.
	Satisfied bool

	// Decisions holds one decision per input match, in input order.
	Decisions []*Decision[C]

	// Record is the audit trail for the call.
	Record *Record
}

// Decision returns the decision for a requirement id, or nil.
func (p *Plan[C]) Decision(requirementID string) *Decision[C] {
	for _, d := range p.Decisions {
		if d.RequirementID == requirementID {
			return d
		}
	}

	return nil
}
