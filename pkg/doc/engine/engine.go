/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package engine implements the disclosure computation engine: given one
// disclosure match per verifier requirement, optional user exclusions and
// configured policy assessors, it selects the paths to disclose per
// credential and returns a plan with a complete audit record.
//
// The engine is pure apart from invoking caller-supplied assessors. All
// inputs are immutable; the audit record is built by a single logical thread
// of control per Compute call and not shared until the call returns.
package engine

import (
	"context"
	"fmt"

	"github.com/hyperledger/aries-framework-go/component/log"

	"github.com/credentive/sdcore/pkg/doc/claimpath"
)

var logger = log.New("sdcore/engine")

// DuplicateRequirementIDError is returned when two matches in one Compute
// call share a requirement id, which would make the resulting decisions
// ambiguous.
type DuplicateRequirementIDError struct {
	ID string
}

func (e *DuplicateRequirementIDError) Error() string {
	return fmt.Sprintf("duplicate query requirement id '%s'", e.ID)
}

type options struct {
	assessors            []PolicyAssessor
	assessmentContext    map[string]interface{}
	abortOnAssessorError bool
}

// Option configures an Engine.
type Option func(*options)

// WithPolicyAssessors configures the assessor chain. Assessors run per match
// in the given order, each seeing the previous assessor's narrowed set.
func WithPolicyAssessors(assessors ...PolicyAssessor) Option {
	return func(o *options) {
		o.assessors = append(o.assessors, assessors...)
	}
}

// WithAssessmentContext passes caller context (verifier identity, purpose
// strings) through to every assessor invocation.
func WithAssessmentContext(assessmentContext map[string]interface{}) Option {
	return func(o *options) {
		o.assessmentContext = assessmentContext
	}
}

// WithAbortOnAssessorError makes an assessor failure fail the whole Compute
// call. The default isolates the failure to its match: the failed assessment
// is recorded as not approved, the candidate set is unchanged, and other
// credentials still get their decisions.
func WithAbortOnAssessorError() Option {
	return func(o *options) {
		o.abortOnAssessorError = true
	}
}

// Engine computes disclosure plans. An Engine is immutable after New and
// safe for concurrent Compute calls.
type Engine[C any] struct {
	opts options
}

// New constructs an engine.
func New[C any](opts ...Option) *Engine[C] {
	e := &Engine[C]{}

	for _, opt := range opts {
		opt(&e.opts)
	}

	return e
}

// Compute derives a disclosure plan for the given matches. User exclusions
// are keyed by requirement id and subtracted from the candidate set of the
// corresponding match.
//
// An unsatisfiable requirement is a normal outcome, reported through the
// decision's SatisfiesRequirements and ConflictingPaths. Compute fails only
// on malformed input (duplicate requirement ids), on context cancellation
// (checked before each match and before each assessor invocation, with no
// partial record returned) and, under WithAbortOnAssessorError, on assessor
// failure.
func (e *Engine[C]) Compute(ctx context.Context, matches []*DisclosureMatch[C],
	exclusions map[string]claimpath.Set) (*Plan[C], error) {
	if err := checkRequirementIDs(matches); err != nil {
		return nil, err
	}

	rec := newRecord()
	plan := &Plan[C]{Satisfied: true, Record: rec}

	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("disclosure computation cancelled before requirement '%s': %w",
				match.RequirementID, err)
		}

		decision, hardFailure, err := e.computeMatch(ctx, match, exclusions[match.RequirementID], rec)
		if err != nil {
			return nil, err
		}

		if hardFailure {
			plan.Satisfied = false
		}

		plan.Decisions = append(plan.Decisions, decision)
	}

	return plan, nil
}

func checkRequirementIDs[C any](matches []*DisclosureMatch[C]) error {
	seen := make(map[string]bool, len(matches))

	for _, m := range matches {
		if seen[m.RequirementID] {
			return &DuplicateRequirementIDError{ID: m.RequirementID}
		}

		seen[m.RequirementID] = true
	}

	return nil
}

// computeMatch runs the lattice steps for one match: candidate construction,
// exclusion subtraction, sequential policy narrowing, verdict.
func (e *Engine[C]) computeMatch(ctx context.Context, match *DisclosureMatch[C],
	excluded claimpath.Set, rec *Record) (*Decision[C], bool, error) {
	hardFailure, notes := checkMatchSupport(match)

	// step 1: candidate = (mandatory ∪ matched) restricted to available.
	// Paths the credential cannot disclose are dropped, not errors: a
	// match is allowed to be partial.
	candidate := match.MandatoryPaths.Union(match.MatchedPaths).Intersect(match.AvailablePaths)

	lattice := &LatticeComputation{
		RequirementID: match.RequirementID,
		Candidate:     candidate.Strings(),
	}

	// step 2: user exclusions
	if excluded != nil {
		candidate = candidate.Subtract(excluded)
	}

	lattice.AfterExclusions = candidate.Strings()

	// step 3: policy narrowing
	candidate, err := e.assess(ctx, match, candidate, rec)
	if err != nil {
		return nil, false, err
	}

	lattice.AfterPolicy = candidate.Strings()
	lattice.Selected = lattice.AfterPolicy

	// step 4: verdict
	satisfies := match.RequiredPaths.SubsetOf(candidate)

	var conflicting claimpath.Set
	if !satisfies {
		conflicting = match.RequiredPaths.Subtract(candidate)
	}

	decision := &Decision[C]{
		RequirementID:         match.RequirementID,
		Credential:            match.Credential,
		SelectedPaths:         candidate,
		SatisfiesRequirements: satisfies,
		ConflictingPaths:      conflicting,
	}

	// step 5: audit entries
	rec.Evaluations = append(rec.Evaluations, &Evaluation{
		RequirementID:  match.RequirementID,
		Format:         match.Format.String(),
		RequiredCount:  match.RequiredPaths.Len(),
		MatchedCount:   match.MatchedPaths.Len(),
		AvailableCount: match.AvailablePaths.Len(),
		MandatoryCount: match.MandatoryPaths.Len(),
		Satisfied:      satisfies,
		HardFailure:    hardFailure,
		Notes:          notes,
	})

	rec.LatticeComputations = append(rec.LatticeComputations, lattice)

	final := &FinalDecision{
		RequirementID:         decision.RequirementID,
		SelectedPaths:         decision.SelectedPaths.Strings(),
		SatisfiesRequirements: decision.SatisfiesRequirements,
	}

	if decision.ConflictingPaths != nil {
		final.ConflictingPaths = decision.ConflictingPaths.Strings()
	}

	rec.FinalDecisions = append(rec.FinalDecisions, final)

	return decision, hardFailure, nil
}

// checkMatchSupport detects hard failures: mandatory paths the credential
// cannot disclose, or required paths tagged with a different format than the
// match. Both still produce a decision; they flip the plan's Satisfied flag.
func checkMatchSupport[C any](match *DisclosureMatch[C]) (bool, string) {
	if !match.MandatoryPaths.SubsetOf(match.AvailablePaths) {
		missing := match.MandatoryPaths.Subtract(match.AvailablePaths)

		return true, fmt.Sprintf("mandatory paths not available for disclosure: %v", missing.Strings())
	}

	for _, p := range match.RequiredPaths.Paths() {
		if p.Format() != match.Format {
			return true, fmt.Sprintf("required path '%s' has format %s, match has format %s",
				p.String(), p.Format(), match.Format)
		}
	}

	return false, ""
}

func (e *Engine[C]) assess(ctx context.Context, match *DisclosureMatch[C],
	candidate claimpath.Set, rec *Record) (claimpath.Set, error) {
	for _, assessor := range e.opts.assessors {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("disclosure computation cancelled before assessor '%s': %w",
				assessor.Name(), err)
		}

		req := &AssessmentRequest{
			RequirementID: match.RequirementID,
			ProposedPaths: candidate.Clone(),
			Context:       e.opts.assessmentContext,
		}

		entry := &PolicyAssessmentEntry{
			RequirementID: match.RequirementID,
			AssessorName:  assessor.Name(),
			ProposedCount: candidate.Len(),
		}

		assessment, err := assessor.Assess(ctx, req)

		switch {
		case err != nil && e.opts.abortOnAssessorError:
			return nil, fmt.Errorf("policy assessor '%s' failed for requirement '%s': %w",
				assessor.Name(), match.RequirementID, err)
		case err != nil:
			// advisory: a failed assessor must not block the holder's
			// presentation for other claims
			logger.Warnf("policy assessor %q failed for requirement %q, treating as not approved: %v",
				assessor.Name(), match.RequirementID, err)

			entry.Error = err.Error()
		case assessment.Approved:
			narrowed := assessment.ApprovedPaths.Intersect(candidate)

			entry.Approved = true
			entry.Reason = assessment.Reason
			entry.RemovedPaths = candidate.Subtract(narrowed).Strings()

			candidate = narrowed
		default:
			entry.Reason = assessment.Reason
		}

		rec.PolicyAssessments = append(rec.PolicyAssessments, entry)
	}

	return candidate, nil
}
