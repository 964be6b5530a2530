/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"time"

	"github.com/google/uuid"
)

// Record is the append-only audit trail of one Compute call. The call owns
// the record until it returns; it is never mutated afterward and never
// shared between calls.
type Record struct {
	// ID uniquely identifies the computation.
	ID string `json:"id"`

	// CreatedAt is the computation start time.
	CreatedAt time.Time `json:"created_at"`

	// Evaluations holds one entry per match processed.
	Evaluations []*Evaluation `json:"evaluations"`

	// LatticeComputations captures the path-set algebra per match.
	LatticeComputations []*LatticeComputation `json:"lattice_computations"`

	// PolicyAssessments holds one entry per assessor invocation.
	PolicyAssessments []*PolicyAssessmentEntry `json:"policy_assessments"`

	// FinalDecisions mirrors the plan's decisions.
	FinalDecisions []*FinalDecision `json:"final_decisions"`
}

func newRecord() *Record {
	return &Record{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Evaluation summarizes the processing of one match.
type Evaluation struct {
	RequirementID  string `json:"requirement_id"`
	Format         string `json:"format"`
	RequiredCount  int    `json:"required_count"`
	MatchedCount   int    `json:"matched_count"`
	AvailableCount int    `json:"available_count"`
	MandatoryCount int    `json:"mandatory_count"`
	Satisfied      bool   `json:"satisfied"`

	// HardFailure marks matches the engine could not honor: mandatory
	// paths the credential cannot disclose, or required paths tagged with
	// a different format than the match.
	HardFailure bool   `json:"hard_failure,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// LatticeComputation captures the candidate set at each step of the
// per-match algebra: mandatory union matched restricted to available, minus
// exclusions, intersected with policy approvals.
type LatticeComputation struct {
	RequirementID   string   `json:"requirement_id"`
	Candidate       []string `json:"candidate"`
	AfterExclusions []string `json:"after_exclusions"`
	AfterPolicy     []string `json:"after_policy"`
	Selected        []string `json:"selected"`
}

// PolicyAssessmentEntry records one assessor invocation.
type PolicyAssessmentEntry struct {
	RequirementID string `json:"requirement_id"`
	AssessorName  string `json:"assessor_name"`
	Approved      bool   `json:"approved"`
	Reason        string `json:"reason,omitempty"`

	// Error carries the assessor failure message when the invocation
	// errored; such entries are recorded as not approved.
	Error string `json:"error,omitempty"`

	ProposedCount int `json:"proposed_count"`

	// RemovedPaths is the approved-path delta: candidate paths the
	// assessor narrowed away. Empty for rejected or failed assessments.
	RemovedPaths []string `json:"removed_paths,omitempty"`
}

// FinalDecision mirrors one returned decision in serializable form.
type FinalDecision struct {
	RequirementID         string   `json:"requirement_id"`
	SelectedPaths         []string `json:"selected_paths"`
	SatisfiesRequirements bool     `json:"satisfies_requirements"`
	ConflictingPaths      []string `json:"conflicting_paths,omitempty"`
}
