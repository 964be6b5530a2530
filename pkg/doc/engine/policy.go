/*
Copyright Credentive Systems Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package engine

import (
	"context"

	"github.com/credentive/sdcore/pkg/doc/claimpath"
)

// AssessmentRequest is the input to one policy assessor invocation.
type AssessmentRequest struct {
	// RequirementID identifies the verifier requirement under assessment.
	RequirementID string

	// ProposedPaths is the candidate disclosure set at this point in the
	// assessor chain. Assessors must treat it as read-only.
	ProposedPaths claimpath.Set

	// Context carries caller-supplied assessment context (verifier
	// identity, purpose strings and similar). May be nil.
	Context map[string]interface{}
}

// Assessment is a policy assessor's verdict. A policy may only narrow the
// proposed set, never expand it: the engine intersects ApprovedPaths with
// the candidate set, so paths the match did not already offer are ignored.
type Assessment struct {
	// AssessorName identifies the assessor for the audit trail.
	AssessorName string

	// Approved indicates whether the assessor's narrowing applies. A
	// rejected assessment is recorded but leaves the candidate set
	// unchanged; it is advisory and never aborts the computation.
	Approved bool

	// ApprovedPaths is the narrowed set, meaningful when Approved.
	ApprovedPaths claimpath.Set

	// Reason is the assessor's human-readable justification.
	Reason string
}

// PolicyAssessor can narrow a proposed disclosure set before it is
// finalized, e.g. an organizational data-minimization policy. Assessors may
// perform I/O; the engine passes its context through and invokes assessors
// for the same match strictly in configuration order, each seeing the
// previous assessor's output.
type PolicyAssessor interface {
	// Name identifies the assessor in audit records.
	Name() string

	// Assess evaluates the proposed disclosure set.
	Assess(ctx context.Context, req *AssessmentRequest) (*Assessment, error)
}

type assessorFunc struct {
	name string
	fn   func(ctx context.Context, req *AssessmentRequest) (*Assessment, error)
}

func (a *assessorFunc) Name() string {
	return a.name
}

func (a *assessorFunc) Assess(ctx context.Context, req *AssessmentRequest) (*Assessment, error) {
	return a.fn(ctx, req)
}

// NewAssessor adapts a plain function into a PolicyAssessor.
func NewAssessor(name string, fn func(ctx context.Context, req *AssessmentRequest) (*Assessment, error)) PolicyAssessor { // nolint:lll
	return &assessorFunc{name: name, fn: fn}
}
