package grading

import (
	"context"

	"github.com/studyhall/studyhall-lms/internal/lms"
)

// Result is the outcome of grading a single question response.
type Result struct {
	AutoPoints  float64 // points awarded automatically
	MaxPoints   float64 // the question's max points
	NeedsManual bool    // true if instructor review is required
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q lms.Question, answer string) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q lms.Question, answer string) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q lms.Question, answer string) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{MaxPoints: q.Points, NeedsManual: true}, nil
	}
	return s.Grade(ctx, q, answer)
}

// NewDefaultGrader installs built-in strategies. Objective types (mcq,
// true_false) grade by verbatim comparison; free-text types score zero until
// an instructor records a manual grade.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			lms.QuestionMCQ:         exactMatchStrategy{},
			lms.QuestionTrueFalse:   exactMatchStrategy{},
			lms.QuestionShortAnswer: manualStrategy{},
			lms.QuestionEssay:       manualStrategy{},
		},
	}
}

// exactMatchStrategy awards full points when the submitted answer equals the
// answer key byte for byte. Case-sensitive, no trimming, no partial credit.
type exactMatchStrategy struct{}

func (exactMatchStrategy) Grade(_ context.Context, q lms.Question, answer string) (Result, error) {
	res := Result{MaxPoints: q.Points}
	if answer != "" && answer == q.CorrectAnswer {
		res.AutoPoints = q.Points
	}
	return res, nil
}

type manualStrategy struct{}

func (manualStrategy) Grade(_ context.Context, q lms.Question, _ string) (Result, error) {
	return Result{MaxPoints: q.Points, NeedsManual: true}, nil
}
