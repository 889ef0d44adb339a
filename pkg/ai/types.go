package ai

import "context"

// ReviewInput contains everything the model needs to pre-grade an exercise
// answer before a teacher looks at it.
type ReviewInput struct {
	ExerciseTitle string
	Prompt        string
	MaxScore      float64
	Answer        string
	LevelName     string
	SubjectName   string
}

// ReviewResult is the structured feedback returned by the AI reviewer. The
// suggested score is advisory; only a teacher's grade is final.
type ReviewResult struct {
	SuggestedScore float64                `json:"suggested_score"`
	Feedback       string                 `json:"feedback"`
	Strengths      []string               `json:"strengths,omitempty"`
	Gaps           []string               `json:"gaps,omitempty"`
	Raw            map[string]interface{} `json:"raw,omitempty"`
}

// Reviewer describes an AI model capable of reviewing exercise answers.
type Reviewer interface {
	Review(ctx context.Context, input ReviewInput) (ReviewResult, error)
}
