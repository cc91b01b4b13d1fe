package note

import (
	"fmt"
	"time"

	"carenote/internal/clinical"
)

// Source tags where a version came from.
type Source string

const (
	SourceAIRefinement Source = "AI Refinement"
	SourceInsurerCheck Source = "Insurer Check"
	SourceDSMAlignment Source = "DSM Alignment"
	SourceManualEdit   Source = "Manual Edit"
)

func ParseSource(s string) (Source, error) {
	switch src := Source(s); src {
	case SourceAIRefinement, SourceInsurerCheck, SourceDSMAlignment, SourceManualEdit:
		return src, nil
	}
	return "", fmt.Errorf("unknown version source %q", s)
}

// Version is one saved state of a draft. Values are copied out of the draft,
// never shared, so a Version cannot be changed once recorded.
type Version struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Source    Source    `json:"source"`
}

// Comment is one entry of the discussion thread attached to a draft.
type Comment struct {
	Author    clinical.Role `json:"author"`
	Content   string        `json:"content"`
	Timestamp time.Time     `json:"timestamp"`
}

type RefineState int

const (
	RefineIdle RefineState = iota
	RefineRunning
	RefineFailed
)

func (s RefineState) String() string {
	switch s {
	case RefineRunning:
		return "refining"
	case RefineFailed:
		return "failed"
	default:
		return "idle"
	}
}

func (s RefineState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
