// Package note implements the editable note draft: current content, its
// append-only version history, the discussion thread and therapist-only
// private notes.
//
// Every change to the current content goes through a Draft method. Edits and
// refinements append exactly one Version (newest first) before the content
// changes. Reverts copy an earlier version back without touching history, so
// version indexes are stable and reverting to the same index twice always
// restores the same text.
//
// Refinement and compliance checks call external services. The draft lock is
// never held across those calls; instead each refinement captures the draft
// generation when it starts and its result is only applied if no edit, revert
// or close happened in the meantime.
package note

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"carenote/internal/clinical"
	"carenote/internal/compliance"
	"carenote/internal/refine"
	"carenote/internal/richtext"
)

var (
	ErrVersionOutOfRange = errors.New("version index out of range")
	ErrRefineInProgress  = errors.New("refinement already in progress")
	ErrStaleRefinement   = errors.New("draft changed while refinement was running")
	ErrDraftClosed       = errors.New("draft closed")
	ErrNoRefiner         = errors.New("no refinement service configured")
	ErrNoChecker         = errors.New("no compliance checker configured")
	ErrForbidden         = errors.New("forbidden for role")
)

type Refiner interface {
	Refine(ctx context.Context, req refine.Request) (string, error)
}

type ComplianceChecker interface {
	Check(ctx context.Context, req compliance.Request) (compliance.Report, error)
}

type Options struct {
	Section  clinical.Section
	AgeGroup clinical.AgeGroup
	Modality clinical.Modality

	Refiner Refiner
	Checker ComplianceChecker

	// Now defaults to time.Now.
	Now func() time.Time
}

type Draft struct {
	opts Options

	mu           sync.Mutex
	current      string
	versions     []Version // newest first
	latest       Source
	comments     []Comment
	privateNotes string

	generation uint64
	refine     RefineState
	refineErr  error
	closed     bool
}

func NewDraft(opts Options) *Draft {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Draft{opts: opts}
}

func (d *Draft) Section() clinical.Section { return d.opts.Section }

// Edit records a manual edit. It fails only once the draft is closed.
func (d *Draft) Edit(content string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}
	d.appendLocked(content, SourceManualEdit)
	return nil
}

func (d *Draft) appendLocked(content string, src Source) {
	v := Version{Content: content, Timestamp: d.opts.Now(), Source: src}
	d.versions = append([]Version{v}, d.versions...)
	d.latest = src
	d.current = content
	d.generation++
}

// Refine sends the current content to the refinement service and records
// the result as an AI Refinement version. Only one refinement may run at a
// time; a second call returns ErrRefineInProgress. If the service fails the
// draft is left as it was, the state becomes RefineFailed and the error is
// returned. If the draft was edited, reverted or closed while the call was
// out, the result is dropped and ErrStaleRefinement or ErrDraftClosed is
// returned.
func (d *Draft) Refine(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDraftClosed
	}
	if d.opts.Refiner == nil {
		d.mu.Unlock()
		return ErrNoRefiner
	}
	if d.refine == RefineRunning {
		d.mu.Unlock()
		return ErrRefineInProgress
	}
	d.refine = RefineRunning
	d.refineErr = nil
	gen := d.generation
	req := refine.Request{
		Section:  d.opts.Section,
		AgeGroup: d.opts.AgeGroup,
		Modality: d.opts.Modality,
		Text:     d.current,
	}
	d.mu.Unlock()

	out, err := d.opts.Refiner.Refine(ctx, req)

	d.mu.Lock()
	defer d.mu.Unlock()
	if err != nil {
		d.refine = RefineFailed
		d.refineErr = err
		return fmt.Errorf("refine %s: %w", d.opts.Section, err)
	}
	d.refine = RefineIdle
	if d.closed {
		return ErrDraftClosed
	}
	if gen != d.generation {
		return ErrStaleRefinement
	}
	d.appendLocked(out, SourceAIRefinement)
	return nil
}

// ResetRefine acknowledges a failed refinement and returns to idle.
func (d *Draft) ResetRefine() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.refine == RefineFailed {
		d.refine = RefineIdle
		d.refineErr = nil
	}
}

func (d *Draft) IsRefining() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refine == RefineRunning
}

func (d *Draft) RefineState() (RefineState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.refine, d.refineErr
}

// CheckCompliance reports how the current content measures up against a
// named standard. It never changes the draft.
func (d *Draft) CheckCompliance(ctx context.Context, standardID string) (compliance.Report, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return compliance.Report{}, ErrDraftClosed
	}
	if d.opts.Checker == nil {
		d.mu.Unlock()
		return compliance.Report{}, ErrNoChecker
	}
	req := compliance.Request{
		Standard: standardID,
		Section:  d.opts.Section,
		Content:  d.current,
	}
	d.mu.Unlock()

	return d.opts.Checker.Check(ctx, req)
}

// Revert makes versions[index] the current content. History is not
// modified.
func (d *Draft) Revert(index int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}
	if index < 0 || index >= len(d.versions) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrVersionOutOfRange, index, len(d.versions))
	}
	d.current = d.versions[index].Content
	d.generation++
	return nil
}

// AddComment appends to the discussion thread. Content without visible text
// is ignored and false is returned.
func (d *Draft) AddComment(author clinical.Role, content string) (bool, error) {
	if !author.Valid() || richtext.IsBlank(content) {
		return false, nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false, ErrDraftClosed
	}
	d.comments = append(d.comments, Comment{
		Author:    author,
		Content:   content,
		Timestamp: d.opts.Now(),
	})
	return true, nil
}

// SetPrivateNotes replaces the therapist-only notes. They are not part of
// the version history.
func (d *Draft) SetPrivateNotes(role clinical.Role, content string) error {
	if role != clinical.RoleTherapist {
		return ErrForbidden
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrDraftClosed
	}
	d.privateNotes = content
	return nil
}

// Close discards the results of any call still in flight. Later mutations
// return ErrDraftClosed.
func (d *Draft) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
}

func (d *Draft) Current() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// Versions returns a copy of the history, newest first.
func (d *Draft) Versions() []Version {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Version(nil), d.versions...)
}

func (d *Draft) LatestChangeSource() Source {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest
}

func (d *Draft) Comments() []Comment {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Comment(nil), d.comments...)
}
