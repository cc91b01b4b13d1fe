package note

import (
	"fmt"

	"carenote/internal/clinical"
)

// View is the read model handed to a viewer. PrivateNotes is only filled for
// therapists.
type View struct {
	Section            clinical.Section `json:"section"`
	Content            string           `json:"content"`
	Versions           []Version        `json:"versions"`
	LatestChangeSource Source           `json:"latest_change_source,omitempty"`
	Comments           []Comment        `json:"comments"`
	PrivateNotes       *string          `json:"private_notes,omitempty"`
	RefineState        RefineState      `json:"refine_state"`
	RefineError        string           `json:"refine_error,omitempty"`
}

func (d *Draft) View(role clinical.Role) View {
	d.mu.Lock()
	defer d.mu.Unlock()
	v := View{
		Section:            d.opts.Section,
		Content:            d.current,
		Versions:           append([]Version{}, d.versions...),
		LatestChangeSource: d.latest,
		Comments:           append([]Comment{}, d.comments...),
		RefineState:        d.refine,
	}
	if d.refineErr != nil {
		v.RefineError = d.refineErr.Error()
	}
	if role == clinical.RoleTherapist {
		notes := d.privateNotes
		v.PrivateNotes = &notes
	}
	return v
}

// Snapshot is the serialized form of a draft, stored in the plan notes blob.
type Snapshot struct {
	Content      string    `json:"content"`
	Versions     []Version `json:"versions"`
	Comments     []Comment `json:"comments,omitempty"`
	PrivateNotes string    `json:"private_notes,omitempty"`
}

func (d *Draft) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		Content:      d.current,
		Versions:     append([]Version(nil), d.versions...),
		Comments:     append([]Comment(nil), d.comments...),
		PrivateNotes: d.privateNotes,
	}
}

// Restore rebuilds a draft from a snapshot. Unknown version sources are
// rejected rather than carried forward.
func Restore(s Snapshot, opts Options) (*Draft, error) {
	for i, v := range s.Versions {
		if _, err := ParseSource(string(v.Source)); err != nil {
			return nil, fmt.Errorf("version %d: %w", i, err)
		}
	}
	d := NewDraft(opts)
	d.current = s.Content
	d.versions = append([]Version(nil), s.Versions...)
	if len(d.versions) > 0 {
		d.latest = d.versions[0].Source
	}
	d.comments = append([]Comment(nil), s.Comments...)
	d.privateNotes = s.PrivateNotes
	return d, nil
}
