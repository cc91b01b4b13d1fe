package plan

import (
	"encoding/json"
	"fmt"

	"carenote/internal/clinical"
	"carenote/internal/note"
)

// ViewFor returns the projection as role may see it. Private notes are
// stripped from the section drafts for anyone but the therapist.
func (p PlanProjection) ViewFor(role clinical.Role) (PlanProjection, error) {
	if role == clinical.RoleTherapist {
		return p, nil
	}
	sections, err := redactSections(p.Sections)
	if err != nil {
		return PlanProjection{}, err
	}
	p.Sections = sections
	return p, nil
}

// ViewFor returns the event as role may see it. Saved snapshots carry the
// drafts' private notes, which only the therapist may read.
func (e PlanEvent) ViewFor(role clinical.Role) (PlanEvent, error) {
	if role == clinical.RoleTherapist || e.Type != EventSnapshotSaved {
		return e, nil
	}
	var payload struct {
		Step     int             `json:"step"`
		Sections json.RawMessage `json:"sections"`
	}
	if err := json.Unmarshal(e.Payload, &payload); err != nil {
		return PlanEvent{}, fmt.Errorf("decode event %d payload: %w", e.ID, err)
	}
	sections, err := redactSections(payload.Sections)
	if err != nil {
		return PlanEvent{}, err
	}
	payload.Sections = sections
	b, err := json.Marshal(payload)
	if err != nil {
		return PlanEvent{}, err
	}
	e.Payload = b
	return e, nil
}

func redactSections(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return json.RawMessage(`{}`), nil
	}
	var snaps map[clinical.Section]note.Snapshot
	if err := json.Unmarshal(raw, &snaps); err != nil {
		return nil, fmt.Errorf("decode plan sections: %w", err)
	}
	for s, snap := range snaps {
		snap.PrivateNotes = ""
		snaps[s] = snap
	}
	return json.Marshal(snaps)
}
