package refine

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"carenote/internal/clinical"
	"carenote/internal/richtext"
)

var ageClause = map[clinical.AgeGroup]string{
	clinical.Children: "Caregiver observations will be incorporated to corroborate the child's report.",
	clinical.Teens:    "School functioning and peer relationships will be monitored alongside self-report.",
	clinical.Adults:   "Progress will be measured against occupational and relational functioning.",
}

// Simulated stands in for a model during development. It tidies the text
// deterministically after Delay.
type Simulated struct {
	Delay time.Duration
}

func (s *Simulated) Refine(ctx context.Context, req Request) (string, error) {
	text := richtext.PlainText(req.Text)
	if text == "" {
		return "", ErrNothingToRefine
	}

	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}

	var b strings.Builder
	b.WriteString(sentence(text))
	if req.Modality != "" {
		fmt.Fprintf(&b, " Interventions are grounded in %s.", modalityName(req.Modality))
	}
	if c, ok := ageClause[req.AgeGroup]; ok {
		b.WriteString(" ")
		b.WriteString(c)
	}
	return toHTML(b.String())
}

func sentence(s string) string {
	r := []rune(strings.TrimSpace(s))
	r[0] = unicode.ToUpper(r[0])
	if !strings.ContainsRune(".!?", r[len(r)-1]) {
		r = append(r, '.')
	}
	return string(r)
}

func modalityName(m clinical.Modality) string {
	for _, info := range clinical.Selectable {
		if info.Type == m {
			return info.Name
		}
	}
	return strings.ReplaceAll(string(m), "-", " ")
}
