package plan

import (
	"regexp"
	"strings"

	"carenote/internal/richtext"
)

// ICD-10-CM style codes, e.g. F41.1, F43.10, Z63.0.
var diagnosisCodeRe = regexp.MustCompile(`\b([A-Z][0-9][0-9A-Z](?:\.[0-9A-Z]{1,4})?)\b`)

// ExtractDiagnosisCodes returns the distinct diagnosis codes mentioned in
// the given HTML fragments, in order of first appearance.
func ExtractDiagnosisCodes(fragments ...string) []string {
	seen := map[string]struct{}{}
	out := []string{}

	for _, f := range fragments {
		for _, m := range diagnosisCodeRe.FindAllStringSubmatch(richtext.PlainText(f), -1) {
			c := strings.ToUpper(m[1])
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)

			if len(out) >= 20 { // cap
				return out
			}
		}
	}
	return out
}
