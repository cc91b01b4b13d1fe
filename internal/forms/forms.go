// Package forms declares the canonical field schema for each form the
// practice collects and validates submitted values against it.
package forms

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"carenote/internal/clinical"
)

var ErrUnknownForm = errors.New("unknown form")

type FormType string

const (
	ClientIntake    FormType = "client_intake"
	Biopsychosocial FormType = "biopsychosocial"
	Assessment      FormType = "assessment"
)

func ParseFormType(s string) (FormType, error) {
	switch FormType(s) {
	case ClientIntake, Biopsychosocial, Assessment:
		return FormType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownForm, s)
}

type Status string

const (
	StatusSubmitted  Status = "submitted"
	StatusReviewed   Status = "reviewed"
	StatusInProgress Status = "in_progress"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusSubmitted, StatusReviewed, StatusInProgress:
		return Status(s), nil
	}
	return "", fmt.Errorf("%w: status %q", clinical.ErrUnknownValue, s)
}

type FieldKind int

const (
	KindText FieldKind = iota
	KindEnum
	KindBool
	KindChecklist
)

func (k FieldKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindEnum:
		return "enum"
	case KindBool:
		return "bool"
	case KindChecklist:
		return "checklist"
	}
	return "unknown"
}

type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
	// Options lists enum members, or checklist categories.
	Options []string
	// Rule is an extra validator tag applied to non-empty text.
	Rule string
	// Message replaces the generic "required" message.
	Message string
}

// Values is a submitted field-value set as decoded from JSON.
type Values map[string]any

func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// OptionalString returns nil for absent or blank text.
func (v Values) OptionalString(name string) *string {
	s := strings.TrimSpace(v.String(name))
	if s == "" {
		return nil
	}
	return &s
}

func (v Values) Bool(name string) bool {
	b, _ := v[name].(bool)
	return b
}

// Checklist returns a checklist field as category to checked items.
func (v Values) Checklist(name string) map[string][]string {
	out := map[string][]string{}
	raw, ok := v[name].(map[string]any)
	if !ok {
		if typed, ok := v[name].(map[string][]string); ok {
			return typed
		}
		return out
	}
	for cat, items := range raw {
		list, _ := items.([]any)
		for _, it := range list {
			if s, ok := it.(string); ok {
				out[cat] = append(out[cat], s)
			}
		}
	}
	return out
}

// ValidationError carries one message per offending field.
type ValidationError struct {
	Form   FormType
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for n := range e.Fields {
		names = append(names, n)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, n := range names {
		parts = append(parts, n+": "+e.Fields[n])
	}
	return fmt.Sprintf("invalid %s form: %s", e.Form, strings.Join(parts, "; "))
}

type Schema struct {
	Form   FormType
	Fields []Field
	// Roles may submit this form.
	Roles []clinical.Role
}

func (s Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s Schema) Allows(role clinical.Role) bool {
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks v against the schema. It returns a *ValidationError
// listing every bad field, or nil.
func (s Schema) Validate(v Values) error {
	bad := map[string]string{}

	for name := range v {
		if _, ok := s.Field(name); !ok {
			bad[name] = "unknown field"
		}
	}
	for _, f := range s.Fields {
		if msg := checkField(f, v[f.Name]); msg != "" {
			bad[f.Name] = msg
		}
	}

	if len(bad) == 0 {
		return nil
	}
	return &ValidationError{Form: s.Form, Fields: bad}
}

func checkField(f Field, raw any) string {
	required := func() string {
		if f.Message != "" {
			return f.Message
		}
		return "is required"
	}

	if raw == nil {
		if f.Required {
			return required()
		}
		return ""
	}

	switch f.Kind {
	case KindText:
		s, ok := raw.(string)
		if !ok {
			return "must be text"
		}
		s = strings.TrimSpace(s)
		if f.Required && validate.Var(s, "required") != nil {
			return required()
		}
		if s != "" && f.Rule != "" && validate.Var(s, f.Rule) != nil {
			tag := strings.SplitN(f.Rule, "=", 2)[0]
			if tag == "max" {
				return "is too long"
			}
			return "is not a valid " + tag
		}
	case KindEnum:
		s, ok := raw.(string)
		if !ok {
			return "must be text"
		}
		if s == "" {
			if f.Required {
				return required()
			}
			return ""
		}
		if validate.Var(s, "oneof="+strings.Join(f.Options, " ")) != nil {
			return "must be one of " + strings.Join(f.Options, ", ")
		}
	case KindBool:
		if _, ok := raw.(bool); !ok {
			return "must be true or false"
		}
	case KindChecklist:
		return checkChecklist(f, raw)
	}
	return ""
}

func checkChecklist(f Field, raw any) string {
	m, ok := raw.(map[string]any)
	if !ok {
		return "must be an object of lists"
	}
	allowed := strings.Join(f.Options, " ")
	for cat, items := range m {
		if validate.Var(cat, "oneof="+allowed) != nil {
			return fmt.Sprintf("unknown category %q", cat)
		}
		list, ok := items.([]any)
		if !ok {
			return fmt.Sprintf("%s must be a list", cat)
		}
		strs := make([]string, 0, len(list))
		for _, it := range list {
			s, ok := it.(string)
			if !ok {
				return fmt.Sprintf("%s must list text items", cat)
			}
			strs = append(strs, s)
		}
		if validate.Var(strs, "dive,required") != nil {
			return fmt.Sprintf("%s contains a blank item", cat)
		}
	}
	if f.Required && len(m) == 0 {
		return "is required"
	}
	return ""
}
