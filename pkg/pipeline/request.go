package pipeline

import (
	"fmt"
	"strings"
)

// Request is one form submission: modify File on Branch of Repo as the
// holder of Token according to Instruction.
type Request struct {
	Token       string `json:"-"`
	Repo        string `json:"repo"`
	Branch      string `json:"branch"`
	File        string `json:"file"`
	Instruction string `json:"request"`
}

// MissingFieldsError lists the required fields a request left blank
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// Validate checks that every field is present
func (r Request) Validate() error {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"token", r.Token},
		{"repo", r.Repo},
		{"branch", r.Branch},
		{"file", r.File},
		{"request", r.Instruction},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}
