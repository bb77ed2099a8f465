package harness

import "strings"

// Result is the outcome of a scenario run.
type Result struct {
	Scenario string `json:"scenario"`

	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Transcript lists each case followed by its rendered SQL or error.
	Transcript []string `json:"transcript"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult(scenario string) *Result {
	return &Result{
		Scenario:   scenario,
		Pass:       true,
		Transcript: []string{},
		Errors:     []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddLine appends a transcript line.
func (r *Result) AddLine(line string) {
	r.Transcript = append(r.Transcript, line)
}

// TranscriptText returns the transcript as newline-terminated lines.
func (r *Result) TranscriptText() string {
	if len(r.Transcript) == 0 {
		return ""
	}
	return strings.Join(r.Transcript, "\n") + "\n"
}
