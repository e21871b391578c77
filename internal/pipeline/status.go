package pipeline

import (
	"errors"
	"strings"

	"apex-portrait/internal/jobs"
	"apex-portrait/internal/portrait"
)

const MsgGenerated = "✅ Advanced style profile generated successfully!"

// Status composes the user-facing line: the local result first, then the save
// and submission suffixes.
func (o Outcome) Status() string {
	if !o.Generated() {
		return o.Validation.Message
	}

	var b strings.Builder
	b.WriteString(MsgGenerated)

	if o.Save.Requested {
		if o.Save.Err != nil {
			b.WriteString(" | ⚠️ Save failed: " + o.Save.Err.Error())
		} else {
			b.WriteString(" | 💾 Saved to: " + o.Save.Key)
		}
	}

	if o.Submit.Attempted {
		switch {
		case errors.Is(o.Submit.Err, jobs.ErrNoJobID):
			b.WriteString(" | ⚠️ No job returned")
		case o.Submit.Err != nil:
			b.WriteString(" | ❌ Backend error: " + o.Submit.Err.Error())
		default:
			b.WriteString(" | 🖼️ Job submitted: " + o.Submit.JobID)
		}
	}

	return b.String()
}

// Report is the JSON view of an Outcome.
type Report struct {
	Generated   bool              `json:"generated"`
	Status      string            `json:"status"`
	Validation  string            `json:"validation"`
	Profile     *portrait.Profile `json:"profile,omitempty"`
	Prompt      string            `json:"advanced_prompt,omitempty"`
	SavedFile   string            `json:"saved_file,omitempty"`
	SaveError   string            `json:"save_error,omitempty"`
	JobID       string            `json:"job_id,omitempty"`
	SubmitError string            `json:"submit_error,omitempty"`
}

func (o Outcome) Report() Report {
	r := Report{
		Generated:  o.Generated(),
		Status:     o.Status(),
		Validation: o.Validation.Message,
		Profile:    o.Profile,
		Prompt:     o.Prompt,
		SavedFile:  o.Save.Key,
		JobID:      o.Submit.JobID,
	}
	if o.Save.Err != nil {
		r.SaveError = o.Save.Err.Error()
	}
	if o.Submit.Err != nil {
		r.SubmitError = o.Submit.Err.Error()
	}
	return r
}
