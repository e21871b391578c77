package portrait

import (
	"path/filepath"
	"strings"
	"time"
)

const (
	SchemaVersion   = "2.0"
	CreatedBy       = "APEX Portrait Generator (Web)"
	TimestampLayout = "2006-01-02 15:04:05"
)

type BasicInfo struct {
	Purpose    string `json:"purpose"`
	Attire     string `json:"attire"`
	Background string `json:"background"`
	Vibe       string `json:"vibe"`
}

type AdvancedSettings struct {
	Lighting   string `json:"lighting"`
	Mood       string `json:"mood"`
	AgeRange   string `json:"age_range"`
	Gender     string `json:"gender"`
	Ethnicity  string `json:"ethnicity"`
	Resolution string `json:"resolution"`
}

type AdditionalInfo struct {
	ReferencePhoto *string `json:"reference_photo"`
	CustomNotes    *string `json:"custom_notes"`
	PresetUsed     *string `json:"preset_used"`
}

type Metadata struct {
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	CreatedBy string `json:"created_by"`
}

// Profile is treated as immutable; WithPrompt returns a new value.
type Profile struct {
	BasicInfo        BasicInfo        `json:"basic_info"`
	AdvancedSettings AdvancedSettings `json:"advanced_settings"`
	AdditionalInfo   AdditionalInfo   `json:"additional_info"`
	Metadata         Metadata         `json:"metadata"`
	GeneratedPrompt  *string          `json:"generated_prompt,omitempty"`
}

func (p Profile) WithPrompt(prompt string) Profile {
	p.GeneratedPrompt = stringPtr(prompt)
	return p
}

func (p Profile) Prompt() string {
	return deref(p.GeneratedPrompt)
}

type ValidationResult struct {
	IsValid bool   `json:"is_valid"`
	Message string `json:"message"`
}

const (
	MsgMissingPurpose    = "⚠️ Please select a purpose for your portrait"
	MsgMissingAttire     = "⚠️ Please select your preferred attire"
	MsgMissingBackground = "⚠️ Please select a background style"
	MsgMissingVibe       = "⚠️ Please select your desired vibe"
	MsgValid             = "✅ All inputs valid"
)

// ValidateBasicInfo reports the first empty field in the order purpose, attire,
// background, vibe.
func ValidateBasicInfo(purpose, attire, background, vibe string) ValidationResult {
	switch {
	case purpose == "":
		return ValidationResult{Message: MsgMissingPurpose}
	case attire == "":
		return ValidationResult{Message: MsgMissingAttire}
	case background == "":
		return ValidationResult{Message: MsgMissingBackground}
	case vibe == "":
		return ValidationResult{Message: MsgMissingVibe}
	}
	return ValidationResult{IsValid: true, Message: MsgValid}
}

func (f FormData) Validate() ValidationResult {
	return ValidateBasicInfo(f.Purpose, f.Attire, f.Background, f.Vibe)
}

// CreateProfileData builds a profile stamped with the current local time.
func CreateProfileData(form FormData) Profile {
	return BuildProfile(form, time.Now())
}

// BuildProfile copies the form fields verbatim. No prompt is attached.
func BuildProfile(form FormData, now time.Time) Profile {
	return Profile{
		BasicInfo: BasicInfo{
			Purpose:    form.Purpose,
			Attire:     form.Attire,
			Background: form.Background,
			Vibe:       form.Vibe,
		},
		AdvancedSettings: AdvancedSettings{
			Lighting:   form.Lighting,
			Mood:       form.Mood,
			AgeRange:   form.AgeRange,
			Gender:     form.Gender,
			Ethnicity:  form.Ethnicity,
			Resolution: form.Resolution,
		},
		AdditionalInfo: AdditionalInfo{
			ReferencePhoto: photoName(form.ReferencePhoto),
			CustomNotes:    nonEmpty(form.CustomNotes),
			PresetUsed:     nonEmpty(form.PresetName),
		},
		Metadata: Metadata{
			Timestamp: now.Format(TimestampLayout),
			Version:   SchemaVersion,
			CreatedBy: CreatedBy,
		},
	}
}

func photoName(ref string) *string {
	if ref == "" {
		return nil
	}
	name := filepath.Base(strings.ReplaceAll(ref, `\`, "/"))
	if name == "." || name == "/" {
		return nil
	}
	return &name
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringPtr(s string) *string {
	return &s
}
