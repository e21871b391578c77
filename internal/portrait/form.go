package portrait

import "strings"

const NotSpecified = "Not Specified"

const (
	DefaultLighting   = "Professional Flash"
	DefaultMood       = "Professional"
	DefaultResolution = "1024x1024 (Standard)"
)

// FormData is the in-progress editor state. Methods return modified copies.
type FormData struct {
	Purpose    string `json:"purpose"`
	Attire     string `json:"attire"`
	Background string `json:"background"`
	Vibe       string `json:"vibe"`

	Lighting   string `json:"lighting"`
	Mood       string `json:"mood"`
	AgeRange   string `json:"age_range"`
	Gender     string `json:"gender"`
	Ethnicity  string `json:"ethnicity"`
	Resolution string `json:"resolution"`

	// ReferencePhoto is a path or file name; only the base name is kept in a profile.
	ReferencePhoto string `json:"reference_photo,omitempty"`
	CustomNotes    string `json:"custom_notes"`
	Seed           string `json:"seed,omitempty"`
	SaveProfile    bool   `json:"save_profile"`
	PresetName     string `json:"preset_name,omitempty"`
}

func DefaultForm() FormData {
	return FormData{
		Lighting:    DefaultLighting,
		Mood:        DefaultMood,
		AgeRange:    NotSpecified,
		Gender:      NotSpecified,
		Ethnicity:   NotSpecified,
		Resolution:  DefaultResolution,
		CustomNotes: "",
		SaveProfile: true,
	}
}

// WithDefaults fills empty advanced settings with their default values.
func (f FormData) WithDefaults() FormData {
	d := DefaultForm()
	if f.Lighting == "" {
		f.Lighting = d.Lighting
	}
	if f.Mood == "" {
		f.Mood = d.Mood
	}
	if f.AgeRange == "" {
		f.AgeRange = d.AgeRange
	}
	if f.Gender == "" {
		f.Gender = d.Gender
	}
	if f.Ethnicity == "" {
		f.Ethnicity = d.Ethnicity
	}
	if f.Resolution == "" {
		f.Resolution = d.Resolution
	}
	return f
}

func (f FormData) Get(field Field) string {
	switch field {
	case FieldPurpose:
		return f.Purpose
	case FieldAttire:
		return f.Attire
	case FieldBackground:
		return f.Background
	case FieldVibe:
		return f.Vibe
	case FieldLighting:
		return f.Lighting
	case FieldMood:
		return f.Mood
	case FieldAgeRange:
		return f.AgeRange
	case FieldGender:
		return f.Gender
	case FieldEthnicity:
		return f.Ethnicity
	case FieldResolution:
		return f.Resolution
	}
	return ""
}

func (f FormData) Set(field Field, value string) FormData {
	switch field {
	case FieldPurpose:
		f.Purpose = value
	case FieldAttire:
		f.Attire = value
	case FieldBackground:
		f.Background = value
	case FieldVibe:
		f.Vibe = value
	case FieldLighting:
		f.Lighting = value
	case FieldMood:
		f.Mood = value
	case FieldAgeRange:
		f.AgeRange = value
	case FieldGender:
		f.Gender = value
	case FieldEthnicity:
		f.Ethnicity = value
	case FieldResolution:
		f.Resolution = value
	}
	return f
}

// ProfileToFormData maps a stored profile back to editable fields. SaveProfile,
// ReferencePhoto and Seed stay zero; PresetName is empty when the profile has none.
func ProfileToFormData(p Profile) FormData {
	return FormData{
		Purpose:     p.BasicInfo.Purpose,
		Attire:      p.BasicInfo.Attire,
		Background:  p.BasicInfo.Background,
		Vibe:        p.BasicInfo.Vibe,
		Lighting:    p.AdvancedSettings.Lighting,
		Mood:        p.AdvancedSettings.Mood,
		AgeRange:    p.AdvancedSettings.AgeRange,
		Gender:      p.AdvancedSettings.Gender,
		Ethnicity:   p.AdvancedSettings.Ethnicity,
		Resolution:  p.AdvancedSettings.Resolution,
		CustomNotes: deref(p.AdditionalInfo.CustomNotes),
		PresetName:  deref(p.AdditionalInfo.PresetUsed),
	}
}

// WithProfile loads p into the editor, keeping the save flag, reference photo and seed.
func (f FormData) WithProfile(p Profile) FormData {
	next := ProfileToFormData(p)
	next.SaveProfile = f.SaveProfile
	next.ReferencePhoto = f.ReferencePhoto
	next.Seed = f.Seed
	return next
}

// ParseArgs matches the whole string, then each comma separated chunk, against
// preset names and catalog values, case-insensitively. Unmatched chunks become
// custom notes.
func ParseArgs(args string, base FormData, book *PresetBook) FormData {
	args = strings.TrimSpace(args)
	if args == "" {
		return base
	}

	out := base
	if book != nil {
		if applied, ok := book.Apply(out, args); ok {
			return applied
		}
	}

	var custom []string
	for _, chunk := range strings.Split(args, ",") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		if book != nil {
			if applied, ok := book.Apply(out, chunk); ok {
				out = applied
				continue
			}
		}
		if field, value, ok := LookupValue(chunk); ok {
			out = out.Set(field, value)
			continue
		}
		custom = append(custom, chunk)
	}

	if len(custom) > 0 {
		out.CustomNotes = strings.Join(custom, ", ")
	}
	return out
}

// LookupValue finds the first field whose catalog holds token. Values shared by
// several fields, like "Other", resolve to the earliest field.
func LookupValue(token string) (Field, string, bool) {
	token = strings.TrimSpace(token)
	for _, f := range Fields() {
		for _, o := range catalog[f] {
			if strings.EqualFold(o.Value, token) {
				return f, o.Value, true
			}
		}
	}
	return "", "", false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
