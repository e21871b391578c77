package portrait

import "strings"

// QualityClause closes every prompt, leading punctuation included.
const QualityClause = ". High-quality, professional photography, sharp focus, natural skin texture, proper lighting, photorealistic."

// GenerateAdvancedPrompt renders the six style clauses from lower-cased field
// values, then the notes verbatim when present, then the fixed quality clause.
// Empty fields render as empty slots; validation is the caller's job.
func GenerateAdvancedPrompt(form FormData) string {
	parts := []string{
		"Professional portrait for " + strings.ToLower(form.Purpose),
		"wearing " + strings.ToLower(form.Attire),
		"with " + strings.ToLower(form.Background) + " background",
		"conveying a " + strings.ToLower(form.Vibe) + " vibe",
		"using " + strings.ToLower(form.Lighting),
		"with " + strings.ToLower(form.Mood) + " mood",
	}

	var b strings.Builder
	b.Grow(256 + len(form.CustomNotes))
	b.WriteString(strings.Join(parts, ", "))
	if form.CustomNotes != "" {
		b.WriteString(". Additional details: ")
		b.WriteString(form.CustomNotes)
	}
	b.WriteString(QualityClause)
	return b.String()
}
