package portrait

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Icon  string `json:"icon,omitempty"`
}

type Field string

const (
	FieldPurpose    Field = "purpose"
	FieldAttire     Field = "attire"
	FieldBackground Field = "background"
	FieldVibe       Field = "vibe"
	FieldLighting   Field = "lighting"
	FieldMood       Field = "mood"
	FieldAgeRange   Field = "age_range"
	FieldGender     Field = "gender"
	FieldEthnicity  Field = "ethnicity"
	FieldResolution Field = "resolution"
)

// Fields lists the catalogued fields, basic info first.
func Fields() []Field {
	return []Field{
		FieldPurpose,
		FieldAttire,
		FieldBackground,
		FieldVibe,
		FieldLighting,
		FieldMood,
		FieldAgeRange,
		FieldGender,
		FieldEthnicity,
		FieldResolution,
	}
}

func (f Field) Title() string {
	switch f {
	case FieldPurpose:
		return "Purpose"
	case FieldAttire:
		return "Attire"
	case FieldBackground:
		return "Background"
	case FieldVibe:
		return "Vibe"
	case FieldLighting:
		return "Lighting"
	case FieldMood:
		return "Mood"
	case FieldAgeRange:
		return "Age range"
	case FieldGender:
		return "Gender"
	case FieldEthnicity:
		return "Ethnicity"
	case FieldResolution:
		return "Resolution"
	}
	return string(f)
}

func (f Field) IsBasic() bool {
	switch f {
	case FieldPurpose, FieldAttire, FieldBackground, FieldVibe:
		return true
	}
	return false
}

var catalog = map[Field][]Option{
	FieldPurpose: {
		{Value: "LinkedIn", Icon: "💼"},
		{Value: "Resume", Icon: "📄"},
		{Value: "Corporate Website", Icon: "🏢"},
		{Value: "Personal Branding", Icon: "✨"},
		{Value: "Business Card", Icon: "🎯"},
		{Value: "Other", Icon: "📋"},
	},
	FieldAttire: {
		{Value: "Business Formal", Icon: "👔"},
		{Value: "Business Casual", Icon: "👕"},
		{Value: "Smart Casual", Icon: "👻"},
		{Value: "Creative Professional", Icon: "🎨"},
		{Value: "Academic", Icon: "🎓"},
		{Value: "Other", Icon: "📋"},
	},
	FieldBackground: {
		{Value: "Corporate Office", Icon: "🏢"},
		{Value: "Plain Color", Icon: "🎨"},
		{Value: "Outdoor", Icon: "🌳"},
		{Value: "Studio-like", Icon: "📸"},
		{Value: "Library/Academic", Icon: "📚"},
		{Value: "Creative Space", Icon: "🎪"},
		{Value: "Other", Icon: "📋"},
	},
	FieldVibe: {
		{Value: "Confident", Icon: "💪"},
		{Value: "Friendly", Icon: "😊"},
		{Value: "Approachable", Icon: "🤝"},
		{Value: "Authoritative", Icon: "👑"},
		{Value: "Creative", Icon: "🎨"},
		{Value: "Sophisticated", Icon: "🎩"},
		{Value: "Warm", Icon: "☀️"},
	},
	FieldLighting: {
		{Value: "Natural Light", Icon: "☀️"},
		{Value: "Studio Lighting", Icon: "💡"},
		{Value: "Soft Lighting", Icon: "🕯️"},
		{Value: "Dramatic Lighting", Icon: "🎭"},
		{Value: "Golden Hour", Icon: "🌅"},
		{Value: "Professional Flash", Icon: "📸"},
	},
	FieldMood: {
		{Value: "Professional", Icon: "💼"},
		{Value: "Casual", Icon: "😌"},
		{Value: "Serious", Icon: "🧐"},
		{Value: "Energetic", Icon: "⚡"},
		{Value: "Calm", Icon: "😌"},
		{Value: "Inspiring", Icon: "✨"},
	},
	FieldAgeRange: {
		{Value: "20-30", Icon: "👶"},
		{Value: "30-40", Icon: "👨"},
		{Value: "40-50", Icon: "👔"},
		{Value: "50-60", Icon: "👴"},
		{Value: "60+", Icon: "👵"},
		{Value: NotSpecified, Icon: "❓"},
	},
	FieldGender: {
		{Value: "Male", Icon: "👨"},
		{Value: "Female", Icon: "👩"},
		{Value: "Non-binary", Icon: "🧑"},
		{Value: NotSpecified, Icon: "❓"},
	},
	FieldEthnicity: {
		{Value: "Asian", Icon: "🌏"},
		{Value: "Black", Icon: "🌍"},
		{Value: "Caucasian", Icon: "🌎"},
		{Value: "Hispanic", Icon: "🌮"},
		{Value: "Middle Eastern", Icon: "🕌"},
		{Value: "Mixed", Icon: "🌈"},
		{Value: NotSpecified, Icon: "❓"},
	},
	FieldResolution: {
		{Value: "1024x1024 (Standard)", Icon: "📐"},
		{Value: "1536x1024 (Wide)", Icon: "📏"},
		{Value: "1024x1536 (Portrait)", Icon: "📱"},
		{Value: "2048x2048 (High-Res)", Icon: "🖥️"},
	},
}

// OptionsFor returns a copy of the options for f, labels filled in as "<icon> <value>".
func OptionsFor(f Field) []Option {
	src := catalog[f]
	out := make([]Option, 0, len(src))
	for _, o := range src {
		o.Label = o.Value
		if o.Icon != "" {
			o.Label = o.Icon + " " + o.Value
		}
		out = append(out, o)
	}
	return out
}

func IsKnownValue(f Field, value string) bool {
	for _, o := range catalog[f] {
		if o.Value == value {
			return true
		}
	}
	return false
}

// Catalog returns every field's options keyed by field name.
func Catalog() map[Field][]Option {
	out := make(map[Field][]Option, len(catalog))
	for _, f := range Fields() {
		out[f] = OptionsFor(f)
	}
	return out
}
