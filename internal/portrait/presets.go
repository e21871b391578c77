package portrait

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Preset struct {
	Name        string `json:"name" yaml:"name"`
	Purpose     string `json:"purpose" yaml:"purpose"`
	Attire      string `json:"attire" yaml:"attire"`
	Background  string `json:"background" yaml:"background"`
	Vibe        string `json:"vibe" yaml:"vibe"`
	CustomNotes string `json:"custom_notes" yaml:"custom_notes"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

var builtinPresets = []Preset{
	{
		Name:        "LinkedIn Professional",
		Purpose:     "LinkedIn",
		Attire:      "Business Formal",
		Background:  "Corporate Office",
		Vibe:        "Confident",
		CustomNotes: "Professional headshot optimized for LinkedIn profile. Clean, crisp, and trustworthy appearance.",
		Description: "Perfect for professional networking and career profiles",
	},
	{
		Name:        "Creative Portfolio",
		Purpose:     "Personal Branding",
		Attire:      "Creative Professional",
		Background:  "Creative Space",
		Vibe:        "Creative",
		CustomNotes: "Artistic and creative professional portrait showcasing personality and creativity.",
		Description: "Ideal for artists, designers, and creative professionals",
	},
	{
		Name:        "Academic Profile",
		Purpose:     "Resume",
		Attire:      "Academic",
		Background:  "Library/Academic",
		Vibe:        "Sophisticated",
		CustomNotes: "Professional academic portrait suitable for research profiles and institutional websites.",
		Description: "Great for researchers, professors, and academic professionals",
	},
	{
		Name:        "Startup Founder",
		Purpose:     "Personal Branding",
		Attire:      "Smart Casual",
		Background:  "Plain Color",
		Vibe:        "Confident",
		CustomNotes: "Modern entrepreneur portrait combining professionalism with approachable startup culture.",
		Description: "Modern look for entrepreneurs and startup leaders",
	},
	{
		Name:        "Executive Portrait",
		Purpose:     "Corporate Website",
		Attire:      "Business Formal",
		Background:  "Corporate Office",
		Vibe:        "Authoritative",
		CustomNotes: "High-level executive portrait projecting leadership, authority, and corporate excellence.",
		Description: "High-level corporate portraits for C-suite executives",
	},
}

// PresetBook is an ordered, read-only set of presets.
type PresetBook struct {
	order []string
	m     map[string]Preset
}

// NewPresetBook starts from the built-in presets. An extra preset with a built-in
// name replaces it in place; new names are appended.
func NewPresetBook(extra ...Preset) *PresetBook {
	b := &PresetBook{m: make(map[string]Preset, len(builtinPresets)+len(extra))}
	for _, p := range builtinPresets {
		b.add(p)
	}
	for _, p := range extra {
		b.add(p)
	}
	return b
}

var defaultBook = NewPresetBook()

func DefaultPresetBook() *PresetBook {
	return defaultBook
}

func (b *PresetBook) add(p Preset) {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return
	}
	if _, ok := b.m[p.Name]; !ok {
		b.order = append(b.order, p.Name)
	}
	b.m[p.Name] = p
}

func (b *PresetBook) Names() []string {
	return append([]string(nil), b.order...)
}

func (b *PresetBook) List() []Preset {
	out := make([]Preset, 0, len(b.order))
	for _, name := range b.order {
		out = append(out, b.m[name])
	}
	return out
}

func (b *PresetBook) Lookup(name string) (Preset, bool) {
	p, ok := b.m[name]
	if ok {
		return p, true
	}
	for _, key := range b.order {
		if strings.EqualFold(key, strings.TrimSpace(name)) {
			return b.m[key], true
		}
	}
	return Preset{}, false
}

// Apply overwrites the preset's basic fields and notes, records the preset name
// and leaves everything else untouched.
func (b *PresetBook) Apply(form FormData, name string) (FormData, bool) {
	p, ok := b.Lookup(name)
	if !ok {
		return form, false
	}
	form.Purpose = p.Purpose
	form.Attire = p.Attire
	form.Background = p.Background
	form.Vibe = p.Vibe
	form.CustomNotes = p.CustomNotes
	form.PresetName = p.Name
	return form, true
}

func ApplyPreset(form FormData, name string) (FormData, bool) {
	return defaultBook.Apply(form, name)
}

func AppliedPresetStatus(name string) string {
	return "✨ Applied preset: " + name
}

type presetFile struct {
	Presets []Preset `yaml:"presets"`
}

// ReadPresetsYAML decodes a document of the form `presets: [{name: ..., purpose: ...}]`.
func ReadPresetsYAML(r io.Reader) ([]Preset, error) {
	var doc presetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode presets: %w", err)
	}

	for i, p := range doc.Presets {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("preset #%d: name is required", i+1)
		}
	}
	return doc.Presets, nil
}

// LoadPresetBook builds a book from the built-ins plus the YAML file at path.
// An empty path yields the default book.
func LoadPresetBook(path string) (*PresetBook, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return defaultBook, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open presets file: %w", err)
	}
	defer f.Close()

	extra, err := ReadPresetsYAML(f)
	if err != nil {
		return nil, err
	}
	return NewPresetBook(extra...), nil
}
