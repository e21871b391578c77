package profilestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"apex-portrait/internal/portrait"
)

var (
	ErrRead  = errors.New("failed to read file")
	ErrParse = errors.New("invalid JSON file")
)

const exportExt = ".json"

// ExportFilename appends ".json" to name.
func ExportFilename(name string) string {
	return name + exportExt
}

// MarshalExport renders p as 2-space indented JSON without HTML escaping.
func MarshalExport(p portrait.Profile) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return nil, fmt.Errorf("encode profile: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func Export(w io.Writer, p portrait.Profile) error {
	data, err := MarshalExport(p)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ExportToDir writes p to dir/<filename>.json and returns the path.
func ExportToDir(dir string, p portrait.Profile, filename string) (string, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return "", errors.New("export filename is empty")
	}
	data, err := MarshalExport(p)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ExportFilename(filepath.Base(filename)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

// Import reads r fully and decodes it as a profile. Read failures wrap ErrRead,
// malformed content wraps ErrParse. No schema checks beyond parsing.
func Import(r io.Reader) (portrait.Profile, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return portrait.Profile{}, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return Parse(data)
}

// Parse decodes one exported profile. The document must be a JSON object;
// arrays, scalars and null wrap ErrParse. Unknown keys are ignored.
func Parse(data []byte) (portrait.Profile, error) {
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return portrait.Profile{}, fmt.Errorf("%w: not a JSON object", ErrParse)
	}
	var p portrait.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return portrait.Profile{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return p, nil
}

func ImportFile(path string) (portrait.Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return portrait.Profile{}, fmt.Errorf("%w: %v", ErrRead, err)
	}
	defer f.Close()
	return Import(f)
}
