package handlers

import (
	"errors"
	"path"
	"strconv"
	"strings"

	"apex-portrait/internal/portrait"
	"apex-portrait/internal/profilestore"
)

func isJSONDocument(fileName, mimeType string) bool {
	if strings.EqualFold(path.Ext(fileName), ".json") {
		return true
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return mimeType == "application/json" || mimeType == "text/json"
}

func isImageDocument(fileName, mimeType string) bool {
	if strings.HasPrefix(strings.ToLower(mimeType), "image/") {
		return true
	}
	switch strings.ToLower(path.Ext(fileName)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".heic":
		return true
	}
	return false
}

// importName is the storage key for an imported file: its name without the
// .json extension, or a positional fallback.
func importName(fileName string, i int) string {
	name := strings.TrimSpace(path.Base(fileName))
	if ext := path.Ext(name); strings.EqualFold(ext, ".json") {
		name = strings.TrimSuffix(name, ext)
	}
	if name == "" || name == "." || name == "/" {
		return "imported_profile_" + strconv.Itoa(i+1)
	}
	return name
}

func importErrorText(err error) string {
	switch {
	case errors.Is(err, profilestore.ErrParse):
		return profilestore.ErrParse.Error()
	case errors.Is(err, profilestore.ErrRead):
		return profilestore.ErrRead.Error()
	}
	return err.Error()
}

// normalizeSeed treats "-", "none" and "random" as clearing the seed.
func normalizeSeed(text string) string {
	text = strings.TrimSpace(text)
	switch strings.ToLower(text) {
	case "", "-", "none", "random":
		return ""
	}
	return text
}

// looksLikeFormInput reports whether free text names a preset or at least one
// catalog value, so it can be applied to the form.
func looksLikeFormInput(text string, book *portrait.PresetBook) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	if _, ok := book.Lookup(text); ok {
		return true
	}
	for _, chunk := range strings.Split(text, ",") {
		if _, ok := book.Lookup(strings.TrimSpace(chunk)); ok {
			return true
		}
		if _, _, ok := portrait.LookupValue(chunk); ok {
			return true
		}
	}
	return false
}
