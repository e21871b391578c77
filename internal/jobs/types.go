package jobs

import (
	"strconv"
	"strings"
)

const DefaultStyle = "portrait"

// Request is the body of POST /jobs. Seed is nil, an int64 or a string.
type Request struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style"`
	Seed   any    `json:"seed"`
}

type Job struct {
	JobID    string  `json:"job_id"`
	Prompt   string  `json:"prompt,omitempty"`
	Style    string  `json:"style,omitempty"`
	Seed     any     `json:"seed,omitempty"`
	Status   string  `json:"status"`
	ImageURL *string `json:"image_url,omitempty"`
}

// NewRequest uses the resolution as the remote style, falling back to "portrait".
func NewRequest(prompt, resolution, seed string) Request {
	style := resolution
	if style == "" {
		style = DefaultStyle
	}
	return Request{
		Prompt: prompt,
		Style:  style,
		Seed:   ParseSeed(seed),
	}
}

// ParseSeed returns nil for an empty seed, an int64 for an integer and the raw
// string otherwise.
func ParseSeed(seed string) any {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		return nil
	}
	if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
		return n
	}
	return seed
}
