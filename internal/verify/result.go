package verify

import (
	"rommate/internal/hackdetect"
	"rommate/internal/systems"
)

// Result is the immutable outcome of verifying one path.
type Result struct {
	Path     string         `json:"path"`
	Filename string         `json:"filename"`
	Entry    string         `json:"entry,omitempty"`
	System   systems.System `json:"system,omitempty"`
	Status   Status         `json:"status"`
	Message  string         `json:"message"`
	// Confidence is a percentage; hack verdicts use HackConfidence instead.
	Confidence int `json:"confidence"`

	Game    string   `json:"game,omitempty"`
	Matches []string `json:"matches,omitempty"`

	CRC32 string `json:"crc32,omitempty"`
	MD5   string `json:"md5,omitempty"`
	SHA1  string `json:"sha1,omitempty"`

	HeaderSize     int64   `json:"header_size,omitempty"`
	DigestsMatched int     `json:"digests_matched,omitempty"`
	Similarity     float64 `json:"similarity,omitempty"`
	CRCCollision   bool    `json:"crc_collision,omitempty"`

	HackCategory   hackdetect.Category `json:"hack_category,omitempty"`
	HackConfidence string              `json:"hack_confidence,omitempty"`

	// Details carries per-track lines for disc set checks.
	Details []string `json:"details,omitempty"`
}

// Verified reports whether the result counts as verified in summaries.
func (r Result) Verified() bool {
	return r.Status.Group() == GroupVerified
}

// DisplayName is the file name, with the archive entry when there is one.
func (r Result) DisplayName() string {
	if r.Entry != "" {
		return r.Filename + "/" + r.Entry
	}
	return r.Filename
}
