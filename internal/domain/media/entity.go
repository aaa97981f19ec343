package media

import (
	"fmt"
	"strconv"
)

// Metadata carries type-specific facts about an extraction (frame count,
// page count, duration...). Keys are camelCase to match the JSON response.
type Metadata map[string]any

const (
	MetaOriginalName   = "originalName"
	MetaFileType       = "fileType"
	MetaProcessedAt    = "processedAt"
	MetaFrameCount     = "frameCount"
	MetaFramesFailed   = "framesFailed"
	MetaAudioExtracted = "audioExtracted"
	MetaAudioText      = "audioText"
	MetaPageCount      = "pageCount"
	MetaDuration       = "duration"
	MetaFormat         = "format"
)

// Int returns the integer value stored under key, or 0 when absent.
func (m Metadata) Int(key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

// String returns the string form of the value under key, or "".
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Merge copies every entry of other into m, overwriting existing keys.
func (m Metadata) Merge(other Metadata) {
	for k, v := range other {
		m[k] = v
	}
}

// Extraction is the output of one extraction strategy.
type Extraction struct {
	Text     string
	Metadata Metadata
}

// Frame is one sampled video frame. Index is 1-based in capture order.
type Frame struct {
	Index int
	Path  string
}

// StagedObject identifies a file uploaded to object storage.
type StagedObject struct {
	Key string
	URL string
}

// ProbeInfo is container-level information about an audio/video file.
type ProbeInfo struct {
	DurationSeconds float64
	Format          string
}
