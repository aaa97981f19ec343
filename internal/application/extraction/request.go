// Package extraction turns an uploaded file or a remote URL into text and
// an AI analysis, owning every transient artifact along the way.
package extraction

import (
	"github.com/bryanwahyu/mediaexplain/internal/application/artifacts"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
)

type InputKind int

const (
	InputUpload InputKind = iota + 1
	InputURL
)

func (k InputKind) String() string {
	switch k {
	case InputUpload:
		return "upload"
	case InputURL:
		return "url"
	}
	return "unknown"
}

// Input is what the caller hands to Extract: either a file already on local
// disk (Path) or a remote URL.
type Input struct {
	Kind         InputKind
	Path         string
	URL          string
	OriginalName string
}

func UploadInput(path, originalName string) Input {
	return Input{Kind: InputUpload, Path: path, OriginalName: originalName}
}

func URLInput(rawURL string) Input {
	return Input{Kind: InputURL, URL: rawURL}
}

// Request is the per-invocation state of one pipeline run.
type Request struct {
	ID           string
	Input        Input
	FileType     media.FileType
	OriginalName string
	// WorkDir is private to this request; every temp file lands inside it.
	WorkDir   string
	Scope     *artifacts.Scope
	StagedKey string
}

// Response is the JSON body returned for a successful extraction.
type Response struct {
	Success       bool           `json:"success"`
	ExtractedText string         `json:"extractedText"`
	AIExplanation string         `json:"aiExplanation"`
	Summary       string         `json:"summary"`
	KeyPoints     []string       `json:"keyPoints"`
	Metadata      media.Metadata `json:"metadata"`
}
