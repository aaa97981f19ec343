package media

import (
	"context"
	"io"
)

// OCREngine recognizes text in a single image file.
type OCREngine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// PDFReader extracts plain text and the page count from a PDF.
type PDFReader interface {
	ReadPDF(ctx context.Context, path string) (text string, pages int, err error)
}

// DocumentReader extracts raw text from a word-processing document.
type DocumentReader interface {
	ReadDocument(ctx context.Context, path string) (string, error)
}

// Transcoder wraps the audio/video tooling.
type Transcoder interface {
	ExtractAudio(ctx context.Context, videoPath, outPath string) (string, error)
	// SampleFrames writes frames into outDir and returns their paths in capture order.
	SampleFrames(ctx context.Context, videoPath, outDir string, fps float64) ([]string, error)
	Probe(ctx context.Context, path string) (ProbeInfo, error)
}

// ObjectStore is the staging area for URL inputs.
type ObjectStore interface {
	Upload(ctx context.Context, localPath, key string) (StagedObject, error)
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
