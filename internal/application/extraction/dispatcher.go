package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
)

const (
	noTextImage    = "No text found in image"
	noTextPDF      = "No text found in PDF"
	noTextDocument = "No text found in document"
	emptyTextFile  = "Empty text file"
)

// strategy extracts text from one file type.
type strategy func(ctx context.Context, req *Request, path string) (media.Extraction, error)

// Deps are the collaborators the strategies need. All are required.
type Deps struct {
	OCR        media.OCREngine
	PDF        media.PDFReader
	Documents  media.DocumentReader
	Transcoder media.Transcoder
	Video      *VideoPipeline
}

// Dispatcher routes a classified file to its extraction strategy.
type Dispatcher struct {
	handlers map[media.FileType]strategy
}

// NewDispatcher builds the routing table and fails if any supported file
// type would be left without a strategy.
func NewDispatcher(d Deps) (*Dispatcher, error) {
	handlers := map[media.FileType]strategy{
		media.TypeText: extractText,
	}
	if d.OCR != nil {
		handlers[media.TypeImage] = imageStrategy(d.OCR)
	}
	if d.PDF != nil {
		handlers[media.TypePDF] = pdfStrategy(d.PDF)
	}
	if d.Documents != nil {
		handlers[media.TypeDoc] = documentStrategy(d.Documents)
	}
	if d.Transcoder != nil {
		handlers[media.TypeAudio] = audioStrategy(d.Transcoder)
	}
	if d.Video != nil {
		handlers[media.TypeVideo] = func(ctx context.Context, req *Request, path string) (media.Extraction, error) {
			return d.Video.Process(ctx, req, path), nil
		}
	}

	var missing []string
	for _, t := range media.AllTypes() {
		if _, ok := handlers[t]; !ok {
			missing = append(missing, string(t))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("no extraction strategy for: %s", strings.Join(missing, ", "))
	}
	return &Dispatcher{handlers: handlers}, nil
}

// Extract runs the strategy for ft. Unknown types fail without touching any
// extractor.
func (d *Dispatcher) Extract(ctx context.Context, req *Request, path string, ft media.FileType) (media.Extraction, error) {
	h, ok := d.handlers[ft]
	if !ok {
		return media.Extraction{}, &media.Error{
			Kind:     media.KindUnsupportedType,
			Op:       "dispatch",
			FileType: ft,
			Err:      errors.New("unsupported file type"),
		}
	}
	out, err := h(ctx, req, path)
	if err != nil {
		return media.Extraction{}, &media.Error{
			Kind:     media.KindExtractionFailed,
			Op:       fmt.Sprintf("%s extraction failed", ft),
			FileType: ft,
			Err:      err,
		}
	}
	if out.Metadata == nil {
		out.Metadata = media.Metadata{}
	}
	return out, nil
}

func orPlaceholder(text, placeholder string) string {
	if strings.TrimSpace(text) == "" {
		return placeholder
	}
	return text
}

func imageStrategy(ocr media.OCREngine) strategy {
	return func(ctx context.Context, _ *Request, path string) (media.Extraction, error) {
		text, err := ocr.Recognize(ctx, path)
		if err != nil {
			return media.Extraction{}, err
		}
		return media.Extraction{Text: orPlaceholder(text, noTextImage)}, nil
	}
}

func pdfStrategy(r media.PDFReader) strategy {
	return func(ctx context.Context, _ *Request, path string) (media.Extraction, error) {
		text, pages, err := r.ReadPDF(ctx, path)
		if err != nil {
			return media.Extraction{}, err
		}
		return media.Extraction{
			Text:     orPlaceholder(text, noTextPDF),
			Metadata: media.Metadata{media.MetaPageCount: pages},
		}, nil
	}
}

func documentStrategy(r media.DocumentReader) strategy {
	return func(ctx context.Context, _ *Request, path string) (media.Extraction, error) {
		text, err := r.ReadDocument(ctx, path)
		if err != nil {
			return media.Extraction{}, err
		}
		return media.Extraction{Text: orPlaceholder(text, noTextDocument)}, nil
	}
}

func extractText(_ context.Context, _ *Request, path string) (media.Extraction, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return media.Extraction{}, fmt.Errorf("read text file: %w", err)
	}
	text := strings.TrimSpace(strings.ToValidUTF8(string(b), "�"))
	return media.Extraction{Text: orPlaceholder(text, emptyTextFile)}, nil
}

const transcriptionNotice = `Note: Speech-to-text transcription requires external API integration.
Recommended services:
- OpenAI Whisper API (https://openai.com/research/whisper)
- Google Cloud Speech-to-Text
- AssemblyAI
- AWS Transcribe`

func audioStrategy(tc media.Transcoder) strategy {
	return func(ctx context.Context, req *Request, path string) (media.Extraction, error) {
		info, err := tc.Probe(ctx, path)
		if err != nil {
			return media.Extraction{}, fmt.Errorf("audio processing failed: %w", err)
		}
		duration := "Unknown"
		if info.DurationSeconds > 0 {
			duration = fmt.Sprintf("%.0f seconds", info.DurationSeconds)
		}
		format := info.Format
		if format == "" {
			format = "Unknown"
		}
		name := req.OriginalName
		if name == "" {
			name = path
		}
		text := fmt.Sprintf("=== AUDIO CONTENT ===\n\nAudio File: %s\nDuration: %s\nFormat: %s\n\n--- Transcription ---\n%s\n\n=== END OF AUDIO CONTENT ===",
			name, duration, format, transcriptionNotice)
		return media.Extraction{
			Text: text,
			Metadata: media.Metadata{
				media.MetaDuration: duration,
				media.MetaFormat:   format,
			},
		}, nil
	}
}
