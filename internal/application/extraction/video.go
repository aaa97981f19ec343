package extraction

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bryanwahyu/mediaexplain/internal/application/artifacts"
	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
	"github.com/bryanwahyu/mediaexplain/internal/platform/logger"
)

const audioExtractedNote = "Audio extracted successfully.\nNote: Speech-to-text transcription requires external API (e.g., Google Speech-to-Text, OpenAI Whisper API)"

type VideoOptions struct {
	FramesPerSecond float64
	BatchSize       int
}

// VideoPipeline splits a video into an audio track and sampled frames and
// OCRs the frames in bounded batches. It never fails as a whole: stage
// failures become placeholder text.
type VideoPipeline struct {
	transcoder media.Transcoder
	ocr        media.OCREngine
	opts       VideoOptions
	log        *logger.Logger
}

func NewVideoPipeline(tc media.Transcoder, ocr media.OCREngine, opts VideoOptions, log *logger.Logger) *VideoPipeline {
	if opts.FramesPerSecond <= 0 {
		opts.FramesPerSecond = 0.5
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if log == nil {
		log = logger.Nop()
	}
	return &VideoPipeline{transcoder: tc, ocr: ocr, opts: opts, log: log.With("service", "VideoPipeline")}
}

func (p *VideoPipeline) Process(ctx context.Context, req *Request, videoPath string) media.Extraction {
	scope := req.Scope.Child()
	defer scope.Close(ctx)

	audioText, audioOK := p.audio(ctx, req, scope, videoPath)

	var (
		frameText string
		frames    []media.Frame
		failed    int
	)
	frames, err := p.sample(ctx, req, scope, videoPath)
	if err != nil {
		p.log.Warn("frame extraction failed", "request_id", req.ID, "error", err)
		frameText = fmt.Sprintf("Frame extraction failed: %s", err)
	} else {
		for _, f := range frames {
			scope.TrackFile(f.Path)
		}
		var lines []string
		lines, failed = p.recognize(ctx, frames)
		frameText = strings.Join(lines, "\n")
		if len(frames) == 0 {
			frameText = "No frames extracted"
		}
	}

	var b strings.Builder
	b.WriteString("=== VIDEO CONTENT EXTRACTION ===\n\n")
	b.WriteString("--- Audio Transcription ---\n")
	b.WriteString(audioText)
	b.WriteString("\n\n--- Frame Text Extraction (OCR) ---\n")
	b.WriteString(frameText)
	b.WriteString("\n\n=== END OF VIDEO CONTENT ===")

	p.log.Info("video processed", "request_id", req.ID, "frames", len(frames), "framesFailed", failed, "audioExtracted", audioOK)
	return media.Extraction{
		Text: b.String(),
		Metadata: media.Metadata{
			media.MetaFrameCount:     len(frames),
			media.MetaFramesFailed:   failed,
			media.MetaAudioExtracted: audioOK,
			media.MetaAudioText:      audioText,
		},
	}
}

func (p *VideoPipeline) audio(ctx context.Context, req *Request, scope *artifacts.Scope, videoPath string) (string, bool) {
	out := filepath.Join(req.WorkDir, "audio.mp3")
	scope.TrackFile(out)
	if _, err := p.transcoder.ExtractAudio(ctx, videoPath, out); err != nil {
		p.log.Warn("audio extraction failed", "request_id", req.ID, "error", err)
		return fmt.Sprintf("Audio extraction failed: %s", err), false
	}
	return audioExtractedNote, true
}

func (p *VideoPipeline) sample(ctx context.Context, req *Request, scope *artifacts.Scope, videoPath string) ([]media.Frame, error) {
	dir, err := os.MkdirTemp(req.WorkDir, "frames-*")
	if err != nil {
		return nil, fmt.Errorf("create frame dir: %w", err)
	}
	scope.TrackDir(dir)

	paths, err := p.transcoder.SampleFrames(ctx, videoPath, dir, p.opts.FramesPerSecond)
	if err != nil {
		return nil, err
	}
	frames := make([]media.Frame, len(paths))
	for i, path := range paths {
		frames[i] = media.Frame{Index: i + 1, Path: path}
	}
	return frames, nil
}

// recognize OCRs frames batch by batch. Frames inside a batch run
// concurrently; each result lands at its frame's index so output order is
// capture order whatever the completion order.
func (p *VideoPipeline) recognize(ctx context.Context, frames []media.Frame) ([]string, int) {
	lines := make([]string, len(frames))
	failed := make([]bool, len(frames))

	for start := 0; start < len(frames); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(frames))
		var g errgroup.Group
		g.SetLimit(p.opts.BatchSize)
		for i := start; i < end; i++ {
			g.Go(func() error {
				f := frames[i]
				text, err := p.ocr.Recognize(ctx, f.Path)
				if err != nil {
					lines[i] = fmt.Sprintf("[Frame %d]: OCR failed - %s", f.Index, err)
					failed[i] = true
					return nil
				}
				lines[i] = fmt.Sprintf("[Frame %d]: %s", f.Index, orPlaceholder(text, noTextImage))
				return nil
			})
		}
		_ = g.Wait()
	}

	n := 0
	for _, f := range failed {
		if f {
			n++
		}
	}
	return lines, n
}
