package ffmpeg

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/mediaexplain/internal/domain/media"
)

const framePattern = "frame-%04d.jpg"

// Runner shells out to ffmpeg and ffprobe.
type Runner struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration

	// run is swapped in tests
	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewRunner(ffmpegPath, ffprobePath string) *Runner {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Runner{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     10 * time.Minute,
		run:         combinedOutput,
	}
}

func combinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Available reports whether both binaries are on PATH.
func (r *Runner) Available() bool {
	_, errA := exec.LookPath(r.ffmpegPath)
	_, errB := exec.LookPath(r.ffprobePath)
	return errA == nil && errB == nil
}

func audioArgs(videoPath, outPath string) []string {
	return []string{"-y", "-i", videoPath, "-vn", "-acodec", "libmp3lame", "-b:a", "128k", outPath}
}

func frameArgs(videoPath, outDir string, fps float64) []string {
	return []string{
		"-y", "-i", videoPath,
		"-vf", "fps=" + strconv.FormatFloat(fps, 'f', -1, 64),
		"-q:v", "2",
		filepath.Join(outDir, framePattern),
	}
}

func probeArgs(path string) []string {
	return []string{"-v", "quiet", "-print_format", "json", "-show_format", path}
}

func (r *Runner) ExtractAudio(ctx context.Context, videoPath, outPath string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("mkdir audio dir: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if out, err := r.run(ctx, r.ffmpegPath, audioArgs(videoPath, outPath)...); err != nil {
		return "", fmt.Errorf("ffmpeg extract audio failed: %w; out=%s", err, tail(out))
	}
	if _, err := os.Stat(outPath); err != nil {
		return "", fmt.Errorf("audio output missing at %s", outPath)
	}
	return outPath, nil
}

func (r *Runner) SampleFrames(ctx context.Context, videoPath, outDir string, fps float64) ([]string, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("invalid frame rate %v", fps)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir frame dir: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if out, err := r.run(ctx, r.ffmpegPath, frameArgs(videoPath, outDir, fps)...); err != nil {
		return nil, fmt.Errorf("ffmpeg sample frames failed: %w; out=%s", err, tail(out))
	}
	return listFrames(outDir)
}

// listFrames returns the frame files in capture order. Ordering is by the
// numeric sequence, since ffmpeg widens the number past %04d.
func listFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	type frame struct {
		seq  int
		path string
	}
	var frames []frame
	for _, e := range entries {
		seq, ok := frameSeq(e.Name())
		if e.IsDir() || !ok {
			continue
		}
		frames = append(frames, frame{seq: seq, path: filepath.Join(dir, e.Name())})
	}
	slices.SortFunc(frames, func(a, b frame) int { return cmp.Compare(a.seq, b.seq) })
	paths := make([]string, 0, len(frames))
	for _, f := range frames {
		paths = append(paths, f.path)
	}
	return paths, nil
}

// frameSeq parses the sequence number out of "frame-<n>.jpg".
func frameSeq(name string) (int, bool) {
	if !strings.HasPrefix(name, "frame-") || !strings.HasSuffix(name, ".jpg") {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "frame-"), ".jpg"))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

type probeOutput struct {
	Format struct {
		FormatName string `json:"format_name"`
		Duration   string `json:"duration"`
	} `json:"format"`
}

func (r *Runner) Probe(ctx context.Context, path string) (media.ProbeInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	out, err := r.run(ctx, r.ffprobePath, probeArgs(path)...)
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return media.ProbeInfo{}, fmt.Errorf("ffprobe exited with %d: %s", ee.ExitCode(), tail(out))
		}
		return media.ProbeInfo{}, fmt.Errorf("run ffprobe: %w", err)
	}
	return parseProbe(out)
}

func parseProbe(out []byte) (media.ProbeInfo, error) {
	var p probeOutput
	if err := json.Unmarshal(out, &p); err != nil {
		return media.ProbeInfo{}, fmt.Errorf("decode ffprobe output: %w", err)
	}
	info := media.ProbeInfo{Format: p.Format.FormatName}
	if p.Format.Duration != "" {
		d, err := strconv.ParseFloat(p.Format.Duration, 64)
		if err != nil {
			return media.ProbeInfo{}, fmt.Errorf("parse duration %q: %w", p.Format.Duration, err)
		}
		info.DurationSeconds = d
	}
	return info, nil
}

func tail(out []byte) string {
	const max = 512
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		s = s[len(s)-max:]
	}
	return s
}
