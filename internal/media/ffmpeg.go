package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const framePattern = "frame_%05d.jpg"

// ExtractionError is returned when the transcoder fails or yields no frames.
type ExtractionError struct {
	VideoPath string
	Reason    string
	Err       error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frame extraction from %s failed: %s: %v", e.VideoPath, e.Reason, e.Err)
	}
	return fmt.Sprintf("frame extraction from %s failed: %s", e.VideoPath, e.Reason)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

type FFmpegExtractor struct {
	ffmpegPath string
	maxFrames  int
}

// NewFFmpegExtractor creates an extractor running the given ffmpeg binary. If
// maxFrames is positive, at most that many frames are written per video.
func NewFFmpegExtractor(ffmpegPath string, maxFrames int) *FFmpegExtractor {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegExtractor{ffmpegPath: ffmpegPath, maxFrames: maxFrames}
}

// ExtractFrames samples videoPath at framesPerSecond into outputDir and returns
// the frame paths in acquisition order.
// Rates below one frame per second are allowed, e.g. 0.5 samples every 2s.
func (f *FFmpegExtractor) ExtractFrames(ctx context.Context, videoPath, outputDir string, framesPerSecond float64) ([]string, error) {
	if !(framesPerSecond > 0) || math.IsInf(framesPerSecond, 1) {
		return nil, &ExtractionError{VideoPath: videoPath, Reason: fmt.Sprintf("invalid frame rate %g", framesPerSecond)}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", outputDir, err)
	}

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", videoPath,
		"-vf", "fps=" + strconv.FormatFloat(framesPerSecond, 'f', -1, 64),
		"-q:v", "2",
	}
	if f.maxFrames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(f.maxFrames))
	}
	args = append(args, "-y", filepath.Join(outputDir, framePattern))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	cmd.Stderr = &stderr

	slog.Info("extracting frames", "video", videoPath, "fps", framesPerSecond, "max_frames", f.maxFrames)

	if err := cmd.Run(); err != nil {
		return nil, &ExtractionError{
			VideoPath: videoPath,
			Reason:    "ffmpeg exited with error: " + strings.TrimSpace(stderr.String()),
			Err:       err,
		}
	}

	frames, err := collectFramePaths(outputDir)
	if err != nil {
		return nil, &ExtractionError{VideoPath: videoPath, Reason: "unable to list frames", Err: err}
	}

	if len(frames) == 0 {
		return nil, &ExtractionError{VideoPath: videoPath, Reason: "no frames produced"}
	}

	slog.Info("extracted frames", "video", videoPath, "frames", len(frames))

	return frames, nil
}

func collectFramePaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var frames []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "frame_") {
			continue
		}
		if ext := strings.ToLower(filepath.Ext(name)); ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
			continue
		}
		frames = append(frames, filepath.Join(dir, name))
	}

	// Names are zero padded, so lexical order is acquisition order.
	sort.Strings(frames)

	return frames, nil
}
