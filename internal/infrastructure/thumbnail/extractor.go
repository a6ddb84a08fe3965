package thumbnail

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Extractor grabs a preview frame from a video file with ffmpeg. Extraction
// is best-effort: when the tool is missing or the command fails, Extract
// returns an empty reference and no error so uploads proceed without a
// thumbnail.
type Extractor struct {
	ffmpegPath string
	log        zerolog.Logger
}

func NewExtractor(ffmpegPath string, log zerolog.Logger) *Extractor {
	return &Extractor{
		ffmpegPath: ffmpegPath,
		log:        log.With().Str("component", "thumbnail").Logger(),
	}
}

// Extract writes a 320x240 PNG of the frame at the one second mark into the
// thumbnails subdirectory of outputDir. The returned reference is a relative
// forward-slash path, or empty when extraction was not possible.
func (e *Extractor) Extract(ctx context.Context, sourcePath, outputDir string) (string, error) {
	bin := e.ffmpegPath
	if bin == "" {
		found, err := exec.LookPath("ffmpeg")
		if err != nil {
			e.log.Warn().Msg("ffmpeg not found in PATH, skipping thumbnail")
			return "", nil
		}
		bin = found
	}

	thumbDir := filepath.Join(outputDir, "thumbnails")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		e.log.Warn().Err(err).Msg("cannot create thumbnails dir, skipping thumbnail")
		return "", nil
	}

	base := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))
	name := fmt.Sprintf("thumb-%d-%s.png", time.Now().UnixMilli(), base)
	dst := filepath.Join(thumbDir, name)

	cmd := exec.CommandContext(ctx, bin,
		"-ss", "1",
		"-i", sourcePath,
		"-vframes", "1",
		"-s", "320x240",
		"-y",
		dst,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		e.log.Warn().Err(err).Str("output", truncate(string(out), 512)).Msg("ffmpeg failed, skipping thumbnail")
		return "", nil
	}

	if _, err := os.Stat(dst); err != nil {
		e.log.Warn().Str("path", dst).Msg("ffmpeg produced no output, skipping thumbnail")
		return "", nil
	}

	ref := filepath.ToSlash(filepath.Join(filepath.Base(outputDir), "thumbnails", name))
	e.log.Debug().Str("ref", ref).Msg("extracted thumbnail")
	return ref, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
