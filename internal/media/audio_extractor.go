package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner executes an external binary. Tests replace it to avoid
// depending on ffmpeg.
type CommandRunner func(ctx context.Context, name string, args ...string) error

// AudioExtractor pulls the speech track out of an uploaded video so it can be
// sent to transcription APIs that only accept audio.
type AudioExtractor struct {
	ffmpegPath string
	run        CommandRunner
}

func NewAudioExtractor(ffmpegPath string) (*AudioExtractor, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	resolved, err := exec.LookPath(ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}
	return &AudioExtractor{ffmpegPath: resolved, run: runCommand}, nil
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *AudioExtractor) WithCommandRunner(runner CommandRunner) *AudioExtractor {
	e.run = runner
	return e
}

// ExtractAudio writes a mono 16 kHz WAV next to the video (or into destDir
// when given) and returns its path. The caller removes the file.
func (e *AudioExtractor) ExtractAudio(ctx context.Context, videoPath, destDir string) (string, error) {
	if _, err := os.Stat(videoPath); err != nil {
		return "", fmt.Errorf("video file not accessible: %w", err)
	}
	if destDir == "" {
		destDir = filepath.Dir(videoPath)
	}

	base := strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath))
	out := filepath.Join(destDir, base+"_audio_16k.wav")

	args := []string{
		"-y",
		"-i", videoPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		out,
	}
	if err := e.run(ctx, e.ffmpegPath, args...); err != nil {
		os.Remove(out)
		return "", fmt.Errorf("failed to extract audio: %w", err)
	}

	return out, nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", filepath.Base(name), err, lastLines(stderr.String(), 5))
	}
	return nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, " | ")
}
