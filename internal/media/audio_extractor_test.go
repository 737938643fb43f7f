package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestExtractAudioBuildsCommand(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "abc_talk.mp4")
	if err := os.WriteFile(video, []byte("fake"), 0644); err != nil {
		t.Fatalf("write video: %v", err)
	}

	var gotName string
	var gotArgs []string
	extractor := (&AudioExtractor{ffmpegPath: "/usr/bin/ffmpeg"}).WithCommandRunner(
		func(ctx context.Context, name string, args ...string) error {
			gotName = name
			gotArgs = args
			return nil
		})

	out, err := extractor.ExtractAudio(context.Background(), video, "")
	if err != nil {
		t.Fatalf("ExtractAudio: %v", err)
	}

	if out != filepath.Join(dir, "abc_talk_audio_16k.wav") {
		t.Errorf("unexpected output path %s", out)
	}
	if gotName != "/usr/bin/ffmpeg" {
		t.Errorf("unexpected binary %s", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"-i " + video, "-ac 1", "-ar 16000", "-vn"} {
		if !strings.Contains(joined, want) {
			t.Errorf("expected %q in args %q", want, joined)
		}
	}
}

func TestExtractAudioMissingVideo(t *testing.T) {
	extractor := (&AudioExtractor{}).WithCommandRunner(func(context.Context, string, ...string) error {
		t.Fatal("runner should not be called")
		return nil
	})

	if _, err := extractor.ExtractAudio(context.Background(), "/nonexistent/video.mp4", ""); err == nil {
		t.Fatal("expected error for missing video")
	}
}

func TestExtractAudioRunnerFailure(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "v.mp4")
	os.WriteFile(video, []byte("fake"), 0644)

	extractor := (&AudioExtractor{}).WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 1")
	})

	if _, err := extractor.ExtractAudio(context.Background(), video, dir); err == nil {
		t.Fatal("expected error from failing ffmpeg")
	}
}

func TestLastLines(t *testing.T) {
	if got := lastLines("a\nb\nc\n", 2); got != "b | c" {
		t.Errorf("unexpected %q", got)
	}
}
