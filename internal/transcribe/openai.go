package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/kdimtricp/speechguard/internal/models"
)

const openAITranscriptionsURL = "https://api.openai.com/v1/audio/transcriptions"

// AudioExtractor produces an audio-only copy of a video.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, videoPath, destDir string) (string, error)
}

// OpenAI transcribes through the hosted Whisper API. Uploads are converted to
// 16 kHz mono audio first to stay under the API's size limit.
type OpenAI struct {
	apiKey     string
	model      string
	language   string
	endpoint   string
	extractor  AudioExtractor
	httpClient *http.Client
	logger     *slog.Logger
}

func NewOpenAI(apiKey, model, language string, extractor AudioExtractor, logger *slog.Logger) *OpenAI {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAI{
		apiKey:    apiKey,
		model:     model,
		language:  language,
		endpoint:  openAITranscriptionsURL,
		extractor: extractor,
		httpClient: &http.Client{
			Timeout: 30 * time.Minute,
		},
		logger: logging.NewComponentLogger(logger, "transcribe"),
	}
}

type openAIVerboseResponse struct {
	Language string `json:"language"`
	Segments []struct {
		ID    int     `json:"id"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (o *OpenAI) Transcribe(ctx context.Context, path string) ([]models.Segment, error) {
	audioPath := path
	if o.extractor != nil {
		extracted, err := o.extractor.ExtractAudio(ctx, path, "")
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := os.Remove(extracted); err != nil {
				o.logger.Warn("extracted audio remove failed",
					logging.String("path", extracted),
					logging.Error(err))
			}
		}()
		audioPath = extracted
	}

	body, contentType, err := o.buildRequestBody(audioPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed openAIVerboseResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("openai http %d: failed to unmarshal response: %w", resp.StatusCode, err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("OpenAI API error: %s", parsed.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openai http %d", resp.StatusCode)
	}

	segments := make([]models.Segment, 0, len(parsed.Segments))
	for _, s := range parsed.Segments {
		segments = append(segments, models.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}

	o.logger.Info("transcription completed",
		logging.String("model", o.model),
		logging.String("language", parsed.Language),
		logging.Int("segments", len(segments)))

	return renumber(segments), nil
}

func (o *OpenAI) buildRequestBody(audioPath string) (*bytes.Buffer, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fields := map[string]string{
		"model":           o.model,
		"response_format": "verbose_json",
	}
	if o.language != "" {
		fields["language"] = o.language
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, "", fmt.Errorf("failed to write form field: %w", err)
		}
	}

	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, "", fmt.Errorf("failed to copy audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}

	return &body, mw.FormDataContentType(), nil
}
