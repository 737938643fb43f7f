package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/kdimtricp/speechguard/internal/logging"
	"github.com/kdimtricp/speechguard/internal/models"
)

// HuggingFace calls the hosted Inference API for a text-classification model.
type HuggingFace struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHuggingFace(baseURL, model, token string, timeout time.Duration, logger *slog.Logger) *HuggingFace {
	if baseURL == "" {
		baseURL = "https://api-inference.huggingface.co"
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &HuggingFace{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logging.NewComponentLogger(logger, "classify"),
	}
}

type hfRequest struct {
	Inputs  []string  `json:"inputs"`
	Options hfOptions `json:"options"`
}

type hfOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type hfError struct {
	Error string `json:"error"`
}

func (h *HuggingFace) Classify(ctx context.Context, texts []string) ([]models.Prediction, error) {
	if len(texts) == 0 {
		return []models.Prediction{}, nil
	}

	jsonData, err := json.Marshal(hfRequest{Inputs: texts, Options: hfOptions{WaitForModel: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s", h.baseURL, h.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	started := time.Now()
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr hfError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("huggingface http %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("huggingface http %d", resp.StatusCode)
	}

	var scores [][]labelScore
	if err := json.Unmarshal(body, &scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(scores) != len(texts) {
		return nil, fmt.Errorf("huggingface returned %d results for %d texts", len(scores), len(texts))
	}

	preds := make([]models.Prediction, len(scores))
	for i, s := range scores {
		pred, err := argmax(s)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		preds[i] = pred
	}

	h.logger.Debug("classification completed",
		logging.String("model", h.model),
		logging.Int("texts", len(texts)),
		logging.String("elapsed", time.Since(started).Round(time.Millisecond).String()))

	return preds, nil
}
