package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// WhisperTranscriber calls an OpenAI-compatible /audio/transcriptions endpoint.
type WhisperTranscriber struct {
	client  *resty.Client
	baseURL string
	apiKey  string
	model   string
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func NewWhisperTranscriber(client *resty.Client, baseURL, apiKey, model string) *WhisperTranscriber {
	return &WhisperTranscriber{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, localPath string) (string, error) {
	if t.apiKey == "" {
		return "", errors.New("transcription API key is not configured")
	}

	var result transcriptionResponse
	var apiErr apiErrorResponse
	resp, err := t.client.R().
		SetContext(ctx).
		SetAuthToken(t.apiKey).
		SetFile("file", localPath).
		SetFormData(map[string]string{"model": t.model}).
		SetResult(&result).
		SetError(&apiErr).
		Post(t.baseURL + "/audio/transcriptions")
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return "", fmt.Errorf("transcribe: status %d: %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return "", fmt.Errorf("transcribe: unexpected status %d", resp.StatusCode())
	}
	return strings.TrimSpace(result.Text), nil
}
