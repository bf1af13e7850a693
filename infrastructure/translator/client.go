package translator

import (
	"bytes"
	"chat-presence/contract"
	"chat-presence/domain"
	"chat-presence/errors"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var _ contract.ITranslator = (*Client)(nil)

const maxErrorBody = 512

// Client calls the upstream text-translation service.
type Client struct {
	log        *slog.Logger
	url        string
	httpClient *http.Client
}

func NewClient(log *slog.Logger, url string, timeout time.Duration) *Client {
	return &Client{
		log:        log,
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	body, err := json.Marshal(domain.TranslationRequest{Text: text, TargetLanguage: targetLanguage})
	if err != nil {
		return "", err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTranslationFailed, err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTranslationFailed, err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(response.Body, maxErrorBody))
		c.log.Warn("Translator answered with an error", "status", response.StatusCode, "body", string(detail))
		return "", fmt.Errorf("%w: upstream status %d", errors.ErrTranslationFailed, response.StatusCode)
	}

	var translated domain.TranslationResponse
	if err := json.NewDecoder(response.Body).Decode(&translated); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrTranslationFailed, err)
	}
	return translated.TranslatedText, nil
}
