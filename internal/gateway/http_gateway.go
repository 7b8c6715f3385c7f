package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPGateway — клиент внешнего платёжного шлюза поверх его REST API.
// Транзиентные ошибки (сеть, 5xx) повторяются с фибоначчи-бэкоффом, ограниченным maxRetries.
type HTTPGateway struct {
	baseURL    string
	apiKey     string
	client     *http.Client
	maxRetries uint64
	logger     *zap.Logger
}

func NewHTTPGateway(baseURL, apiKey string, maxRetries uint64, logger *zap.Logger) *HTTPGateway {
	return &HTTPGateway{
		baseURL:    baseURL,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: maxRetries,
		logger:     logger,
	}
}

type createIntentRequest struct {
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key"`
}

// CreateIntent запрашивает intent у шлюза. Идемпотентность на стороне шлюза
// обеспечивается ключом, поэтому повтор после сетевой ошибки безопасен.
func (g *HTTPGateway) CreateIntent(ctx context.Context, amountMinor int64, currency, idempotencyKey string) (*Intent, error) {
	body, err := json.Marshal(createIntentRequest{
		AmountMinor:    amountMinor,
		Currency:       currency,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal intent request: %w", err)
	}

	var intent Intent

	backoff := retry.WithMaxRetries(g.maxRetries, retry.NewFibonacci(200*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := g.do(ctx, http.MethodPost, "/v1/intents", body)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("gateway returned %d", resp.StatusCode))
		case resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK:
			payload, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, payload)
		}

		if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
			return fmt.Errorf("decode intent response: %w", err)
		}
		return nil
	})
	if err != nil {
		g.logger.Error("Create intent failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &intent, nil
}

// RefundIntent запрашивает возврат по intent'у
func (g *HTTPGateway) RefundIntent(ctx context.Context, intentID string) error {
	backoff := retry.WithMaxRetries(g.maxRetries, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := g.do(ctx, http.MethodPost, "/v1/intents/"+intentID+"/refund", nil)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("gateway returned %d", resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			payload, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, payload)
		}
		return nil
	})
	if err != nil {
		g.logger.Error("Refund intent failed", zap.String("intent_id", intentID), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	return g.client.Do(req)
}
