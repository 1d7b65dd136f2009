package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"AgentRadar/internal/config"
	"AgentRadar/internal/domain"
	"AgentRadar/internal/ports"
)

// ErrBudgetExceeded is returned once the daily request budget is spent.
var ErrBudgetExceeded = errors.New("chatgpt daily budget exceeded")

const (
	defaultTimeout     = 20 * time.Second
	defaultBaseBackoff = 500 * time.Millisecond
)

// StatusError carries a non-2xx answer from the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chatgpt error %d: %s", e.Code, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	switch e.Code {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusUnprocessableEntity:
		return false
	case http.StatusTooManyRequests:
		return true
	}
	return e.Code >= http.StatusInternalServerError
}

// ChatGPTClient implements ports.Describer backed by OpenAI-compatible APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
	limiter      *rate.Limiter
	maxRetries   int
	baseBackoff  time.Duration
	dailyBudget  int
	now          func() time.Time

	mu        sync.Mutex
	budgetDay string
	used      int
}

var _ ports.Describer = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	backoff := cfg.BaseBackoff
	if backoff <= 0 {
		backoff = defaultBaseBackoff
	}
	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
	}

	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter:     rate.NewLimiter(limit, 1),
		maxRetries:  cfg.MaxRetries,
		baseBackoff: backoff,
		dailyBudget: cfg.DailyBudget,
		now:         time.Now,
	}
}

// Describe asks the model for a short agent-facing summary of the lead.
func (c *ChatGPTClient) Describe(ctx context.Context, record domain.ValidatedRecord) (string, error) {
	if c == nil {
		return "", fmt.Errorf("chatgpt client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	prompt, err := buildPrompt(record)
	if err != nil {
		return "", fmt.Errorf("build prompt: %w", err)
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		if err := c.spend(); err != nil {
			return "", err
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limiter: %w", err)
		}

		text, err := c.complete(ctx, body)
		if err == nil {
			return text, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			return "", err
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *ChatGPTClient) complete(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty response from chatgpt")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// spend counts one request against today's budget.
func (c *ChatGPTClient) spend() error {
	if c.dailyBudget <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	day := c.now().UTC().Format(time.DateOnly)
	if day != c.budgetDay {
		c.budgetDay = day
		c.used = 0
	}
	if c.used >= c.dailyBudget {
		return ErrBudgetExceeded
	}
	c.used++
	return nil
}

// backoff doubles per attempt and adds up to 50% jitter.
func (c *ChatGPTClient) backoff(attempt int) time.Duration {
	d := c.baseBackoff * time.Duration(1<<(attempt-1))
	return d + time.Duration(rand.Int64N(int64(d)/2+1))
}

func buildPrompt(record domain.ValidatedRecord) (string, error) {
	raw := record.Scored.Record.Raw
	facts := map[string]any{
		"title":          raw.Title,
		"region":         raw.Region,
		"source":         raw.Source,
		"address":        record.PrimaryAddress(),
		"estimatedValue": record.EstimatedValue(),
		"score":          record.Scored.Score,
		"priority":       record.Scored.Priority(),
		"propertyType":   record.Scored.Record.PropertyType,
		"urgent":         record.Scored.Record.Urgent,
		"dates":          record.Scored.Record.Dates,
		"executors":      record.Scored.Entities.Executors,
		"legalFirms":     record.Scored.Entities.LegalFirms,
		"text":           truncate(raw.Content, 2000),
	}
	payload, err := json.Marshal(facts)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You summarize real-estate leads for agents in two sentences: what is for sale, why it is time-sensitive, and who to contact."
	}
	return prompt
}
