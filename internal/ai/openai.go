// internal/ai/openai.go
package ai

import (
	"context"
	"errors"
	"io"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	MaxAttempts  = 3
	RetryBackoff = 2 * time.Second

	// FallbackReply is returned when the API answers with no content.
	FallbackReply = "I'm sorry, I couldn't process your request."
)

// ErrorKind separates failures worth retrying from permanent rejections.
type ErrorKind int

const (
	KindNonRetryable ErrorKind = iota
	KindTransient
)

func (k ErrorKind) String() string {
	if k == KindTransient {
		return "transient"
	}
	return "non-retryable"
}

// CompletionError is the terminal failure of a Complete call. Its message is
// the upstream error text, unmodified, so it can be shown to the user.
type CompletionError struct {
	Kind     ErrorKind
	Attempts int
	Err      error
}

func (e *CompletionError) Error() string {
	return e.Err.Error()
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}

// Message is one prior conversational message sent as context.
type Message struct {
	Role    string
	Content string
}

type CompletionRequest struct {
	SystemPrompt string
	History      []Message
	UserText     string
	Temperature  float32
}

type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type AIService struct {
	client    chatCompleter
	baseURL   string
	model     string
	maxTokens int
	sleep     func(time.Duration)
	logger    *zap.Logger
}

type Option func(*AIService)

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(ai *AIService) {
		ai.baseURL = baseURL
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(ai *AIService) {
		if logger != nil {
			ai.logger = logger
		}
	}
}

func withClient(c chatCompleter) Option {
	return func(ai *AIService) { ai.client = c }
}

func withSleep(sleep func(time.Duration)) Option {
	return func(ai *AIService) { ai.sleep = sleep }
}

func NewAIService(apiKey, model string, maxTokens int, opts ...Option) *AIService {
	svc := &AIService{
		model:     model,
		maxTokens: maxTokens,
		sleep:     time.Sleep,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.client == nil {
		cfg := openai.DefaultConfig(apiKey)
		if svc.baseURL != "" {
			cfg.BaseURL = svc.baseURL
		}
		svc.client = openai.NewClientWithConfig(cfg)
	}
	return svc
}

// Complete sends one chat completion, retrying transient failures up to
// MaxAttempts with a fixed RetryBackoff between attempts. Non-retryable
// failures return immediately.
func (ai *AIService) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	chatReq := ai.chatRequest(req)

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		resp, err := ai.client.CreateChatCompletion(ctx, chatReq)
		if err == nil {
			return replyText(resp), nil
		}

		kind := Classify(err)
		if kind == KindNonRetryable {
			return "", &CompletionError{Kind: kind, Attempts: attempt, Err: err}
		}
		lastErr = err

		if attempt < MaxAttempts {
			ai.logger.Warn("completion attempt failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", RetryBackoff),
				zap.Error(err))
			ai.sleep(RetryBackoff)
		}
	}

	return "", &CompletionError{Kind: KindTransient, Attempts: MaxAttempts, Err: lastErr}
}

func (ai *AIService) chatRequest(req CompletionRequest) openai.ChatCompletionRequest {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.History)+2)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.SystemPrompt,
	})
	for _, m := range req.History {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.UserText,
	})

	temperature := req.Temperature
	if temperature == 0 {
		// Temperature is omitempty in go-openai; a literal zero would be
		// dropped and the API default (1.0) used instead.
		temperature = math.SmallestNonzeroFloat32
	}

	return openai.ChatCompletionRequest{
		Model:       ai.model,
		Messages:    messages,
		MaxTokens:   ai.maxTokens,
		Temperature: temperature,
	}
}

func replyText(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return FallbackReply
	}
	return resp.Choices[0].Message.Content
}

// Classify reports whether err is worth retrying. Rate limits, timeouts,
// server-side failures and connection errors are transient; everything else,
// including 4xx request rejections and malformed endpoints, is not.
func Classify(err error) ErrorKind {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == 0 {
			return KindTransient
		}
		return classifyStatus(reqErr.HTTPStatusCode)
	}

	// *url.Error satisfies net.Error for any failure, so only timeouts and
	// real dial/read/write errors count as network trouble.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return KindTransient
	}
	return KindNonRetryable
}

func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status >= http.StatusInternalServerError:
		return KindTransient
	case status == 0:
		return KindTransient
	default:
		return KindNonRetryable
	}
}
