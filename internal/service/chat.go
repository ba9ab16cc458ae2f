package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"github.com/arcoapp/arco-admin/internal/model"
)

// Budgeting assistant defaults.
const (
	DefaultChatModel     = openai.GPT3Dot5Turbo
	DefaultChatMaxTokens = 150
	DefaultChatPrompt    = "You are a helpful budgeting assistant."
	DefaultChatTimeout   = 30 * time.Second

	MaxChatMessageLength = 2000
	MaxChatContextLength = 4000
)

// ChatOptions configures a ChatService. Zero values take the defaults above.
type ChatOptions struct {
	BaseURL      string
	APIKey       string
	Model        string
	MaxTokens    int
	Temperature  float32
	SystemPrompt string
	Timeout      time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// ChatService answers budgeting questions from the app by forwarding them to
// an OpenAI-compatible chat completions API. The app's own context, such as
// the user's current budget, is appended to the system prompt.
type ChatService struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
	prompt      string
	logger      *slog.Logger
}

// NewChatService creates a ChatService.
func NewChatService(opts ChatOptions) *ChatService {
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	if opts.HTTPClient != nil {
		cfg.HTTPClient = opts.HTTPClient
	} else {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultChatTimeout
		}
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}

	s := &ChatService{
		client:      openai.NewClientWithConfig(cfg),
		model:       opts.Model,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		prompt:      strings.TrimSpace(opts.SystemPrompt),
		logger:      opts.Logger,
	}
	if s.model == "" {
		s.model = DefaultChatModel
	}
	if s.maxTokens <= 0 {
		s.maxTokens = DefaultChatMaxTokens
	}
	if s.prompt == "" {
		s.prompt = DefaultChatPrompt
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// ChatInput is one question from the app.
type ChatInput struct {
	Message string
	Context string
}

// Reply asks the assistant about in.Message.
func (s *ChatService) Reply(ctx context.Context, in ChatInput) (*model.ChatReply, error) {
	msg := strings.TrimSpace(in.Message)
	extra := strings.TrimSpace(in.Context)
	switch {
	case msg == "":
		return nil, fail(ErrInvalidInput, "Message required")
	case utf8.RuneCountInString(msg) > MaxChatMessageLength:
		return nil, fail(ErrInvalidInput, "Message too long")
	case utf8.RuneCountInString(extra) > MaxChatContextLength:
		return nil, fail(ErrInvalidInput, "Context too long")
	}

	system := s.prompt
	if extra != "" {
		system += " " + extra
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: msg},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		s.logger.Error("chat completion failed", "model", s.model, "error", err)
		return nil, upstream(err)
	}
	if len(resp.Choices) == 0 {
		s.logger.Error("chat completion returned no choices", "model", s.model)
		return nil, upstream(errors.New("empty completion"))
	}

	choice := resp.Choices[0]
	used := resp.Model
	if used == "" {
		used = s.model
	}
	s.logger.Info("chat completion",
		"model", used,
		"duration_ms", time.Since(start).Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens,
	)
	return &model.ChatReply{
		Reply:        strings.TrimSpace(choice.Message.Content),
		Model:        used,
		FinishReason: string(choice.FinishReason),
	}, nil
}

func upstream(err error) error {
	return &Error{Kind: ErrUpstreamUnavailable, Message: "Assistant unavailable", Cause: err}
}
