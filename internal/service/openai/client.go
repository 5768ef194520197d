// Package openai is a minimal client for the OpenAI chat-completions API,
// covering structured JSON-schema output and tool-calling conversations.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amber-aim/ad-placement-go/internal/apperr"
	"github.com/amber-aim/ad-placement-go/pkg/logger"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client is a client for the OpenAI API.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config holds the configuration for the OpenAI client.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	BaseURL string        // e.g., "https://api.openai.com/v1" (default)
	APIKey  string        // API key sent as a bearer token
	Model   string        // e.g., "gpt-5-mini"
	Timeout time.Duration // Request timeout (default: 300 seconds)
}

// NewClient creates a new OpenAI client.
func NewClient(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if config.Model == "" {
		return nil, fmt.Errorf("OpenAI model is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = 300 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(config.BaseURL, "/"),
		apiKey:  config.APIKey,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}, nil
}

// Message is one turn of a chat-completions conversation.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-requested function invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the name and JSON-encoded arguments of a tool call.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool declares a function the model may call.
type Tool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// FunctionDef describes a callable function and its parameter schema.
type FunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// SystemMessage builds a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: "system", Content: content}
}

// UserMessage builds a user-role message.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// ToolMessage builds a tool-role message answering one tool call.
func ToolMessage(toolCallID, content string) Message {
	return Message{Role: "tool", Content: content, ToolCallID: toolCallID}
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Tools          []Tool          `json:"tools,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// CompleteStructured asks the model for a single response constrained by a
// strict JSON schema and returns the raw JSON content.
func (c *Client) CompleteStructured(ctx context.Context, system, user, schemaName string, schema json.RawMessage) (string, error) {
	logger.Log.Info("Requesting structured completion",
		zap.String("model", c.model),
		zap.String("schema", schemaName),
	)

	resp, err := c.chat(ctx, chatRequest{
		Model: c.model,
		Messages: []Message{
			SystemMessage(system),
			UserMessage(user),
		},
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:   schemaName,
				Strict: true,
				Schema: schema,
			},
		},
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// ChatWithTools sends one conversation turn with the given tool declarations
// and returns the assistant message, which may carry tool calls.
func (c *Client) ChatWithTools(ctx context.Context, messages []Message, tools []Tool) (*Message, error) {
	resp, err := c.chat(ctx, chatRequest{
		Model:    c.model,
		Messages: messages,
		Tools:    tools,
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) chat(ctx context.Context, request chatRequest) (*Message, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeAPI, "failed to reach OpenAI", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperr.New(apperr.CodeAPI,
			fmt.Sprintf("OpenAI API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody))))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("parse OpenAI response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, apperr.New(apperr.CodeAPI, "OpenAI response contained no choices")
	}

	return &parsed.Choices[0].Message, nil
}
