// Package advisor talks to the optional advisory language model. It is an
// unreliable collaborator: every failure path here degrades to the
// deterministic result, never to an error the operator sees.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dipole-sh/dipole/internal/config"
	"google.golang.org/genai"
)

type openAIRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

type anthropicRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	Messages    []message `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type Client struct {
	provider     string
	apiKey       string
	model        string
	baseURL      string
	geminiClient *genai.Client
	debug        bool
}

// NewClient builds a client for the configured provider. A nil return
// means the advisory stage is unavailable; callers treat that the same as
// a disabled flag.
func NewClient(cfg config.Config) *Client {
	if !cfg.AdvisoryEnabled() {
		return nil
	}

	c := &Client{
		provider: cfg.AIProvider,
		apiKey:   cfg.AIAPIKey,
		model:    cfg.AIModel,
		debug:    cfg.Debug,
	}

	switch cfg.AIProvider {
	case "anthropic":
		c.baseURL = "https://api.anthropic.com/v1"
		if c.model == "" {
			c.model = "claude-3-5-haiku-latest"
		}
	case "gemini":
		// API key if configured, Application Default Credentials otherwise.
		gc, err := genai.NewClient(context.Background(), &genai.ClientConfig{APIKey: cfg.AIAPIKey})
		if err != nil {
			return nil
		}
		c.geminiClient = gc
		if c.model == "" {
			c.model = "gemini-2.0-flash"
		}
	default:
		c.provider = "openai"
		c.baseURL = "https://api.openai.com/v1"
		if c.model == "" {
			c.model = "gpt-4o-mini"
		}
	}

	return c
}

// AskPrompt sends a raw prompt and returns the raw completion text.
func (c *Client) AskPrompt(ctx context.Context, prompt string) (string, error) {
	switch c.provider {
	case "anthropic":
		return c.askAnthropic(ctx, prompt)
	case "gemini":
		return c.askGemini(ctx, prompt)
	default:
		return c.askOpenAI(ctx, prompt)
	}
}

func (c *Client) askOpenAI(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("OpenAI API key not configured")
	}

	request := openAIRequest{
		Model:    c.model,
		Messages: []message{{Role: "user", Content: sanitizeASCII(prompt)}},
	}
	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	body, err := doJSON(req)
	if err != nil {
		return "", err
	}

	var response openAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response from advisory model")
	}
	return response.Choices[0].Message.Content, nil
}

func (c *Client) askAnthropic(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", fmt.Errorf("Anthropic API key not configured")
	}

	reqBody := anthropicRequest{
		Model:       c.model,
		MaxTokens:   2000,
		Temperature: 0.1,
		Messages:    []message{{Role: "user", Content: sanitizeASCII(prompt)}},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.baseURL, "/")+"/messages", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", strings.TrimSpace(c.apiKey))
	req.Header.Set("anthropic-version", "2023-06-01")

	body, err := doJSON(req)
	if err != nil {
		return "", err
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}
	for _, block := range parsed.Content {
		if strings.TrimSpace(block.Text) != "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no response content from Anthropic")
}

func (c *Client) askGemini(ctx context.Context, prompt string) (string, error) {
	if c.geminiClient == nil {
		return "", fmt.Errorf("gemini client not initialized")
	}

	content := genai.NewContentFromText(sanitizeASCII(prompt), genai.RoleUser)
	resp, err := c.geminiClient.Models.GenerateContent(ctx, c.model, []*genai.Content{content}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates from Gemini")
	}

	var result strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			result.WriteString(part.Text)
		}
	}
	return result.String(), nil
}

func doJSON(req *http.Request) ([]byte, error) {
	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("advisory request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// CleanJSONResponse strips markdown fences and surrounding prose so the
// remaining text is the model's JSON object, or "" when none is found.
func CleanJSONResponse(response string) string {
	s := strings.TrimSpace(response)

	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
	}
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func sanitizeASCII(s string) string {
	allASCII := true
	for i := 0; i < len(s); i++ {
		if s[i] >= 128 {
			allASCII = false
			break
		}
	}
	if allASCII {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] < 128 {
			b = append(b, s[i])
		}
	}
	return string(b)
}
