package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-3.5-turbo"
)

// OpenAIClient calls the OpenAI chat completions API (or any compatible
// endpoint when baseURL points elsewhere).
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewOpenAIClient constructs a client with the provided API key.
// baseURL should include the /v1 prefix; empty means the official endpoint.
func NewOpenAIClient(apiKey, baseURL string) (*OpenAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Generate implements Generator using the chat completions API. Image
// attachments become multimodal content parts on vision-capable models
// (model id containing "gpt-4"); text-only models ignore them.
func (c *OpenAIClient) Generate(ctx context.Context, messages []domain.Message, modelID string) (string, error) {
	model := strings.TrimSpace(modelID)
	if model == "" {
		model = defaultOpenAIModel
	}
	multimodal := strings.Contains(model, "gpt-4")

	wire := make([]oaiMessage, 0, len(messages))
	for _, m := range messages {
		if m.Attachment != nil && multimodal {
			wire = append(wire, oaiMessage{
				Role: string(m.Role),
				Content: []oaiContentPart{
					{Type: "text", Text: m.Content},
					{Type: "image_url", ImageURL: &oaiImageURL{
						URL: fmt.Sprintf("data:%s;base64,%s", m.Attachment.MimeType, m.Attachment.Data),
					}},
				},
			})
			continue
		}
		wire = append(wire, oaiMessage{Role: string(m.Role), Content: m.Content})
	}

	reqBody := oaiChatRequest{Model: model, Messages: wire}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &ProviderError{Provider: "openai", Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp oaiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return "", &ProviderError{Provider: "openai", Message: errResp.Error.Message}
		}
		return "", &ProviderError{Provider: "openai", Message: resp.Status}
	}

	var chatResp oaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", &ProviderError{Provider: "openai", Message: "decode response: " + err.Error()}
	}
	if len(chatResp.Choices) == 0 {
		return PlaceholderReply, nil
	}
	text := strings.TrimSpace(chatResp.Choices[0].Message.Content)
	if text == "" {
		return PlaceholderReply, nil
	}
	return text, nil
}

// OpenAI request/response types. Content is a string for plain text and a
// part array for multimodal turns.

type oaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type oaiContentPart struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	ImageURL *oaiImageURL `json:"image_url,omitempty"`
}

type oaiImageURL struct {
	URL string `json:"url"`
}

type oaiChatRequest struct {
	Model    string       `json:"model"`
	Messages []oaiMessage `json:"messages"`
}

type oaiChatResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type oaiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}
