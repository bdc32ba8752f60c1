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
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultGeminiModel   = "gemini-2.0-flash"
)

// GeminiClient calls the Google AI Studio (Gemini) API.
type GeminiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient constructs a client with the provided API key.
func NewGeminiClient(apiKey, baseURL string) (*GeminiClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClient{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

// Generate implements Generator against generateContent. Prior turns become
// chat history with Gemini's role names and the final message is the new
// turn. An image attachment switches to a single multimodal call that skips
// history entirely.
func (c *GeminiClient) Generate(ctx context.Context, messages []domain.Message, modelID string) (string, error) {
	model := normalizeGeminiModel(modelID)
	if len(messages) == 0 {
		return "", &ProviderError{Provider: "gemini", Message: "no messages to send"}
	}

	last := messages[len(messages)-1]
	var reqBody geminiGenerateRequest

	if att := lastAttachment(messages); att != nil {
		reqBody.Contents = []geminiContent{{
			Role: "user",
			Parts: []geminiPart{
				{Text: last.Content},
				{InlineData: &geminiInlineData{MimeType: att.MimeType, Data: att.Data}},
			},
		}}
	} else {
		contents := make([]geminiContent, 0, len(messages))
		for _, m := range messages[:len(messages)-1] {
			contents = append(contents, geminiContent{
				Role:  geminiRole(m.Role),
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
		contents = append(contents, geminiContent{
			Role:  "user",
			Parts: []geminiPart{{Text: last.Content}},
		})
		reqBody.Contents = contents
	}

	var resp geminiGenerateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	if err := c.doJSON(ctx, url, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return PlaceholderReply, nil
	}
	text := strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return PlaceholderReply, nil
	}
	return text, nil
}

// geminiRole maps canonical roles to Gemini's two-role history model.
func geminiRole(role domain.Role) string {
	switch role {
	case domain.RoleAssistant, domain.RoleSystem:
		return "model"
	default:
		return "user"
	}
}

func normalizeGeminiModel(model string) string {
	model = strings.TrimSpace(model)
	model = strings.TrimPrefix(model, "models/")
	if model == "" {
		return defaultGeminiModel
	}
	return model
}

func (c *GeminiClient) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Provider: "gemini", Message: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp geminiErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return &ProviderError{Provider: "gemini", Message: errResp.Error.Message}
		}
		return &ProviderError{Provider: "gemini", Message: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &ProviderError{Provider: "gemini", Message: "decode response: " + err.Error()}
	}
	return nil
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerateRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiGenerateResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
