package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"pocketledger/internal/logger"
)

const geminiPrompt = `You are an expense tracker assistant. Analyze this receipt image.
Extract:
1. Total Amount (number only).
2. Merchant/Shop Name.
3. Category (one of: Food, Travel, Shopping, Utilities, Entertainment, Other).

Return ONLY valid JSON format like this:
{ "amount": 100, "merchant": "Starbucks", "category": "Food" }`

// Gemini asks a Gemini model to read the bill.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini scanner authenticated by apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	return newGemini(ctx, apiKey, model, nil)
}

func newGemini(ctx context.Context, apiKey, model string, httpClient *http.Client) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

// Extract implements BillScanner.
func (g *Gemini) Extract(ctx context.Context, image []byte, mimeType string) (*ScanResult, error) {
	contents := []*genai.Content{{
		Role: "user",
		Parts: []*genai.Part{
			genai.NewPartFromText(geminiPrompt),
			genai.NewPartFromBytes(image, mimeType),
		},
	}}
	config := &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		logger.Get().Errorw("Gemini request failed", "model", g.model, "error", err)
		return nil, scanFailed(err)
	}
	text := replyText(resp)
	if text == "" {
		return nil, scanFailed(fmt.Errorf("empty model response"))
	}

	result, err := parseModelReply(text)
	if err != nil {
		return nil, scanFailed(err)
	}
	return result, nil
}

// replyText joins the text parts of the first candidate.
func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

type modelReply struct {
	Amount   json.Number `json:"amount"`
	Merchant string      `json:"merchant"`
	Category string      `json:"category"`
}

func parseModelReply(text string) (*ScanResult, error) {
	var reply modelReply
	if err := json.Unmarshal([]byte(stripFences(text)), &reply); err != nil {
		return nil, fmt.Errorf("decode model reply: %w", err)
	}
	amount, err := ParseAmount(reply.Amount.String())
	if err != nil {
		return nil, err
	}
	return &ScanResult{
		Amount:   amount,
		Merchant: reply.Merchant,
		Category: NormalizeCategory(reply.Category),
	}, nil
}
