package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/application/port"
)

// maxScanPages caps how many page images go into one Vision request.
const maxScanPages = 2

// Scanner implements port.ReceiptScanner using the Vision API.
type Scanner struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewScanner creates a new receipt scanner
func NewScanner(apiKey, model string, logger *zap.Logger) port.ReceiptScanner {
	return &Scanner{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
	}
}

// Scan extracts structured receipt data from page images
func (s *Scanner) Scan(ctx context.Context, images [][]byte) (*port.ReceiptExtraction, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to scan")
	}
	if len(images) > maxScanPages {
		images = images[:maxScanPages]
	}

	contentParts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: scanPrompt,
		},
	}
	for _, imgData := range images {
		contentParts = append(contentParts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(imgData)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   1024,
		Temperature: 0.1,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an expert at reading receipts and extracting merchant, date and amount fields. Always respond with valid JSON.",
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: contentParts,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		s.logger.Error("Vision API call failed", zap.Error(err))
		return nil, fmt.Errorf("vision API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from Vision API")
	}

	content := resp.Choices[0].Message.Content
	var extraction port.ReceiptExtraction
	if err := json.Unmarshal([]byte(content), &extraction); err != nil {
		s.logger.Error("Failed to parse Vision API response",
			zap.Error(err),
			zap.String("content", content))
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	s.logger.Info("Receipt data extracted",
		zap.String("merchant", extraction.Merchant),
		zap.Float64("total_amount", extraction.TotalAmount),
		zap.Float64("confidence", extraction.Confidence))

	return &extraction, nil
}

const scanPrompt = `Examine this receipt image and extract the following fields:

- merchant: the merchant or vendor name as printed
- date: the purchase date in YYYY-MM-DD format
- total_amount: the final total paid, as a number without currency symbols
- currency: the ISO 4217 currency code (e.g. USD, EUR, INR)
- confidence: your confidence in the extraction as a number between 0 and 1

Return a JSON object with exactly this structure:
{
  "merchant": "string",
  "date": "YYYY-MM-DD",
  "total_amount": number,
  "currency": "string",
  "confidence": number
}

Extract exactly what you see. If a field is not visible or unclear, use an
empty string or 0 and lower the confidence.`

// Verify interface compliance
var _ port.ReceiptScanner = (*Scanner)(nil)
