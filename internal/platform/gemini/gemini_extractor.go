package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/mkessler/cardvault-api/internal/config"
	"github.com/mkessler/cardvault-api/internal/domain"
	"github.com/mkessler/cardvault-api/internal/extraction"
	"google.golang.org/genai"
)

// GeminiExtractor implements the extraction.Extractor interface using
// Google's Gemini API to read trading cards out of scanned photos.
type GeminiExtractor struct {
	// logger is used for structured logging
	logger *slog.Logger

	// config contains extractor-specific configuration
	config config.ExtractorConfig

	// promptTemplate is the parsed template for creating prompts
	promptTemplate *template.Template

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string
}

// Ensure GeminiExtractor implements the extraction.Extractor interface
var _ extraction.Extractor = (*GeminiExtractor)(nil)

// NewGeminiExtractor creates a new instance of GeminiExtractor with the
// provided dependencies. Returns an error if the configuration is invalid
// or the client cannot be created.
func NewGeminiExtractor(ctx context.Context, log *slog.Logger, cfg config.ExtractorConfig) (*GeminiExtractor, error) {
	if log == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", extraction.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", extraction.ErrInvalidConfig)
	}
	if cfg.PromptTemplatePath == "" {
		return nil, fmt.Errorf("%w: prompt template path cannot be empty", extraction.ErrInvalidConfig)
	}

	templateContent, err := os.ReadFile(cfg.PromptTemplatePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
			extraction.ErrInvalidConfig, cfg.PromptTemplatePath, err)
	}

	promptTemplate, err := template.New("extract").Parse(string(templateContent))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			extraction.ErrInvalidConfig, err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			extraction.ErrInvalidConfig, err)
	}

	return &GeminiExtractor{
		logger:         log,
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}, nil
}

// ExtractCards implements extraction.Extractor.ExtractCards.
func (g *GeminiExtractor) ExtractCards(ctx context.Context, req extraction.Request) ([]domain.CardRecord, error) {
	if req.ImagePath == "" {
		return nil, ErrEmptyImagePath
	}

	prompt, err := g.createPrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	imageData, err := os.ReadFile(req.ImagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image %s: %v",
			extraction.ErrExtractionFailed, req.ImagePath, err)
	}

	response, err := g.callGeminiWithRetry(ctx, prompt, imageData, mimeTypeFor(req.ImagePath))
	if err != nil {
		return nil, err
	}

	records := make([]domain.CardRecord, 0, len(response.Cards))
	for _, card := range response.Cards {
		record := toCardRecord(card)
		// Snapshot the extraction before any human touches it so edits
		// can be diffed later.
		original, err := json.Marshal(record)
		if err == nil {
			record.Original = original
		}
		records = append(records, record)
	}
	domain.SortByPosition(records)

	g.logger.InfoContext(ctx, "extraction completed",
		"image", filepath.Base(req.ImagePath),
		"cards", len(records))
	return records, nil
}

// createPrompt generates a prompt string from the template with the
// request's extraction context.
func (g *GeminiExtractor) createPrompt(ctx context.Context, req extraction.Request) (string, error) {
	data := promptData{
		GridMode:  req.GridMode || len(req.Positions) > 0,
		Positions: req.Positions,
	}
	if len(req.Previous) > 0 {
		previous, err := json.Marshal(req.Previous)
		if err != nil {
			return "", fmt.Errorf("failed to encode previous records: %w", err)
		}
		data.PreviousJSON = string(previous)
	}

	var promptBuffer bytes.Buffer
	if err := g.promptTemplate.Execute(&promptBuffer, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	g.logger.DebugContext(ctx, "prompt generated",
		"prompt_length", promptBuffer.Len(),
		"grid_mode", data.GridMode,
		"positions", len(req.Positions))
	return promptBuffer.String(), nil
}

// callGeminiWithRetry makes a call to the Gemini API with exponential
// backoff retry logic. Transient errors are retried up to
// config.MaxRetries times with jitter; permanent errors (such as content
// blocked by safety filters) return immediately. The raw diagnostic text
// of the final failure is preserved in the wrapped error.
func (g *GeminiExtractor) callGeminiWithRetry(
	ctx context.Context,
	prompt string,
	imageData []byte,
	mimeType string,
) (*ResponseSchema, error) {
	maxRetries := g.config.MaxRetries
	baseDelaySeconds := g.config.RetryDelaySeconds
	if maxRetries < 0 {
		maxRetries = 3
	}
	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(imageData, mimeType),
		}, genai.RoleUser),
	}
	generateConfig := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		g.logger.InfoContext(ctx, "calling Gemini API",
			"attempt", attempt+1,
			"max_attempts", maxRetries+1)

		resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, generateConfig)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %v", extraction.ErrTransientFailure, err)
			g.logger.WarnContext(ctx, "Gemini API call failed",
				"attempt", attempt+1,
				"error", err.Error())
			if attempt < maxRetries {
				if err := sleepWithBackoff(ctx, attempt, baseDelaySeconds, rng); err != nil {
					return nil, err
				}
			}
			continue
		}

		if len(resp.Candidates) == 0 {
			lastErr = fmt.Errorf("%w: empty candidate list", extraction.ErrInvalidResponse)
			continue
		}
		if resp.Candidates[0].FinishReason == genai.FinishReasonSafety {
			return nil, extraction.ErrContentBlocked
		}

		parsed, err := parseResponse(resp.Text())
		if err != nil {
			lastErr = err
			g.logger.WarnContext(ctx, "failed to parse Gemini response",
				"attempt", attempt+1,
				"error", err.Error())
			if attempt < maxRetries {
				if err := sleepWithBackoff(ctx, attempt, baseDelaySeconds, rng); err != nil {
					return nil, err
				}
			}
			continue
		}
		return parsed, nil
	}

	if lastErr == nil {
		lastErr = extraction.ErrExtractionFailed
	}
	return nil, lastErr
}

// parseResponse decodes the model's JSON output, tolerating a markdown
// code fence around the document.
func parseResponse(text string) (*ResponseSchema, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var response ResponseSchema
	if err := json.Unmarshal([]byte(text), &response); err != nil {
		return nil, fmt.Errorf("%w: %v", extraction.ErrInvalidResponse, err)
	}
	return &response, nil
}

// toCardRecord converts one response card into a domain record.
func toCardRecord(card CardSchema) domain.CardRecord {
	record := domain.CardRecord{
		Name:          card.Name,
		Sport:         card.Sport,
		Brand:         card.Brand,
		Number:        card.Number,
		Year:          card.Year,
		Team:          card.Team,
		CardSet:       card.Set,
		Condition:     card.Condition,
		Features:      card.Features,
		IsPlayerCard:  card.IsPlayerCard,
		ValueEstimate: card.ValueEstimate,
		Confidence:    card.Confidence,
	}
	if card.Position != nil && *card.Position >= 0 && *card.Position < domain.GridPositions {
		record.Grid = &domain.GridPlacement{
			Position: *card.Position,
			Row:      card.Row,
			Col:      card.Col,
		}
	}
	domain.NormalizeCard(&record)
	return record
}

// sleepWithBackoff waits for the exponential backoff delay with jitter,
// aborting early when the context is cancelled.
func sleepWithBackoff(ctx context.Context, attempt, baseDelaySeconds int, rng *rand.Rand) error {
	delay := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
	jitter := delay * 0.2 * rng.Float64()
	wait := time.Duration((delay + jitter) * float64(time.Second))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

func mimeTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
