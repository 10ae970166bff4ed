package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/KishoreAkashYS/chargebee-cpf/config"
	"github.com/KishoreAkashYS/chargebee-cpf/model"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// maxContractChars bounds prompt size. Longer documents lose trailing
// content; that is a known limitation of the pipeline.
const maxContractChars = 25000

const extractionTemperature = 0.1

const systemPrompt = `You are an expert contract data extraction assistant specializing in subscription billing.

Your task:
1. Extract structured subscription data from contract text
2. Return ONLY valid JSON (no markdown, no code fences)
3. Use null for missing values

Key extraction rules:
- Extract "Plan ID" or "item_price_id" exactly as shown
- Dates: convert to YYYY-MM-DD format
- Prices: keep as strings (include currency symbols if present)
- Ramp schedules: capture as array of phases
- Tax: extract percentage as float
- If ambiguous, note in source_confidence_notes
`

const userPromptTemplate = `Extract subscription details from this contract:

%s

Return JSON matching this schema:
%s

Remember: ONLY return the JSON object, no extra text or formatting.`

// StructuredExtractor produces a validated structured record from contract
// text. The AI boundary is non-deterministic, so callers and tests depend on
// this interface rather than a concrete model client.
type StructuredExtractor interface {
	Extract(ctx context.Context, contractText string) (*model.ExtractedContract, error)
}

// TextModel generates a free-text completion for a system/user prompt pair.
type TextModel interface {
	Generate(ctx context.Context, system, user string) (string, error)
}

// GeminiModel calls the Gemini API. A client is created per request; the
// upload pipeline makes exactly one extraction call per contract.
type GeminiModel struct {
	apiKey    string
	modelName string
}

func NewGeminiModel(cfg *config.GeminiConfig) *GeminiModel {
	return &GeminiModel{
		apiKey:    cfg.APIKey,
		modelName: cfg.Model,
	}
}

func (m *GeminiModel) Generate(ctx context.Context, system, user string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(m.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	gm := client.GenerativeModel(m.modelName)
	gm.SetTemperature(extractionTemperature)
	gm.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}

	resp, err := gm.GenerateContent(ctx, genai.Text(user))
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	var b strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String(), nil
}

// ContractExtractor implements StructuredExtractor on top of a TextModel.
type ContractExtractor struct {
	model   TextModel
	apiKey  string
	timeout time.Duration
}

func NewContractExtractor(cfg *config.GeminiConfig) *ContractExtractor {
	return &ContractExtractor{
		model:   NewGeminiModel(cfg),
		apiKey:  cfg.APIKey,
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}
}

// Extract sends contract text to the model and returns the schema-validated
// structured record. One model call, no retries.
func (e *ContractExtractor) Extract(ctx context.Context, contractText string) (*model.ExtractedContract, error) {
	if e.apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	if len(contractText) > maxContractChars {
		contractText = contractText[:maxContractChars]
	}

	schema := ContractSchema()
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode schema: %w", err)
	}
	userPrompt := fmt.Sprintf(userPromptTemplate, contractText, string(schemaJSON))

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	response, err := e.model.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}

	payload := []byte(isolateJSON(response))

	if err := ValidateAgainstSchema(schema, payload); err != nil {
		return nil, fmt.Errorf("model response failed validation: %w", err)
	}

	var extracted model.ExtractedContract
	if err := json.Unmarshal(payload, &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	if extracted.Ramp == nil {
		extracted.Ramp = []model.RampPhase{}
	}

	return &extracted, nil
}

// isolateJSON returns the substring between the first '{' and the last '}'
// inclusive. Models sometimes wrap the object in prose or markdown fences
// despite instructions; when no braces are present the original text is
// returned and the subsequent parse fails with a descriptive error.
func isolateJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return strings.TrimSpace(s)
	}
	return s[start : end+1]
}
