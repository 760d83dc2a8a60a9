package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/documentextractor/internal/models"
)

// --- Extraction Model Prompts ---
const ExtractionSystemPrompt = "You are a document analysis tool. Your task is to read the provided document and extract the requested fields. You must output your response as a single JSON object matching the supplied schema. Every value must be a string."

// VertexAnalyzer runs schema-guided extraction against Gemini models on Vertex AI.
type VertexAnalyzer struct {
	baseClient *genai.Client
}

// NewVertexAnalyzer creates a new analyzer bound to a project and region.
func NewVertexAnalyzer(ctx context.Context, projectID, region string) (*VertexAnalyzer, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexAnalyzer: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexAnalyzer{baseClient: baseClient}, nil
}

// maxInlineBytes is the largest document sent inline. Larger documents are
// referenced by their gs:// URI instead.
const maxInlineBytes = 20 << 20

// Analyze sends the document and asks the model for output matching req.Fields.
func (c *VertexAnalyzer) Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error) {
	filePart, err := documentPart(req, maxInlineBytes)
	if err != nil {
		return nil, err
	}

	model := c.baseClient.GenerativeModel(req.ModelID)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ExtractionSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(req.Fields),
		Temperature:      genai.Ptr[float32](0.0),
	}

	resp, err := model.GenerateContent(ctx, filePart, genai.Text(req.Instruction))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	return parseAnalysisResponse(resp)
}

// documentPart inlines the local file when it fits within limit and falls back
// to a FileData reference to the source object otherwise.
func documentPart(req *models.AnalysisRequest, limit int64) (genai.Part, error) {
	stat, err := os.Stat(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat document %s: %w", req.FilePath, err)
	}

	if stat.Size() > limit {
		if req.SourceURI == "" {
			return nil, fmt.Errorf("document %s is %d bytes, over the %d byte inline limit, and has no source URI", req.FilePath, stat.Size(), limit)
		}
		return genai.FileData{
			MIMEType: req.MIMEType,
			FileURI:  req.SourceURI,
		}, nil
	}

	data, err := os.ReadFile(req.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read document %s: %w", req.FilePath, err)
	}
	return genai.Blob{
		MIMEType: req.MIMEType,
		Data:     data,
	}, nil
}

func (c *VertexAnalyzer) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// responseSchema renders the extraction fields as an object of required strings.
func responseSchema(fields []models.SchemaField) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(fields)),
		Required:   make([]string, 0, len(fields)),
	}
	for _, field := range fields {
		schema.Properties[field.Name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: field.Description,
		}
		schema.Required = append(schema.Required, field.Name)
	}
	return schema
}

// parseAnalysisResponse decodes the JSON text of the first candidate and
// copies the usage metadata, if any.
func parseAnalysisResponse(resp *genai.GenerateContentResponse) (*models.AnalysisResult, error) {
	text := extractText(resp)
	if text == "" {
		return nil, fmt.Errorf("gemini returned an empty response instead of JSON")
	}

	var output map[string]interface{}
	if err := json.Unmarshal([]byte(text), &output); err != nil {
		return nil, fmt.Errorf("failed to parse JSON from model: %w", err)
	}
	if output == nil {
		output = map[string]interface{}{}
	}

	result := &models.AnalysisResult{Output: output}
	if usage := resp.UsageMetadata; usage != nil {
		input := int64(usage.PromptTokenCount)
		out := int64(usage.CandidatesTokenCount)
		result.TokenUsage = &models.TokenUsage{
			InputTokens:  &input,
			OutputTokens: &out,
		}
	}
	return result, nil
}

// extractText concatenates the text parts of the first candidate and strips code fences.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	cleanJSON := strings.TrimSpace(sb.String())
	cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
	cleanJSON = strings.TrimPrefix(cleanJSON, "```")
	cleanJSON = strings.TrimSuffix(cleanJSON, "```")
	return strings.TrimSpace(cleanJSON)
}
