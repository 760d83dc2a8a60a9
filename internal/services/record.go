package services

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Lllllllleong/documentextractor/internal/models"
)

// recordMetadata is bookkeeping stored next to the extracted fields.
type recordMetadata struct {
	FileKey   string
	ModelID   string
	CreatedAt time.Time
	PageCount int
}

// buildRecord flattens an analysis result into record attributes. Schema fields
// missing from the output are left out entirely.
func buildRecord(id string, result *models.AnalysisResult, meta recordMetadata) (map[string]interface{}, error) {
	fullJSON, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize analysis result: %w", err)
	}

	record := map[string]interface{}{
		"id":         id,
		"full_json":  string(fullJSON),
		"file_key":   meta.FileKey,
		"model_id":   meta.ModelID,
		"created_at": meta.CreatedAt,
	}
	if meta.PageCount > 0 {
		record["page_count"] = int64(meta.PageCount)
	}

	for _, field := range models.ExtractionFields {
		value, ok := result.Output[field.Name]
		if !ok || value == nil {
			continue
		}
		s, err := attributeString(value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Name, err)
		}
		record[field.Name] = s
	}

	if usage := result.TokenUsage; usage != nil {
		if usage.InputTokens != nil {
			record["input_tokens"] = *usage.InputTokens
		}
		if usage.OutputTokens != nil {
			record["output_tokens"] = *usage.OutputTokens
		}
	}
	return record, nil
}

// attributeString stores strings as-is; any other JSON value is kept as its JSON text.
func attributeString(value interface{}) (string, error) {
	if s, ok := value.(string); ok {
		return s, nil
	}
	b, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to encode value: %w", err)
	}
	return string(b), nil
}
