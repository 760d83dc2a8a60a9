package models

// SchemaField is one required string property of the extraction schema.
type SchemaField struct {
	Name        string
	Description string
}

// ExtractionFields is the fixed set of fields requested from the analysis model.
// Order is preserved when the schema is rendered.
var ExtractionFields = []SchemaField{
	{Name: "infrastructure_cost", Description: "Cost related to infrastructure hosting"},
	{Name: "development_cost", Description: "Cost related to application development"},
	{Name: "maintenance_cost", Description: "Cost related to maintaining the application"},
	{Name: "case_study_1_overview", Description: "Overview of the first case study"},
	{Name: "cost_calculation", Description: "Cost calculation details"},
}

// AnalysisInstruction is the user prompt sent alongside the document.
const AnalysisInstruction = "Give me the output based on the provided schema."

// AnalysisRequest describes a single schema-guided analysis call.
type AnalysisRequest struct {
	FilePath    string
	SourceURI   string
	MIMEType    string
	ModelID     string
	Instruction string
	Fields      []SchemaField
}

// TokenUsage reports model token consumption. A nil count was not reported.
type TokenUsage struct {
	InputTokens  *int64 `json:"input_tokens,omitempty"`
	OutputTokens *int64 `json:"output_tokens,omitempty"`
}

// AnalysisResult is the structured output of an analysis call.
type AnalysisResult struct {
	Output     map[string]interface{} `json:"output"`
	TokenUsage *TokenUsage            `json:"token_usage,omitempty"`
}
