package models

// These structs define the JSON payloads for the extractor's entry points.

// ExtractionRequest is the input for the document-extractor function.
type ExtractionRequest struct {
	FileKey string `json:"file_key"`
}

// ExtractionResponse is the output of the document-extractor function.
// Body holds a JSON-encoded string message.
type ExtractionResponse struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// GCSEvent is the payload of a Cloud Storage object-finalized event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
