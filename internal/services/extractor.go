package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/Lllllllleong/documentextractor/internal/gcp"
	"github.com/Lllllllleong/documentextractor/internal/models"
	"github.com/google/uuid"
)

const successMessage = "Data written to Firestore successfully."

// ObjectDownloader fetches an object from the object store into a local file.
type ObjectDownloader interface {
	Download(ctx context.Context, bucket, object, destPath string) error
}

// DocumentAnalyzer runs schema-guided extraction over a local document.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, req *models.AnalysisRequest) (*models.AnalysisResult, error)
}

// RecordStore inserts a new record. Implementations must not overwrite existing records.
type RecordStore interface {
	Insert(ctx context.Context, collection, id string, record map[string]interface{}) error
}

// ExtractorConfig holds all configuration for the extractor service.
type ExtractorConfig struct {
	ProjectID      string
	VertexAIRegion string
	ModelID        string
	SourceBucket   string
	CollectionName string
	TempDir        string
}

// ExtractorFunction holds the dependencies for the extraction logic.
type ExtractorFunction struct {
	downloader ObjectDownloader
	analyzer   DocumentAnalyzer
	store      RecordStore
	config     ExtractorConfig
	closers    []io.Closer

	newID func() string
	now   func() time.Time
}

// LoadExtractorConfig loads and validates all necessary environment variables for this service.
func LoadExtractorConfig() (*ExtractorConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := &ExtractorConfig{
		ProjectID:      projectID,
		VertexAIRegion: gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		ModelID:        gcp.GetEnv("MODEL_ID", "gemini-1.5-flash"),
		SourceBucket:   gcp.GetEnv("BUCKET_NAME", ""),
		CollectionName: gcp.GetEnv("TABLE_NAME", ""),
		TempDir:        gcp.GetEnv("TEMP_DIR", os.TempDir()),
	}
	if config.SourceBucket == "" || config.CollectionName == "" {
		return nil, fmt.Errorf("BUCKET_NAME and TABLE_NAME environment variables must be set")
	}
	return config, nil
}

// NewExtractor creates a new ExtractorFunction backed by GCS, Vertex AI and Firestore.
func NewExtractor(ctx context.Context) (*ExtractorFunction, error) {
	config, err := LoadExtractorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	objectStore, err := gcp.NewObjectStore(ctx)
	if err != nil {
		return nil, err
	}

	analyzer, err := gcp.NewVertexAnalyzer(ctx, config.ProjectID, config.VertexAIRegion)
	if err != nil {
		objectStore.Close()
		return nil, fmt.Errorf("failed to create vertex analyzer: %w", err)
	}

	store, err := gcp.NewFirestoreStore(ctx, config.ProjectID)
	if err != nil {
		objectStore.Close()
		analyzer.Close()
		return nil, fmt.Errorf("failed to create firestore store: %w", err)
	}

	f := newExtractorFunction(*config, objectStore, analyzer, store)
	f.closers = []io.Closer{objectStore, analyzer, store}
	slog.Info("Extractor logic initialized.", "bucket", config.SourceBucket, "collection", config.CollectionName, "modelId", config.ModelID)
	return f, nil
}

func newExtractorFunction(config ExtractorConfig, downloader ObjectDownloader, analyzer DocumentAnalyzer, store RecordStore) *ExtractorFunction {
	return &ExtractorFunction{
		downloader: downloader,
		analyzer:   analyzer,
		store:      store,
		config:     config,
		newID:      uuid.NewString,
		now:        time.Now,
	}
}

// Config returns the configuration the function was built with.
func (f *ExtractorFunction) Config() ExtractorConfig {
	return f.config
}

// ObjectLister returns the function's object store as a lister, or nil if it cannot list.
func (f *ExtractorFunction) ObjectLister() ObjectLister {
	lister, _ := f.downloader.(ObjectLister)
	return lister
}

// Close releases the underlying clients.
func (f *ExtractorFunction) Close() error {
	var errs []error
	for _, c := range f.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Process downloads, analyzes and persists one document. It never returns an
// error: every failure is reported as a 500 response.
func (f *ExtractorFunction) Process(ctx context.Context, req *models.ExtractionRequest) *models.ExtractionResponse {
	logCtx := slog.With("fileKey", req.FileKey, "bucket", f.config.SourceBucket)
	logCtx.Info("Starting extraction.")

	recordID, err := f.extract(ctx, logCtx, req.FileKey)
	if err != nil {
		logCtx.Error("Extraction failed", "error", err)
		return newResponse(http.StatusInternalServerError, fmt.Sprintf("Error processing file: %v", err))
	}

	logCtx.Info("Extraction complete.", "recordId", recordID)
	return newResponse(http.StatusOK, successMessage)
}

func (f *ExtractorFunction) extract(ctx context.Context, logCtx *slog.Logger, fileKey string) (string, error) {
	fileName, err := localFileName(fileKey)
	if err != nil {
		return "", err
	}

	tempDir, err := os.MkdirTemp(f.config.TempDir, "extractor-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			logCtx.Warn("Failed to remove temp directory.", "path", tempDir, "error", err)
		}
	}()

	filePath := filepath.Join(tempDir, fileName)
	if err := f.downloader.Download(ctx, f.config.SourceBucket, fileKey, filePath); err != nil {
		return "", err
	}

	info, err := inspectDocument(filePath)
	if err != nil {
		return "", err
	}
	logCtx.Info("Document downloaded.", "mimeType", info.MIMEType, "pageCount", info.PageCount)

	result, err := f.analyzer.Analyze(ctx, &models.AnalysisRequest{
		FilePath:    filePath,
		SourceURI:   fmt.Sprintf("gs://%s/%s", f.config.SourceBucket, fileKey),
		MIMEType:    info.MIMEType,
		ModelID:     f.config.ModelID,
		Instruction: models.AnalysisInstruction,
		Fields:      models.ExtractionFields,
	})
	if err != nil {
		return "", err
	}

	recordID := f.newID()
	record, err := buildRecord(recordID, result, recordMetadata{
		FileKey:   fileKey,
		ModelID:   f.config.ModelID,
		CreatedAt: f.now(),
		PageCount: info.PageCount,
	})
	if err != nil {
		return "", err
	}

	if err := f.store.Insert(ctx, f.config.CollectionName, recordID, record); err != nil {
		return "", err
	}
	return recordID, nil
}

// localFileName returns the final path segment of an object key.
func localFileName(fileKey string) (string, error) {
	if fileKey == "" {
		return "", fmt.Errorf("file_key must be provided")
	}
	name := path.Base(fileKey)
	if fileKey[len(fileKey)-1] == '/' || name == "." || name == ".." || name == "/" {
		return "", fmt.Errorf("file_key %q does not name an object", fileKey)
	}
	return name, nil
}

func newResponse(statusCode int, message string) *models.ExtractionResponse {
	body, _ := json.Marshal(message)
	return &models.ExtractionResponse{StatusCode: statusCode, Body: string(body)}
}
