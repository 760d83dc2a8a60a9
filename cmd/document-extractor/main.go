package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/Lllllllleong/documentextractor/internal/gcp"
	"github.com/Lllllllleong/documentextractor/internal/models"
	"github.com/Lllllllleong/documentextractor/internal/services"
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

var (
	extractorInstance *services.ExtractorFunction
	once              sync.Once
	initErr           error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// "HandleExtractDocument" and "ExtractOnUpload" are the entry point names configured in GCP.
	functions.HTTP("HandleExtractDocument", handleExtractDocument)
	functions.CloudEvent("ExtractOnUpload", extractOnUpload)
}

// main starts a local server for the registered functions. FUNCTION_TARGET selects which one.
func main() {
	port := gcp.GetEnv("PORT", "8080")
	if err := funcframework.Start(port); err != nil {
		slog.Error("Functions framework exited", "error", err)
		os.Exit(1)
	}
}

func getExtractor() (*services.ExtractorFunction, error) {
	once.Do(func() {
		extractorInstance, initErr = services.NewExtractor(context.Background())
	})
	return extractorInstance, initErr
}

// handleExtractDocument is the HTTP handler for the extraction service.
func handleExtractDocument(w http.ResponseWriter, r *http.Request) {
	extractor, err := getExtractor()
	if err != nil {
		slog.Error("Critical: Extractor initialization failed", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}
	serveExtraction(w, r, extractor)
}

func serveExtraction(w http.ResponseWriter, r *http.Request, extractor services.Extractor) {
	var req models.ExtractionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}
	if req.FileKey == "" {
		slog.Warn("Request is missing file_key")
		http.Error(w, "Bad Request: file_key is required", http.StatusBadRequest)
		return
	}

	res := extractor.Process(r.Context(), &req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "fileKey", req.FileKey)
	}
}

// extractOnUpload is the Cloud Storage trigger entry point.
func extractOnUpload(ctx context.Context, e cloudevents.Event) error {
	extractor, err := getExtractor()
	if err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}
	return handleUploadEvent(ctx, e, extractor, extractor.Config().SourceBucket)
}

func handleUploadEvent(ctx context.Context, e cloudevents.Event, extractor services.Extractor, sourceBucket string) error {
	var gcsEvent models.GCSEvent
	if err := json.Unmarshal(e.Data(), &gcsEvent); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}

	logCtx := slog.With("gcsBucket", gcsEvent.Bucket, "gcsObject", gcsEvent.Name, "eventId", e.ID())
	if gcsEvent.Bucket != sourceBucket {
		logCtx.Info("Event is for a different bucket. Skipping.", "configuredBucket", sourceBucket)
		return nil
	}
	if gcsEvent.Name == "" || strings.HasSuffix(gcsEvent.Name, "/") {
		logCtx.Info("Event does not reference a file. Skipping.")
		return nil
	}

	res := extractor.Process(ctx, &models.ExtractionRequest{FileKey: gcsEvent.Name})
	if res.StatusCode != http.StatusOK {
		// Returning an error marks the invocation as failed.
		return fmt.Errorf("extraction failed for gs://%s/%s: %s", gcsEvent.Bucket, gcsEvent.Name, res.Body)
	}
	return nil
}
