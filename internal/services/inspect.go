package services

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const fallbackMIMEType = "application/octet-stream"

type documentInfo struct {
	MIMEType  string
	PageCount int
}

// inspectDocument sniffs the MIME type of a local file and, for PDFs, counts pages.
// Only an unreadable file is an error.
func inspectDocument(filePath string) (documentInfo, error) {
	info := documentInfo{MIMEType: fallbackMIMEType}

	if _, err := os.Stat(filePath); err != nil {
		return info, fmt.Errorf("failed to stat downloaded file: %w", err)
	}

	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		slog.Warn("Could not detect MIME type. Using fallback.", "path", filePath, "error", err)
		return info, nil
	}
	// Drop parameters such as "; charset=utf-8".
	info.MIMEType, _, _ = strings.Cut(mtype.String(), ";")

	if mtype.Is("application/pdf") {
		pageCount, err := api.PageCountFile(filePath)
		if err != nil {
			slog.Warn("Could not count PDF pages.", "path", filePath, "error", err)
			return info, nil
		}
		info.PageCount = pageCount
	}
	return info, nil
}
