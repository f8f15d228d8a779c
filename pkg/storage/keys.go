package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OutputKey namespaces an agent output blob by organization and execution.
// The timestamp plus a short random suffix keeps keys unique and sortable.
func OutputKey(orgID, executionID, outputType, ext string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("outputs/%s/%s/%s_%s_%s.%s", orgID, executionID, timestamp, outputType, suffix, ext)
}

// FileKey namespaces an uploaded file by organization and file id.
func FileKey(orgID, fileID, filename string) string {
	return fmt.Sprintf("files/%s/%s/%s", orgID, fileID, filename)
}

// OutputExtension maps an output type to its stored file extension.
func OutputExtension(outputType string) string {
	switch outputType {
	case "structured_data":
		return "json"
	default:
		return "txt"
	}
}

// OutputContentType maps an output type to the stored content type.
func OutputContentType(outputType string) string {
	switch outputType {
	case "structured_data":
		return "application/json"
	default:
		return "text/plain"
	}
}
