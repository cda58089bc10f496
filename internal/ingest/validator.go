package ingest

import (
	"fmt"
	"strings"

	"github.com/searchcore/kbsearch/internal/metadata"
)

const (
	maxIDLength    = 255
	maxTitleLength = 1024
	maxBodyLength  = 1048576
	minBodyLength  = 1
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	var parts []string
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s:%s", field, msg))
	}
	return strings.Join(parts, "; ")
}

// ValidateIngestRequest checks length constraints and that the metadata map
// converts cleanly into tagged values. It returns a ValidationError listing
// every failing field.
func ValidateIngestRequest(req *IngestRequest) error {
	errs := make(map[string]string)

	if len(req.ID) > maxIDLength {
		errs["id"] = fmt.Sprintf("id must be at most %d bytes", maxIDLength)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		errs["title"] = "title is required"
	} else if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d bytes", maxTitleLength)
	}
	body := strings.TrimSpace(req.Body)
	if len(body) < minBodyLength {
		errs["body"] = "body is required and must not be empty"
	} else if len(body) > maxBodyLength {
		errs["body"] = fmt.Sprintf("body must be at most %d bytes", maxBodyLength)
	}
	if req.IdempotencyKey != "" && len(req.IdempotencyKey) > 255 {
		errs["idempotency_key"] = "idempotency key must be at most 255 bytes"
	}
	if _, err := metadata.FromMap(req.Metadata); err != nil {
		errs["metadata"] = err.Error()
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
