package ingest

import (
	"errors"
	"strings"
	"testing"
)

func validRequest() *IngestRequest {
	return &IngestRequest{
		ID:    "doc-1",
		Title: "A perfectly fine title",
		Body:  "A body with actual content in it.",
	}
}

func TestValidateIngestRequestOK(t *testing.T) {
	if err := ValidateIngestRequest(validRequest()); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	// Optional fields may be absent.
	req := validRequest()
	req.ID = ""
	req.Metadata = nil
	if err := ValidateIngestRequest(req); err != nil {
		t.Fatalf("request without id/metadata rejected: %v", err)
	}
}

func TestValidateIngestRequestFailures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*IngestRequest)
		wantField string
	}{
		{
			name:      "missing title",
			mutate:    func(r *IngestRequest) { r.Title = "   " },
			wantField: "title",
		},
		{
			name:      "title too long",
			mutate:    func(r *IngestRequest) { r.Title = strings.Repeat("x", 1025) },
			wantField: "title",
		},
		{
			name:      "empty body",
			mutate:    func(r *IngestRequest) { r.Body = "" },
			wantField: "body",
		},
		{
			name:      "body too long",
			mutate:    func(r *IngestRequest) { r.Body = strings.Repeat("x", 1048577) },
			wantField: "body",
		},
		{
			name:      "id too long",
			mutate:    func(r *IngestRequest) { r.ID = strings.Repeat("x", 256) },
			wantField: "id",
		},
		{
			name:      "idempotency key too long",
			mutate:    func(r *IngestRequest) { r.IdempotencyKey = strings.Repeat("x", 256) },
			wantField: "idempotency_key",
		},
		{
			// 512 three-byte runes exceed the 1024-byte title limit even
			// though the rune count is under it.
			name:      "title too long in bytes",
			mutate:    func(r *IngestRequest) { r.Title = strings.Repeat("日", 512) },
			wantField: "title",
		},
		{
			name: "unsupported metadata value",
			mutate: func(r *IngestRequest) {
				r.Metadata = map[string]any{"nested": map[string]any{"no": true}}
			},
			wantField: "metadata",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)
			err := ValidateIngestRequest(req)
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type = %T, want *ValidationError", err)
			}
			if _, ok := verr.Fields[tt.wantField]; !ok {
				t.Errorf("fields = %v, want entry for %q", verr.Fields, tt.wantField)
			}
		})
	}
}

func TestValidateIngestRequestLimitMessageUnits(t *testing.T) {
	// Limits are enforced on byte length, so the messages say so.
	req := validRequest()
	req.Title = strings.Repeat("x", 1025)
	err := ValidateIngestRequest(req)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if msg := verr.Fields["title"]; !strings.Contains(msg, "bytes") {
		t.Errorf("message %q should state the limit in bytes", msg)
	}
}

func TestValidateIngestRequestCollectsAllFields(t *testing.T) {
	req := &IngestRequest{Title: "", Body: ""}
	err := ValidateIngestRequest(req)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error type = %T, want *ValidationError", err)
	}
	if len(verr.Fields) < 2 {
		t.Errorf("want title and body reported together, got %v", verr.Fields)
	}
}
