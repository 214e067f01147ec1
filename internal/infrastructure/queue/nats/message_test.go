package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
	"github.com/kirillkom/footwear-qc/internal/infrastructure/resilience"
)

func TestAnalysisRequestRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
	data, err := encodeAnalysisRequest("insp-1", at)
	if err != nil {
		t.Fatalf("encodeAnalysisRequest() error = %v", err)
	}

	got, err := decodeAnalysisRequest(data)
	if err != nil {
		t.Fatalf("decodeAnalysisRequest() error = %v", err)
	}
	if got.InspectionID != "insp-1" || !got.PublishedAt.Equal(at) {
		t.Fatalf("unexpected request %+v", got)
	}
}

func TestDecodeAnalysisRequest(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantID  string
		wantErr bool
	}{
		{name: "bare id", data: " insp-2 ", wantID: "insp-2"},
		{name: "empty", data: "  ", wantErr: true},
		{name: "broken json", data: `{"inspection_id":`, wantErr: true},
		{name: "missing id", data: `{"published_at":"2026-05-04T12:00:00Z"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeAnalysisRequest([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeAnalysisRequest() error = %v", err)
			}
			if got.InspectionID != tt.wantID {
				t.Fatalf("expected id %q, got %q", tt.wantID, got.InspectionID)
			}
		})
	}
}

func TestEncodeAnalysisRequestRejectsEmptyID(t *testing.T) {
	if _, err := encodeAnalysisRequest(" ", time.Now()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestClassifyNATSError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "timeout", err: nats.ErrTimeout, retryable: true},
		{name: "no servers", err: nats.ErrNoServers, retryable: true},
		{name: "bad subject", err: nats.ErrBadSubject, retryable: false},
		{name: "cancelled", err: context.Canceled, retryable: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := classifyNATSError(tt.err).Retryable; got != tt.retryable {
				t.Fatalf("Retryable = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestTemporaryPublishError(t *testing.T) {
	err := temporaryPublishError(nats.ErrTimeout)
	if !errors.Is(err, domain.ErrTemporary) || !errors.Is(err, nats.ErrTimeout) {
		t.Fatalf("expected temporary wrap, got %v", err)
	}
	if err := temporaryPublishError(nats.ErrBadSubject); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("permanent error must not be temporary: %v", err)
	}
	if resilience.IsCircuitOpen(nats.ErrTimeout) {
		t.Fatalf("timeout is not a circuit error")
	}
}
