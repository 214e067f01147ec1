package nats

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type analysisRequest struct {
	InspectionID string    `json:"inspection_id"`
	PublishedAt  time.Time `json:"published_at"`
}

func encodeAnalysisRequest(inspectionID string, at time.Time) ([]byte, error) {
	if strings.TrimSpace(inspectionID) == "" {
		return nil, errors.New("encode analysis request: inspection id is empty")
	}
	data, err := json.Marshal(analysisRequest{InspectionID: inspectionID, PublishedAt: at.UTC()})
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}
	return data, nil
}

// decodeAnalysisRequest also accepts a bare inspection id.
func decodeAnalysisRequest(data []byte) (analysisRequest, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return analysisRequest{}, errors.New("decode analysis request: empty message")
	}
	if !strings.HasPrefix(raw, "{") {
		return analysisRequest{InspectionID: raw}, nil
	}

	var req analysisRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return analysisRequest{}, fmt.Errorf("decode analysis request: %w", err)
	}
	if strings.TrimSpace(req.InspectionID) == "" {
		return analysisRequest{}, errors.New("decode analysis request: inspection id is empty")
	}
	return req, nil
}
