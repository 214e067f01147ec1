package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

type VisionInspector struct {
	client *Client
}

func NewVisionInspector(client *Client) *VisionInspector {
	return &VisionInspector{client: client}
}

func (v *VisionInspector) InspectImage(ctx context.Context, image domain.InspectionImage, data []byte) (domain.ImageAnalysis, error) {
	if len(data) == 0 {
		return domain.ImageAnalysis{}, domain.WrapError(domain.ErrInvalidInput, "inspect image", errors.New("image is empty"))
	}

	respText, err := v.client.generateJSON(ctx, "vision", v.client.visionModel, buildInspectionPrompt(image.Angle), data)
	if err != nil {
		return domain.ImageAnalysis{}, err
	}
	return parseImageAnalysis(respText)
}

func parseImageAnalysis(raw string) (domain.ImageAnalysis, error) {
	var result struct {
		Critical *[]string `json:"critical_defects"`
		Major    *[]string `json:"major_defects"`
		Minor    *[]string `json:"minor_defects"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return domain.ImageAnalysis{}, fmt.Errorf("parse vision json: %w", err)
	}
	if result.Critical == nil && result.Major == nil && result.Minor == nil {
		return domain.ImageAnalysis{}, errors.New("parse vision json: no defect keys in response")
	}

	return domain.ImageAnalysis{
		Critical: orEmpty(result.Critical),
		Major:    orEmpty(result.Major),
		Minor:    orEmpty(result.Minor),
	}, nil
}

func orEmpty(items *[]string) []string {
	if items == nil {
		return []string{}
	}
	return *items
}
