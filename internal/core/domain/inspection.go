package domain

import (
	"io"
	"time"
)

type InspectionStatus string

const (
	InspectionUploaded  InspectionStatus = "uploaded"
	InspectionAnalyzing InspectionStatus = "analyzing"
	InspectionReview    InspectionStatus = "review"
	InspectionFailed    InspectionStatus = "failed"
)

type InspectionImage struct {
	ID          string `json:"id"`
	Angle       string `json:"angle,omitempty"`
	Filename    string `json:"filename"`
	MimeType    string `json:"mime_type"`
	StoragePath string `json:"storage_path"`
}

type ImageResultStatus string

const (
	ImageResultOK     ImageResultStatus = "ok"
	ImageResultAbsent ImageResultStatus = "absent"
)

type ImageResult struct {
	ImageID string            `json:"image_id"`
	Status  ImageResultStatus `json:"status"`
	Error   string            `json:"error,omitempty"`
}

type Inspection struct {
	ID            string            `json:"id"`
	OrderNumber   string            `json:"order_number"`
	OrderQuantity string            `json:"order_quantity"`
	Style         string            `json:"style,omitempty"`
	Factory       string            `json:"factory,omitempty"`
	Client        string            `json:"client,omitempty"`
	Inspector     string            `json:"inspector,omitempty"`
	Status        InspectionStatus  `json:"status"`
	Images        []InspectionImage `json:"images"`
	ImageResults  []ImageResult     `json:"image_results,omitempty"`
	AIDefects     DefectBuckets     `json:"ai_defects"`
	ReviewDefects DefectBuckets     `json:"review_defects"`
	Error         string            `json:"error,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// InspectionDraft carries operator-supplied metadata for a new inspection.
type InspectionDraft struct {
	OrderNumber   string
	OrderQuantity string
	Style         string
	Factory       string
	Client        string
	Inspector     string
}

// ImageUpload is one photo in a new inspection. Body is consumed once.
type ImageUpload struct {
	Filename string
	MimeType string
	Angle    string
	Body     io.Reader
}

// ImageAnalysis is the vision model's judgement of a single photo.
type ImageAnalysis struct {
	Critical []string `json:"critical_defects"`
	Major    []string `json:"major_defects"`
	Minor    []string `json:"minor_defects"`
}
