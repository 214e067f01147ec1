package domain

import "time"

// LocalizedDefects is the review outcome rendered in one report language.
type LocalizedDefects struct {
	Language     string   `json:"language"`
	LanguageName string   `json:"language_name"`
	Critical     []string `json:"critical"`
	Major        []string `json:"major"`
	Minor        []string `json:"minor"`
	// Translated is false when translation failed and English text is shown.
	Translated bool `json:"translated"`
}

type ReportImage struct {
	Angle    string
	Filename string
	MimeType string
	Data     []byte
}

// InspectionReport is everything a renderer needs; it has no I/O of its own.
type InspectionReport struct {
	CompanyName  string
	GeneratedAt  time.Time
	Inspection   Inspection
	AIVerdict    Verdict
	FinalVerdict Verdict
	Localized    []LocalizedDefects
	Images       []ReportImage
}
