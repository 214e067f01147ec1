package domain

import (
	"fmt"
	"strings"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Severities lists buckets from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityMajor, SeverityMinor}

func ParseSeverity(raw string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(raw))) {
	case SeverityCritical:
		return SeverityCritical, nil
	case SeverityMajor:
		return SeverityMajor, nil
	case SeverityMinor:
		return SeverityMinor, nil
	default:
		return "", WrapError(ErrInvalidInput, "parse severity", fmt.Errorf("unknown severity %q", raw))
	}
}

type DefectSource string

const (
	SourceAI     DefectSource = "ai"
	SourceManual DefectSource = "manual"
)

type DefectRecord struct {
	ID          string       `json:"id"`
	Severity    Severity     `json:"severity"`
	Description string       `json:"description"`
	Source      DefectSource `json:"source"`
}

type DefectCounts struct {
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
}

type DefectBuckets struct {
	Critical []DefectRecord `json:"critical"`
	Major    []DefectRecord `json:"major"`
	Minor    []DefectRecord `json:"minor"`
}

func (b DefectBuckets) Counts() DefectCounts {
	return DefectCounts{
		Critical: len(b.Critical),
		Major:    len(b.Major),
		Minor:    len(b.Minor),
	}
}

// Clone returns a deep copy; the AI buckets stay untouched while the copy is reviewed.
func (b DefectBuckets) Clone() DefectBuckets {
	return DefectBuckets{
		Critical: cloneRecords(b.Critical),
		Major:    cloneRecords(b.Major),
		Minor:    cloneRecords(b.Minor),
	}
}

// Bucket returns a pointer to the slice holding the given severity.
func (b *DefectBuckets) Bucket(severity Severity) *[]DefectRecord {
	switch severity {
	case SeverityCritical:
		return &b.Critical
	case SeverityMajor:
		return &b.Major
	case SeverityMinor:
		return &b.Minor
	default:
		return nil
	}
}

// Find locates a record by ID across all buckets.
func (b DefectBuckets) Find(id string) (DefectRecord, bool) {
	for _, bucket := range [][]DefectRecord{b.Critical, b.Major, b.Minor} {
		for _, rec := range bucket {
			if rec.ID == id {
				return rec, true
			}
		}
	}
	return DefectRecord{}, false
}

// Descriptions returns the description texts of one bucket in order.
func (b DefectBuckets) Descriptions(severity Severity) []string {
	bucket := b.Bucket(severity)
	if bucket == nil {
		return nil
	}
	out := make([]string, 0, len(*bucket))
	for _, rec := range *bucket {
		out = append(out, rec.Description)
	}
	return out
}

func cloneRecords(in []DefectRecord) []DefectRecord {
	out := make([]DefectRecord, len(in))
	copy(out, in)
	return out
}
