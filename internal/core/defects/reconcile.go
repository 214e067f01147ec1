package defects

import (
	"strings"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

const DefaultMinSharedTokens = 2

// Options tunes how aggressively overlapping descriptions are merged.
type Options struct {
	// MinSharedTokens is the number of common whitespace tokens that makes two
	// descriptions the same defect. Values below 1 fall back to the default.
	MinSharedTokens int
	// Synonyms replaces DefaultSynonyms when non-nil.
	Synonyms []Synonym
}

func DefaultOptions() Options {
	return Options{
		MinSharedTokens: DefaultMinSharedTokens,
		Synonyms:        DefaultSynonyms,
	}
}

// RawDefects holds description lists per severity bucket.
type RawDefects struct {
	Critical []string `json:"critical"`
	Major    []string `json:"major"`
	Minor    []string `json:"minor"`
}

func (r RawDefects) Counts() domain.DefectCounts {
	return domain.DefectCounts{
		Critical: len(r.Critical),
		Major:    len(r.Major),
		Minor:    len(r.Minor),
	}
}

type Reconciler struct {
	minSharedTokens int
	folder          *Folder
}

func NewReconciler(opts Options) *Reconciler {
	if opts.MinSharedTokens < 1 {
		opts.MinSharedTokens = DefaultMinSharedTokens
	}
	table := opts.Synonyms
	if table == nil {
		table = DefaultSynonyms
	}
	return &Reconciler{
		minSharedTokens: opts.MinSharedTokens,
		folder:          NewFolder(table),
	}
}

func (r *Reconciler) MinSharedTokens() int {
	return r.minSharedTokens
}

// Canonical is the comparison form of a description: normalized, then folded.
func (r *Reconciler) Canonical(text string) string {
	return r.folder.Fold(Normalize(text))
}

// SameDefect reports whether two canonical descriptions name the same defect:
// one contains the other, or they share at least MinSharedTokens tokens.
func (r *Reconciler) SameDefect(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if strings.Contains(a, b) || strings.Contains(b, a) {
		return true
	}
	return sharedTokens(a, b) >= r.minSharedTokens
}

// Reconcile canonicalizes each bucket and suppresses any description already
// covered by a more severe bucket. Empty descriptions are dropped. Input order
// within a bucket is preserved.
func (r *Reconciler) Reconcile(raw RawDefects) RawDefects {
	critical := DedupeExact(r.canonicalAll(raw.Critical))

	major := make([]string, 0, len(raw.Major))
	for _, item := range DedupeExact(r.canonicalAll(raw.Major)) {
		if r.overlapsAny(item, critical) {
			continue
		}
		major = append(major, item)
	}

	minor := make([]string, 0, len(raw.Minor))
	for _, item := range DedupeExact(r.canonicalAll(raw.Minor)) {
		if r.overlapsAny(item, critical) || r.overlapsAny(item, major) {
			continue
		}
		minor = append(minor, item)
	}

	return RawDefects{
		Critical: DedupeExact(critical),
		Major:    DedupeExact(major),
		Minor:    DedupeExact(minor),
	}
}

func (r *Reconciler) canonicalAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		canonical := r.Canonical(item)
		if canonical == "" {
			continue
		}
		out = append(out, canonical)
	}
	return out
}

func (r *Reconciler) overlapsAny(item string, retained []string) bool {
	for _, kept := range retained {
		if r.SameDefect(item, kept) {
			return true
		}
	}
	return false
}

func sharedTokens(a, b string) int {
	tokens := make(map[string]struct{})
	for _, tok := range strings.Fields(a) {
		tokens[tok] = struct{}{}
	}
	shared := 0
	for _, tok := range strings.Fields(b) {
		if _, ok := tokens[tok]; ok {
			shared++
			delete(tokens, tok)
		}
	}
	return shared
}

var defaultReconciler = NewReconciler(DefaultOptions())

// Reconcile runs the default reconciler over three raw buckets.
func Reconcile(critical, major, minor []string) ([]string, []string, []string) {
	out := defaultReconciler.Reconcile(RawDefects{Critical: critical, Major: major, Minor: minor})
	return out.Critical, out.Major, out.Minor
}

// MergeAnalyses concatenates per-image results in upload order. Nil entries
// are images whose analysis is absent and contribute nothing.
func MergeAnalyses(analyses []*domain.ImageAnalysis) RawDefects {
	merged := RawDefects{
		Critical: []string{},
		Major:    []string{},
		Minor:    []string{},
	}
	for _, analysis := range analyses {
		if analysis == nil {
			continue
		}
		merged.Critical = append(merged.Critical, analysis.Critical...)
		merged.Major = append(merged.Major, analysis.Major...)
		merged.Minor = append(merged.Minor, analysis.Minor...)
	}
	return merged
}

// ToBuckets wraps reconciled descriptions into records tagged with source.
func ToBuckets(raw RawDefects, source domain.DefectSource, newID func() string) domain.DefectBuckets {
	build := func(severity domain.Severity, items []string) []domain.DefectRecord {
		out := make([]domain.DefectRecord, 0, len(items))
		for _, item := range items {
			out = append(out, domain.DefectRecord{
				ID:          newID(),
				Severity:    severity,
				Description: item,
				Source:      source,
			})
		}
		return out
	}
	return domain.DefectBuckets{
		Critical: build(domain.SeverityCritical, raw.Critical),
		Major:    build(domain.SeverityMajor, raw.Major),
		Minor:    build(domain.SeverityMinor, raw.Minor),
	}
}
