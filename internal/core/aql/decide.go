package aql

import (
	"fmt"

	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

// Decide is a cascading gate: critical, then major, then minor. The first
// exceeded limit decides; minor overage is recoverable and yields REWORK.
func Decide(counts domain.DefectCounts, row Row) (domain.Verdict, error) {
	if counts.Critical < 0 || counts.Major < 0 || counts.Minor < 0 {
		return domain.Verdict{}, domain.WrapError(
			domain.ErrInvalidInput,
			"decide",
			fmt.Errorf("defect counts must not be negative: critical=%d major=%d minor=%d", counts.Critical, counts.Major, counts.Minor),
		)
	}

	verdict := domain.Verdict{
		SampleSize: row.SampleSizeLabel(),
		Limits:     row.Limits(),
		Counts:     counts,
	}

	switch {
	case counts.Critical > row.CriticalLimit:
		verdict.Decision = domain.DecisionReject
		verdict.Reason = fmt.Sprintf("%d critical defect(s) found; critical defects have zero tolerance", counts.Critical)
	case counts.Major > row.MajorLimit:
		verdict.Decision = domain.DecisionReject
		verdict.Reason = fmt.Sprintf("%d major defect(s) exceed limit of %d", counts.Major, row.MajorLimit)
	case counts.Minor > row.MinorLimit:
		verdict.Decision = domain.DecisionRework
		verdict.Reason = fmt.Sprintf("%d minor defect(s) exceed limit of %d; lot can be reworked", counts.Minor, row.MinorLimit)
	default:
		verdict.Decision = domain.DecisionAccept
		verdict.Reason = fmt.Sprintf(
			"all defect counts within limits (critical %d/%d, major %d/%d, minor %d/%d)",
			counts.Critical, row.CriticalLimit, counts.Major, row.MajorLimit, counts.Minor, row.MinorLimit,
		)
	}
	return verdict, nil
}

// EvaluateLot looks up the row for a raw order quantity and decides the lot.
// A malformed quantity is not an error: the default row is used and the
// verdict is flagged.
func (p Plan) EvaluateLot(rawQuantity string, counts domain.DefectCounts) (domain.Verdict, error) {
	row, parsed := p.LookupRaw(rawQuantity)
	verdict, err := Decide(counts, row)
	if err != nil {
		return domain.Verdict{}, err
	}
	verdict.QuantityFallback = !parsed
	return verdict, nil
}
