package usecase

import (
	"github.com/kirillkom/footwear-qc/internal/core/aql"
	"github.com/kirillkom/footwear-qc/internal/core/defects"
	"github.com/kirillkom/footwear-qc/internal/core/domain"
)

// QCUseCase exposes the pure reconciliation and AQL engine to adapters. It
// holds no mutable state and is safe for concurrent use.
type QCUseCase struct {
	plan       aql.Plan
	reconciler *defects.Reconciler
}

func NewQCUseCase(plan aql.Plan, reconciler *defects.Reconciler) *QCUseCase {
	if reconciler == nil {
		reconciler = defects.NewReconciler(defects.DefaultOptions())
	}
	return &QCUseCase{
		plan:       plan,
		reconciler: reconciler,
	}
}

func (uc *QCUseCase) ReconcileDefects(raw defects.RawDefects) defects.RawDefects {
	return uc.reconciler.Reconcile(raw)
}

func (uc *QCUseCase) EvaluateLot(orderQuantity string, counts domain.DefectCounts) (domain.Verdict, error) {
	return uc.plan.EvaluateLot(orderQuantity, counts)
}

func (uc *QCUseCase) LookupPlan(orderQuantity string) (aql.Row, bool) {
	return uc.plan.LookupRaw(orderQuantity)
}

func (uc *QCUseCase) Plan() aql.Plan {
	return uc.plan
}
