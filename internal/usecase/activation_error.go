package usecase

import "fmt"

// ActivationStage names where inside the activation transaction a failure
// happened. Stages matter for operator alerts, not for control flow.
type ActivationStage string

const (
	StageLoadPayment    ActivationStage = "load_payment"
	StagePlanLookup     ActivationStage = "plan_lookup"
	StageMarkPayment    ActivationStage = "mark_payment"
	StageEntitlements   ActivationStage = "entitlements"
	StageTeacherProfile ActivationStage = "teacher_profile"
	StageCommit         ActivationStage = "commit"
)

// ActivationErrorKind drives the retry decision.
type ActivationErrorKind string

const (
	// KindUnknownOrder: no payment attempt for the order. Non-retryable;
	// a legitimate provider callback always has a matching attempt.
	KindUnknownOrder ActivationErrorKind = "unknown_order"
	// KindInvalidPlan: plan id not in catalog or role flag mismatch. Non-retryable.
	KindInvalidPlan ActivationErrorKind = "invalid_plan"
	// KindTransient: storage contention or connection loss. Retryable with
	// backoff; all mutations are idempotent upserts so a re-run is safe.
	KindTransient ActivationErrorKind = "transient"
	// KindPartialActivation: the teacher profile step failed. The whole
	// transaction rolled back; retryable from scratch.
	KindPartialActivation ActivationErrorKind = "partial_activation"
)

// ActivationError is the typed failure the activation engine returns. Callers
// match on Kind to decide retryable vs. operator-alert instead of catching and
// logging blindly.
type ActivationError struct {
	Stage ActivationStage
	Kind  ActivationErrorKind
	Cause error
}

func (e *ActivationError) Error() string {
	return fmt.Sprintf("activation failed at %s (%s): %v", e.Stage, e.Kind, e.Cause)
}

func (e *ActivationError) Unwrap() error { return e.Cause }

// Retryable reports whether the caller should surface a retryable failure
// (5xx to the provider, another reconciliation pass) or alert an operator.
func (e *ActivationError) Retryable() bool {
	return e.Kind == KindTransient || e.Kind == KindPartialActivation
}
