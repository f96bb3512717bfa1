package models

// PromotionOutcome names the result of a promotion attempt. Every outcome
// except PromotionPromoted leaves all state untouched.
type PromotionOutcome string

const (
	PromotionPromoted            PromotionOutcome = "PROMOTED"
	PromotionNotStudent          PromotionOutcome = "NOT_STUDENT"
	PromotionNoCurrentTerm       PromotionOutcome = "NO_CURRENT_TERM"
	PromotionNotPassed           PromotionOutcome = "NOT_PASSED"
	PromotionNoNextTerm          PromotionOutcome = "NO_NEXT_TERM"
	PromotionNoEnrollment        PromotionOutcome = "NO_ENROLLMENT"
	PromotionAmbiguousEnrollment PromotionOutcome = "AMBIGUOUS_ENROLLMENT"
)

// Promoted reports whether the attempt succeeded.
func (o PromotionOutcome) Promoted() bool {
	return o == PromotionPromoted
}

// PromotionResult is the discriminated result returned to callers so they
// can assert on cause, not just a boolean.
type PromotionResult struct {
	StudentID    string           `json:"student_id"`
	Outcome      PromotionOutcome `json:"outcome"`
	Reason       string           `json:"reason,omitempty"`
	FromClassID  string           `json:"from_class_id,omitempty"`
	ToClassID    string           `json:"to_class_id,omitempty"`
	ToClassName  string           `json:"to_class_name,omitempty"`
	NextTermID   string           `json:"next_term_id,omitempty"`
	ClassCreated bool             `json:"class_created"`
	SessionCount int              `json:"session_count,omitempty"`
}

// ApplyPromotionParams carries the already-validated inputs of the
// promotion effect into the transactional store.
type ApplyPromotionParams struct {
	StudentID       string
	FromClassID     string
	TargetClassName string
	TargetClassSlug string
	TargetTermID    string
	TargetGender    Gender
	SessionCount    int
}

// AppliedPromotion reports what the transactional store did.
type AppliedPromotion struct {
	Class         Class
	ClassCreated  bool
	SessionsAdded int
}
