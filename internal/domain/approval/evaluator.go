package approval

import (
	"fmt"
	"math"

	"github.com/INCORPORATE-OM/Odoo-x-IITGandhinagar--Expense-Tracker/internal/domain/entity"
)

// Verdict is the final status an evaluation can assign to an expense.
// VerdictNone means the expense stays PENDING.
type Verdict string

const (
	VerdictNone     Verdict = ""
	VerdictApproved Verdict = "APPROVED"
	VerdictRejected Verdict = "REJECTED"
)

// Outcome is the result of evaluating an expense's step set against the
// company's rule set. Reason is a human-readable audit string and is always
// populated, including for VerdictNone.
type Outcome struct {
	Verdict Verdict
	Reason  string
}

// Final reports whether the outcome carries a terminal verdict.
func (o Outcome) Final() bool {
	return o.Verdict != VerdictNone
}

// Evaluate computes the verdict for the given snapshot of approval steps and
// active rules. It is a pure function: callers apply the verdict themselves.
//
// A single REJECTED step is final regardless of any configured rule. Rules
// are tried in the order given and the first satisfied rule wins. With no
// satisfied rule the default policy applies: approved once every step has
// acted and none rejected, otherwise still pending.
func Evaluate(steps []*entity.ApprovalStep, rules []entity.ApprovalRule) Outcome {
	for _, step := range steps {
		if step.Status == entity.StepRejected {
			return Outcome{
				Verdict: VerdictRejected,
				Reason:  fmt.Sprintf("rejected by approver %d at step %d", step.ApproverID, step.Order),
			}
		}
	}

	total := len(steps)
	approved := 0
	for _, step := range steps {
		if step.Status == entity.StepApproved {
			approved++
		}
	}
	pending := total - approved

	for _, rule := range rules {
		if out, ok := matchRule(rule, steps, approved, total); ok {
			return out
		}
	}

	if total > 0 && pending == 0 {
		return Outcome{Verdict: VerdictApproved, Reason: "all approvals completed"}
	}
	return Outcome{Reason: fmt.Sprintf("awaiting %d pending approvals", pending)}
}

func matchRule(rule entity.ApprovalRule, steps []*entity.ApprovalStep, approved, total int) (Outcome, bool) {
	switch rule.Kind {
	case entity.RulePercentage:
		if total > 0 && approved >= requiredApprovals(total, rule.Threshold) {
			return Outcome{
				Verdict: VerdictApproved,
				Reason:  fmt.Sprintf("approval threshold of %.0f%% met (%d of %d)", rule.Threshold*100, approved, total),
			}, true
		}
	case entity.RuleSpecific:
		if rule.ApproverID != 0 {
			if approvedBy(steps, rule.ApproverID) {
				return Outcome{
					Verdict: VerdictApproved,
					Reason:  fmt.Sprintf("approved by designated approver %d", rule.ApproverID),
				}, true
			}
		} else if approvedByRole(steps, rule.Role) {
			return Outcome{
				Verdict: VerdictApproved,
				Reason:  fmt.Sprintf("approved by designated role %s", rule.Role),
			}, true
		}
	case entity.RuleHybrid:
		if total > 0 && approved >= requiredApprovals(total, rule.Threshold) {
			return Outcome{
				Verdict: VerdictApproved,
				Reason:  fmt.Sprintf("approval threshold of %.0f%% met (%d of %d)", rule.Threshold*100, approved, total),
			}, true
		}
		if approvedByRole(steps, rule.Role) {
			return Outcome{
				Verdict: VerdictApproved,
				Reason:  fmt.Sprintf("approved by designated role %s", rule.Role),
			}, true
		}
	}
	return Outcome{}, false
}

// requiredApprovals rounds up: a 50% threshold over 3 steps needs 2
// approvals. The epsilon keeps exact multiples (e.g. 0.2 * 5) from being
// pushed over the ceiling by float representation error.
func requiredApprovals(total int, threshold float64) int {
	return int(math.Ceil(float64(total)*threshold - 1e-9))
}

func approvedBy(steps []*entity.ApprovalStep, approverID int64) bool {
	for _, step := range steps {
		if step.ApproverID == approverID && step.Status == entity.StepApproved {
			return true
		}
	}
	return false
}

func approvedByRole(steps []*entity.ApprovalStep, role string) bool {
	for _, step := range steps {
		if step.ApproverRole == role && step.Status == entity.StepApproved {
			return true
		}
	}
	return false
}
