// Package eligibility decides whether a driver may be offered or accept
// rides. The gate is consulted twice: when filtering broadcast candidates and
// again when a driver tries to accept, since duty status can change between
// the two.
package eligibility

// Reason is a stable, machine-checkable deny code.
type Reason string

const (
	ReasonInactive            Reason = "INACTIVE"
	ReasonNotApproved         Reason = "NOT_APPROVED"
	ReasonOffDuty             Reason = "OFF_DUTY"
	ReasonInsufficientBalance Reason = "INSUFFICIENT_BALANCE"
)

// Message returns the human-readable explanation for a deny code.
func (r Reason) Message() string {
	switch r {
	case ReasonInactive:
		return "driver account is deactivated"
	case ReasonNotApproved:
		return "driver has not been approved"
	case ReasonOffDuty:
		return "driver is not on duty"
	case ReasonInsufficientBalance:
		return "insufficient deposit; ask a dispatcher to top up"
	}
	return string(r)
}

// DriverState is the snapshot the gate evaluates. HasDutyRecord is false for
// drivers who never posted a duty status; they count as off duty.
type DriverState struct {
	Active        bool
	Approved      bool
	HasDutyRecord bool
	OnDuty        bool
	Balance       float64
}

// Decision is the gate's verdict. Reason is set only when Allowed is false.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Check evaluates the deny rules in precedence order: inactive, unapproved,
// off duty, then balance.
func Check(s DriverState) Decision {
	switch {
	case !s.Active:
		return Decision{Reason: ReasonInactive}
	case !s.Approved:
		return Decision{Reason: ReasonNotApproved}
	case !s.HasDutyRecord || !s.OnDuty:
		return Decision{Reason: ReasonOffDuty}
	case s.Balance <= 0:
		return Decision{Reason: ReasonInsufficientBalance}
	}
	return Decision{Allowed: true}
}
