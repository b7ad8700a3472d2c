package eligibility

import "testing"

func TestCheck_Precedence(t *testing.T) {
	tests := []struct {
		name  string
		state DriverState
		want  Decision
	}{
		{
			name:  "all conditions met",
			state: DriverState{Active: true, Approved: true, HasDutyRecord: true, OnDuty: true, Balance: 1000},
			want:  Decision{Allowed: true},
		},
		{
			name:  "inactive wins over everything",
			state: DriverState{Active: false, Approved: false, OnDuty: false, Balance: -5},
			want:  Decision{Reason: ReasonInactive},
		},
		{
			name:  "unapproved before duty and balance",
			state: DriverState{Active: true, Approved: false, OnDuty: false, Balance: -5},
			want:  Decision{Reason: ReasonNotApproved},
		},
		{
			name:  "off duty before balance",
			state: DriverState{Active: true, Approved: true, HasDutyRecord: true, OnDuty: false, Balance: -5},
			want:  Decision{Reason: ReasonOffDuty},
		},
		{
			name:  "missing duty record counts as off duty",
			state: DriverState{Active: true, Approved: true, HasDutyRecord: false, OnDuty: true, Balance: 1000},
			want:  Decision{Reason: ReasonOffDuty},
		},
		{
			name:  "zero balance denied",
			state: DriverState{Active: true, Approved: true, HasDutyRecord: true, OnDuty: true, Balance: 0},
			want:  Decision{Reason: ReasonInsufficientBalance},
		},
		{
			name:  "negative balance denied",
			state: DriverState{Active: true, Approved: true, HasDutyRecord: true, OnDuty: true, Balance: -100},
			want:  Decision{Reason: ReasonInsufficientBalance},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Check(tt.state); got != tt.want {
				t.Errorf("Check(%+v) = %+v, want %+v", tt.state, got, tt.want)
			}
		})
	}
}

// TestCheck_Exhaustive walks every combination of the four inputs and asserts
// the gate always returns exactly one verdict with the documented precedence.
func TestCheck_Exhaustive(t *testing.T) {
	bools := []bool{false, true}
	balances := []float64{-1, 0, 1}

	for _, active := range bools {
		for _, approved := range bools {
			for _, hasDuty := range bools {
				for _, onDuty := range bools {
					for _, balance := range balances {
						s := DriverState{
							Active:        active,
							Approved:      approved,
							HasDutyRecord: hasDuty,
							OnDuty:        onDuty,
							Balance:       balance,
						}
						got := Check(s)

						var want Decision
						switch {
						case !active:
							want = Decision{Reason: ReasonInactive}
						case !approved:
							want = Decision{Reason: ReasonNotApproved}
						case !hasDuty || !onDuty:
							want = Decision{Reason: ReasonOffDuty}
						case balance <= 0:
							want = Decision{Reason: ReasonInsufficientBalance}
						default:
							want = Decision{Allowed: true}
						}
						if got != want {
							t.Errorf("Check(%+v) = %+v, want %+v", s, got, want)
						}
						if got.Allowed && got.Reason != "" {
							t.Errorf("allowed decision carries a reason: %+v", got)
						}
						if !got.Allowed && got.Reason == "" {
							t.Errorf("denied decision missing a reason: %+v", got)
						}
					}
				}
			}
		}
	}
}

func TestReason_Messages(t *testing.T) {
	for _, r := range []Reason{ReasonInactive, ReasonNotApproved, ReasonOffDuty, ReasonInsufficientBalance} {
		if r.Message() == "" || r.Message() == string(r) {
			t.Errorf("reason %s has no human message", r)
		}
	}
}
