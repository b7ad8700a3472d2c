package customer

import "testing"

func TestSplitName(t *testing.T) {
	tests := []struct {
		in          string
		first, last string
	}{
		{"", "", ""},
		{"  ", "", ""},
		{"Aziz", "Aziz", ""},
		{"Aziz Karimov", "Aziz", "Karimov"},
		{"Aziz Karimov ogli", "Aziz", "Karimov ogli"},
	}
	for _, tt := range tests {
		first, last := splitName(tt.in)
		if first != tt.first || last != tt.last {
			t.Errorf("splitName(%q) = (%q, %q), want (%q, %q)", tt.in, first, last, tt.first, tt.last)
		}
	}
}

func TestFullName(t *testing.T) {
	tests := []struct {
		c    Customer
		want string
	}{
		{Customer{FirstName: "Aziz", LastName: "Karimov"}, "Aziz Karimov"},
		{Customer{FirstName: "Aziz"}, "Aziz"},
		{Customer{Phone: "+998901234567"}, "+998901234567"},
	}
	for _, tt := range tests {
		if got := tt.c.FullName(); got != tt.want {
			t.Errorf("FullName() = %q, want %q", got, tt.want)
		}
	}
}
