package notify

import "testing"

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"0501234567", "972501234567"},
		{"050-123-4567", "972501234567"},
		{"050 123 4567", "972501234567"},
		{"+972501234567", "972501234567"},
		{"9720501234567", "972501234567"},
		{"(050) 1234567", "972501234567"},
		{"972501234567", "972501234567"},
		{"  0501234567  ", "972501234567"},
		{"", ""},
		// Non-Israeli numbers pass through with formatting stripped.
		{"+1 (212) 555-0100", "12125550100"},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
