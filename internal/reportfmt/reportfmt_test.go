package reportfmt

import "testing"

func TestSizeShorthand(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0B"},
		{1, "+1B"},
		{-1, "-1B"},
		{1023, "+1023B"},
		{1024, "+1K"},
		{1 << 20, "+1M"},
		{1 << 30, "+1G"},
		{1 << 40, "+1T"},
		{1 << 50, "+1P"},
		{-(1 << 20), "-1M"},
		{3 * (1 << 20), "+3M"},
		{(1 << 20) - 1, "+1023K"},
	}
	for _, c := range cases {
		if got := SizeShorthand(c.in); got != c.want {
			t.Errorf("SizeShorthand(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}
