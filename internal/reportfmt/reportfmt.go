// Package reportfmt renders byte deltas as signed, human-scaled shorthand
// ("+42K", "-1G", "0B") for report output.
package reportfmt

import "fmt"

var units = []struct {
	factor int64
	suffix string
}{
	{1 << 50, "P"},
	{1 << 40, "T"},
	{1 << 30, "G"},
	{1 << 20, "M"},
	{1 << 10, "K"},
}

// SizeShorthand renders n as a signed magnitude in the largest unit that
// doesn't exceed it, e.g. SizeShorthand(-1<<30) == "-1G". Zero is always
// "0B", with no sign.
func SizeShorthand(n int64) string {
	if n == 0 {
		return "0B"
	}
	sign := "+"
	abs := n
	if n < 0 {
		sign = "-"
		abs = -n
	}
	for _, u := range units {
		if abs >= u.factor {
			return fmt.Sprintf("%s%d%s", sign, abs/u.factor, u.suffix)
		}
	}
	return fmt.Sprintf("%s%dB", sign, abs)
}
