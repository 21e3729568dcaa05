//go:build unix

// Package privilege reports whether the current process is running with
// elevated (root) privileges, used to decide the su/ nesting of the state
// directory. Treated as an external collaborator's concern, so it's a thin
// stdlib check rather than anything from the domain stack.
package privilege

import "os"

// Elevated reports whether the effective user is root.
func Elevated() bool {
	return os.Geteuid() == 0
}
