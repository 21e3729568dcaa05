//go:build !unix

package privilege

// Elevated always reports false on platforms with no meaningful concept of
// a root euid.
func Elevated() bool {
	return false
}
