//go:build !darwin

package screenshot

// Permitted reports whether the process may record the screen.
func Permitted() bool { return true }

// RequestPermission is a no-op where no permission is needed.
func RequestPermission() {}
