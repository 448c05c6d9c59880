//go:build darwin

package screenshot

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework CoreGraphics
#import <CoreGraphics/CoreGraphics.h>

static bool screenCapturePermitted() {
    if (@available(macOS 11.0, *)) {
        return CGPreflightScreenCaptureAccess();
    }
    return true;
}

static void requestScreenCapture() {
    if (@available(macOS 11.0, *)) {
        CGRequestScreenCaptureAccess();
    }
}
*/
import "C"

// Permitted reports whether the process may record the screen.
func Permitted() bool {
	return bool(C.screenCapturePermitted())
}

// RequestPermission shows the system screen recording prompt.
func RequestPermission() {
	C.requestScreenCapture()
}
