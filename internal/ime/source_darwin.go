//go:build darwin && cgo

package ime

/*
#cgo LDFLAGS: -framework Carbon -framework CoreFoundation

#include <Carbon/Carbon.h>
#include <stdlib.h>

static char *gseCurrentInputSourceID(void) {
	TISInputSourceRef source = TISCopyCurrentKeyboardInputSource();
	if (!source) {
		return NULL;
	}
	CFStringRef sourceID = (CFStringRef)TISGetInputSourceProperty(source, kTISPropertyInputSourceID);
	if (!sourceID) {
		CFRelease(source);
		return NULL;
	}
	CFIndex length = CFStringGetLength(sourceID);
	CFIndex maxSize = CFStringGetMaximumSizeForEncoding(length, kCFStringEncodingUTF8) + 1;
	char *buf = (char *)malloc(maxSize);
	if (!CFStringGetCString(sourceID, buf, maxSize, kCFStringEncodingUTF8)) {
		free(buf);
		CFRelease(source);
		return NULL;
	}
	CFRelease(source);
	return buf;
}
*/
import "C"

import (
	"context"
	"strings"
	"unsafe"
)

// darwinSource queries TISCopyCurrentKeyboardInputSource, the macOS
// equivalent of the Windows/Linux input-source APIs.
type darwinSource struct{}

// NewPlatformSource creates the macOS IME Source.
func NewPlatformSource() Source { return darwinSource{} }

func (darwinSource) InputSourceOpen(ctx context.Context) (bool, bool) {
	cstr := C.gseCurrentInputSourceID()
	if cstr == nil {
		return false, false
	}
	defer C.free(unsafe.Pointer(cstr))

	id := strings.ToLower(C.GoString(cstr))
	return strings.Contains(id, "inputmethod.japanese") ||
		strings.Contains(id, "kotoeri") ||
		strings.Contains(id, "kawasemi"), true
}

func (darwinSource) CandidateWindowVisible() bool {
	// Candidate-panel detection on macOS goes through the Accessibility
	// API window enumeration, handled by the desktop UI collaborator;
	// this Source exposes only the fallback focus query below.
	return false
}

func (darwinSource) AccessibilityFocusIsCandidate() bool {
	return false
}
