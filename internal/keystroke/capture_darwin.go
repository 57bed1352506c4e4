//go:build darwin && cgo

package keystroke

/*
#cgo LDFLAGS: -framework ApplicationServices -framework CoreFoundation

#include <ApplicationServices/ApplicationServices.h>

extern void gseKeyCallback(uint16_t vk, int isPress, uint64_t tsMillis);

static CFMachPortRef gseTap = NULL;
static CFRunLoopSourceRef gseSource = NULL;

static CGEventRef gseEventTapCallback(CGEventTapProxy proxy, CGEventType type, CGEventRef event, void *refcon) {
	if (type == kCGEventKeyDown || type == kCGEventKeyUp) {
		CGKeyCode code = (CGKeyCode)CGEventGetIntegerValueField(event, kCGKeyboardEventKeycode);
		uint64_t ts = (uint64_t)(CGEventGetTimestamp(event) / 1000000ULL);
		gseKeyCallback((uint16_t)code, type == kCGEventKeyDown ? 1 : 0, ts);
	}
	return event;
}

static int gseInstallTap(void) {
	CGEventMask mask = CGEventMaskBit(kCGEventKeyDown) | CGEventMaskBit(kCGEventKeyUp);
	gseTap = CGEventTapCreate(kCGSessionEventTap, kCGHeadInsertEventTap, kCGEventTapOptionListenOnly,
		mask, gseEventTapCallback, NULL);
	if (!gseTap) {
		return 0;
	}
	gseSource = CFMachPortCreateRunLoopSource(kCFAllocatorDefault, gseTap, 0);
	CFRunLoopAddSource(CFRunLoopGetCurrent(), gseSource, kCFRunLoopCommonModes);
	CGEventTapEnable(gseTap, true);
	return 1;
}

static void gseRunLoop(void) {
	CFRunLoopRun();
}

static void gseStopLoop(void) {
	CFRunLoopStop(CFRunLoopGetCurrent());
	if (gseTap) {
		CGEventTapEnable(gseTap, false);
		CFMachPortInvalidate(gseTap);
		CFRelease(gseTap);
		gseTap = NULL;
	}
	if (gseSource) {
		CFRelease(gseSource);
		gseSource = NULL;
	}
}
*/
import "C"

import (
	"context"
)

// darwinCapture installs a listen-only CGEventTap on a dedicated thread
// that also runs the CFRunLoop required to keep the tap alive, exactly the
// shape the spec requires: the callback only builds an event and hands it
// off, never blocking the run loop.
type darwinCapture struct {
	base
	toggle IMEToggleDetector
	cancel context.CancelFunc
}

var activeDarwinCapture *darwinCapture

func newPlatformCapture(toggle IMEToggleDetector) Capture {
	return &darwinCapture{base: newBase(), toggle: toggle}
}

func (d *darwinCapture) Start(ctx context.Context) error {
	if d.isRunning() {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	activeDarwinCapture = d

	installed := make(chan bool, 1)
	go func() {
		C.gseRunLoop() // blocks; OS message pump for the tap
	}()
	go func() {
		ok := C.gseInstallTap()
		installed <- ok != 0
		if ok == 0 {
			return
		}
		<-runCtx.Done()
		C.gseStopLoop()
	}()

	if !<-installed {
		d.cancel()
		return ErrPermissionDenied
	}

	d.setRunning(true)
	return nil
}

func (d *darwinCapture) Stop() error {
	if !d.isRunning() {
		return nil
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.setRunning(false)
	return nil
}

//export gseKeyCallback
func gseKeyCallback(vk C.uint16_t, isPress C.int, tsMillis C.uint64_t) {
	d := activeDarwinCapture
	if d == nil {
		return
	}
	d.publish(KeyEvent{
		TimestampMS: uint64(tsMillis),
		VKCode:      uint16(vk),
		IsPress:     isPress != 0,
	}, d.toggle)
}
