//go:build windows && cgo

package keystroke

/*
#cgo LDFLAGS: -luser32

#include <windows.h>
#include <stdint.h>

extern void gseKeyCallback(uint16_t vk, int isPress, uint64_t tsMillis);

static HHOOK gseHook = NULL;
static DWORD gseThreadId = 0;

static LRESULT CALLBACK gseLowLevelProc(int nCode, WPARAM wParam, LPARAM lParam) {
	if (nCode == HC_ACTION) {
		KBDLLHOOKSTRUCT *kb = (KBDLLHOOKSTRUCT *)lParam;
		int isPress = (wParam == WM_KEYDOWN || wParam == WM_SYSKEYDOWN) ? 1 : 0;
		gseKeyCallback((uint16_t)kb->vkCode, isPress, (uint64_t)kb->time);
	}
	return CallNextHookEx(gseHook, nCode, wParam, lParam);
}

static int gseInstallHook(void) {
	gseThreadId = GetCurrentThreadId();
	gseHook = SetWindowsHookExW(WH_KEYBOARD_LL, gseLowLevelProc, GetModuleHandleW(NULL), 0);
	return gseHook != NULL;
}

// gsePumpMessages runs the message loop the low-level hook requires to
// keep delivering callbacks; it blocks until gseStopPump posts WM_QUIT.
static void gsePumpMessages(void) {
	MSG msg;
	while (GetMessageW(&msg, NULL, 0, 0) > 0) {
		TranslateMessage(&msg);
		DispatchMessageW(&msg);
	}
}

static void gseStopPump(void) {
	if (gseHook) {
		UnhookWindowsHookEx(gseHook);
		gseHook = NULL;
	}
	if (gseThreadId) {
		PostThreadMessageW(gseThreadId, WM_QUIT, 0, 0);
	}
}
*/
import "C"

import (
	"context"
	"runtime"
)

// windowsCapture installs a WH_KEYBOARD_LL hook on a dedicated thread that
// also pumps the message loop the hook needs to stay alive.
type windowsCapture struct {
	base
	toggle IMEToggleDetector
	cancel context.CancelFunc
}

var activeWindowsCapture *windowsCapture

func newPlatformCapture(toggle IMEToggleDetector) Capture {
	return &windowsCapture{base: newBase(), toggle: toggle}
}

func (w *windowsCapture) Start(ctx context.Context) error {
	if w.isRunning() {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	activeWindowsCapture = w

	installed := make(chan bool, 1)
	go func() {
		runtime.LockOSThread()
		ok := C.gseInstallHook()
		installed <- ok != 0
		if ok == 0 {
			return
		}
		C.gsePumpMessages()
	}()

	if !<-installed {
		return ErrPermissionDenied
	}

	w.setRunning(true)

	go func() {
		<-runCtx.Done()
		C.gseStopPump()
	}()

	return nil
}

func (w *windowsCapture) Stop() error {
	if !w.isRunning() {
		return nil
	}
	if w.cancel != nil {
		w.cancel()
	}
	w.setRunning(false)
	return nil
}

//export gseKeyCallback
func gseKeyCallback(vk C.uint16_t, isPress C.int, tsMillis C.uint64_t) {
	w := activeWindowsCapture
	if w == nil {
		return
	}
	w.publish(KeyEvent{
		TimestampMS: uint64(tsMillis),
		VKCode:      uint16(vk),
		IsPress:     isPress != 0,
	}, w.toggle)
}
