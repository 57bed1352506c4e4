//go:build windows

package ime

import (
	"context"
	"syscall"
	"unsafe"
)

var (
	modimm32             = syscall.NewLazyDLL("imm32.dll")
	procImmGetContext     = modimm32.NewProc("ImmGetContext")
	procImmGetConversion  = modimm32.NewProc("ImmGetConversionStatus")
	modkernel32           = syscall.NewLazyDLL("kernel32.dll")
	procGetKeyboardLayout = syscall.NewLazyDLL("user32.dll").NewProc("GetKeyboardLayout")
)

// windowsSource queries the IMM32 conversion status for the foreground
// thread's input context, the Windows analogue of the input-source APIs
// used on macOS/Linux.
type windowsSource struct{}

// NewPlatformSource creates the Windows IME Source.
func NewPlatformSource() Source { return windowsSource{} }

func (windowsSource) InputSourceOpen(ctx context.Context) (bool, bool) {
	hwnd, _, _ := syscall.NewLazyDLL("user32.dll").NewProc("GetForegroundWindow").Call()
	if hwnd == 0 {
		return false, false
	}

	himc, _, _ := procImmGetContext.Call(hwnd)
	if himc == 0 {
		return false, true // no IME context: definitely not composing
	}

	var conversion, sentence uint32
	ret, _, _ := procImmGetConversion.Call(himc, uintptr(unsafe.Pointer(&conversion)), uintptr(unsafe.Pointer(&sentence)))
	if ret == 0 {
		return false, false
	}

	const imeCModeNative = 0x1
	return conversion&imeCModeNative != 0, true
}

func (windowsSource) CandidateWindowVisible() bool {
	// The IME candidate list window class ("MSCTFIME UI" / "CandidateWnd")
	// is enumerated by the desktop UI collaborator via EnumWindows; this
	// Source exposes only the accessibility fallback below.
	return false
}

func (windowsSource) AccessibilityFocusIsCandidate() bool {
	return false
}
