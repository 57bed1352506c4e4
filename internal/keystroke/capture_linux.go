//go:build linux

package keystroke

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// linuxCapture reads raw input_event records from /dev/input/event* devices.
// No cgo is needed: the kernel's evdev struct layout is stable and we decode
// it by hand.
type linuxCapture struct {
	base
	toggle  IMEToggleDetector
	cancel  context.CancelFunc
	devices []string
}

func newPlatformCapture(toggle IMEToggleDetector) Capture {
	return &linuxCapture{base: newBase(), toggle: toggle}
}

func findKeyboardDevices() ([]string, error) {
	var devices []string

	f, err := os.Open("/proc/bus/input/devices")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var currentHandler string
	isKeyboard := false

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "H: Handlers=") {
			for _, part := range strings.Fields(line) {
				if strings.HasPrefix(part, "event") {
					currentHandler = "/dev/input/" + part
				}
			}
		}
		if strings.HasPrefix(line, "B: KEY=") && len(line) > 10 {
			isKeyboard = true
		}
		if line == "" {
			if isKeyboard && currentHandler != "" {
				devices = append(devices, currentHandler)
			}
			currentHandler = ""
			isKeyboard = false
		}
	}

	matches, _ := filepath.Glob("/dev/input/by-id/*-kbd")
	devices = append(devices, matches...)
	return devices, nil
}

func (l *linuxCapture) available() ([]string, error) {
	devices, err := findKeyboardDevices()
	if err != nil {
		return nil, fmt.Errorf("keystroke: %w: %v", ErrNotAvailable, err)
	}
	if len(devices) == 0 {
		return nil, ErrNotAvailable
	}
	return devices, nil
}

func (l *linuxCapture) Start(ctx context.Context) error {
	if l.isRunning() {
		return ErrAlreadyRunning
	}

	devices, err := l.available()
	if err != nil {
		return ErrPermissionDenied
	}

	var f *os.File
	for _, dev := range devices {
		if f, err = os.OpenFile(dev, os.O_RDONLY, 0); err == nil {
			break
		}
	}
	if f == nil {
		return ErrPermissionDenied
	}

	runCtx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	l.devices = devices
	l.setRunning(true)

	go l.readLoop(runCtx, f)
	return nil
}

func (l *linuxCapture) Stop() error {
	if !l.isRunning() {
		return nil
	}
	if l.cancel != nil {
		l.cancel()
	}
	l.setRunning(false)
	return nil
}

// rawInputEvent matches struct input_event on 64-bit Linux.
type rawInputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

const evKey = 1

func (l *linuxCapture) readLoop(ctx context.Context, f *os.File) {
	defer f.Close()
	defer l.setRunning(false)

	eventSize := binary.Size(rawInputEvent{})
	buf := make([]byte, eventSize)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := f.Read(buf)
		if err != nil || n != eventSize {
			return
		}

		var ev rawInputEvent
		ev.Time.Sec = int64(binary.LittleEndian.Uint64(buf[0:8]))
		ev.Time.Usec = int64(binary.LittleEndian.Uint64(buf[8:16]))
		ev.Type = binary.LittleEndian.Uint16(buf[16:18])
		ev.Code = binary.LittleEndian.Uint16(buf[18:20])
		ev.Value = int32(binary.LittleEndian.Uint32(buf[20:24]))

		if ev.Type != evKey {
			continue
		}

		// evdev: value 1 = press, 2 = autorepeat, 0 = release.
		tsMS := uint64(ev.Time.Sec)*1000 + uint64(ev.Time.Usec)/1000
		l.publish(KeyEvent{
			TimestampMS: tsMS,
			VKCode:      ev.Code,
			IsPress:     ev.Value == 1,
		}, l.toggle)
	}
}
