//go:build windows

package eventsource

import (
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/lanternops/display-helper-core/internal/backend"
)

// pollInterval bounds how quickly a hotplug/mode change is observed.
// RegisterDeviceNotification + a message-only window would be event
// driven, but needs a full window-proc/message-loop plumbed through a
// syscall.NewCallback; a short poll of EnumDisplayDevicesW is the
// pragmatic equivalent for an out-of-scope OS collaborator.
const pollInterval = 2 * time.Second

var (
	user32                 = windows.NewLazySystemDLL("user32.dll")
	procEnumDisplayDevices = user32.NewProc("EnumDisplayDevicesW")
)

// displayDeviceW mirrors DISPLAY_DEVICEW (winuser.h); only the fields
// this poller reads are given meaningful names.
type displayDeviceW struct {
	cb           uint32
	deviceName   [32]uint16
	deviceString [128]uint16
	stateFlags   uint32
	deviceID     [128]uint16
	deviceKey    [128]uint16
}

const displayDeviceAttachedToDesktop = 0x00000001

// WindowsEventSource polls EnumDisplayDevicesW for connector
// arrival/removal and surfaces every change as a DisplayEvent.
type WindowsEventSource struct {
	events chan backend.DisplayEvent
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWindowsEventSource starts the poller immediately.
func NewWindowsEventSource() *WindowsEventSource {
	s := &WindowsEventSource{
		events: make(chan backend.DisplayEvent, 16),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *WindowsEventSource) run() {
	defer close(s.doneCh)
	defer close(s.events)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	prev := enumerateAttachedDevices()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			cur := enumerateAttachedDevices()
			kind, changed := diffAttachedDevices(prev, cur)
			prev = cur
			if !changed {
				continue
			}
			select {
			case s.events <- backend.DisplayEvent{Kind: kind}:
			default:
				log.Warn("event channel full, dropping display change")
			}
		}
	}
}

func (s *WindowsEventSource) Events() <-chan backend.DisplayEvent {
	return s.events
}

func (s *WindowsEventSource) Close() error {
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	<-s.doneCh
	return nil
}

func enumerateAttachedDevices() map[string]struct{} {
	attached := make(map[string]struct{})
	for i := uint32(0); ; i++ {
		var dd displayDeviceW
		dd.cb = uint32(unsafe.Sizeof(dd))
		ret, _, _ := procEnumDisplayDevices.Call(0, uintptr(i), uintptr(unsafe.Pointer(&dd)), 0)
		if ret == 0 {
			break
		}
		if dd.stateFlags&displayDeviceAttachedToDesktop == 0 {
			continue
		}
		attached[windows.UTF16ToString(dd.deviceName[:])] = struct{}{}
	}
	return attached
}

// diffAttachedDevices reports the first change it finds between two
// enumerations; a full reconciliation isn't needed, only a trigger. Mode
// changes on an already-attached connector aren't visible to this
// enumeration and are left to the real OS collaborator.
func diffAttachedDevices(prev, cur map[string]struct{}) (backend.DisplayEventKind, bool) {
	for id := range cur {
		if _, ok := prev[id]; !ok {
			return backend.EventDeviceArrival, true
		}
	}
	for id := range prev {
		if _, ok := cur[id]; !ok {
			return backend.EventDeviceRemoval, true
		}
	}
	return backend.EventDeviceArrival, false
}
