//go:build windows

// Package windows is a reference, partial DisplayBackend built on WMI
// (Win32_PnPEntity/Win32_VideoController) device enumeration via go-ole.
// It demonstrates how a real Windows implementation would source
// AvailableDevices; the mode-set/topology/HDR operations that require
// SetDisplayConfig/QueryDisplayConfig interop are not implemented in this
// package; that Win32 surface is not exercised through COM and belongs behind
// golang.org/x/sys/windows syscalls instead.
package windows

import (
	"context"
	"fmt"
	"runtime"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// WMIDeviceEnumerator queries the video-controller PnP entities visible
// to WMI, used to ground DisplayBackend.AvailableDevices on Windows.
type WMIDeviceEnumerator struct{}

// NewWMIDeviceEnumerator builds an enumerator. Each call opens and tears
// down its own COM session; this type holds no persistent state.
func NewWMIDeviceEnumerator() *WMIDeviceEnumerator {
	return &WMIDeviceEnumerator{}
}

// VideoController is one Win32_VideoController row relevant to device
// availability.
type VideoController struct {
	PNPDeviceID string
	Name        string
	Status      string
}

// EnumerateVideoControllers returns every Win32_VideoController the WMI
// repository currently reports.
func (e *WMIDeviceEnumerator) EnumerateVideoControllers(ctx context.Context) ([]VideoController, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		return nil, fmt.Errorf("wmi: CoInitializeEx: %w", err)
	}
	defer ole.CoUninitialize()

	unknown, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		return nil, fmt.Errorf("wmi: create SWbemLocator: %w", err)
	}
	defer unknown.Release()

	locator, err := unknown.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		return nil, fmt.Errorf("wmi: query IDispatch: %w", err)
	}
	defer locator.Release()

	serviceVar, err := oleutil.CallMethod(locator, "ConnectServer")
	if err != nil {
		return nil, fmt.Errorf("wmi: ConnectServer: %w", err)
	}
	defer serviceVar.Clear()
	service := serviceVar.ToIDispatch()
	defer service.Release()

	resultVar, err := oleutil.CallMethod(service, "ExecQuery", "SELECT * FROM Win32_VideoController")
	if err != nil {
		return nil, fmt.Errorf("wmi: ExecQuery: %w", err)
	}
	defer resultVar.Clear()
	result := resultVar.ToIDispatch()
	defer result.Release()

	countVar, err := oleutil.GetProperty(result, "Count")
	if err != nil {
		return nil, fmt.Errorf("wmi: Count: %w", err)
	}
	count := int(countVar.Val)

	var controllers []VideoController
	for i := 0; i < count; i++ {
		itemVar, err := oleutil.CallMethod(result, "ItemIndex", i)
		if err != nil {
			continue
		}
		item := itemVar.ToIDispatch()

		pnpID, _ := oleutil.GetProperty(item, "PNPDeviceID")
		name, _ := oleutil.GetProperty(item, "Name")
		status, _ := oleutil.GetProperty(item, "Status")

		controllers = append(controllers, VideoController{
			PNPDeviceID: variantString(pnpID),
			Name:        variantString(name),
			Status:      variantString(status),
		})
		item.Release()
		itemVar.Clear()
	}

	return controllers, nil
}

func variantString(v *ole.VARIANT) string {
	if v == nil {
		return ""
	}
	defer v.Clear()
	if s, ok := v.Value().(string); ok {
		return s
	}
	return ""
}
