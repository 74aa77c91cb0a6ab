//go:build windows

package player

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	winmm              = windows.NewLazySystemDLL("winmm.dll")
	procMciSendStringW = winmm.NewProc("mciSendStringW")
)

// winmmSender calls mciSendStringW from winmm.dll
type winmmSender struct{}

func defaultMCISender() MCISender {
	return winmmSender{}
}

// SendString issues the command with a return buffer of bufferSize UTF-16
// units and no callback window
func (winmmSender) SendString(command string, bufferSize int) int {
	if err := procMciSendStringW.Find(); err != nil {
		return MCIUnavailable
	}

	cmd, err := windows.UTF16PtrFromString(command)
	if err != nil {
		return MCIInvalidCommand
	}

	buf := make([]uint16, bufferSize)
	ret, _, _ := procMciSendStringW.Call(
		uintptr(unsafe.Pointer(cmd)),
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(len(buf)),
		0,
	)
	return int(uint32(ret))
}
