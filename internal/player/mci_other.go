//go:build !windows

package player

// unavailableSender stands in for winmm on hosts that do not ship it
type unavailableSender struct{}

func defaultMCISender() MCISender {
	return unavailableSender{}
}

func (unavailableSender) SendString(command string, bufferSize int) int {
	return MCIUnavailable
}
