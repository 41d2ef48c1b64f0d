// Package audio discovers the PulseAudio output sinks feedback earcons play through.
package audio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
)

// Device describes one Pulse output sink.
type Device struct {
	ID          string
	Description string
	State       string
	Available   bool
	Muted       bool
	Default     bool
}

// ErrNoSink means the server reported no usable output sink.
var ErrNoSink = errors.New("no audio output sink")

// ListSinks returns Pulse output sinks with default/availability metadata.
func ListSinks(_ context.Context) ([]Device, error) {
	client, err := pulse.NewClient(
		pulse.ClientApplicationName("vocode"),
		pulse.ClientApplicationIconName("audio-speakers"),
	)
	if err != nil {
		return nil, fmt.Errorf("connect pulse server: %w", err)
	}
	defer client.Close()

	defaultSink, err := client.DefaultSink()
	if err != nil {
		return nil, fmt.Errorf("read default sink: %w", err)
	}
	defaultID := defaultSink.ID()

	var sinkInfos pulseproto.GetSinkInfoListReply
	if err := client.RawRequest(&pulseproto.GetSinkInfoList{}, &sinkInfos); err != nil {
		return nil, fmt.Errorf("list sinks: %w", err)
	}

	devices := make([]Device, 0, len(sinkInfos))
	for _, sink := range sinkInfos {
		if sink == nil {
			continue
		}
		devices = append(devices, Device{
			ID:          sink.SinkName,
			Description: sink.Device,
			State:       stateString(sink.State),
			Available:   sinkAvailable(sink),
			Muted:       sink.Mute,
			Default:     sink.SinkName == defaultID,
		})
	}
	return devices, nil
}

// Playback picks the sink cues will reach: the default sink, or the first sink when the
// server reports no default. A muted or unplugged pick is an error.
func Playback(devices []Device) (Device, error) {
	if len(devices) == 0 {
		return Device{}, ErrNoSink
	}
	pick := devices[0]
	for _, d := range devices {
		if d.Default {
			pick = d
			break
		}
	}
	switch {
	case pick.Muted:
		return pick, fmt.Errorf("sink %q is muted", label(pick))
	case !pick.Available:
		return pick, fmt.Errorf("sink %q is unavailable", label(pick))
	}
	return pick, nil
}

func label(d Device) string {
	if desc := strings.TrimSpace(d.Description); desc != "" {
		return desc
	}
	return d.ID
}

// stateString maps Pulse sink state constants to human-readable values.
func stateString(state uint32) string {
	switch state {
	case 0:
		return "running"
	case 1:
		return "idle"
	case 2:
		return "suspended"
	default:
		return fmt.Sprintf("unknown(%d)", state)
	}
}

// sinkAvailable maps Pulse port availability to a simple boolean.
func sinkAvailable(sink *pulseproto.GetSinkInfoReply) bool {
	if sink == nil {
		return false
	}
	if len(sink.Ports) == 0 {
		return true
	}
	for _, port := range sink.Ports {
		if port.Name != sink.ActivePortName {
			continue
		}
		// PulseAudio values: unknown=0, no=1, yes=2.
		return port.Available == 0 || port.Available == 2
	}
	return true
}
