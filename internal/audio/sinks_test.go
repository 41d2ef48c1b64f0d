package audio

import (
	"context"
	"reflect"
	"testing"

	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/stretchr/testify/require"
)

func TestPlaybackPrefersDefaultSink(t *testing.T) {
	devices := []Device{
		{ID: "hdmi", Description: "HDMI Output", Available: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true, Default: true},
	}

	pick, err := Playback(devices)
	require.NoError(t, err)
	require.Equal(t, "sony", pick.ID)
}

func TestPlaybackFallsBackToFirstSink(t *testing.T) {
	devices := []Device{
		{ID: "hdmi", Description: "HDMI Output", Available: true},
		{ID: "sony", Description: "Sony WH-1000XM6", Available: true},
	}

	pick, err := Playback(devices)
	require.NoError(t, err)
	require.Equal(t, "hdmi", pick.ID)
}

func TestPlaybackRejectsMutedDefault(t *testing.T) {
	devices := []Device{{ID: "sony", Description: "Sony WH-1000XM6", Available: true, Muted: true, Default: true}}

	pick, err := Playback(devices)
	require.Error(t, err)
	require.Contains(t, err.Error(), "muted")
	require.Contains(t, err.Error(), "Sony WH-1000XM6")
	require.Equal(t, "sony", pick.ID)
}

func TestPlaybackRejectsUnavailableSinkByID(t *testing.T) {
	devices := []Device{{ID: "alsa_output.hdmi", Default: true}}

	_, err := Playback(devices)
	require.Error(t, err)
	require.Contains(t, err.Error(), `"alsa_output.hdmi" is unavailable`)
}

func TestPlaybackWithoutSinks(t *testing.T) {
	_, err := Playback(nil)
	require.ErrorIs(t, err, ErrNoSink)
}

func TestListSinksFailsWhenPulseUnavailable(t *testing.T) {
	t.Setenv("PULSE_SERVER", "unix:/tmp/definitely-missing-pulse-server")
	_, err := ListSinks(context.Background())
	require.Error(t, err)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "running", stateString(0))
	require.Equal(t, "idle", stateString(1))
	require.Equal(t, "suspended", stateString(2))
	require.Equal(t, "unknown(99)", stateString(99))
}

func TestSinkAvailable(t *testing.T) {
	require.False(t, sinkAvailable(nil))
	require.True(t, sinkAvailable(&pulseproto.GetSinkInfoReply{}))

	plugged := &pulseproto.GetSinkInfoReply{ActivePortName: "headphones"}
	setSinkPorts(t, plugged, []sinkPort{{name: "speaker", available: 1}, {name: "headphones", available: 2}})
	require.True(t, sinkAvailable(plugged))

	unplugged := &pulseproto.GetSinkInfoReply{ActivePortName: "headphones"}
	setSinkPorts(t, unplugged, []sinkPort{{name: "headphones", available: 1}})
	require.False(t, sinkAvailable(unplugged))
}

type sinkPort struct {
	name      string
	available uint32
}

func setSinkPorts(t *testing.T, reply *pulseproto.GetSinkInfoReply, ports []sinkPort) {
	t.Helper()

	sliceType := reflect.TypeOf(reply.Ports)
	sliceValue := reflect.MakeSlice(sliceType, len(ports), len(ports))

	for i, port := range ports {
		item := sliceValue.Index(i)
		item.FieldByName("Name").SetString(port.name)
		item.FieldByName("Available").SetUint(uint64(port.available))
	}

	reflect.ValueOf(reply).Elem().FieldByName("Ports").Set(sliceValue)
}
