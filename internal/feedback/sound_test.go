package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCueSamplesPresent(t *testing.T) {
	for _, kind := range []cueKind{cueThinking, cueSuccess, cueWarning, cueError} {
		require.NotEmpty(t, cueSamples(kind))
	}
	require.Empty(t, cueSamples(cueKind(99)))
}

func TestSynthesizeToneDuration(t *testing.T) {
	got := synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0.2})
	require.Len(t, got, samplesForDuration(100*time.Millisecond))
	require.Zero(t, got[0])
}

func TestSynthesizeToneInvalidSpecReturnsEmpty(t *testing.T) {
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 0, duration: 100 * time.Millisecond, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 0, volume: 0.2}))
	require.Empty(t, synthesizeTone(toneSpec{frequencyHz: 440, duration: 100 * time.Millisecond, volume: 0}))
}

func TestSynthesizeCueInsertsGaps(t *testing.T) {
	part := toneSpec{frequencyHz: 440, duration: 50 * time.Millisecond, volume: 0.2}
	got := synthesizeCue([]toneSpec{part, part})
	require.Len(t, got, 2*samplesForDuration(50*time.Millisecond)+samplesForDuration(22*time.Millisecond))
	require.Nil(t, synthesizeCue(nil))
}

func TestEmitCueRespectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := emitCue(ctx, cueSuccess)
	require.ErrorIs(t, err, context.Canceled)
}
