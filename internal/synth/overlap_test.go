package synth

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/audio"
	"git.mci.dev/mse/sre/phoenix/golang/kamino/internal/corpus"
)

func TestOverlapDurationClamping(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	inj := NewInjector(nil, rng, 30, 0.7)

	tenSeconds := audio.Samples(10)

	// 30% of 10 s is 3 s, exactly the upper clamp.
	require.Equal(t, audio.Samples(3.0), inj.overlapDuration(tenSeconds))

	// 30% of 1 s is 0.3 s, pulled up to the lower clamp.
	require.Equal(t, audio.Samples(0.5), inj.overlapDuration(audio.Samples(1.0)))

	// 30% of 20 s is 6 s, pulled down to the upper clamp.
	require.Equal(t, audio.Samples(3.0), inj.overlapDuration(audio.Samples(20)))

	// Never longer than the main track itself.
	require.Equal(t, audio.Samples(0.25), inj.overlapDuration(audio.Samples(0.25)))
}

func TestOverlapDurationFullAtHundredPercent(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	inj := NewInjector(nil, rng, 100, 0.7)

	// At 100% the overlap always covers the whole main track, the clamp
	// window does not apply.
	require.Equal(t, audio.Samples(7.5), inj.overlapDuration(audio.Samples(7.5)))
	require.Equal(t, audio.Samples(0.1), inj.overlapDuration(audio.Samples(0.1)))
}

func TestInjectEventShape(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pool := seedPool(rng, 5, []float64{1.0}, []string{"hey"})

	inj := NewInjector(pool, rng, 30, 0.7)
	inj.LoadAudio = fakeLoad(0.2, 1.0)

	main := make([]float32, audio.Samples(2.0))

	events := inj.Inject(main)
	require.NotEmpty(t, events)
	require.LessOrEqual(t, len(events), MaxEventsPerExample)

	for _, ev := range events {
		// 30% of 2 s is 0.6 s, inside the clamp window; the mixed segment
		// must match that duration exactly.
		require.InDelta(t, 0.6, ev.End-ev.Start, 1e-9)
		require.GreaterOrEqual(t, ev.Start, 0.0)
		require.LessOrEqual(t, ev.End, 2.0)
		require.Equal(t, 0.7, ev.Amplitude)
		require.NotEmpty(t, ev.Speakers)
		require.NotEmpty(t, ev.Transcript)
	}
}

func TestInjectClipsAfterEveryEvent(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pool := seedPool(rng, 5, []float64{1.0}, []string{"loud"})

	inj := NewInjector(pool, rng, 100, 0.9)
	inj.LoadAudio = fakeLoad(1.0, 1.0)

	main := make([]float32, audio.Samples(2.0))
	for i := range main {
		main[i] = 0.8
	}

	events := inj.Inject(main)
	require.NotEmpty(t, events)

	// 0.8 + 0.9*1.0 far exceeds 1; every sample must be hard-limited.
	for i, s := range main {
		require.LessOrEqual(t, s, float32(1), "sample %d", i)
		require.GreaterOrEqual(t, s, float32(-1), "sample %d", i)
	}
}

func TestInjectSaturationPersistsAcrossEvents(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pool := seedPool(rng, 5, []float64{1.0}, []string{"hey"})

	inj := NewInjector(pool, rng, 100, 1.0)

	main := make([]float32, audio.Samples(2.0))
	for i := range main {
		main[i] = 0.5
	}

	// The first event saturates the whole track: 0.5 + 1.0 pins at 1.
	inj.LoadAudio = fakeLoad(1.0, 1.0)

	ev, err := inj.injectOne(main)
	require.NoError(t, err)
	require.NotNil(t, ev)

	for i, s := range main {
		require.Equal(t, float32(1), s, "sample %d", i)
	}

	// The second event subtracts from the clipped value, not from the raw
	// sum: 1 - 0.6 = 0.4. A single clip deferred to the end would instead
	// leave 0.5 + 1.0 - 0.6 = 0.9.
	inj.LoadAudio = fakeLoad(-0.6, 1.0)

	ev, err = inj.injectOne(main)
	require.NoError(t, err)
	require.NotNil(t, ev)

	for i, s := range main {
		require.InDelta(t, 0.4, float64(s), 1e-6, "sample %d", i)
	}
}

func TestInjectFullOverlapStartsAtZero(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	pool := seedPool(rng, 5, []float64{1.0}, []string{"hey"})

	inj := NewInjector(pool, rng, 100, 0.7)
	inj.LoadAudio = fakeLoad(0.2, 1.0)

	main := make([]float32, audio.Samples(2.0))

	events := inj.Inject(main)
	require.NotEmpty(t, events)

	for _, ev := range events {
		require.Equal(t, 0.0, ev.Start)
		require.InDelta(t, 2.0, ev.End, 1e-9)
	}
}

func TestInjectEarlyPlacement(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	pool := seedPool(rng, 5, []float64{1.0}, []string{"hey"})

	inj := NewInjector(pool, rng, 85, 0.7)
	inj.LoadAudio = fakeLoad(0.2, 1.0)

	mainLen := audio.Samples(10)
	main := make([]float32, mainLen)

	events := inj.Inject(main)
	require.NotEmpty(t, events)

	// 85% of 10 s clamps to 3 s; the start range shrinks to the first third
	// of [0, 7 s].
	maxStart := float64(mainLen-audio.Samples(3.0)) / 3 / audio.SampleRate

	for _, ev := range events {
		require.LessOrEqual(t, ev.Start, maxStart+1e-3)
	}
}

func TestInjectMixedValues(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	pool := seedPool(rng, 5, []float64{1.0}, []string{"hey"})

	inj := NewInjector(pool, rng, 100, 0.7)
	inj.LoadAudio = fakeLoad(0.4, 1.0)

	main := make([]float32, audio.Samples(2.0))
	for i := range main {
		main[i] = 0.5
	}

	events := inj.Inject(main)
	require.NotEmpty(t, events)

	// Every event covers the full track with a tiled 0.4 snippet at gain
	// 0.7, adding 0.28 and then hard-limiting.
	expected := float32(0.5)
	for range events {
		expected += 0.28
		if expected > 1 {
			expected = 1
		}
	}

	for i, s := range main {
		require.InDelta(t, float64(expected), float64(s), 1e-5, "sample %d", i)
	}
}

func TestInjectExhaustedPoolStops(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	pool := corpus.NewPool(rng)

	inj := NewInjector(pool, rng, 30, 0.7)
	inj.LoadAudio = fakeLoad(0.2, 1.0)

	events := inj.Inject(make([]float32, audio.Samples(2.0)))
	require.Empty(t, events)
}
