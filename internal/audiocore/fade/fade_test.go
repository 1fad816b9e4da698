package fade

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWetMix_StepsTowardTarget(t *testing.T) {
	t.Parallel()

	w := NewWetMix(0)
	steps := int(math.Ceil(1.0 / WetMixStep))
	for i := 0; i < steps; i++ {
		w.Step(1.0)
	}
	assert.True(t, w.AtTarget(1.0))
	assert.InDelta(t, 1.0, w.Level(), 1e-9)
}

func TestWetMix_ReversesDirection(t *testing.T) {
	t.Parallel()

	w := NewWetMix(0)
	w.Step(1.0)
	level1 := w.Level()
	assert.Greater(t, level1, 0.0)

	w.Step(0.0)
	assert.Less(t, w.Level(), level1)
}

func TestRamp_ReachesOneAfterRampSamples(t *testing.T) {
	t.Parallel()

	r := NewRamp()
	r.Start()
	assert.True(t, r.Active())

	var last float64
	for i := 0; i < RampSamples; i++ {
		last = r.Next()
	}
	assert.InDelta(t, 1.0, last, 1e-9)
	assert.False(t, r.Active())
}

func TestCrossfade_EqualPowerCurves(t *testing.T) {
	t.Parallel()

	c := NewCrossfade()
	c.Start()
	gOld, gNew := c.Next()
	assert.InDelta(t, 1.0, gOld, 1e-9)
	assert.InDelta(t, 0.0, gNew, 1e-9)

	for i := 1; i < CrossfadeSamples; i++ {
		gOld, gNew = c.Next()
	}
	// last sample before completion: t close to 1
	assert.InDelta(t, 1.0, gOld*gOld+gNew*gNew, 0.05)
}

func TestEnvelope_FadeOutThenWarmupThenFadeIn(t *testing.T) {
	t.Parallel()

	e := NewEnvelope()
	warmup := 2*RampSamples + 10
	e.Begin(warmup)

	flipped := false
	var last float64
	total := 0
	for e.Stage() != StageIdle || total == 0 {
		g, flip, done := e.Next()
		last = g
		total++
		if flip {
			flipped = true
		}
		if done {
			break
		}
		if total > warmup+RampSamples+10 {
			t.Fatal("envelope never completed")
		}
	}
	assert.True(t, flipped)
	assert.InDelta(t, 1.0, last, 1e-6)
	assert.Equal(t, StageIdle, e.Stage())
}
