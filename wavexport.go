// wavexport.go - non-realtime PCM render to a WAV file.
//
// Grounded on the go-audio/wav decoder usage already present in the pack
// (reading a .wav's FullPCMBuffer); here the same package's Encoder writes
// one instead. Rendering pulls samples directly from the chip rather than
// through the live-audio backend, so export works on a headless build with
// no sound device at all.

package main

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const wavBitDepth = 16

// RenderWAV runs the engine for the given duration, ticking it at the host
// rate while pulling rendered samples from its chip, and writes the result
// as a mono 16-bit PCM WAV file to w. tickHz is the host tick rate driving
// Engine.Tick; sampleRate is the chip's output rate.
func (e *Engine) RenderWAV(w io.WriteSeeker, seconds float64, tickHz, sampleRate int) error {
	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, 1, 1)

	totalSamples := int(seconds * float64(sampleRate))
	samplesPerTick := sampleRate / tickHz
	if samplesPerTick < 1 {
		samplesPerTick = 1
	}

	buf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:   make([]int, 0, samplesPerTick),
	}

	rendered := 0
	for rendered < totalSamples {
		// A pathological sequence on one channel (ErrFrameBudgetExceeded) is
		// already reflected in e.ErrorFlags(); rendering continues past it
		// exactly as the live backend would.
		_ = e.Tick()

		buf.Data = buf.Data[:0]
		n := samplesPerTick
		if rendered+n > totalSamples {
			n = totalSamples - rendered
		}
		for i := 0; i < n; i++ {
			sample := e.chip.ReadSample()
			buf.Data = append(buf.Data, int(sample*32767))
		}
		if err := enc.Write(buf); err != nil {
			return err
		}
		rendered += n
	}

	return enc.Close()
}
