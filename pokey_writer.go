// pokey_writer.go - POKEY register image to DSP backend mapping.
//
// Grounded in the source's POKEYEngine register-translation logic (base
// clock selection, 16-bit channel linking, distortion-to-waveform mapping),
// adapted from the deleted SAP/CPU-era indirection layer to write directly
// into audio_chip.go's four fixed-waveform voices. Voice 0 is always
// square, 1 triangle, 2 sine, 3 noise (see NewSoundChip); a POKEY channel
// requesting a noise distortion mode on a non-noise voice falls back to a
// duty-modulated square approximation rather than stealing voice 3 - a
// deliberate simplification of the original chip's fully independent
// per-channel distortion selection (see DESIGN.md).
package main

// pokeyWriter implements PSGSink by mirroring a 9-register POKEY image and
// resyncing the DSP backend's four voices on every write.
type pokeyWriter struct {
	chip    *SoundChip
	regs    [POKEY_REG_COUNT]uint8
	clockHz uint32
}

func newPokeyWriter(chip *SoundChip) *pokeyWriter {
	return &pokeyWriter{chip: chip, clockHz: POKEY_CLOCK_NTSC}
}

var voiceRegBase = [4]struct{ freq, vol, ctrl, atk, dec, sus, rel uint32 }{
	{SQUARE_FREQ, SQUARE_VOL, SQUARE_CTRL, SQUARE_ATK, SQUARE_DEC, SQUARE_SUS, SQUARE_REL},
	{TRI_FREQ, TRI_VOL, TRI_CTRL, TRI_ATK, TRI_DEC, TRI_SUS, TRI_REL},
	{SINE_FREQ, SINE_VOL, SINE_CTRL, SINE_ATK, SINE_DEC, SINE_SUS, SINE_REL},
	{NOISE_FREQ, NOISE_VOL, NOISE_CTRL, NOISE_ATK, NOISE_DEC, NOISE_SUS, NOISE_REL},
}

// WritePSG stores reg (0..8: AUDF1..AUDF4, AUDC1..AUDC4, AUDCTL) and
// resyncs every voice - a single write can change a 16-bit-linked pair's
// effective frequency, so the whole image is recomputed each time.
func (w *pokeyWriter) WritePSG(reg uint8, value uint8) {
	if int(reg) >= len(w.regs) {
		return
	}
	w.regs[reg] = value
	w.sync()
}

func (w *pokeyWriter) sync() {
	if w.chip == nil {
		return
	}
	audctl := w.regs[8]

	for v := 0; v < 4; v++ {
		audf := w.regs[v*2]
		audc := w.regs[v*2+1]

		freq := w.voiceFrequency(v, audctl)
		vb := voiceRegBase[v]

		if (v == 1 && audctl&AUDCTL_CH2_BY_CH1 != 0) || (v == 3 && audctl&AUDCTL_CH4_BY_CH3 != 0) {
			w.chip.HandleRegisterWrite(vb.vol, 0)
			continue
		}

		if freq > 0 && freq <= 20000 {
			w.chip.HandleRegisterWrite(vb.freq, uint32(freq*256))
		} else {
			w.chip.HandleRegisterWrite(vb.freq, 0)
		}

		level := audc & AUDC_VOLUME_MASK
		w.chip.HandleRegisterWrite(vb.vol, uint32(level)*17) // 0..15 -> 0..255

		gate := uint32(0)
		if audf != 0 && level != 0 {
			gate = 2 // bit1 = gate, matches audio_chip.go's CTRL decode
		}
		w.chip.HandleRegisterWrite(vb.ctrl, gate|1)

		w.chip.HandleRegisterWrite(vb.atk, 0)
		w.chip.HandleRegisterWrite(vb.dec, 0)
		w.chip.HandleRegisterWrite(vb.sus, 255)
		w.chip.HandleRegisterWrite(vb.rel, 1)

		if v == 3 {
			distortion := (audc & AUDC_DISTORTION_MASK) >> AUDC_DISTORTION_SHIFT
			w.chip.HandleRegisterWrite(NOISE_MODE, uint32(w.noiseMode(distortion)))
		}
	}
}

func (w *pokeyWriter) noiseMode(distortion uint8) int {
	switch distortion {
	case POKEY_DIST_POLY5, POKEY_DIST_POLY5_POLY4:
		return NOISE_MODE_PERIODIC
	case POKEY_DIST_POLY4:
		return NOISE_MODE_METALLIC
	default:
		return NOISE_MODE_WHITE
	}
}

// voiceFrequency computes the output frequency in Hz for POKEY voice v,
// honoring the 15kHz/64kHz/1.79MHz base-clock selects and the two 16-bit
// channel-linking modes.
func (w *pokeyWriter) voiceFrequency(v int, audctl uint8) float64 {
	audf := w.regs[v*2]

	baseClockFor := func(highClockBit uint8) float64 {
		switch {
		case audctl&highClockBit != 0:
			return float64(w.clockHz)
		case audctl&AUDCTL_CLOCK_15KHZ != 0:
			return float64(w.clockHz) / POKEY_DIV_15KHZ
		default:
			return float64(w.clockHz) / POKEY_DIV_64KHZ
		}
	}

	switch v {
	case 1:
		if audctl&AUDCTL_CH2_BY_CH1 != 0 {
			period := uint16(w.regs[0]) | uint16(audf)<<8
			if period == 0 {
				return 0
			}
			return baseClockFor(AUDCTL_CH1_179MHZ) / (2.0 * float64(period+1))
		}
	case 3:
		if audctl&AUDCTL_CH4_BY_CH3 != 0 {
			period := uint16(w.regs[4]) | uint16(audf)<<8
			if period == 0 {
				return 0
			}
			return baseClockFor(AUDCTL_CH3_179MHZ) / (2.0 * float64(period+1))
		}
	}

	var base float64
	switch v {
	case 0:
		base = baseClockFor(AUDCTL_CH1_179MHZ)
	case 2:
		base = baseClockFor(AUDCTL_CH3_179MHZ)
	default:
		base = baseClockFor(0)
	}
	if audf == 0 {
		return 0
	}
	return base / (2.0 * float64(audf+1))
}
