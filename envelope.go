// envelope.go - frequency and volume envelope pipelines.

package main

// envelopeStep holds one decoded (duration, rate) or loop pair read from an
// envelope table.
type envelopeStep struct {
	isLoop    bool
	duration  uint8
	rate      int8
	loopCount uint8
	backOffset uint8
}

// freqShapeTable and volShapeTable are the shared shape tables: a multiplier
// table (terminated by 0xFF) for the frequency envelope, and a
// distortion-mask table for the volume envelope.
var freqShapeTable = [16]uint8{1, 2, 4, 8, 1, 2, 4, 8, 1, 1, 1, 1, 1, 1, 1, 0xFF}
var volShapeTable = [16]uint8{0xF0, 0xE0, 0xD0, 0xC0, 0xB0, 0xA0, 0x90, 0x80, 0x70, 0x60, 0x50, 0x40, 0x30, 0x20, 0x10, 0x00}

// stepFrequencyEnvelope advances ch's 24-bit frequency accumulator by one
// tick, reading a new (duration, rate) pair from ROM when the previous one
// has expired.
func (e *Engine) stepFrequencyEnvelope(ch *channel) {
	if ch.freqEnvDone || ch.freqEnvPtr == 0 {
		return
	}

	if ch.freqEnvFrame == 0 {
		step, ok := e.readEnvelopeStep(ch.freqEnvPtr, &ch.freqEnvPos)
		if !ok {
			ch.freqEnvDone = true
			return
		}
		if step.isLoop {
			if ch.freqLoopCount == 0 {
				ch.freqLoopCount = step.loopCount
			}
			if ch.freqLoopCount == 0 {
				ch.freqEnvDone = true
				return
			}
			ch.freqLoopCount--
			ch.freqEnvPos -= uint16(step.backOffset)
			step, ok = e.readEnvelopeStep(ch.freqEnvPtr, &ch.freqEnvPos)
			if !ok {
				ch.freqEnvDone = true
				return
			}
		}
		ch.freqEnvFrame = uint16(step.duration)
		ch.freqEnvRate = uint16(uint8(step.rate))
		ch.distShapeIdx = ch.distShapeIdx // shape index unaffected by frequency envelope
	}

	shape := freqShapeTable[ch.distShapeIdx&0x0F]
	if shape == 0xFF {
		ch.freqEnvDone = true
		return
	}
	rate := int32(int8(ch.freqEnvRate)) * int32(shape)
	ch.freqAccum += rate
	if ch.freqEnvFrame > 0 {
		ch.freqEnvFrame--
	}
}

// readEnvelopeStep decodes one (duration, rate) pair, or a loop marker
// (0xFF, loopCount, backOffset), from the envelope table at ptr+*pos,
// advancing *pos. Returns ok=false on an out-of-bounds read.
func (e *Engine) readEnvelopeStep(ptr uint16, pos *uint16) (envelopeStep, bool) {
	base := int(romBase) + int(ptr) + int(*pos)
	b0, err := e.rom.readByte(base)
	if err != nil {
		return envelopeStep{}, false
	}
	if b0 == 0xFF {
		loopCount, err1 := e.rom.readByte(base + 1)
		backOffset, err2 := e.rom.readByte(base + 2)
		if err1 != nil || err2 != nil {
			return envelopeStep{}, false
		}
		*pos += 3
		return envelopeStep{isLoop: true, loopCount: loopCount, backOffset: backOffset}, true
	}
	rate, err := e.rom.readByte(base + 1)
	if err != nil {
		return envelopeStep{}, false
	}
	*pos += 2
	return envelopeStep{duration: b0, rate: int8(rate)}, true
}

// fadeDecayRate is the canonical fade-out decay rate: a fixed per-tick rate
// applied directly to volModAccum instead of a byte read from a ROM
// envelope table, so every fade ramps to silence over the same span
// regardless of whatever envelope happened to be playing when the fade was
// installed.
const fadeDecayRate = -0x300

// stepVolumeEnvelope advances ch's volume envelope by one tick, producing
// the control byte (0..15 clamped, ORed with the distortion mask) that the
// chip writers consume. When ch.fading is set, it ignores the ROM table
// entirely and decays volModAccum at fadeDecayRate; volEnvDone is set once
// the resulting level reaches 0, and the tick loop terminates the channel
// on that transition.
func (e *Engine) stepVolumeEnvelope(ch *channel) uint8 {
	switch {
	case ch.fading:
		if !ch.volEnvDone {
			sum := int32(ch.volModAccum) + fadeDecayRate
			if sum < -0x8000 {
				sum = -0x8000
			}
			ch.volModAccum = int16(sum)
		}
	case !ch.volEnvDone && ch.volEnvPtr != 0:
		b, err := e.rom.readByte(int(romBase) + int(ch.volEnvPtr) + int(ch.volEnvPos))
		if err != nil || b == 0xFF {
			ch.volEnvDone = true
		} else {
			ch.volEnvPos++
			sum := int16(ch.volModAccum) + int16(b)
			if sum > 0x7FFF {
				sum = 0x7FFF
			} else if sum < -0x8000 {
				sum = -0x8000
			}
			ch.volModAccum = sum
		}
	}

	shapeByte := volShapeTable[ch.distShapeIdx&0x0F]
	level := (int16(ch.volModAccum) + int16(shapeByte)) >> 4
	if level < 0 {
		level = 0
	} else if level > 15 {
		level = 15
	}
	if ch.fading && level == 0 {
		ch.volEnvDone = true
	}
	return uint8(level) | ch.distortionMask
}
