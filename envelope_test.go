// envelope_test.go - frequency and volume envelope stepping.

package main

import "testing"

func romWithBytes(at uint16, data ...uint8) *rom {
	buf := make([]byte, romSize)
	copy(buf[at:], data)
	return &rom{data: buf}
}

func TestStepVolumeEnvelopeAdvancesAndClamps(t *testing.T) {
	// buf[1]=5, buf[2]=5, buf[3]=0xFF; volEnvPtr=1 reads starting at offset 1.
	e := &Engine{rom: romWithBytes(0, 0, 5, 5, 0xFF)}
	ch := &channel{volEnvPtr: 1}

	e.stepVolumeEnvelope(ch) // pos 0 -> offset 1 -> 5
	if ch.volEnvDone {
		t.Fatal("envelope should not be done after one non-terminator byte")
	}

	e.stepVolumeEnvelope(ch) // pos 1 -> offset 2 -> 5
	if ch.volEnvDone {
		t.Fatal("envelope should not be done after two non-terminator bytes")
	}

	e.stepVolumeEnvelope(ch) // pos 2 -> offset 3 -> 0xFF terminator
	if !ch.volEnvDone {
		t.Fatal("expected volEnvDone after reading the 0xFF terminator")
	}
}

func TestStepVolumeEnvelopeZeroPointerIsNoop(t *testing.T) {
	e := &Engine{rom: romWithBytes(0)}
	ch := &channel{volEnvPtr: 0}
	level := e.stepVolumeEnvelope(ch)
	// With no envelope pointer, volModAccum stays 0 and only the shape
	// table (index 0 by default) and distortion mask contribute.
	want := uint8((int16(0)+int16(volShapeTable[0]))>>4) & 0x0F
	if level&0x0F != want {
		t.Errorf("level = %#x, want low nibble %#x", level, want)
	}
}

func TestStepFrequencyEnvelopeDoneWhenPtrZero(t *testing.T) {
	e := &Engine{rom: romWithBytes(0)}
	ch := &channel{freqEnvPtr: 0}
	before := ch.freqAccum
	e.stepFrequencyEnvelope(ch)
	if ch.freqAccum != before {
		t.Fatal("zero envelope pointer should leave the accumulator untouched")
	}
}

func TestReadEnvelopeStepDecodesLoopMarker(t *testing.T) {
	e := &Engine{rom: romWithBytes(0, 0xFF, 3, 2)}
	var pos uint16
	step, ok := e.readEnvelopeStep(0, &pos)
	if !ok {
		t.Fatal("expected a successful decode")
	}
	if !step.isLoop || step.loopCount != 3 || step.backOffset != 2 {
		t.Fatalf("decoded step = %+v, want loop{3,2}", step)
	}
	if pos != 3 {
		t.Errorf("pos = %d, want 3", pos)
	}
}

func TestReadEnvelopeStepDecodesDurationRate(t *testing.T) {
	e := &Engine{rom: romWithBytes(0, 10, 0xFE)} // rate = -2 as int8
	var pos uint16
	step, ok := e.readEnvelopeStep(0, &pos)
	if !ok {
		t.Fatal("expected a successful decode")
	}
	if step.duration != 10 || step.rate != -2 {
		t.Fatalf("decoded step = %+v, want {duration:10 rate:-2}", step)
	}
	if pos != 2 {
		t.Errorf("pos = %d, want 2", pos)
	}
}
