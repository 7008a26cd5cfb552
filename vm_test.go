// vm_test.go - the bytecode interpreter.

package main

import "testing"

func newVMTestEngine(seq ...uint8) (*Engine, uint8) {
	buf := make([]byte, romSize)
	copy(buf, seq)
	e := &Engine{rom: &rom{data: buf}, channels: newChannelSet()}
	idx := e.channels.popFree()
	e.channels.slots[idx].status = 1
	e.channels.slots[idx].seqPtr = 0
	return e, idx
}

func TestRunChannelVMSetTempo(t *testing.T) {
	// 0x80 (SET_TEMPO) arg=20, then a terminator.
	e, idx := newVMTestEngine(uint8(opSetTempo), 20, seqEndMarker)
	if err := e.runChannelVM(idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.channels.slots[idx].tempo != 20>>2 {
		t.Errorf("tempo = %d, want %d", e.channels.slots[idx].tempo, 20>>2)
	}
}

func TestRunChannelVMTerminatesOnEndMarker(t *testing.T) {
	e, idx := newVMTestEngine(seqEndMarker)
	if err := e.runChannelVM(idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.channels.isLive(idx) {
		t.Fatal("expected the channel to terminate on the sequence end marker")
	}
}

func TestRunChannelVMPlaysNoteFrame(t *testing.T) {
	// note value 60, byte1 = duration index 2, no sustain/dotted bits.
	e, idx := newVMTestEngine(60, 0x02)
	if err := e.runChannelVM(idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ch := &e.channels.slots[idx]
	if ch.currentNote != 60 {
		t.Errorf("currentNote = %d, want 60", ch.currentNote)
	}
	if ch.primaryTimer == 0 {
		t.Error("expected primaryTimer to be armed by the note frame")
	}
}

func TestRunChannelVMFrameBudgetExceeded(t *testing.T) {
	// opResetTimer (0x88) takes one immediate arg and continues; loop it
	// forever to blow the per-tick frame budget.
	seq := make([]uint8, 0, perTickFrameBudget*2+4)
	for i := 0; i < perTickFrameBudget+4; i++ {
		seq = append(seq, uint8(opResetTimer), 0)
	}
	e, idx := newVMTestEngine(seq...)

	err := e.runChannelVM(idx)
	if err == nil {
		t.Fatal("expected ErrFrameBudgetExceeded")
	}
	if e.channels.isLive(idx) {
		t.Fatal("expected the pathological channel to be terminated")
	}
	if !e.errorFlags.has(errGeneral) {
		t.Fatal("expected errGeneral to be set")
	}
}

func TestClassifiedOpcodeVarLoad(t *testing.T) {
	// 0xA4 VAR_LOAD: sel, val. Store val into scratch slot selected by sel.
	sel := classScratch | 3
	e, idx := newVMTestEngine(uint8(opVarLoad), sel, 0x77, seqEndMarker)
	if err := e.runChannelVM(idx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.channels.slots[idx].scratch[3] != 0x77 {
		t.Errorf("scratch[3] = %#x, want 0x77", e.channels.slots[idx].scratch[3])
	}
}
