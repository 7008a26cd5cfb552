// allocator_test.go - SFX allocation and priority preemption.

package main

import "testing"

func newTestEngine() *Engine {
	return &Engine{
		channels:  newChannelSet(),
		prngState: 1,
		rom:       &rom{},
	}
}

func TestAllocateOneChannelUsesFreeSlot(t *testing.T) {
	e := newTestEngine()
	meta := sfxMeta{priority: 5, hint: 4, primarySeq: 0x4100}

	idx := e.allocateOneChannel(meta, 0x10)
	if idx == 0 {
		t.Fatal("expected a channel to be allocated")
	}
	ch := &e.channels.slots[idx]
	if ch.activeCommand != 0x10 {
		t.Errorf("activeCommand = %d, want 0x10", ch.activeCommand)
	}
	if ch.seqPtr != 0x4100 {
		t.Errorf("seqPtr = %#x, want 0x4100", ch.seqPtr)
	}
	if ch.status != encodedPriority(5) {
		t.Errorf("status = %d, want %d", ch.status, encodedPriority(5))
	}
}

func TestAllocateOneChannelUsesAlternateSequence(t *testing.T) {
	e := newTestEngine()
	meta := sfxMeta{priority: 1, hint: 4, primarySeq: 0x1111, altSeq: 0x2222, useAlt: true}

	idx := e.allocateOneChannel(meta, 0x01)
	if e.channels.slots[idx].seqPtr != 0x2222 {
		t.Errorf("expected alternate sequence pointer 0x2222, got %#x", e.channels.slots[idx].seqPtr)
	}
}

func TestPreemptDeniesLowerIncomingPriority(t *testing.T) {
	e := newTestEngine()
	idx := e.channels.popFree()
	e.channels.slots[idx].status = encodedPriority(10)
	e.channels.linkActive(4, idx)

	// Fill every remaining free slot on hint 4 so allocateOneChannel must
	// preempt rather than just pop a free slot.
	for {
		free := e.channels.popFree()
		if free == 0 {
			break
		}
		e.channels.slots[free].status = encodedPriority(10)
		e.channels.linkActive(4, free)
	}

	victim := e.preempt(4, encodedPriority(2))
	if victim != 0 {
		t.Fatalf("lower-priority incoming request should not preempt, got victim %d", victim)
	}
}

func TestPreemptStealsLowestPriorityVictim(t *testing.T) {
	e := newTestEngine()
	a := e.channels.popFree()
	b := e.channels.popFree()
	e.channels.slots[a].status = encodedPriority(1)
	e.channels.slots[b].status = encodedPriority(10)
	e.channels.linkActive(4, a)
	e.channels.linkActive(4, b)

	victim := e.preempt(4, encodedPriority(15))
	if victim != a {
		t.Fatalf("expected lowest-priority channel %d to be preempted, got %d", a, victim)
	}
	if e.channels.isLive(victim) {
		t.Fatal("preempted channel should have been unlinked")
	}
}

func TestAllocateSFXFollowsChainAndRespectsDuplicateCheck(t *testing.T) {
	e := newTestEngine()
	e.rom.sfxTable = []sfxMeta{
		0: {flags: 0, priority: 5, hint: 4, primarySeq: 0x4000, nextOffset: 1},
		1: {flags: sfxFlagsImmediate, priority: 5, hint: 4, primarySeq: 0x4100},
	}

	allocated := e.allocateSFX(0, 0x55)
	if len(allocated) != 2 {
		t.Fatalf("expected 2 channels allocated across the chain, got %d", len(allocated))
	}

	// Triggering the same command again should be a no-op: a live channel
	// already carries commandID 0x55 and flags != immediate at offset 0.
	allocated2 := e.allocateSFX(0, 0x55)
	if len(allocated2) != 0 {
		t.Fatalf("expected duplicate check to suppress reallocation, got %d channels", len(allocated2))
	}
}
