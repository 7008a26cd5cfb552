// channel_test.go - free/active list splicing.

package main

import "testing"

func TestNewChannelSetFreeList(t *testing.T) {
	cs := newChannelSet()
	seen := map[uint8]bool{}
	for i := 0; i < numChannels-1; i++ {
		idx := cs.popFree()
		if idx == 0 {
			t.Fatalf("free list exhausted after %d pops, want %d", i, numChannels-1)
		}
		if seen[idx] {
			t.Fatalf("channel %d popped twice", idx)
		}
		seen[idx] = true
	}
	if idx := cs.popFree(); idx != 0 {
		t.Fatalf("expected free list exhausted, got %d", idx)
	}
}

func TestPushPopFreeRoundTrip(t *testing.T) {
	cs := newChannelSet()
	idx := cs.popFree()
	cs.slots[idx].baseVolume = 9
	cs.pushFree(idx)
	if cs.slots[idx].baseVolume != 0 {
		t.Fatalf("pushFree did not clear channel state")
	}
	idx2 := cs.popFree()
	if idx2 != idx {
		t.Fatalf("expected LIFO reuse of %d, got %d", idx, idx2)
	}
}

func TestLinkActiveOrdersByPriorityDescending(t *testing.T) {
	cs := newChannelSet()
	a, b, c := cs.popFree(), cs.popFree(), cs.popFree()
	cs.slots[a].status = 5
	cs.slots[b].status = 10
	cs.slots[c].status = 1

	cs.linkActive(4, a)
	cs.linkActive(4, b)
	cs.linkActive(4, c)

	var order []uint8
	cs.eachActive(4, func(idx uint8) { order = append(order, idx) })

	if len(order) != 3 || order[0] != b || order[1] != a || order[2] != c {
		t.Fatalf("expected priority order [%d %d %d], got %v", b, a, c, order)
	}
}

func TestUnlinkActiveSplicesMiddle(t *testing.T) {
	cs := newChannelSet()
	a, b, c := cs.popFree(), cs.popFree(), cs.popFree()
	cs.slots[a].status = 5
	cs.slots[b].status = 10
	cs.slots[c].status = 1
	cs.linkActive(4, a)
	cs.linkActive(4, b)
	cs.linkActive(4, c)

	cs.unlinkActive(4, a)

	var order []uint8
	cs.eachActive(4, func(idx uint8) { order = append(order, idx) })
	if len(order) != 2 || order[0] != b || order[1] != c {
		t.Fatalf("expected [%d %d] after unlink, got %v", b, c, order)
	}
}

func TestIsLive(t *testing.T) {
	cs := newChannelSet()
	idx := cs.popFree()
	if cs.isLive(idx) {
		t.Fatal("freshly popped channel should not be live until status is set")
	}
	cs.slots[idx].status = 7
	if !cs.isLive(idx) {
		t.Fatal("channel with non-zero status should be live")
	}
	cs.slots[idx].activeCommand = activeCommandFinishedSentinel
	if cs.isLive(idx) {
		t.Fatal("channel with finished sentinel should not be live")
	}
}
