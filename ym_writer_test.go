// ym_writer_test.go - FM voice staging and commit.

package main

import "testing"

type fakeFMSink struct {
	writes map[uint8]uint8
}

func newFakeFMSink() *fakeFMSink { return &fakeFMSink{writes: map[uint8]uint8{}} }

func (f *fakeFMSink) FMBusy() bool { return false }
func (f *fakeFMSink) WriteFM(reg, value uint8) {
	f.writes[reg] = value
}

func TestLoadVoiceStagesShadowBytes(t *testing.T) {
	buf := make([]byte, romSize)
	for i := 0; i < 32; i++ {
		buf[i] = uint8(i + 1)
	}
	e := &Engine{rom: &rom{data: buf}}
	ch := &channel{}

	e.loadVoice(ch, 0, 0)
	for i := 0; i < 32; i++ {
		if ch.fmShadow[i] != uint8(i+1) {
			t.Fatalf("fmShadow[%d] = %d, want %d", i, ch.fmShadow[i], i+1)
		}
	}
}

func TestCommitFMSkipsNonFMChannels(t *testing.T) {
	e := &Engine{channels: newChannelSet()}
	idx := e.channels.popFree()
	e.channels.slots[idx].mode = chipPOKEY
	sink := newFakeFMSink()

	e.commitFM(sink, idx)
	if len(sink.writes) != 0 {
		t.Fatalf("expected no FM writes for a POKEY-mode channel, got %v", sink.writes)
	}
}

func TestCommitFMWritesAlgorithmAndKeyOn(t *testing.T) {
	e := &Engine{channels: newChannelSet()}
	idx := e.channels.popFree()
	ch := &e.channels.slots[idx]
	ch.mode = chipYM2151
	ch.status = 1
	ch.fmShadow[fmShadowAlgorithm] = 0x05
	e.channels.linkActive(4, idx)

	sink := newFakeFMSink()
	e.commitFM(sink, idx)

	voice := idx % fmVoiceCount
	if got := sink.writes[0x20+voice]; got != 0x05 {
		t.Errorf("algorithm register = %#x, want 0x05", got)
	}
	if got := sink.writes[0x08]; got != voice|0x78 {
		t.Errorf("key-on register = %#x, want %#x", got, voice|0x78)
	}
}
