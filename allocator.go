// allocator.go - sound-effect channel allocator: finds or preempts a channel
// slot for an incoming SFX request and initializes it.

package main

// sfxMeta is one row of the five parallel SFX metadata tables.
type sfxMeta struct {
	flags      uint8 // 0xFF = immediate/no-duplicate-check; 0 = duplicate check
	priority   uint8 // 0..15
	hint       uint8 // 4..11, selects the active list
	primarySeq uint16
	altSeq     uint16
	useAlt     bool  // deterministic primary/alternate choice
	nextOffset uint8 // 0 = end of chain
}

const (
	sfxFlagsImmediate = 0xFF

	// Defaults written into a freshly allocated channel.
	defaultMixerByte = 0xA0
	defaultAUDCTL    = 0xFF
	defaultVolEnvPtr = 0x31
)

// allocateSFX walks a single SFX data offset and its chain, allocating a
// channel for each linked row. commandID identifies the command that
// triggered the allocation, used for
// duplicate checking and later stop/fade matching. It returns the indices
// of every channel allocated (possibly empty, if the very first step is
// rejected by the duplicate check or finds no slot).
func (e *Engine) allocateSFX(offset uint8, commandID uint8) []uint8 {
	var allocated []uint8
	cs := e.channels
	tbl := e.rom.sfxTable

	cur := offset
	for {
		if int(cur) >= len(tbl) {
			break
		}
		meta := tbl[cur]

		if meta.flags != sfxFlagsImmediate {
			// Duplicate check: a live channel already playing this command
			// id means the allocation (for this step) is a no-op.
			duplicate := false
			for i := uint8(1); i < numChannels; i++ {
				if cs.isLive(i) && cs.slots[i].activeCommand == commandID {
					duplicate = true
					break
				}
			}
			if duplicate {
				break
			}
		}

		idx := e.allocateOneChannel(meta, commandID)
		if idx == 0 {
			// No slot found (free or preemptable); this is a silent drop,
			// not an error flag.
			break
		}
		allocated = append(allocated, idx)

		if meta.nextOffset == 0 {
			break
		}
		cur = meta.nextOffset
	}
	return allocated
}

// allocateOneChannel finds a free or preemptable slot for a single SFX
// metadata row and initializes it. Returns 0 if none is available.
func (e *Engine) allocateOneChannel(meta sfxMeta, commandID uint8) uint8 {
	cs := e.channels
	encPriority := encodedPriority(meta.priority)

	idx := cs.popFree()
	if idx == 0 {
		idx = e.preempt(meta.hint, encPriority)
		if idx == 0 {
			return 0
		}
	}

	seq := meta.primarySeq
	if meta.useAlt {
		seq = meta.altSeq
	}

	cs.slots[idx] = channel{
		status:        encPriority,
		activeCommand: commandID,
		seqPtr:        seq,
		baseVolume:    defaultMixerByte & 0x0F,
		ctrlAndMask:   defaultAUDCTL,
		volEnvPtr:     defaultVolEnvPtr,
		tempo:         4, // nominal default; first SET_TEMPO opcode overrides it
		mode:          chipPOKEY,
	}
	cs.linkActive(meta.hint, idx)
	return idx
}

// preempt walks the active list rooted at hint looking for the lowest
// encoded-priority candidate that the incoming encPriority can displace.
// It splices the candidate out and returns its (now-reusable) index, or 0
// if no candidate yields.
func (e *Engine) preempt(hint uint8, encPriority uint8) uint8 {
	cs := e.channels

	var victim uint8
	var victimPriority uint8 = 0xFF
	cs.eachActive(hint, func(idx uint8) {
		p := cs.slots[idx].status
		if p < victimPriority {
			victim = idx
			victimPriority = p
		}
	})

	if victim == 0 || encPriority < victimPriority {
		return 0
	}
	cs.unlinkActive(hint, victim)
	if victim == e.activeMusicChannel {
		e.activeMusicChannel = 0
	}
	return victim
}
