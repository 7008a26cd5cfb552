// vm.go - the 59-opcode channel bytecode interpreter.
//
// Entered once per live channel per tick, after timer decrements, when the
// channel's primary timer has just underflowed. Frames are read from ROM
// starting at ch.seqPtr; dispatch continues until a frame sets the
// "yield" flag, the sequence ends (byte >= seqEndMarker), or the per-tick
// frame budget (errors.go) is exhausted.

package main

// runChannelVM advances channel idx by reading and executing frames until
// it yields, terminates, or exceeds its per-tick frame budget. A non-nil
// error return is always ErrFrameBudgetExceeded, a data error; the channel
// is also terminated and the general-error flag set before return.
func (e *Engine) runChannelVM(idx uint8) error {
	ch := &e.channels.slots[idx]
	ch.framesThisTick = 0

	for {
		ch.framesThisTick++
		if ch.framesThisTick > perTickFrameBudget {
			e.errorFlags.set(errGeneral)
			e.terminateChannel(idx)
			return wrapROMError(ErrFrameBudgetExceeded, int(ch.seqPtr))
		}

		b0, err := e.rom.readByte(int(romBase) + int(ch.seqPtr))
		if err != nil {
			e.terminateChannel(idx)
			return nil
		}

		switch {
		case b0 >= seqEndMarker:
			e.terminateChannel(idx)
			return nil

		case b0 < opcodeBase:
			ch.seqPtr++
			if !e.playNoteFrame(ch, idx, b0) {
				return nil // chain-load with no further data this tick
			}
			return nil // a note frame always yields for this tick

		default:
			ch.seqPtr++
			cont := e.execOpcode(ch, idx, opcode(b0))
			if !cont {
				return nil
			}
		}
	}
}

// playNoteFrame consumes byte1 (duration/flags) following a note value and
// arms the channel's timers. Returns true if the channel should
// continue reading in the same tick (only relevant to the 0x00 chain-load
// case), false otherwise.
func (e *Engine) playNoteFrame(ch *channel, idx uint8, note uint8) bool {
	byte1, err := e.rom.readByte(int(romBase) + int(ch.seqPtr))
	if err != nil {
		e.terminateChannel(idx)
		return false
	}
	ch.seqPtr++

	if byte1 == 0x00 {
		// Channel-chain: load next segment from the linked chain pointer.
		if ch.chainPtr != 0 {
			ch.seqPtr = ch.chainPtr
		}
		return true
	}

	ch.currentNote = note
	dur := durationTable[byte1&0x0F]
	if byte1&0x40 != 0 { // dotted
		dur += dur / 2
	}
	if ch.tempo == 0 {
		ch.tempo = 1
	}
	ch.primaryTimer = dur / uint16(ch.tempo)

	sustain := byte1&0x80 != 0
	ch.sustain = sustain
	if sustain {
		ch.secondaryTimer = 0x7F
	} else {
		div := (byte1 >> 4) & 0x03
		ch.secondaryTimer = ch.primaryTimer >> (div + 1)
	}

	ch.baseFrequency = uint16(note) + uint16(int16(ch.transpose))
	return false
}

// execOpcode dispatches a single fixed- or variable-length opcode. Returns
// true if the channel should continue reading frames in the same tick.
func (e *Engine) execOpcode(ch *channel, idx uint8, op opcode) bool {
	switch op {
	case opSetTempo:
		arg := e.arg1(ch)
		ch.tempo = arg >> 2
	case opAddTempo:
		arg := e.arg1(ch)
		ch.tempo += arg
	case opSetVolume:
		ch.baseVolume = e.arg1(ch) & 0x0F
	case opSetVolumeChk:
		arg := e.arg1(ch)
		if arg != 0xFE {
			ch.baseVolume = arg & 0x0F
		}
	case opAddTranspose:
		ch.transpose += int8(e.arg1(ch))
	case opNopFECheck:
		arg := e.arg1(ch)
		if ch.activeCommand == activeCommandFinishedSentinel && arg == 0xFE {
			return false
		}
	case opSetFreqEnv:
		ch.freqEnvPtr = e.arg2(ch)
		ch.freqEnvFrame, ch.freqEnvPos, ch.freqLoopCount, ch.freqEnvDone = 0, 0, 0, false
	case opSetVolEnv:
		ch.volEnvPtr = e.arg2(ch)
		ch.volEnvPos, ch.volModAccum, ch.volEnvDone = 0, 0, false
	case opResetTimer:
		_ = e.arg1(ch)
		ch.primaryTimer, ch.secondaryTimer = 0, 0
	case opSetRepeat:
		ch.volLoopCount = e.arg1(ch)
	case opSetDistortion:
		ch.distortionMask = e.arg1(ch) & 0xE0
	case opSetCtrlBits:
		ch.ctrlOrMask |= e.arg1(ch)
	case opClrCtrlBits:
		arg := e.arg1(ch)
		ch.ctrlAndMask &= ^arg
		ch.ctrlOrMask |= arg
	case opPushSeq:
		ch.chainPtr = ch.seqPtr
		ch.seqPtr = e.arg2(ch)
	case opPushSeqExt:
		_ = e.arg1(ch)
		ch.auxChainPtr = ch.seqPtr
		ch.chainDepth++
	case opPopSeq:
		_ = e.arg1(ch)
		if ch.chainDepth > 0 {
			ch.chainDepth--
			ch.seqPtr = ch.auxChainPtr
		} else {
			ch.seqPtr = ch.chainPtr
		}
	case opSwitchPokey:
		_ = e.arg1(ch)
		ch.mode = chipPOKEY
	case opSwitchYM2151:
		_ = e.arg1(ch)
		ch.mode = chipYM2151
	case opNop92, opNop93, opNop94, opNop95, opNop98, opNopA5, opVarClassifySub: // padding, consumed
		_ = e.arg1(ch)
	case opQueueOutput:
		e.egress.push(e.arg1(ch))
	case opResetEnvelope:
		_ = e.arg1(ch)
		ch.freqEnvPtr, ch.volEnvPtr = 0, defaultVolEnvPtr
		ch.freqEnvDone, ch.volEnvDone = false, false
		ch.activeCommand = activeCommandSpecialMarker
	case opSetSeqPtr:
		ch.seqPtr = e.arg2(ch)
		return true
	case opPlayMusicCmd:
		cmd := e.arg1(ch)
		e.dispatchCommand(cmd)
	case opSetVarNamed:
		sel := e.arg1(ch)
		e.classifiedStore(ch, idx, sel, ch.genReg)
	case opForcePokey:
		_ = e.arg1(ch)
		ch.mode = chipPOKEY
		ch.fmShadow = [256]uint8{}
	case opSetVoice:
		e.loadVoice(ch, idx, e.arg2(ch))
	case opYMLoadEnv:
		a0, a1 := e.arg1Arg1(ch)
		e.ymLoadEnvelope(ch, idx, a0, a1)
	case opYMLoadReg:
		a0, a1 := e.arg1Arg1(ch)
		e.ymLoadRegBlock(ch, idx, a0, a1)
	case opFreqOffset:
		ch.baseFrequency = uint16(int32(ch.baseFrequency) + int32(int8(e.arg1(ch))))
	case opYMDetuneNeg:
		ch.genReg = uint8(-int8(e.arg1(ch)))
	case opRegOr:
		ch.genReg |= e.arg1(ch)
	case opRegXor:
		ch.genReg ^= e.arg1(ch)
	case opVarLoad:
		sel, val := e.arg1Arg1(ch)
		e.classifiedStore(ch, idx, sel, val)
	case opShiftLeft:
		ch.genReg <<= e.arg1(ch) & 0x07
	case opFreqAdd:
		ch.baseFrequency = uint16(int32(ch.baseFrequency) + int32(int8(e.arg1(ch))))
	case opSetRelease:
		ch.scratch[1] = e.arg1(ch)
	case opVarAdd:
		e.classifiedArith(ch, idx, e.arg1(ch), func(v, a int) int { return v + a })
	case opVarSub:
		e.classifiedArith(ch, idx, e.arg1(ch), func(v, a int) int { return v - a })
	case opVarAnd:
		e.classifiedArith(ch, idx, e.arg1(ch), func(v, a int) int { return v & a })
	case opVarOr:
		e.classifiedArith(ch, idx, e.arg1(ch), func(v, a int) int { return v | a })
	case opVarXor:
		e.classifiedArith(ch, idx, e.arg1(ch), func(v, a int) int { return v ^ a })
	case opCondJump, opCondJumpInc:
		return e.execVariableLengthJump(ch, idx, op)
	case opVarToReg:
		sel := e.arg1(ch)
		ch.genReg = e.classifiedLoad(ch, idx, sel)
	case opVarApply:
		sel := e.arg1(ch)
		e.applyClassified(ch, idx, sel)
	case opVarClassify:
		sel := e.arg1(ch)
		_ = e.classifiedLoad(ch, idx, sel)
	case opShiftVarRight:
		e.classifiedArith(ch, idx, e.arg1(ch), func(v, a int) int { return v >> uint(a&0x07) })
	case opShiftVarLeft:
		e.classifiedArith(ch, idx, e.arg1(ch), func(v, a int) int { return v << uint(a&0x07) })
	case opCondJumpEQ:
		return e.execClassifiedBranch(ch, idx, func(v int) bool { return v == 0 })
	case opCondJumpNE:
		return e.execClassifiedBranch(ch, idx, func(v int) bool { return v != 0 })
	case opCondJumpPL:
		return e.execClassifiedBranch(ch, idx, func(v int) bool { return v >= 0 })
	case opCondJumpMI:
		return e.execClassifiedBranch(ch, idx, func(v int) bool { return v < 0 })
	case opVarSubStore:
		e.classifiedArith(ch, idx, e.arg1(ch), func(v, a int) int { return v - a })
	default:
		_ = e.arg1(ch) // unrecognized opcode byte within range: consume one byte, continue
	}
	return true
}

// arg1/arg2/arg1Arg1 read the immediate bytes following an opcode.
func (e *Engine) arg1(ch *channel) uint8 {
	b, _ := e.rom.readByte(int(romBase) + int(ch.seqPtr))
	ch.seqPtr++
	return b
}

func (e *Engine) arg2(ch *channel) uint16 {
	w, _ := e.rom.readWord(int(romBase) + int(ch.seqPtr))
	ch.seqPtr += 2
	return w
}

func (e *Engine) arg1Arg1(ch *channel) (uint8, uint8) {
	a := e.arg1(ch)
	b := e.arg1(ch)
	return a, b
}

// execVariableLengthJump implements opcodes 0xAE/0xAF, whose length is
// 2 + 2*classifiedVar: if the variable named by the first
// argument byte is 0, the following 16-bit pointer is loaded as a jump
// target; otherwise N*2 bytes are skipped before the pointer is read (and
// discarded) and for 0xAF the variable is incremented.
func (e *Engine) execVariableLengthJump(ch *channel, idx uint8, op opcode) bool {
	sel := e.arg1(ch)
	v := int(e.classifiedLoad(ch, idx, sel))
	if v == 0 {
		target := e.arg2(ch)
		ch.seqPtr = target
		return true
	}
	ch.seqPtr += uint16(2 * v)
	_ = e.arg2(ch) // pointer discarded
	if op == opCondJumpInc {
		e.classifiedStore(ch, idx, sel, e.classifiedLoad(ch, idx, sel)+1)
	}
	return true
}

// execClassifiedBranch implements opcodes 0xB5..0xB8: classify arg0 into a
// variable, then jump on cond(value).
func (e *Engine) execClassifiedBranch(ch *channel, idx uint8, cond func(int) bool) bool {
	sel := e.arg1(ch)
	v := int(int8(e.classifiedLoad(ch, idx, sel)))
	target := e.arg2(ch)
	if cond(v) {
		ch.seqPtr = target
	}
	return true
}
