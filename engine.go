// engine.go - top-level engine state and the per-tick schedule.
//
// One Engine owns a loaded ROM, the 30-channel arena, the three host queues
// (ingress command buffer, egress output ring, speech request queue), and
// the three chip writers (POKEY, YM2151, TMS5220) that the VM and command
// router drive indirectly through the sink interfaces in sinks.go. A single
// coarse mutex serializes every tick and every host-facing call, mirroring
// a single-threaded main loop rather than attempting finer locking no
// caller needs.

package main

import "sync"

// mixerState implements MixerSink: one byte packs three independent volume
// fields - music in bits 2..0 (0..7), sound effects in bits 4..3 (0..3),
// speech in bits 7..5 (0..7).
type mixerState struct {
	mutex              sync.Mutex
	musicVolume        uint8
	effectsVolume      uint8
	speechVolume       uint8
}

func (m *mixerState) WriteMixer(b uint8) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.musicVolume = b & 0x07
	m.effectsVolume = (b >> 3) & 0x03
	m.speechVolume = (b >> 5) & 0x07
}

func (m *mixerState) snapshot() (music, effects, speech uint8) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.musicVolume, m.effectsVolume, m.speechVolume
}

// Engine is the full sound coprocessor: ROM, channel arena, host queues,
// and chip backends, advanced one host tick at a time by Tick.
type Engine struct {
	mutex sync.Mutex

	rom      *rom
	channels *channelSet
	ingress  ingressQueue
	egress   egressQueue
	speech   speechQueue

	// activeMusicChannel is the channel currently occupying the shared
	// music/speech "active" slot, or 0 if none. Cleared wherever a channel
	// is terminated or preempted (terminateChannel, allocator.go's preempt).
	activeMusicChannel uint8

	errorFlags errorFlags
	prngState  uint32
	coinBits   uint8 // bits 0..3 of the status byte; driven by the cabinet, not the engine

	chip  *SoundChip
	psg   *pokeyWriter
	fm    *fmSynth
	voice *tms5220
	mixer *mixerState

	tickCount uint64
}

// NewEngine loads rom data (validating size and, if expectedHash is
// non-empty, its sha256 digest), wires every chip backend, and mixes FM and
// speech into the PSG chip's output so a single ReadSample call renders the
// whole sound coprocessor.
func NewEngine(data []byte, expectedHash string, backend int) (*Engine, error) {
	r, err := LoadROM(data, expectedHash)
	if err != nil {
		return nil, err
	}

	chip, err := NewSoundChip(backend)
	if err != nil {
		return nil, err
	}

	fm := newFMSynth()
	voice := newTMS5220()
	chip.SetAuxSources(fm, voice)

	e := &Engine{
		rom:       r,
		channels:  newChannelSet(),
		chip:      chip,
		psg:       newPokeyWriter(chip),
		fm:        fm,
		voice:     voice,
		mixer:     &mixerState{},
		prngState: 0xACE1ACE1,
	}
	return e, nil
}

// terminateChannel splices idx out of whichever active list it belongs to
// (recorded in its hint field) and returns it to the free list.
func (e *Engine) terminateChannel(idx uint8) {
	if idx == 0 {
		return
	}
	if idx == e.activeMusicChannel {
		e.activeMusicChannel = 0
	}
	e.channels.unlinkActive(e.channels.slots[idx].hint, idx)
	e.channels.pushFree(idx)
}

// ErrorFlags returns the process-level recoverable-error bitset accumulated
// so far.
func (e *Engine) ErrorFlags() errorFlags {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.errorFlags
}

// SetCoinBits latches the cabinet's four coin-indicator lines (bits 0..3 of
// the status byte). Coin wiring itself is outside this engine's scope; the
// host is expected to call this as its own coin inputs change.
func (e *Engine) SetCoinBits(bits uint8) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.coinBits = bits & 0x0F
}

// Status returns the read-only status byte exposed to the host: coin
// indicators (bits 0..3), self-test (bit 4), speech-ready (bit 5),
// sound-buffer-full (bit 6), host-output-buffer-full (bit 7).
func (e *Engine) Status() uint8 {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	var b uint8
	b |= e.coinBits & 0x0F
	if e.errorFlags.has(errRAMSelfTest) {
		b |= 1 << 4
	}
	if e.voice.SpeechReady() {
		b |= 1 << 5
	}
	if e.ingress.full() {
		b |= 1 << 6
	}
	if e.egress.full() {
		b |= 1 << 7
	}
	return b
}

// PushCommand enqueues one host-to-engine command byte. Commands are drained
// and dispatched one per tick from the ingress buffer.
func (e *Engine) PushCommand(cmd uint8) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.ingress.push(cmd)
}

// IngressFull reports the "sound buffer full" status bit exposed to the
// host.
func (e *Engine) IngressFull() bool {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.ingress.full()
}

// PopOutput drains one byte from the egress queue, or (0, false) if empty.
func (e *Engine) PopOutput() (uint8, bool) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	return e.egress.pop()
}

// Start/Stop control the live audio backend, when one is wired (no-ops on
// the headless build, see audio_backend_headless.go).
func (e *Engine) Start() { e.chip.Start() }
func (e *Engine) Stop()  { e.chip.Stop() }

// Tick advances the engine by one host tick: drains one ingress command,
// decrements the timers and re-enters the bytecode VM of every channel whose
// chip group is due this tick, steps both envelope pipelines, commits the
// tick's chip writes on the alternating PSG/FM schedule, and streams four
// speech bytes (the chip runs its LPC decoder at 4x the host tick rate).
//
// A non-nil return is always ErrFrameBudgetExceeded: a pathological
// sequence ran past its per-tick frame budget on one channel. That channel
// has already been terminated and the general-error flag set; the tick
// still finishes servicing every other channel before Tick returns.
func (e *Engine) Tick() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if cmd, ok := e.ingress.pop(); ok {
		e.dispatchCommand(cmd)
	}

	e.tickCount++
	pokeyTick := e.tickCount%2 == 1

	var tickErr error
	for i := uint8(1); i < numChannels; i++ {
		if !e.channels.isLive(i) {
			continue
		}
		ch := &e.channels.slots[i]

		// POKEY and FM channels alternate host ticks, so each chip's group
		// of channels only sees half the tick rate; a channel's timers, VM,
		// and envelopes advance only on its own chip's tick.
		if (ch.mode == chipPOKEY) != pokeyTick {
			continue
		}

		if ch.primaryTimer > 0 {
			ch.primaryTimer--
		}
		if ch.secondaryTimer > 0 {
			ch.secondaryTimer--
			if ch.secondaryTimer == 0 {
				ch.updateFlag = true
			}
		}

		e.stepFrequencyEnvelope(ch)
		volByte := e.stepVolumeEnvelope(ch)
		ch.scratch[0] = volByte

		if ch.fading && ch.volEnvDone {
			// A fading channel self-terminates once its decay envelope
			// naturally reaches silence.
			e.terminateChannel(i)
			continue
		}

		if ch.primaryTimer == 0 {
			if err := e.runChannelVM(i); err != nil && tickErr == nil {
				tickErr = err
			}
		}
		if !e.channels.isLive(i) {
			continue
		}

		if ch.mode == chipYM2151 {
			e.commitFM(e.fm, i)
		}
	}

	if pokeyTick {
		e.commitPSGPairs()
	}

	for i := 0; i < 4; i++ {
		e.streamSpeech(e.voice)
	}

	return tickErr
}

// pokeyVoiceHint returns the hint-based logical address backing physical
// POKEY voice v's primary or secondary contender. The eight hint values
// split into two hardware-aligned lists per voice: hints 4..7 are the
// primary list for voices 0..3, hints 8..11 the secondary list for the
// same voices.
func pokeyVoiceHint(v uint8, secondary bool) uint8 {
	if secondary {
		return 8 + v
	}
	return 4 + v
}

// psgVoiceHead returns the highest-priority live PSG-mode channel linked at
// hint, or nil if that list is empty or holds only non-PSG channels (e.g. a
// music channel sharing hint 4).
func (e *Engine) psgVoiceHead(hint uint8) *channel {
	var head *channel
	e.channels.eachActive(hint, func(idx uint8) {
		if head == nil && e.channels.slots[idx].mode == chipPOKEY {
			head = &e.channels.slots[idx]
		}
	})
	return head
}

// musicFilterThreshold gates the primary channel out of the louder-wins
// compare when its volume falls below this level.
const musicFilterThreshold = 4

// louderPSGVoice picks the louder of a voice pair's primary and secondary
// contenders. A primary quieter than musicFilterThreshold is treated as
// silent so background music does not mask a louder secondary effect.
func louderPSGVoice(primary, secondary *channel) *channel {
	if primary == nil {
		return secondary
	}
	if secondary == nil {
		return primary
	}
	pv := primary.scratch[0] & 0x0F
	sv := secondary.scratch[0] & 0x0F
	if pv < musicFilterThreshold || sv > pv {
		return secondary
	}
	return primary
}

// commitPSGPairs mixes and writes the four physical POKEY voices: each is
// backed by a primary/secondary pair of logical channels that contend by
// volume, with the winner's frequency and volume written to that voice.
// Every contending channel's AUDCTL contribution (AND-mask, OR-bits) is
// merged across all four voices and written once, after every voice's
// AUDF/AUDC pair.
func (e *Engine) commitPSGPairs() {
	var mergedAnd uint8 = 0xFF
	var mergedOr uint8

	for v := uint8(0); v < 4; v++ {
		primary := e.psgVoiceHead(pokeyVoiceHint(v, false))
		secondary := e.psgVoiceHead(pokeyVoiceHint(v, true))

		if primary != nil {
			mergedAnd &= primary.ctrlAndMask
			mergedOr |= primary.ctrlOrMask
		}
		if secondary != nil {
			mergedAnd &= secondary.ctrlAndMask
			mergedOr |= secondary.ctrlOrMask
		}

		winner := louderPSGVoice(primary, secondary)
		if winner == nil {
			e.psg.WritePSG(v*2, 0)
			e.psg.WritePSG(v*2+1, 0)
			continue
		}

		audf := uint8(winner.baseFrequency + uint16(winner.freqAccum>>16))
		volByte := winner.scratch[0]
		distortion := (winner.distortionMask >> 5) & 0x07

		e.psg.WritePSG(v*2, audf)
		e.psg.WritePSG(v*2+1, (volByte&0x0F)|(distortion<<5))
	}

	e.psg.WritePSG(8, mergedAnd|mergedOr)
}
