// router.go - command router: dispatches an ingress byte to one of the
// fifteen handler types decoded from the command's ROM table row.
//
// Only types 0, 3, 5, 7, 8, 9, 10, 11, 13 are reachable from the shipped
// command table; the rest (1, 2, 4, 6, 12, 14) are still fully implemented
// here so a future or custom command table that does reference them
// behaves correctly.

package main

// dispatchCommand routes a single command byte through the table built by
// LoadROM. Unknown commands (>= maxCommands) are silently ignored.
func (e *Engine) dispatchCommand(cmd uint8) {
	ht := e.rom.commandHandlerType(cmd)
	if ht == handlerInvalid {
		return
	}
	param := e.rom.commandParam(cmd)
	e.route(ht, cmd, param)
}

func (e *Engine) route(ht handlerType, cmd uint8, param uint8) {
	switch ht {
	case handlerParamShift:
		// Type 0: the parameter byte is left-shifted twice (x4) before it is
		// treated as an SFX data offset.
		e.allocateSFX(param<<2, cmd)

	case handlerSetVariable:
		// Type 1: unreferenced by the shipped table. Broadcasts param into
		// every live channel's general register.
		e.channels.eachActive(0, func(idx uint8) {
			e.channels.slots[idx].genReg = param
		})

	case handlerAddVariable:
		// Type 2: unreferenced. Adds param to every live channel's general
		// register.
		for i := uint8(1); i < numChannels; i++ {
			if e.channels.isLive(i) {
				e.channels.slots[i].genReg += param
			}
		}

	case handlerJumpTable:
		// Type 3: indirect dispatch via param as a secondary command id.
		// Command 0x00 is the sole shipped user: "stop all sounds".
		if cmd == 0x00 {
			e.stopAll()
			return
		}
		if int(param) < maxCommands {
			e.dispatchCommand(param)
		}

	case handlerKillByStatus:
		// Type 4: unreferenced. Kills every channel whose encoded status
		// equals param exactly.
		e.scanAndTerminate(func(ch *channel) bool { return ch.status == param })

	case handlerStopByCommand:
		// Type 5: stop every live channel playing command id param.
		e.scanAndTerminate(func(ch *channel) bool { return ch.activeCommand == param })

	case handlerStopChain:
		// Type 6: unreferenced. Stops param and every channel chained to it
		// via chainPtr/auxChainPtr linkage.
		e.scanAndTerminate(func(ch *channel) bool {
			return ch.activeCommand == param || ch.chainPtr == uint16(param)
		})

	case handlerPSGAllocate:
		e.allocateSFX(param, cmd)

	case handlerOutputQueue:
		e.egress.push(param)

	case handlerFadeByCommand:
		e.scanAndFade(func(ch *channel) bool { return ch.activeCommand == param })

	case handlerFadeByStatus:
		e.scanAndFade(func(ch *channel) bool { return ch.status&param == param })

	case handlerMusicSpeechStart:
		e.startMusicOrSpeech(param)

	case handlerChannelControl:
		// Type 12: unreferenced. Applies param as an AUDCTL OR-mask across
		// every live POKEY channel.
		for i := uint8(1); i < numChannels; i++ {
			ch := &e.channels.slots[i]
			if e.channels.isLive(i) && ch.mode == chipPOKEY {
				ch.ctrlOrMask |= param
			}
		}

	case handlerVolumeMixer:
		e.mixer.WriteMixer(param)

	case handlerNull:
		// Type 14: explicit no-op.
	}
}

// scanAndTerminate walks every channel slot and terminates those matching
// pred, splicing each out of its active list first.
func (e *Engine) scanAndTerminate(pred func(ch *channel) bool) {
	for i := uint8(1); i < numChannels; i++ {
		ch := &e.channels.slots[i]
		if e.channels.isLive(i) && pred(ch) {
			e.terminateChannel(i)
		}
	}
}

// scanAndFade installs the canonical fade-out decay envelope on every
// channel matching pred.
func (e *Engine) scanAndFade(pred func(ch *channel) bool) {
	for i := uint8(1); i < numChannels; i++ {
		ch := &e.channels.slots[i]
		if e.channels.isLive(i) && pred(ch) {
			e.installFadeEnvelope(ch)
		}
	}
}

// installFadeEnvelope arms ch's volume envelope with the canonical decay
// rate and sets the special-marker on active-command so it can no longer
// be matched by a later stop/fade-by-command-id lookup - a fade is
// cancellable only by natural completion. The channel itself terminates
// once stepVolumeEnvelope's decay reaches silence (engine.go's Tick).
func (e *Engine) installFadeEnvelope(ch *channel) {
	ch.fading = true
	ch.sustain = false
	ch.volLoopCount = 0
	ch.volEnvDone = false
	ch.activeCommand = activeCommandSpecialMarker
}

// stopAll terminates every live channel on every active list.
func (e *Engine) stopAll() {
	for i := uint8(1); i < numChannels; i++ {
		if e.channels.isLive(i) {
			e.terminateChannel(i)
		}
	}
	e.speech.flush()
}

// startMusicOrSpeech implements handler type 11: param selects a row of the
// music/speech metadata table. If nothing currently occupies the shared
// music/speech "active" slot, playback begins immediately; otherwise the
// row is deferred into the same speech priority queue, whether it is a
// speech row or a music row, and starts once the current occupant ends.
func (e *Engine) startMusicOrSpeech(param uint8) {
	if int(param) >= len(e.rom.musicTable) {
		return
	}
	meta := e.rom.musicTable[param]

	if meta.flags&0x80 != 0 {
		// Special mode: the volume-computation field doubles as the speech
		// chip's squeak/pitch register for this row.
		e.voice.WriteSqueak(meta.flags & 0x0F)
		e.speech.enqueue(meta.seqPtr, meta.seqLen, meta.flags&0x40 != 0)
		return
	}

	if e.mediaActive() {
		e.speech.enqueueMusic(param, meta.flags&0x40 != 0)
		return
	}
	e.beginMusicChannel(param)
}

// beginMusicChannel allocates (or preempts into) a channel for music/speech
// metadata row param and marks it the occupant of the shared "active" slot,
// so a later Type 11 push defers behind it instead of starting a second,
// independent music channel.
func (e *Engine) beginMusicChannel(param uint8) {
	if int(param) >= len(e.rom.musicTable) {
		return
	}
	meta := e.rom.musicTable[param]

	idx := e.channels.popFree()
	if idx == 0 {
		idx = e.preempt(4, encodedPriority(meta.flags&0x0F))
		if idx == 0 {
			return
		}
	}
	e.channels.slots[idx] = channel{
		status:        encodedPriority(meta.flags & 0x0F),
		activeCommand: param,
		seqPtr:        meta.seqPtr,
		tempo:         meta.tempo,
		baseVolume:    defaultMixerByte & 0x0F,
		ctrlAndMask:   defaultAUDCTL,
		volEnvPtr:     defaultVolEnvPtr,
		mode:          chipYM2151,
	}
	e.channels.linkActive(4, idx)
	e.activeMusicChannel = idx
}
