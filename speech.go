// speech.go - TMS5220 speech request queue and byte streamer.
//
// Unlike the PSG/FM channels, speech has no bytecode sequence: a request is
// just a (pointer, length) span of LPC frame bytes in ROM, queued until the
// streamer can push it to the chip at four times the host tick rate.

package main

// speechRequest is one queued utterance, or (isMusic) a deferred music-row
// start: the same playback machinery hosts both music and speech, so a
// single priority queue and "currently active" slot gate both, only the
// byte sink (or, for music, the channel/FM pipeline) differs once a
// request is dequeued.
type speechRequest struct {
	ptr      uint16
	length   uint16
	priority bool

	isMusic    bool
	musicParam uint8
}

// speechQueue is an 8-entry circular buffer of pending utterances plus the
// state of whichever one is currently streaming.
type speechQueue struct {
	buf      [speechQueueDepth]speechRequest
	readIdx  int
	writeIdx int
	count    int

	streaming  bool
	cursor     uint16
	remaining  uint16
}

// enqueue adds a request. A priority request flushes every pending (but not
// yet streaming) request first, matching the "interrupt rather than queue
// behind" semantics of an urgent announcement.
func (q *speechQueue) enqueue(ptr, length uint16, priority bool) {
	if priority {
		q.readIdx, q.writeIdx, q.count = 0, 0, 0
	}
	if q.count == speechQueueDepth {
		return // queue full: drop rather than block the command router
	}
	q.buf[q.writeIdx] = speechRequest{ptr: ptr, length: length, priority: priority}
	q.writeIdx = (q.writeIdx + 1) % speechQueueDepth
	q.count++
}

// enqueueMusic defers a Type 11 music-row start behind the currently
// active music/speech slot, using the same priority discipline as a
// speech enqueue.
func (q *speechQueue) enqueueMusic(param uint8, priority bool) {
	if priority {
		q.readIdx, q.writeIdx, q.count = 0, 0, 0
	}
	if q.count == speechQueueDepth {
		return
	}
	q.buf[q.writeIdx] = speechRequest{isMusic: true, musicParam: param, priority: priority}
	q.writeIdx = (q.writeIdx + 1) % speechQueueDepth
	q.count++
}

// flush discards every pending request and stops whatever is streaming.
func (q *speechQueue) flush() {
	q.readIdx, q.writeIdx, q.count = 0, 0, 0
	q.streaming = false
	q.remaining = 0
}

func (q *speechQueue) dequeue() (speechRequest, bool) {
	if q.count == 0 {
		return speechRequest{}, false
	}
	r := q.buf[q.readIdx]
	q.readIdx = (q.readIdx + 1) % speechQueueDepth
	q.count--
	return r, true
}

// mediaActive reports whether the shared music/speech "currently active"
// slot is occupied, by either a streaming speech request or a live music
// channel. Type 11 and streamSpeech both gate on this before starting
// anything new from the queue.
func (e *Engine) mediaActive() bool {
	return e.activeMusicChannel != 0 || e.speech.streaming
}

// streamSpeech is called 4 times per host tick, matching the chip's LPC
// decode rate. It starts the next queued request when the shared active
// slot is free,
// and pushes one LPC byte to sink per call when the sink reports ready. A
// dequeued music request begins its channel instead of streaming bytes.
func (e *Engine) streamSpeech(sink SpeechSink) {
	q := &e.speech
	if !e.mediaActive() {
		req, ok := q.dequeue()
		if !ok {
			return
		}
		if req.isMusic {
			e.beginMusicChannel(req.musicParam)
			return
		}
		q.cursor = req.ptr
		q.remaining = req.length
		q.streaming = true
	}

	if q.remaining == 0 {
		q.streaming = false
		return
	}

	if !sink.SpeechReady() {
		return
	}

	b, err := e.rom.readByte(int(romBase) + int(q.cursor))
	if err != nil {
		q.streaming = false
		q.remaining = 0
		return
	}
	sink.WriteSpeech(b)
	q.cursor++
	q.remaining--

	if q.remaining == 0 {
		q.streaming = false
	}
}
