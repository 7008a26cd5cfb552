// audio_output.go - audio backend selection for SoundChip.
//
// backend is currently always the oto/v3 live-audio player (NewOtoPlayer is
// resolved to either audio_backend_oto.go or, under the headless build tag,
// audio_backend_headless.go's no-op stand-in). The parameter is kept so a
// future second backend has somewhere to plug in without changing callers.
package main

const (
	BackendOto = iota
)

// AudioOutput is the interface SoundChip drives its output through.
type AudioOutput interface {
	Start()
	Stop()
	Close()
	IsStarted() bool
	SetupPlayer(chip *SoundChip)
}

func NewAudioOutput(backend int, sampleRate int, chip *SoundChip) (AudioOutput, error) {
	player, err := NewOtoPlayer(sampleRate)
	if err != nil {
		return nil, err
	}
	player.SetupPlayer(chip)
	return player, nil
}
