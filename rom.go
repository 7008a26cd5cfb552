// rom.go - ROM image loading and fixed-offset table extraction.
//
// The ROM is a read-only 48 KiB blob; this loader extracts every table the
// engine needs once at startup and never mutates them afterward. A
// table read that runs out of bounds during that startup pass is fatal:
// the engine refuses to initialize rather than run against a truncated
// image.

package main

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// musicMeta is one row of the music/speech metadata table.
type musicMeta struct {
	flags  uint8 // bit 7 = special mode; bits 0..3 = volume field
	tempo  uint8
	seqPtr uint16
	seqLen uint16
}

// rom holds the raw image plus every table decoded from it.
type rom struct {
	data []byte

	handlerTypeTable  [maxCommands]handlerType
	paramTable        [maxCommands]uint8

	sfxTable   []sfxMeta
	musicTable []musicMeta
}

// readByte/readWord address the ROM relative to romBase, matching the
// original hardware's own CPU addressing.
func (r *rom) readByte(addr int) (uint8, error) {
	off := addr - romBase
	if off < 0 || off >= len(r.data) {
		return 0, wrapROMError(ErrROMTableBounds, addr)
	}
	return r.data[off], nil
}

func (r *rom) readWord(addr int) (uint16, error) {
	off := addr - romBase
	if off < 0 || off+1 >= len(r.data) {
		return 0, wrapROMError(ErrROMTableBounds, addr)
	}
	return binary.LittleEndian.Uint16(r.data[off : off+2]), nil
}

// HashROM returns the hex-encoded sha256 digest of a ROM image, used to
// verify a loaded file against a known-good release.
func HashROM(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// LoadROM reads a 48 KiB ROM image from data and decodes its fixed tables.
// expectedHash, if non-empty, is compared against HashROM(data); a mismatch
// returns ErrROMHash.
func LoadROM(data []byte, expectedHash string) (*rom, error) {
	if len(data) != romSize {
		return nil, wrapROMError(ErrROMSize, len(data))
	}
	if expectedHash != "" && HashROM(data) != expectedHash {
		return nil, ErrROMHash
	}

	r := &rom{data: data}

	for cmd := 0; cmd < maxCommands; cmd++ {
		t, err := r.readByte(addrDispatchType + cmd)
		if err != nil {
			return nil, err
		}
		r.handlerTypeTable[cmd] = handlerType(t)

		p, err := r.readByte(addrDispatchParam + cmd)
		if err != nil {
			return nil, err
		}
		r.paramTable[cmd] = p
	}

	// SFX metadata tables are five parallel 219-entry byte/word tables.
	// The number of distinct "SFX data offsets" addressable by the
	// parameter byte of a handlerPSGAllocate command is bounded by
	// maxCommands, though only a subset is ever referenced.
	r.sfxTable = make([]sfxMeta, maxCommands)
	for i := 0; i < maxCommands; i++ {
		flags, err := r.readByte(addrSFXFlags + i)
		if err != nil {
			return nil, err
		}
		priority, err := r.readByte(addrSFXPriority + i)
		if err != nil {
			return nil, err
		}
		hint, err := r.readByte(addrSFXChannel + i)
		if err != nil {
			return nil, err
		}
		primary, err := r.readWord(addrSFXSeqPtr + i*2)
		if err != nil {
			return nil, err
		}
		next, err := r.readByte(addrSFXNext + i)
		if err != nil {
			return nil, err
		}
		r.sfxTable[i] = sfxMeta{
			flags:      flags,
			priority:   priority & 0x0F,
			hint:       hint,
			primarySeq: primary,
			altSeq:     primary, // no independent alternate-table region in this image layout
			useAlt:     priority&0x80 != 0,
			nextOffset: next,
		}
	}

	r.musicTable = make([]musicMeta, maxCommands)
	for i := 0; i < maxCommands; i++ {
		flags, err := r.readByte(addrMusicIndex + i)
		if err != nil {
			return nil, err
		}
		seqPtr, err := r.readWord(addrMusicSeqPtr + i*2)
		if err != nil {
			return nil, err
		}
		seqLen, err := r.readWord(addrMusicSeqLen + i*2)
		if err != nil {
			return nil, err
		}
		r.musicTable[i] = musicMeta{flags: flags, seqPtr: seqPtr, seqLen: seqLen, tempo: 4}
	}

	return r, nil
}

// commandHandlerType looks up the handler type for a command byte,
// returning handlerInvalid for any command >= maxCommands (those command
// bytes are silently ignored).
func (r *rom) commandHandlerType(cmd uint8) handlerType {
	if int(cmd) >= maxCommands {
		return handlerInvalid
	}
	return r.handlerTypeTable[cmd]
}

func (r *rom) commandParam(cmd uint8) uint8 {
	if int(cmd) >= maxCommands {
		return 0
	}
	return r.paramTable[cmd]
}
