// rom_test.go - ROM loading, table decode, and hash verification.

package main

import (
	"errors"
	"testing"
)

func makeTestROM() []byte {
	return make([]byte, romSize)
}

func TestLoadROMRejectsWrongSize(t *testing.T) {
	_, err := LoadROM(make([]byte, romSize-1), "")
	if err == nil {
		t.Fatal("expected an error for a short ROM image")
	}
}

func TestLoadROMRejectsHashMismatch(t *testing.T) {
	data := makeTestROM()
	_, err := LoadROM(data, "0000000000000000000000000000000000000000000000000000000000000000")
	if err != ErrROMHash {
		t.Fatalf("expected ErrROMHash, got %v", err)
	}
}

func TestLoadROMAcceptsMatchingHash(t *testing.T) {
	data := makeTestROM()
	hash := HashROM(data)
	r, err := LoadROM(data, hash)
	if err != nil {
		t.Fatalf("unexpected error with matching hash: %v", err)
	}
	if r == nil {
		t.Fatal("expected a non-nil rom")
	}
}

func TestLoadROMDecodesDispatchTables(t *testing.T) {
	data := makeTestROM()
	data[addrDispatchType-romBase] = uint8(handlerStopByCommand)
	data[addrDispatchParam-romBase] = 0x42

	r, err := LoadROM(data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.commandHandlerType(0); got != handlerStopByCommand {
		t.Errorf("commandHandlerType(0) = %v, want %v", got, handlerStopByCommand)
	}
	if got := r.commandParam(0); got != 0x42 {
		t.Errorf("commandParam(0) = %#x, want 0x42", got)
	}
}

func TestCommandHandlerTypeOutOfRangeIsInvalid(t *testing.T) {
	data := makeTestROM()
	r, err := LoadROM(data, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.commandHandlerType(0xDB); got != handlerInvalid {
		t.Errorf("expected handlerInvalid for an out-of-range command, got %v", got)
	}
}

func TestReadByteOutOfBoundsErrors(t *testing.T) {
	r := &rom{data: make([]byte, 4)}
	if _, err := r.readByte(romBase - 1); !errors.Is(err, ErrROMTableBounds) {
		t.Errorf("expected ErrROMTableBounds wrapping, got %v", err)
	}
	if _, err := r.readByte(romBase + 4); !errors.Is(err, ErrROMTableBounds) {
		t.Errorf("expected ErrROMTableBounds wrapping, got %v", err)
	}
}
