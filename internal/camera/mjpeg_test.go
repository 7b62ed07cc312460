package camera

import (
	"bytes"
	"testing"
)

func fakeJPEG(payload ...byte) []byte {
	frame := []byte{0xFF, 0xD8}
	frame = append(frame, payload...)
	return append(frame, 0xFF, 0xD9)
}

func TestFrameSplitter_WholeFrames(t *testing.T) {
	a := fakeJPEG(1, 2, 3)
	b := fakeJPEG(4, 5)

	var s FrameSplitter
	frames := s.Write(append(append([]byte{}, a...), b...))

	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], a) || !bytes.Equal(frames[1], b) {
		t.Errorf("Unexpected frames: %x", frames)
	}
	if s.Buffered() != 0 {
		t.Errorf("Expected empty buffer, got %d bytes", s.Buffered())
	}
}

func TestFrameSplitter_ByteByByte(t *testing.T) {
	a := fakeJPEG(0x10, 0xFF, 0x00, 0x20)
	b := fakeJPEG(0x30)
	stream := append([]byte{0x00, 0x01}, a...) // 先頭のゴミは捨てられる
	stream = append(stream, b...)

	var s FrameSplitter
	var frames [][]byte
	for i := range stream {
		frames = append(frames, s.Write(stream[i:i+1])...)
	}

	if len(frames) != 2 {
		t.Fatalf("Expected 2 frames, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], a) {
		t.Errorf("Frame 0 = %x, want %x", frames[0], a)
	}
	if !bytes.Equal(frames[1], b) {
		t.Errorf("Frame 1 = %x, want %x", frames[1], b)
	}
}

func TestFrameSplitter_IncompleteFrame(t *testing.T) {
	var s FrameSplitter

	frames := s.Write([]byte{0xFF, 0xD8, 0x01, 0x02})
	if len(frames) != 0 {
		t.Fatalf("Expected no frames, got %d", len(frames))
	}
	if s.Buffered() != 4 {
		t.Errorf("Expected 4 buffered bytes, got %d", s.Buffered())
	}

	frames = s.Write([]byte{0xFF, 0xD9})
	if len(frames) != 1 {
		t.Fatalf("Expected 1 frame, got %d", len(frames))
	}
	if !bytes.Equal(frames[0], []byte{0xFF, 0xD8, 0x01, 0x02, 0xFF, 0xD9}) {
		t.Errorf("Unexpected frame: %x", frames[0])
	}
}

func TestFrameSplitter_ReturnedFramesAreCopies(t *testing.T) {
	var s FrameSplitter
	frames := s.Write(fakeJPEG(7))
	s.Write(fakeJPEG(9))

	if frames[0][2] != 7 {
		t.Errorf("Frame was overwritten by a later write: %x", frames[0])
	}
}
