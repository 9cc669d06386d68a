package speech

import (
	"bytes"
	"testing"
)

// TestFrameRoundTrip 测试二进制协议编解码
func TestFrameRoundTrip(t *testing.T) {
	payload := []byte(`{"audio":{"format":"pcm"}}`)
	encoded := EncodeFrame(newConfigFrame(payload))

	decoded, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame err: %v", err)
	}
	if decoded.Header.MessageType != FullClientRequest {
		t.Errorf("message type mismatch: got %v", decoded.Header.MessageType)
	}
	if decoded.Header.Serialization != JSONSerialization || decoded.Header.Compression != GzipCompression {
		t.Errorf("unexpected header: %#v", decoded.Header)
	}
	if !bytes.Equal(decoded.Payload, payload) {
		t.Errorf("payload mismatch: got %q", decoded.Payload)
	}
	if decoded.IsLast() {
		t.Error("config frame must not be marked last")
	}
}

func TestAudioFrameSequence(t *testing.T) {
	decoded, err := DecodeFrame(EncodeFrame(newAudioFrame([]byte{1, 2, 3}, 2, false)))
	if err != nil {
		t.Fatalf("DecodeFrame err: %v", err)
	}
	if decoded.Sequence != 2 || decoded.IsLast() {
		t.Fatalf("unexpected frame: seq=%d last=%v", decoded.Sequence, decoded.IsLast())
	}

	decoded, err = DecodeFrame(EncodeFrame(newAudioFrame([]byte{4}, 5, true)))
	if err != nil {
		t.Fatalf("DecodeFrame err: %v", err)
	}
	if decoded.Sequence != -5 || !decoded.IsLast() {
		t.Fatalf("last frame must carry a negative sequence: seq=%d last=%v", decoded.Sequence, decoded.IsLast())
	}
}

func TestErrorFrameCarriesCode(t *testing.T) {
	frame := &Frame{
		Header:    newHeader(ErrorMessage, NoSequenceNumber, JSONSerialization, NoCompression),
		ErrorCode: 45000001,
		Payload:   []byte("invalid audio"),
	}
	decoded, err := DecodeFrame(EncodeFrame(frame))
	if err != nil {
		t.Fatalf("DecodeFrame err: %v", err)
	}
	if decoded.ErrorCode != 45000001 || string(decoded.Payload) != "invalid audio" {
		t.Fatalf("unexpected error frame: %#v", decoded)
	}
}

func TestDecodeFrameRejectsShortInput(t *testing.T) {
	if _, err := DecodeFrame([]byte{0x11}); err == nil {
		t.Fatal("expected error for truncated header")
	}
	if _, err := DecodeFrame([]byte{0x21, 0x10, 0x11, 0x00, 0, 0, 0, 0}); err == nil {
		t.Fatal("expected error for unknown protocol version")
	}
}

// TestGzipRoundTrip 测试压缩功能
func TestGzipRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("Einbruch in der Hauptstraße. "), 20)

	compressed, err := gzipBytes(data)
	if err != nil {
		t.Fatalf("gzipBytes err: %v", err)
	}
	frame := &Frame{Header: newHeader(AudioOnlyRequest, NoSequenceNumber, NoSerialization, GzipCompression), Payload: compressed}
	out, err := frame.payload()
	if err != nil {
		t.Fatalf("payload err: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Error("decompressed data doesn't match original")
	}
}
