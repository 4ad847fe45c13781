package music

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// buildOggPage encodes packets into a single Ogg page. Packets must be
// shorter than 255 bytes.
func buildOggPage(headerType byte, packets ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("OggS")

	header := make([]byte, 23)
	header[1] = headerType
	header[22] = byte(len(packets))
	buf.Write(header)

	for _, p := range packets {
		buf.WriteByte(byte(len(p)))
	}
	for _, p := range packets {
		buf.Write(p)
	}
	return buf.Bytes()
}

func buildOggStream(audioPackets ...[]byte) []byte {
	var buf bytes.Buffer
	buf.Write(buildOggPage(0x02, []byte("OpusHead\x01\x02")))
	buf.Write(buildOggPage(0x00, []byte("OpusTags")))
	buf.Write(buildOggPage(0x00, audioPackets...))
	return buf.Bytes()
}

func TestOggReader_Pages(t *testing.T) {
	stream := buildOggStream([]byte{1, 2, 3}, []byte{4, 5})
	r := newOggReader(bytes.NewReader(stream))

	head, err := r.NextPage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !head.isHeader {
		t.Error("expected OpusHead page to be a header")
	}

	tags, err := r.NextPage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tags.isHeader {
		t.Error("expected OpusTags page to be a header")
	}

	audio, err := r.NextPage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if audio.isHeader {
		t.Error("expected audio page not to be a header")
	}
	if len(audio.packets) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(audio.packets))
	}
	if !bytes.Equal(audio.packets[0], []byte{1, 2, 3}) || !bytes.Equal(audio.packets[1], []byte{4, 5}) {
		t.Errorf("unexpected packets: %v", audio.packets)
	}

	if _, err := r.NextPage(); !errors.Is(err, io.EOF) {
		t.Errorf("expected io.EOF at end of stream, got %v", err)
	}
}

func TestOggReader_SkipsGarbage(t *testing.T) {
	stream := append([]byte("junkO-x"), buildOggPage(0x00, []byte{9})...)
	r := newOggReader(bytes.NewReader(stream))

	page, err := r.NextPage()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.packets) != 1 || page.packets[0][0] != 9 {
		t.Errorf("unexpected packets: %v", page.packets)
	}
}

func TestSplitPackets_Continuation(t *testing.T) {
	long := bytes.Repeat([]byte{7}, 300)
	segments := []byte{255, 45}

	packets := splitPackets(segments, long)
	if len(packets) != 1 {
		t.Fatalf("expected one packet spanning two segments, got %d", len(packets))
	}
	if len(packets[0]) != 300 {
		t.Errorf("expected 300 bytes, got %d", len(packets[0]))
	}
}
