package wire

import (
	"reflect"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestRenderRequest(t *testing.T) {
	req := RenderRequest{
		ID:        "42",
		Effect:    "nightcore",
		MediaType: "audio/wav",
		Audio:     []byte{'R', 'I', 'F', 'F', 0, 1, 2},
	}

	var res RenderRequest
	if err := res.Unmarshal(req.Marshal()); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(req, res) {
		t.Fatalf("expected %+v, got %+v", req, res)
	}
}

func TestRenderReplyError(t *testing.T) {
	reply := RenderReply{ID: "7", Effect: "lofi", Error: "render failure"}

	var res RenderReply
	if err := res.Unmarshal(reply.Marshal()); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(reply, res) {
		t.Fatalf("expected %+v, got %+v", reply, res)
	}
}

func TestFieldLayout(t *testing.T) {
	b := (&RenderReply{ID: "a"}).Marshal()
	// tag 1, length delimited, length 1, 'a'
	exp := []byte{0x0a, 0x01, 'a'}
	if !reflect.DeepEqual(b, exp) {
		t.Fatalf("expected %v, got %v", exp, b)
	}

	if len((&RenderRequest{}).Marshal()) != 0 {
		t.Fatal("empty message must encode to zero bytes")
	}
}

func TestUnknownFieldsSkipped(t *testing.T) {
	b := (&RenderRequest{ID: "x", Effect: "bassboost"}).Marshal()
	b = protowire.AppendTag(b, 9, protowire.VarintType)
	b = protowire.AppendVarint(b, 1234)
	b = protowire.AppendTag(b, 10, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	var res RenderRequest
	if err := res.Unmarshal(b); err != nil {
		t.Fatal(err)
	}
	if res.ID != "x" || res.Effect != "bassboost" {
		t.Fatalf("unexpected %+v", res)
	}
}

func TestTruncated(t *testing.T) {
	b := (&RenderRequest{ID: "truncated"}).Marshal()

	var res RenderRequest
	if err := res.Unmarshal(b[:len(b)-2]); err == nil {
		t.Fatal("expected an error")
	}
}

func TestWorkerState(t *testing.T) {
	data := []WorkerState{
		{},
		{Name: "studio"},
		{Name: "studio", Busy: true, Queued: 3, Rendered: 1 << 40},
	}

	for _, s := range data {
		var res WorkerState
		if err := res.Unmarshal(s.Marshal()); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(s, res) {
			t.Fatalf("expected %+v, got %+v", s, res)
		}
	}
}

func TestChunks(t *testing.T) {
	audio := make([]byte, 3*DefaultChunkSize+17)
	for i := range audio {
		audio[i] = byte(i)
	}
	req := RenderRequest{ID: "big", Effect: "lofi", MediaType: "audio/wav", Audio: audio}

	chunks := req.Chunks(DefaultChunkSize)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Part != uint32(i) || c.Parts != 4 || c.ID != "big" || c.MediaType != "audio/wav" {
			t.Fatalf("unexpected chunk header %d: %+v", i, c)
		}
		// header fields add a few bytes only
		if n := len(c.Marshal()); n > DefaultChunkSize+64 {
			t.Fatalf("chunk %d encodes to %d bytes", i, n)
		}
		var res RenderRequest
		if err := res.Unmarshal(c.Marshal()); err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(c, res) {
			t.Fatalf("chunk %d does not survive encoding", i)
		}
	}

	small := RenderReply{ID: "s", Audio: []byte{1, 2, 3}}
	if c := small.Chunks(DefaultChunkSize); len(c) != 1 || c[0].Parts != 0 {
		t.Fatalf("small reply must not be split: %+v", c)
	}
	failed := RenderReply{ID: "f", Error: "boom"}
	if c := failed.Chunks(DefaultChunkSize); len(c) != 1 || c[0].Error != "boom" {
		t.Fatalf("unexpected chunks %+v", c)
	}
}
