package wire

import (
	"bytes"
	"testing"
	"time"
)

func TestAssembleOutOfOrder(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789"), 100)
	reply := RenderReply{ID: "r1", Effect: "flanger", Audio: data}
	chunks := reply.Chunks(64)

	a := NewAssembler(time.Minute)
	var (
		res []byte
		ok  bool
		err error
	)
	for i := len(chunks) - 1; i >= 0; i-- {
		c := chunks[i]
		res, ok, err = a.Add(c.ID, c.Part, c.Parts, c.Audio)
		if err != nil {
			t.Fatal(err)
		}
		if ok != (i == 0) {
			t.Fatalf("part %d: unexpected completion %v", i, ok)
		}
	}
	if !bytes.Equal(res, data) {
		t.Fatal("reassembled data differs")
	}
	if a.Pending() != 0 {
		t.Fatalf("expected no pending messages, got %d", a.Pending())
	}
}

func TestAssembleSinglePart(t *testing.T) {
	a := NewAssembler(time.Minute)
	res, ok, err := a.Add("x", 0, 0, []byte{1})
	if err != nil || !ok || !bytes.Equal(res, []byte{1}) {
		t.Fatalf("unexpected result %v %v %v", res, ok, err)
	}
}

func TestAssembleErrors(t *testing.T) {
	a := NewAssembler(time.Minute)

	if _, _, err := a.Add("x", 3, 3, nil); err == nil {
		t.Error("expected an error for a part out of range")
	}
	if _, _, err := a.Add("x", 0, MaxParts+1, nil); err == nil {
		t.Error("expected an error for too many parts")
	}

	if _, _, err := a.Add("y", 0, 2, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := a.Add("y", 1, 3, []byte{2}); err == nil {
		t.Error("expected an error for an inconsistent part count")
	}
	if a.Pending() != 0 {
		t.Errorf("inconsistent message must be dropped, %d pending", a.Pending())
	}
}

func TestAssembleExpires(t *testing.T) {
	now := time.Unix(0, 0)
	a := NewAssembler(time.Minute)
	a.now = func() time.Time { return now }

	if _, _, err := a.Add("old", 0, 2, []byte{1}); err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Minute)
	if _, _, err := a.Add("new", 0, 2, []byte{1}); err != nil {
		t.Fatal(err)
	}
	if a.Pending() != 1 {
		t.Fatalf("expected the expired message to be dropped, %d pending", a.Pending())
	}
	if _, ok, _ := a.Add("old", 1, 2, []byte{2}); ok {
		t.Fatal("expired message completed")
	}
}
