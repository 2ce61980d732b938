package cmd

import (
	"bytes"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/audiocodec/wav"
	"github.com/dh1tw/vibify/wire"
)

func testWav(t *testing.T) []byte {
	t.Helper()
	b := audio.NewBuffer(1, 4410, 44100)
	for i := range b.Channels[0] {
		b.Channels[0][i] = float32(0.25 * math.Sin(2*math.Pi*330*float64(i)/44100))
	}
	data, err := wav.Encode(b)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestProcessRenders(t *testing.T) {
	ns := &natsServer{render: renderData, jobs: make(chan wire.RenderRequest, 1)}

	reply := ns.process(wire.RenderRequest{
		ID:        "1",
		Effect:    "bassboost",
		MediaType: "audio/wav",
		Audio:     testWav(t),
	})

	if reply.Error != "" {
		t.Fatal(reply.Error)
	}
	if reply.ID != "1" || reply.Effect != "bassboost" {
		t.Fatalf("unexpected reply header %+v", reply)
	}

	buf, err := wav.Decode(reply.Audio)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Frames() != 4410 || buf.NumChannels() != 1 {
		t.Fatalf("unexpected shape %d frames / %d channels", buf.Frames(), buf.NumChannels())
	}
}

func TestProcessErrors(t *testing.T) {
	failing := func(data []byte, mediaType, name string, effect effects.ID) (string, []byte, error) {
		return "", nil, errors.New("boom")
	}
	ns := &natsServer{render: failing, jobs: make(chan wire.RenderRequest, 1)}

	reply := ns.process(wire.RenderRequest{ID: "2", Effect: "chipmunk"})
	if reply.Error == "" {
		t.Fatal("expected an error for an unknown effect")
	}

	reply = ns.process(wire.RenderRequest{ID: "3", Effect: "lofi", MediaType: "audio/wav"})
	if reply.Error != "boom" || reply.Audio != nil {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestWorkerStateCounters(t *testing.T) {
	ns := &natsServer{name: "studio", jobs: make(chan wire.RenderRequest, 4)}
	ns.jobs <- wire.RenderRequest{ID: "a"}

	// no broker: state is tracked but not published
	ns.setBusy(true)
	if s := ns.state(); !s.Busy || s.Queued != 1 || s.Rendered != 0 {
		t.Fatalf("unexpected state %+v", s)
	}
	ns.setBusy(false)
	if s := ns.state(); s.Busy || s.Rendered != 1 || s.Name != "studio" {
		t.Fatalf("unexpected state %+v", s)
	}
}

type sent struct {
	topic string
	body  []byte
}

// recorder collects the published messages; fail makes every publish on
// the given topic fail.
type recorder struct {
	sync.Mutex
	msgs []sent
	fail func(topic string, body []byte) error
}

func (r *recorder) publish(topic string, body []byte) error {
	r.Lock()
	defer r.Unlock()
	if r.fail != nil {
		if err := r.fail(topic, body); err != nil {
			return err
		}
	}
	r.msgs = append(r.msgs, sent{topic, append([]byte(nil), body...)})
	return nil
}

func (r *recorder) replies(t *testing.T) []wire.RenderReply {
	t.Helper()
	r.Lock()
	defer r.Unlock()
	var res []wire.RenderReply
	for _, m := range r.msgs {
		if m.topic != "reply" {
			continue
		}
		var reply wire.RenderReply
		if err := reply.Unmarshal(m.body); err != nil {
			t.Fatal(err)
		}
		res = append(res, reply)
	}
	return res
}

func testServer(rec *recorder, chunkSize int) *natsServer {
	return &natsServer{
		name:         "studio",
		publish:      rec.publish,
		chunkSize:    chunkSize,
		parts:        wire.NewAssembler(time.Minute),
		requestTopic: "request",
		replyTopic:   "reply",
		stateTopic:   "state",
		jobs:         make(chan wire.RenderRequest, 1),
		render:       renderData,
	}
}

func TestLargeRequestAndReply(t *testing.T) {
	rec := &recorder{}
	chunk := 4096
	ns := testServer(rec, chunk)

	audio := testWav(t)
	req := wire.RenderRequest{ID: "big", Effect: "nightcore", MediaType: "audio/wav", Audio: audio}
	chunks := req.Chunks(chunk)
	if len(chunks) < 2 {
		t.Fatalf("expected the request to be split, got %d part(s)", len(chunks))
	}

	for i, c := range chunks {
		ns.enqueue(c.Marshal())
		if queued := len(ns.jobs); queued != 0 && i < len(chunks)-1 {
			t.Fatalf("request queued after part %d of %d", i+1, len(chunks))
		}
	}
	if len(ns.jobs) != 1 {
		t.Fatal("complete request not queued")
	}
	job := <-ns.jobs
	if !bytes.Equal(job.Audio, audio) {
		t.Fatal("request audio not reassembled")
	}

	ns.reply(ns.process(job))

	replies := rec.replies(t)
	if len(replies) < 2 {
		t.Fatalf("expected the reply to be split, got %d part(s)", len(replies))
	}
	client := wire.NewAssembler(time.Minute)
	var (
		data []byte
		ok   bool
	)
	for _, r := range replies {
		if r.Error != "" {
			t.Fatal(r.Error)
		}
		if len(r.Audio) > chunk {
			t.Fatalf("reply part carries %d bytes", len(r.Audio))
		}
		var err error
		data, ok, err = client.Add(r.ID, r.Part, r.Parts, r.Audio)
		if err != nil {
			t.Fatal(err)
		}
	}
	if !ok {
		t.Fatal("reply incomplete")
	}
	buf, err := wav.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if buf.Frames() != 4410 {
		t.Fatalf("unexpected frame count %d", buf.Frames())
	}
}

func TestOversizedReplyReportsError(t *testing.T) {
	limit := 2048
	rec := &recorder{fail: func(topic string, body []byte) error {
		if len(body) > limit {
			return errors.New("nats: maximum payload exceeded")
		}
		return nil
	}}
	// chunk size above the broker limit
	ns := testServer(rec, 1<<20)

	ns.reply(wire.RenderReply{ID: "x", Effect: "lofi", Audio: make([]byte, 10*limit)})

	replies := rec.replies(t)
	if len(replies) != 1 {
		t.Fatalf("expected a single error reply, got %d", len(replies))
	}
	if replies[0].ID != "x" || !strings.Contains(replies[0].Error, "maximum payload") {
		t.Fatalf("unexpected reply %+v", replies[0])
	}
}

func TestInconsistentPartsRejected(t *testing.T) {
	rec := &recorder{}
	ns := testServer(rec, wire.DefaultChunkSize)

	ns.enqueue((&wire.RenderRequest{ID: "p", Effect: "lofi", Audio: []byte{1}, Part: 0, Parts: 2}).Marshal())
	ns.enqueue((&wire.RenderRequest{ID: "p", Effect: "lofi", Audio: []byte{2}, Part: 1, Parts: 3}).Marshal())

	if len(ns.jobs) != 0 {
		t.Fatal("inconsistent request queued")
	}
	replies := rec.replies(t)
	if len(replies) != 1 || replies[0].Error == "" {
		t.Fatalf("expected an error reply, got %+v", replies)
	}
}

func TestQueueFull(t *testing.T) {
	rec := &recorder{}
	ns := testServer(rec, wire.DefaultChunkSize)

	ns.enqueue((&wire.RenderRequest{ID: "1", Effect: "lofi"}).Marshal())
	ns.enqueue((&wire.RenderRequest{ID: "2", Effect: "lofi"}).Marshal())

	replies := rec.replies(t)
	if len(replies) != 1 || replies[0].ID != "2" || replies[0].Error != "render queue full" {
		t.Fatalf("unexpected replies %+v", replies)
	}
}
