// Package wire contains the messages exchanged between a render client and
// a render worker. They are encoded in the protobuf wire format:
//
//	message RenderRequest {
//	  string id = 1;
//	  string effect = 2;
//	  string media_type = 3;
//	  bytes audio = 4;
//	  uint32 part = 5;
//	  uint32 parts = 6;
//	}
//
//	message RenderReply {
//	  string id = 1;
//	  string effect = 2;
//	  bytes audio = 3; // WAV
//	  string error = 4;
//	  uint32 part = 5;
//	  uint32 parts = 6;
//	}
//
//	message WorkerState {
//	  string name = 1;
//	  bool busy = 2;
//	  uint32 queued = 3;
//	  uint64 rendered = 4;
//	}
//
// Recordings usually exceed the payload limit of the broker, so requests
// and replies are split into parts (see Chunks) which all carry the same
// id. The receiver puts them back together with an Assembler.
package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// DefaultChunkSize is the amount of audio bytes carried by a single
// message. It stays well below the 1 MiB default max_payload of a NATS
// server.
const DefaultChunkSize = 512 * 1024

// RenderRequest asks a worker to render audio with an effect.
type RenderRequest struct {
	ID        string
	Effect    string
	MediaType string
	Audio     []byte
	Part      uint32
	Parts     uint32
}

// RenderReply carries the rendered audio or the reason the render failed.
type RenderReply struct {
	ID     string
	Effect string
	Audio  []byte
	Error  string
	Part   uint32
	Parts  uint32
}

// WorkerState is published by a render worker whenever it starts or
// finishes a job.
type WorkerState struct {
	Name     string
	Busy     bool
	Queued   uint32
	Rendered uint64
}

// Marshal encodes the request.
func (r *RenderRequest) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.ID)
	b = appendString(b, 2, r.Effect)
	b = appendString(b, 3, r.MediaType)
	b = appendBytes(b, 4, r.Audio)
	b = appendVarint(b, 5, uint64(r.Part))
	b = appendVarint(b, 6, uint64(r.Parts))
	return b
}

// Unmarshal decodes data into the request.
func (r *RenderRequest) Unmarshal(data []byte) error {
	*r = RenderRequest{}
	return walk(data, func(f field) {
		switch {
		case f.num == 1 && f.isBytes():
			r.ID = string(f.bytes)
		case f.num == 2 && f.isBytes():
			r.Effect = string(f.bytes)
		case f.num == 3 && f.isBytes():
			r.MediaType = string(f.bytes)
		case f.num == 4 && f.isBytes():
			r.Audio = append([]byte(nil), f.bytes...)
		case f.num == 5 && f.isVarint():
			r.Part = uint32(f.varint)
		case f.num == 6 && f.isVarint():
			r.Parts = uint32(f.varint)
		}
	})
}

// Chunks splits the request into messages carrying at most size bytes of
// audio each. A request which fits into a single message is returned
// as is.
func (r RenderRequest) Chunks(size int) []RenderRequest {
	parts := split(r.Audio, size)
	if len(parts) == 1 {
		return []RenderRequest{r}
	}
	res := make([]RenderRequest, len(parts))
	for i, p := range parts {
		res[i] = r
		res[i].Audio = p
		res[i].Part = uint32(i)
		res[i].Parts = uint32(len(parts))
	}
	return res
}

// Marshal encodes the reply.
func (r *RenderReply) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, r.ID)
	b = appendString(b, 2, r.Effect)
	b = appendBytes(b, 3, r.Audio)
	b = appendString(b, 4, r.Error)
	b = appendVarint(b, 5, uint64(r.Part))
	b = appendVarint(b, 6, uint64(r.Parts))
	return b
}

// Unmarshal decodes data into the reply.
func (r *RenderReply) Unmarshal(data []byte) error {
	*r = RenderReply{}
	return walk(data, func(f field) {
		switch {
		case f.num == 1 && f.isBytes():
			r.ID = string(f.bytes)
		case f.num == 2 && f.isBytes():
			r.Effect = string(f.bytes)
		case f.num == 3 && f.isBytes():
			r.Audio = append([]byte(nil), f.bytes...)
		case f.num == 4 && f.isBytes():
			r.Error = string(f.bytes)
		case f.num == 5 && f.isVarint():
			r.Part = uint32(f.varint)
		case f.num == 6 && f.isVarint():
			r.Parts = uint32(f.varint)
		}
	})
}

// Chunks splits the reply into messages carrying at most size bytes of
// audio each.
func (r RenderReply) Chunks(size int) []RenderReply {
	parts := split(r.Audio, size)
	if len(parts) == 1 {
		return []RenderReply{r}
	}
	res := make([]RenderReply, len(parts))
	for i, p := range parts {
		res[i] = r
		res[i].Audio = p
		res[i].Part = uint32(i)
		res[i].Parts = uint32(len(parts))
	}
	return res
}

// Marshal encodes the worker state.
func (s *WorkerState) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, s.Name)
	if s.Busy {
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, protowire.EncodeBool(s.Busy))
	}
	b = appendVarint(b, 3, uint64(s.Queued))
	b = appendVarint(b, 4, s.Rendered)
	return b
}

// Unmarshal decodes data into the worker state.
func (s *WorkerState) Unmarshal(data []byte) error {
	*s = WorkerState{}
	return walk(data, func(f field) {
		switch {
		case f.num == 1 && f.isBytes():
			s.Name = string(f.bytes)
		case f.num == 2 && f.isVarint():
			s.Busy = protowire.DecodeBool(f.varint)
		case f.num == 3 && f.isVarint():
			s.Queued = uint32(f.varint)
		case f.num == 4 && f.isVarint():
			s.Rendered = f.varint
		}
	})
}

// split cuts data into pieces of at most size bytes. It always returns at
// least one (possibly empty) piece.
func split(data []byte, size int) [][]byte {
	if size <= 0 || len(data) <= size {
		return [][]byte{data}
	}
	res := make([][]byte, 0, (len(data)+size-1)/size)
	for len(data) > size {
		res = append(res, data[:size])
		data = data[size:]
	}
	return append(res, data)
}

// empty fields are omitted (proto3 semantics)
func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// field is a decoded length delimited or varint field.
type field struct {
	num    protowire.Number
	typ    protowire.Type
	bytes  []byte
	varint uint64
}

func (f field) isBytes() bool  { return f.typ == protowire.BytesType }
func (f field) isVarint() bool { return f.typ == protowire.VarintType }

// walk calls fn for every length delimited and varint field. Fields of
// other wire types are skipped.
func walk(data []byte, fn func(field)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("wire: %v", protowire.ParseError(n))
		}
		data = data[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(data)
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return fmt.Errorf("wire: field %d: %v", num, protowire.ParseError(n))
		}
		if typ == protowire.BytesType || typ == protowire.VarintType {
			fn(f)
		}
		data = data[n:]
	}
	return nil
}
