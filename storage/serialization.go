// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"errors"
	"fmt"

	"github.com/mus-format/mus-go"
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/dossier/core"
)

// ChunkMUS is the MUS serializer for core.Chunk records.
var ChunkMUS = chunkSer{}

var vectorSer = ord.NewSliceSer[float32](raw.Float32)

// chunkSer writes Id, Index, Source, Contents and Vector in that order.
type chunkSer struct{}

func (s chunkSer) Marshal(c core.Chunk, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(c.Id), bs)
	n += varint.Int.Marshal(c.Index, bs[n:])
	n += ord.String.Marshal(c.Source, bs[n:])
	n += ord.String.Marshal(c.Contents, bs[n:])
	return n + vectorSer.Marshal(c.Vector, bs[n:])
}

func (s chunkSer) Unmarshal(bs []byte) (c core.Chunk, n int, err error) {
	id, n, err := varint.Uint64.Unmarshal(bs)
	if err != nil {
		return
	}
	c.Id = core.ID(id)
	var n1 int
	c.Index, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Source, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Contents, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	c.Vector, n1, err = vectorSer.Unmarshal(bs[n:])
	n += n1
	if len(c.Vector) == 0 {
		c.Vector = nil
	}
	return
}

func (s chunkSer) Size(c core.Chunk) (size int) {
	size = varint.Uint64.Size(uint64(c.Id))
	size += varint.Int.Size(c.Index)
	size += ord.String.Size(c.Source)
	size += ord.String.Size(c.Contents)
	return size + vectorSer.Size(c.Vector)
}

func (s chunkSer) Skip(bs []byte) (n int, err error) {
	n, err = varint.Uint64.Skip(bs)
	if err != nil {
		return
	}
	var n1 int
	for _, skip := range []func([]byte) (int, error){varint.Int.Skip, ord.String.Skip, ord.String.Skip, vectorSer.Skip} {
		n1, err = skip(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	return
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	buf := make([]byte, varint.Uint64.Size(uint64(id)))
	varint.Uint64.Marshal(uint64(id), buf)
	return buf
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, _, err := varint.Uint64.Unmarshal(data)
	if err != nil {
		return 0, decodeError(err)
	}
	return core.ID(id), nil
}

// MarshalChunk serializes a Chunk to bytes.
func MarshalChunk(chunk *core.Chunk) []byte {
	buf := make([]byte, ChunkMUS.Size(*chunk))
	ChunkMUS.Marshal(*chunk, buf)
	return buf
}

// UnmarshalChunk deserializes a Chunk from bytes.
func UnmarshalChunk(data []byte) (*core.Chunk, error) {
	chunk, _, err := ChunkMUS.Unmarshal(data)
	if err != nil {
		return nil, decodeError(err)
	}
	return &chunk, nil
}

func decodeError(err error) error {
	if errors.Is(err, mus.ErrTooSmallByteSlice) {
		return fmt.Errorf("%w: %w", ErrTruncatedData, err)
	}
	return fmt.Errorf("%w: %w", ErrSerializationFailed, err)
}
