package storage

import (
	"testing"

	"github.com/poiesic/dossier/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("test content")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty data", []byte{}},
		{"unterminated varint", []byte{0x80, 0x80}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalID(tt.data)
			assert.ErrorIs(t, err, ErrTruncatedData)
		})
	}
}

func TestMarshalUnmarshalChunk(t *testing.T) {
	chunk := &core.Chunk{
		Id:       core.IDFromContent("It was a dark night"),
		Index:    3,
		Source:   "data/a_study_in_scarlet.txt",
		Contents: "It was a dark night",
		Vector:   []float32{0.1, 0.2, 0.3},
	}

	data := MarshalChunk(chunk)
	assert.Len(t, data, ChunkMUS.Size(*chunk))

	decoded, err := UnmarshalChunk(data)
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)

	n, err := ChunkMUS.Skip(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
}

func TestMarshalUnmarshalChunk_NoVector(t *testing.T) {
	chunk := &core.Chunk{
		Id:       core.IDFromContent("Elementary"),
		Source:   "data/sign_of_four.txt",
		Contents: "Elementary",
	}

	decoded, err := UnmarshalChunk(MarshalChunk(chunk))
	require.NoError(t, err)
	assert.Equal(t, chunk, decoded)
	assert.Nil(t, decoded.Vector)
}

func TestUnmarshalChunk_Truncated(t *testing.T) {
	data := MarshalChunk(&core.Chunk{
		Id:       core.IDFromContent("The game is afoot"),
		Index:    1,
		Source:   "data/abbey_grange.txt",
		Contents: "The game is afoot",
		Vector:   []float32{0.5, 0.5},
	})

	for _, cut := range []int{0, 3, len(data) / 2, len(data) - 1} {
		_, err := UnmarshalChunk(data[:cut])
		assert.ErrorIs(t, err, ErrTruncatedData, "cut at %d", cut)
	}
}
