package badger

import (
	"encoding/binary"

	"github.com/poiesic/dossier/core"
)

const (
	chunkPrefix       = "chunk"
	chunkEntityPrefix = "chkent"
)

func makeChunkKey(id core.ID) []byte {
	return makeIDKey(chunkPrefix, id)
}

func makeEntityChunkKey(entityID, chunkID core.ID) []byte {
	prefix := chunkEntityPrefix + ":"
	buf := make([]byte, len(prefix)+16) // 8 bytes for entityID + 8 bytes for chunkID
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(entityID))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(chunkID))
	return buf
}

func makePartialEntityChunkKey(entityID core.ID) []byte {
	return makeIDKey(chunkEntityPrefix, entityID)
}

func makeIDKey(prefix string, id core.ID) []byte {
	prefix += ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}
