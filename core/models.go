package core

import (
	"encoding/binary"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so rebuilding the same
// source produces the same identifiers.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Chunk is a contiguous segment of source text prepared for retrieval.
type Chunk struct {
	Id       ID
	Index    int       // Position in the source, starting at 0
	Source   string    // Path of the file the chunk was cut from
	Contents string
	Vector   []float32 // Embedding vector (empty when no embedder is configured)
}

// Entity is a named thing extracted from one or more chunks.
type Entity struct {
	Id          ID
	Name        string
	Type        string
	Description string
	Importance  int  // Highest importance score seen across mentions, 1-10
	ChunkIds    []ID // Chunks mentioning the entity, in source order
}

// Tuple returns a string representation of the entity as "(Type,Name)".
// This is used for generating deterministic IDs.
func (e *Entity) Tuple() string {
	return EntityTuple(e.Name, e.Type)
}

// EntityTuple builds the canonical "(type,name)" key for an entity.
// Names and types are lowercased and trimmed so spelling variants collapse.
func EntityTuple(name, entityType string) string {
	return "(" + NormalizeLabel(entityType) + "," + NormalizeLabel(name) + ")"
}

// NormalizeLabel lowercases a label and collapses inner whitespace.
func NormalizeLabel(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Relationship is a directed, typed edge between two entities.
type Relationship struct {
	Id          ID
	SourceId    ID
	TargetId    ID
	Type        string
	Description string
	Weight      float64
	ChunkIds    []ID // Chunks the relationship was extracted from
}

// Triple returns a string representation "(source,type,target)" used for IDs.
func (r *Relationship) Triple() string {
	return RelationshipTriple(r.SourceId, r.Type, r.TargetId)
}

// RelationshipTriple builds the canonical key for a relationship.
func RelationshipTriple(source ID, relType string, target ID) string {
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(formatID(source))
	sb.WriteString(",")
	sb.WriteString(NormalizeLabel(relType))
	sb.WriteString(",")
	sb.WriteString(formatID(target))
	sb.WriteString(")")
	return sb.String()
}

func formatID(id ID) string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	const hex = "0123456789abcdef"
	out := make([]byte, 16)
	for i, b := range buf {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0x0f]
	}
	return string(out)
}

// Graph is the knowledge graph derived from a dataset's chunks.
// A Graph is never mutated after it has been built.
type Graph struct {
	Entities      []*Entity
	Relationships []*Relationship

	byID map[ID]*Entity
}

// NewGraph creates a Graph and indexes its entities by ID.
func NewGraph(entities []*Entity, relationships []*Relationship) *Graph {
	g := &Graph{
		Entities:      entities,
		Relationships: relationships,
		byID:          make(map[ID]*Entity, len(entities)),
	}
	for _, e := range entities {
		g.byID[e.Id] = e
	}
	return g
}

// Entity returns the entity with the given ID, or nil.
func (g *Graph) Entity(id ID) *Entity {
	if g == nil {
		return nil
	}
	if g.byID == nil {
		for _, e := range g.Entities {
			if e.Id == id {
				return e
			}
		}
		return nil
	}
	return g.byID[id]
}

// RelationshipsOf returns every relationship where the entity is source or target.
func (g *Graph) RelationshipsOf(id ID) []*Relationship {
	if g == nil {
		return nil
	}
	var out []*Relationship
	for _, r := range g.Relationships {
		if r.SourceId == id || r.TargetId == id {
			out = append(out, r)
		}
	}
	return out
}

// EntityCount returns the number of entities, treating a nil graph as empty.
func (g *Graph) EntityCount() int {
	if g == nil {
		return 0
	}
	return len(g.Entities)
}

// RelationshipCount returns the number of relationships, treating a nil graph as empty.
func (g *Graph) RelationshipCount() int {
	if g == nil {
		return 0
	}
	return len(g.Relationships)
}

// SimilarityMatch represents a chunk match from vector similarity search.
type SimilarityMatch struct {
	ChunkId ID
	Score   float32
}

// SearchResult represents a search result with the full chunk and relevance score.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}
