package dataset

// State is where a dataset is in its lifecycle.
//
//	Uninitialized --Initialize ok--> Ready
//	Uninitialized --Initialize err-> Failed
//	Failed        --Initialize ok--> Ready
//	Failed        --Initialize err-> Failed
//	Ready         --Initialize-----> Ready (no-op)
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stats summarizes a built dataset.
type Stats struct {
	ChunkCount        int `json:"chunkCount"`
	EntityCount       int `json:"entityCount"`
	RelationshipCount int `json:"relationshipCount"`
}
