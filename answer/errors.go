package answer

import "errors"

var (
	ErrEmbedderRequired  = errors.New("embedder is required")
	ErrGeneratorRequired = errors.New("generator is required")
	ErrGraphRequired     = errors.New("graph is required")
	ErrEngineClosed      = errors.New("answer engine is closed")
	ErrInvalidMaxHits    = errors.New("max hits must be positive")
)
