package dataset

import (
	"context"
	"log/slog"
	"strings"
)

// Dispatcher routes questions to the answer engine of a ready dataset.
type Dispatcher struct {
	manager *Manager
	logger  *slog.Logger
}

func NewDispatcher(manager *Manager) (*Dispatcher, error) {
	if manager == nil {
		return nil, ErrManagerRequired
	}
	return &Dispatcher{
		manager: manager,
		logger:  manager.baseLogger.With("component", "dispatcher"),
	}, nil
}

// Ask answers question with the engine of dataset id. The dataset must be
// ready, which is checked before the question. The trimmed question is passed
// to the engine and its answer is returned unchanged. Engine failures are
// reported as ErrQueryExecution and are not retried.
func (d *Dispatcher) Ask(ctx context.Context, id, question string) (string, error) {
	rt, release, ok := d.manager.acquire(id)
	if !ok {
		return "", newError(ErrNotInitialized, id, nil)
	}
	defer release()

	question = strings.TrimSpace(question)
	if question == "" {
		return "", newError(ErrEmptyQuestion, id, nil)
	}

	answer, err := rt.engine.Answer(ctx, question)
	if err != nil {
		d.logger.Error("answer engine failed", "dataset", id, "err", err)
		return "", newError(ErrQueryExecution, id, err)
	}
	return answer, nil
}
