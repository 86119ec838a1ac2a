package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/cargoline/cargoline/internal/shared"
)

const defaultIdempotencyRetention = 30 * 24 * time.Hour

// IdempotencyCleaner purges payment references past their retention window.
type IdempotencyCleaner struct {
	store  *shared.IdempotencyStore
	logger *slog.Logger
}

func NewIdempotencyCleaner(store *shared.IdempotencyStore, logger *slog.Logger) *IdempotencyCleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &IdempotencyCleaner{store: store, logger: logger}
}

// HandleIdempotencyCleanupTask processes TaskIdempotencyCleanup tasks.
func (c *IdempotencyCleaner) HandleIdempotencyCleanupTask(ctx context.Context, t *asynq.Task) error {
	var payload IdempotencyCleanupPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	olderThan := payload.OlderThan
	if olderThan <= 0 {
		olderThan = defaultIdempotencyRetention
	}
	if err := c.store.Cleanup(ctx, olderThan); err != nil {
		return err
	}
	c.logger.Info("idempotency keys cleaned",
		slog.Duration("older_than", olderThan),
	)
	return nil
}
