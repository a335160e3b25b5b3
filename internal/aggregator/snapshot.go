package aggregator

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/nrgio/marketpulse/internal/domain"
)

const defaultSnapshotInterval = 30 * time.Second

// snapshotEnvelope is the on-disk msgpack payload.
type snapshotEnvelope struct {
	Buffers map[string][]domain.Bar
}

// SaveSnapshot serializes the current rolling buffers to path via msgpack. This is a
// warm-start cache, not an authoritative store: a failed or stale write never blocks
// ingestion.
func (a *Aggregator) SaveSnapshot(path string) error {
	data, err := msgpack.Marshal(snapshotEnvelope{Buffers: a.Snapshot()})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadSnapshotFile reads a previously saved snapshot from path. A missing file is not
// an error — the buffers simply start empty and refill from live bars.
func (a *Aggregator) LoadSnapshotFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var env snapshotEnvelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return err
	}
	a.LoadSnapshot(env.Buffers)
	return nil
}

// RunSnapshotLoop periodically writes a snapshot to path until ctx is cancelled,
// logging (but not failing) on write errors.
func (a *Aggregator) RunSnapshotLoop(ctx context.Context, path string, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = defaultSnapshotInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := a.SaveSnapshot(path); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("failed to write ring buffer snapshot")
			}
		}
	}
}
