// Package jobs holds the portal's scheduled background work.
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/portal"
	"github.com/mind-engage/eduquest/internal/storage"
)

type SnapshotLoader interface {
	Load(ctx context.Context) (portal.SystemData, error)
}

// Backup copies the current snapshot into the blob store.
type Backup struct {
	Data  SnapshotLoader
	Blobs storage.BlobStore
	Log   *zap.Logger
	Now   func() time.Time
}

// Run writes one backup and returns its key.
func (b *Backup) Run(ctx context.Context) (string, error) {
	d, err := b.Data.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("load snapshot: %w", err)
	}
	buf, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return "", err
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	key := fmt.Sprintf("backups/%s-%s.json", portal.StateKey, now().UTC().Format("20060102T150405Z"))
	return b.Blobs.Put(ctx, key, bytes.NewReader(buf), "application/json")
}

// Schedule registers the backup on spec and starts the scheduler. An empty
// spec disables backups and returns a nil scheduler. Stop the returned cron
// on shutdown.
func Schedule(ctx context.Context, spec string, b *Backup) (*cron.Cron, error) {
	if spec == "" {
		return nil, nil
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		b.Log.Info("running job: snapshot backup")
		key, err := b.Run(ctx)
		if err != nil {
			b.Log.Error("snapshot backup failed", zap.Error(err))
			return
		}
		b.Log.Info("snapshot backup written", zap.String("key", key))
	})
	if err != nil {
		return nil, fmt.Errorf("backup schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
