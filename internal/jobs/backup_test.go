package jobs

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/eduquest/internal/portal"
	"github.com/mind-engage/eduquest/internal/storage"
)

func TestBackupRun(t *testing.T) {
	ctx := context.Background()
	blobs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	b := &Backup{
		Data:  portal.NewRepository(portal.NewInMemoryStore()),
		Blobs: blobs,
		Log:   zap.NewNop(),
		Now:   func() time.Time { return time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC) },
	}
	key, err := b.Run(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if key != "backups/eduquest_data-20260304T050607Z.json" {
		t.Fatalf("key %q", key)
	}
	rc, err := blobs.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	raw, _ := io.ReadAll(rc)
	var d portal.SystemData
	if err := json.Unmarshal(raw, &d); err != nil || len(d.Students) != 1 {
		t.Fatalf("backup body: %v %+v", err, d)
	}
}

func TestSchedule(t *testing.T) {
	ctx := context.Background()
	b := &Backup{Log: zap.NewNop()}
	if c, err := Schedule(ctx, "", b); err != nil || c != nil {
		t.Fatalf("empty spec: %v %v", c, err)
	}
	if _, err := Schedule(ctx, "not a schedule", b); err == nil {
		t.Fatal("bad spec accepted")
	}
	c, err := Schedule(ctx, "@daily", b)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Entries()) != 1 {
		t.Fatalf("entries: %d", len(c.Entries()))
	}
	<-c.Stop().Done()
}
