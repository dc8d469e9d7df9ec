package portal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mind-engage/eduquest/internal/db"
	"github.com/mind-engage/eduquest/internal/portal"
	"github.com/mind-engage/eduquest/internal/storage"
)

// exerciseStore runs the SnapshotStore contract against one driver.
func exerciseStore(t *testing.T, s portal.SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	d, v, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if v != 0 || len(d.Students) != 1 {
		t.Fatalf("empty load: version %d students %d", v, len(d.Students))
	}

	d.Students = append(d.Students, portal.Student{Name: "Ann", RollNumber: "S002", DOB: "2001-01-01", AssignedSubjectCodes: []string{}})
	v1, err := s.Save(ctx, d, v)
	if err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := s.Save(ctx, d, v); !errors.Is(err, portal.ErrConflict) {
		t.Fatalf("stale save: want ErrConflict, got %v", err)
	}

	got, v2, err := s.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if v2 != v1 || len(got.Students) != 2 || got.Students[1].RollNumber != "S002" {
		t.Fatalf("reload: version %d/%d students %+v", v2, v1, got.Students)
	}

	got.Students = got.Students[:1]
	v3, err := s.Save(ctx, got, portal.AnyVersion)
	if err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if v3 <= v2 {
		t.Fatalf("version did not advance: %d -> %d", v2, v3)
	}
	final, _, _ := s.Load(ctx)
	if len(final.Students) != 1 || final.Subjects == nil || final.Attempts == nil {
		t.Fatalf("final: %+v", final)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, portal.NewInMemoryStore())
}

func TestSQLStoreSQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := db.Open(ctx, db.DriverSQLite, "file:portal_state_test?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer conn.Close()
	exerciseStore(t, portal.NewSQLStore(conn, string(db.DriverSQLite)))
}

func TestBlobStoreFS(t *testing.T) {
	fs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, portal.NewBlobStore(fs))

	// a fresh BlobStore over the same directory sees the saved snapshot
	d, v, err := portal.NewBlobStore(fs).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 || len(d.Students) != 1 {
		t.Fatalf("reopen: version %d students %d", v, len(d.Students))
	}
}
