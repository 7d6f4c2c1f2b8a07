package pg

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"tezui.dashboard/internal/core/domain"
	"tezui.dashboard/internal/core/ports"
	"tezui.dashboard/internal/core/record"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Every connection of an in-memory database is a new database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	repo, err := NewRepositoryWithDB(db)
	if err != nil {
		t.Fatalf("NewRepositoryWithDB() error = %v", err)
	}
	return repo
}

func TestRepository_SaveGet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	rec := &record.Record{
		Type:       domain.EntityTypeVertex,
		ID:         "vertex_1_0001_1_00",
		Attributes: map[string]any{"name": "Map 1", "hdfsReadBytes": int64(1) << 53},
	}
	rec.Relate("dag", "dag_1_0001_1")
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rec.Attributes["name"] = "Map 2"
	if err := repo.Save(ctx, rec); err != nil {
		t.Fatalf("Save() again error = %v", err)
	}

	got, err := repo.Get(ctx, domain.EntityTypeVertex, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Attributes["name"] != "Map 2" {
		t.Errorf("name = %v, want Map 2", got.Attributes["name"])
	}
	if got.Relationships["dag"].Data[0] != "dag_1_0001_1" {
		t.Errorf("dag relationship = %+v", got.Relationships["dag"])
	}

	e, err := record.Decode(got)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if v := e.(*domain.Vertex); v.HDFSReadBytes != int64(1)<<53 {
		t.Errorf("HDFSReadBytes = %d", v.HDFSReadBytes)
	}

	count, err := repo.Count(ctx, domain.EntityTypeVertex)
	if err != nil || count != 1 {
		t.Errorf("Count() = %d, %v", count, err)
	}
}

func TestRepository_NotFound(t *testing.T) {
	repo := newTestRepository(t)
	_, err := repo.Get(context.Background(), domain.EntityTypeDag, "dag_1_0001_1")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestRepository_ListDelete(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, id := range []string{"dag_1_0001_3", "dag_1_0001_1", "dag_1_0001_2"} {
		if err := repo.Save(ctx, &record.Record{Type: domain.EntityTypeDag, ID: id}); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}
	if err := repo.Save(ctx, &record.Record{Type: domain.EntityTypeTask, ID: "task_1_0001_1_00_000000"}); err != nil {
		t.Fatalf("Save(task) error = %v", err)
	}

	got, err := repo.List(ctx, domain.EntityTypeDag, 1, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "dag_1_0001_2" || got[1].ID != "dag_1_0001_3" {
		t.Errorf("List() = %v", got)
	}

	if err := repo.Delete(ctx, domain.EntityTypeDag, "dag_1_0001_2"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	count, _ := repo.Count(ctx, domain.EntityTypeDag)
	if count != 2 {
		t.Errorf("Count() after delete = %d, want 2", count)
	}
}
