package repository

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"chatWorker/worker/database"
	"chatWorker/worker/models"
)

func newTestPostgresRepo(t *testing.T) *PostgresRepo {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Skipping test: TEST_DATABASE_URL not set")
	}

	pool, err := database.ConnectPostgres(context.Background(), url)
	if err != nil {
		t.Fatalf("ConnectPostgres failed: %v", err)
	}
	repo := NewPostgresRepo(pool)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestPostgresRepo_Lifecycle(t *testing.T) {
	repo := newTestPostgresRepo(t)
	ctx := context.Background()
	key := models.NewTaskKey(uuid.New().String(), models.KindSTT, "ro")

	started, err := repo.ClaimTask(ctx, key, "a1", time.Time{})
	if err != nil || !started {
		t.Fatalf("first claim = %v, %v", started, err)
	}
	started, err = repo.ClaimTask(ctx, key, "a1", time.Time{})
	if err != nil || started {
		t.Fatalf("second claim = %v, %v", started, err)
	}

	if err := repo.FailTask(ctx, key, "a1"); err != nil {
		t.Fatalf("FailTask failed: %v", err)
	}
	started, err = repo.ClaimTask(ctx, key, "a1", time.Time{})
	if err != nil || !started {
		t.Fatalf("claim after failure = %v, %v", started, err)
	}
	if err := repo.CompleteTask(ctx, key, "a1", "transcript"); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if err := repo.FailTask(ctx, key, "a1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("fail on done = %v, want ErrInvalidTransition", err)
	}

	task, err := repo.GetTask(ctx, key)
	if err != nil {
		t.Fatalf("GetTask failed: %v", err)
	}
	if task.Status != models.StatusDone || task.ResultText() != "transcript" {
		t.Errorf("task = %+v", task)
	}
}

func TestPostgresRepo_ConcurrentClaimsSingleWinner(t *testing.T) {
	repo := newTestPostgresRepo(t)
	key := models.NewTaskKey(uuid.New().String(), models.KindTranslate, "auto")

	var (
		wg      sync.WaitGroup
		winners atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			started, err := repo.ClaimTask(context.Background(), key, uuid.NewString(), time.Time{})
			if err != nil {
				t.Errorf("claim error: %v", err)
				return
			}
			if started {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := winners.Load(); got != 1 {
		t.Fatalf("winners = %d, want 1", got)
	}
}
