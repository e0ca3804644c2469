package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/avellore/ragstack/internal/config"
	"github.com/avellore/ragstack/internal/data/redisStore"
	"github.com/avellore/ragstack/internal/data/store"
	"github.com/avellore/ragstack/internal/domain/jobModel"
	"github.com/redis/go-redis/v9"
)

func TestRedisJobStore_Lifecycle(t *testing.T) {
	// 1. Start miniredis
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	internalStore := redisStore.NewTestStore(client)
	jobStore := store.TestJobStore(internalStore)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	jobID := "job_abc_123"

	testJob := jobModel.Job{
		Id:      jobID,
		Status:  jobModel.JobStatusRunning,
		JobType: jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{
			SourceURLs: []string{"https://example.com/a"},
		},
		Ingestion: &jobModel.IngestionJob{
			JobID:      jobID,
			SourceURLs: []string{"https://example.com/a"},
			Status:     jobModel.JobStatusRunning,
			Total:      1,
		},
	}

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		// Test Save
		err := jobStore.SaveJob(ctx, testJob)
		if err != nil {
			t.Fatalf("SaveJob failed: %v", err)
		}

		// Test Get
		retrievedJob, found := jobStore.GetJob(ctx, jobID)
		if !found {
			t.Fatal("Job was saved but not found in Redis")
		}

		if len(retrievedJob.JobPayload.SourceURLs) != 1 {
			t.Fatalf("Data mismatch! Got %d source urls, want 1", len(retrievedJob.JobPayload.SourceURLs))
		}
		if retrievedJob.Ingestion == nil || retrievedJob.Ingestion.Total != 1 {
			t.Error("Ingestion progress did not survive the roundtrip")
		}
	})

	t.Run("Get Non-Existent Job", func(t *testing.T) {
		_, found := jobStore.GetJob(ctx, "ghost-id")
		if found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Delete Job", func(t *testing.T) {
		jobStore.DeleteJob(ctx, jobID)

		// Verify it's gone from miniredis
		if mr.Exists(jobID) {
			t.Error("Job still exists in Redis after DeleteJob call")
		}
	})
}

func TestRedisStore_ListPushRefreshesHistoryTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	internalStore := redisStore.NewTestStore(client)

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "ttl-trace")
	if err := internalStore.ListPush(ctx, "chat-1", "hello"); err != nil {
		t.Fatalf("ListPush failed: %v", err)
	}
	if ttl := mr.TTL("chat-1"); ttl != config.RedisMessageStoreTTL {
		t.Errorf("history TTL got %v, want %v", ttl, config.RedisMessageStoreTTL)
	}

	// every push restarts the expiry clock
	mr.FastForward(time.Hour)
	if err := internalStore.ListPush(ctx, "chat-1", "again"); err != nil {
		t.Fatalf("ListPush failed: %v", err)
	}
	if ttl := mr.TTL("chat-1"); ttl != config.RedisMessageStoreTTL {
		t.Errorf("refreshed TTL got %v, want %v", ttl, config.RedisMessageStoreTTL)
	}
}

func TestRedisJobStore_Race(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	jobStore := store.TestJobStore(redisStore.NewTestStore(client))

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
	job := jobModel.Job{Id: "race-job"}

	const workers = 50
	for i := 0; i < workers; i++ {
		go func() {
			_ = jobStore.SaveJob(ctx, job)
			_, _ = jobStore.GetJob(ctx, "race-job")
		}()
	}
}
