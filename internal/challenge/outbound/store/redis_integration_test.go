package store

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gocustody/internal/challenge/outbound/store/storetest"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

func TestRedis_RealServer(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, "redis:7-alpine")
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}

	uri, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	opts, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}

	storetest.Run(t, func(t *testing.T) storetest.Harness {
		rdb := redis.NewClient(opts)
		t.Cleanup(func() {
			_ = rdb.FlushDB(ctx).Err()
			_ = rdb.Close()
		})

		return storetest.Harness{Store: NewRedis(rdb, newTestHMAC(t), instrument.NewNoop())}
	})
}
