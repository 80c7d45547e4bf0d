package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"github.com/shandysiswandi/gocustody/internal/challenge/outbound/store"
	"github.com/shandysiswandi/gocustody/internal/pkg/messaging"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const pubsubScope = "https://www.googleapis.com/auth/pubsub"

// waitReady pings a dependency with Fibonacci backoff for at most 30s.
func waitReady(ctx context.Context, name string, ping func(context.Context) error) error {
	b := retry.WithMaxDuration(30*time.Second,
		retry.WithCappedDuration(5*time.Second, retry.NewFibonacci(200*time.Millisecond)))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if err := ping(pingCtx); err != nil {
			slog.WarnContext(ctx, "dependency not ready", "name", name, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
}

// initDatabase opens the pool backing the secret provider.
func (a *App) initDatabase() {
	pc, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	must(err, "failed to parse database url")

	pc.MaxConns = a.config.GetInt32("database.pool.max_conns")
	pc.MinConns = a.config.GetInt32("database.pool.min_conns")
	pc.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	pc.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	pc.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, pc)
	must(err, "failed to create database pool")
	must(waitReady(a.ctx, "database", pool.Ping), "database unreachable")

	a.dbConn = pool
	a.onClose("Database", func(context.Context) error {
		pool.Close()
		return nil
	})
}

// initCache connects Redis only when the challenge store runs on it.
func (a *App) initCache() {
	if a.config.GetString("modules.challenge.store.driver") != store.DriverRedis {
		return
	}

	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	must(err, "failed to parse redis url")

	rdb := redis.NewClient(opt)
	must(waitReady(a.ctx, "redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }), "redis unreachable")

	a.cacheConn = rdb
	a.onClose("Redis", func(context.Context) error { return rdb.Close() })
}

// initMessaging builds the audit transport selected by messaging.driver.
func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")

	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ:    messaging.NSQConfig{ProducerAddr: a.config.GetString("messaging.nsq.producer_addr"), ProducerConfig: a.nsqConfig()},
		NATS:   messaging.NATSConfig{URL: a.config.GetString("messaging.nats.url"), Options: a.natsOptions()},
		Kafka:  messaging.KafkaConfig{Brokers: a.config.GetArray("messaging.kafka.brokers"), Dialer: a.kafkaDialer()},
		PubSub: messaging.PubSubConfig{ProjectID: a.config.GetString("messaging.pubsub.project_id"), ClientOptions: a.pubsubOptions()},
		Logger: slog.Default(),
	})
	must(err, "failed to init messaging", "driver", driver)

	a.messaging = client
	a.onClose("Messaging", func(context.Context) error { return client.Close() })
}

func (a *App) nsqConfig() *nsq.Config {
	cfg := nsq.NewConfig()
	cfg.DialTimeout = a.config.GetSecond("messaging.nsq.producer_config.dial_timeout_seconds")
	cfg.ReadTimeout = a.config.GetSecond("messaging.nsq.producer_config.read_timeout_seconds")
	cfg.WriteTimeout = a.config.GetSecond("messaging.nsq.producer_config.write_timeout_seconds")
	return cfg
}

func (a *App) natsOptions() []nats.Option {
	key := func(k string) string { return "messaging.nats." + k }

	return []nats.Option{
		nats.Name(a.config.GetString(key("name"))),
		nats.MaxReconnects(a.config.GetInt(key("max_reconnects"))),
		nats.Timeout(a.config.GetSecond(key("timeout_seconds"))),
		nats.ReconnectWait(a.config.GetSecond(key("reconnect_wait_seconds"))),
		nats.PingInterval(a.config.GetSecond(key("ping_interval_seconds"))),
		nats.MaxPingsOutstanding(a.config.GetInt(key("max_pings_outstanding"))),
		nats.RetryOnFailedConnect(a.config.GetBool(key("retry_on_failed_connect"))),
	}
}

func (a *App) kafkaDialer() *kafka.Dialer {
	return &kafka.Dialer{
		ClientID:  a.config.GetString("messaging.kafka.client_id"),
		Timeout:   a.config.GetSecond("messaging.kafka.dial_timeout_seconds"),
		DualStack: true,
	}
}

func (a *App) pubsubOptions() []option.ClientOption {
	var opts []option.ClientOption

	if a.config.GetBool("messaging.pubsub.without_auth") {
		opts = append(opts, option.WithoutAuthentication())
	}
	if raw := a.config.GetBinary("messaging.pubsub.credentials_json"); len(raw) > 0 {
		creds, err := google.CredentialsFromJSON(a.ctx, raw, pubsubScope)
		must(err, "failed to parse pubsub credentials")
		opts = append(opts, option.WithCredentials(creds))
	}
	if ep := strings.TrimSpace(a.config.GetString("messaging.pubsub.endpoint")); ep != "" {
		opts = append(opts, option.WithEndpoint(ep))
	}
	return opts
}
