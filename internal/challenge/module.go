package challenge

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gocustody/internal/challenge/inbound"
	"github.com/shandysiswandi/gocustody/internal/challenge/outbound/db"
	"github.com/shandysiswandi/gocustody/internal/challenge/outbound/mq"
	"github.com/shandysiswandi/gocustody/internal/challenge/outbound/store"
	"github.com/shandysiswandi/gocustody/internal/challenge/usecase"
	"github.com/shandysiswandi/gocustody/internal/pkg/clock"
	"github.com/shandysiswandi/gocustody/internal/pkg/config"
	"github.com/shandysiswandi/gocustody/internal/pkg/goroutine"
	"github.com/shandysiswandi/gocustody/internal/pkg/hash"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"github.com/shandysiswandi/gocustody/internal/pkg/messaging"
	"github.com/shandysiswandi/gocustody/internal/pkg/otp"
	"github.com/shandysiswandi/gocustody/internal/pkg/router"
	"github.com/shandysiswandi/gocustody/internal/pkg/seal"
	"github.com/shandysiswandi/gocustody/internal/pkg/uid"
	"github.com/shandysiswandi/gocustody/internal/pkg/validator"
)

var (
	// ErrUnknownStoreDriver is returned for an unsupported modules.challenge.store.driver.
	ErrUnknownStoreDriver = errors.New("challenge: unknown store driver")
	// ErrCacheRequired is returned when the redis driver is selected without a client.
	ErrCacheRequired = errors.New("challenge: redis store requires a cache connection")
)

type Dependency struct {
	Ctx    context.Context `validate:"required"`
	DBConn *pgxpool.Pool `validate:"required"`
	// CacheConn is only required by the redis store driver.
	CacheConn  redis.UniversalClient
	Goroutine  *goroutine.Manager         `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	StoreKey   hash.Hash                  `validate:"required"`
	Encryptor  seal.Encryptor             `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Totp       otp.OTP                    `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

// New wires the challenge module and registers its endpoints. The returned
// closer releases the challenge store.
func New(dep Dependency) (io.Closer, error) {
	if err := dep.Validator.Validate(dep); err != nil {
		return nil, err
	}

	repoSecret := db.NewDB(dep.DBConn, dep.Encryptor, dep.Totp, dep.Instrument)
	if dep.Config.GetBool("modules.challenge.migrate") {
		if err := repoSecret.Migrate(dep.Ctx); err != nil {
			return nil, fmt.Errorf("challenge: migrate: %w", err)
		}
	}

	repoStore, closer, err := newStore(dep)
	if err != nil {
		return nil, err
	}

	ucDep := usecase.Dependency{
		RepoStore:  repoStore,
		RepoSecret: repoSecret,
		Validator:  dep.Validator,
		Config:     dep.Config,
		UUID:       dep.UUID,
		UID:        dep.UID,
		Clock:      dep.Clock,
		Totp:       dep.Totp,
		Instrument: dep.Instrument,
		Goroutine:  dep.Goroutine,
	}
	if dep.Config.GetBool("modules.challenge.audit.enabled") {
		ucDep.RepoMessaging = mq.NewMessaging(dep.Messaging, dep.Instrument, dep.Config.GetString("modules.challenge.audit.topic"))
	}

	inbound.RegisterHTTPEndpoint(dep.Router, usecase.New(ucDep))

	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newStore(dep Dependency) (store.Store, io.Closer, error) {
	driver := dep.Config.GetString("modules.challenge.store.driver")

	switch driver {
	case store.DriverRedis:
		if dep.CacheConn == nil {
			return nil, nil, ErrCacheRequired
		}
		return store.NewRedis(dep.CacheConn, dep.StoreKey, dep.Instrument), nopCloser{}, nil
	case store.DriverBolt:
		b, err := store.NewBolt(store.BoltConfig{
			Path:          dep.Config.GetString("modules.challenge.store.bolt.path"),
			SweepInterval: dep.Config.GetSecond("modules.challenge.store.bolt.sweep_interval_seconds"),
		}, dep.Clock, dep.StoreKey, dep.Instrument)
		if err != nil {
			return nil, nil, err
		}
		return b, b, nil
	case store.DriverMemory, "":
		return store.NewMemory(dep.Clock, dep.StoreKey), nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownStoreDriver, driver)
	}
}
