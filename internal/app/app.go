package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gocustody/internal/pkg/clock"
	"github.com/shandysiswandi/gocustody/internal/pkg/config"
	"github.com/shandysiswandi/gocustody/internal/pkg/goroutine"
	"github.com/shandysiswandi/gocustody/internal/pkg/hash"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"github.com/shandysiswandi/gocustody/internal/pkg/jwt"
	"github.com/shandysiswandi/gocustody/internal/pkg/messaging"
	"github.com/shandysiswandi/gocustody/internal/pkg/otp"
	"github.com/shandysiswandi/gocustody/internal/pkg/router"
	"github.com/shandysiswandi/gocustody/internal/pkg/seal"
	"github.com/shandysiswandi/gocustody/internal/pkg/uid"
	"github.com/shandysiswandi/gocustody/internal/pkg/validator"
)

// App owns every long lived dependency of the custody challenge service.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	config config.Config
	ins    instrument.Instrumentation

	goroutine   *goroutine.Manager
	validator   validator.Validator
	clock       clock.Clocker
	storeKey    hash.Hash
	uid         uid.NumberID
	uuid        uid.StringID
	challengeID uid.StringID
	totp        otp.OTP
	jwt         jwt.JWT
	encryptor   seal.Encryptor

	dbConn    *pgxpool.Pool
	cacheConn redis.UniversalClient
	messaging messaging.Messaging
	casbin    *casbin.Enforcer

	router     *router.Router
	httpServer *http.Server

	// closers run in reverse registration order on Stop.
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

// New wires the service. Any failure is fatal.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel}

	for _, step := range []func(){
		a.initConfig,
		a.initInstrument,
		a.initLibraries,
		a.initJWT,
		a.initDatabase,
		a.initCache,
		a.initMessaging,
		a.initCasbin,
		a.initHTTPServer,
		a.initModules,
	} {
		step()
	}

	return a
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// must exits the process when err is set.
func must(err error, msg string, args ...any) {
	if err == nil {
		return
	}
	slog.Error(msg, append(args, "error", err)...)
	os.Exit(1)
}
