package app

import (
	"cmp"
	"context"
	"os"

	libOTP "github.com/pquerna/otp"
	"github.com/samber/lo"
	"github.com/shandysiswandi/gocustody/internal/pkg/clock"
	"github.com/shandysiswandi/gocustody/internal/pkg/config"
	"github.com/shandysiswandi/gocustody/internal/pkg/goroutine"
	"github.com/shandysiswandi/gocustody/internal/pkg/hash"
	"github.com/shandysiswandi/gocustody/internal/pkg/instrument"
	"github.com/shandysiswandi/gocustody/internal/pkg/jwt"
	"github.com/shandysiswandi/gocustody/internal/pkg/otp"
	"github.com/shandysiswandi/gocustody/internal/pkg/seal"
	"github.com/shandysiswandi/gocustody/internal/pkg/uid"
	"github.com/shandysiswandi/gocustody/internal/pkg/validator"
)

// configPath honours CONFIG_PATH, then LOCAL=true for a checkout, then the container mount.
func configPath() string {
	local := lo.Ternary(os.Getenv("LOCAL") == "true", "./config/config.yaml", "")
	return cmp.Or(os.Getenv("CONFIG_PATH"), local, "/config/config.yaml")
}

func (a *App) initConfig() {
	cfg, err := config.NewViper(configPath())
	must(err, "failed to load config", "path", configPath())

	if tz := cfg.GetString("app.tz"); tz != "" {
		//nolint:errcheck,gosec // best effort, time falls back to UTC
		os.Setenv("TZ", tz)
	}

	a.config = cfg
	a.onClose("Config", func(context.Context) error { return cfg.Close() })
}

func (a *App) initInstrument() {
	key := func(k string) string { return "instrument." + k }

	ins, err := instrument.New(a.ctx, &instrument.Config{
		Enabled:          a.config.GetBool(key("enabled")),
		ServiceName:      a.config.GetString(key("service_name")),
		ServiceVersion:   a.config.GetString(key("service_version")),
		Environment:      a.config.GetString(key("env")),
		OTLPEndpoint:     a.config.GetString(key("otlp_endpoint")),
		OTLPSecure:       a.config.GetBool(key("otlp_secure")),
		TraceSampleRatio: a.config.GetFloat64(key("trace_sample_ratio")),
		MetricsInterval:  a.config.GetSecond(key("metric_interval_seconds")),
		MaskFields:       a.config.GetArray(key("log_mask_fields")),
		LogLevel:         a.config.GetString(key("log_level")),
	})
	must(err, "failed to init instrumentation")

	a.ins = ins
	a.onClose("Instrument", ins.Shutdown)
}

func (a *App) initLibraries() {
	var err error

	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.challengeID = uid.NewRandomUUID()
	a.goroutine = goroutine.NewManager(
		a.config.GetInt("app.server.max_goroutine"),
		a.config.GetSecond("app.server.goroutine_timeout_seconds"),
	)

	a.storeKey, err = hash.NewHMACSHA256(a.config.GetString("modules.challenge.store.key_secret"))
	must(err, "failed to init challenge store key")

	a.validator, err = validator.NewV10Validator()
	must(err, "failed to init validator")

	a.uid, err = uid.NewSnowflake()
	must(err, "failed to init snowflake node")

	digits := lo.Ternary(a.config.GetInt("mfa.totp.digits") == 8, libOTP.DigitsEight, libOTP.DigitsSix)
	a.totp = otp.NewTOTP(a.config.GetUint("mfa.totp.period"), a.config.GetUint("mfa.totp.skew"), digits)

	keys, err := seal.NewStaticKeyProvider(a.config.GetString("mfa.secret"))
	must(err, "failed to init seal key, mfa.secret must be base64 of 32 bytes")
	a.encryptor = seal.NewAESGCMEncryptor(keys)
}

func (a *App) initJWT() {
	verifier, err := jwt.NewHS512(jwt.Config{
		Secret:     []byte(a.config.GetString("jwt.secret")),
		Issuer:     a.config.GetString("jwt.issuer"),
		Audiences:  a.config.GetArray("jwt.audiences"),
		TTLMinutes: a.config.GetMinute("jwt.ttl_minutes"),
		Clock:      a.clock,
		UUID:       a.uuid,
	})
	must(err, "failed to init jwt verifier")

	a.jwt = verifier
}
