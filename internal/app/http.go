package app

import (
	"net/http"

	"github.com/rs/cors"
	"github.com/shandysiswandi/gocustody/internal/pkg/router"
)

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		JWT:        a.jwt,
		Instrument: a.ins,
		Enforcer:   a.casbin,
	})
	a.router.GET("/health", a.health)

	handler := cors.New(cors.Options{
		AllowedOrigins:   a.config.GetArray("app.server.cors"),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Correlation-ID"},
		AllowCredentials: true,
	}).Handler(a.router)

	key := func(k string) string { return "app.server.http." + k }
	a.httpServer = &http.Server{
		Addr:              a.config.GetString(key("address")),
		Handler:           handler,
		ReadTimeout:       a.config.GetSecond(key("read_timeout_seconds")),
		ReadHeaderTimeout: a.config.GetSecond(key("read_header_timeout_seconds")),
		WriteTimeout:      a.config.GetSecond(key("write_timeout_seconds")),
		IdleTimeout:       a.config.GetSecond(key("idle_timeout_seconds")),
	}
}
