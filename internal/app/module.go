package app

import (
	"context"

	"github.com/shandysiswandi/gocustody/internal/challenge"
)

func (a *App) initModules() {
	if !a.config.GetBool("modules.challenge.enabled") {
		return
	}

	store, err := challenge.New(challenge.Dependency{
		Ctx:        a.ctx,
		DBConn:     a.dbConn,
		CacheConn:  a.cacheConn,
		Goroutine:  a.goroutine,
		Router:     a.router,
		Messaging:  a.messaging,
		Config:     a.config,
		Instrument: a.ins,
		UID:        a.uid,
		UUID:       a.challengeID,
		StoreKey:   a.storeKey,
		Encryptor:  a.encryptor,
		Clock:      a.clock,
		Totp:       a.totp,
		Validator:  a.validator,
	})
	must(err, "failed to init challenge module")

	a.onClose("ChallengeStore", func(context.Context) error { return store.Close() })
}
