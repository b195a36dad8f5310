package main

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/persistence"
	"github.com/sennetconsortium/senotype-editor/pkg/configuration"
)

func loadConfig() (*configuration.Configuration, error) {
	conf, err := configuration.Load(".env", ".env.local")
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	return conf, nil
}

func openDB(ctx context.Context, conf *configuration.Configuration) (*sqlx.DB, error) {
	if conf.Database.Driver == "memory" {
		return nil, withCode(exitUsage, fmt.Errorf("DB_DRIVER=memory has no persistent senlib; use pgx or sqlite"))
	}
	db, err := persistence.Open(ctx, conf.Database)
	if err != nil {
		return nil, withCode(exitDB, err)
	}
	return db, nil
}
