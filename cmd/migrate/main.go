package main

import (
	"context"
	"errors"
	"flag"

	"github.com/angelmondragon/threadmart-backend/internal/bootstrap"
	"github.com/angelmondragon/threadmart-backend/pkg/config"
	"github.com/angelmondragon/threadmart-backend/pkg/db"
	"github.com/angelmondragon/threadmart-backend/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "up", "migration command: up|down|redo|status|version|create|validate")
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	rt, ctx, stop := bootstrap.Start("migrate")
	defer stop()
	defer rt.Close(ctx)
	logg := rt.Logger
	ctx = logg.WithFields(ctx, map[string]any{"cmd": *cmd, "dir": *dir})

	if offline(ctx, rt, *cmd, *dir, *name) {
		return
	}
	if rt.Config.DB.Driver == config.DriverSQLite {
		rt.Must(ctx, "migrator", errors.New("goose migrations target postgres; sqlite uses auto-migrate"))
	}

	client, err := db.New(ctx, rt.Config.DB, logg)
	rt.Must(ctx, "database", err)
	rt.Track("database", client.Close)

	sqlDB, err := client.DB().DB()
	rt.Must(ctx, "sql handle", err)
	migrator, err := migrate.NewMigrator(sqlDB, *dir, logg)
	rt.Must(ctx, "migrator", err)

	if err := migrator.Exec(ctx, *cmd, *version); err != nil {
		logg.Error(ctx, "migration failed", err)
		rt.Fail(ctx)
	}
	logg.Info(ctx, "migration finished")
}

// offline handles the commands that only touch the migrations directory.
func offline(ctx context.Context, rt *bootstrap.Runtime, cmd, dir, name string) bool {
	switch cmd {
	case "create":
		if name == "" {
			rt.Must(ctx, "create", errors.New("missing -name for create"))
		}
		path, err := migrate.CreateSQLMigration(dir, name)
		rt.Must(ctx, "create", err)
		rt.Logger.Info(rt.Logger.WithField(ctx, "path", path), "migration created")
		return true
	case "validate":
		rt.Must(ctx, "validate", migrate.ValidateDir(dir))
		rt.Logger.Info(ctx, "migration validation passed")
		return true
	}
	return false
}
