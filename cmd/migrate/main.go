package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/geocoder89/focustodo/internal/config"
	"github.com/geocoder89/focustodo/internal/db"
	"github.com/geocoder89/focustodo/internal/observability"
)

const usage = `usage: migrate [up|down|steps N|version]`

func main() {
	steps := flag.Int("n", 1, "number of steps for the steps command (negative rolls back)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := observability.NewLogger(cfg.Env)

	cmd := flag.Arg(0)
	if cmd == "" {
		cmd = "up"
	}

	m, err := db.NewMigrator(cfg.DBURL)
	if err != nil {
		log.Error("migrator init failed", "err", err)
		os.Exit(1)
	}
	defer m.Close()

	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(*steps)
	case "version":
		var (
			v     uint
			dirty bool
		)
		v, dirty, err = m.Version()
		if err == nil {
			log.Info("schema version", "version", v, "dirty", dirty)
		}
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Error("migrate failed", "cmd", cmd, "err", err)
		os.Exit(1)
	}

	if cmd != "version" {
		log.Info("migrate done", "cmd", cmd)
	}
}
