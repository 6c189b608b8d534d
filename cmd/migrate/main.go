package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"strconv"

	"github.com/TONMAIII56/smart-exam-mastery-sub000/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var dir string
	var steps int
	flag.StringVar(&dir, "path", "migrations", "Directory containing migration files")
	flag.IntVar(&steps, "steps", 0, "Limit up/down to N steps (0 = all)")
	flag.Parse()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	m, err := migrate.New(fmt.Sprintf("file://%s", dir), cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Migration init: %v", err)
	}

	args := flag.Args()
	if len(args) < 1 {
		usage()
		return
	}

	switch args[0] {
	case "up":
		if steps > 0 {
			err = m.Steps(steps)
		} else {
			err = m.Up()
		}
		report(err, "Migrated up")
	case "down":
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		report(err, "Migrated down")
	case "version":
		version, dirty, err := m.Version()
		if err != nil {
			log.Fatalf("Version: %v", err)
		}
		fmt.Printf("Version: %d, Dirty: %t\n", version, dirty)
	case "force":
		if len(args) < 2 {
			log.Fatal("force requires a version argument")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid version: %v", err)
		}
		if err := m.Force(v); err != nil {
			log.Fatalf("Force: %v", err)
		}
		fmt.Printf("Forced version to %d\n", v)
	default:
		usage()
	}
}

func report(err error, ok string) {
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration: %v", err)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		fmt.Println("No change")
		return
	}
	fmt.Println(ok)
}

func usage() {
	fmt.Println("Usage: migrate [flags] <command>")
	fmt.Println("Commands: up, down, version, force <version>")
	fmt.Println("Flags:")
	flag.PrintDefaults()
}
