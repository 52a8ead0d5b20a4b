package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumectl/internal/api"
	"github.com/dokzlo13/lumectl/internal/config"
	"github.com/dokzlo13/lumectl/internal/db"
	"github.com/dokzlo13/lumectl/internal/ledger"
	"github.com/dokzlo13/lumectl/internal/session"
	"github.com/dokzlo13/lumectl/internal/store"
)

const historyFile = "history.db"

// app wires the store, the remote client and the session manager for one
// command invocation. The client is constructed here and threaded through
// explicitly; there is no ambient singleton.
type app struct {
	cfg     *config.Config
	store   *store.Store
	client  *api.Client
	session *session.Manager
}

func newApp(cfg *config.Config) (*app, error) {
	dir, err := cfg.ResolveDataDir()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(dir)
	if err != nil {
		return nil, err
	}
	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout.Duration(), cfg.API.RateLimitRPS)
	return &app{
		cfg:     cfg,
		store:   st,
		client:  client,
		session: session.NewManager(st, client),
	}, nil
}

// run dispatches one parsed command line.
func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("device name or command required (see --help)")
	}

	switch args[0] {
	case "devices":
		return a.cmdDevices(ctx)
	case "device":
		if len(args) < 2 {
			return errors.New("device subcommand required: add, remove or import")
		}
		switch args[1] {
		case "add":
			return a.cmdDeviceAdd(args[2:])
		case "remove":
			return a.cmdDeviceRemove(args[2:])
		case "import":
			return a.cmdDeviceImport(ctx)
		default:
			return fmt.Errorf("unknown device subcommand %q", args[1])
		}
	case "color":
		if len(args) < 2 || args[1] != "set" {
			return errors.New("color subcommand required: set <name> <hex>")
		}
		return a.cmdColorSet(args[2:])
	case "colors":
		return a.cmdColors()
	case "auth":
		return a.session.Setup(ctx)
	case "history":
		return a.cmdHistory(args[1:])
	default:
		return a.cmdState(ctx, args[0], args[1:])
	}
}

// openLedger opens the control history database under the state
// directory and prunes entries past the retention window.
func (a *app) openLedger() (*ledger.Ledger, func(), error) {
	database, err := db.Open(filepath.Join(a.store.Dir(), historyFile))
	if err != nil {
		return nil, nil, err
	}
	led := ledger.New(database.DB)
	retention := time.Duration(a.cfg.History.RetentionDays) * 24 * time.Hour
	if pruned, err := led.DeleteOlderThan(retention); err != nil {
		log.Debug().Err(err).Msg("History pruning failed")
	} else if pruned > 0 {
		log.Debug().Int64("entries", pruned).Msg("Pruned old history entries")
	}
	return led, func() { database.Close() }, nil
}
