package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/porystore/porystore/internal/auth"
	"github.com/porystore/porystore/internal/config"
	"github.com/porystore/porystore/internal/creature"
	"github.com/porystore/porystore/internal/db"
	"github.com/porystore/porystore/internal/errors"
	"github.com/porystore/porystore/internal/mcp"
	"github.com/porystore/porystore/internal/metrics"
	"github.com/porystore/porystore/internal/ops"
	"github.com/porystore/porystore/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(database *sql.DB, cfg *config.Config, baseDir string) *cli.App {
	app := &cli.App{
		Name:    "porystore",
		Usage:   "Creature save storage service",
		Version: Version,
		Commands: []*cli.Command{
			serveCmd(database, cfg, baseDir),
			mcpCmd(database, cfg),
			userAddCmd(database, cfg),
			sweepCmd(database, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// newLogger builds the service logger writing to stderr.
func newLogger() zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
}

// serveCmd creates the serve command.
func serveCmd(database *sql.DB, cfg *config.Config, baseDir string) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Usage: "Bind address (overrides config)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (overrides config)"},
		},
		Action: func(c *cli.Context) error {
			log := newLogger()

			if c.String("bind") != "" {
				cfg.HTTPBind = c.String("bind")
			}
			if c.Int("port") != 0 {
				cfg.HTTPPort = c.Int("port")
			}

			// A missing token secret is generated once and persisted, so
			// tokens survive restarts.
			if cfg.JWTSecret == "" {
				secret := make([]byte, 32)
				if _, err := rand.Read(secret); err != nil {
					return outputError(errors.NewInternal(err))
				}
				cfg.JWTSecret = hex.EncodeToString(secret)
				if err := config.Save(baseDir, cfg); err != nil {
					return outputError(errors.NewInternal(err))
				}
				log.Info().Msg("generated and saved a new token secret")
			}

			registry := prometheus.NewRegistry()
			m := metrics.Init(registry)
			sched := ops.NewScheduler(database, cfg.DeletionDelay(), log, m)

			// Reconcile deletions whose timers were lost to the previous
			// shutdown.
			if purged, err := sched.Sweep(context.Background()); err != nil {
				log.Error().Err(err).Msg("start-up sweep failed")
			} else if purged > 0 {
				log.Info().Int("purged", purged).Msg("start-up sweep finished stale deletions")
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			go sched.RunSweeper(ctx, cfg.SweepInterval())

			srv := web.NewServer(database, cfg, sched, m, registry, log)
			return web.Run(srv, sched, log)
		},
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(database *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP operator server on stdio",
		Action: func(c *cli.Context) error {
			log := newLogger()
			m := metrics.Init(prometheus.NewRegistry())
			sched := ops.NewScheduler(database, cfg.DeletionDelay(), log, m)
			defer sched.Close()

			return mcp.Run(database, cfg, sched, Version)
		},
	}
}

// userAddCmd creates the user-add command.
func userAddCmd(database *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "user-add",
		Usage: "Create a user account",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Username"},
			&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Required: true, Usage: "Password"},
			&cli.BoolFlag{Name: "admin", Usage: "Grant admin standing"},
			&cli.StringFlag{Name: "visibility", Value: "", Usage: "Default creature visibility (public|unlisted|private)"},
		},
		Action: func(c *cli.Context) error {
			vis := creature.Visibility(c.String("visibility"))
			if vis == "" {
				vis = creature.Visibility(cfg.DefaultVisibility)
			}
			if !creature.ValidVisibility(vis) {
				return outputError(errors.NewInvalidRequest("visibility must be one of: public, unlisted, private"))
			}

			hash, err := auth.HashPassword(c.String("password"))
			if err != nil {
				return outputError(errors.NewInternal(err))
			}

			user := &creature.User{
				Name:                  c.String("name"),
				PasswordHash:          hash,
				Admin:                 c.Bool("admin"),
				DefaultVisibility:     vis,
				DefaultNoteVisibility: creature.VisibilityPrivate,
				CreatedAt:             time.Now().Unix(),
			}
			if err := db.InsertUser(c.Context, database, user); err != nil {
				return outputError(err)
			}

			return outputJSON(map[string]any{
				"username": user.Name,
				"admin":    user.Admin,
			})
		},
	}
}

// sweepCmd creates the sweep command.
func sweepCmd(database *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "sweep",
		Usage: "Purge creatures whose pending deletion outlived the grace period",
		Action: func(c *cli.Context) error {
			m := metrics.Init(prometheus.NewRegistry())
			sched := ops.NewScheduler(database, cfg.DeletionDelay(), zerolog.Nop(), m)
			defer sched.Close()

			purged, err := sched.Sweep(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(map[string]any{"purged": purged})
		},
	}
}

// outputJSON writes indented JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if pErr, ok := err.(*errors.Error); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", pErr.Code, pErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}
