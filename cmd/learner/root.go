package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/mind-engage/mindengage-learner/internal/backend"
	"github.com/mind-engage/mindengage-learner/internal/completion"
	"github.com/mind-engage/mindengage-learner/internal/config"
	"github.com/mind-engage/mindengage-learner/internal/db"
	"github.com/mind-engage/mindengage-learner/internal/journal"
	"github.com/mind-engage/mindengage-learner/internal/progress"
	"github.com/mind-engage/mindengage-learner/internal/session"
)

var rootCmd = &cobra.Command{
	Use:           "learner",
	Short:         "Learner client for the corporate LMS",
	Long:          "learner signs you in to the LMS, shows training and bootcamp progress, runs timed quizzes and serves the learner gateway.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().String("api", "", "LMS API base URL (overrides LMS_API_URL)")
	rootCmd.PersistentFlags().String("db-driver", "", "local state driver: sqlite|postgres (overrides DB_DRIVER)")
	rootCmd.PersistentFlags().String("db", "", "local state DSN (overrides DB_DSN)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(progressCmd, quizStatusCmd, bootcampCmd, completeCmd, reconcileCmd, journalCmd)
	rootCmd.AddCommand(takeCmd)
}

// resolveConfig reads the environment, then applies flags.
func resolveConfig(cmd *cobra.Command) config.Config {
	cfg := config.FromEnv()
	if v, _ := cmd.Flags().GetString("api"); v != "" {
		cfg.APIBaseURL = v
	}
	if v, _ := cmd.Flags().GetString("db-driver"); v != "" {
		cfg.DBDriver = v
	}
	if v, _ := cmd.Flags().GetString("db"); v != "" {
		cfg.DBDSN = v
	}
	return cfg
}

// app holds the wired dependencies every command shares.
type app struct {
	cfg      config.Config
	db       *sql.DB
	sessions *session.Store
	client   *backend.Client
	tracker  *progress.Tracker
	journal  *journal.Repo // nil when disabled
	orch     *completion.Orchestrator
}

func openApp(cmd *cobra.Command) (*app, error) {
	cfg := resolveConfig(cmd)

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("open local state: %w", err)
	}

	var kv session.KV = session.NewSQLKV(dbh)
	if cfg.SessionKey != "" {
		kv = session.NewSealedKV(kv, cfg.SessionKey)
	}
	sessions := session.NewStore(kv)
	if err := sessions.Load(ctx); err != nil {
		_ = dbh.Close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	client := backend.New(backend.Config{
		BaseURL:      cfg.APIBaseURL,
		Timeout:      cfg.APITimeout,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     cfg.TokenURL,
	}, sessions, backend.OnUnauthorized(func() {
		if err := sessions.Clear(context.Background()); err != nil {
			log.Printf("clear session: %v", err)
		}
	}))

	a := &app{cfg: cfg, db: dbh, sessions: sessions, client: client}
	a.tracker = &progress.Tracker{Backend: client, Session: sessions}
	a.orch = completion.New(client, a.tracker, nil, nil)
	if cfg.EnableJournal {
		a.journal = journal.NewRepo(dbh)
		a.orch.Journal = a.journal
	}
	return a, nil
}

func (a *app) Close() error { return a.db.Close() }

// requireUser returns the signed-in user id or a hint to log in.
func (a *app) requireUser() (string, error) {
	if uid := a.sessions.UserID(); uid != "" {
		return uid, nil
	}
	return "", errors.New("not signed in: run `learner login` first")
}
