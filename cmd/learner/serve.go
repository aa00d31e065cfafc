package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	api "github.com/mind-engage/mindengage-learner/internal/api/http"
	auth "github.com/mind-engage/mindengage-learner/internal/auth/middleware"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the learner gateway for the web UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.HTTPAddr = addr
		}

		attempts := api.NewAttempts(a.orch, a.cfg.APITimeout*2)
		defer attempts.Close()

		deps := api.Deps{
			LMS:         a.client,
			Sessions:    a.sessions,
			Tracker:     a.tracker,
			Reconciler:  a.orch,
			Attempts:    attempts,
			Journal:     a.journal,
			Verifier:    auth.NewVerifier(a.cfg.AuthHMACSecret),
			CORSOrigins: a.cfg.CORSOrigins,
		}
		srv := &http.Server{
			Addr:              a.cfg.HTTPAddr,
			Handler:           api.NewRouter(deps),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdown)
		}()

		log.Printf("listening on %s (lms=%s, db=%s, journal=%v, service=%v)",
			a.cfg.HTTPAddr, a.cfg.APIBaseURL, a.cfg.DBDriver, a.cfg.EnableJournal, a.cfg.ServiceMode())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides HTTP_ADDR)")
}
