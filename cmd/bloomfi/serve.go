package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/bloomfi/internal/api"
	"github.com/Veraticus/bloomfi/internal/auth"
	"github.com/Veraticus/bloomfi/internal/certs"
	"github.com/Veraticus/bloomfi/internal/engine"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger over HTTP",
		Long: `Start the HTTP API. Requests authenticate with a bearer token
(see "bloomfi token") and transfers additionally require a CSRF token
fetched from GET /csrf.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
				a.cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("tls") {
				a.cfg.Server.TLS, _ = cmd.Flags().GetBool("tls")
			}
			return a.runServe(cmd.Context())
		},
	}

	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	cmd.Flags().Bool("tls", false, "serve HTTPS with a self-signed localhost certificate (overrides server.tls)")

	return cmd
}

func (a *app) runServe(ctx context.Context) error {
	if err := a.cfg.RequireSecret(); err != nil {
		return err
	}

	return a.withEngine(ctx, func(eng *engine.Engine) error {
		srv := api.NewServer(eng, auth.NewVerifier(a.cfg.Auth.JWTSecret), api.Options{
			ReadTimeout:      a.cfg.Server.ReadTimeout,
			WriteTimeout:     a.cfg.Server.WriteTimeout,
			CSRFTTL:          a.cfg.Auth.TokenTTL,
			CSRFCookieSecure: a.cfg.Auth.CSRFCookieSecure,
		})

		listen := func() error { return srv.Listen(a.cfg.Server.Addr) }
		if a.cfg.Server.TLS {
			cert, err := certs.NewFileManager(a.cfg.Server.CertDir).GetOrCreateCertificate()
			if err != nil {
				return fmt.Errorf("failed to load TLS certificate: %w", err)
			}
			listen = func() error { return srv.ListenTLS(a.cfg.Server.Addr, cert) }
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("Starting HTTP server", "addr", a.cfg.Server.Addr, "tls", a.cfg.Server.TLS)
			errCh <- listen()
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server failed: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		slog.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return <-errCh
	})
}
