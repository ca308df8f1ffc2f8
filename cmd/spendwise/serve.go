package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/spendwise/internal/certs"
	"github.com/Veraticus/spendwise/internal/notify"
	"github.com/Veraticus/spendwise/internal/server"
	"github.com/Veraticus/spendwise/internal/sms"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept bank SMS over HTTP",
		Long: `Start an HTTP endpoint an SMS forwarder on your phone can post to.

  GET  /api/v1/health
  POST /api/v1/sms         {"sender": "...", "body": "...", "delivered_at": "..."}
  POST /api/v1/sms/batch   {"messages": [...]}

Repeated deliveries of the same message inside sms.dedup_window are
dropped.

With --tls a self-signed certificate is kept in server.cert_dir. Add the
LAN names or addresses the phone uses with --tls-host.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, err := openStorage(ctx, cfg.Database.Path)
			if err != nil {
				return err
			}
			defer closeStorage(store)

			dedup := sms.NewDedupCache(cfg.SMS.DedupWindow, cfg.SMS.DedupCapacity)
			pipeline := newSMSPipeline(cfg, store, dedup, notify.NewLogNotifier(slog.Default()))

			opts := []server.Option{
				server.WithLogger(slog.Default()),
				server.WithAccessLog(os.Stderr),
			}
			if cfg.Server.TLS {
				manager := certs.NewFileManager(cfg.Server.CertDir, cfg.Server.TLSHosts...)
				cert, err := manager.GetOrCreateCertificate()
				if err != nil {
					return fmt.Errorf("failed to load tls certificate: %w", err)
				}
				slog.Info("Serving https", "certificate", manager.CertFile())
				opts = append(opts, server.WithTLS(cert))
			}

			return server.New(pipeline, opts...).Listen(ctx, cfg.Server.Listen)
		},
	}

	cmd.Flags().String("listen", "", "address to listen on (default: 127.0.0.1:8080)")
	cmd.Flags().Bool("tls", false, "serve https with a self-signed certificate")
	cmd.Flags().StringSlice("tls-host", nil, "extra host name or IP the certificate covers (repeatable)")
	_ = viper.BindPFlag("server.listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))
	_ = viper.BindPFlag("server.tls_hosts", cmd.Flags().Lookup("tls-host"))

	return cmd
}
