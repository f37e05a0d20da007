package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/modledger/modledger/internal/identity"
	"github.com/modledger/modledger/internal/server"
	"github.com/modledger/modledger/internal/service"
	"github.com/modledger/modledger/internal/store"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		host string
		dev  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the moderation API server",
		Long:  "Start the HTTP server exposing status queries, moderation operations, and key management.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(host, port, dev)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "HTTP listen port")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "HTTP listen host")
	cmd.Flags().BoolVar(&dev, "dev", false, "Enable development mode (verbose logging)")

	viper.BindPFlag("server.port", cmd.Flags().Lookup("port"))
	viper.BindPFlag("server.host", cmd.Flags().Lookup("host"))

	return cmd
}

func runServe(host string, port int, dev bool) error {
	logLevel := slog.LevelInfo
	if dev {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	st, err := store.NewStore(resolveDataDir())
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()
	logger.Info("store initialized", "path", resolveDataDir())

	keys := service.NewKeyStore(st, logger)
	ledger := service.NewLedger(st, logger)

	// Schema and bootstrap-key failures are the only fatal errors; every
	// failure after this point stays local to one request.
	if err := keys.Bootstrap(context.Background()); err != nil {
		return fmt.Errorf("bootstrap admin key: %w", err)
	}

	resolver := identity.New(identity.Config{
		Endpoint:  viper.GetString("identity.endpoint"),
		AppKey:    viper.GetString("identity.app_key"),
		AppSecret: viper.GetString("identity.app_secret"),
		Client:    viper.GetString("identity.client"),
		Timeout:   viper.GetDuration("identity.timeout"),
	})

	cfg := server.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	if origins := viper.GetStringSlice("server.cors_origins"); len(origins) > 0 {
		cfg.CORSOrigins = origins
	}
	if d := viper.GetDuration("server.shutdown_timeout"); d > 0 {
		cfg.ShutdownTimeout = d
	}

	srv := server.New(cfg, st, ledger, keys, resolver, logger)

	fmt.Printf("→ Modledger listening on http://%s:%d\n", host, port)
	fmt.Printf("→ Health: http://%s:%d/healthz\n", host, port)

	return srv.ListenAndServe()
}
