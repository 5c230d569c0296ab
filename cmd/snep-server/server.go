package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/snepd/internal/config"
	"github.com/muurk/snepd/internal/discovery"
	"github.com/muurk/snepd/internal/inbox"
	"github.com/muurk/snepd/internal/logging"
	"github.com/muurk/snepd/internal/snep"
	"github.com/muurk/snepd/internal/transport"
	"github.com/muurk/snepd/internal/ui"
)

// Server command flags
var (
	configPath     string
	listenAddr     string
	serviceName    string
	sap            int
	fragmentLength int
	logLevel       string
	advertise      string
	noHandshake    bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the SNEP server",
	Long: `Start the SNEP default server and serve requests until interrupted.

Settings are read from the configuration file (see 'snep-server config path')
when it exists. Flags override values from the file.

Pushed messages are kept in a bounded in-memory inbox and served back to GET
requests whose first record type matches.`,
	Example: `  # Start with defaults on :9424
  snep-server server

  # Cap outgoing fragments at 32 bytes and log every frame
  snep-server server --fragment-length 32 --log-level debug

  # Advertise over mDNS as _snep._tcp
  snep-server server --advertise mdns

  # Use a specific configuration file
  snep-server server --config ./snepd.toml`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML or TOML configuration file")
	serverCmd.Flags().StringVar(&listenAddr, "listen", config.DefaultListen, "WebSocket listen address (host:port)")
	serverCmd.Flags().StringVar(&serviceName, "service-name", snep.DefaultServiceName, "Service name to register")
	serverCmd.Flags().IntVar(&sap, "sap", snep.DefaultSAP, "Service access point")
	serverCmd.Flags().IntVar(&fragmentLength, "fragment-length", 0, "Maximum outgoing fragment size (0 = peer MIU)")
	serverCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	serverCmd.Flags().StringVar(&advertise, "advertise", config.AdvertiseNone, "Advertise the service (none, mdns, etcd)")
	serverCmd.Flags().BoolVar(&noHandshake, "no-handshake", false, "Send fragments without waiting for Continue")
}

// loadServerConfig reads the configuration file and applies flags the user set
func loadServerConfig(cmd *cobra.Command) (*config.ServerConfig, error) {
	var (
		cfg *config.ServerConfig
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("listen") {
		cfg.Listen = listenAddr
	}
	if flags.Changed("service-name") {
		cfg.ServiceName = serviceName
	}
	if flags.Changed("sap") {
		cfg.SAP = sap
	}
	if flags.Changed("fragment-length") {
		cfg.FragmentLength = fragmentLength
	}
	if flags.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("advertise") {
		cfg.Advertise = advertise
	}
	if flags.Changed("no-handshake") {
		cfg.Handshake = !noHandshake
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newTransport(cfg *config.ServerConfig) transport.Transport {
	if cfg.Transport == config.TransportMemory {
		return transport.NewMemory()
	}
	return transport.NewWebSocket()
}

// newAdvertiser returns the configured advertiser and a function releasing
// its resources.
func newAdvertiser(cfg *config.ServerConfig) (snep.Advertiser, func(), error) {
	switch cfg.Advertise {
	case config.AdvertiseMDNS:
		return discovery.NewMDNSAdvertiser(""), func() {}, nil
	case config.AdvertiseEtcd:
		r, err := discovery.NewEtcdRegistrar(cfg.EtcdEndpoints, discovery.DefaultLeaseTTL)
		if err != nil {
			return nil, nil, err
		}
		return r, func() { _ = r.Close() }, nil
	default:
		return nil, func() {}, nil
	}
}

func serverOptions(cfg *config.ServerConfig, adv snep.Advertiser) []snep.Option {
	mw := []snep.Middleware{snep.Recover(), snep.Logging()}
	if cfg.RateLimit > 0 {
		mw = append(mw, snep.RateLimit(cfg.RateLimit, cfg.RateBurst))
	}
	opts := []snep.Option{snep.WithMiddleware(mw...)}
	if adv != nil {
		opts = append(opts, snep.WithAdvertiser(adv))
	}
	return opts
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadServerConfig(cmd)
	if err != nil {
		return err
	}

	if err := logging.Initialize(cfg.LogLevel); err != nil {
		return err
	}
	defer logging.Sync()

	if cfg.Transport == config.TransportMemory {
		logging.Warn("Memory transport selected, the server is only reachable from this process")
	}

	adv, release, err := newAdvertiser(cfg)
	if err != nil {
		return fmt.Errorf("failed to set up %s advertisement: %w", cfg.Advertise, err)
	}
	defer release()

	store := inbox.New(cfg.InboxSize)
	store.OnPut(func(e inbox.Entry) {
		records := make([]string, 0, len(e.Message))
		for _, rec := range e.Message {
			records = append(records, ui.DescribeRecord(rec))
		}
		logging.Debug("Message contents",
			zap.String("remote_addr", e.From),
			zap.Int("bytes", e.Message.ByteLength()),
			zap.Strings("records", records),
		)
	})

	srv := snep.New(cfg.SnepConfig(), newTransport(cfg), store, serverOptions(cfg, adv)...)
	if err := srv.Start(); err != nil {
		return err
	}

	logging.Info("Serving SNEP requests",
		zap.String("addr", srv.Addr()),
		zap.String("service_name", cfg.ServiceName),
		zap.Int("sap", cfg.SAP),
		zap.Int("miu", cfg.MIU),
		zap.Bool("handshake", cfg.Handshake),
		zap.String("advertise", cfg.Advertise),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logging.Info("Shutdown signal received, stopping server...",
		zap.Int("active_connections", srv.ActiveConnections()))
	srv.Stop()
	return nil
}
