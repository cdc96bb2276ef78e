package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/kardianos/minwinsvc"

	"github.com/rpcrelay/rpc-relay/config"
	"github.com/rpcrelay/rpc-relay/internal/application"
	"github.com/rpcrelay/rpc-relay/internal/logging"
	"github.com/rpcrelay/rpc-relay/relay"
	"github.com/rpcrelay/rpc-relay/relay/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var c config.Config
	loggers := logging.MakeDefaultLoggers()

	opts, err := application.ReadOptions(os.Args, os.Stderr)
	if err != nil {
		loggers.Errorf("Error: %s", err)
		os.Exit(1)
	}

	loggers.Infof(
		"Starting RPC relay version %s with %s\n",
		application.DescribeRelayVersion(version.Version),
		opts.DescribeConfigSource(),
	)

	if opts.ConfigFile != "" {
		if err := config.LoadConfigFile(&c, opts.ConfigFile, loggers); err != nil {
			loggers.Errorf("Error loading config file: %s", err)
			os.Exit(1)
		}
	}
	if opts.UseEnvironment {
		if err := config.LoadConfigFromEnvironment(&c, loggers); err != nil {
			loggers.Errorf("Configuration error: %s", err)
			os.Exit(1)
		}
	}

	r, err := relay.NewRelay(c, loggers)
	if err != nil {
		loggers.Errorf("Unable to create relay: %s", err)
		os.Exit(1)
	}

	port := c.Main.Port.GetOrElse(config.DefaultPort)

	srv, errs := application.StartHTTPServer(
		port,
		r,
		c.Main.TLSEnabled,
		c.Main.TLSCert,
		c.Main.TLSKey,
		c.Main.TLSMinVersion.Get(),
		loggers,
	)

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errs:
		loggers.Errorf("Error starting HTTP listener on port: %d  %s", port, err)
		_ = r.Close()
		os.Exit(1)
	case sig := <-signals:
		loggers.Infof("Received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			loggers.Warnf("Error shutting down HTTP server: %s", err)
		}
		_ = r.Close()
	}
}
