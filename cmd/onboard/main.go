// The onboard command runs the client onboarding server. It presents a
// simple form and provisions new client deployments on this host: it
// allocates a backend port, materializes the per-client directories, writes
// and starts the systemd unit, and configures the nginx virtual host.
//
// It writes systemd and nginx configuration and manages services, so it is
// meant to run as root on a trusted host.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/nasif43/bizcalc/common"
	"github.com/nasif43/bizcalc/hostexec"
	"github.com/nasif43/bizcalc/httpserver"
	"github.com/nasif43/bizcalc/preflight"
	"github.com/nasif43/bizcalc/provision"
	"github.com/nasif43/bizcalc/registry"
	"github.com/urfave/cli/v2"
)

var flags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for the onboarding UI and API",
	},
	&cli.StringFlag{
		Name:  "base-dir",
		Value: "/opt/bizcalc",
		Usage: "deployment root containing bin/, frontend/, and clients/",
	},
	&cli.StringFlag{
		Name:  "unit-dir",
		Value: "/etc/systemd/system",
		Usage: "directory systemd unit files are written to",
	},
	&cli.StringFlag{
		Name:  "sites-available",
		Value: "/etc/nginx/sites-available",
		Usage: "nginx sites-available directory",
	},
	&cli.StringFlag{
		Name:  "sites-enabled",
		Value: "/etc/nginx/sites-enabled",
		Usage: "nginx sites-enabled directory",
	},
	&cli.IntFlag{
		Name:  "port-range-start",
		Value: provision.DefaultPortRangeStart,
		Usage: "first port considered for backend auto-allocation",
	},
	&cli.IntFlag{
		Name:  "port-range-end",
		Value: provision.DefaultPortRangeEnd,
		Usage: "last port considered for backend auto-allocation",
	},
	&cli.BoolFlag{
		Name:  "check-dns",
		Value: false,
		Usage: "warn when a subdomain does not resolve to this host (advisory only)",
	},
	&cli.BoolFlag{
		Name:  "log-json",
		Value: false,
		Usage: "log in JSON format",
	},
	&cli.BoolFlag{
		Name:  "log-debug",
		Value: false,
		Usage: "log debug messages",
	},
	&cli.BoolFlag{
		Name:  "log-uid",
		Value: false,
		Usage: "generate a uuid and add to all log messages",
	},
	&cli.StringFlag{
		Name:  "log-service",
		Value: "bizcalc-onboard",
		Usage: "add 'service' tag to logs",
	},
	&cli.BoolFlag{
		Name:  "pprof",
		Value: false,
		Usage: "enable pprof debug endpoint",
	},
	&cli.Int64Flag{
		Name:  "drain-seconds",
		Value: 45,
		Usage: "seconds to wait in drain HTTP request",
	},
}

func main() {
	app := &cli.App{
		Name:  "onboard",
		Usage: "Provision new BizCalc client deployments on this host",
		Flags: flags,
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String("listen-addr")
			baseDir := cCtx.String("base-dir")
			logJSON := cCtx.Bool("log-json")
			logDebug := cCtx.Bool("log-debug")
			logUID := cCtx.Bool("log-uid")
			logService := cCtx.String("log-service")
			enablePprof := cCtx.Bool("pprof")
			drainDuration := time.Duration(cCtx.Int64("drain-seconds")) * time.Second

			logger := common.SetupLogger(&common.LoggingOpts{
				Debug:   logDebug,
				JSON:    logJSON,
				Service: logService,
				Version: common.Version,
			})

			if logUID {
				id := uuid.Must(uuid.NewRandom())
				logger = logger.With("uid", id.String())
			}

			// Privilege is not enforced; the privileged filesystem and
			// service operations fail on their own when it is missing.
			if os.Geteuid() != 0 {
				logger.Warn("Not running as root; systemd and nginx operations will likely fail")
			}

			cfg := &provision.Config{
				BaseDir:        baseDir,
				UnitDir:        cCtx.String("unit-dir"),
				SitesAvailable: cCtx.String("sites-available"),
				SitesEnabled:   cCtx.String("sites-enabled"),
				PortRangeStart: cCtx.Int("port-range-start"),
				PortRangeEnd:   cCtx.Int("port-range-end"),
			}

			store, err := registry.NewFileStore(cfg.ClientsDir(), logger)
			if err != nil {
				logger.Error("Failed to create client store", "err", err)
				return err
			}

			runner := hostexec.NewExecRunner(logger)
			orchestrator := provision.New(cfg, runner, store, logger)

			var checker httpserver.HostnameChecker
			if cCtx.Bool("check-dns") {
				dnsChecker, err := preflight.NewDNSChecker(logger)
				if err != nil {
					logger.Warn("DNS preflight disabled", "err", err)
				} else {
					checker = dnsChecker
				}
			}

			handler := httpserver.NewHandler(orchestrator, store, checker, logger)
			server := httpserver.New(&httpserver.HTTPServerConfig{
				ListenAddr:               listenAddr,
				Log:                      logger,
				EnablePprof:              enablePprof,
				DrainDuration:            drainDuration,
				GracefulShutdownDuration: 30 * time.Second,
				ReadTimeout:              60 * time.Second,
				WriteTimeout:             30 * time.Second,
			}, handler)

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Onboarding server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
