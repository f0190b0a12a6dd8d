// The bizcalc-server command is the per-client backend started by each
// client's supervision unit. It serves the collections API on the port
// given in the PORT environment variable, with its database and uploads
// under the unit's working directory.
package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nasif43/bizcalc/backendapi"
	"github.com/nasif43/bizcalc/common"
	"github.com/urfave/cli/v2"
)

var flags []cli.Flag = []cli.Flag{
	&cli.StringFlag{
		Name:  "db",
		Value: "./data/db.sqlite",
		Usage: "path of the SQLite database",
	},
	&cli.StringFlag{
		Name:  "uploads-dir",
		Value: "./uploads",
		Usage: "directory uploaded files are stored in",
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
}

func main() {
	app := &cli.App{
		Name:  "bizcalc-server",
		Usage: "Serve the BizCalc collections API for one client",
		Flags: flags,
		Action: func(cCtx *cli.Context) error {
			logger := common.SetupLogger(&common.LoggingOpts{
				Debug:   cCtx.Bool("log-debug"),
				JSON:    cCtx.Bool("log-json"),
				Service: "bizcalc-server",
				Version: common.Version,
			})

			db, err := backendapi.OpenDB(cCtx.String("db"))
			if err != nil {
				logger.Error("Failed to open database", "err", err)
				return err
			}
			defer db.Close()

			backendapi.SeedIfEmpty(db, logger)

			handler := backendapi.NewHandler(db, cCtx.String("uploads-dir"), logger)

			// The supervision unit sets PORT for each client.
			port := os.Getenv("PORT")
			if port == "" {
				port = "3000"
			}

			srv := &http.Server{
				Addr:    ":" + port,
				Handler: handler.Router(),
			}

			go func() {
				logger.Info("Starting backend server", "port", port)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("HTTP server failed", "err", err)
				}
			}()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)
			<-exit

			logger.Info("Shutdown signal received")
			return srv.Close()
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
