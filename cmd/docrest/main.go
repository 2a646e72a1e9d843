package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jinzhu/configor"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/urfave/cli"

	"github.com/xdbsoft/docrest"
)

const defaultPort = "8000"

func loadConfig(path string) (docrest.Config, error) {

	var cfg docrest.Config
	var files []string
	if len(path) > 0 {
		files = append(files, path)
	}
	if err := configor.New(&configor.Config{ENVPrefix: "DOCREST"}).Load(&cfg, files...); err != nil {
		return cfg, errors.Wrapf(err, "unable to load configuration '%s'", path)
	}

	return cfg, nil
}

// applyFlags lets the command line win over the file and the environment
func applyFlags(c *cli.Context, cfg *docrest.Config) {
	if v := c.String("backend"); len(v) > 0 {
		cfg.Backend = v
	}
	if v := c.String("mongodb-uri"); len(v) > 0 {
		cfg.MongoURI = v
	}
	if v := c.String("database"); len(v) > 0 {
		cfg.Database = v
	}
	if v := c.String("postgres"); len(v) > 0 {
		cfg.DBConnStr = v
	}
	if v := c.String("collections"); len(v) > 0 {
		cfg.Collections = nil
		for _, name := range strings.Split(v, ",") {
			name = strings.TrimSpace(name)
			if len(name) > 0 {
				cfg.Collections = append(cfg.Collections, docrest.CollectionDefinition{Name: name})
			}
		}
	}
	if c.Bool("enable-writes") {
		cfg.EnableWrites = true
	}
	if v := c.Int("max-limit"); v > 0 {
		cfg.MaxLimit = v
	}
}

// listenAddr accepts "host", "host:port" or ":port"
func listenAddr(bind string) string {
	if len(bind) == 0 {
		return net.JoinHostPort("localhost", defaultPort)
	}
	if _, _, err := net.SplitHostPort(bind); err != nil {
		return net.JoinHostPort(bind, defaultPort)
	}
	return bind
}

func newLogger(level string, pretty bool) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), errors.Wrapf(err, "invalid log level '%s'", level)
	}

	var l zerolog.Logger
	if pretty {
		l = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		l = zerolog.New(os.Stderr)
	}
	return l.Level(lvl).With().Timestamp().Logger(), nil
}

func serve(c *cli.Context) error {

	logger, err := newLogger(c.String("log-level"), c.Bool("pretty-log"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, &cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	h, err := docrest.New(ctx, cfg, docrest.WithLogger(logger))
	if err != nil {
		return err
	}

	s := &http.Server{
		Addr:           listenAddr(c.String("bind")),
		Handler:        h,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", s.Addr).Msg("listening")
		errs <- s.ListenAndServe()
	}()

	select {
	case err = <-errs:
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = s.Shutdown(shutdownCtx)
		if closeErr := h.Close(shutdownCtx); closeErr != nil {
			logger.Error().Err(closeErr).Msg("unable to close repository")
		}
		return err
	}

	if closeErr := h.Close(context.Background()); closeErr != nil {
		logger.Error().Err(closeErr).Msg("unable to close repository")
	}
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "docrest"
	app.Usage = "REST interface to a document store"

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config",
			Usage: "path to the configuration file",
		},
		cli.StringFlag{
			Name:  "bind",
			Usage: "address and port to listen on",
			Value: "localhost:" + defaultPort,
		},
		cli.StringFlag{
			Name:  "backend",
			Usage: "document store: mongodb, postgresql or memory",
		},
		cli.StringFlag{
			Name:  "mongodb-uri",
			Usage: "MongoDB connection string",
		},
		cli.StringFlag{
			Name:  "database, d",
			Usage: "MongoDB database name",
		},
		cli.StringFlag{
			Name:  "postgres",
			Usage: "PostgreSQL connection string",
		},
		cli.StringFlag{
			Name:  "collections, c",
			Usage: "comma-separated collections to expose",
		},
		cli.BoolFlag{
			Name:  "enable-writes",
			Usage: "bind PUT, PATCH and DELETE on documents",
		},
		cli.IntFlag{
			Name:  "max-limit",
			Usage: "largest page size served",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "debug, info, warn or error",
			Value: "info",
		},
		cli.BoolFlag{
			Name:  "pretty-log",
			Usage: "human readable logs",
		},
	}
	app.Action = serve
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("docrest stopped")
	}
}
