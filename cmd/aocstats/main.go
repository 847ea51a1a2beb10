package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	"uocsclub.net/aocstats/internal/boards"
	"uocsclub.net/aocstats/internal/codec"
	"uocsclub.net/aocstats/internal/config"
	"uocsclub.net/aocstats/internal/database"
	"uocsclub.net/aocstats/internal/fetcher"
	"uocsclub.net/aocstats/internal/logging"
	"uocsclub.net/aocstats/internal/metrics"
	"uocsclub.net/aocstats/internal/stats"
	"uocsclub.net/aocstats/internal/types"
	"uocsclub.net/aocstats/internal/validate"
	"uocsclub.net/aocstats/internal/web"
)

// the limiter refills exactly one interval after the previous fetch, so the
// job runs slightly later than that
const scheduleSlack = 5 * time.Second

func main() {
	app := &cli.App{
		Name:  "aocstats",
		Usage: "Advent of Code private leaderboard statistics",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "env",
				Usage: "env files to load before reading the environment",
				Value: cli.NewStringSlice(".env"),
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "fetch on a schedule and serve the site",
				Action: serve,
			},
			{
				Name:   "fetch",
				Usage:  "fetch and store the configured leaderboard once",
				Action: fetchOnce,
			},
			{
				Name:  "process",
				Usage: "print the boards of a leaderboard JSON file",
				Flags: []cli.Flag{
					fileFlag,
					&cli.BoolFlag{Name: "members", Usage: "print member statistics instead of boards"},
				},
				Action: processFile,
			},
			{
				Name:   "encode",
				Usage:  "print the share token of a leaderboard JSON file",
				Flags:  []cli.Flag{fileFlag},
				Action: encodeFile,
			},
			{
				Name:      "decode",
				Usage:     "print the leaderboard held by a share token",
				ArgsUsage: "TOKEN",
				Action:    decodeToken,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

var fileFlag = &cli.StringFlag{
	Name:     "file",
	Aliases:  []string{"f"},
	Usage:    "leaderboard JSON, - for stdin",
	Required: true,
}

func setup(c *cli.Context) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(c.StringSlice("env")...)
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func serve(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	db, err := database.InitDatabase(cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(registry)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := &refresher{
		client:  fetcher.New(cfg, fetcher.WithLogger(logger)),
		db:      db,
		metrics: m,
		logger:  logger,
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer s.Shutdown()

	if cfg.CanFetch() {
		j, err := s.NewJob(
			gocron.DurationJob(cfg.FetchInterval+scheduleSlack),
			gocron.NewTask(func() { r.job(ctx) }),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return err
		}
		s.Start()
		// durationjob doesn't run on startup
		if err := j.RunNow(); err != nil {
			logger.Warn("failed to run initial fetch", slog.Any("error", err))
		}
	} else {
		logger.Warn("SESSION_ID or LEADERBOARD_ID not set, not fetching")
	}

	server := web.InitServer(web.ServerConfig{
		Port:      cfg.Port,
		Year:      cfg.Year,
		CachePath: cfg.CachePath,
	}, db, web.Dependencies{
		Logger:   logger,
		Metrics:  m,
		Gatherer: registry,
		Refresh:  r.Refresh,
	})

	errs := make(chan error, 1)
	go func() {
		errs <- server.Listen()
	}()
	logger.Info("Started!", slog.Int("port", cfg.Port), slog.Int("year", cfg.Year))

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func fetchOnce(c *cli.Context) error {
	cfg, logger, err := setup(c)
	if err != nil {
		return err
	}

	db, err := database.InitDatabase(cfg.DatabasePath, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	r := &refresher{client: fetcher.New(cfg, fetcher.WithLogger(logger)), db: db, logger: logger}
	return r.Refresh(c.Context)
}

func readEvent(path string) (*types.AOCEvent, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	if err := validate.Payload(data); err != nil {
		return nil, err
	}
	event := &types.AOCEvent{}
	if err := json.Unmarshal(data, event); err != nil {
		return nil, err
	}
	return event, nil
}

func processFile(c *cli.Context) error {
	_, logger, err := setup(c)
	if err != nil {
		return err
	}

	event, err := readEvent(c.String("file"))
	if err != nil {
		return err
	}

	members := stats.New(stats.WithLogger(logger)).Process(event)
	if c.Bool("members") {
		return printJSON(c.App.Writer, members)
	}
	return printJSON(c.App.Writer, boards.All(members))
}

func encodeFile(c *cli.Context) error {
	event, err := readEvent(c.String("file"))
	if err != nil {
		return err
	}

	token, err := codec.Encode(event)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, token)
	return err
}

func decodeToken(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New("expected exactly one TOKEN")
	}

	event, err := codec.Decode(c.Args().First())
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, event)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
