package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cache"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/storage/sqlite3/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"uocsclub.net/aocstats/internal/boards"
	"uocsclub.net/aocstats/internal/calendar"
	"uocsclub.net/aocstats/internal/codec"
	"uocsclub.net/aocstats/internal/database"
	"uocsclub.net/aocstats/internal/fetcher"
	"uocsclub.net/aocstats/internal/metrics"
	"uocsclub.net/aocstats/internal/report"
	"uocsclub.net/aocstats/internal/stats"
	"uocsclub.net/aocstats/internal/types"
	"uocsclub.net/aocstats/internal/validate"
	"uocsclub.net/aocstats/internal/web/templates"
)

const firstEvent = 2015

type Server struct {
	App       *fiber.App
	db        *database.DatabaseInst
	config    ServerConfig
	deps      Dependencies
	processor *stats.Processor
	storage   *sqlite3.Storage
	now       func() time.Time
}

type ServerConfig struct {
	Port int
	// Year is shown on the landing page.
	Year int
	// CachePath is the sqlite file backing the shared page cache.
	CachePath       string
	CacheExpiration time.Duration
	ChartMembers    int
}

type Dependencies struct {
	Logger   *slog.Logger
	Metrics  *metrics.Manager
	Gatherer prometheus.Gatherer
	// Refresh fetches and stores the current leaderboard.
	Refresh func(ctx context.Context) error
	Now     func() time.Time
}

func InitServer(config ServerConfig, db *database.DatabaseInst, deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if config.CacheExpiration <= 0 {
		config.CacheExpiration = time.Hour
	}
	if config.ChartMembers <= 0 {
		config.ChartMembers = 10
	}

	opts := []stats.Option{stats.WithLogger(deps.Logger)}
	if deps.Metrics != nil {
		opts = append(opts, stats.WithMismatchHandler(deps.Metrics.MismatchHandler()))
	}

	s := &Server{
		App: fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler:          errorHandler(deps.Logger),
		}),
		db:        db,
		config:    config,
		deps:      deps,
		processor: stats.New(opts...),
		storage: sqlite3.New(sqlite3.Config{
			Database: config.CachePath,
		}),
		now: deps.Now,
	}

	s.App.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Accept,Content-Type,HX-Request",
		AllowCredentials: false, // credentials require explicit origins
		MaxAge:           300,
	}))

	if deps.Gatherer != nil {
		s.App.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	api := s.App.Group("/api")
	api.Post("/process", s.HandleProcess)
	api.Post("/refresh", s.HandleRefresh)
	api.Get("/:year/members", s.HandleMembers)
	api.Get("/:year/boards", s.HandleBoards)
	api.Get("/:year/share", s.HandleShareToken)

	// shared pages never change, so they are rendered once per token
	s.App.Get("/s/:token", cache.New(cache.Config{
		Expiration: config.CacheExpiration,
		Storage:    s.storage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.Path() + "|" + c.Get("HX-Request")
		},
	}), s.HandleShared)

	s.App.Get("/:year/chart.png", s.HandleChart)
	s.App.Get("/:year/export.xlsx", s.HandleExport)
	s.App.Get("/:year", s.HandleYear)
	s.App.Get("/", s.HandleRoot)

	return s
}

func (s *Server) Listen() error {
	return s.App.Listen(fmt.Sprintf(":%d", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.App.ShutdownWithContext(ctx)
	return errors.Join(err, s.storage.Close())
}

func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := http.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		} else {
			logger.Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"error": http.StatusText(code)})
	}
}

func (s *Server) HandleRoot(c *fiber.Ctx) error {
	return s.renderYear(c, s.config.Year)
}

func (s *Server) HandleYear(c *fiber.Ctx) error {
	year, err := yearParam(c)
	if err != nil {
		return s.renderError(c, http.StatusNotFound, "no such event")
	}
	return s.renderYear(c, year)
}

func (s *Server) renderYear(c *fiber.Ctx, year int) error {
	event, fetchedAt, err := s.db.GetLeaderboard(c.UserContext(), year)
	if errors.Is(err, database.ErrNotFound) {
		return s.renderError(c, http.StatusNotFound, fmt.Sprintf("no leaderboard stored for %d", year))
	}
	if err != nil {
		return err
	}

	token, err := codec.Encode(event)
	if err != nil {
		return err
	}
	years, err := s.db.ListYears(c.UserContext())
	if err != nil {
		return err
	}

	return s.Render(c, templates.LandingPage(templates.Page{
		Year:            year,
		Years:           years,
		Boards:          boards.All(s.process(event)),
		AchievableStars: calendar.AchievableStarsAsOf(s.now(), year),
		FetchedAt:       fetchedAt,
		ShareToken:      token,
	}))
}

func (s *Server) HandleShared(c *fiber.Ctx) error {
	token := c.Params("token")
	event, err := codec.Decode(token)
	if err != nil {
		s.observeDecodeError()
		s.deps.Logger.Info("rejected share token", slog.Any("error", err))
		return s.renderError(c, http.StatusBadRequest, "this share link is invalid")
	}

	year := int(event.Year)
	return s.Render(c, templates.LandingPage(templates.Page{
		Year:            year,
		Boards:          boards.All(s.process(event)),
		AchievableStars: calendar.AchievableStarsAsOf(s.now(), year),
		Shared:          true,
		ShareToken:      token,
	}))
}

func (s *Server) HandleMembers(c *fiber.Ctx) error {
	members, err := s.loadMembers(c)
	if err != nil {
		return err
	}
	return c.JSON(members)
}

func (s *Server) HandleBoards(c *fiber.Ctx) error {
	members, err := s.loadMembers(c)
	if err != nil {
		return err
	}
	return c.JSON(boards.All(members, boardOptions(c)...))
}

func (s *Server) HandleShareToken(c *fiber.Ctx) error {
	event, err := s.loadEvent(c)
	if err != nil {
		return err
	}
	token, err := codec.Encode(event)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"token": token})
}

// HandleProcess accepts a leaderboard JSON export and returns its boards
// along with a share token.
func (s *Server) HandleProcess(c *fiber.Ctx) error {
	body := c.Body()
	if err := validate.Payload(body); err != nil {
		s.observeDecodeError()
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	event := &types.AOCEvent{}
	if err := json.Unmarshal(body, event); err != nil {
		s.observeDecodeError()
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	token, err := codec.Encode(event)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"year":   int(event.Year),
		"boards": boards.All(s.process(event), boardOptions(c)...),
		"token":  token,
	})
}

func (s *Server) HandleRefresh(c *fiber.Ctx) error {
	if s.deps.Refresh == nil {
		return fiber.ErrNotImplemented
	}

	err := s.deps.Refresh(c.UserContext())
	switch {
	case errors.Is(err, fetcher.ErrRateLimited):
		return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, fetcher.ErrNoSession):
		return fiber.ErrServiceUnavailable
	case err != nil:
		s.deps.Logger.Error("refresh failed", slog.Any("error", err))
		return c.Status(http.StatusBadGateway).JSON(fiber.Map{"error": "failed to fetch leaderboard"})
	}

	if c.Get("HX-Request") == "true" {
		return redirect(c, "/")
	}
	return c.SendStatus(http.StatusNoContent)
}

func (s *Server) HandleChart(c *fiber.Ctx) error {
	members, err := s.loadMembers(c)
	if err != nil {
		return err
	}
	year, _ := yearParam(c)

	png, err := report.PointsChart(members, year, c.QueryInt("top", s.config.ChartMembers))
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(png)
}

func (s *Server) HandleExport(c *fiber.Ctx) error {
	members, err := s.loadMembers(c)
	if err != nil {
		return err
	}
	year, _ := yearParam(c)

	data, err := report.Workbook(members, year)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Attachment(fmt.Sprintf("aoc-%d.xlsx", year))
	return c.Send(data)
}

func (s *Server) loadEvent(c *fiber.Ctx) (*types.AOCEvent, error) {
	year, err := yearParam(c)
	if err != nil {
		return nil, fiber.ErrNotFound
	}
	event, _, err := s.db.GetLeaderboard(c.UserContext(), year)
	if errors.Is(err, database.ErrNotFound) {
		return nil, fiber.ErrNotFound
	}
	return event, err
}

func (s *Server) loadMembers(c *fiber.Ctx) (stats.Members, error) {
	event, err := s.loadEvent(c)
	if err != nil {
		return nil, err
	}
	return s.process(event), nil
}

func (s *Server) process(event *types.AOCEvent) stats.Members {
	start := time.Now()
	members := s.processor.Process(event)
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveProcess(time.Since(start), len(members))
	}
	return members
}

func (s *Server) observeDecodeError() {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveDecodeError()
	}
}

func yearParam(c *fiber.Ctx) (int, error) {
	year, err := c.ParamsInt("year")
	if err != nil {
		return 0, err
	}
	if year < firstEvent {
		return 0, fmt.Errorf("invalid event year %d", year)
	}
	return year, nil
}

func boardOptions(c *fiber.Ctx) []boards.Option {
	opts := []boards.Option{}
	if c.QueryBool("dense") {
		opts = append(opts, boards.Dense())
	}
	if limit := c.QueryInt("limit"); limit > 0 {
		opts = append(opts, boards.Limit(limit))
	}
	return opts
}

func (s *Server) renderError(c *fiber.Ctx, status int, message string) error {
	c.Status(status)
	return s.Render(c, templates.ErrorPage(status, message))
}

func (s *Server) Render(c *fiber.Ctx, component templ.Component) error {
	c.Set("Content-Type", "text/html")
	context := c.Context()

	renderOrder := []func(templ.Component) templ.Component{}

	if c.Get("HX-Request") != "true" {
		renderOrder = append(renderOrder, templates.Index)
	}

	// we need to render bottom-up
	for i := len(renderOrder) - 1; i >= 0; i -= 1 {
		component = renderOrder[i](component)
	}

	return component.Render(context, c.Response().BodyWriter())
}

func redirect(c *fiber.Ctx, target string) error {
	// if there is htmx loaded, force a full redirect
	if c.Get("HX-Request") == "true" {
		c.Set("HX-Redirect", target)
		return c.SendStatus(200)
	}

	// no HTMX, native redirect will work
	return c.Redirect(target)
}
