// Package http serves the schedule API consumed by the booking clients.
package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"storehours/internal/domain"
	"storehours/internal/service/schedule"
)

type ScheduleService interface {
	Refresh(ctx context.Context) error
	Status(ctx context.Context, now time.Time) (schedule.Status, error)
	Slots(ctx context.Context, date time.Time, sel domain.ZoneSelection, display *time.Location, intervalMinutes int) ([]time.Time, error)
	Greeting(now time.Time, sel domain.ZoneSelection, display *time.Location) string
}

type Server struct {
	echo            *echo.Echo
	svc             ScheduleService
	storeZone       *time.Location
	defaultInterval int
	log             *slog.Logger

	// now is the single clock read per request; core computations only
	// ever see the instant it produced.
	now func() time.Time
}

func NewServer(svc ScheduleService, storeZone *time.Location, defaultIntervalMinutes int, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if defaultIntervalMinutes < 1 {
		defaultIntervalMinutes = 15
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:            e,
		svc:             svc,
		storeZone:       storeZone,
		defaultInterval: defaultIntervalMinutes,
		log:             log.With(slog.String("component", "http")),
		now:             time.Now,
	}

	e.GET("/healthz", s.health)

	v1 := e.Group("/v1/store")
	v1.GET("/status", s.status)
	v1.GET("/slots", s.slots)
	v1.GET("/greeting", s.greeting)
	v1.POST("/refresh", s.refresh)

	return s
}

func (s *Server) Start(addr string) error {
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Open        bool    `json:"open"`
	NextOpening *string `json:"next_opening,omitempty"`
}

func (s *Server) status(c echo.Context) error {
	log := s.log.With(slog.String("handler", "status"))

	now, err := s.instantParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	}
	sel, display, err := zoneParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	}

	st, err := s.svc.Status(c.Request().Context(), now)
	if err != nil {
		log.Error("status failed", slog.Any("err", err))
		return c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}

	resp := statusResponse{Open: st.Open}
	if st.NextOpening != nil {
		loc := domain.Zones{Store: s.storeZone, Display: display}.In(sel)
		v := st.NextOpening.In(loc).Format(time.RFC3339)
		resp.NextOpening = &v
	}
	return c.JSON(http.StatusOK, resp)
}

type slotsResponse struct {
	Date            string   `json:"date"`
	Timezone        string   `json:"timezone"`
	IntervalMinutes int      `json:"interval_minutes"`
	Slots           []string `json:"slots"`
}

func (s *Server) slots(c echo.Context) error {
	log := s.log.With(slog.String("handler", "slots"))

	dateStr := c.QueryParam("date")
	if dateStr == "" {
		return c.JSON(http.StatusBadRequest, errorBody("date is required"))
	}
	sel, display, err := zoneParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	}

	loc := domain.Zones{Store: s.storeZone, Display: display}.In(sel)
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("date must be YYYY-MM-DD"))
	}

	interval := s.defaultInterval
	if p := c.QueryParam("interval"); p != "" {
		interval, err = strconv.Atoi(p)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorBody("interval must be an integer"))
		}
	}

	slots, err := s.svc.Slots(c.Request().Context(), date, sel, display, interval)
	if err != nil {
		var vErr *schedule.ValidationError
		if errors.As(err, &vErr) {
			return c.JSON(http.StatusBadRequest, errorBody(vErr.Error()))
		}
		log.Error("slots failed", slog.Any("err", err), slog.String("date", dateStr))
		return c.JSON(http.StatusInternalServerError, errorBody("internal error"))
	}

	out := make([]string, 0, len(slots))
	for _, t := range slots {
		out = append(out, t.Format(time.RFC3339))
	}
	return c.JSON(http.StatusOK, slotsResponse{
		Date:            dateStr,
		Timezone:        loc.String(),
		IntervalMinutes: interval,
		Slots:           out,
	})
}

func (s *Server) greeting(c echo.Context) error {
	now, err := s.instantParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	}
	sel, display, err := zoneParam(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorBody(err.Error()))
	}
	return c.JSON(http.StatusOK, map[string]string{
		"greeting": s.svc.Greeting(now, sel, display),
	})
}

func (s *Server) refresh(c echo.Context) error {
	log := s.log.With(slog.String("handler", "refresh"))

	if err := s.svc.Refresh(c.Request().Context()); err != nil {
		log.Error("refresh failed", slog.Any("err", err))
		return c.JSON(http.StatusBadGateway, errorBody("refresh failed"))
	}
	log.Info("schedule refresh requested")
	return c.NoContent(http.StatusNoContent)
}

// instantParam reads the optional at query parameter, defaulting to the
// server clock.
func (s *Server) instantParam(c echo.Context) (time.Time, error) {
	at := c.QueryParam("at")
	if at == "" {
		return s.now(), nil
	}
	parsed, err := time.Parse(time.RFC3339, at)
	if err != nil {
		return time.Time{}, errors.New("at must be an RFC 3339 timestamp")
	}
	return parsed, nil
}

// zoneParam reads the tz query parameter. Absent or "store" selects the
// store zone; any other value must be a valid IANA zone name and
// selects it as the display zone.
func zoneParam(c echo.Context) (domain.ZoneSelection, *time.Location, error) {
	tz := c.QueryParam("tz")
	if tz == "" || tz == "store" {
		return domain.StoreZone, nil, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return domain.StoreZone, nil, errors.New("tz must be \"store\" or an IANA timezone name")
	}
	return domain.DisplayZone, loc, nil
}

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}
