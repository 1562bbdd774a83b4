package service

import (
	"context"
	stdlog "log"
	"net/http"
	"strconv"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/facebookgo/grace/gracehttp"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/rackerlabs/rse/internal/pkg/service/api"
	"github.com/rackerlabs/rse/internal/pkg/utils"
)

const (
	authHeader = "X-Auth-Token"

	defaultListLimit = 200
	maxListLimit     = 500
)

type (
	// HealthChecker indicates if the primary DB connection is usable
	HealthChecker interface {
		Healthy(ctx context.Context) error
	}

	// EventStore stores and lists channel events
	EventStore interface {
		Post(ctx context.Context, ev *api.Event) error
		ListAfter(ctx context.Context, channel string, lastID, limit int64) ([]api.Event, error)
	}

	// Auth checks a bearer token against the auth cache
	Auth interface {
		ValidToken(ctx context.Context, token string) (bool, error)
	}

	// Data is service operation data
	Data struct {
		Port int

		Health   HealthChecker
		Events   EventStore
		Auth     Auth
		TestMode bool
	}
)

// StartWebServer starts the HTTP service and listens for event requests
func StartWebServer(data *Data) error {
	log.Info().Int("port", data.Port).Msg("Starting HTTP RSE service")
	e, err := initRoutes(data)
	if err != nil {
		return errors.Wrap(err, "can't init routes")
	}
	gracehttp.SetLogger(stdlog.New(goapp.Log, "", 0))
	return gracehttp.Serve(&http.Server{Addr: ":" + strconv.Itoa(data.Port), Handler: e})
}

func initRoutes(data *Data) (*echo.Echo, error) {
	if data.Health == nil {
		return nil, errors.New("no health checker provided")
	}
	if data.Events == nil {
		return nil, errors.New("no event store provided")
	}
	if data.Auth == nil {
		return nil, errors.New("no auth provided")
	}
	e := echo.New()
	e.GET("/health", health(data))

	g := e.Group("", authMiddleware(data))
	g.POST("/:channel", postEvent(data))
	g.GET("/:channel", listEvents(data))
	return e, nil
}

func health(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if err := data.Health.Healthy(ctx); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("DB unreachable")
			return c.JSON(http.StatusServiceUnavailable, api.Health{Status: "fail", Database: "unreachable"})
		}
		return c.JSON(http.StatusOK, api.Health{Status: "OK", Database: "OK"})
	}
}

func authMiddleware(data *Data) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if data.TestMode {
				return next(c)
			}
			ctx := c.Request().Context()
			token := c.Request().Header.Get(authHeader)
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "no auth token")
			}
			ok, err := data.Auth.ValidToken(ctx, token)
			if err != nil {
				log.Ctx(ctx).Error().Err(err).Msg("Can't validate token")
				return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
			}
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
			}
			return next(c)
		}
	}
}

func postEvent(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		var input api.Event
		if err := utils.TakeJSONInput(c, &input); err != nil {
			log.Ctx(ctx).Error().Err(err).Send()
			return err
		}
		if input.Data == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "no event data")
		}
		input.Channel = c.Param("channel")
		input.UserAgent = c.Request().UserAgent()
		if err := data.Events.Post(ctx, &input); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Can't save event")
			return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return c.JSON(http.StatusCreated, input)
	}
}

func listEvents(data *Data) func(echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		lastID, err := queryInt(c, "last-known-id", 0)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong last-known-id")
		}
		limit, err := queryInt(c, "max", defaultListLimit)
		if err != nil || limit < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "wrong max")
		}
		if limit > maxListLimit {
			limit = maxListLimit
		}
		res, err := data.Events.ListAfter(ctx, c.Param("channel"), lastID, limit)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Can't get events")
			return echo.NewHTTPError(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		}
		return c.JSON(http.StatusOK, res)
	}
}

func queryInt(c echo.Context, name string, def int64) (int64, error) {
	s := c.QueryParam(name)
	if s == "" {
		return def, nil
	}
	return strconv.ParseInt(s, 10, 64)
}
