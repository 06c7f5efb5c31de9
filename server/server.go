package server

import (
	"context"
	"errors"
	"newsbot/models"
	"newsbot/scheduler"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// NewsTrigger runs the pipeline on demand
type NewsTrigger interface {
	Site(ctx context.Context, id string) (models.PipelineResult, error)
	All(ctx context.Context) []models.SiteResult
}

type ServerConfig struct {
	// Runs the pipeline for /news requests
	Trigger NewsTrigger

	// Build version reported by /health
	Version string
}

// NewsResponse is the JSON body of a single site result
type NewsResponse struct {
	Site    string   `json:"site"`
	Message string   `json:"message"`
	Items   []string `json:"items"`
	Error   string   `json:"error,omitempty"`
}

func newsResponse(result models.PipelineResult, err error) NewsResponse {
	response := NewsResponse{
		Site:    result.Site,
		Message: result.Message,
		Items:   result.Accepted,
	}
	if response.Items == nil {
		response.Items = []string{}
	}
	if err != nil {
		response.Error = err.Error()
	}
	return response
}

// Returns a fiber.App exposing health, on-demand news and metrics
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"version": config.Version,
		})
	})

	app.Get("/news", func(c *fiber.Ctx) error {
		results := config.Trigger.All(c.UserContext())

		responses := make([]NewsResponse, 0, len(results))
		for _, r := range results {
			responses = append(responses, newsResponse(r.Result, r.Err))
		}
		return c.JSON(responses)
	})

	app.Get("/news/:site", func(c *fiber.Ctx) error {
		site := c.Params("site")

		result, err := config.Trigger.Site(c.UserContext(), site)
		if errors.Is(err, scheduler.ErrUnknownSite) {
			return c.Status(fiber.StatusNotFound).SendString("Unknown site")
		}
		if err != nil {
			log.WithFields(log.Fields{
				"site":  site,
				"error": err,
			}).Error("Error running pipeline")
			return c.Status(fiber.StatusBadGateway).JSON(newsResponse(result, err))
		}

		return c.JSON(newsResponse(result, nil))
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}
