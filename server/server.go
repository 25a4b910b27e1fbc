package server

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"strings"
	"sync"
	"time"

	"sonicfeed/feeds"
	"sonicfeed/feedsync"
	"sonicfeed/models"
	"sonicfeed/render"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

//go:embed page.html
var pageSource string

var page = template.Must(template.New("page").Parse(pageSource))

// Store is the persistence the admin API edits through.
type Store interface {
	Load(ctx context.Context) []models.Post
	Save(ctx context.Context, posts []models.Post) bool
	GetRetentionDays(ctx context.Context, def int) int
	SetRetentionDays(ctx context.Context, days int) bool
}

type ServerConfig struct {
	Title string

	Store  Store
	Loader *feeds.Loader
	View   *render.View

	// Hub carries render notifications to SSE clients and refresh broadcasts
	// to the watcher.
	Hub              *feedsync.Hub
	BroadcastChannel string

	DefaultRetention int

	// Origins allowed to call the API from a browser, comma separated
	AllowOrigins string

	// Interval between SSE keep-alive pings
	PingInterval time.Duration
}

type handlers struct {
	config *ServerConfig

	// Serializes read-modify-write cycles on the stored posts
	editMu sync.Mutex
}

// Returns a fiber.App serving the feed page and its API
func Server(config *ServerConfig) *fiber.App {
	if config.Title == "" {
		config.Title = "Feed"
	}
	if config.PingInterval <= 0 {
		config.PingInterval = 5 * time.Second
	}
	h := &handlers{config: config}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		log.WithFields(log.Fields{
			"method":    c.Method(),
			"route":     c.Route().Path,
			"status":    c.Response().StatusCode(),
			"latency":   time.Since(start),
			"requestid": c.GetRespHeader(fiber.HeaderXRequestID),
		}).Info("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New(compress.Config{
		Next: func(c *fiber.Ctx) bool {
			// Streams must not be buffered
			return strings.HasSuffix(c.Path(), "/sse")
		},
	}))
	if config.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: config.AllowOrigins,
			AllowHeaders: "Cache-Control, Content-Type",
		}))
	}

	app.Get("/", h.page)
	app.Get("/api/feed", h.feed)
	app.Get("/api/feed/html", h.feedHTML)

	app.Get("/api/posts", h.listPosts)
	app.Post("/api/posts", h.createPost)
	app.Delete("/api/posts/:id", h.deletePost)
	app.Put("/api/posts/:id/sticky", h.setSticky)

	app.Get("/api/settings/retention", h.getRetention)
	app.Put("/api/settings/retention", h.setRetention)

	app.Post("/sync/refresh", h.refresh)
	app.Get("/sync/sse", h.sse)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

func (h *handlers) page(c *fiber.Ctx) error {
	var buf bytes.Buffer
	err := page.Execute(&buf, struct {
		Title string
		Feed  template.HTML
	}{
		Title: h.config.Title,
		// The view only ever holds markup built by the renderer
		Feed: template.HTML(h.config.View.HTML()),
	})
	if err != nil {
		log.WithFields(log.Fields{
			"error": err,
		}).Error("Error rendering page")
		return c.Status(fiber.StatusInternalServerError).SendString("Error rendering page")
	}

	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("html", "utf-8")
	return c.Send(buf.Bytes())
}

func (h *handlers) feed(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(h.config.Loader.Last())
}

func (h *handlers) feedHTML(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("html", "utf-8")
	return c.SendString(h.config.View.HTML())
}

func (h *handlers) refresh(c *fiber.Ctx) error {
	h.config.Hub.Publish(h.config.BroadcastChannel, feedsync.Message{Type: feedsync.TypeRefresh})
	return c.SendStatus(fiber.StatusAccepted)
}
