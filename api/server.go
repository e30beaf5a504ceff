// Package api provides the collector's local status server. It reports health
// and the resolved plugin configuration to the operator.
package api

import (
	"net"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/arkbriar/ssmgr-collector/pkg/config"
)

// Server is a read-only HTTP view of a running collector.
type Server struct {
	config Config
	plugin *config.Config
	logger *zap.Logger
	server *fiber.App
}

// ConfigResponse is the JSON form of the resolved plugin configuration.
type ConfigResponse struct {
	RemoteHost string            `json:"remote_host"`
	RemotePort uint16            `json:"remote_port"`
	LocalHost  string            `json:"local_host"`
	LocalPort  uint16            `json:"local_port"`
	Options    map[string]string `json:"options"`
}

// ErrorResponse is returned for failed requests.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a status server for the given plugin configuration.
func NewServer(config Config, plugin *config.Config, logger *zap.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		plugin: plugin,
		logger: logger,
		server: app,
	}

	app.Get("/health", s.handleHealth)
	app.Get("/config", s.handleConfig)
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not found"})
	})

	return s, nil
}

// Run starts the status server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting status server", zap.String("listen", s.config.ListenAddr))
	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener starts the status server on an existing listener.
func (s *Server) RunWithListener(ln net.Listener) error {
	s.logger.Info("starting status server", zap.String("listen", ln.Addr().String()))
	return s.server.Listener(ln)
}

// Shutdown stops the status server.
func (s *Server) Shutdown() error {
	return s.server.Shutdown()
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(map[string]string{"status": "ok"})
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	return c.JSON(NewConfigResponse(s.plugin))
}

// NewConfigResponse converts a resolved configuration to its JSON form.
func NewConfigResponse(cfg *config.Config) ConfigResponse {
	return ConfigResponse{
		RemoteHost: cfg.RemoteHost(),
		RemotePort: cfg.RemotePort(),
		LocalHost:  cfg.LocalHost(),
		LocalPort:  cfg.LocalPort(),
		Options:    cfg.Options(),
	}
}
