package server

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/sjson"

	"github.com/mostlygeek/action-bus/action"
	"github.com/mostlygeek/action-bus/config"
)

// Server bridges HTTP to an action registry: POST dispatches a call, GET
// serves the declared actions and their recent results, and an SSE route
// streams results as they are published.
//
// Reloading the configuration replaces the registry wholesale; the
// registry's declared-at-construction contract holds per instance.
type Server struct {
	sync.Mutex

	config    config.Config
	registry  *action.Registry
	monitors  map[string]*ResultMonitor
	ginEngine *gin.Engine
	regOpts   []action.Option

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

func New(cfg config.Config, opts ...action.Option) (*Server, error) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := &Server{
		ginEngine:      gin.New(),
		regOpts:        opts,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}

	if err := srv.applyConfig(cfg); err != nil {
		cancel()
		return nil, err
	}

	// Set up routes using the Gin engine
	srv.ginEngine.GET("/actions", srv.listActionsHandler)
	srv.ginEngine.POST("/actions/:name", srv.callActionHandler)
	srv.ginEngine.GET("/actions/:name/results", srv.sendResultsHandler)
	srv.ginEngine.GET("/actions/:name/stream", srv.streamResultsHandler)

	// Disable console color for testing
	gin.DisableConsoleColor()

	return srv, nil
}

// applyConfig builds a fresh registry from cfg: one declared action per
// config entry, Forward/Cmd handlers attached, and a result monitor
// subscribed to every action.
func (s *Server) applyConfig(cfg config.Config) error {
	registry := action.New(cfg.Names(), s.regOpts...)
	monitors := make(map[string]*ResultMonitor, len(cfg.Actions))

	for name, actionConfig := range cfg.Actions {
		switch {
		case actionConfig.Forward != "":
			if err := registry.RegisterAsync(name, forwardHandler(name, actionConfig)); err != nil {
				return err
			}
		case actionConfig.Cmd != "":
			handler, err := commandHandler(name, actionConfig)
			if err != nil {
				return err
			}
			if err := registry.RegisterAsync(name, handler); err != nil {
				return err
			}
		}

		monitor := NewResultMonitor(actionConfig.HistorySize)
		monitors[name] = monitor

		actionName := name
		logCalls := cfg.LogCalls
		if _, err := registry.On(name, func(result any) {
			encoded := encodeResult(result)
			monitor.Record(encoded)
			if logCalls {
				log.Printf("action %s completed: %s", actionName, encoded)
			}
		}); err != nil {
			return err
		}
	}

	s.Lock()
	s.config = cfg
	s.registry = registry
	s.monitors = monitors
	s.Unlock()
	return nil
}

// ReloadConfig replaces the running configuration and registry.
// In-flight handlers of the old registry still publish to the old
// subscribers; new calls go to the new registry.
func (s *Server) ReloadConfig(cfg config.Config) error {
	return s.applyConfig(cfg)
}

func (s *Server) Run(addr ...string) error {
	return s.ginEngine.Run(addr...)
}

// HandlerFunc exposes the gin engine for tests and embedding.
func (s *Server) HandlerFunc(w http.ResponseWriter, r *http.Request) {
	s.ginEngine.ServeHTTP(w, r)
}

func (s *Server) Shutdown() {
	s.shutdownCancel()
}

func (s *Server) getRegistry() *action.Registry {
	s.Lock()
	defer s.Unlock()
	return s.registry
}

func (s *Server) getMonitor(name string) (*ResultMonitor, bool) {
	s.Lock()
	defer s.Unlock()
	monitor, ok := s.monitors[name]
	return monitor, ok
}

func (s *Server) getConfig() config.Config {
	s.Lock()
	defer s.Unlock()
	return s.config
}

func (s *Server) listActionsHandler(c *gin.Context) {
	registry := s.getRegistry()
	cfg := s.getConfig()

	out := []byte(`{"actions":[]}`)
	i := 0
	for _, name := range registry.Names() {
		actionConfig := cfg.Actions[name]
		if actionConfig.Unlisted {
			continue
		}

		kind := "passthrough"
		switch {
		case actionConfig.Forward != "":
			kind = "forward"
		case actionConfig.Cmd != "":
			kind = "cmd"
		}

		out, _ = sjson.SetBytes(out, fmt.Sprintf("actions.%d.name", i), name)
		out, _ = sjson.SetBytes(out, fmt.Sprintf("actions.%d.kind", i), kind)
		i++
	}

	c.Data(http.StatusOK, "application/json", out)
}

func (s *Server) callActionHandler(c *gin.Context) {
	name := c.Param("name")
	registry := s.getRegistry()

	// Call itself is a silent no-op for unknown names; the HTTP surface
	// reports them so callers can tell a typo from a dropped dispatch.
	if !registry.Has(name) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown action %s", name)})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reading request body"})
		return
	}

	registry.Call(name, extractPayload(body))
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "action": name})
}

func (s *Server) sendResultsHandler(c *gin.Context) {
	name := c.Param("name")
	monitor, ok := s.getMonitor(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown action %s", name)})
		return
	}

	out := []byte(`{"results":[]}`)
	for i, result := range monitor.History() {
		out, _ = sjson.SetRawBytes(out, fmt.Sprintf("results.%d", i), []byte(result))
	}

	c.Data(http.StatusOK, "application/json", out)
}

func (s *Server) streamResultsHandler(c *gin.Context) {
	name := c.Param("name")
	monitor, ok := s.getMonitor(name)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown action %s", name)})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	// prevent nginx from buffering the stream
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.AbortWithError(http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	_, skipHistory := c.GetQuery("no-history")
	if !skipHistory {
		for _, result := range monitor.History() {
			c.SSEvent("result", result)
		}
		flusher.Flush()
	}

	resultChan := monitor.Subscribe()
	defer monitor.Unsubscribe(resultChan)

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-s.shutdownCtx.Done():
			return
		case result, ok := <-resultChan:
			if !ok {
				return
			}
			c.SSEvent("result", result)
			flusher.Flush()
		}
	}
}
