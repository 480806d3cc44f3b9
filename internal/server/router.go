package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/taskr/internal/config"
	"github.com/loykin/taskr/internal/ops"
	"github.com/loykin/taskr/internal/service"
	itls "github.com/loykin/taskr/internal/tls"
)

// Router provides embeddable HTTP handlers for the task-list operations.
// Endpoints (basePath may be empty or start with '/'; no trailing slash):
//
//	GET    {basePath}/healthz
//	GET    {basePath}/sessions
//	GET    {basePath}/sessions/active
//	GET    {basePath}/sessions/:session_id/todos   query: status, priority, stats=true
//	PUT    {basePath}/sessions/:session_id/todos   body: {"todos": [...]} or [...]
//	POST   {basePath}/sessions/:session_id/todos   body: {content, priority, status, id}
//	PATCH  {basePath}/sessions/:session_id/todos/:todo_id   body: {"status": ...}
//	DELETE {basePath}/sessions/:session_id
//	POST   {basePath}/tools/:name                  body: argument map
type Router struct {
	ops      *ops.Dispatcher
	basePath string
	logger   *slog.Logger
}

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(d *ops.Dispatcher, basePath string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{ops: d, basePath: sanitizeBase(basePath), logger: logger}
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery(), requestID(), accessLog(r.logger), countRequests())
	group := g.Group(r.basePath)
	group.GET("/healthz", r.handleHealth)
	group.GET("/sessions", r.handleSessions)
	group.GET("/sessions/active", r.handleActive)
	group.GET("/sessions/:session_id/todos", r.handleRead)
	group.PUT("/sessions/:session_id/todos", r.handleWrite)
	group.POST("/sessions/:session_id/todos", r.handleAdd)
	group.PATCH("/sessions/:session_id/todos/:todo_id", r.handleUpdateStatus)
	group.DELETE("/sessions/:session_id", r.handleDelete)
	group.POST("/tools/:name", r.handleTool)
	return g
}

// NewServer builds an HTTP server for cfg. TLS is configured when enabled;
// use Serve to run it.
func NewServer(cfg config.ServerConfig, d *ops.Dispatcher, logger *slog.Logger) (*http.Server, error) {
	tlsCfg, err := itls.Setup(cfg.TLS)
	if err != nil {
		return nil, err
	}
	r := NewRouter(d, cfg.BasePath, logger)
	return &http.Server{
		Addr:              cfg.Listen,
		Handler:           r.Handler(),
		TLSConfig:         tlsCfg,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}, nil
}

// Serve runs srv until ctx is cancelled, then shuts it down gracefully.
func Serve(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if srv.TLSConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}

func (r *Router) handleSessions(c *gin.Context) {
	r.reply(c)(r.ops.GetSessions(c.Request.Context()))
}

func (r *Router) handleActive(c *gin.Context) {
	r.reply(c)(r.ops.FindActiveWork(c.Request.Context()))
}

func (r *Router) handleRead(c *gin.Context) {
	args := map[string]any{"session_id": c.Param("session_id")}
	if v := c.Query("status"); v != "" {
		args["status_filter"] = v
	}
	if v := c.Query("priority"); v != "" {
		args["priority_filter"] = v
	}
	if v := c.Query("stats"); v != "" {
		args["include_stats"] = v
	}
	r.reply(c)(r.ops.Read(c.Request.Context(), args))
}

func (r *Router) handleWrite(c *gin.Context) {
	body, ok := bindBody(c)
	if !ok {
		return
	}
	args := map[string]any{"session_id": c.Param("session_id")}
	switch b := body.(type) {
	case []any:
		args["todos"] = b
	case map[string]any:
		if todos, ok := b["todos"]; ok {
			args["todos"] = todos
		}
	}
	r.reply(c)(r.ops.Write(c.Request.Context(), args))
}

func (r *Router) handleAdd(c *gin.Context) {
	args, ok := bindObject(c)
	if !ok {
		return
	}
	args["session_id"] = c.Param("session_id")
	r.reply(c)(r.ops.AddItem(c.Request.Context(), args))
}

func (r *Router) handleUpdateStatus(c *gin.Context) {
	args, ok := bindObject(c)
	if !ok {
		return
	}
	args["session_id"] = c.Param("session_id")
	args["todo_id"] = c.Param("todo_id")
	r.reply(c)(r.ops.UpdateStatus(c.Request.Context(), args))
}

func (r *Router) handleDelete(c *gin.Context) {
	args := map[string]any{"session_id": c.Param("session_id")}
	r.reply(c)(r.ops.DeleteSession(c.Request.Context(), args))
}

func (r *Router) handleTool(c *gin.Context) {
	args, ok := bindObject(c)
	if !ok {
		return
	}
	r.reply(c)(r.ops.Call(c.Request.Context(), c.Param("name"), args))
}

// reply writes an operation outcome with the status code matching err.
func (r *Router) reply(c *gin.Context) func(ops.Result, error) {
	return func(res ops.Result, err error) {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			r.logger.Error("operation failed", "path", c.FullPath(), "error", err)
		}
		writeJSON(c, code, res)
	}
}

func statusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ops.ErrUnknownOp) {
		return http.StatusNotFound
	}
	switch service.KindOf(err) {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
