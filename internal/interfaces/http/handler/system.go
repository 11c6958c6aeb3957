package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tesoreria/backend/internal/infrastructure/persistence"
	"github.com/tesoreria/backend/internal/interfaces/http/dto"
)

// DBHealth is the slice of the database handle the system endpoints need.
type DBHealth interface {
	Ping() error
	Stats() (persistence.ConnectionStats, error)
}

// SystemHandler serves the service identification and health endpoints.
type SystemHandler struct {
	BaseHandler
	startTime time.Time
	db        DBHealth
}

// NewSystemHandler creates a SystemHandler. db may be nil in tests that do
// not exercise the database health endpoint.
func NewSystemHandler(db DBHealth) *SystemHandler {
	return &SystemHandler{startTime: time.Now(), db: db}
}

// SystemInfoResponse represents the system information response
// @name HandlerSystemInfoResponse
type SystemInfoResponse struct {
	Name      string `json:"name" example:"Tesorería Backend API"`
	Version   string `json:"version" example:"1.0.0"`
	GoVersion string `json:"go_version" example:"go1.25.5"`
	Uptime    string `json:"uptime" example:"1h30m45s"`
}

// GetSystemInfo godoc
// @ID           getSystemSystemInfo
// @Summary      Get system information
// @Description  Returns basic system information including version and uptime
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Failure      500 {object} ErrorResponse
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      "Tesorería Backend API",
		Version:   "1.0.0",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// PingResponse represents the ping response
// @name HandlerPingResponse
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Description  Simple ping endpoint to check if the API is responsive
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// DBHealthResponse represents the database health response
// @name HandlerDBHealthResponse
type DBHealthResponse struct {
	Status          string `json:"status" example:"up"`
	OpenConnections int    `json:"open_connections" example:"3"`
	InUse           int    `json:"in_use" example:"1"`
	Idle            int    `json:"idle" example:"2"`
	WaitCount       int64  `json:"wait_count" example:"0"`
}

// GetDBHealth godoc
// @ID           getSystemDBHealth
// @Summary      Check database health
// @Description  Pings the database and reports connection pool state
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[DBHealthResponse]
// @Failure      503 {object} ErrorResponse
// @Router       /system/db [get]
func (h *SystemHandler) GetDBHealth(c *gin.Context) {
	if h.db == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Database handle not configured")
		return
	}
	if err := h.db.Ping(); err != nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Database unreachable")
		return
	}

	stats, err := h.db.Stats()
	if err != nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeInternal, "Database unreachable")
		return
	}
	h.Success(c, DBHealthResponse{
		Status:          "up",
		OpenConnections: stats.OpenConnections,
		InUse:           stats.InUse,
		Idle:            stats.Idle,
		WaitCount:       stats.WaitCount,
	})
}
