package api

import (
	"net/http"

	"TickAttrib/internal/domain/models"
	"TickAttrib/internal/service/attribcache"
	"TickAttrib/internal/usecase"
	xhttp "TickAttrib/pkg/http"
	applogger "TickAttrib/pkg/logger"
	"TickAttrib/pkg/util"

	"github.com/labstack/echo/v4"
)

// AlignmentHandler serves the REST surface: case discovery, the initial chart
// snapshot, and the system status/event feeds.
type AlignmentHandler struct {
	l      *applogger.Logger
	lib    *usecase.CaseLibrary
	replay *usecase.ReplayOrchestrator
	stats  *attribcache.Service
	events *applogger.EventLog
}

func NewAlignmentHandler(
	l *applogger.Logger,
	lib *usecase.CaseLibrary,
	replay *usecase.ReplayOrchestrator,
	stats *attribcache.Service,
	events *applogger.EventLog,
) *AlignmentHandler {
	return &AlignmentHandler{l: l, lib: lib, replay: replay, stats: stats, events: events}
}

func (h *AlignmentHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/available_cases", h.AvailableCases)
	g.GET("/alignment_data/:case_id", h.AlignmentData)
	g.GET("/system_status", h.SystemStatus)
	g.GET("/system_events", h.SystemEvents)
}

// AvailableCases lists every replay case in the library.
func (h *AlignmentHandler) AvailableCases(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"cases": h.lib.Cases(),
	})
}

// AlignmentData returns the initial chart snapshot for a case. The payload
// shape is a chart contract, so it goes out unwrapped.
func (h *AlignmentHandler) AlignmentData(c echo.Context) error {
	req := &models.CaseRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	snap, err := h.replay.HistoricalAlignment(c.Request().Context(), req.CaseID)
	if err != nil {
		h.l.Error("historical alignment failed", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, snap)
}

// SystemStatus reports the process-wide counter snapshot.
func (h *AlignmentHandler) SystemStatus(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.stats.Snapshot())
}

// SystemEvents returns the most recent operational events, newest first.
func (h *AlignmentHandler) SystemEvents(c echo.Context) error {
	recent := h.events.Recent(50)
	out := make([]models.SystemEvent, 0, len(recent))
	for _, ev := range recent {
		out = append(out, models.SystemEvent{
			Time:    util.ClockStamp(ev.Time),
			Type:    ev.Type,
			Message: ev.Message,
		})
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"events": out,
	})
}
