package api

import (
	"context"
	"net/http"

	"TickAttrib/internal/domain/models"
	domrepo "TickAttrib/internal/domain/repository"
	"TickAttrib/internal/service/attribcache"
	"TickAttrib/internal/usecase"
	applogger "TickAttrib/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// same-origin policy is enforced by the CORS layer; the feed itself is read-only
	CheckOrigin: func(*http.Request) bool { return true },
}

// FeedHandler streams replay points over a websocket. One goroutine reads
// control commands, the producer paces the points; both stop when either
// side of the connection goes away.
type FeedHandler struct {
	l       *applogger.Logger
	replay  *usecase.ReplayOrchestrator
	stats   *attribcache.Service
	metrics domrepo.Metrics
	events  *applogger.EventLog
}

func NewFeedHandler(
	l *applogger.Logger,
	replay *usecase.ReplayOrchestrator,
	stats *attribcache.Service,
	metrics domrepo.Metrics,
	events *applogger.EventLog,
) *FeedHandler {
	return &FeedHandler{l: l, replay: replay, stats: stats, metrics: metrics, events: events}
}

func (h *FeedHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/alignment_feed/:case_id", h.AlignmentFeed)
}

// AlignmentFeed upgrades the connection and streams one case end to end.
func (h *FeedHandler) AlignmentFeed(c echo.Context) error {
	caseID := c.Param("case_id")

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	h.stats.WSConnected()
	h.syncGauge()
	h.events.Append("stream", "feed connected: "+caseID)
	defer func() {
		h.stats.WSDisconnected()
		h.syncGauge()
		h.events.Append("stream", "feed disconnected: "+caseID)
	}()

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	ctrl := usecase.NewControlState()
	go h.readControls(ctx, cancel, conn, ctrl)

	points, err := h.replay.Stream(ctx, caseID, ctrl)
	if err != nil {
		h.l.Error("stream start failed", applogger.String("case_id", caseID), applogger.Error(err))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "case unavailable"))
		return nil
	}

	for point := range points {
		if err := conn.WriteJSON(point); err != nil {
			cancel()
			h.drain(points)
			break
		}
	}
	return nil
}

// readControls pumps inbound control frames into the shared state. A read
// error means the client is gone, which also stops the producer.
func (h *FeedHandler) readControls(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, ctrl *usecase.ControlState) {
	defer cancel()
	for {
		var msg models.ControlMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		ctrl.Apply(msg)
	}
}

// drain unblocks the producer so its deferred cleanup runs.
func (h *FeedHandler) drain(points <-chan models.ReplayPoint) {
	for range points {
	}
}

func (h *FeedHandler) syncGauge() {
	h.metrics.SetWSConnections(int(h.stats.Snapshot().WSConnections))
}
