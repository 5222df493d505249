package ops

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"signalscan/internal/app"
	"signalscan/internal/domain/models"
	"signalscan/internal/usecase"
	xlogger "signalscan/pkg/logger"
)

// Handler serves the operational read API over the consumer-side board plus
// the Tier1 force-scan trigger.
type Handler struct {
	logger *xlogger.Logger
	board  *app.Board
	tier1  *usecase.Tier1
	halts  *usecase.HaltReconciler
	news   *usecase.NewsAggregator
}

func New(
	logger *xlogger.Logger,
	board *app.Board,
	tier1 *usecase.Tier1,
	halts *usecase.HaltReconciler,
	news *usecase.NewsAggregator,
) *Handler {
	return &Handler{
		logger: logger.Component("ops"),
		board:  board,
		tier1:  tier1,
		halts:  halts,
		news:   news,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)
	g := e.Group("/api")
	g.GET("/channels", h.Channels)
	g.GET("/halts", h.Halts)
	g.GET("/news/breaking", h.BreakingNews)
	g.GET("/indicators/:engine", h.Indicators)
	g.POST("/scan", h.ForceScan)
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "ok",
		"last_scan": h.tier1.LastRun(),
	})
}

func (h *Handler) Channels(c echo.Context) error {
	return c.JSON(http.StatusOK, h.board.Channels())
}

func (h *Handler) Halts(c echo.Context) error {
	return c.JSON(http.StatusOK, h.halts.Active())
}

func (h *Handler) BreakingNews(c echo.Context) error {
	return c.JSON(http.StatusOK, h.news.BreakingItems())
}

func (h *Handler) Indicators(c echo.Context) error {
	var cat models.EventCategory
	switch c.Param("engine") {
	case "vector":
		cat = models.EventVector
	case "squeeze":
		cat = models.EventSqueeze
	case "trend":
		cat = models.EventTrend
	default:
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown engine"})
	}
	return c.JSON(http.StatusOK, h.board.Indicators(cat))
}

// ForceScan triggers an out-of-schedule Tier1 run synchronously.
func (h *Handler) ForceScan(c echo.Context) error {
	start := time.Now()
	if err := h.tier1.Run(c.Request().Context()); err != nil {
		h.logger.Error("force scan", xlogger.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"candidates": len(h.tier1.Candidates()),
		"took_ms":    time.Since(start).Milliseconds(),
	})
}
