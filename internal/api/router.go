package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"toppan-service/internal/middleware"
	"toppan-service/internal/model"
	"toppan-service/internal/service"
	"toppan-service/internal/ws"
	pkgAuth "toppan-service/pkg/auth"
	appErr "toppan-service/pkg/errors"
	"toppan-service/pkg/logger"
	"toppan-service/pkg/response"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Handler struct {
	services *service.Container
}

func RegisterRoutes(r *gin.Engine, services *service.Container, allowedOrigins []string) {
	handler := &Handler{services: services}
	wsHandler := ws.NewHandler(services.Game, allowedOrigins)

	r.Use(cors.New(corsConfig(allowedOrigins)))

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong"})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/session", handler.CreateSession)
		apiGroup.POST("/new", middleware.SessionRequired(), handler.CreateRoom)
		apiGroup.GET("/rooms", handler.ListRooms)
		apiGroup.GET("/rooms/:id", handler.GetRoom)

		history := apiGroup.Group("/rooms/:id/history")
		history.Use(middleware.SessionRequired())
		{
			history.GET("", handler.ListHistory)
		}
	}

	r.GET("/ws", wsHandler.HandleWS)
}

func corsConfig(allowedOrigins []string) cors.Config {
	conf := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Origin", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	origins := make([]string, 0, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = origins
		conf.AllowCredentials = true
	}
	return conf
}

type sessionBody struct {
	Name string `json:"name"`
}

func (h *Handler) CreateSession(c *gin.Context) {
	var body sessionBody
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			response.Error(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	sessionID := uuid.NewString()
	token, err := pkgAuth.GenerateSessionToken(sessionID, body.Name)
	if err != nil {
		logger.Log.Error("failed to sign session token", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "failed to create session")
		return
	}

	response.Success(c, gin.H{
		"token":     token,
		"sessionId": sessionID,
		"name":      strings.TrimSpace(body.Name),
	})
}

// CreateRoom opens an empty room for a session to share; it expires if
// nobody joins it.
func (h *Handler) CreateRoom(c *gin.Context) {
	room := h.services.Game.CreateRoom()
	logger.Log.Info("room opened over http",
		zap.String("roomID", room.ID()),
		zap.String("sessionID", middleware.SessionID(c)),
		zap.String("name", middleware.PlayerName(c)),
	)
	response.Success(c, gin.H{"roomId": room.ID()})
}

func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.services.ListRooms(c.Request.Context())
	if err != nil {
		logger.Log.Warn("directory list failed, using local rooms", zap.Error(err))
		rooms = h.services.Game.Rooms()
	}
	response.Success(c, gin.H{"rooms": rooms})
}

// GetRoom returns the spectator view of a room.
func (h *Handler) GetRoom(c *gin.Context) {
	room, ok := h.services.Game.Room(c.Param("id"))
	if !ok {
		response.FromError(c, appErr.ErrRoomNotFound)
		return
	}
	response.Success(c, room.ExportState(""))
}

type roundView struct {
	ID          int64          `json:"id"`
	RoomID      string         `json:"roomId"`
	RoundNo     int            `json:"roundNo"`
	DealerSeat  int            `json:"dealerSeat"`
	DealerHand  datatypes.JSON `json:"dealerHand"`
	DealerDelta int            `json:"dealerDelta"`
	Result      datatypes.JSON `json:"result"`
	SettledAt   time.Time      `json:"settledAt"`
	Players     []playerView   `json:"players"`
}

type playerView struct {
	Seat        int            `json:"seat"`
	Name        string         `json:"name"`
	IsDealer    bool           `json:"isDealer"`
	Hand        datatypes.JSON `json:"hand"`
	Bet         int            `json:"bet"`
	Delta       int            `json:"delta"`
	Outcome     string         `json:"outcome,omitempty"`
	Status      string         `json:"status"`
	PointsAfter int            `json:"pointsAfter"`
}

func toRoundView(r model.RoundRecord) roundView {
	view := roundView{
		ID:          r.ID,
		RoomID:      r.RoomID,
		RoundNo:     r.RoundNo,
		DealerSeat:  r.DealerSeat,
		DealerHand:  r.DealerHandJSON,
		DealerDelta: r.DealerDelta,
		Result:      r.ResultJSON,
		SettledAt:   r.SettledAt,
		Players:     make([]playerView, 0, len(r.Players)),
	}
	for _, p := range r.Players {
		view.Players = append(view.Players, playerView{
			Seat:        p.Seat,
			Name:        p.Name,
			IsDealer:    p.IsDealer,
			Hand:        p.HandJSON,
			Bet:         p.Bet,
			Delta:       p.Delta,
			Outcome:     p.Outcome,
			Status:      p.Status,
			PointsAfter: p.PointsAfter,
		})
	}
	return view
}

func (h *Handler) ListHistory(c *gin.Context) {
	page, err := parsePositiveIntQuery(c, "page", 1)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	size, err := parsePositiveIntQuery(c, "size", 20)
	if err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.services.History.ListByRoom(c.Request.Context(), c.Param("id"), page, size)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	items := make([]roundView, 0, len(result.Items))
	for _, r := range result.Items {
		items = append(items, toRoundView(r))
	}
	response.Success(c, gin.H{
		"items": items,
		"total": result.Total,
		"page":  page,
		"size":  size,
	})
}

func parsePositiveIntQuery(c *gin.Context, key string, defaultVal int) (int, error) {
	val := c.Query(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return parsed, nil
}
