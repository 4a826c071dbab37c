package ws

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"toppan-service/internal/service/game"
	pkgAuth "toppan-service/pkg/auth"
	appErr "toppan-service/pkg/errors"
	"toppan-service/pkg/logger"
	"toppan-service/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	outboundBuffer = 64
	readLimit      = 1 << 16
	pongWait       = 60 * time.Second
	pingEvery      = 25 * time.Second
	writeWait      = 5 * time.Second
)

type Handler struct {
	gameSvc  *game.Service
	upgrader websocket.Upgrader
}

// NewHandler accepts connections from allowedOrigins; an empty list or "*"
// admits any origin.
func NewHandler(gameSvc *game.Service, allowedOrigins []string) *Handler {
	return &Handler{
		gameSvc: gameSvc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		if origin != "" {
			set[strings.ToLower(origin)] = struct{}{}
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

// Incoming is one client frame. ID is echoed in the ack.
type Incoming struct {
	Type string          `json:"type"`
	ID   string          `json:"id,omitempty"`
	Data json.RawMessage `json:"data"`
}

type Ack struct {
	Type   string      `json:"type"`
	ID     string      `json:"id,omitempty"`
	Action string      `json:"action"`
	OK     bool        `json:"ok"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Hello tells the client which session it is bound to.
type Hello struct {
	SessionID string `json:"sessionId"`
	Name      string `json:"name,omitempty"`
}

// HandleWS binds the connection to the session in ?token=, or to a fresh
// anonymous session when no token is given.
func (h *Handler) HandleWS(c *gin.Context) {
	sid := uuid.NewString()
	name := ""
	if token := strings.TrimSpace(c.Query("token")); token != "" {
		claims, err := pkgAuth.ParseSessionToken(token)
		if err != nil {
			response.FromError(c, appErr.ErrInvalidToken)
			return
		}
		sid = claims.SessionID
		name = claims.Name
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	logger.Log.Info("New WebSocket connection", zap.String("sessionID", sid))

	cl := newClient(conn, sid, name, h.gameSvc)
	cl.run()
}

// client owns one connection. done closes when readPump exits, writerDone
// when writePump does.
type client struct {
	conn       *websocket.Conn
	sid        string
	name       string
	svc        *game.Service
	outbound   chan game.OutgoingMessage
	acks       chan Ack
	done       chan struct{}
	writerDone chan struct{}
}

func newClient(conn *websocket.Conn, sid, name string, svc *game.Service) *client {
	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	return &client{
		conn:       conn,
		sid:        sid,
		name:       name,
		svc:        svc,
		outbound:   make(chan game.OutgoingMessage, outboundBuffer),
		acks:       make(chan Ack, outboundBuffer),
		done:       make(chan struct{}),
		writerDone: make(chan struct{}),
	}
}

func (c *client) run() {
	c.outbound <- game.OutgoingMessage{Type: "session", Data: Hello{SessionID: c.sid, Name: c.name}}
	c.svc.Attach(c.sid, c.outbound)
	go c.writePump()
	c.readPump()
}

func (c *client) readPump() {
	defer func() {
		close(c.done)
		c.svc.Detach(c.sid, c.outbound)
		c.conn.Close()
		logger.Log.Info("WebSocket closed", zap.String("sessionID", c.sid))
	}()

	for {
		mt, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Info("WS read error", zap.Error(err), zap.String("sessionID", c.sid))
			}
			return
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		var incoming Incoming
		if err := json.Unmarshal(message, &incoming); err != nil {
			c.ack(Ack{Action: "", Error: "invalid payload"})
			continue
		}
		if incoming.Type == "" {
			continue
		}

		c.ack(c.dispatch(incoming))
	}
}

func (c *client) dispatch(in Incoming) Ack {
	data := in.Data
	// A ticket name fills in when the client omits one.
	if c.name != "" && (in.Type == game.ActionCreateRoom || in.Type == game.ActionJoinRoom) {
		data = withDefaultName(data, c.name)
	}

	res, err := c.svc.Handle(c.sid, in.Type, data)
	if err != nil {
		logger.Log.Debug("action rejected",
			zap.String("sessionID", c.sid),
			zap.String("action", in.Type),
			zap.Error(err),
		)
		return Ack{ID: in.ID, Action: in.Type, Error: err.Error()}
	}
	return Ack{ID: in.ID, Action: in.Type, OK: true, Data: res}
}

func (c *client) ack(a Ack) {
	a.Type = "ack"
	select {
	case c.acks <- a:
	case <-c.done:
	case <-c.writerDone:
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		close(c.writerDone)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outbound:
			if !c.write(msg) {
				return
			}
		case a := <-c.acks:
			if !c.write(a) {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) write(v interface{}) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(v); err != nil {
		logger.Log.Info("WS write error", zap.Error(err), zap.String("sessionID", c.sid))
		return false
	}
	return true
}

func withDefaultName(data json.RawMessage, name string) json.RawMessage {
	payload := map[string]interface{}{}
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &payload); err != nil {
			return data
		}
	}
	if current, ok := payload["name"].(string); ok && strings.TrimSpace(current) != "" {
		return data
	}
	payload["name"] = name
	raw, err := json.Marshal(payload)
	if err != nil {
		return data
	}
	return raw
}
