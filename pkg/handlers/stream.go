package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"task-sync-backend/pkg/apperrors"
	"task-sync-backend/pkg/config"
	"task-sync-backend/pkg/database"
	"task-sync-backend/pkg/middleware"
	"task-sync-backend/pkg/models"
	"task-sync-backend/pkg/subscriptions"
	"task-sync-backend/pkg/utils"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// Control frames are tiny; a generous cap still stops abuse
	maxControlSize = 4096
)

// controlMessage is what clients send: attach or detach a subscription.
type controlMessage struct {
	Action string `json:"action"` // "attach" or "detach"
	Kind   string `json:"kind"`   // user | spaces | tasks | completed
	Key    string `json:"key"`    // user id or space id depending on kind
}

// streamFrame is what the server sends: one result on one subscription.
type streamFrame struct {
	Kind   string          `json:"kind"`
	Result json.RawMessage `json:"result"`
}

// StreamHandler serves the websocket subscription endpoint. Each connection
// owns one subscription manager; attach and detach frames drive it.
type StreamHandler struct {
	config   *config.Config
	db       database.DatabaseInterface
	upgrader websocket.Upgrader
}

// NewStreamHandler creates the stream handler
func NewStreamHandler(cfg *config.Config, db database.DatabaseInterface) *StreamHandler {
	return &StreamHandler{
		config: cfg,
		db:     db,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				if cfg.IsDevelopment() {
					return true
				}
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				for _, allowed := range cfg.AllowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Serve upgrades the connection and runs the control loop until the client
// disconnects.
func (h *StreamHandler) Serve(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Not authenticated")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		fmt.Printf("[warn] websocket upgrade failed: %v\n", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := &streamSession{
		userID:  user.ID,
		db:      h.db,
		conn:    conn,
		manager: subscriptions.NewManager(h.db),
		active:  make(map[string]interface{}),
	}
	defer session.close()

	go session.pingLoop(ctx)
	session.readLoop(ctx)
}

// streamSession is the per-connection state.
type streamSession struct {
	userID  string
	db      database.DatabaseInterface
	conn    *websocket.Conn
	manager *subscriptions.Manager

	writeMu sync.Mutex
	// active maps kind to the channel currently forwarded, so a same-key
	// re-attach does not double-forward.
	activeMu sync.Mutex
	active   map[string]interface{}
}

func (s *streamSession) close() {
	s.manager.DetachAll()
	s.conn.Close()
}

func (s *streamSession) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(maxControlSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg controlMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				fmt.Printf("[warn] websocket read error: %v\n", err)
			}
			return
		}

		switch msg.Action {
		case "attach":
			s.attach(ctx, msg)
		case "detach":
			s.detach(msg.Kind)
		default:
			s.sendError(msg.Kind, apperrors.Invalid("unknown action: "+msg.Action))
		}
	}
}

func (s *streamSession) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.writeMu.Lock()
			err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			s.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// attach authorizes the requested key, attaches the subscription and
// forwards its results onto the socket.
func (s *streamSession) attach(ctx context.Context, msg controlMessage) {
	switch msg.Kind {
	case subscriptions.KindUser, subscriptions.KindSpaces:
		// These kinds are keyed by user; clients may only watch themselves.
		if msg.Key == "" {
			msg.Key = s.userID
		}
		if msg.Key != s.userID {
			s.sendError(msg.Kind, apperrors.PermissionDenied("cannot subscribe to another user"))
			return
		}
	case subscriptions.KindTasks, subscriptions.KindCompleted:
		space, err := s.db.GetSpaceByID(msg.Key)
		if err != nil {
			s.sendError(msg.Kind, err)
			return
		}
		if !space.HasMember(s.userID) {
			s.sendError(msg.Kind, apperrors.PermissionDenied("not a member of the space"))
			return
		}
	default:
		s.sendError(msg.Kind, apperrors.Invalid("unknown subscription kind: "+msg.Kind))
		return
	}

	switch msg.Kind {
	case subscriptions.KindUser:
		forward(s, msg.Kind, s.manager.User.Attach(ctx, msg.Key))
	case subscriptions.KindSpaces:
		forward(s, msg.Kind, s.manager.Spaces.Attach(ctx, msg.Key))
	case subscriptions.KindTasks:
		forward(s, msg.Kind, s.manager.Tasks.Attach(ctx, msg.Key))
	case subscriptions.KindCompleted:
		forward(s, msg.Kind, s.manager.Completed.Attach(ctx, msg.Key))
	}
}

func (s *streamSession) detach(kind string) {
	switch kind {
	case subscriptions.KindUser:
		s.manager.User.Detach()
	case subscriptions.KindSpaces:
		s.manager.Spaces.Detach()
	case subscriptions.KindTasks:
		s.manager.Tasks.Detach()
	case subscriptions.KindCompleted:
		s.manager.Completed.Detach()
	default:
		s.sendError(kind, apperrors.Invalid("unknown subscription kind: "+kind))
	}
}

// forward pumps one subscription channel onto the socket. A same-key
// re-attach returns the channel already being forwarded; spawning a second
// pump for it would split deliveries, so it is skipped.
func forward[T any](s *streamSession, kind string, ch <-chan models.Result[T]) {
	s.activeMu.Lock()
	if existing, ok := s.active[kind]; ok && channelEqual(existing, ch) {
		s.activeMu.Unlock()
		return
	}
	s.active[kind] = ch
	s.activeMu.Unlock()

	go func() {
		for r := range ch {
			payload, err := json.Marshal(r)
			if err != nil {
				fmt.Printf("[error] failed to marshal stream result: %v\n", err)
				continue
			}
			if !s.send(kind, payload) {
				return
			}
		}
	}()
}

func channelEqual(stored interface{}, ch interface{}) bool {
	return stored == ch
}

func (s *streamSession) send(kind string, payload []byte) bool {
	frame, err := json.Marshal(streamFrame{Kind: kind, Result: payload})
	if err != nil {
		return false
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return false
	}
	return true
}

func (s *streamSession) sendError(kind string, err error) {
	payload, merr := json.Marshal(models.Failure[struct{}](err))
	if merr != nil {
		return
	}
	s.send(kind, payload)
}
