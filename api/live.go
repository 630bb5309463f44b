package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/hoshinonyaruko/stack-in-im/game"
	"github.com/hoshinonyaruko/stack-in-im/stack"
	"github.com/hoshinonyaruko/stack-in-im/structs"
	"go.uber.org/zap"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// 客户端嵌在 IM 的网页里，来源不固定
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Frame 是推给客户端的一条消息
type Frame struct {
	Type    string `json:"type"` // snapshot, placement, error
	Payload any    `json:"payload"`
}

// Command 是客户端发来的操作
type Command struct {
	Type string `json:"type"` // action, start, reset
}

type placementFrame struct {
	Outcome  stack.Outcome     `json:"outcome"`
	Overhang float64           `json:"overhang"`
	Score    int               `json:"score"`
	State    structs.GameState `json:"state"`
}

// LiveHandler 用 websocket 按 interval 推送快照，并接收玩家操作
func LiveHandler(m *game.Manager, metrics *Metrics, interval time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		openID, ok := requireOpenID(c)
		if !ok {
			return
		}
		if _, err := m.Snapshot(openID); errors.Is(err, game.ErrSessionNotFound) {
			if _, err := m.Reset(openID); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to create game"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade 已经写了错误响应
			logger.Debug("websocket upgrade failed", zap.String("openid", openID), zap.Error(err))
			return
		}
		l := &live{
			conn:    conn,
			manager: m,
			metrics: metrics,
			openID:  openID,
			logger:  logger.With(zap.String("openid", openID)),
			out:     make(chan Frame, 16),
			done:    make(chan struct{}),
		}
		go l.readLoop()
		l.writeLoop(interval)
	}
}

type live struct {
	conn    *websocket.Conn
	manager *game.Manager
	metrics *Metrics
	openID  string
	logger  *zap.Logger
	out     chan Frame
	done    chan struct{}
}

// readLoop 读取客户端操作，连接断开时关闭 done
func (l *live) readLoop() {
	defer close(l.done)
	l.conn.SetReadLimit(512)
	_ = l.conn.SetReadDeadline(time.Now().Add(pongWait))
	l.conn.SetPongHandler(func(string) error {
		return l.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd Command
		if err := l.conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.logger.Warn("websocket read", zap.Error(err))
			}
			return
		}
		frame := l.apply(cmd)
		select {
		case l.out <- frame:
		default:
			l.logger.Warn("websocket queue full, dropping frame", zap.String("type", frame.Type))
		}
	}
}

func (l *live) apply(cmd Command) Frame {
	var (
		snap structs.Snapshot
		err  error
	)
	switch cmd.Type {
	case "action":
		var p *stack.Placement
		snap, p, err = l.manager.Action(l.openID)
		if err == nil && p != nil {
			if l.metrics != nil {
				l.metrics.ObservePlacement(p)
			}
			return Frame{Type: "placement", Payload: placementFrame{
				Outcome:  p.Outcome,
				Overhang: p.Overhang,
				Score:    snap.Score,
				State:    snap.State,
			}}
		}
	case "start":
		snap, err = l.manager.Start(l.openID)
	case "reset":
		snap, err = l.manager.Reset(l.openID)
	default:
		return Frame{Type: "error", Payload: "unknown command " + cmd.Type}
	}
	if err != nil {
		return Frame{Type: "error", Payload: err.Error()}
	}
	return Frame{Type: "snapshot", Payload: snap}
}

// writeLoop 是唯一写连接的 goroutine
func (l *live) writeLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
		l.conn.Close()
	}()

	for {
		var frame Frame
		select {
		case <-l.done:
			return
		case frame = <-l.out:
		case <-ticker.C:
			snap, err := l.manager.Snapshot(l.openID)
			if err != nil {
				// 会话被回收
				frame = Frame{Type: "error", Payload: err.Error()}
			} else {
				frame = Frame{Type: "snapshot", Payload: snap}
			}
		case <-ping.C:
			_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := l.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			continue
		}

		_ = l.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := l.conn.WriteJSON(frame); err != nil {
			l.logger.Debug("websocket write", zap.Error(err))
			return
		}
	}
}
