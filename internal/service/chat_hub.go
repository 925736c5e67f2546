package service

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/pkg/logger"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type ChatClient struct {
	Hub     *ChatHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	RoomID  string
	Limiter *rate.Limiter
}

// ChatHub 按房间维护连接并做消息扇出，消息持久化走 ChatService
type ChatHub struct {
	ChatSvc  *ChatService
	ChatRepo *repository.ChatRepository

	register   chan *ChatClient
	unregister chan *ChatClient
	broadcast  chan *roomEvent

	mu    sync.RWMutex
	rooms map[string]map[*ChatClient]bool
	done  chan struct{}
}

type roomEvent struct {
	roomID  string
	payload []byte
}

func NewChatHub(chatSvc *ChatService, chatRepo *repository.ChatRepository) *ChatHub {
	return &ChatHub{
		ChatSvc:    chatSvc,
		ChatRepo:   chatRepo,
		register:   make(chan *ChatClient),
		unregister: make(chan *ChatClient),
		broadcast:  make(chan *roomEvent, 64),
		rooms:      make(map[string]map[*ChatClient]bool),
		done:       make(chan struct{}),
	}
}

func (h *ChatHub) Run() {
	// 定期为本地在线用户续期 Redis 在线状态
	heartbeat := time.NewTicker(time.Minute)
	defer heartbeat.Stop()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.RoomID] == nil {
				h.rooms[client.RoomID] = make(map[*ChatClient]bool)
			}
			h.rooms[client.RoomID][client] = true
			h.mu.Unlock()
			h.ChatRepo.SetOnline(client.UserID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.RoomID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.rooms, client.RoomID)
					}
				}
			}
			h.mu.Unlock()
			h.ChatRepo.SetOffline(client.UserID)

		case event := <-h.broadcast:
			h.mu.RLock()
			for client := range h.rooms[event.roomID] {
				select {
				case client.Send <- event.payload:
				default:
					// 发送缓冲满说明客户端已卡死，放弃该连接
					close(client.Send)
					delete(h.rooms[event.roomID], client)
				}
			}
			h.mu.RUnlock()
			monitoring.WSMessageCounter.WithLabelValues("MESSAGE", "out").Inc()

		case <-heartbeat.C:
			h.mu.RLock()
			for _, clients := range h.rooms {
				for client := range clients {
					h.ChatRepo.RefreshOnline(client.UserID)
				}
			}
			h.mu.RUnlock()

		case <-h.done:
			h.mu.Lock()
			for roomID, clients := range h.rooms {
				for client := range clients {
					close(client.Send)
					client.Conn.Close()
				}
				delete(h.rooms, roomID)
			}
			h.mu.Unlock()
			return
		}
	}
}

func (h *ChatHub) Stop() {
	close(h.done)
}

// BroadcastMessage 向房间内所有在线连接推送一条已入库的消息
func (h *ChatHub) BroadcastMessage(roomID string, msg *model.ChatMessage) {
	payload, err := json.Marshal(WSMessage{Type: "MESSAGE", Data: msg})
	if err != nil {
		return
	}
	select {
	case h.broadcast <- &roomEvent{roomID: roomID, payload: payload}:
	case <-h.done:
	}
}

// ServeWS 升级连接并注册客户端，访问校验须在调用前完成
func (h *ChatHub) ServeWS(c *gin.Context, roomID string, actor Actor) error {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return err
	}

	client := &ChatClient{
		Hub:     h,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		UserID:  actor.UserID,
		RoomID:  roomID,
		Limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
	h.register <- client

	go client.writePump()
	go client.readPump(actor)
	return nil
}

func (c *ChatClient) readPump(actor Actor) {
	defer func() {
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		if !c.Limiter.Allow() {
			continue
		}

		var wsMsg WSMessage
		if err := json.Unmarshal(message, &wsMsg); err != nil {
			continue
		}
		monitoring.WSMessageCounter.WithLabelValues(wsMsg.Type, "in").Inc()

		if wsMsg.Type != "MESSAGE" {
			continue
		}
		data, ok := wsMsg.Data.(map[string]interface{})
		if !ok {
			continue
		}
		content, _ := data["content"].(string)
		if content == "" {
			continue
		}

		msg, err := c.Hub.ChatSvc.PostMessage(actor, c.RoomID, content)
		if err != nil {
			logger.Log.Warn("chat message rejected", zap.Error(err), zap.Uint("userId", c.UserID))
			continue
		}
		c.Hub.BroadcastMessage(c.RoomID, msg)
	}
}

func (c *ChatClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if n := len(c.Send); n > 0 {
				for i := 0; i < n; i++ {
					w.Write(<-c.Send)
				}
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
