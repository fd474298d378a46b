package notify

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Hub 将通知广播给所有已连接的 WebSocket 客户端。
type Hub struct {
	upgrader    websocket.Upgrader
	mu          sync.Mutex
	connections map[string]*websocket.Conn
}

// NewHub 创建通知广播中心
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[string]*websocket.Conn),
	}
}

// ServeHTTP 升级连接并保持到客户端断开。
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[notify] websocket upgrade failed: %v", err)
		return
	}

	id := uuid.NewString()
	h.add(id, conn)
	defer h.remove(id)

	// 客户端只接收消息，读循环仅用于感知断开。
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Notify implements Notifier.
func (h *Hub) Notify(level Level, message string) {
	h.Broadcast(New(level, message))
}

// Broadcast 发送通知，写入失败的连接会被移除。
func (h *Hub) Broadcast(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.connections {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(n); err != nil {
			log.Printf("[notify] drop client %s: %v", id, err)
			conn.Close()
			delete(h.connections, id)
		}
	}
}

// Count 返回当前连接数
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.connections)
}

// Close 关闭所有连接
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, conn := range h.connections {
		conn.Close()
		delete(h.connections, id)
	}
}

func (h *Hub) add(id string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[id] = conn
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.connections[id]; ok {
		conn.Close()
		delete(h.connections, id)
	}
}
