package progress

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// 개발용 - 모든 origin 허용
		return true
	},
}

// Update - 구독자에게 전달되는 진행 상황 메시지
type Update struct {
	SessionID string `json:"sessionId"`
	Caption   string `json:"caption"`
	Screen    string `json:"screen"`
	Error     string `json:"error,omitempty"`
}

// client - 연결된 구독자
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub - 세션별 진행 상황 브로드캐스트 허브
// 캡션은 표시용일 뿐이며 워크플로우 결과에는 영향 없음
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*client]struct{}
}

// NewHub - 허브 생성
func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]map[*client]struct{}),
	}
}

// HandleWebSocket - GET /ws/progress?session=...
// 세션의 진행 캡션을 구독
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "Missing session parameter", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 16),
	}

	h.mu.Lock()
	if h.subscribers[sessionID] == nil {
		h.subscribers[sessionID] = make(map[*client]struct{})
	}
	h.subscribers[sessionID][c] = struct{}{}
	count := len(h.subscribers[sessionID])
	h.mu.Unlock()

	log.Printf("🔍 Progress subscriber connected - Session: %s (Subscribers: %d)", sessionID, count)

	go c.writePump()
	go h.readPump(sessionID, c)
}

// Publish - 세션 구독자 전원에게 진행 상황 전송
// 느린 구독자는 연결을 해제 (버퍼 초과 시)
func (h *Hub) Publish(update Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[update.SessionID]
	if len(subs) == 0 {
		return
	}

	messageBytes, err := json.Marshal(update)
	if err != nil {
		log.Printf("Error marshaling progress update: %v", err)
		return
	}

	for c := range subs {
		select {
		case c.send <- messageBytes:
		default:
			close(c.send)
			delete(subs, c)
		}
	}
}

// readPump - 연결 종료 감지용 (클라이언트 메시지는 무시)
func (h *Hub) readPump(sessionID string, c *client) {
	defer func() {
		h.remove(sessionID, c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// writePump - 클라이언트로 메시지 쓰기
func (c *client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// remove - 구독자 제거
func (h *Hub) remove(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[sessionID]
	if subs == nil {
		return
	}
	if _, ok := subs[c]; ok {
		close(c.send)
		delete(subs, c)
	}
	if len(subs) == 0 {
		delete(h.subscribers, sessionID)
	}
}
