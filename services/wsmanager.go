package services

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WSWriteTimeout - сколько ждем медленного клиента на одну запись
const WSWriteTimeout = 5 * time.Second

// wsClient - соединение со своим мьютексом на запись.
// gorilla допускает только одного писателя на соединение.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(message []byte, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, message)
}

// WSConnManager - открытые websocket соединения по id пользователя.
// mu защищает только карту, запись идет под мьютексом клиента.
type WSConnManager struct {
	mu           sync.RWMutex
	clients      map[int64][]*wsClient
	writeTimeout time.Duration
}

func NewWSConnManager() *WSConnManager {
	return &WSConnManager{
		clients:      make(map[int64][]*wsClient),
		writeTimeout: WSWriteTimeout,
	}
}

// Add отправляет hello и только после этого делает соединение видимым для Send
func (m *WSConnManager) Add(userID int64, conn *websocket.Conn, hello []byte) error {
	client := &wsClient{conn: conn}
	if len(hello) > 0 {
		if err := client.write(hello, m.writeTimeout); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.clients[userID] = append(m.clients[userID], client)
	m.mu.Unlock()
	return nil
}

func (m *WSConnManager) Remove(userID int64, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.clients[userID][:0]
	for _, c := range m.clients[userID] {
		if c.conn != conn {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		delete(m.clients, userID)
		return
	}
	m.clients[userID] = kept
}

func (m *WSConnManager) Connected(userID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients[userID])
}

// Send пишет сообщение во все соединения пользователя и возвращает число успешных.
// Соединение, не принявшее запись за writeTimeout, закрывается: его обработчик
// выйдет из цикла чтения и вызовет Remove.
func (m *WSConnManager) Send(userID int64, message []byte) int {
	m.mu.RLock()
	targets := append([]*wsClient(nil), m.clients[userID]...)
	m.mu.RUnlock()

	sent := 0
	for _, c := range targets {
		if err := c.write(message, m.writeTimeout); err != nil {
			_ = c.conn.Close()
			continue
		}
		sent++
	}
	return sent
}
