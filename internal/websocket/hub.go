package websocket

import (
	"bytes"
	"encoding/json"
	"sync"
	"sync/atomic"

	"tradecore/pkg/utils"
)

// Пул JSON буферов: Broadcast вызывается на каждом тике вершины
var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512))
	},
}

// Hub управляет всеми активными WebSocket соединениями.
//
// Центральный менеджер broadcast-рассылки: регистрация и снятие
// клиентов, доставка сообщений, отключение медленных получателей.
//
// Использование:
// 1. Создать hub: hub := NewHub()
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.Broadcast(message)
type Hub struct {
	clients map[*Client]bool

	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	closeChan  chan struct{}
	closeOnce  sync.Once

	// Счётчик сообщений, отброшенных при переполнении каналов
	dropped atomic.Uint64

	mu  sync.RWMutex
	log *utils.Logger
}

// NewHub создает новый Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		closeChan:  make(chan struct{}),
		log:        utils.GetGlobalLogger().WithComponent("ws_hub"),
	}
}

// Run запускает главный цикл Hub.
//
// Должен запускаться в отдельной горутине: go hub.Run().
// Доставка идёт без блокировки реестра: список клиентов копируется
// под коротким RLock, медленные клиенты снимаются под Write Lock.
func (h *Hub) Run() {
	for {
		select {
		case <-h.closeChan:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client connected", utils.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("client disconnected", utils.Int("total", total))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает читать
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.log.Warn("removed slow clients",
					utils.Int("removed", len(toRemove)),
					utils.Int("total", total),
				)
			}
		}
	}
}

// Stop останавливает цикл Run и закрывает всех клиентов
func (h *Hub) Stop() {
	h.closeOnce.Do(func() {
		close(h.closeChan)
	})
}

// Broadcast сериализует сообщение и рассылает его всем клиентам.
// Не блокируется: при переполнении канала сообщение отбрасывается.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.log.Error("broadcast marshal failed", utils.Err(err))
		jsonBufferPool.Put(buf)
		return
	}

	// Encode дописывает перевод строки
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)
	jsonBufferPool.Put(buf)

	h.BroadcastRaw(msgCopy)
}

// BroadcastRaw рассылает уже сериализованное сообщение
func (h *Hub) BroadcastRaw(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.closeChan:
	default:
		h.dropped.Add(1)
	}
}

// BroadcastBookTop отправляет вершину книги
func (h *Hub) BroadcastBookTop(msg *BookTopMessage) {
	h.Broadcast(msg)
}

// BroadcastOrderUpdate отправляет изменение состояния ордера
func (h *Hub) BroadcastOrderUpdate(msg *OrderUpdateMessage) {
	h.Broadcast(msg)
}

// BroadcastTrade отправляет сделку
func (h *Hub) BroadcastTrade(msg *TradeMessage) {
	h.Broadcast(msg)
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages возвращает количество отброшенных сообщений
func (h *Hub) DroppedMessages() uint64 {
	return h.dropped.Load()
}
