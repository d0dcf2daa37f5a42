package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"tradecore/internal/book"
	"tradecore/internal/models"
	"tradecore/internal/subscription"
	"tradecore/pkg/retry"
	"tradecore/pkg/utils"
)

// ConnState - состояние WebSocket соединения
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config - настройки клиента рыночных данных
type Config struct {
	URL            string
	Venue          models.Venue
	TopicDelimiter string        // разделитель канал/символ в топиках
	ReconnectDelay time.Duration // начальная задержка перед переподключением
	PingInterval   time.Duration // интервал ping
	ReadTimeout    time.Duration // дедлайн чтения; pong его продлевает
	MaxReconnects  int           // 0 = по профилю retry.WebSocketConfig
	ConnectTimeout time.Duration
}

// Client - WebSocket клиент стрима площадки с автоматическим
// переподключением.
//
// После разрыва клиент передподключается с exponential backoff и
// заново подписывается на все топики трекера: подтверждённые и
// ожидающие подтверждения.
type Client struct {
	cfg   Config
	codec *Codec

	tracker *subscription.Tracker

	conn   *websocket.Conn
	connMu sync.RWMutex

	state      atomic.Int32
	retryCfg   retry.Config
	closeChan  chan struct{}
	closeOnce  sync.Once
	sequence   atomic.Uint64
	generation atomic.Uint64 // инкремент при каждом (пере)подключении

	log *utils.Logger

	// Callbacks: выставляются до Connect, дальше только читаются
	onDelta      func(book.BookDelta)
	onQuote      func(models.QuoteTick)
	onTrade      func(models.TradeTick)
	onConnect    func()
	onDisconnect func(error)
	callbackMu   sync.RWMutex
}

// NewClient создаёт клиент стрима по конфигурации
func NewClient(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("feed url is required")
	}
	if cfg.Venue == "" {
		cfg.Venue = "BITMEX"
	}
	if cfg.TopicDelimiter == "" {
		cfg.TopicDelimiter = subscription.DefaultDelimiter
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 15 * time.Second
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	retryCfg := retry.WebSocketConfig()
	if cfg.ReconnectDelay > 0 {
		retryCfg.InitialDelay = cfg.ReconnectDelay
	}
	if cfg.MaxReconnects > 0 {
		retryCfg.MaxRetries = cfg.MaxReconnects
	}
	// Переподключение стрима не ограничено бюджетом времени:
	// лимитируется только количество подряд неудачных попыток
	retryCfg.MaxElapsed = 0

	return &Client{
		cfg:       cfg,
		codec:     NewCodec(cfg.Venue),
		tracker:   subscription.NewTracker(cfg.TopicDelimiter),
		retryCfg:  retryCfg,
		closeChan: make(chan struct{}),
		log:       utils.GetGlobalLogger().WithComponent("feed").WithVenue(string(cfg.Venue)),
	}, nil
}

// Codec возвращает кодек клиента (для регистрации инструментов)
func (c *Client) Codec() *Codec {
	return c.codec
}

// Tracker возвращает трекер подписок клиента
func (c *Client) Tracker() *subscription.Tracker {
	return c.tracker
}

// OnDelta устанавливает обработчик дельт книги
func (c *Client) OnDelta(handler func(book.BookDelta)) {
	c.callbackMu.Lock()
	c.onDelta = handler
	c.callbackMu.Unlock()
}

// OnQuote устанавливает обработчик котировок
func (c *Client) OnQuote(handler func(models.QuoteTick)) {
	c.callbackMu.Lock()
	c.onQuote = handler
	c.callbackMu.Unlock()
}

// OnTrade устанавливает обработчик сделок
func (c *Client) OnTrade(handler func(models.TradeTick)) {
	c.callbackMu.Lock()
	c.onTrade = handler
	c.callbackMu.Unlock()
}

// OnConnect устанавливает callback успешного подключения
func (c *Client) OnConnect(handler func()) {
	c.callbackMu.Lock()
	c.onConnect = handler
	c.callbackMu.Unlock()
}

// OnDisconnect устанавливает callback разрыва соединения
func (c *Client) OnDisconnect(handler func(error)) {
	c.callbackMu.Lock()
	c.onDisconnect = handler
	c.callbackMu.Unlock()
}

// State возвращает текущее состояние соединения
func (c *Client) State() ConnState {
	return ConnState(c.state.Load())
}

// IsConnected сообщает, установлено ли соединение
func (c *Client) IsConnected() bool {
	return c.State() == StateConnected
}

// setState обновляет состояние и метрику
func (c *Client) setState(s ConnState) {
	c.state.Store(int32(s))
	connectionState.Set(float64(s))
}

// Connect устанавливает соединение и запускает чтение
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.closeChan:
		return fmt.Errorf("client is closed")
	default:
	}

	c.setState(StateConnecting)

	if err := c.dial(ctx); err != nil {
		c.setState(StateDisconnected)
		return err
	}

	c.setState(StateConnected)
	c.notifyConnect()

	gen := c.generation.Add(1)
	go c.readPump(ctx, gen)
	go c.pingPump(gen)

	c.log.Info("stream connected", utils.String("url", c.cfg.URL))
	return nil
}

// dial подключается и восстанавливает подписки
func (c *Client) dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
	defer cancel()

	dialer := websocket.Dialer{HandshakeTimeout: c.cfg.ConnectTimeout}
	conn, _, err := dialer.DialContext(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.cfg.URL, err)
	}

	conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		return nil
	})

	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()

	if err := c.resubscribe(); err != nil {
		// Подписки доотправятся после следующего разрыва; соединение живое
		c.log.Warn("resubscribe failed", utils.Err(err))
	}
	return nil
}

// resubscribe заново подписывается на все топики трекера
func (c *Client) resubscribe() error {
	topics := c.tracker.AllTopics()
	if len(topics) == 0 {
		return nil
	}

	if err := c.send(subscribeMessage("subscribe", topics)); err != nil {
		return fmt.Errorf("resubscribe: %w", err)
	}
	c.log.Info("resubscribed", utils.Int("topics", len(topics)))
	return nil
}

// Subscribe помечает топики и отправляет запрос подписки
func (c *Client) Subscribe(topics ...string) error {
	for _, topic := range topics {
		c.tracker.MarkSubscribe(topic)
	}
	return c.send(subscribeMessage("subscribe", topics))
}

// Unsubscribe помечает топики и отправляет запрос отписки
func (c *Client) Unsubscribe(topics ...string) error {
	for _, topic := range topics {
		c.tracker.MarkUnsubscribe(topic)
	}
	return c.send(subscribeMessage("unsubscribe", topics))
}

func subscribeMessage(op string, topics []string) map[string]interface{} {
	args := make([]interface{}, len(topics))
	for i, t := range topics {
		args[i] = t
	}
	return map[string]interface{}{"op": op, "args": args}
}

// send отправляет сообщение в текущее соединение
func (c *Client) send(msg interface{}) error {
	c.connMu.RLock()
	conn := c.conn
	c.connMu.RUnlock()

	if conn == nil || c.State() != StateConnected {
		return fmt.Errorf("not connected (state: %s)", c.State())
	}
	return conn.WriteJSON(msg)
}

// ============================================================
// Циклы чтения и ping
// ============================================================

// readPump читает сообщения до разрыва соединения.
// generation защищает от гонки старых горутин с новым соединением.
func (c *Client) readPump(ctx context.Context, gen uint64) {
	for {
		select {
		case <-c.closeChan:
			return
		default:
		}

		c.connMu.RLock()
		conn := c.conn
		c.connMu.RUnlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if c.generation.Load() == gen {
				c.handleDisconnect(ctx, err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout))
		c.handleMessage(message)
	}
}

// pingPump периодически отправляет ping
func (c *Client) pingPump(gen uint64) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.closeChan:
			return
		case <-ticker.C:
			if c.generation.Load() != gen || c.State() != StateConnected {
				return
			}

			c.connMu.RLock()
			conn := c.conn
			c.connMu.RUnlock()
			if conn == nil {
				return
			}

			conn.SetWriteDeadline(time.Now().Add(c.cfg.PingInterval))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Warn("ping failed", utils.Err(err))
				return
			}
		}
	}
}

// ============================================================
// Разбор сообщений
// ============================================================

// handleMessage обрабатывает одно сообщение стрима
func (c *Client) handleMessage(raw []byte) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		parseErrorsTotal.Inc()
		c.log.Warn("malformed stream message", utils.Err(err))
		return
	}

	switch {
	case msg.Success && msg.Subscribe != "":
		c.tracker.ConfirmSubscribe(msg.Subscribe)
		c.log.Debug("subscription confirmed", utils.Topic(msg.Subscribe))
		return
	case msg.Success && msg.Unsubscribe != "":
		c.tracker.ConfirmUnsubscribe(msg.Unsubscribe)
		c.log.Debug("unsubscription confirmed", utils.Topic(msg.Unsubscribe))
		return
	case msg.Error != "":
		for _, topic := range msg.Request.Args {
			c.tracker.MarkFailure(topic)
		}
		c.log.Warn("stream request rejected",
			utils.String("op", msg.Request.Op),
			utils.String("reason", msg.Error))
		return
	case msg.Table == "":
		return
	}

	messagesTotal.WithLabelValues(msg.Table).Inc()
	tsEvent := models.NanosNow()

	switch msg.Table {
	case "orderBookL2", "orderBookL2_25":
		deltas, err := c.codec.ParseDeltas(msg.Action, msg.Data, c.sequence.Add(1), tsEvent)
		if err != nil {
			parseErrorsTotal.Inc()
			c.log.Warn("bad book message", utils.Err(err))
			return
		}
		c.callbackMu.RLock()
		handler := c.onDelta
		c.callbackMu.RUnlock()
		if handler != nil {
			for _, delta := range deltas {
				handler(delta)
			}
		}
	case "quote":
		quotes, err := c.codec.ParseQuotes(msg.Data)
		if err != nil {
			parseErrorsTotal.Inc()
			c.log.Warn("bad quote message", utils.Err(err))
			return
		}
		c.callbackMu.RLock()
		handler := c.onQuote
		c.callbackMu.RUnlock()
		if handler != nil {
			for _, quote := range quotes {
				handler(quote)
			}
		}
	case "trade":
		trades, err := c.codec.ParseTrades(msg.Data)
		if err != nil {
			parseErrorsTotal.Inc()
			c.log.Warn("bad trade message", utils.Err(err))
			return
		}
		c.callbackMu.RLock()
		handler := c.onTrade
		c.callbackMu.RUnlock()
		if handler != nil {
			for _, trade := range trades {
				handler(trade)
			}
		}
	}
}

// ============================================================
// Переподключение
// ============================================================

// handleDisconnect закрывает соединение и запускает переподключение
func (c *Client) handleDisconnect(ctx context.Context, err error) {
	select {
	case <-c.closeChan:
		return
	default:
	}

	state := c.State()
	if state == StateReconnecting || state == StateClosed {
		return
	}
	c.setState(StateReconnecting)

	c.connMu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.notifyDisconnect(err)
	if err != nil {
		c.log.Warn("stream disconnected", utils.Err(err))
	}

	go c.reconnectLoop(ctx)
}

// reconnectLoop переподключается с exponential backoff
func (c *Client) reconnectLoop(ctx context.Context) {
	backoff := retry.NewBackoff(c.retryCfg)

	for attempt := 1; ; attempt++ {
		if c.retryCfg.MaxRetries > 0 && attempt > c.retryCfg.MaxRetries {
			c.log.Error("reconnect attempts exhausted", utils.Attempt(attempt-1))
			c.setState(StateDisconnected)
			return
		}

		delay := backoff.Next()
		c.log.Info("reconnecting",
			utils.Attempt(attempt),
			utils.String("delay", delay.String()))

		select {
		case <-c.closeChan:
			return
		case <-ctx.Done():
			c.setState(StateDisconnected)
			return
		case <-time.After(delay):
		}

		reconnectsTotal.Inc()
		if err := c.dial(ctx); err != nil {
			c.log.Warn("reconnect failed", utils.Attempt(attempt), utils.Err(err))
			continue
		}

		c.setState(StateConnected)
		c.notifyConnect()

		gen := c.generation.Add(1)
		go c.readPump(ctx, gen)
		go c.pingPump(gen)

		c.log.Info("stream reconnected", utils.Attempt(attempt))
		return
	}
}

func (c *Client) notifyConnect() {
	c.callbackMu.RLock()
	handler := c.onConnect
	c.callbackMu.RUnlock()
	if handler != nil {
		handler()
	}
}

func (c *Client) notifyDisconnect(err error) {
	c.callbackMu.RLock()
	handler := c.onDisconnect
	c.callbackMu.RUnlock()
	if handler != nil {
		handler(err)
	}
}

// Close останавливает клиент и закрывает соединение
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeChan)
	})
	c.setState(StateClosed)

	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}
