package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tradecore/internal/book"
	"tradecore/internal/models"
	"tradecore/internal/orders"
	"tradecore/pkg/utils"
)

// engine.go - движок исполнения
//
// Движок владеет книгами инструментов и кэшем ордеров, применяет
// дельты фида к публичным книгам и отчёты площадки к машинам
// состояний. Вся мутация состояния проходит через мьютекс движка:
// книги и ордера внутренних блокировок не имеют.

// Ошибки движка
var (
	ErrUnknownInstrument = errors.New("instrument is not registered")
	ErrUnknownOrder      = errors.New("order is not in the cache")
	ErrDuplicateOrder    = errors.New("client order id already exists")
	ErrOrderClosed       = errors.New("order is already closed")
)

// clientOrderIDPrefix отличает ордера движка от чужих заявок в отчётах
const clientOrderIDPrefix = "O-"

// ReportJournal - журнал отчётов о статусе
type ReportJournal interface {
	Insert(report *models.OrderStatusReport) error
}

// FillJournal - журнал сделок
type FillJournal interface {
	Insert(fill *models.FillReport) error
}

// Canceler - поверхность рассыльщика отмен, видимая движку.
// Реализуется broadcast.Broadcaster.
type Canceler interface {
	CancelOrder(ctx context.Context, instrumentID models.InstrumentID, clientOrderID models.ClientOrderID, venueOrderID models.VenueOrderID) (*models.OrderStatusReport, error)
	CancelAllOrders(ctx context.Context, instrumentID models.InstrumentID, side models.OrderSide) ([]models.OrderStatusReport, error)
	AddInstrument(instrument models.Instrument) error
}

// Config - параметры движка
type Config struct {
	TraderID   models.TraderID
	StrategyID models.StrategyID
	AccountID  models.AccountID
}

// Engine - движок исполнения одного счёта
type Engine struct {
	cfg      Config
	canceler Canceler
	reports  ReportJournal
	fills    FillJournal
	cache    *Cache
	log      *utils.Logger

	mu          sync.RWMutex
	instruments map[models.InstrumentID]models.Instrument
	books       map[models.InstrumentID]*book.OrderBook
	ownBooks    map[models.InstrumentID]*book.OwnOrderBook
	lastQuotes  map[models.InstrumentID]models.QuoteTick
	lastTrades  map[models.InstrumentID]models.TradeTick

	// onOrder вызывается под общим локом: обработчик не должен блокировать
	onOrder func(orders.Order)
}

// NewEngine создаёт движок. Журналы опциональны: nil отключает запись.
func NewEngine(cfg Config, canceler Canceler, reports ReportJournal, fills FillJournal) *Engine {
	return &Engine{
		cfg:         cfg,
		canceler:    canceler,
		reports:     reports,
		fills:       fills,
		cache:       NewCache(),
		log:         utils.GetGlobalLogger().WithComponent("execution"),
		instruments: make(map[models.InstrumentID]models.Instrument),
		books:       make(map[models.InstrumentID]*book.OrderBook),
		ownBooks:    make(map[models.InstrumentID]*book.OwnOrderBook),
		lastQuotes:  make(map[models.InstrumentID]models.QuoteTick),
		lastTrades:  make(map[models.InstrumentID]models.TradeTick),
	}
}

// Cache возвращает кэш ордеров
func (e *Engine) Cache() *Cache {
	return e.cache
}

// OnOrderUpdate устанавливает обработчик изменений ордеров.
// Вызывается до начала обработки событий; обработчик получает
// ордер после каждого применённого события и не должен блокировать.
func (e *Engine) OnOrderUpdate(handler func(orders.Order)) {
	e.onOrder = handler
}

// ============================================================
// Инструменты и книги
// ============================================================

// AddInstrument регистрирует инструмент: публичная книга, книга
// собственных ордеров и исполнитель отмен.
func (e *Engine) AddInstrument(instrument models.Instrument) error {
	id := instrument.ID()

	e.mu.Lock()
	if _, exists := e.instruments[id]; exists {
		e.mu.Unlock()
		return fmt.Errorf("instrument %s already registered", id)
	}
	e.instruments[id] = instrument
	e.books[id] = book.NewOrderBook(id, models.L2_MBP)
	e.ownBooks[id] = book.NewOwnOrderBook(id)
	e.mu.Unlock()

	if e.canceler != nil {
		if err := e.canceler.AddInstrument(instrument); err != nil {
			return fmt.Errorf("register instrument with canceler: %w", err)
		}
	}

	e.log.Info("instrument registered",
		utils.Symbol(string(instrument.RawSymbol())),
		utils.String("instrument_id", id.String()),
	)
	return nil
}

// Instrument возвращает зарегистрированный инструмент
func (e *Engine) Instrument(id models.InstrumentID) (models.Instrument, bool) {
	e.mu.RLock()
	instrument, ok := e.instruments[id]
	e.mu.RUnlock()
	return instrument, ok
}

// Instruments возвращает все зарегистрированные инструменты
func (e *Engine) Instruments() []models.Instrument {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]models.Instrument, 0, len(e.instruments))
	for _, instrument := range e.instruments {
		out = append(out, instrument)
	}
	return out
}

// OnBookDelta применяет дельту фида к публичной книге инструмента
func (e *Engine) OnBookDelta(delta book.BookDelta) {
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.books[delta.InstrumentID]
	if !ok {
		return
	}
	if err := b.ApplyDelta(delta); err != nil {
		e.log.Warn("book delta rejected",
			utils.String("instrument_id", delta.InstrumentID.String()),
			utils.Err(err),
		)
	}
}

// OnQuote запоминает последнюю котировку инструмента
func (e *Engine) OnQuote(quote models.QuoteTick) {
	e.mu.Lock()
	e.lastQuotes[quote.InstrumentID] = quote
	e.mu.Unlock()
}

// OnTrade запоминает последнюю сделку инструмента
func (e *Engine) OnTrade(trade models.TradeTick) {
	e.mu.Lock()
	e.lastTrades[trade.InstrumentID] = trade
	e.mu.Unlock()
}

// LastQuote возвращает последнюю котировку инструмента
func (e *Engine) LastQuote(id models.InstrumentID) (models.QuoteTick, bool) {
	e.mu.RLock()
	quote, ok := e.lastQuotes[id]
	e.mu.RUnlock()
	return quote, ok
}

// LastTrade возвращает последнюю сделку инструмента
func (e *Engine) LastTrade(id models.InstrumentID) (models.TradeTick, bool) {
	e.mu.RLock()
	trade, ok := e.lastTrades[id]
	e.mu.RUnlock()
	return trade, ok
}

// ============================================================
// Снимки книг
// ============================================================

// PriceLevel - уровень книги в снимке
type PriceLevel struct {
	Price  models.Price
	Size   models.Quantity
	Orders int
}

// BookSnapshot - согласованный снимок книги для чтения извне
type BookSnapshot struct {
	InstrumentID models.InstrumentID
	Sequence     uint64
	TsLast       models.UnixNanos
	Bids         []PriceLevel
	Asks         []PriceLevel
}

// TopOfBook - вершина книги
type TopOfBook struct {
	InstrumentID models.InstrumentID
	BidPrice     models.Price
	BidSize      models.Quantity
	AskPrice     models.Price
	AskSize      models.Quantity
	HasBid       bool
	HasAsk       bool
	Spread       float64
	Midpoint     float64
	TsLast       models.UnixNanos
}

// Snapshot строит снимок книги на глубину depth (0 = вся книга)
func (e *Engine) Snapshot(id models.InstrumentID, depth int) (BookSnapshot, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.books[id]
	if !ok {
		return BookSnapshot{}, ErrUnknownInstrument
	}
	return BookSnapshot{
		InstrumentID: id,
		Sequence:     b.Sequence,
		TsLast:       b.TsLast,
		Bids:         copyLevels(b.Bids(depth)),
		Asks:         copyLevels(b.Asks(depth)),
	}, nil
}

// Top возвращает вершину книги инструмента
func (e *Engine) Top(id models.InstrumentID) (TopOfBook, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	b, ok := e.books[id]
	if !ok {
		return TopOfBook{}, ErrUnknownInstrument
	}
	top := TopOfBook{InstrumentID: id, TsLast: b.TsLast}
	top.BidPrice, top.HasBid = b.BestBidPrice()
	top.AskPrice, top.HasAsk = b.BestAskPrice()
	top.BidSize, _ = b.BestBidSize()
	top.AskSize, _ = b.BestAskSize()
	top.Spread, _ = b.Spread()
	top.Midpoint, _ = b.Midpoint()
	return top, nil
}

func copyLevels(levels []*book.BookLevel) []PriceLevel {
	out := make([]PriceLevel, 0, len(levels))
	for _, level := range levels {
		out = append(out, PriceLevel{
			Price:  level.Price,
			Size:   level.Size(),
			Orders: level.Len(),
		})
	}
	return out
}

// ============================================================
// Жизненный цикл ордера
// ============================================================

// NextClientOrderID генерирует новый клиентский идентификатор
func NextClientOrderID() models.ClientOrderID {
	return models.ClientOrderID(clientOrderIDPrefix + uuid.NewString())
}

// CreateOrder инициализирует ордер и кладёт его в кэш.
// Пустой ClientOrderID заполняется сгенерированным, пустые
// идентификаторы трейдера и стратегии - значениями движка.
func (e *Engine) CreateOrder(init *orders.OrderInitialized) (orders.Order, error) {
	if init.ClientOrderID == "" {
		init.ClientOrderID = NextClientOrderID()
	}
	if init.TraderID == "" {
		init.TraderID = e.cfg.TraderID
	}
	if init.StrategyID == "" {
		init.StrategyID = e.cfg.StrategyID
	}
	if init.TsInit == 0 {
		init.TsInit = models.NanosNow()
	}
	if init.TsEvent == 0 {
		init.TsEvent = init.TsInit
	}

	e.mu.RLock()
	_, known := e.instruments[init.InstrumentID]
	e.mu.RUnlock()
	if !known {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, init.InstrumentID)
	}

	order, err := orders.NewOrder(init)
	if err != nil {
		return nil, err
	}
	if !e.cache.Add(order) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateOrder, init.ClientOrderID)
	}

	ordersCreated.Inc()
	e.log.Info("order created",
		utils.ClientOrderID(string(init.ClientOrderID)),
		utils.String("instrument_id", init.InstrumentID.String()),
		utils.String("side", init.Side.String()),
		utils.Qty(init.Quantity.Float64()),
	)
	return order, nil
}

// Order возвращает ордер по клиентскому идентификатору
func (e *Engine) Order(clientOrderID models.ClientOrderID) (orders.Order, bool) {
	return e.cache.Get(clientOrderID)
}

// OpenOrders возвращает открытые ордера
func (e *Engine) OpenOrders() []orders.Order {
	return e.cache.Open()
}

// ApplyReport сверяет отчёт площадки с локальным состоянием ордера,
// применяет получившиеся события и пишет отчёт в журнал. Повторная
// доставка отчёта безопасна: совпадающий снимок не рождает событий.
func (e *Engine) ApplyReport(report *models.OrderStatusReport) error {
	order, ok := e.lookup(report.ClientOrderID, report.VenueOrderID)
	if !ok {
		e.log.Warn("report for unknown order",
			utils.ClientOrderID(string(report.ClientOrderID)),
			utils.VenueOrderID(string(report.VenueOrderID)),
		)
		return fmt.Errorf("%w: %s", ErrUnknownOrder, report.ClientOrderID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	events, err := ReconcileReport(order, report)
	if err != nil {
		reconcileErrors.Inc()
		return err
	}
	for _, event := range events {
		if fill, ok := event.(*orders.OrderFilled); ok {
			if !e.cache.MarkTrade(fill.TradeID) {
				duplicateFills.Inc()
				continue
			}
		}
		if err := e.applyLocked(order, event); err != nil {
			reconcileErrors.Inc()
			return err
		}
	}
	e.cache.IndexVenueID(report.VenueOrderID, order.Core().ClientOrderID)
	e.journalReport(report)
	return nil
}

// ApplyFill применяет отчёт о сделке. Сделки дедуплицируются по
// TradeID: журнал ордера дописывает без проверки повторов.
func (e *Engine) ApplyFill(fill *models.FillReport) error {
	order, ok := e.lookup(fill.ClientOrderID, fill.VenueOrderID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, fill.ClientOrderID)
	}
	if !e.cache.MarkTrade(fill.TradeID) {
		duplicateFills.Inc()
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	core := order.Core()
	// Сделка раньше подтверждения: машина обязана пройти через
	// Submitted и Accepted.
	if core.Status == models.StatusInitialized {
		event := &orders.OrderSubmitted{
			ClientOrderID: core.ClientOrderID,
			AccountID:     fill.AccountID,
			TsEvent:       fill.TsEvent,
		}
		if err := e.applyLocked(order, event); err != nil {
			return err
		}
	}
	if core.Status == models.StatusSubmitted && fill.VenueOrderID != "" {
		event := &orders.OrderAccepted{
			ClientOrderID: core.ClientOrderID,
			VenueOrderID:  fill.VenueOrderID,
			AccountID:     fill.AccountID,
			TsEvent:       fill.TsEvent,
		}
		if err := e.applyLocked(order, event); err != nil {
			return err
		}
	}

	event, err := FillEvent(order, fill)
	if err != nil {
		reconcileErrors.Inc()
		return err
	}
	if err := e.applyLocked(order, event); err != nil {
		reconcileErrors.Inc()
		return err
	}
	e.cache.IndexVenueID(fill.VenueOrderID, core.ClientOrderID)
	e.journalFill(fill)
	return nil
}

// CancelOrder запрашивает отмену через рассыльщик. Локальный статус
// переводится в PendingCancel до запроса; отказ площадки откатывает
// его событием CancelRejected.
func (e *Engine) CancelOrder(ctx context.Context, clientOrderID models.ClientOrderID) (*models.OrderStatusReport, error) {
	order, ok := e.cache.Get(clientOrderID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOrder, clientOrderID)
	}
	core := order.Core()
	if order.IsClosed() {
		return nil, fmt.Errorf("%w: %s", ErrOrderClosed, clientOrderID)
	}

	e.mu.Lock()
	if !order.IsPendingCancel() {
		event := &orders.OrderPendingCancel{
			ClientOrderID: clientOrderID,
			TsEvent:       models.NanosNow(),
		}
		if err := e.applyLocked(order, event); err != nil {
			e.mu.Unlock()
			return nil, err
		}
	}
	e.mu.Unlock()

	if e.canceler == nil {
		return nil, errors.New("canceler is not configured")
	}
	report, err := e.canceler.CancelOrder(ctx, core.InstrumentID, clientOrderID, core.VenueOrderID)
	if err != nil {
		e.mu.Lock()
		rejected := &orders.OrderCancelRejected{
			ClientOrderID: clientOrderID,
			Reason:        err.Error(),
			TsEvent:       models.NanosNow(),
		}
		if applyErr := e.applyLocked(order, rejected); applyErr != nil {
			e.log.Error("cancel reject rollback failed",
				utils.ClientOrderID(string(clientOrderID)),
				utils.Err(applyErr),
			)
		}
		e.mu.Unlock()
		return nil, err
	}
	if applyErr := e.ApplyReport(report); applyErr != nil {
		e.log.Warn("cancel report not applied",
			utils.ClientOrderID(string(clientOrderID)),
			utils.Err(applyErr),
		)
	}
	return report, nil
}

// CancelAll отменяет все ордера инструмента на стороне side
// (NoOrderSide = обе стороны). Отчёты по чужим ордерам логируются
// и пропускаются.
func (e *Engine) CancelAll(ctx context.Context, instrumentID models.InstrumentID, side models.OrderSide) ([]models.OrderStatusReport, error) {
	if e.canceler == nil {
		return nil, errors.New("canceler is not configured")
	}
	if _, ok := e.Instrument(instrumentID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstrument, instrumentID)
	}

	reports, err := e.canceler.CancelAllOrders(ctx, instrumentID, side)
	if err != nil {
		return nil, err
	}
	for i := range reports {
		if applyErr := e.ApplyReport(&reports[i]); applyErr != nil && !errors.Is(applyErr, ErrUnknownOrder) {
			e.log.Warn("cancel-all report not applied",
				utils.ClientOrderID(string(reports[i].ClientOrderID)),
				utils.Err(applyErr),
			)
		}
	}
	return reports, nil
}

// ============================================================
// Внутреннее
// ============================================================

// lookup находит ордер по клиентскому, затем по биржевому id
func (e *Engine) lookup(clientOrderID models.ClientOrderID, venueOrderID models.VenueOrderID) (orders.Order, bool) {
	if clientOrderID != "" {
		if order, ok := e.cache.Get(clientOrderID); ok {
			return order, true
		}
	}
	if venueOrderID != "" {
		if order, ok := e.cache.GetByVenueID(venueOrderID); ok {
			return order, true
		}
	}
	return nil, false
}

// applyLocked применяет событие и синхронизирует книгу собственных
// ордеров. Вызывается под e.mu.
func (e *Engine) applyLocked(order orders.Order, event orders.OrderEvent) error {
	if err := order.Apply(event); err != nil {
		return fmt.Errorf("apply %s: %w", event.EventType(), err)
	}
	eventsApplied.WithLabelValues(event.EventType().String()).Inc()
	e.syncOwnBook(order)
	openOrders.Set(float64(e.cache.OpenCount()))
	if e.onOrder != nil {
		e.onOrder(order)
	}
	return nil
}

// syncOwnBook отражает пассивный ордер в книге собственных ордеров.
// Рыночные и безценовые ордера в книге не отдыхают.
func (e *Engine) syncOwnBook(order orders.Order) {
	core := order.Core()
	own, ok := e.ownBooks[core.InstrumentID]
	if !ok {
		return
	}
	price, hasPrice := order.Price()
	if !hasPrice {
		return
	}

	if order.IsOpen() && !order.IsInflight() {
		entry := book.OwnBookOrder{
			ClientOrderID: core.ClientOrderID,
			Side:          core.Side,
			Price:         price,
			Size:          core.LeavesQty,
			Status:        core.Status,
			TsAccepted:    core.TsAccepted,
			TsLast:        core.TsLast,
		}
		if err := own.Add(entry); err != nil {
			e.log.Warn("own book add failed",
				utils.ClientOrderID(string(core.ClientOrderID)),
				utils.Err(err),
			)
		}
		return
	}
	if order.IsClosed() {
		// Ордера, не дошедшего до книги, там и не было
		_ = own.Delete(core.ClientOrderID)
	}
}

// OwnBook возвращает книгу собственных ордеров инструмента
func (e *Engine) OwnBook(id models.InstrumentID) (*book.OwnOrderBook, bool) {
	e.mu.RLock()
	own, ok := e.ownBooks[id]
	e.mu.RUnlock()
	return own, ok
}

func (e *Engine) journalReport(report *models.OrderStatusReport) {
	if e.reports == nil {
		return
	}
	if err := e.reports.Insert(report); err != nil {
		journalErrors.WithLabelValues("report").Inc()
		e.log.Error("report journal write failed",
			utils.ClientOrderID(string(report.ClientOrderID)),
			utils.Err(err),
		)
	}
}

func (e *Engine) journalFill(fill *models.FillReport) {
	if e.fills == nil {
		return
	}
	if err := e.fills.Insert(fill); err != nil {
		journalErrors.WithLabelValues("fill").Inc()
		e.log.Error("fill journal write failed",
			utils.ClientOrderID(string(fill.ClientOrderID)),
			utils.String("trade_id", string(fill.TradeID)),
			utils.Err(err),
		)
	}
}
