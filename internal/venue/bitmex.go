package venue

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"tradecore/internal/models"
	"tradecore/pkg/crypto"
	"tradecore/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	bitmexMainnetURL = "https://www.bitmex.com"
	bitmexTestnetURL = "https://testnet.bitmex.com"
	bitmexAPIPrefix  = "/api/v1"

	// Окно валидности подписи запроса в секундах
	bitmexExpiresWindow = 10
)

// Config - настройки REST-адаптера площадки
type Config struct {
	Venue          models.Venue
	BaseURL        string // пусто = стандартный URL по Testnet
	APIKey         string
	APISecret      string
	Testnet        bool
	RequestTimeout time.Duration
	HTTPClient     HTTPClientConfig
}

// Executor выполняет отмены и health-пробы через REST API площадки.
//
// Каждый экземпляр держит собственный HTTP клиент: транспорты пула
// отмен независимы вплоть до TCP соединений. Все методы безопасны
// для конкурентного вызова.
type Executor struct {
	venue     models.Venue
	baseURL   string
	apiKey    string
	apiSecret string
	timeout   time.Duration

	httpClient *HTTPClient
	log        *utils.Logger

	mu          sync.RWMutex
	instruments map[models.InstrumentID]models.Instrument
}

// NewExecutor создаёт REST-адаптер по конфигурации
func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingCredentials
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		if cfg.Testnet {
			baseURL = bitmexTestnetURL
		} else {
			baseURL = bitmexMainnetURL
		}
	}
	baseURL = strings.TrimRight(baseURL, "/")

	venueName := cfg.Venue
	if venueName == "" {
		venueName = "BITMEX"
	}

	httpCfg := cfg.HTTPClient
	if httpCfg.TotalTimeout == 0 {
		httpCfg = DefaultHTTPClientConfig()
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Executor{
		venue:       venueName,
		baseURL:     baseURL,
		apiKey:      cfg.APIKey,
		apiSecret:   cfg.APISecret,
		timeout:     timeout,
		httpClient:  NewHTTPClient(httpCfg),
		log:         utils.GetGlobalLogger().WithComponent("venue").WithVenue(string(venueName)),
		instruments: make(map[models.InstrumentID]models.Instrument),
	}, nil
}

// Venue возвращает имя площадки
func (e *Executor) Venue() models.Venue {
	return e.venue
}

// AddInstrument регистрирует инструмент: его точности используются
// при разборе ответов площадки в отчёты
func (e *Executor) AddInstrument(instrument models.Instrument) error {
	id := instrument.ID()
	if id.Venue != e.venue {
		return fmt.Errorf("instrument %s belongs to venue %s, executor serves %s",
			id, id.Venue, e.venue)
	}

	e.mu.Lock()
	e.instruments[id] = instrument
	e.mu.Unlock()

	e.log.Debug("instrument registered", utils.Symbol(string(id.Symbol)))
	return nil
}

// instrument возвращает зарегистрированный инструмент
func (e *Executor) instrument(id models.InstrumentID) (models.Instrument, bool) {
	e.mu.RLock()
	inst, ok := e.instruments[id]
	e.mu.RUnlock()
	return inst, ok
}

// HealthCheck проверяет доступность площадки и валидность реквизитов
// лёгким аутентифицированным запросом
func (e *Executor) HealthCheck(ctx context.Context) error {
	query := url.Values{}
	query.Set("count", "1")
	query.Set("reverse", "true")

	_, err := e.doRequest(ctx, http.MethodGet, "/order", query, nil)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// CancelOrder отменяет один ордер по клиентскому или биржевому id
func (e *Executor) CancelOrder(ctx context.Context, instrumentID models.InstrumentID,
	clientOrderID models.ClientOrderID, venueOrderID models.VenueOrderID) (*models.OrderStatusReport, error) {
	if clientOrderID == "" && venueOrderID == "" {
		return nil, ErrNoOrderID
	}

	params := map[string]string{}
	if venueOrderID != "" {
		params["orderID"] = string(venueOrderID)
	} else {
		params["clOrdID"] = string(clientOrderID)
	}

	body, err := e.doRequest(ctx, http.MethodDelete, "/order", nil, params)
	if err != nil {
		return nil, err
	}

	orders, err := e.parseOrders(body, instrumentID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, &APIError{
			Venue:   e.venue,
			Name:    "EmptyResponse",
			Message: "cancel returned no orders",
		}
	}

	report := orders[0]
	e.log.Debug("order canceled",
		utils.Symbol(string(instrumentID.Symbol)),
		utils.ClientOrderID(string(report.ClientOrderID)),
		utils.VenueOrderID(string(report.VenueOrderID)))
	return &report, nil
}

// CancelOrders отменяет пакет ордеров одного инструмента
func (e *Executor) CancelOrders(ctx context.Context, instrumentID models.InstrumentID,
	clientOrderIDs []models.ClientOrderID, venueOrderIDs []models.VenueOrderID) ([]models.OrderStatusReport, error) {
	if len(clientOrderIDs) == 0 && len(venueOrderIDs) == 0 {
		return nil, ErrNoOrderID
	}

	params := map[string]string{}
	if len(venueOrderIDs) > 0 {
		params["orderID"] = joinVenueIDs(venueOrderIDs)
	}
	if len(clientOrderIDs) > 0 {
		params["clOrdID"] = joinClientIDs(clientOrderIDs)
	}

	body, err := e.doRequest(ctx, http.MethodDelete, "/order", nil, params)
	if err != nil {
		return nil, err
	}

	reports, err := e.parseOrders(body, instrumentID)
	if err != nil {
		return nil, err
	}

	e.log.Debug("batch cancel done",
		utils.Symbol(string(instrumentID.Symbol)),
		utils.Int("orders", len(reports)))
	return reports, nil
}

// CancelAllOrders отменяет все ордера инструмента;
// NoOrderSide означает обе стороны
func (e *Executor) CancelAllOrders(ctx context.Context, instrumentID models.InstrumentID,
	side models.OrderSide) ([]models.OrderStatusReport, error) {
	params := map[string]string{
		"symbol": string(instrumentID.Symbol),
	}
	switch side {
	case models.Buy:
		params["filter"] = `{"side":"Buy"}`
	case models.Sell:
		params["filter"] = `{"side":"Sell"}`
	}

	body, err := e.doRequest(ctx, http.MethodDelete, "/order/all", nil, params)
	if err != nil {
		return nil, err
	}

	reports, err := e.parseOrders(body, instrumentID)
	if err != nil {
		return nil, err
	}

	e.log.Debug("cancel all done",
		utils.Symbol(string(instrumentID.Symbol)),
		utils.String("side", side.String()),
		utils.Int("orders", len(reports)))
	return reports, nil
}

// Close закрывает пул HTTP соединений адаптера
func (e *Executor) Close() {
	e.httpClient.Close()
}

// ============================================================
// HTTP слой
// ============================================================

// doRequest выполняет подписанный запрос к REST API.
// Подпись покрывает метод, путь с query, срок годности и тело.
func (e *Executor) doRequest(ctx context.Context, method, endpoint string,
	query url.Values, params map[string]string) ([]byte, error) {
	path := bitmexAPIPrefix + endpoint
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var reqBody string
	if len(params) > 0 {
		bodyBytes, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = string(bodyBytes)
	}

	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, e.baseURL+path, strings.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	expires := strconv.FormatInt(time.Now().Unix()+bitmexExpiresWindow, 10)
	signature := crypto.SignHMAC(e.apiSecret, method+path+expires+reqBody)

	req.Header.Set("api-key", e.apiKey)
	req.Header.Set("api-expires", expires)
	req.Header.Set("api-signature", signature)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, e.parseAPIError(resp.StatusCode, body)
	}

	return body, nil
}

// parseAPIError разбирает тело ошибки в APIError
func (e *Executor) parseAPIError(status int, body []byte) error {
	var wrapper struct {
		Error struct {
			Message string `json:"message"`
			Name    string `json:"name"`
		} `json:"error"`
	}

	apiErr := &APIError{
		Venue:  e.venue,
		Status: status,
	}

	if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Error.Message == "" {
		apiErr.Name = "HTTPError"
		apiErr.Message = fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body)))
		return apiErr
	}

	apiErr.Name = wrapper.Error.Name
	apiErr.Message = wrapper.Error.Message
	return apiErr
}

// ============================================================
// Разбор ответов
// ============================================================

// bitmexOrder - ордер в формате REST API площадки
type bitmexOrder struct {
	OrderID      string  `json:"orderID"`
	ClOrdID      string  `json:"clOrdID"`
	Account      int64   `json:"account"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"side"`
	OrderQty     float64 `json:"orderQty"`
	Price        float64 `json:"price"`
	StopPx       float64 `json:"stopPx"`
	OrdType      string  `json:"ordType"`
	TimeInForce  string  `json:"timeInForce"`
	ExecInst     string  `json:"execInst"`
	OrdStatus    string  `json:"ordStatus"`
	CumQty       float64 `json:"cumQty"`
	AvgPx        float64 `json:"avgPx"`
	Text         string  `json:"text"`
	TransactTime string  `json:"transactTime"`
	Timestamp    string  `json:"timestamp"`
}

// parseOrders разбирает массив ордеров в отчёты
func (e *Executor) parseOrders(body []byte, instrumentID models.InstrumentID) ([]models.OrderStatusReport, error) {
	var orders []bitmexOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("unmarshal orders: %w", err)
	}

	reports := make([]models.OrderStatusReport, 0, len(orders))
	for _, o := range orders {
		reports = append(reports, e.orderToReport(o, instrumentID))
	}
	return reports, nil
}

// orderToReport конвертирует ордер площадки в снимок состояния.
// Точности берутся из зарегистрированного инструмента.
func (e *Executor) orderToReport(o bitmexOrder, instrumentID models.InstrumentID) models.OrderStatusReport {
	id := instrumentID
	if o.Symbol != "" {
		id = models.NewInstrumentID(models.Symbol(o.Symbol), e.venue)
	}

	pricePrec := uint8(models.FixedPrecision)
	sizePrec := uint8(0)
	if inst, ok := e.instrument(id); ok {
		pricePrec = inst.PricePrecision()
		sizePrec = inst.SizePrecision()
	}

	report := models.OrderStatusReport{
		AccountID:     models.AccountID(strconv.FormatInt(o.Account, 10)),
		InstrumentID:  id,
		ClientOrderID: models.ClientOrderID(o.ClOrdID),
		VenueOrderID:  models.VenueOrderID(o.OrderID),
		OrderSide:     parseSide(o.Side),
		OrderType:     parseOrderType(o.OrdType, o.StopPx),
		TimeInForce:   parseTimeInForce(o.TimeInForce),
		OrderStatus:   parseOrdStatus(o.OrdStatus),
		Quantity:      models.MustQuantity(o.OrderQty, sizePrec),
		FilledQty:     models.MustQuantity(o.CumQty, sizePrec),
		AvgPx:         o.AvgPx,
		PostOnly:      strings.Contains(o.ExecInst, "ParticipateDoNotInitiate"),
		ReduceOnly:    strings.Contains(o.ExecInst, "ReduceOnly"),
		CancelReason:  o.Text,
		TsInit:        models.NanosNow(),
	}

	if o.Price > 0 {
		report.Price = models.MustPrice(o.Price, pricePrec)
	}
	if o.StopPx > 0 {
		report.TriggerPrice = models.MustPrice(o.StopPx, pricePrec)
	}
	if ts, err := time.Parse(time.RFC3339, o.TransactTime); err == nil {
		report.TsAccepted = models.NanosFromTime(ts)
	}
	if ts, err := time.Parse(time.RFC3339, o.Timestamp); err == nil {
		report.TsLast = models.NanosFromTime(ts)
	} else {
		report.TsLast = report.TsInit
	}

	return report
}

// parseSide конвертирует сторону ордера из формата площадки
func parseSide(side string) models.OrderSide {
	switch side {
	case "Buy":
		return models.Buy
	case "Sell":
		return models.Sell
	default:
		return models.NoOrderSide
	}
}

// parseOrderType конвертирует тип ордера.
// "Stop" со стоп-ценой и без лимитной цены - рыночный стоп.
func parseOrderType(ordType string, stopPx float64) models.OrderType {
	switch ordType {
	case "Market":
		return models.Market
	case "Limit":
		return models.Limit
	case "Stop":
		return models.StopMarket
	case "StopLimit":
		return models.StopLimit
	case "MarketIfTouched":
		return models.MarketIfTouched
	case "LimitIfTouched":
		return models.LimitIfTouched
	case "MarketWithLeftOverAsLimit":
		return models.MarketToLimit
	default:
		if stopPx > 0 {
			return models.StopMarket
		}
		return models.Limit
	}
}

// parseTimeInForce конвертирует время жизни ордера
func parseTimeInForce(tif string) models.TimeInForce {
	switch tif {
	case "GoodTillCancel":
		return models.GTC
	case "ImmediateOrCancel":
		return models.IOC
	case "FillOrKill":
		return models.FOK
	case "Day":
		return models.Day
	default:
		return models.GTC
	}
}

// parseOrdStatus конвертирует статус ордера
func parseOrdStatus(status string) models.OrderStatus {
	switch status {
	case "New":
		return models.StatusAccepted
	case "PartiallyFilled":
		return models.StatusPartiallyFilled
	case "Filled":
		return models.StatusFilled
	case "Canceled":
		return models.StatusCanceled
	case "Rejected":
		return models.StatusRejected
	case "Expired":
		return models.StatusExpired
	case "Triggered":
		return models.StatusTriggered
	case "PendingCancel":
		return models.StatusPendingCancel
	case "PendingNew":
		return models.StatusSubmitted
	default:
		return models.StatusAccepted
	}
}

func joinClientIDs(ids []models.ClientOrderID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}

func joinVenueIDs(ids []models.VenueOrderID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ",")
}
