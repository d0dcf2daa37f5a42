package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tradecore/internal/execution"
	"tradecore/internal/models"
)

// defaultBookDepth ограничивает ответ, когда глубина не запрошена
const defaultBookDepth = 25

// maxBookDepth - верхняя граница глубины одного ответа
const maxBookDepth = 500

// BookSource - поверхность движка, нужная обработчикам книг
type BookSource interface {
	Instruments() []models.Instrument
	Snapshot(id models.InstrumentID, depth int) (execution.BookSnapshot, error)
	Top(id models.InstrumentID) (execution.TopOfBook, error)
	LastTrade(id models.InstrumentID) (models.TradeTick, bool)
}

// BookHandler обрабатывает запросы к книгам ордеров.
//
// Endpoints:
// - GET /api/v1/books - список инструментов с книгами
// - GET /api/v1/books/{instrument}?depth=N - снимок книги
// - GET /api/v1/books/{instrument}/top - вершина книги
type BookHandler struct {
	source BookSource
}

// NewBookHandler создает новый BookHandler
func NewBookHandler(source BookSource) *BookHandler {
	return &BookHandler{source: source}
}

// LevelView - уровень книги в JSON-ответе
type LevelView struct {
	Price  float64 `json:"price"`
	Size   float64 `json:"size"`
	Orders int     `json:"orders"`
}

// BookView - снимок книги в JSON-ответе
type BookView struct {
	Instrument string      `json:"instrument"`
	Sequence   uint64      `json:"sequence"`
	TsLast     uint64      `json:"ts_last"`
	Bids       []LevelView `json:"bids"`
	Asks       []LevelView `json:"asks"`
}

// TopView - вершина книги в JSON-ответе
type TopView struct {
	Instrument string   `json:"instrument"`
	BidPrice   *float64 `json:"bid_price"`
	BidSize    *float64 `json:"bid_size"`
	AskPrice   *float64 `json:"ask_price"`
	AskSize    *float64 `json:"ask_size"`
	Spread     float64  `json:"spread"`
	Midpoint   float64  `json:"midpoint"`
	LastPrice  *float64 `json:"last_price"`
	TsLast     uint64   `json:"ts_last"`
}

// InstrumentView - инструмент в JSON-ответе
type InstrumentView struct {
	Instrument     string  `json:"instrument"`
	Symbol         string  `json:"symbol"`
	PricePrecision uint8   `json:"price_precision"`
	SizePrecision  uint8   `json:"size_precision"`
	PriceIncrement float64 `json:"price_increment"`
	Sequence       uint64  `json:"sequence"`
}

// GetBooks возвращает список инструментов с зарегистрированными книгами.
//
// GET /api/v1/books
func (h *BookHandler) GetBooks(w http.ResponseWriter, r *http.Request) {
	instruments := h.source.Instruments()
	views := make([]InstrumentView, 0, len(instruments))
	for _, instrument := range instruments {
		view := InstrumentView{
			Instrument:     instrument.ID().String(),
			Symbol:         string(instrument.RawSymbol()),
			PricePrecision: instrument.PricePrecision(),
			SizePrecision:  instrument.SizePrecision(),
			PriceIncrement: instrument.PriceIncrement().Float64(),
		}
		if snapshot, err := h.source.Snapshot(instrument.ID(), 1); err == nil {
			view.Sequence = snapshot.Sequence
		}
		views = append(views, view)
	}
	writeJSON(w, http.StatusOK, views)
}

// GetBook возвращает снимок книги на запрошенную глубину.
//
// GET /api/v1/books/{instrument}?depth=N
//
// Параметр depth необязателен: по умолчанию 25 уровней с каждой
// стороны, 0 - вся книга.
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolveInstrument(w, r)
	if !ok {
		return
	}

	depth := defaultBookDepth
	if raw := r.URL.Query().Get("depth"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "invalid depth", raw)
			return
		}
		depth = parsed
	}
	if depth > maxBookDepth {
		depth = maxBookDepth
	}

	snapshot, err := h.source.Snapshot(id, depth)
	if err != nil {
		if errors.Is(err, execution.ErrUnknownInstrument) {
			writeError(w, http.StatusNotFound, "instrument not found", id.String())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read book", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, BookView{
		Instrument: snapshot.InstrumentID.String(),
		Sequence:   snapshot.Sequence,
		TsLast:     uint64(snapshot.TsLast),
		Bids:       levelViews(snapshot.Bids),
		Asks:       levelViews(snapshot.Asks),
	})
}

// GetTop возвращает вершину книги.
//
// GET /api/v1/books/{instrument}/top
//
// Отсутствующая сторона передается как null.
func (h *BookHandler) GetTop(w http.ResponseWriter, r *http.Request) {
	id, ok := h.resolveInstrument(w, r)
	if !ok {
		return
	}

	top, err := h.source.Top(id)
	if err != nil {
		if errors.Is(err, execution.ErrUnknownInstrument) {
			writeError(w, http.StatusNotFound, "instrument not found", id.String())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to read book", err.Error())
		return
	}

	view := TopView{
		Instrument: top.InstrumentID.String(),
		Spread:     top.Spread,
		Midpoint:   top.Midpoint,
		TsLast:     uint64(top.TsLast),
	}
	if top.HasBid {
		bidPrice := top.BidPrice.Float64()
		bidSize := top.BidSize.Float64()
		view.BidPrice = &bidPrice
		view.BidSize = &bidSize
	}
	if top.HasAsk {
		askPrice := top.AskPrice.Float64()
		askSize := top.AskSize.Float64()
		view.AskPrice = &askPrice
		view.AskSize = &askSize
	}
	if trade, ok := h.source.LastTrade(id); ok {
		lastPrice := trade.Price.Float64()
		view.LastPrice = &lastPrice
	}
	writeJSON(w, http.StatusOK, view)
}

// resolveInstrument извлекает идентификатор инструмента из пути.
// Принимает полную форму SYMBOL.VENUE и голый символ, если он
// однозначен среди зарегистрированных инструментов.
func (h *BookHandler) resolveInstrument(w http.ResponseWriter, r *http.Request) (models.InstrumentID, bool) {
	raw := mux.Vars(r)["instrument"]
	if id, err := models.ParseInstrumentID(raw); err == nil {
		return id, true
	}
	for _, instrument := range h.source.Instruments() {
		if string(instrument.RawSymbol()) == raw {
			return instrument.ID(), true
		}
	}
	writeError(w, http.StatusNotFound, "instrument not found", raw)
	return models.InstrumentID{}, false
}

func levelViews(levels []execution.PriceLevel) []LevelView {
	out := make([]LevelView, 0, len(levels))
	for _, level := range levels {
		out = append(out, LevelView{
			Price:  level.Price.Float64(),
			Size:   level.Size.Float64(),
			Orders: level.Orders,
		})
	}
	return out
}
