package models

// enums.go - перечисления доменной модели
//
// Все перечисления - типизированные целые с нулевым значением
// "не задано" там, где это имеет смысл (OrderSide, LiquiditySide и т.д.).

// OrderSide - сторона ордера
type OrderSide uint8

const (
	NoOrderSide OrderSide = iota
	Buy
	Sell
)

func (s OrderSide) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "NO_ORDER_SIDE"
	}
}

// Opposite возвращает противоположную сторону
func (s OrderSide) Opposite() OrderSide {
	switch s {
	case Buy:
		return Sell
	case Sell:
		return Buy
	default:
		return NoOrderSide
	}
}

// OrderType - тип ордера (девять вариантов)
type OrderType uint8

const (
	Market OrderType = iota + 1
	Limit
	StopMarket
	StopLimit
	MarketToLimit
	MarketIfTouched
	LimitIfTouched
	TrailingStopMarket
	TrailingStopLimit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case StopMarket:
		return "STOP_MARKET"
	case StopLimit:
		return "STOP_LIMIT"
	case MarketToLimit:
		return "MARKET_TO_LIMIT"
	case MarketIfTouched:
		return "MARKET_IF_TOUCHED"
	case LimitIfTouched:
		return "LIMIT_IF_TOUCHED"
	case TrailingStopMarket:
		return "TRAILING_STOP_MARKET"
	case TrailingStopLimit:
		return "TRAILING_STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// OrderStatus - статус ордера в машине состояний
type OrderStatus uint8

const (
	StatusInitialized OrderStatus = iota + 1
	StatusDenied
	StatusEmulated
	StatusReleased
	StatusSubmitted
	StatusAccepted
	StatusRejected
	StatusCanceled
	StatusExpired
	StatusTriggered
	StatusPendingUpdate
	StatusPendingCancel
	StatusPartiallyFilled
	StatusFilled
)

func (s OrderStatus) String() string {
	switch s {
	case StatusInitialized:
		return "INITIALIZED"
	case StatusDenied:
		return "DENIED"
	case StatusEmulated:
		return "EMULATED"
	case StatusReleased:
		return "RELEASED"
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusRejected:
		return "REJECTED"
	case StatusCanceled:
		return "CANCELED"
	case StatusExpired:
		return "EXPIRED"
	case StatusTriggered:
		return "TRIGGERED"
	case StatusPendingUpdate:
		return "PENDING_UPDATE"
	case StatusPendingCancel:
		return "PENDING_CANCEL"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal сообщает, является ли статус терминальным
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case StatusDenied, StatusRejected, StatusCanceled, StatusExpired, StatusFilled:
		return true
	default:
		return false
	}
}

// TimeInForce - время жизни ордера
type TimeInForce uint8

const (
	GTC TimeInForce = iota + 1 // good till canceled
	IOC                        // immediate or cancel
	FOK                        // fill or kill
	GTD                        // good till date
	Day
	AtTheOpen
	AtTheClose
)

func (t TimeInForce) String() string {
	switch t {
	case GTC:
		return "GTC"
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case GTD:
		return "GTD"
	case Day:
		return "DAY"
	case AtTheOpen:
		return "AT_THE_OPEN"
	case AtTheClose:
		return "AT_THE_CLOSE"
	default:
		return "UNKNOWN"
	}
}

// LiquiditySide - сторона ликвидности исполнения
type LiquiditySide uint8

const (
	NoLiquiditySide LiquiditySide = iota
	Maker
	Taker
)

func (s LiquiditySide) String() string {
	switch s {
	case Maker:
		return "MAKER"
	case Taker:
		return "TAKER"
	default:
		return "NO_LIQUIDITY_SIDE"
	}
}

// TriggerType - источник цены для срабатывания триггера
type TriggerType uint8

const (
	NoTrigger TriggerType = iota
	TriggerDefault
	TriggerBidAsk
	TriggerLastPrice
	TriggerDoubleLast
	TriggerDoubleBidAsk
	TriggerLastOrBidAsk
	TriggerMidPoint
	TriggerMarkPrice
	TriggerIndexPrice
)

func (t TriggerType) String() string {
	switch t {
	case TriggerDefault:
		return "DEFAULT"
	case TriggerBidAsk:
		return "BID_ASK"
	case TriggerLastPrice:
		return "LAST_PRICE"
	case TriggerDoubleLast:
		return "DOUBLE_LAST"
	case TriggerDoubleBidAsk:
		return "DOUBLE_BID_ASK"
	case TriggerLastOrBidAsk:
		return "LAST_OR_BID_ASK"
	case TriggerMidPoint:
		return "MID_POINT"
	case TriggerMarkPrice:
		return "MARK_PRICE"
	case TriggerIndexPrice:
		return "INDEX_PRICE"
	default:
		return "NO_TRIGGER"
	}
}

// TrailingOffsetType - единицы трейлинг-смещения
type TrailingOffsetType uint8

const (
	NoTrailingOffset TrailingOffsetType = iota
	TrailingOffsetPrice
	TrailingOffsetBasisPoints
	TrailingOffsetTicks
	TrailingOffsetPriceTier
)

func (t TrailingOffsetType) String() string {
	switch t {
	case TrailingOffsetPrice:
		return "PRICE"
	case TrailingOffsetBasisPoints:
		return "BASIS_POINTS"
	case TrailingOffsetTicks:
		return "TICKS"
	case TrailingOffsetPriceTier:
		return "PRICE_TIER"
	default:
		return "NO_TRAILING_OFFSET"
	}
}

// ContingencyType - связь между ордерами (OCO/OTO/OUO)
type ContingencyType uint8

const (
	NoContingency ContingencyType = iota
	OCO                           // one cancels other
	OTO                           // one triggers other
	OUO                           // one updates other
)

func (c ContingencyType) String() string {
	switch c {
	case OCO:
		return "OCO"
	case OTO:
		return "OTO"
	case OUO:
		return "OUO"
	default:
		return "NO_CONTINGENCY"
	}
}

// PositionSide - сторона позиции
type PositionSide uint8

const (
	Flat PositionSide = iota
	Long
	Short
)

func (s PositionSide) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// BookType - уровень детализации книги ордеров
type BookType uint8

const (
	L1_MBP BookType = iota + 1 // market by price, только вершина
	L2_MBP                     // market by price, агрегированные уровни
	L3_MBO                     // market by order, отдельные ордера
)

func (t BookType) String() string {
	switch t {
	case L1_MBP:
		return "L1_MBP"
	case L2_MBP:
		return "L2_MBP"
	case L3_MBO:
		return "L3_MBO"
	default:
		return "UNKNOWN"
	}
}

// BookAction - действие дельты книги
type BookAction uint8

const (
	BookAdd BookAction = iota + 1
	BookUpdate
	BookDelete
	BookClear
)

func (a BookAction) String() string {
	switch a {
	case BookAdd:
		return "ADD"
	case BookUpdate:
		return "UPDATE"
	case BookDelete:
		return "DELETE"
	case BookClear:
		return "CLEAR"
	default:
		return "UNKNOWN"
	}
}

// AggressorSide - агрессор сделки
type AggressorSide uint8

const (
	NoAggressor AggressorSide = iota
	AggressorBuyer
	AggressorSeller
)

func (s AggressorSide) String() string {
	switch s {
	case AggressorBuyer:
		return "BUYER"
	case AggressorSeller:
		return "SELLER"
	default:
		return "NO_AGGRESSOR"
	}
}

// OptionKind - тип опциона
type OptionKind uint8

const (
	NoOptionKind OptionKind = iota
	Call
	Put
)

func (k OptionKind) String() string {
	switch k {
	case Call:
		return "CALL"
	case Put:
		return "PUT"
	default:
		return "NO_OPTION_KIND"
	}
}

// Флаги записи книги ордеров
const (
	// FlagLast - последняя дельта в атомарной группе событий
	FlagLast uint8 = 1 << 7
	// FlagTOB - запись относится к вершине книги
	FlagTOB uint8 = 1 << 6
	// FlagSnapshot - запись является частью снапшота
	FlagSnapshot uint8 = 1 << 5
)
