package utils

import (
	"math"
)

// math.go - математические утилиты для работы со стаканом и объёмами
//
// Назначение:
// Вспомогательные функции для аналитики стакана и нормализации объёмов.
// Все функции являются чистыми (pure functions) без побочных эффектов.
// Работают с float64 на границе API; внутреннее ядро использует
// fixed-point типы из internal/models.
//
// Функции:
// - RoundToLotSize: округление до lot size биржи
// - CalculateWeightedAverage: средневзвешенная цена (VWAP)
// - SimulateMarketBuy/Sell: моделирование рыночного ордера по стакану

// RoundToLotSize округляет значение ВНИЗ до ближайшего кратного lotSize.
//
// Используется для округления объёма ордера до минимального шага биржи.
// Округление вниз гарантирует, что мы не превысим доступные средства.
//
// Параметры:
//   - value: исходное значение (объём в монетах актива)
//   - lotSize: минимальный шаг изменения объёма на бирже
//
// Возвращает:
//   - Округлённое значение, кратное lotSize
//   - Если lotSize <= 0, возвращает исходное значение
//
// Примеры:
//   - RoundToLotSize(0.123456, 0.001) = 0.123
//   - RoundToLotSize(1.999, 0.01) = 1.99
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	// Используем math.Floor для округления вниз
	// Это безопаснее для торговли - не превысим доступные средства
	return math.Floor(value/lotSize) * lotSize
}

// RoundToLotSizeUp округляет значение ВВЕРХ до ближайшего кратного lotSize.
//
// Используется когда нужно гарантировать минимальный объём (например, для minQty).
func RoundToLotSizeUp(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Ceil(value/lotSize) * lotSize
}

// RoundToLotSizeNearest округляет к ближайшему кратному lotSize.
func RoundToLotSizeNearest(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Round(value/lotSize) * lotSize
}

// CalculateWeightedAverage вычисляет средневзвешенное значение (VWAP).
//
// Используется для расчёта средневзвешенной цены по стакану ордеров.
// VWAP (Volume-Weighted Average Price) показывает реальную цену исполнения
// рыночного ордера заданного объёма.
//
// Формула:
//
//	VWAP = Σ(price_i × volume_i) / Σ(volume_i)
//
// Параметры:
//   - values: слайс цен (price levels)
//   - weights: слайс объёмов (volumes на каждом уровне)
//
// Возвращает:
//   - Средневзвешенное значение
//   - 0 если входные данные некорректны
//
// Примеры:
//
//	values  = [100.0, 101.0, 102.0]
//	weights = [10.0, 20.0, 10.0]
//	VWAP = (100*10 + 101*20 + 102*10) / (10+20+10) = 4040/40 = 101.0
func CalculateWeightedAverage(values, weights []float64) float64 {
	if len(values) == 0 || len(weights) == 0 {
		return 0
	}
	if len(values) != len(weights) {
		return 0
	}

	var sumWeighted, sumWeights float64
	for i := range values {
		if weights[i] < 0 {
			continue // Пропускаем отрицательные веса
		}
		sumWeighted += values[i] * weights[i]
		sumWeights += weights[i]
	}

	if sumWeights == 0 {
		return 0
	}
	return sumWeighted / sumWeights
}

// OrderBookLevel представляет один уровень стакана ордеров
type OrderBookLevel struct {
	Price  float64
	Volume float64
}

// SimulateMarketBuy моделирует рыночную покупку заданного объёма.
//
// Проходит по уровням Ask (от лучшего к худшему) и рассчитывает
// средневзвешенную цену покупки с учётом глубины стакана.
//
// Параметры:
//   - asks: уровни Ask (заявки на продажу), отсортированы по возрастанию цены
//   - targetVolume: требуемый объём покупки
//
// Возвращает:
//   - avgPrice: средневзвешенная цена покупки
//   - filledVolume: реально доступный объём (может быть < targetVolume)
//   - slippage: проскальзывание в процентах относительно лучшей цены
func SimulateMarketBuy(asks []OrderBookLevel, targetVolume float64) (avgPrice, filledVolume, slippage float64) {
	if len(asks) == 0 || targetVolume <= 0 {
		return 0, 0, 0
	}

	bestPrice := asks[0].Price
	if bestPrice <= 0 {
		return 0, 0, 0
	}

	var sumCost float64 // Σ(price × volume)
	remaining := targetVolume

	for _, level := range asks {
		if level.Price <= 0 || level.Volume <= 0 {
			continue
		}

		take := math.Min(remaining, level.Volume)
		sumCost += level.Price * take
		filledVolume += take
		remaining -= take

		if remaining <= 0 {
			break
		}
	}

	if filledVolume == 0 {
		return 0, 0, 0
	}

	avgPrice = sumCost / filledVolume
	slippage = (avgPrice - bestPrice) / bestPrice * 100

	return avgPrice, filledVolume, slippage
}

// SimulateMarketSell моделирует рыночную продажу заданного объёма.
//
// Проходит по уровням Bid (от лучшего к худшему) и рассчитывает
// средневзвешенную цену продажи с учётом глубины стакана.
//
// Параметры:
//   - bids: уровни Bid (заявки на покупку), отсортированы по убыванию цены
//   - targetVolume: требуемый объём продажи
//
// Возвращает:
//   - avgPrice: средневзвешенная цена продажи
//   - filledVolume: реально доступный объём
//   - slippage: проскальзывание в процентах (отрицательное, т.к. цена падает)
func SimulateMarketSell(bids []OrderBookLevel, targetVolume float64) (avgPrice, filledVolume, slippage float64) {
	if len(bids) == 0 || targetVolume <= 0 {
		return 0, 0, 0
	}

	bestPrice := bids[0].Price
	if bestPrice <= 0 {
		return 0, 0, 0
	}

	var sumCost float64
	remaining := targetVolume

	for _, level := range bids {
		if level.Price <= 0 || level.Volume <= 0 {
			continue
		}

		take := math.Min(remaining, level.Volume)
		sumCost += level.Price * take
		filledVolume += take
		remaining -= take

		if remaining <= 0 {
			break
		}
	}

	if filledVolume == 0 {
		return 0, 0, 0
	}

	avgPrice = sumCost / filledVolume
	// Для продажи slippage отрицательный (получаем меньше чем лучшая цена)
	slippage = (avgPrice - bestPrice) / bestPrice * 100

	return avgPrice, filledVolume, slippage
}

// Abs возвращает абсолютное значение числа.
func Abs(x float64) float64 {
	return math.Abs(x)
}

// Min возвращает минимум из двух чисел.
func Min(a, b float64) float64 {
	return math.Min(a, b)
}

// Max возвращает максимум из двух чисел.
func Max(a, b float64) float64 {
	return math.Max(a, b)
}

// Clamp ограничивает значение диапазоном [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
