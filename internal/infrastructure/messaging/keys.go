package messaging

import "fmt"

// Redis key 格式
const (
	KeyPatternCandleHistory  = "candle.history.%s.%s" // %s = bar, %s = instId（LPUSH，最新的在前）
	KeyPatternFundingHistory = "funding.history.%s"   // %s = instId（LPUSH，最新的在前）
	ChannelPatternOrders     = "orders.%s"            // %s = instId
)

func candleHistoryKey(bar, instID string) string {
	return fmt.Sprintf(KeyPatternCandleHistory, bar, instID)
}

func fundingHistoryKey(instID string) string {
	return fmt.Sprintf(KeyPatternFundingHistory, instID)
}

func ordersChannel(instID string) string {
	return fmt.Sprintf(ChannelPatternOrders, instID)
}
