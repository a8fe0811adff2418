package bitget

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

const (
	// DefaultBaseURL 为 Bitget 现货 REST 入口。
	DefaultBaseURL = "https://api.bitget.com"

	// codeOK 为交易所成功响应码。
	codeOK = "00000"
)

// 现货 v1 端点。
const (
	pathTicker      = "/api/spot/v1/market/ticker"
	pathAssets      = "/api/spot/v1/account/assets"
	pathProduct     = "/api/spot/v1/public/product"
	pathPlaceOrder  = "/api/spot/v1/trade/orders"
	pathOpenOrders  = "/api/spot/v1/trade/open-orders"
	pathCancelOrder = "/api/spot/v1/trade/cancel-order"
)

// apiEnvelope 为交易所统一响应包裹。
type apiEnvelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

type tickerData struct {
	Symbol string `json:"symbol"`
	Close  string `json:"close"`
}

type assetData struct {
	CoinName  string `json:"coinName"`
	Available string `json:"available"`
	Frozen    string `json:"frozen"`
}

type productData struct {
	Symbol         string `json:"symbol"`
	BaseCoin       string `json:"baseCoin"`
	QuoteCoin      string `json:"quoteCoin"`
	MinTradeAmount string `json:"minTradeAmount"`
	PriceScale     string `json:"priceScale"`
	QuantityScale  string `json:"quantityScale"`
	Status         string `json:"status"`
}

type placeOrderRequest struct {
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	OrderType     string `json:"orderType"`
	Force         string `json:"force"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price,omitempty"`
	ClientOrderID string `json:"clientOrderId"`
}

type placeOrderData struct {
	OrderID       string `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
}

// OpenOrder 为一笔未成交挂单。
type OpenOrder struct {
	OrderID   string `json:"orderId"`
	Symbol    string `json:"symbol"`
	Side      string `json:"side"`
	OrderType string `json:"orderType"`
	Price     string `json:"price"`
	Quantity  string `json:"quantity"`
}

type cancelOrderRequest struct {
	Symbol  string `json:"symbol"`
	OrderID string `json:"orderId"`
}

type symbolQuery struct {
	Symbol string `json:"symbol"`
}

// SymbolRule 为交易对的下单精度约束，来源于公共产品信息端点。
type SymbolRule struct {
	Symbol         string
	BaseCoin       string
	QuoteCoin      string
	PriceScale     int32
	QuantityScale  int32
	MinTradeAmount decimal.Decimal
}
