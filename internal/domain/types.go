package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// TradeIntent 表示操作员选择的一次交易意图。
type TradeIntent string

const (
	IntentBuy       TradeIntent = "buy"
	IntentSell      TradeIntent = "sell"
	IntentCancelAll TradeIntent = "cancel_all"
)

// OrderSide 表示下单方向。
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderKind 表示委托类型。
type OrderKind string

const (
	OrderKindMarket OrderKind = "market"
	OrderKindLimit  OrderKind = "limit"
)

// Credentials 为单个账户的 API 凭证及身份信息，加载后不可变。
type Credentials struct {
	Name           string
	APIKey         string
	APISecret      string
	Passphrase     string
	IsSubAccount   bool
	MainAccountUID string
}

// Validate 校验凭证完整性；子账户必须携带主账户 UID。
func (c Credentials) Validate() error {
	if c.Name == "" {
		return errors.New("账户缺少 name")
	}
	if c.APIKey == "" || c.APISecret == "" || c.Passphrase == "" {
		return fmt.Errorf("账户 %s 缺少 API 凭证", c.Name)
	}
	if c.IsSubAccount && c.MainAccountUID == "" {
		return fmt.Errorf("子账户 %s 缺少 main_account_uid", c.Name)
	}
	return nil
}

// TradingParameters 为本次运行内所有账户共享的只读交易参数。
type TradingParameters struct {
	Symbol         string
	BaseCoin       string
	QuoteCoin      string
	LimitPrice     decimal.Decimal
	BuyQuoteAmount decimal.Decimal
	SellPercentage decimal.Decimal
}

// HasLimitPrice 判断是否配置了有效限价。
func (p TradingParameters) HasLimitPrice() bool {
	return p.LimitPrice.IsPositive()
}

// OrderRequest 为按账户生成的具体委托，每次执行新建且不共享。
type OrderRequest struct {
	AccountName   string
	Side          OrderSide
	Kind          OrderKind
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	ClientOrderID string
}

// ExecutionOutcome 为单账户单次执行的终态结果，仅由汇总器消费。
type ExecutionOutcome struct {
	AccountName    string
	MainAccountUID string
	Succeeded      bool
	OrderID        string
	CancelledCount int
	ErrKind        ErrorKind
	Message        string
}
