package execution

import (
	"context"

	"github.com/shopspring/decimal"

	"bitget-fleet/internal/bitget"
	"bitget-fleet/internal/domain"
	"bitget-fleet/internal/sizing"
)

// Session 定义单账户执行所需的交易所能力，便于在测试中替换真实客户端。
type Session interface {
	Authenticate(ctx context.Context) error
	GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetAvailableBalance(ctx context.Context, coin string) (decimal.Decimal, error)
	GetSymbolRule(ctx context.Context, symbol string) (bitget.SymbolRule, error)
	PlaceOrder(ctx context.Context, symbol string, order domain.OrderRequest) (string, error)
	CancelAllOpenOrders(ctx context.Context, symbol string) (int, error)
}

// SessionFactory 按账户凭证创建会话；每个账户独享一个会话。
type SessionFactory func(creds domain.Credentials) Session

// Sizer 抽象下单策略。
type Sizer interface {
	BuildOrder(intent domain.TradeIntent, params domain.TradingParameters, state sizing.AccountState) (domain.OrderRequest, error)
}

// Report 为一次运行的汇总结果，行顺序与输入账户顺序一致。
type Report struct {
	Total     int
	Succeeded int
	Failed    int
	Lines     []string
}
