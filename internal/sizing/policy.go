package sizing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bitget-fleet/internal/bitget"
	"bitget-fleet/internal/domain"
)

// 交易所未声明精度时的兜底小数位。
const defaultScale int32 = 8

var hundred = decimal.NewFromInt(100)

// AccountState 为生成订单所需的账户侧快照。
type AccountState struct {
	AccountName      string
	AvailableBalance decimal.Decimal
	MarketPrice      decimal.Decimal
	Rule             bitget.SymbolRule
}

// Policy 将交易意图与账户状态换算为具体委托。
// 数量与价格一律按交易所精度截断，绝不向上取整，避免超出可用余额。
type Policy struct {
	logger *zap.Logger
}

// NewPolicy 创建下单策略。
func NewPolicy(logger *zap.Logger) *Policy {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Policy{logger: logger}
}

// BuildOrder 根据意图生成订单；余额不足或截断后数量无效时返回账户级错误。
func (p *Policy) BuildOrder(intent domain.TradeIntent, params domain.TradingParameters, state AccountState) (domain.OrderRequest, error) {
	switch intent {
	case domain.IntentBuy:
		return p.buildBuy(params, state)
	case domain.IntentSell:
		return p.buildSell(params, state)
	default:
		return domain.OrderRequest{}, fmt.Errorf("sizing: 意图 %s 不需要生成订单", intent)
	}
}

// buildBuy 生成买单。数量一律以基础币种计价：市价买单同样按
// 计价金额 / 最新成交价折算为基础数量，而不是把计价金额直接作为 quantity 透传。
func (p *Policy) buildBuy(params domain.TradingParameters, state AccountState) (domain.OrderRequest, error) {
	if !params.BuyQuoteAmount.IsPositive() {
		return domain.OrderRequest{}, domain.NewError(domain.ErrKindInvalidQuantity,
			fmt.Sprintf("买入金额无效: %s", params.BuyQuoteAmount))
	}

	effectivePrice := state.MarketPrice
	kind := domain.OrderKindMarket
	if params.HasLimitPrice() {
		effectivePrice = params.LimitPrice
		kind = domain.OrderKindLimit
	}
	if !effectivePrice.IsPositive() {
		return domain.OrderRequest{}, domain.NewError(domain.ErrKindMarketData,
			fmt.Sprintf("有效价格无效: %s", effectivePrice))
	}

	quantity := params.BuyQuoteAmount.Div(effectivePrice)

	order, err := p.finalize(state, domain.OrderSideBuy, kind, quantity, effectivePrice)
	if err != nil {
		return domain.OrderRequest{}, err
	}

	p.logger.Debug("买单参数已计算",
		zap.String("account", state.AccountName),
		zap.String("quantity", order.Quantity.String()),
		zap.String("effective_price", effectivePrice.String()),
	)
	return order, nil
}

func (p *Policy) buildSell(params domain.TradingParameters, state AccountState) (domain.OrderRequest, error) {
	if !state.AvailableBalance.IsPositive() {
		return domain.OrderRequest{}, domain.NewError(domain.ErrKindInsufficientBalance,
			fmt.Sprintf("%s 可用余额为零", params.BaseCoin))
	}
	if !params.SellPercentage.IsPositive() || params.SellPercentage.GreaterThan(hundred) {
		return domain.OrderRequest{}, domain.NewError(domain.ErrKindInvalidQuantity,
			fmt.Sprintf("卖出比例无效: %s", params.SellPercentage))
	}

	kind := domain.OrderKindMarket
	price := decimal.Zero
	if params.HasLimitPrice() {
		kind = domain.OrderKindLimit
		price = params.LimitPrice
	}

	quantity := state.AvailableBalance.Mul(params.SellPercentage).Div(hundred)
	truncated := quantity.Truncate(quantityScale(state.Rule))
	if !truncated.IsPositive() {
		return domain.OrderRequest{}, domain.NewError(domain.ErrKindInsufficientBalance,
			fmt.Sprintf("按 %s%% 计算的卖出数量不足最小步进", params.SellPercentage))
	}

	order, err := p.finalize(state, domain.OrderSideSell, kind, quantity, price)
	if err != nil {
		return domain.OrderRequest{}, err
	}

	p.logger.Debug("卖单参数已计算",
		zap.String("account", state.AccountName),
		zap.String("quantity", order.Quantity.String()),
		zap.String("balance", state.AvailableBalance.String()),
	)
	return order, nil
}

// finalize 应用精度截断并做最终本地校验，拒绝会被交易所打回的零量订单。
func (p *Policy) finalize(state AccountState, side domain.OrderSide, kind domain.OrderKind, quantity, price decimal.Decimal) (domain.OrderRequest, error) {
	quantity = quantity.Truncate(quantityScale(state.Rule))
	if !quantity.IsPositive() {
		return domain.OrderRequest{}, domain.NewError(domain.ErrKindInvalidQuantity,
			"截断后数量不大于零")
	}
	if state.Rule.MinTradeAmount.IsPositive() && quantity.LessThan(state.Rule.MinTradeAmount) {
		return domain.OrderRequest{}, domain.NewError(domain.ErrKindInvalidQuantity,
			fmt.Sprintf("数量 %s 低于最小下单量 %s", quantity, state.Rule.MinTradeAmount))
	}

	if kind == domain.OrderKindLimit {
		price = price.Truncate(priceScale(state.Rule))
		if !price.IsPositive() {
			return domain.OrderRequest{}, domain.NewError(domain.ErrKindInvalidQuantity,
				"截断后价格不大于零")
		}
	} else {
		price = decimal.Zero
	}

	return domain.OrderRequest{
		AccountName:   state.AccountName,
		Side:          side,
		Kind:          kind,
		Quantity:      quantity,
		Price:         price,
		ClientOrderID: uuid.NewString(),
	}, nil
}

func quantityScale(rule bitget.SymbolRule) int32 {
	if rule.QuantityScale > 0 {
		return rule.QuantityScale
	}
	return defaultScale
}

func priceScale(rule bitget.SymbolRule) int32 {
	if rule.PriceScale > 0 {
		return rule.PriceScale
	}
	return defaultScale
}
