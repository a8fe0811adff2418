package execution

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bitget-fleet/internal/domain"
	"bitget-fleet/internal/sizing"
)

// Options 控制多账户执行行为。
type Options struct {
	// Concurrency 为并发执行的账户数上限；<=1 表示顺序执行。
	Concurrency int
	// Timeout 限制单账户从认证到下单的整条链路。
	Timeout time.Duration
	// AccountDelay 为相邻账户启动之间的间隔，缓解 IP 级限频。
	AccountDelay time.Duration
}

// Orchestrator 将一次交易意图扇出到全部账户，按账户隔离失败。
type Orchestrator struct {
	factory SessionFactory
	policy  Sizer
	opts    Options
	logger  *zap.Logger
}

// NewOrchestrator 创建编排器。
func NewOrchestrator(factory SessionFactory, policy Sizer, opts Options, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &Orchestrator{
		factory: factory,
		policy:  policy,
		opts:    opts,
		logger:  logger,
	}
}

// Execute 对每个账户独立执行意图，返回与输入账户一一对应且同序的结果。
// 凭证校验在任何账户执行之前完成，校验失败视为配置不可用，整次运行终止。
func (o *Orchestrator) Execute(ctx context.Context, intent domain.TradeIntent, params domain.TradingParameters, accounts []domain.Credentials) ([]domain.ExecutionOutcome, error) {
	for _, account := range accounts {
		if err := account.Validate(); err != nil {
			return nil, fmt.Errorf("账户配置校验失败: %w", err)
		}
	}
	if len(accounts) == 0 {
		return []domain.ExecutionOutcome{}, nil
	}

	o.logger.Info("开始多账户执行",
		zap.String("intent", string(intent)),
		zap.String("symbol", params.Symbol),
		zap.Int("accounts", len(accounts)),
		zap.Int("concurrency", o.opts.Concurrency),
	)

	outcomes := make([]domain.ExecutionOutcome, len(accounts))

	group := new(errgroup.Group)
	group.SetLimit(o.opts.Concurrency)

	started := 0
	for i, account := range accounts {
		// 操作员中止后不再启动新账户，已在途的执行允许完成。
		if ctx.Err() != nil {
			break
		}
		if o.opts.AccountDelay > 0 && i > 0 {
			if !sleepContext(ctx, o.opts.AccountDelay) {
				break
			}
		}

		idx, creds := i, account
		started++
		group.Go(func() error {
			outcomes[idx] = o.runAccount(ctx, intent, params, creds)
			return nil
		})
	}

	_ = group.Wait()

	for i := started; i < len(accounts); i++ {
		outcomes[i] = domain.ExecutionOutcome{
			AccountName:    accounts[i].Name,
			MainAccountUID: accounts[i].MainAccountUID,
			Succeeded:      false,
			ErrKind:        domain.KindOf(ctx.Err()),
			Message:        "运行被中止，账户未执行",
		}
	}

	return outcomes, nil
}

// runAccount 执行单个账户的完整链路；任何错误都止步于此，绝不影响其他账户。
func (o *Orchestrator) runAccount(ctx context.Context, intent domain.TradeIntent, params domain.TradingParameters, creds domain.Credentials) (outcome domain.ExecutionOutcome) {
	outcome = domain.ExecutionOutcome{
		AccountName:    creds.Name,
		MainAccountUID: creds.MainAccountUID,
	}

	defer func() {
		if r := recover(); r != nil {
			outcome = o.failed(outcome, fmt.Errorf("账户执行发生 panic: %v", r))
		}
	}()

	actx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	session := o.factory(creds)

	if err := session.Authenticate(actx); err != nil {
		return o.failed(outcome, err)
	}

	if intent == domain.IntentCancelAll {
		count, err := session.CancelAllOpenOrders(actx, params.Symbol)
		if err != nil {
			return o.failed(outcome, err)
		}
		outcome.Succeeded = true
		outcome.CancelledCount = count
		outcome.Message = fmt.Sprintf("已撤销 %d 笔挂单", count)
		o.logger.Info("账户撤单完成",
			zap.String("account", creds.Name),
			zap.Int("cancelled", count),
		)
		return outcome
	}

	state, err := o.collectState(actx, session, intent, params, creds)
	if err != nil {
		return o.failed(outcome, err)
	}

	order, err := o.policy.BuildOrder(intent, params, state)
	if err != nil {
		return o.failed(outcome, err)
	}

	orderID, err := session.PlaceOrder(actx, params.Symbol, order)
	if err != nil {
		return o.failed(outcome, err)
	}

	outcome.Succeeded = true
	outcome.OrderID = orderID
	outcome.Message = fmt.Sprintf("%s %s 订单已提交，数量 %s", order.Kind, order.Side, order.Quantity)
	o.logger.Info("账户下单成功",
		zap.String("account", creds.Name),
		zap.String("order_id", orderID),
		zap.String("side", string(order.Side)),
		zap.String("quantity", order.Quantity.String()),
	)
	return outcome
}

// collectState 采集下单所需的账户侧状态；只拉取当前意图真正需要的数据。
func (o *Orchestrator) collectState(ctx context.Context, session Session, intent domain.TradeIntent, params domain.TradingParameters, creds domain.Credentials) (sizing.AccountState, error) {
	state := sizing.AccountState{AccountName: creds.Name}

	rule, err := session.GetSymbolRule(ctx, params.Symbol)
	if err != nil {
		return state, err
	}
	state.Rule = rule

	if intent == domain.IntentBuy && !params.HasLimitPrice() {
		price, err := session.GetTickerPrice(ctx, params.Symbol)
		if err != nil {
			return state, err
		}
		state.MarketPrice = price
	}

	if intent == domain.IntentSell {
		balance, err := session.GetAvailableBalance(ctx, params.BaseCoin)
		if err != nil {
			return state, err
		}
		state.AvailableBalance = balance
	}

	return state, nil
}

func (o *Orchestrator) failed(outcome domain.ExecutionOutcome, err error) domain.ExecutionOutcome {
	outcome.Succeeded = false
	outcome.ErrKind = domain.KindOf(err)
	outcome.Message = err.Error()
	o.logger.Warn("账户执行失败",
		zap.String("account", outcome.AccountName),
		zap.String("kind", string(outcome.ErrKind)),
		zap.Error(err),
	)
	return outcome
}

// sleepContext 可中断地等待 d，返回是否等满。
func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
