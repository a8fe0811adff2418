package bitget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bitget-fleet/internal/domain"
)

// RetryOptions 控制只读请求的重试节奏。
type RetryOptions struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

// Options 控制客户端传输行为。
type Options struct {
	BaseURL string
	Timeout time.Duration
	Retry   RetryOptions
}

// Session 为单个账户的签名会话，持有该账户的签名材料与独立 HTTP 客户端。
// 会话之间不共享任何可变状态，因此并发执行天然隔离。
type Session struct {
	creds  domain.Credentials
	opts   Options
	http   *resty.Client
	logger *zap.Logger
}

// NewSession 为指定账户凭证创建签名会话。
func NewSession(creds domain.Credentials, opts Options, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry.MaxAttempts = 3
	}
	if opts.Retry.MinDelay <= 0 {
		opts.Retry.MinDelay = 500 * time.Millisecond
	}
	if opts.Retry.MaxDelay <= 0 {
		opts.Retry.MaxDelay = 5 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimSuffix(opts.BaseURL, "/")).
		SetTimeout(opts.Timeout)

	return &Session{
		creds:  creds,
		opts:   opts,
		http:   client,
		logger: logger.With(zap.String("account", creds.Name)),
	}
}

// AccountName 返回会话绑定的账户名。
func (s *Session) AccountName() string {
	return s.creds.Name
}

// Authenticate 用一次签名的资产查询验证凭证有效性。
func (s *Session) Authenticate(ctx context.Context) error {
	var assets []assetData
	err := s.do(ctx, http.MethodGet, pathAssets, nil, &assets)
	if err == nil {
		s.logger.Debug("账户认证通过")
		return nil
	}

	switch domain.KindOf(err) {
	case domain.ErrKindTimeout, domain.ErrKindNetwork, domain.ErrKindAuth:
		return err
	default:
		return domain.WrapError(domain.ErrKindAuth, "认证失败", err)
	}
}

// GetTickerPrice 获取交易对最新成交价。
func (s *Session) GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	requestPath := pathTicker + "?symbol=" + url.QueryEscape(symbol)

	var data tickerData
	if err := s.getWithRetry(ctx, requestPath, &data); err != nil {
		if domain.KindOf(err) == domain.ErrKindTimeout {
			return decimal.Zero, err
		}
		return decimal.Zero, domain.WrapError(domain.ErrKindMarketData, "获取行情失败", err)
	}

	price, err := decimal.NewFromString(data.Close)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, domain.WrapError(domain.ErrKindMarketData, "行情价格无效", err)
	}
	return price, nil
}

// GetAvailableBalance 查询指定币种的可用余额；未持有该币种时返回 0。
func (s *Session) GetAvailableBalance(ctx context.Context, coin string) (decimal.Decimal, error) {
	requestPath := pathAssets + "?coin=" + url.QueryEscape(coin)

	var assets []assetData
	if err := s.getWithRetry(ctx, requestPath, &assets); err != nil {
		switch domain.KindOf(err) {
		case domain.ErrKindTimeout, domain.ErrKindNetwork, domain.ErrKindAuth:
			return decimal.Zero, err
		default:
			return decimal.Zero, domain.WrapError(domain.ErrKindMarketData, "查询余额失败", err)
		}
	}

	for _, asset := range assets {
		if !strings.EqualFold(asset.CoinName, coin) {
			continue
		}
		available, err := decimal.NewFromString(asset.Available)
		if err != nil {
			return decimal.Zero, domain.WrapError(domain.ErrKindMarketData, "余额数据无效", err)
		}
		return available, nil
	}
	return decimal.Zero, nil
}

// GetSymbolRule 查询交易对的价格/数量精度及最小下单量。
func (s *Session) GetSymbolRule(ctx context.Context, symbol string) (SymbolRule, error) {
	requestPath := pathProduct + "?symbol=" + url.QueryEscape(symbol)

	var data productData
	if err := s.getWithRetry(ctx, requestPath, &data); err != nil {
		switch domain.KindOf(err) {
		case domain.ErrKindTimeout, domain.ErrKindNetwork, domain.ErrKindAuth:
			return SymbolRule{}, err
		default:
			return SymbolRule{}, domain.WrapError(domain.ErrKindMarketData, "获取交易对信息失败", err)
		}
	}

	rule, err := parseSymbolRule(data)
	if err != nil {
		return SymbolRule{}, domain.WrapError(domain.ErrKindMarketData, "交易对信息无效", err)
	}
	return rule, nil
}

// PlaceOrder 提交委托并返回交易所订单号。
func (s *Session) PlaceOrder(ctx context.Context, symbol string, order domain.OrderRequest) (string, error) {
	body := placeOrderRequest{
		Symbol:        symbol,
		Side:          string(order.Side),
		OrderType:     string(order.Kind),
		Force:         "gtc",
		Quantity:      order.Quantity.String(),
		ClientOrderID: order.ClientOrderID,
	}
	if order.Kind == domain.OrderKindLimit {
		body.Price = order.Price.String()
	}

	s.logger.Debug("提交委托",
		zap.String("symbol", symbol),
		zap.String("side", string(order.Side)),
		zap.String("type", string(order.Kind)),
		zap.String("quantity", body.Quantity),
		zap.String("price", body.Price),
	)

	var data placeOrderData
	if err := s.do(ctx, http.MethodPost, pathPlaceOrder, body, &data); err != nil {
		switch domain.KindOf(err) {
		case domain.ErrKindTimeout, domain.ErrKindNetwork, domain.ErrKindAuth:
			return "", err
		default:
			return "", domain.WrapError(domain.ErrKindOrderRejected, "下单被拒绝", err)
		}
	}
	return data.OrderID, nil
}

// GetOpenOrders 拉取交易对的全部未成交挂单。
func (s *Session) GetOpenOrders(ctx context.Context, symbol string) ([]OpenOrder, error) {
	var orders []OpenOrder
	if err := s.do(ctx, http.MethodPost, pathOpenOrders, symbolQuery{Symbol: symbol}, &orders); err != nil {
		switch domain.KindOf(err) {
		case domain.ErrKindTimeout, domain.ErrKindNetwork, domain.ErrKindAuth:
			return nil, err
		default:
			return nil, domain.WrapError(domain.ErrKindMarketData, "获取挂单失败", err)
		}
	}
	return orders, nil
}

// CancelOrder 按订单号撤销单笔挂单。
func (s *Session) CancelOrder(ctx context.Context, symbol, orderID string) error {
	err := s.do(ctx, http.MethodPost, pathCancelOrder, cancelOrderRequest{Symbol: symbol, OrderID: orderID}, nil)
	if err == nil {
		return nil
	}
	switch domain.KindOf(err) {
	case domain.ErrKindTimeout, domain.ErrKindNetwork, domain.ErrKindAuth:
		return err
	default:
		return domain.WrapError(domain.ErrKindOrderRejected, "撤单被拒绝", err)
	}
}

// CancelAllOpenOrders 撤销交易对全部挂单，返回成功撤销的数量。
// 单笔撤单失败不会中断其余撤单。
func (s *Session) CancelAllOpenOrders(ctx context.Context, symbol string) (int, error) {
	orders, err := s.GetOpenOrders(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if len(orders) == 0 {
		return 0, nil
	}

	cancelled := 0
	var lastErr error
	for _, order := range orders {
		if err := s.CancelOrder(ctx, symbol, order.OrderID); err != nil {
			lastErr = err
			s.logger.Warn("撤单失败",
				zap.String("order_id", order.OrderID),
				zap.Error(err),
			)
			continue
		}
		cancelled++
	}

	if cancelled == 0 && lastErr != nil {
		return 0, lastErr
	}
	return cancelled, nil
}

// getWithRetry 对只读请求做有界退避重试；写操作绝不重试，避免重复下单。
func (s *Session) getWithRetry(ctx context.Context, requestPath string, out interface{}) error {
	delay := s.opts.Retry.MinDelay

	var err error
	for attempt := 1; attempt <= s.opts.Retry.MaxAttempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return classifyTransport(ctxErr)
		}

		err = s.do(ctx, http.MethodGet, requestPath, nil, out)
		if err == nil {
			if attempt > 1 {
				s.logger.Info("请求重试后成功",
					zap.String("path", requestPath),
					zap.Int("attempts", attempt),
				)
			}
			return nil
		}

		if !isRetryable(err) || attempt == s.opts.Retry.MaxAttempts {
			return err
		}

		s.logger.Warn("请求失败，等待重试",
			zap.String("path", requestPath),
			zap.Int("attempt", attempt),
			zap.Duration("wait", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return classifyTransport(ctx.Err())
		case <-timer.C:
		}

		delay *= 2
		if delay > s.opts.Retry.MaxDelay {
			delay = s.opts.Retry.MaxDelay
		}
	}
	return err
}

// do 执行一次签名请求。每次调用取新的毫秒时间戳参与签名，防止签名重放被拒。
func (s *Session) do(ctx context.Context, method, requestPath string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return domain.WrapError(domain.ErrKindNetwork, "序列化请求体失败", err)
		}
	}

	timestamp := time.Now().UnixMilli()
	req := s.http.R().
		SetContext(ctx).
		SetHeader("ACCESS-KEY", s.creds.APIKey).
		SetHeader("ACCESS-SIGN", sign(s.creds.APISecret, timestamp, method, requestPath, payload)).
		SetHeader("ACCESS-TIMESTAMP", strconv.FormatInt(timestamp, 10)).
		SetHeader("ACCESS-PASSPHRASE", s.creds.Passphrase).
		SetHeader("Content-Type", "application/json").
		SetHeader("locale", "en-US")
	if payload != nil {
		req.SetBody(payload)
	}

	resp, err := req.Execute(method, requestPath)
	if err != nil {
		return classifyTransport(err)
	}

	status := resp.StatusCode()
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return domain.WrapError(domain.ErrKindAuth, "签名或凭证被拒绝",
			&apiError{status: status, msg: string(resp.Body())})
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		if status < 200 || status >= 300 {
			return &apiError{status: status, msg: string(resp.Body())}
		}
		return errors.Join(err, &apiError{status: status, msg: "响应格式无效"})
	}

	if envelope.Code != codeOK {
		apiErr := &apiError{status: status, code: envelope.Code, msg: envelope.Msg}
		if isAuthCode(envelope.Code) {
			return domain.WrapError(domain.ErrKindAuth, "签名或凭证被拒绝", apiErr)
		}
		return apiErr
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return &apiError{status: status, msg: "响应数据解析失败: " + err.Error()}
		}
	}
	return nil
}

func parseSymbolRule(data productData) (SymbolRule, error) {
	priceScale, err := strconv.ParseInt(data.PriceScale, 10, 32)
	if err != nil {
		return SymbolRule{}, err
	}
	quantityScale, err := strconv.ParseInt(data.QuantityScale, 10, 32)
	if err != nil {
		return SymbolRule{}, err
	}

	minAmount := decimal.Zero
	if data.MinTradeAmount != "" {
		minAmount, err = decimal.NewFromString(data.MinTradeAmount)
		if err != nil {
			return SymbolRule{}, err
		}
	}

	return SymbolRule{
		Symbol:         data.Symbol,
		BaseCoin:       data.BaseCoin,
		QuoteCoin:      data.QuoteCoin,
		PriceScale:     int32(priceScale),
		QuantityScale:  int32(quantityScale),
		MinTradeAmount: minAmount,
	}, nil
}
