package execution

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"bitget-fleet/internal/bitget"
	"bitget-fleet/internal/domain"
	"bitget-fleet/internal/sizing"
)

// mockSession 以函数字段模拟交易所会话，未设置的方法返回无害默认值。
type mockSession struct {
	name string

	authenticateFn func(ctx context.Context) error
	placeOrderFn   func(ctx context.Context, symbol string, order domain.OrderRequest) (string, error)
	cancelAllFn    func(ctx context.Context, symbol string) (int, error)
}

func (m *mockSession) Authenticate(ctx context.Context) error {
	if m.authenticateFn != nil {
		return m.authenticateFn(ctx)
	}
	return nil
}

func (m *mockSession) GetTickerPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.NewFromInt(100), nil
}

func (m *mockSession) GetAvailableBalance(ctx context.Context, coin string) (decimal.Decimal, error) {
	return decimal.NewFromInt(10), nil
}

func (m *mockSession) GetSymbolRule(ctx context.Context, symbol string) (bitget.SymbolRule, error) {
	return bitget.SymbolRule{Symbol: symbol, PriceScale: 2, QuantityScale: 4}, nil
}

func (m *mockSession) PlaceOrder(ctx context.Context, symbol string, order domain.OrderRequest) (string, error) {
	if m.placeOrderFn != nil {
		return m.placeOrderFn(ctx, symbol, order)
	}
	return "oid-" + m.name, nil
}

func (m *mockSession) CancelAllOpenOrders(ctx context.Context, symbol string) (int, error) {
	if m.cancelAllFn != nil {
		return m.cancelAllFn(ctx, symbol)
	}
	return 0, nil
}

// mockSizer 记录调用次数的下单策略。
type mockSizer struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockSizer) BuildOrder(intent domain.TradeIntent, params domain.TradingParameters, state sizing.AccountState) (domain.OrderRequest, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.err != nil {
		return domain.OrderRequest{}, m.err
	}
	return domain.OrderRequest{
		AccountName:   state.AccountName,
		Side:          domain.OrderSideBuy,
		Kind:          domain.OrderKindMarket,
		Quantity:      decimal.NewFromInt(1),
		ClientOrderID: "cid-" + state.AccountName,
	}, nil
}

func (m *mockSizer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func fleet(names ...string) []domain.Credentials {
	creds := make([]domain.Credentials, 0, len(names))
	for _, name := range names {
		creds = append(creds, domain.Credentials{
			Name:       name,
			APIKey:     "k",
			APISecret:  "s",
			Passphrase: "p",
		})
	}
	return creds
}

func testParams() domain.TradingParameters {
	return domain.TradingParameters{
		Symbol:         "BTCUSDT_SPBL",
		BaseCoin:       "BTC",
		QuoteCoin:      "USDT",
		BuyQuoteAmount: decimal.NewFromInt(10),
		SellPercentage: decimal.NewFromInt(50),
	}
}

func TestExecutePreservesAccountOrder(t *testing.T) {
	factory := func(creds domain.Credentials) Session {
		return &mockSession{name: creds.Name}
	}
	orch := NewOrchestrator(factory, &mockSizer{}, Options{Concurrency: 3, Timeout: time.Second}, nil)

	accounts := fleet("a", "b", "c", "d", "e")
	outcomes, err := orch.Execute(context.Background(), domain.IntentBuy, testParams(), accounts)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(outcomes) != len(accounts) {
		t.Fatalf("outcomes = %d, want %d", len(outcomes), len(accounts))
	}
	for i, outcome := range outcomes {
		if outcome.AccountName != accounts[i].Name {
			t.Errorf("outcomes[%d] = %s, want %s", i, outcome.AccountName, accounts[i].Name)
		}
		if !outcome.Succeeded {
			t.Errorf("account %s failed: %s", outcome.AccountName, outcome.Message)
		}
		if want := "oid-" + accounts[i].Name; outcome.OrderID != want {
			t.Errorf("account %s order id = %s, want %s", outcome.AccountName, outcome.OrderID, want)
		}
	}
}

func TestExecuteIsolatesAccountFailure(t *testing.T) {
	factory := func(creds domain.Credentials) Session {
		session := &mockSession{name: creds.Name}
		if creds.Name == "b" {
			session.authenticateFn = func(ctx context.Context) error {
				return domain.NewError(domain.ErrKindAuth, "invalid signature")
			}
		}
		return session
	}
	orch := NewOrchestrator(factory, &mockSizer{}, Options{Concurrency: 1, Timeout: time.Second}, nil)

	outcomes, err := orch.Execute(context.Background(), domain.IntentBuy, testParams(), fleet("a", "b", "c"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !outcomes[0].Succeeded || !outcomes[2].Succeeded {
		t.Error("healthy accounts should not be affected by one failure")
	}
	if outcomes[1].Succeeded {
		t.Error("account b should have failed")
	}
	if outcomes[1].ErrKind != domain.ErrKindAuth {
		t.Errorf("account b error kind = %s, want %s", outcomes[1].ErrKind, domain.ErrKindAuth)
	}
}

func TestExecuteInvalidCredentialsIsFatal(t *testing.T) {
	factoryCalled := false
	factory := func(creds domain.Credentials) Session {
		factoryCalled = true
		return &mockSession{name: creds.Name}
	}
	orch := NewOrchestrator(factory, &mockSizer{}, Options{Timeout: time.Second}, nil)

	accounts := fleet("a", "b")
	accounts[1].IsSubAccount = true // 缺少 main_account_uid

	_, err := orch.Execute(context.Background(), domain.IntentBuy, testParams(), accounts)
	if err == nil {
		t.Fatal("expected fatal configuration error")
	}
	if factoryCalled {
		t.Error("no session should be created when validation fails")
	}
}

func TestExecuteCancelAllSkipsSizing(t *testing.T) {
	sizer := &mockSizer{}
	factory := func(creds domain.Credentials) Session {
		return &mockSession{
			name: creds.Name,
			cancelAllFn: func(ctx context.Context, symbol string) (int, error) {
				return 2, nil
			},
		}
	}
	orch := NewOrchestrator(factory, sizer, Options{Timeout: time.Second}, nil)

	outcomes, err := orch.Execute(context.Background(), domain.IntentCancelAll, testParams(), fleet("a", "b"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if sizer.callCount() != 0 {
		t.Errorf("sizer called %d times for cancel intent", sizer.callCount())
	}
	for _, outcome := range outcomes {
		if !outcome.Succeeded {
			t.Errorf("account %s failed: %s", outcome.AccountName, outcome.Message)
		}
		if outcome.CancelledCount != 2 {
			t.Errorf("account %s cancelled = %d, want 2", outcome.AccountName, outcome.CancelledCount)
		}
	}
}

func TestExecutePanicContainedToAccount(t *testing.T) {
	factory := func(creds domain.Credentials) Session {
		session := &mockSession{name: creds.Name}
		if creds.Name == "a" {
			session.authenticateFn = func(ctx context.Context) error {
				panic("boom")
			}
		}
		return session
	}
	orch := NewOrchestrator(factory, &mockSizer{}, Options{Timeout: time.Second}, nil)

	outcomes, err := orch.Execute(context.Background(), domain.IntentBuy, testParams(), fleet("a", "b"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcomes[0].Succeeded {
		t.Error("panicking account should be reported as failed")
	}
	if !outcomes[1].Succeeded {
		t.Errorf("account b should succeed, got: %s", outcomes[1].Message)
	}
}

func TestExecuteEmptyFleet(t *testing.T) {
	factory := func(creds domain.Credentials) Session {
		return &mockSession{name: creds.Name}
	}
	orch := NewOrchestrator(factory, &mockSizer{}, Options{}, nil)

	outcomes, err := orch.Execute(context.Background(), domain.IntentBuy, testParams(), nil)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(outcomes) != 0 {
		t.Fatalf("outcomes = %d, want 0", len(outcomes))
	}
}

func TestExecuteCancelledContextSkipsRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	factory := func(creds domain.Credentials) Session {
		t.Errorf("no session should start for account %s after cancellation", creds.Name)
		return &mockSession{name: creds.Name}
	}
	orch := NewOrchestrator(factory, &mockSizer{}, Options{Timeout: time.Second}, nil)

	outcomes, err := orch.Execute(ctx, domain.IntentBuy, testParams(), fleet("a", "b"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	for i, outcome := range outcomes {
		if outcome.Succeeded {
			t.Errorf("outcomes[%d] should be failed after cancellation", i)
		}
	}
}

func TestExecuteSlowAccountTimesOutOthersProceed(t *testing.T) {
	factory := func(creds domain.Credentials) Session {
		session := &mockSession{name: creds.Name}
		if creds.Name == "slow" {
			session.authenticateFn = func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}
		}
		return session
	}
	orch := NewOrchestrator(factory, &mockSizer{}, Options{Concurrency: 1, Timeout: 50 * time.Millisecond}, nil)

	outcomes, err := orch.Execute(context.Background(), domain.IntentBuy, testParams(), fleet("slow", "fast"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if outcomes[0].Succeeded {
		t.Error("slow account should be reported as failed")
	}
	if outcomes[0].ErrKind != domain.ErrKindTimeout {
		t.Errorf("slow account error kind = %s, want %s", outcomes[0].ErrKind, domain.ErrKindTimeout)
	}
	if !outcomes[1].Succeeded {
		t.Errorf("fast account should succeed after slow account timed out, got: %s", outcomes[1].Message)
	}
}

func TestExecuteSizerErrorMapsToKind(t *testing.T) {
	sizer := &mockSizer{err: domain.NewError(domain.ErrKindInsufficientBalance, fmt.Sprintf("%s 可用余额为零", "BTC"))}
	factory := func(creds domain.Credentials) Session {
		return &mockSession{name: creds.Name}
	}
	orch := NewOrchestrator(factory, sizer, Options{Timeout: time.Second}, nil)

	outcomes, err := orch.Execute(context.Background(), domain.IntentSell, testParams(), fleet("a"))
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if outcomes[0].Succeeded {
		t.Fatal("expected failure")
	}
	if outcomes[0].ErrKind != domain.ErrKindInsufficientBalance {
		t.Errorf("error kind = %s, want %s", outcomes[0].ErrKind, domain.ErrKindInsufficientBalance)
	}
}
