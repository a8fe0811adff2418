package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"bitget-fleet/internal/bitget"
	"bitget-fleet/internal/config"
	"bitget-fleet/internal/domain"
	"bitget-fleet/internal/execution"
	"bitget-fleet/internal/sizing"
)

// App 为交互式多账户交易终端：读取操作员意图，扇出执行并打印逐账户报告。
type App struct {
	cfg          *config.Config
	logger       *zap.Logger
	orchestrator *execution.Orchestrator
	factory      execution.SessionFactory
	in           *bufio.Reader
	out          io.Writer
}

// New 创建应用实例并完成各组件装配。
func New(cfg *config.Config, logger *zap.Logger) *App {
	factory := func(creds domain.Credentials) execution.Session {
		return bitget.NewSession(creds, bitget.Options{
			BaseURL: cfg.Exchange.BaseURL,
			Timeout: cfg.Exchange.Timeout,
			Retry: bitget.RetryOptions{
				MaxAttempts: cfg.Exchange.Retry.MaxAttempts,
				MinDelay:    cfg.Exchange.Retry.MinDelay,
				MaxDelay:    cfg.Exchange.Retry.MaxDelay,
			},
		}, logger)
	}

	orchestrator := execution.NewOrchestrator(
		factory,
		sizing.NewPolicy(logger),
		execution.Options{
			Concurrency:  cfg.Execution.Concurrency,
			Timeout:      cfg.Execution.Timeout,
			AccountDelay: cfg.Execution.AccountDelay,
		},
		logger,
	)

	return &App{
		cfg:          cfg,
		logger:       logger,
		orchestrator: orchestrator,
		factory:      factory,
		in:           bufio.NewReader(os.Stdin),
		out:          os.Stdout,
	}
}

// Run 进入交互主循环，直到操作员退出或上下文被取消。
func (a *App) Run(ctx context.Context) error {
	fmt.Fprintf(a.out, "bitget-fleet: %d accounts, symbol %s\n", len(a.cfg.Accounts), a.cfg.Trading.Symbol)

	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "1. BUY")
		fmt.Fprintln(a.out, "2. SELL")
		fmt.Fprintln(a.out, "3. CANCEL ALL OPEN ORDERS")
		fmt.Fprintln(a.out, "4. EXIT")

		choice, err := a.readLine("choice> ")
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		var intent domain.TradeIntent
		switch choice {
		case "1":
			intent = domain.IntentBuy
		case "2":
			intent = domain.IntentSell
		case "3":
			intent = domain.IntentCancelAll
		case "4", "q", "exit":
			return nil
		default:
			fmt.Fprintf(a.out, "unknown choice: %s\n", choice)
			continue
		}

		params, err := a.completeParameters(ctx, intent)
		if err != nil {
			fmt.Fprintf(a.out, "invalid input: %v\n", err)
			continue
		}

		outcomes, err := a.orchestrator.Execute(ctx, intent, params, a.cfg.FleetCredentials())
		if err != nil {
			return err
		}

		a.printReport(intent, outcomes)
	}
}

// completeParameters 以配置为基础，交互式补全当前意图缺失的参数。
func (a *App) completeParameters(ctx context.Context, intent domain.TradeIntent) (domain.TradingParameters, error) {
	params := a.cfg.TradingParameters()
	if intent == domain.IntentCancelAll {
		return params, nil
	}

	hint := a.priceHint(ctx, params.Symbol)
	if hint != "" {
		fmt.Fprintf(a.out, "current price %s: %s\n", params.Symbol, hint)
	}

	switch intent {
	case domain.IntentBuy:
		if !params.BuyQuoteAmount.IsPositive() {
			amount, err := a.readDecimal(fmt.Sprintf("buy amount (%s)> ", params.QuoteCoin))
			if err != nil {
				return params, err
			}
			params.BuyQuoteAmount = amount
		}
	case domain.IntentSell:
		if !params.SellPercentage.IsPositive() {
			pct, err := a.readDecimal("sell percentage (0-100]> ")
			if err != nil {
				return params, err
			}
			params.SellPercentage = pct
		}
	}

	if !params.HasLimitPrice() {
		price, err := a.readDecimal("limit price (empty = market)> ")
		if err != nil {
			return params, err
		}
		params.LimitPrice = price
	}

	return params, nil
}

// priceHint 用第一个账户探测最新成交价，仅用于提示，失败不阻断流程。
func (a *App) priceHint(ctx context.Context, symbol string) string {
	if len(a.cfg.Accounts) == 0 {
		return ""
	}
	probe := a.factory(a.cfg.Accounts[0].Credentials())
	price, err := probe.GetTickerPrice(ctx, symbol)
	if err != nil {
		a.logger.Debug("获取参考价失败", zap.Error(err))
		return ""
	}
	return price.String()
}

func (a *App) printReport(intent domain.TradeIntent, outcomes []domain.ExecutionOutcome) {
	report := execution.Summarize(outcomes)

	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "==== %s report ====\n", intent)
	for _, line := range report.Lines {
		fmt.Fprintln(a.out, line)
	}
	fmt.Fprintf(a.out, "==== total %d, succeeded %d, failed %d ====\n",
		report.Total, report.Succeeded, report.Failed)

	a.logger.Info("执行完成",
		zap.String("intent", string(intent)),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
	)
}

func (a *App) readLine(prompt string) (string, error) {
	fmt.Fprint(a.out, prompt)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readDecimal 读取一个十进制数；空输入视为 0。
func (a *App) readDecimal(prompt string) (decimal.Decimal, error) {
	line, err := a.readLine(prompt)
	if err != nil {
		return decimal.Zero, err
	}
	if line == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(line)
	if err != nil {
		return decimal.Zero, fmt.Errorf("不是有效数字: %s", line)
	}
	if value.IsNegative() {
		return decimal.Zero, fmt.Errorf("不允许负数: %s", line)
	}
	return value, nil
}
