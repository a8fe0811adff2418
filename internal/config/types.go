package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"bitget-fleet/internal/domain"
)

// Config 聚合一次多账户交易运行所需的全部配置。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Accounts  []AccountConfig `mapstructure:"accounts"`
	Trading   TradingConfig   `mapstructure:"trading"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Execution ExecutionConfig `mapstructure:"execution"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AppConfig 应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// AccountConfig 单个账户的 API 凭证。
type AccountConfig struct {
	Name           string `mapstructure:"name"`
	APIKey         string `mapstructure:"api_key"`
	APISecret      string `mapstructure:"api_secret"`
	Passphrase     string `mapstructure:"passphrase"`
	IsSubAccount   bool   `mapstructure:"is_sub_account"`
	MainAccountUID string `mapstructure:"main_account_uid"`
}

// TradingConfig 本次运行全部账户共享的交易参数。
// 金额/比例字段允许留空，由 CLI 在执行前交互式补全。
type TradingConfig struct {
	Symbol         string          `mapstructure:"symbol"`
	BaseCoin       string          `mapstructure:"base_coin"`
	QuoteCoin      string          `mapstructure:"quote_coin"`
	LimitPrice     decimal.Decimal `mapstructure:"limit_price"`
	BuyQuoteAmount decimal.Decimal `mapstructure:"buy_quote_amount"`
	SellPercentage decimal.Decimal `mapstructure:"sell_percentage"`
}

// ExchangeConfig 交易所连接参数。
type ExchangeConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`
}

// RetryConfig 只读请求的重试参数。
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	MinDelay    time.Duration `mapstructure:"min_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// ExecutionConfig 多账户扇出参数。
type ExecutionConfig struct {
	Concurrency  int           `mapstructure:"concurrency"`
	Timeout      time.Duration `mapstructure:"timeout"`
	AccountDelay time.Duration `mapstructure:"account_delay"`
}

// LoggingConfig 日志输出参数。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 校验整份配置；任何一项不满足都视为配置不可用。
func (c *Config) Validate() error {
	var err error

	if len(c.Accounts) == 0 {
		err = multierr.Append(err, errors.New("accounts 至少需要配置一个账户"))
	}

	seen := make(map[string]struct{}, len(c.Accounts))
	for i, account := range c.Accounts {
		if vErr := account.Credentials().Validate(); vErr != nil {
			err = multierr.Append(err, fmt.Errorf("accounts[%d]: %w", i, vErr))
			continue
		}
		if _, dup := seen[account.Name]; dup {
			err = multierr.Append(err, fmt.Errorf("账户名称 %s 重复", account.Name))
		}
		seen[account.Name] = struct{}{}
	}

	if c.Trading.Symbol == "" {
		err = multierr.Append(err, errors.New("trading.symbol 不能为空"))
	}
	if c.Trading.BaseCoin == "" {
		err = multierr.Append(err, errors.New("trading.base_coin 不能为空"))
	}
	if c.Trading.QuoteCoin == "" {
		err = multierr.Append(err, errors.New("trading.quote_coin 不能为空"))
	}
	if c.Trading.LimitPrice.IsNegative() {
		err = multierr.Append(err, errors.New("trading.limit_price 不能为负"))
	}
	if c.Trading.BuyQuoteAmount.IsNegative() {
		err = multierr.Append(err, errors.New("trading.buy_quote_amount 不能为负"))
	}
	if !c.Trading.SellPercentage.IsZero() {
		if !c.Trading.SellPercentage.IsPositive() || c.Trading.SellPercentage.GreaterThan(decimal.NewFromInt(100)) {
			err = multierr.Append(err, errors.New("trading.sell_percentage 必须位于 (0, 100]"))
		}
	}

	if c.Exchange.BaseURL == "" {
		err = multierr.Append(err, errors.New("exchange.base_url 不能为空"))
	}
	if c.Exchange.Timeout <= 0 {
		err = multierr.Append(err, errors.New("exchange.timeout 必须大于 0"))
	}
	if c.Exchange.Retry.MaxAttempts <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry.max_attempts 必须大于 0"))
	}
	if c.Exchange.Retry.MinDelay <= 0 || c.Exchange.Retry.MaxDelay <= 0 {
		err = multierr.Append(err, errors.New("exchange.retry 延迟必须为正"))
	}
	if c.Exchange.Retry.MinDelay > c.Exchange.Retry.MaxDelay {
		err = multierr.Append(err, errors.New("exchange.retry.min_delay 不能大于 max_delay"))
	}

	if c.Execution.Concurrency <= 0 {
		err = multierr.Append(err, errors.New("execution.concurrency 必须大于 0"))
	}
	if c.Execution.Timeout <= 0 {
		err = multierr.Append(err, errors.New("execution.timeout 必须大于 0"))
	}
	if c.Execution.AccountDelay < 0 {
		err = multierr.Append(err, errors.New("execution.account_delay 不能为负"))
	}

	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少需要一个输出目标"))
	}
	if len(c.Logging.ErrorOutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.error_output_paths 至少需要一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}
	return nil
}

// Credentials 转换为领域凭证。
func (a AccountConfig) Credentials() domain.Credentials {
	return domain.Credentials{
		Name:           a.Name,
		APIKey:         a.APIKey,
		APISecret:      a.APISecret,
		Passphrase:     a.Passphrase,
		IsSubAccount:   a.IsSubAccount,
		MainAccountUID: a.MainAccountUID,
	}
}

// FleetCredentials 返回全部账户的领域凭证，顺序与配置文件一致。
func (c *Config) FleetCredentials() []domain.Credentials {
	creds := make([]domain.Credentials, 0, len(c.Accounts))
	for _, account := range c.Accounts {
		creds = append(creds, account.Credentials())
	}
	return creds
}

// TradingParameters 返回领域交易参数。
func (c *Config) TradingParameters() domain.TradingParameters {
	return domain.TradingParameters{
		Symbol:         c.Trading.Symbol,
		BaseCoin:       c.Trading.BaseCoin,
		QuoteCoin:      c.Trading.QuoteCoin,
		LimitPrice:     c.Trading.LimitPrice,
		BuyQuoteAmount: c.Trading.BuyQuoteAmount,
		SellPercentage: c.Trading.SellPercentage,
	}
}
