package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// ErrDefaultWritten 表示配置文件不存在，已生成默认模板，操作员需填写后重新运行。
var ErrDefaultWritten = errors.New("config: 已生成默认配置文件")

// defaultConfigJSON 为首次运行生成的配置模板，字段与 Config 一一对应。
const defaultConfigJSON = `{
  "app": {
    "environment": "production"
  },
  "accounts": [
    {
      "name": "main",
      "api_key": "",
      "api_secret": "",
      "passphrase": "",
      "is_sub_account": false,
      "main_account_uid": ""
    },
    {
      "name": "sub-1",
      "api_key": "",
      "api_secret": "",
      "passphrase": "",
      "is_sub_account": true,
      "main_account_uid": ""
    }
  ],
  "trading": {
    "symbol": "BTCUSDT_SPBL",
    "base_coin": "BTC",
    "quote_coin": "USDT",
    "limit_price": "0",
    "buy_quote_amount": "0",
    "sell_percentage": "0"
  },
  "exchange": {
    "base_url": "https://api.bitget.com",
    "timeout": "15s",
    "retry": {
      "max_attempts": 3,
      "min_delay": "500ms",
      "max_delay": "5s"
    }
  },
  "execution": {
    "concurrency": 1,
    "timeout": "15s",
    "account_delay": "300ms"
  },
  "logging": {
    "level": "info",
    "encoding": "console",
    "development": false,
    "output_paths": ["stdout", "logs/trader.log"],
    "error_output_paths": ["stderr"]
  }
}
`

// Load 从指定路径读取 JSON 配置并完成校验。
// 文件不存在时写出默认模板并返回 ErrDefaultWritten。
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if wErr := WriteDefault(path); wErr != nil {
			return nil, wErr
		}
		return nil, fmt.Errorf("%w: %s", ErrDefaultWritten, path)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("FLEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	decodeHook := mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToDecimalHookFunc(),
	)
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook)); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// WriteDefault 在指定路径写出默认配置模板。
func WriteDefault(path string) error {
	if err := os.WriteFile(path, []byte(defaultConfigJSON), 0o600); err != nil {
		return fmt.Errorf("写入默认配置失败: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "production")

	v.SetDefault("exchange.base_url", "https://api.bitget.com")
	v.SetDefault("exchange.timeout", "15s")
	v.SetDefault("exchange.retry.max_attempts", 3)
	v.SetDefault("exchange.retry.min_delay", "500ms")
	v.SetDefault("exchange.retry.max_delay", "5s")

	v.SetDefault("execution.concurrency", 1)
	v.SetDefault("execution.timeout", "15s")
	v.SetDefault("execution.account_delay", "300ms")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.output_paths", []string{"stdout", "logs/trader.log"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

// stringToDecimalHookFunc 支持配置中以字符串或数字书写 decimal 金额字段。
func stringToDecimalHookFunc() mapstructure.DecodeHookFunc {
	decimalType := reflect.TypeOf(decimal.Decimal{})
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decimalType {
			return data, nil
		}
		switch value := data.(type) {
		case string:
			if value == "" {
				return decimal.Zero, nil
			}
			return decimal.NewFromString(value)
		case float64:
			return decimal.NewFromFloat(value), nil
		case int:
			return decimal.NewFromInt(int64(value)), nil
		case int64:
			return decimal.NewFromInt(value), nil
		default:
			return data, nil
		}
	}
}
