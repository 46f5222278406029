package config

import (
	"fmt"
	"time"

	coreconfig "github.com/go-core-fx/config"
)

type Config struct {
	SalesBaseURL   string        `koanf:"sales_base_url"`
	CatalogBaseURL string        `koanf:"catalog_base_url"`
	APIToken       string        `koanf:"api_token"`
	StoreID        string        `koanf:"store_id"`
	RegisterID     string        `koanf:"register_id"`
	TaxRate        float64       `koanf:"tax_rate"`
	ProductsPerRow int           `koanf:"products_per_row"`
	RedisAddr      string        `koanf:"redis_addr"`
	Timeout        time.Duration `koanf:"timeout"`
	LogFile        string        `koanf:"log_file"`
	Debug          bool          `koanf:"debug"`
}

func New() (Config, error) {
	cfg := Config{
		TaxRate:        0.10,
		ProductsPerRow: 4,
		Timeout:        20 * time.Second,
		LogFile:        "./pos-terminal.log",
		Debug:          false,
	}

	if err := coreconfig.Load(&cfg); err != nil {
		return Config{}, fmt.Errorf("loading config: %w", err)
	}

	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return Config{}, fmt.Errorf("tax_rate must be in [0, 1), got %v", cfg.TaxRate)
	}
	if cfg.ProductsPerRow < 1 {
		return Config{}, fmt.Errorf("products_per_row must be at least 1, got %d", cfg.ProductsPerRow)
	}

	return cfg, nil
}
