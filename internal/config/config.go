package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/you/arb-core/internal/types"
	"gopkg.in/yaml.v3"
)

type VenueCfg struct {
	WsURL     string  `yaml:"ws_url"`
	RestURL   string  `yaml:"rest_url"`
	ApiKey    string  `yaml:"api_key"`
	ApiSecret string  `yaml:"api_secret"`
	FeeBps    float64 `yaml:"fee_bps"`
	LatencyMs float64 `yaml:"latency_ms"`

	// venue symbol -> canonical pair, e.g. BTCUSDT -> BTC-USD
	Symbols map[string]types.Pair `yaml:"symbols"`
}

type Config struct {
	Venues map[types.VenueID]VenueCfg `yaml:"venues"`

	Detector struct {
		MinProfitBps float64 `yaml:"min_profit_bps"`
		SlippageBps  float64 `yaml:"slippage_bps"`
		TTLSec       int     `yaml:"opportunity_ttl_sec"`
		StalenessMs  int     `yaml:"staleness_ms"`
		Workers      int     `yaml:"workers"`
	} `yaml:"detector"`

	Ledger struct {
		SweepIntervalMs int `yaml:"sweep_interval_ms"`
	} `yaml:"ledger"`

	Chain struct {
		RPCHTTP    string `yaml:"rpc_http"`
		WalletAddr string `yaml:"wallet_addr"`
	} `yaml:"chain"`

	Redis struct {
		Addr     string `yaml:"addr"`
		DB       int    `yaml:"db"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Stream   string `yaml:"stream"`
		LiveKey  string `yaml:"live_key"`
	} `yaml:"redis"`

	Metrics struct {
		ListenAddr string `yaml:"listen_addr"`
	} `yaml:"metrics"`
}

// Load reads the YAML config, applies defaults and overlays venue API
// credentials from the environment (a .env next to the binary is honored).
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.Detector.MinProfitBps == 0 {
		c.Detector.MinProfitBps = 20
	}
	if c.Detector.TTLSec == 0 {
		c.Detector.TTLSec = 5
	}
	if c.Detector.StalenessMs == 0 {
		c.Detector.StalenessMs = 2000
	}
	if c.Detector.Workers == 0 {
		c.Detector.Workers = 4
	}
	if c.Ledger.SweepIntervalMs == 0 {
		c.Ledger.SweepIntervalMs = 500
	}
	if c.Redis.Stream == "" {
		c.Redis.Stream = "opp:stream"
	}
	if c.Redis.LiveKey == "" {
		c.Redis.LiveKey = "opp:live"
	}

	_ = godotenv.Load()
	for id, v := range c.Venues {
		prefix := strings.ToUpper(string(id))
		if key := os.Getenv(prefix + "_API_KEY"); key != "" {
			v.ApiKey = key
		}
		if sec := os.Getenv(prefix + "_API_SECRET"); sec != "" {
			v.ApiSecret = sec
		}
		c.Venues[id] = v
	}

	for id, v := range c.Venues {
		if len(v.Symbols) == 0 {
			return nil, fmt.Errorf("venue %s: no symbols configured", id)
		}
	}
	return &c, nil
}

func (c *Config) OpportunityTTL() time.Duration {
	return time.Duration(c.Detector.TTLSec) * time.Second
}

func (c *Config) StalenessWindow() time.Duration {
	return time.Duration(c.Detector.StalenessMs) * time.Millisecond
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Ledger.SweepIntervalMs) * time.Millisecond
}

// VenueFees returns the per-venue taker fee table used by the detector.
func (c *Config) VenueFees() map[types.VenueID]float64 {
	out := make(map[types.VenueID]float64, len(c.Venues))
	for id, v := range c.Venues {
		out[id] = v.FeeBps
	}
	return out
}

// VenueLatencies returns the per-venue latency estimates used for ranking.
func (c *Config) VenueLatencies() map[types.VenueID]float64 {
	out := make(map[types.VenueID]float64, len(c.Venues))
	for id, v := range c.Venues {
		out[id] = v.LatencyMs
	}
	return out
}
