package config

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"
	_ "time/tzdata"

	jsoniter "github.com/json-iterator/go"
	"github.com/toolkits/pkg/file"

	"flashcat.cloud/cpudash/pkg/aws"
	"flashcat.cloud/cpudash/pkg/cfg"
)

const (
	DefaultIPEnv = "DEFAULT_IP"

	defaultHours    = 3
	defaultInterval = 600
)

type Global struct {
	PrintConfigs bool `toml:"print_configs"`
}

type Log struct {
	FileName   string `toml:"file_name"`
	MaxSize    int    `toml:"max_size"`
	MaxAge     int    `toml:"max_age"`
	MaxBackups int    `toml:"max_backups"`
	LocalTime  bool   `toml:"local_time"`
	Compress   bool   `toml:"compress"`
}

type HTTP struct {
	Address       string `toml:"address"`
	PrintAccess   bool   `toml:"print_access"`
	RunMode       string `toml:"run_mode"`
	EnableMetrics bool   `toml:"enable_metrics"`
	CertFile      string `toml:"cert_file"`
	KeyFile       string `toml:"key_file"`
	ReadTimeout   int    `toml:"read_timeout"`
	WriteTimeout  int    `toml:"write_timeout"`
	IdleTimeout   int    `toml:"idle_timeout"`

	// peers allowed to set X-Forwarded-For / X-Real-IP, empty trusts none
	TrustedProxies []string `toml:"trusted_proxies"`
}

// Dashboard holds the query defaults of /api/cpu and the page served on /.
type Dashboard struct {
	DefaultIP       string `toml:"default_ip"`
	DefaultHours    int    `toml:"default_hours"`
	DefaultInterval int    `toml:"default_interval"`
	Timezone        string `toml:"timezone"`
	IndexFile       string `toml:"index_file"`

	location *time.Location
}

func (d *Dashboard) Location() *time.Location {
	if d.location == nil {
		return time.UTC
	}
	return d.location
}

type RateLimit struct {
	Enable        bool     `toml:"enable" default:"true"`
	DefaultLimits []string `toml:"default_limits"`
	CPULimits     []string `toml:"cpu_limits"`
	Store         string   `toml:"store"`
	Prefix        string   `toml:"prefix"`

	RedisAddress  string `toml:"redis_address"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

type Inventory struct {
	Mode     string   `toml:"mode"`
	CacheTTL Duration `toml:"cache_ttl"`
}

type AWS struct {
	aws.CredentialConfig

	Timeout Duration `toml:"timeout"`
	HTTPProxy
}

type ConfigType struct {
	// from console args
	ConfigDir string `toml:"-"`
	DebugMode bool   `toml:"-"`

	// from config.toml
	Global    Global    `toml:"global"`
	Log       Log       `toml:"log"`
	HTTP      HTTP      `toml:"http"`
	Dashboard Dashboard `toml:"dashboard"`
	RateLimit RateLimit `toml:"ratelimit"`
	Inventory Inventory `toml:"inventory"`
	AWS       AWS       `toml:"aws"`
}

var Config *ConfigType

func InitConfig(configDir string, debugMode bool) error {
	configFile := path.Join(configDir, "config.toml")
	if !file.IsExist(configFile) {
		return fmt.Errorf("configuration file(%s) not found", configFile)
	}

	c := &ConfigType{
		ConfigDir: configDir,
		DebugMode: debugMode,
	}

	if err := cfg.LoadConfigs(configDir, c); err != nil {
		return fmt.Errorf("failed to load configs of dir: %s err:%s", configDir, err)
	}

	if err := c.fillDefaults(); err != nil {
		return err
	}

	Config = c

	if c.Global.PrintConfigs {
		json := jsoniter.ConfigCompatibleWithStandardLibrary
		bs, err := json.MarshalIndent(c, "", "    ")
		if err != nil {
			fmt.Println(err)
		} else {
			fmt.Println(string(bs))
		}
	}

	return nil
}

func (c *ConfigType) fillDefaults() error {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":5000"
	}
	if c.HTTP.RunMode == "" {
		c.HTTP.RunMode = "release"
	}

	if v := os.Getenv(DefaultIPEnv); v != "" {
		c.Dashboard.DefaultIP = v
	}
	if c.Dashboard.DefaultHours <= 0 {
		c.Dashboard.DefaultHours = defaultHours
	}
	if c.Dashboard.DefaultInterval <= 0 {
		c.Dashboard.DefaultInterval = defaultInterval
	}
	if c.Dashboard.Timezone != "" {
		loc, err := time.LoadLocation(c.Dashboard.Timezone)
		if err != nil {
			return fmt.Errorf("invalid dashboard timezone %q: %v", c.Dashboard.Timezone, err)
		}
		c.Dashboard.location = loc
	}

	if len(c.RateLimit.DefaultLimits) == 0 {
		c.RateLimit.DefaultLimits = []string{"100-H", "10-M"}
	}
	if len(c.RateLimit.CPULimits) == 0 {
		c.RateLimit.CPULimits = []string{"10-M"}
	}
	c.RateLimit.Store = strings.ToLower(strings.TrimSpace(c.RateLimit.Store))
	if c.RateLimit.Store == "" {
		c.RateLimit.Store = "memory"
	}
	if c.RateLimit.Prefix == "" {
		c.RateLimit.Prefix = "cpudash"
	}

	c.Inventory.Mode = strings.ToLower(strings.TrimSpace(c.Inventory.Mode))
	if c.Inventory.Mode == "" {
		c.Inventory.Mode = "filter"
	}
	if c.Inventory.Mode != "filter" && c.Inventory.Mode != "scan" {
		return fmt.Errorf("invalid inventory mode %q, want filter or scan", c.Inventory.Mode)
	}

	if c.AWS.Timeout == 0 {
		c.AWS.Timeout = Duration(10 * time.Second)
	}

	return nil
}
