package client

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config 客户端运行配置
// 优先级：命令行 > 环境变量 > .env 文件 > 默认值
type Config struct {
	ServerURL   string `json:"serverUrl"`
	TickRate    int    `json:"tickRate"`
	LogFile     string `json:"logFile"`
	LogLevel    string `json:"logLevel"`
	SendQueue   int    `json:"sendQueue"`
	DebugAddr   string `json:"debugAddr,omitempty"`
	Headless    bool   `json:"headless"`
	AutoConfirm bool   `json:"autoConfirm"`
}

func DefaultConfig() Config {
	return Config{
		ServerURL: "ws://localhost:8080",
		TickRate:  TicksPerSecond,
		LogFile:   "client.log",
		LogLevel:  "debug",
		SendQueue: DefaultSendQueue,
	}
}

// LoadConfig 读取 envFile（不存在则忽略）、环境变量和命令行参数
func LoadConfig(envFile string, args []string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := DefaultConfig()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	fsFlags := flag.NewFlagSet("tagarena", flag.ContinueOnError)
	fsFlags.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "game server websocket url, e.g. ws://localhost:8080")
	fsFlags.IntVar(&cfg.TickRate, "tps", cfg.TickRate, "presentation loop ticks per second")
	fsFlags.StringVar(&cfg.LogFile, "log", cfg.LogFile, "log file path")
	fsFlags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	fsFlags.IntVar(&cfg.SendQueue, "send-queue", cfg.SendQueue, "outbound frame queue capacity")
	fsFlags.StringVar(&cfg.DebugAddr, "debug-addr", cfg.DebugAddr, "debug http listen address, empty to disable")
	fsFlags.BoolVar(&cfg.Headless, "headless", cfg.Headless, "run without a window")
	fsFlags.BoolVar(&cfg.AutoConfirm, "auto-confirm", cfg.AutoConfirm, "headless: queue for a match automatically")
	if err := fsFlags.Parse(args); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("TAG_SERVER_URL"); ok {
		c.ServerURL = v
	}
	if v, ok := os.LookupEnv("TAG_LOG_FILE"); ok {
		c.LogFile = v
	}
	if v, ok := os.LookupEnv("TAG_LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("TAG_DEBUG_ADDR"); ok {
		c.DebugAddr = v
	}
	var err error
	if c.TickRate, err = envInt("TAG_TPS", c.TickRate); err != nil {
		return err
	}
	if c.SendQueue, err = envInt("TAG_SEND_QUEUE", c.SendQueue); err != nil {
		return err
	}
	if c.Headless, err = envBool("TAG_HEADLESS", c.Headless); err != nil {
		return err
	}
	if c.AutoConfirm, err = envBool("TAG_AUTO_CONFIRM", c.AutoConfirm); err != nil {
		return err
	}
	return nil
}

func (c Config) Validate() error {
	if !strings.HasPrefix(c.ServerURL, "ws://") && !strings.HasPrefix(c.ServerURL, "wss://") {
		return fmt.Errorf("server url %q: want ws:// or wss://", c.ServerURL)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", c.TickRate)
	}
	if c.SendQueue <= 0 {
		return fmt.Errorf("send queue must be positive, got %d", c.SendQueue)
	}
	return nil
}

func envInt(key string, def int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}
