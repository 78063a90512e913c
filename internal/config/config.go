package config

import (
	"flag"
	"os"
	"strconv"
)

// Config holds all runtime configuration.
type Config struct {
	// UI gateway
	UIPort int
	Host   string

	// Database
	MongoURI string

	// UI client fan-out
	SendBufferSize int

	// Chart output
	ChartWidth  int
	ChartHeight int

	// Logging
	LogLevel string
}

// Load reads flags with environment fallbacks.
func Load() *Config {
	c := &Config{}

	flag.IntVar(&c.UIPort, "port", envInt("TRADEDESK_PORT", 8200), "UI gateway port")
	flag.StringVar(&c.Host, "host", envStr("TRADEDESK_HOST", "127.0.0.1"), "Listen host")

	flag.StringVar(&c.MongoURI, "mongo-uri", envStr("MONGO_URI", "mongodb://localhost:27017/tradedesk"), "MongoDB connection URI")

	flag.IntVar(&c.SendBufferSize, "send-buffer", envInt("SEND_BUFFER", 256), "Per-client send buffer size")

	flag.IntVar(&c.ChartWidth, "chart-width", envInt("CHART_WIDTH", 800), "Chart image width in pixels")
	flag.IntVar(&c.ChartHeight, "chart-height", envInt("CHART_HEIGHT", 600), "Chart image height in pixels")

	flag.StringVar(&c.LogLevel, "log-level", envStr("TRADEDESK_LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	flag.Parse()

	return c
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
