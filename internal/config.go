package internal

import "time"

type Config struct {
	Host string `env:"HOST"`
	Port int    `env:"PORT,required=true"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`

	JWTSecret         string        `env:"JWT_SECRET,required=true"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`

	BufferSize           int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	DeliveryTimeout      time.Duration `env:"DELIVERY_TIMEOUT,required=true"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,required=true"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,required=true"`

	LimitMessages *int `env:"LIMIT_MESSAGES"`

	ProfanityFilterEnabled bool `env:"PROFANITY_FILTER_ENABLED,required=true"`
	HistoryFilterEnabled   bool `env:"HISTORY_FILTER_ENABLED,required=true"`

	// Client events accepted per connection per second, with a small burst.
	ClientEventRate  float64 `env:"CLIENT_EVENT_RATE,required=true"`
	ClientEventBurst int     `env:"CLIENT_EVENT_BURST,required=true"`
}
