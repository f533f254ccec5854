package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/okian/fitscore/pkg/logger"
)

// DriverMemory selects the in-memory store.
const DriverMemory Driver = "memory"

// Config is the JSON connection blob, for example
// {"driver":"sqlite","dsn":"file:fitscore.db"}.
type Config struct {
	Driver Driver `json:"driver"`
	DSN    string `json:"dsn"`
}

// ParseConfig decodes the connection blob.
func ParseConfig(blob string) (Config, error) {
	blob = strings.TrimSpace(blob)
	if blob == "" {
		return Config{}, fmt.Errorf("%w: empty", ErrNotConfigured)
	}
	var c Config
	if err := json.Unmarshal([]byte(blob), &c); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	c.Driver = Driver(strings.ToLower(strings.TrimSpace(string(c.Driver))))
	switch c.Driver {
	case DriverMemory, DriverSQLite, DriverPostgres:
		return c, nil
	case "":
		return Config{}, fmt.Errorf("%w: driver is required", ErrInvalidConfig)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Driver)
	}
}

// Open builds the store described by blob. It never fails: a missing, malformed
// or unreachable backend yields Unconfigured and the cause is logged.
func Open(ctx context.Context, blob string, opts ...Option) Store {
	st := applyOptions(opts)

	cfg, err := ParseConfig(blob)
	if err != nil {
		st.log.Error(ctx, "store config unusable, persistence disabled", logger.Error(err))
		return Unconfigured{Reason: err.Error()}
	}

	switch cfg.Driver {
	case DriverMemory:
		st.log.Info(ctx, "using in-memory store")
		return NewMemoryStore(opts...)
	default:
		s, err := OpenSQL(ctx, cfg.Driver, cfg.DSN, opts...)
		if err != nil {
			st.log.Error(ctx, "store unavailable, persistence disabled",
				logger.String("driver", string(cfg.Driver)), logger.Error(err))
			return Unconfigured{Reason: err.Error()}
		}
		st.log.Info(ctx, "using sql store", logger.String("driver", string(cfg.Driver)))
		return s
	}
}
