package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaiso/Feedactions/internal/catalog"
	"github.com/shaiso/Feedactions/internal/pool"
	"github.com/shaiso/Feedactions/internal/scheduler"
)

// ErrInvalid — конфигурация не прошла проверку.
var ErrInvalid = errors.New("invalid config")

// Значения по умолчанию для сервера.
const (
	DefaultHTTPAddr           = ":8080"
	DefaultProcesses          = 2
	DefaultMaxActiveOrPending = 6
	DefaultAllowAbortAfter    = 3600 * time.Second
	DefaultStatsSchedule      = "@every 1m"
	DefaultLivenessSchedule   = "@every 5s"
)

// Config — конфигурация сервиса.
type Config struct {
	HTTPAddr    string `yaml:"http_addr"`
	DatabaseURL string `yaml:"database_url"`
	RabbitMQURL string `yaml:"rabbitmq_url"`

	// Secret — ключ подписи ссылок. Пустой: случайный на каждый запуск.
	Secret string `yaml:"secret"`

	Pool     PoolConfig     `yaml:"pool"`
	Schedule ScheduleConfig `yaml:"schedule"`

	// Actions — каталог действий. Пустой: встроенный каталог.
	Actions []catalog.Definition `yaml:"actions"`
}

// PoolConfig — параметры пула action.
type PoolConfig struct {
	Processes          int      `yaml:"processes"`
	MaxActiveOrPending int      `yaml:"max_active_or_pending"`
	AllowAbortAfter    Duration `yaml:"allow_abort_after"`
}

// ScheduleConfig — расписания периодических задач (формат robfig/cron).
type ScheduleConfig struct {
	Stats    string `yaml:"stats"`
	Liveness string `yaml:"liveness"`
}

// Default возвращает конфигурацию по умолчанию.
func Default() Config {
	return Config{
		HTTPAddr: DefaultHTTPAddr,
		Pool: PoolConfig{
			Processes:          DefaultProcesses,
			MaxActiveOrPending: DefaultMaxActiveOrPending,
			AllowAbortAfter:    Duration(DefaultAllowAbortAfter),
		},
		Schedule: ScheduleConfig{
			Stats:    DefaultStatsSchedule,
			Liveness: DefaultLivenessSchedule,
		},
	}
}

// Load читает конфигурацию из path (может быть пустым) и окружения.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv переопределяет поля из переменных окружения.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"HTTP_ADDR":     &c.HTTPAddr,
		"DB_URL":        &c.DatabaseURL,
		"RABBITMQ_URL":  &c.RabbitMQURL,
		"ACTION_SECRET": &c.Secret,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"POOL_PROCESSES":             &c.Pool.Processes,
		"POOL_MAX_ACTIVE_OR_PENDING": &c.Pool.MaxActiveOrPending,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not an integer", ErrInvalid, key, v)
		}
		*dst = n
	}

	if v, ok := lookup("POOL_ALLOW_ABORT_AFTER"); ok && v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: POOL_ALLOW_ABORT_AFTER: %w", ErrInvalid, err)
		}
		c.Pool.AllowAbortAfter = Duration(d)
	}
	return nil
}

// Validate проверяет конфигурацию.
func (c Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("%w: http_addr is required", ErrInvalid)
	}

	if err := c.ToPool().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	for name, spec := range map[string]string{"stats": c.Schedule.Stats, "liveness": c.Schedule.Liveness} {
		if spec == "" {
			continue
		}
		if err := scheduler.ValidateSpec(spec); err != nil {
			return fmt.Errorf("%w: schedule.%s: %w", ErrInvalid, name, err)
		}
	}

	seen := make(map[string]bool, len(c.Actions))
	for _, def := range c.Actions {
		if err := def.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		if seen[def.Name] {
			return fmt.Errorf("%w: duplicate action %q", ErrInvalid, def.Name)
		}
		seen[def.Name] = true
	}
	return nil
}

// ToPool возвращает параметры пула. Logger, Listener и команду
// worker'а заполняет вызывающий.
func (c Config) ToPool() pool.Config {
	pc := pool.DefaultConfig()
	pc.Processes = c.Pool.Processes
	pc.MaxActiveOrPending = c.Pool.MaxActiveOrPending
	pc.AllowAbortAfter = c.Pool.AllowAbortAfter.Std()
	return pc
}

// CatalogDefinitions возвращает каталог действий с учётом умолчаний.
func (c Config) CatalogDefinitions() []catalog.Definition {
	if len(c.Actions) == 0 {
		return catalog.Defaults()
	}
	return c.Actions
}
