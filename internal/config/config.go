package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/twenty-questions-backend/internal/engine"
)

type Config struct {
	Addr            string
	LogLevel        string
	LogDevelopment  bool
	AllowedOrigins  []string
	DatabaseURL     string
	ShutdownTimeout time.Duration
	Rules           engine.Rules
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// FromEnv builds a Config from lookup. Every malformed variable is reported.
func FromEnv(lookup func(string) (string, bool)) (Config, error) {
	p := parser{lookup: lookup}
	rules := engine.DefaultRules()

	cfg := Config{
		Addr:            p.str("ADDR", ":8080"),
		LogLevel:        p.str("LOG_LEVEL", "info"),
		LogDevelopment:  p.boolean("LOG_DEVELOPMENT", false),
		AllowedOrigins:  p.list("ALLOWED_ORIGINS"),
		DatabaseURL:     p.str("DATABASE_URL", ""),
		ShutdownTimeout: p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
		Rules: engine.Rules{
			MaxQuestions:                p.positive("QUESTION_BUDGET", rules.MaxQuestions),
			TurnTimeout:                 p.duration("TURN_TIMEOUT", rules.TurnTimeout),
			GracePeriod:                 p.duration("GRACE_PERIOD", rules.GracePeriod),
			GuessAttempts:               p.positive("GUESS_ATTEMPTS", rules.GuessAttempts),
			ExpelAfter:                  p.positive("EXPEL_AFTER", rules.ExpelAfter),
			PrematureGuessCostsQuestion: p.boolean("PREMATURE_GUESS_COSTS_QUESTION", rules.PrematureGuessCostsQuestion),
		},
	}
	if p.err != nil {
		return Config{}, fmt.Errorf("config: %w", p.err)
	}
	return cfg, nil
}

type parser struct {
	lookup func(string) (string, bool)
	err    error
}

func (p *parser) raw(key string) (string, bool) {
	v, ok := p.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (p *parser) str(key, def string) string {
	if v, ok := p.raw(key); ok {
		return v
	}
	return def
}

func (p *parser) list(key string) []string {
	v, ok := p.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (p *parser) boolean(key string, def bool) bool {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.err = multierr.Append(p.err, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}

func (p *parser) positive(key string, def int) int {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err == nil && n < 1 {
		err = fmt.Errorf("%d is not positive", n)
	}
	if err != nil {
		p.err = multierr.Append(p.err, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	v, ok := p.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err == nil && d <= 0 {
		err = fmt.Errorf("%s is not positive", d)
	}
	if err != nil {
		p.err = multierr.Append(p.err, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}
