package pagenav

import (
	"slices"
	"time"

	"github.com/sirupsen/logrus"
)

// Config describes what an Engine pages through.
type Config struct {
	Source  Source    `yaml:"source" json:"source"`
	Limit   int       `yaml:"limit" json:"limit"`
	OrderBy Orderings `yaml:"order_by" json:"order_by"`
	Where   []Where   `yaml:"where" json:"where"`
}

// normalized fills in defaults: DefaultLimit, DefaultOrderings and no filters.
func (c Config) normalized() Config {
	c.Limit = NormalizeLimit(c.Limit)
	if len(c.OrderBy) == 0 {
		c.OrderBy = DefaultOrderings()
	} else {
		c.OrderBy = slices.Clone(c.OrderBy)
	}
	c.Where = slices.Clone(c.Where)

	return c
}

// DefaultCountCacheTTL is how long a shared count stays valid.
const DefaultCountCacheTTL = time.Minute

type options struct {
	logger        logrus.FieldLogger
	metrics       *Metrics
	countCache    CountCache
	countCacheTTL time.Duration
	lookahead     bool
	pseudo        bool
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger. Defaults to logrus.StandardLogger().
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records store round trips into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithCountCache shares exact counts through cache for ttl. A non-positive
// ttl means DefaultCountCacheTTL.
func WithCountCache(cache CountCache, ttl time.Duration) Option {
	return func(o *options) {
		o.countCache = cache
		o.countCacheTTL = ttl
		if ttl <= 0 {
			o.countCacheTTL = DefaultCountCacheTTL
		}
	}
}

// WithLookahead fetches one extra item per page so that HasMore is exact
// instead of inferred from a full page.
func WithLookahead() Option {
	return func(o *options) {
		o.lookahead = true
	}
}

// WithPseudoCursors continues pages by OFFSET instead of keyset cursors. Use
// it when the ordering has no unique column or no getters are available.
func WithPseudoCursors() Option {
	return func(o *options) {
		o.pseudo = true
	}
}
