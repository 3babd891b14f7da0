package engine

import "fmt"

// Config holds the solver settings
type Config struct {
	// MaxRun is the longest permitted run of moves in one direction
	MaxRun int `json:"max_run"`
	// MinRun is the shortest run allowed before turning or stopping at the goal
	MinRun int `json:"min_run"`
	// StartDirections are the headings seeded away from the start corner
	StartDirections []Direction `json:"start_directions"`
	// OriginCostCounted adds the start cell's own cost to the total
	OriginCostCounted bool `json:"origin_cost_counted"`
}

// DefaultConfig returns the canonical settings: max run 3, no minimum run,
// seeded right and down, start cell free.
func DefaultConfig() Config {
	return Config{
		MaxRun:          DefaultMaxRun,
		MinRun:          DefaultMinRun,
		StartDirections: []Direction{Right, Down},
	}
}

// Option modifies a Config
type Option func(*Config)

// WithMaxRun sets the longest permitted run
func WithMaxRun(maxRun int) Option {
	return func(c *Config) { c.MaxRun = maxRun }
}

// WithMinRun sets the shortest run allowed before a turn
func WithMinRun(minRun int) Option {
	return func(c *Config) { c.MinRun = minRun }
}

// WithStartDirections replaces the seeded headings
func WithStartDirections(dirs ...Direction) Option {
	return func(c *Config) {
		c.StartDirections = append([]Direction(nil), dirs...)
	}
}

// WithOriginCost controls whether the start cell's cost is counted
func WithOriginCost(counted bool) Option {
	return func(c *Config) { c.OriginCostCounted = counted }
}

// WithConfig replaces every setting at once
func WithConfig(cfg Config) Option {
	return func(c *Config) {
		*c = cfg
		c.StartDirections = append([]Direction(nil), cfg.StartDirections...)
	}
}

// NewConfig applies opts on top of DefaultConfig
func NewConfig(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Validate checks the configuration before any search work starts.
// A MaxRun of zero is accepted: it forbids every move, so only a 1x1 grid
// is solvable and larger grids report NoPathError.
func (c Config) Validate() error {
	if c.MaxRun < 0 {
		return &ConfigError{Field: "max_run", Reason: fmt.Sprintf("must be >= 0, got %d", c.MaxRun)}
	}
	if c.MinRun < 1 {
		return &ConfigError{Field: "min_run", Reason: fmt.Sprintf("must be >= 1, got %d", c.MinRun)}
	}
	if c.MaxRun > 0 && c.MinRun > c.MaxRun {
		return &ConfigError{Field: "min_run", Reason: fmt.Sprintf("(%d) must not exceed max_run (%d)", c.MinRun, c.MaxRun)}
	}
	if len(c.StartDirections) == 0 {
		return &ConfigError{Field: "start_directions", Reason: "must name at least one direction"}
	}

	seen := make(map[Direction]bool, len(c.StartDirections))
	for _, d := range c.StartDirections {
		if !d.Valid() {
			return &ConfigError{Field: "start_directions", Reason: fmt.Sprintf("contains invalid direction %d", uint8(d))}
		}
		if seen[d] {
			return &ConfigError{Field: "start_directions", Reason: fmt.Sprintf("lists %s twice", d)}
		}
		seen[d] = true
	}

	return nil
}
