// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/kkyr/fig"
)

const (
	configEnv = "TRONCON"

	DefaultEndpoint  = "https://overpass-api.de/api/interpreter"
	DefaultCacheFile = "cached_requests/raw_cache.zst"
	DefaultFormat    = FormatText

	DefaultPointTpl = "point {{.Index}} at ({{coord .Point}}) is number {{.Rank}} on {{.Street}} " +
		"between {{.Begin}} and {{.End}}, {{.City}}"
	DefaultPairTpl = "points ({{coord .Point}}) and ({{coord .PointB}}) lie on {{.Street}} " +
		"between {{.Begin}} and {{.End}}, {{.City}}"
)

// Output formats
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Bracket holds the adaptive radius search settings for one kind of lookup. Radii are in meters.
type Bracket struct {
	InitialUpperBound      float64 `fig:"initial_upper_bound_radius"`
	LowerBound             float64 `fig:"lower_bound_radius"`
	StagnationBeforeExpand uint    `fig:"iter_before_increased_radius" default:"10"`
	MaxIterations          uint    `fig:"max_iterations" default:"100"`
}

// Config represents the application's configuration structure.
type Config struct {
	LogLevel slog.Level `fig:"loglevel" default:"0"`

	API struct {
		Endpoint       string        `fig:"overpass_url"`
		Timeout        time.Duration `fig:"timeout" default:"800s"`
		MaxAttempts    uint          `fig:"max_attempts" default:"5"`
		InitialBackoff time.Duration `fig:"initial_backoff" default:"500ms"`
		MaxBackoff     time.Duration `fig:"max_backoff" default:"30s"`
	} `fig:"api"`

	Cache struct {
		File          string        `fig:"file"`
		FlushInterval time.Duration `fig:"flush_interval"`
	} `fig:"cache"`

	NearestCity   Bracket `fig:"nearest_city"`
	NearestStreet Bracket `fig:"nearest_street"`

	Expansion struct {
		// Allowed values: 1 to 16
		Concurrency uint          `fig:"concurrency" default:"2"`
		Delay       time.Duration `fig:"delay" default:"100ms"`
	} `fig:"expansion"`

	Metrics struct {
		Listen string `fig:"listen"`
	} `fig:"metrics"`

	Output struct {
		// Allowed values: text, table, json
		Format    string `fig:"format"`
		Templates struct {
			Point string `fig:"point"`
			Pair  string `fig:"pair"`
		} `fig:"templates"`
	} `fig:"output"`
}

func NewFromFile(path, file string) (*Config, error) {
	conf := new(Config)
	_, err := os.Stat(filepath.Join(path, file))
	if err != nil {
		return conf, fmt.Errorf("failed to read Config: %w", err)
	}
	if err = fig.Load(conf, fig.Dirs(path), fig.File(file), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func New() (*Config, error) {
	conf := new(Config)
	if err := fig.Load(conf, fig.AllowNoFile(), fig.UseEnv(configEnv)); err != nil {
		return conf, fmt.Errorf("failed to load Config: %w", err)
	}

	return conf, conf.Validate()
}

func (c *Config) Validate() error {
	if c.API.Endpoint == "" {
		c.API.Endpoint = DefaultEndpoint
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("invalid API timeout: %s", c.API.Timeout)
	}
	if c.API.MaxAttempts < 1 {
		return fmt.Errorf("invalid API max attempts: %d", c.API.MaxAttempts)
	}
	if c.Cache.File == "" {
		c.Cache.File = DefaultCacheFile
	}
	if c.Cache.FlushInterval < 0 {
		return fmt.Errorf("invalid cache flush interval: %s", c.Cache.FlushInterval)
	}

	// The distilled defaults of the nearest city/street lookups differ, so they can't
	// live in the shared struct tags.
	if c.NearestCity.InitialUpperBound == 0 {
		c.NearestCity.InitialUpperBound = 10000
	}
	if c.NearestStreet.InitialUpperBound == 0 {
		c.NearestStreet.InitialUpperBound = 100
	}
	if err := c.NearestCity.validate("nearest city"); err != nil {
		return err
	}
	if err := c.NearestStreet.validate("nearest street"); err != nil {
		return err
	}

	if c.Expansion.Concurrency < 1 || c.Expansion.Concurrency > 16 {
		return fmt.Errorf("invalid expansion concurrency: %d", c.Expansion.Concurrency)
	}
	if c.Expansion.Delay < 0 {
		return fmt.Errorf("invalid expansion delay: %s", c.Expansion.Delay)
	}

	if c.Output.Format == "" {
		c.Output.Format = DefaultFormat
	}
	switch c.Output.Format {
	case FormatText, FormatTable, FormatJSON:
	default:
		return fmt.Errorf("invalid output format: %s", c.Output.Format)
	}
	if c.Output.Templates.Point == "" {
		c.Output.Templates.Point = DefaultPointTpl
	}
	if c.Output.Templates.Pair == "" {
		c.Output.Templates.Pair = DefaultPairTpl
	}

	return nil
}

func (b Bracket) validate(name string) error {
	if b.LowerBound < 0 {
		return fmt.Errorf("invalid %s lower bound radius: %f", name, b.LowerBound)
	}
	if b.InitialUpperBound <= b.LowerBound {
		return fmt.Errorf("invalid %s upper bound radius: %f must exceed lower bound %f", name,
			b.InitialUpperBound, b.LowerBound)
	}
	if b.StagnationBeforeExpand < 1 {
		return fmt.Errorf("invalid %s stagnation threshold: %d", name, b.StagnationBeforeExpand)
	}
	if b.MaxIterations < 1 {
		return fmt.Errorf("invalid %s max iterations: %d", name, b.MaxIterations)
	}
	return nil
}
