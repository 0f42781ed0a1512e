package service

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/vnykmshr/ratezone/pkg/common/errors"
	"github.com/vnykmshr/ratezone/pkg/ratelimit/zone"
)

// tomlFile is the TOML representation of a zone file:
//
//	shards = 64
//	reporter = "@every 1m"
//	zones = ["zone=api rate=10r/s burst=20"]
//
//	[metrics]
//	enabled = true
//
//	[[zone]]
//	name = "login"
//	rate = "5r/m"
//	burst = 3
//	nodelay = true
type tomlFile struct {
	Shards   int        `toml:"shards"`
	Reporter string     `toml:"reporter"`
	Zones    []string   `toml:"zones"`
	Zone     []tomlZone `toml:"zone"`
	Metrics  struct {
		Enabled   bool              `toml:"enabled"`
		Namespace string            `toml:"namespace"`
		Labels    map[string]string `toml:"labels"`
	} `toml:"metrics"`
}

type tomlZone struct {
	Name    string `toml:"name"`
	Rate    string `toml:"rate"`
	Burst   *int   `toml:"burst"`
	NoDelay bool   `toml:"nodelay"`
}

// LoadFile reads a TOML zone file and returns the Config it describes.
// Delay, Logger and Metrics.Registry are left for the caller to set.
func LoadFile(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.NewOperationError(module, "LoadFile", err).WithContext(path)
	}
	return ParseFile(string(content))
}

// ParseFile decodes TOML zone file content. Zones given as tables are
// converted to directives and appended after the zones list. Unknown keys
// and invalid zones are configuration errors.
func ParseFile(content string) (Config, error) {
	var raw tomlFile
	meta, err := toml.Decode(content, &raw)
	if err != nil {
		return Config{}, errors.NewOperationError(module, "ParseFile", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, errors.NewValidationError(module, "file", strings.Join(keys, ", "), "unknown keys").
			WithHint("valid keys are shards, reporter, zones, metrics and zone")
	}

	config := Config{
		Shards:   raw.Shards,
		Reporter: raw.Reporter,
		Zones:    append([]string(nil), raw.Zones...),
	}
	config.Metrics.Enabled = raw.Metrics.Enabled
	config.Metrics.Namespace = raw.Metrics.Namespace
	config.Metrics.Labels = raw.Metrics.Labels

	for _, tz := range raw.Zone {
		z, err := tz.build()
		if err != nil {
			return Config{}, err
		}
		config.Zones = append(config.Zones, z.String())
	}
	return config, nil
}

func (tz tomlZone) build() (*zone.LimitRequestZone, error) {
	rate, err := zone.ParseRequestRate(tz.Rate)
	if err != nil {
		return nil, err
	}
	var opts []zone.Option
	if tz.Burst != nil {
		opts = append(opts, zone.WithBurst(*tz.Burst))
	}
	if tz.NoDelay {
		opts = append(opts, zone.WithNoDelay())
	}
	return zone.New(tz.Name, rate, opts...)
}
