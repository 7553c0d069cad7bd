// Package config loads run options: where a run writes its artifacts, the
// hyperparameters recorded in the log header, and the dashboard endpoint.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/anomeval/anomeval/dashboard"
)

// Options describes one training run as seen by the evaluation side.
type Options struct {
	// Name is the run name; artifacts land under <Outf>/<Name>/.
	Name string `mapstructure:"name"`
	// Outf is the root output folder.
	Outf string `mapstructure:"outf"`
	// Niter is the total epoch count, used in formatted loss lines.
	Niter int `mapstructure:"niter"`

	// Hyperparameters recorded in the run log header.
	Nz   int     `mapstructure:"nz"`
	WAdv float64 `mapstructure:"w_adv"`
	WCon float64 `mapstructure:"w_con"`
	WLat float64 `mapstructure:"w_lat"`

	// Display controls whether the dashboard client is enabled.
	Display bool `mapstructure:"display"`

	Dashboard dashboard.Config `mapstructure:"dashboard"`
}

// Default returns the built-in option values.
func Default() *Options {
	return &Options{
		Name:      "anomaly-run",
		Outf:      "./output",
		Niter:     15,
		Nz:        100,
		WAdv:      1,
		WCon:      50,
		WLat:      1,
		Display:   false,
		Dashboard: dashboard.DefaultConfig(),
	}
}

// Load reads options from defaults, an optional YAML file at path, and
// ANOMEVAL_* environment variables, in increasing precedence.
func Load(path string) (*Options, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ANOMEVAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	opt := &Options{}
	if err := v.Unmarshal(opt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal options: %w", err)
	}

	return opt, nil
}

func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("name", defaults.Name)
	v.SetDefault("outf", defaults.Outf)
	v.SetDefault("niter", defaults.Niter)
	v.SetDefault("nz", defaults.Nz)
	v.SetDefault("w_adv", defaults.WAdv)
	v.SetDefault("w_con", defaults.WCon)
	v.SetDefault("w_lat", defaults.WLat)
	v.SetDefault("display", defaults.Display)
	v.SetDefault("dashboard.base_url", defaults.Dashboard.BaseURL)
	v.SetDefault("dashboard.timeout", defaults.Dashboard.Timeout)
	v.SetDefault("dashboard.retry_attempts", defaults.Dashboard.RetryAttempts)
	v.SetDefault("dashboard.retry_delay", defaults.Dashboard.RetryDelay)
}
