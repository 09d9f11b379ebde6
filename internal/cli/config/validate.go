package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("api_url must be an http(s) URL, got %q", c.APIURL))
		}
	}
	if !c.Compile.OptimizationLevel.Valid() {
		errs = append(errs, fmt.Errorf("compile.optimization_level: invalid value %q", c.Compile.OptimizationLevel))
	}
	if !c.Compile.TargetRuntime.Valid() {
		errs = append(errs, fmt.Errorf("compile.target_runtime: invalid value %q", c.Compile.TargetRuntime))
	}
	switch strings.ToLower(c.OutputFormat) {
	case "", "auto", "text", "markdown", "md", "json":
	default:
		errs = append(errs, fmt.Errorf("output must be one of auto, text, markdown, json; got %q", c.OutputFormat))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative"))
	}
	if c.Server != nil && (c.Server.Port < 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	return errors.Join(errs...)
}
