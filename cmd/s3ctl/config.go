package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// profile is one named entry in the s3ctl config file, holding enough to
// build both a pkg/s3.Client and a pkg/s3tables.Client without re-typing
// endpoint/region/credentials on every invocation.
type profile struct {
	Endpoint     string `yaml:"endpoint"`
	TablesURL    string `yaml:"tables_url"`
	Region       string `yaml:"region"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	SessionToken string `yaml:"session_token,omitempty"`
	HTTPS        bool   `yaml:"https"`
}

// config is the on-disk shape of s3ctl's config file: a named map of
// profiles plus which one is active by default.
type config struct {
	Default  string             `yaml:"default"`
	Profiles map[string]profile `yaml:"profiles"`
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("s3ctl: reading config %s: %w", path, err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("s3ctl: parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *config) resolve(name string) (profile, error) {
	if name == "" {
		name = c.Default
	}
	p, ok := c.Profiles[name]
	if !ok {
		return profile{}, fmt.Errorf("s3ctl: no profile named %q", name)
	}
	return p, nil
}
