// Copyright 2023 The OpenSSL Project Authors. All rights reserved.
// Use of this source code is governed by an Apache-2.0 license
// that can be found in the LICENSE file.

package checker

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"

	"github.com/mspncp/tools/runutil"
)

const defaultFileMode = os.FileMode(0644)

// Version is the version of the xml schema used for configuration
// files.
type Version int

// V1 is the first and, so far, only configuration schema version.
const V1 Version = 1

// Profile describes one build configuration to verify: how to
// configure the tree, which environment to build under and which make
// targets prove the build good.
type Profile struct {
	name      string
	configure []string
	env       map[string]string
	targets   []string
}

// ProfileOpt is an interface for Profile factory options.
type ProfileOpt interface {
	profileOpt()
}

// ConfigureArgsOpt is the type that can be used to pass the Profile
// factory the arguments given to Configure.
type ConfigureArgsOpt []string

func (ConfigureArgsOpt) profileOpt() {}

// EnvOpt is the type that can be used to pass the Profile factory
// environment overrides for the build.
type EnvOpt map[string]string

func (EnvOpt) profileOpt() {}

// TargetsOpt is the type that can be used to pass the Profile factory
// the make targets to run after the build.
type TargetsOpt []string

func (TargetsOpt) profileOpt() {}

// NewProfile is the Profile factory. Profiles run the "test" target
// unless TargetsOpt says otherwise.
func NewProfile(name string, opts ...ProfileOpt) Profile {
	p := Profile{name: name}
	for _, opt := range opts {
		switch typedOpt := opt.(type) {
		case ConfigureArgsOpt:
			p.configure = []string(typedOpt)
		case EnvOpt:
			p.env = map[string]string(typedOpt)
		case TargetsOpt:
			p.targets = []string(typedOpt)
		}
	}
	if len(p.targets) == 0 {
		p.targets = []string{"test"}
	}
	return p
}

// Name returns the profile name.
func (p Profile) Name() string {
	return p.name
}

// ConfigureArgs returns the arguments the profile passes to Configure.
func (p Profile) ConfigureArgs() []string {
	return p.configure
}

// Env returns the environment overrides the profile builds under.
func (p Profile) Env() map[string]string {
	return p.env
}

// Targets returns the make targets the profile runs after the build.
func (p Profile) Targets() []string {
	return p.targets
}

// Config holds the build-verification configuration.
type Config struct {
	version  Version
	profiles []Profile
}

// ConfigOpt is an interface for Config factory options.
type ConfigOpt interface {
	configOpt()
}

// ProfilesOpt is the type that can be used to pass the Config factory
// a list of profiles.
type ProfilesOpt []Profile

func (ProfilesOpt) configOpt() {}

// NewConfig is the Config factory.
func NewConfig(opts ...ConfigOpt) *Config {
	c := Config{version: V1}
	for _, opt := range opts {
		switch typedOpt := opt.(type) {
		case ProfilesOpt:
			c.profiles = []Profile(typedOpt)
		}
	}
	return &c
}

// DefaultConfig returns the configuration used when no configuration
// file is given: a single profile building the tree as-is and running
// the test target.
func DefaultConfig() *Config {
	return NewConfig(ProfilesOpt{NewProfile("default")})
}

// SchemaVersion returns the version of the xml schema the
// configuration was read with.
func (c Config) SchemaVersion() Version {
	return c.version
}

// Profiles returns the profiles included in the config.
func (c Config) Profiles() []Profile {
	return c.profiles
}

// Names returns the names, in lexicographic order, of the profiles
// included in the config.
func (c Config) Names() []string {
	names := make([]string, 0, len(c.profiles))
	for _, p := range c.profiles {
		names = append(names, p.name)
	}
	sort.Strings(names)
	return names
}

// LookupProfile returns the named profile, or nil if the config does
// not contain it.
func (c Config) LookupProfile(name string) *Profile {
	for i := range c.profiles {
		if c.profiles[i].name == name {
			return &c.profiles[i]
		}
	}
	return nil
}

type checkerSchema struct {
	XMLName xml.Name `xml:"checker"`
	// The Version of the schema used for this file.
	Version  Version          `xml:"version,attr"`
	Profiles []*profileSchema `xml:"profile"`
}

type profileSchema struct {
	XMLName   xml.Name    `xml:"profile"`
	Name      string      `xml:"name,attr"`
	Configure []string    `xml:"configure>arg"`
	Env       []envSchema `xml:"env>var"`
	Targets   []string    `xml:"make>target"`
}

type envSchema struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// LoadConfig reads the configuration from the given file. Unlike a
// missing profile, a missing or malformed file is an error; the
// command line decides whether to fall back to DefaultConfig.
func LoadConfig(s runutil.Sequence, filename string) (*Config, error) {
	data, err := s.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	var schema checkerSchema
	if err := xml.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("Unmarshal(%v) failed: %v", filename, err)
	}
	if schema.Version != V1 {
		return nil, fmt.Errorf("unsupported checker configuration version: %v", schema.Version)
	}
	c := &Config{version: schema.Version}
	for _, p := range schema.Profiles {
		profile := Profile{
			name:      p.Name,
			configure: p.Configure,
			targets:   p.Targets,
		}
		if len(p.Env) > 0 {
			profile.env = map[string]string{}
			for _, v := range p.Env {
				profile.env[v.Name] = v.Value
			}
		}
		if len(profile.targets) == 0 {
			profile.targets = []string{"test"}
		}
		c.profiles = append(c.profiles, profile)
	}
	return c, nil
}

// SaveConfig writes the configuration to the given file.
func SaveConfig(s runutil.Sequence, c *Config, filename string) error {
	schema := checkerSchema{Version: V1}
	for _, p := range c.profiles {
		ps := &profileSchema{
			Name:      p.name,
			Configure: p.configure,
			Targets:   p.targets,
		}
		envNames := make([]string, 0, len(p.env))
		for name := range p.env {
			envNames = append(envNames, name)
		}
		sort.Strings(envNames)
		for _, name := range envNames {
			ps.Env = append(ps.Env, envSchema{Name: name, Value: p.env[name]})
		}
		schema.Profiles = append(schema.Profiles, ps)
	}
	data, err := xml.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("MarshalIndent() failed: %v", err)
	}
	data = append([]byte(xml.Header), data...)
	return s.WriteFile(filename, data, defaultFileMode).Done()
}
