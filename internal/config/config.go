// Package config loads seedsindex configuration from CUE.
//
// The embedded schema supplies defaults and constraints. A user file, if
// any, is unified with it, then command-line and environment overrides
// are filled in before the result is validated and decoded.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

// EnvPrivateKey names the environment variable holding the node key.
const EnvPrivateKey = "SEEDSINDEX_PRIVATE_KEY"

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "seedsindex.cue"

const (
	DriverEthereum = "ethereum"
	DriverSQLite   = "sqlite"
)

// ErrMissingPrivateKey is returned by RequirePrivateKey when no key is set.
var ErrMissingPrivateKey = errors.New("no private key configured (set " + EnvPrivateKey + " or --private-key)")

// Config is the decoded configuration.
type Config struct {
	Ledger LedgerConfig `json:"ledger"`
	Node   NodeConfig   `json:"node"`
	Sync   SyncConfig   `json:"sync"`
	HTTP   HTTPConfig   `json:"http"`
}

type LedgerConfig struct {
	Driver       string `json:"driver"`
	Endpoint     string `json:"endpoint"`
	Contract     string `json:"contract"`
	GasPrice     uint64 `json:"gas_price"`
	GasLimit     uint64 `json:"gas_limit"`
	PollInterval string `json:"poll_interval"`
}

type NodeConfig struct {
	PrivateKey string `json:"private_key"`
}

type SyncConfig struct {
	BootstrapConcurrency int `json:"bootstrap_concurrency"`
}

type HTTPConfig struct {
	Listen string `json:"listen"`
}

// Overrides are applied on top of the file. Empty fields are ignored.
type Overrides struct {
	Driver     string
	Endpoint   string
	Contract   string
	PrivateKey string
	Listen     string
}

func (o Overrides) paths() map[string]string {
	return map[string]string{
		"ledger.driver":    o.Driver,
		"ledger.endpoint":  o.Endpoint,
		"ledger.contract":  o.Contract,
		"node.private_key": o.PrivateKey,
		"http.listen":      o.Listen,
	}
}

// Default returns the schema defaults.
func Default() (*Config, error) {
	return Load("", Overrides{})
}

// Load reads path (skipped when empty), applies overrides and decodes.
func Load(path string, ov Overrides) (*Config, error) {
	var data []byte
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return Parse(path, data, ov)
}

// Parse is Load for in-memory source. filename is used in error positions.
func Parse(filename string, src []byte, ov Overrides) (*Config, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile config schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(src) > 0 {
		user := ctx.CompileBytes(src, cue.Filename(filename))
		if err := user.Err(); err != nil {
			return nil, fmt.Errorf("parse %s: %s", filename, details(err))
		}
		v = v.Unify(user)
	}

	for path, value := range ov.paths() {
		if value != "" {
			v = v.FillPath(cue.ParsePath(path), value)
		}
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("invalid config: %s", details(err))
	}

	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks what the schema cannot express.
func (c *Config) Validate() error {
	if _, err := c.Ledger.PollDuration(); err != nil {
		return fmt.Errorf("invalid config: ledger.poll_interval: %w", err)
	}
	return nil
}

// PollDuration parses PollInterval.
func (l LedgerConfig) PollDuration() (time.Duration, error) {
	d, err := time.ParseDuration(l.PollInterval)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// RequirePrivateKey fails with ErrMissingPrivateKey when no key is set.
func (c *Config) RequirePrivateKey() error {
	if c.Node.PrivateKey == "" {
		return ErrMissingPrivateKey
	}
	return nil
}

func details(err error) string {
	return cueerrors.Details(err, nil)
}
