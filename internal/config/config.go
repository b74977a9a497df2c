// Package config defines configuration of the identity contracts' host tools.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nspcc-dev/identity-contracts/common"
	"gopkg.in/yaml.v3"
)

// EnvPath is an environment variable with the path to the configuration file
// used when no path is given explicitly.
const EnvPath = "IDCTL_CONFIG"

// Credential schemes of the identity contracts.
const (
	SchemeECDSA    = "ecdsa"
	SchemeOIDC     = "oidc"
	SchemeWebAuthn = "webauthn"
)

// Config is a root configuration of the host tools.
type Config struct {
	Contract Contract `yaml:"contract"`
	// Directory of the contract state snapshots.
	LedgerDir string `yaml:"ledger_dir"`
	// Directory of the encrypted ECDSA keys.
	KeystoreDir string `yaml:"keystore_dir"`

	WebAuthn WebAuthn `yaml:"webauthn"`

	IdentityProviders map[string]IdentityProvider `yaml:"identity_providers"`
}

// Contract describes deployment of the identity contract.
type Contract struct {
	Name    string `yaml:"name"`
	Scheme  string `yaml:"scheme"`
	AppName string `yaml:"app_name"`
}

// WebAuthn groups optional relying party checks.
type WebAuthn struct {
	RPID   string `yaml:"rp_id"`
	Origin string `yaml:"origin"`
}

// IdentityProvider describes OpenID Connect provider.
type IdentityProvider struct {
	Issuer   string `yaml:"issuer"`
	Audience string `yaml:"audience"`
	// Local copy of the provider's JSON Web Key Set.
	JWKSFile string `yaml:"jwks_file"`
}

// Default returns configuration used when no file is provided.
func Default() Config {
	return Config{
		Contract: Contract{
			Name:   "ecdsa_identity",
			Scheme: SchemeECDSA,
		},
		LedgerDir:   "ledger",
		KeystoreDir: "keys",
	}
}

// Load reads configuration from YAML file at the given path, falling back to
// EnvPath. Absent fields keep default values. Without any file Default is
// returned. Relative directories of the file are resolved against the file
// location.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvPath)
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err = dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("decode config file '%s': %w", path, err)
	}

	base := filepath.Dir(path)
	cfg.LedgerDir = resolve(base, cfg.LedgerDir)
	cfg.KeystoreDir = resolve(base, cfg.KeystoreDir)
	for name, p := range cfg.IdentityProviders {
		p.JWKSFile = resolve(base, p.JWKSFile)
		cfg.IdentityProviders[name] = p
	}

	return cfg, cfg.Validate()
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate checks the configuration.
func (x Config) Validate() error {
	if !common.CheckContractName(x.Contract.Name) {
		return fmt.Errorf("contract: invalid name '%s'", x.Contract.Name)
	}

	switch x.Contract.Scheme {
	case SchemeECDSA, SchemeOIDC, SchemeWebAuthn:
	default:
		return fmt.Errorf("contract: unsupported scheme '%s'", x.Contract.Scheme)
	}

	if x.LedgerDir == "" {
		return errors.New("missing ledger directory")
	}

	for name, p := range x.IdentityProviders {
		if p.Issuer == "" || p.Audience == "" {
			return fmt.Errorf("identity provider '%s': missing issuer or audience", name)
		}
	}

	return nil
}

// Provider returns the named identity provider.
func (x Config) Provider(name string) (IdentityProvider, error) {
	p, ok := x.IdentityProviders[name]
	if !ok {
		return p, fmt.Errorf("unknown identity provider '%s'", name)
	}
	return p, nil
}
