// Package creds defines the credential-provider boundary the signer calls
// once per request (never caching the result), plus the handful of concrete
// providers a client actually needs: static, environment-variable, an
// INI-file profile source, and a chain that tries each in turn.
package creds

import (
	"fmt"
	"os"
	"sync"

	"github.com/go-ini/ini"
)

// Value is a credential fetched fresh from a Provider. The signer never
// stores it beyond the single request it was fetched for.
type Value struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// Anonymous reports whether v carries no usable access key, signaling the
// caller should skip signing entirely.
func (v Value) Anonymous() bool { return v.AccessKeyID == "" || v.SecretAccessKey == "" }

// Provider is the single-method interface the request engine calls once
// per attempt. Implementations may cache internally (e.g. to avoid
// re-reading a file), but must be safe for concurrent use.
type Provider interface {
	Retrieve() (Value, error)
}

// Static always returns the same fixed credentials.
type Static struct{ Value Value }

// NewStatic builds a Provider around a fixed access key, secret key, and
// optional session token.
func NewStatic(accessKey, secretKey, sessionToken string) Static {
	return Static{Value{AccessKeyID: accessKey, SecretAccessKey: secretKey, SessionToken: sessionToken}}
}

// Retrieve implements Provider.
func (s Static) Retrieve() (Value, error) { return s.Value, nil }

// EnvMinIO reads MINIO_ACCESS_KEY / MINIO_SECRET_KEY per spec.md §6.
type EnvMinIO struct{}

// Retrieve implements Provider.
func (EnvMinIO) Retrieve() (Value, error) {
	ak := os.Getenv("MINIO_ACCESS_KEY")
	sk := os.Getenv("MINIO_SECRET_KEY")
	if ak == "" || sk == "" {
		return Value{}, fmt.Errorf("creds: MINIO_ACCESS_KEY/MINIO_SECRET_KEY not set")
	}
	return Value{AccessKeyID: ak, SecretAccessKey: sk}, nil
}

// FileINI reads a shared-credentials-style INI file (default profile
// section name "default"), parallel to AWS's ~/.aws/credentials convention.
// The file is read at most once per FileINI value: the outcome of the first
// Retrieve, a failure included, is cached and returned by every later call.
type FileINI struct {
	Path    string
	Profile string

	once  sync.Once
	value Value
	err   error
}

// Retrieve implements Provider.
func (f *FileINI) Retrieve() (Value, error) {
	f.once.Do(func() {
		profile := f.Profile
		if profile == "" {
			profile = "default"
		}
		cfg, err := ini.Load(f.Path)
		if err != nil {
			f.err = fmt.Errorf("creds: loading %s: %w", f.Path, err)
			return
		}
		section, err := cfg.GetSection(profile)
		if err != nil {
			f.err = fmt.Errorf("creds: profile %q in %s: %w", profile, f.Path, err)
			return
		}
		f.value = Value{
			AccessKeyID:     section.Key("access_key").String(),
			SecretAccessKey: section.Key("secret_key").String(),
			SessionToken:    section.Key("session_token").String(),
		}
		if f.value.Anonymous() {
			f.err = fmt.Errorf("creds: profile %q in %s missing access_key/secret_key", profile, f.Path)
		}
	})
	return f.value, f.err
}

// Chain tries each Provider in order and returns the first one that
// produces non-anonymous credentials.
type Chain struct{ Providers []Provider }

// Retrieve implements Provider.
func (c Chain) Retrieve() (Value, error) {
	var lastErr error
	for _, p := range c.Providers {
		v, err := p.Retrieve()
		if err != nil {
			lastErr = err
			continue
		}
		if !v.Anonymous() {
			return v, nil
		}
	}
	if lastErr != nil {
		return Value{}, lastErr
	}
	return Value{}, fmt.Errorf("creds: no provider in chain produced credentials")
}
