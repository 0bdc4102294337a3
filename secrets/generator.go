// Package secrets generates the random credentials deployctl injects into the
// deployment configuration: database and broker passwords, the application
// secret key, and random username suffixes.
//
// Generation walks an ordered chain of entropy sources and uses the first one
// that can deliver the requested length. The final source is a deterministic
// hash of a high-resolution timestamp. It exists so that a stripped-down
// container image without a usable CSPRNG still produces unique values, but it
// is cryptographically weak and its use is logged as a warning.
package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/nq-deploy/deployctl/common"
)

const (
	// MaxLength is the largest supported secret length.
	MaxLength = 256

	// PasswordLength is the default length for generated passwords.
	PasswordLength = 20

	// SecretKeyLength is the length of the application secret key.
	SecretKeyLength = 50

	// UsernameSuffixLength is the length of random username suffixes.
	UsernameSuffixLength = 8
)

const alphanumerics = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Source produces random material restricted to the alphanumeric alphabet.
// A Source returns ErrInsufficientEntropy when it cannot deliver the
// requested length; the generator then tries the next source in the chain.
type Source interface {
	// Name identifies the source in logs
	Name() string

	// Read returns exactly length alphanumeric characters
	Read(length int) (string, error)

	// Degraded reports whether the source is a weak fallback
	Degraded() bool
}

// Generator produces secrets from an ordered chain of entropy sources.
type Generator struct {
	sources []Source
}

// NewGenerator creates a generator with the default source chain:
// crypto/rand, the system entropy device, and the degraded timestamp hash.
func NewGenerator() *Generator {
	return &Generator{
		sources: []Source{
			&cryptoRandSource{},
			&devUrandomSource{path: "/dev/urandom"},
			&timestampSource{},
		},
	}
}

// NewGeneratorWithSources creates a generator with an explicit source chain,
// primarily for tests.
func NewGeneratorWithSources(sources ...Source) *Generator {
	return &Generator{sources: sources}
}

// Generate returns a random string of exactly the requested length, drawn
// from the alphanumeric alphabet. Sources are tried in order; a degraded
// source emits a warning before use.
func (g *Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", ErrInvalidLength
	}
	if length > MaxLength {
		return "", fmt.Errorf("%w: %d exceeds maximum %d", ErrInsufficientEntropy, length, MaxLength)
	}
	if len(g.sources) == 0 {
		return "", ErrNoSource
	}

	var lastErr error
	for _, source := range g.sources {
		value, err := source.Read(length)
		if err != nil {
			common.Logger.WithField("source", source.Name()).Debug("entropy source failed: ", err)
			lastErr = err
			continue
		}
		if len(value) != length {
			lastErr = fmt.Errorf("%w: source %s returned %d of %d characters",
				ErrInsufficientEntropy, source.Name(), len(value), length)
			continue
		}
		if source.Degraded() {
			common.Logger.Warn("secret generated from degraded entropy source: ", source.Name())
		}
		return value, nil
	}
	return "", lastErr
}

// Password generates a password of the default length.
func (g *Generator) Password() (string, error) {
	return g.Generate(PasswordLength)
}

// SecretKey generates an application secret key.
func (g *Generator) SecretKey() (string, error) {
	return g.Generate(SecretKeyLength)
}

// Username generates a username of the form prefix_XXXXXXXX with a random
// 8-character suffix.
func (g *Generator) Username(prefix string) (string, error) {
	suffix, err := g.Generate(UsernameSuffixLength)
	if err != nil {
		return "", err
	}
	return prefix + "_" + suffix, nil
}

// cryptoRandSource reads from the OS CSPRNG via crypto/rand, base64-encodes
// the bytes and strips padding and symbols.
type cryptoRandSource struct{}

func (s *cryptoRandSource) Name() string   { return "crypto/rand" }
func (s *cryptoRandSource) Degraded() bool { return false }

func (s *cryptoRandSource) Read(length int) (string, error) {
	// Base64 of n bytes yields ~4n/3 characters before stripping the two
	// symbol characters and padding. Oversample until enough survive.
	out := make([]byte, 0, length)
	for attempts := 0; attempts < 8 && len(out) < length; attempts++ {
		raw := make([]byte, length*2)
		if _, err := rand.Read(raw); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInsufficientEntropy, err)
		}
		encoded := base64.StdEncoding.EncodeToString(raw)
		for i := 0; i < len(encoded) && len(out) < length; i++ {
			c := encoded[i]
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
				out = append(out, c)
			}
		}
	}
	if len(out) < length {
		return "", ErrInsufficientEntropy
	}
	return string(out), nil
}

// devUrandomSource reads raw bytes from the system entropy device and keeps
// only alphanumeric bytes.
type devUrandomSource struct {
	path string
}

func (s *devUrandomSource) Name() string   { return s.path }
func (s *devUrandomSource) Degraded() bool { return false }

func (s *devUrandomSource) Read(length int) (string, error) {
	file, err := os.Open(s.path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInsufficientEntropy, err)
	}
	defer file.Close()

	out := make([]byte, 0, length)
	buf := make([]byte, length*4)
	for attempts := 0; attempts < 8 && len(out) < length; attempts++ {
		n, err := file.Read(buf)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInsufficientEntropy, err)
		}
		for i := 0; i < n && len(out) < length; i++ {
			c := buf[i]
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
				out = append(out, c)
			}
		}
	}
	if len(out) < length {
		return "", ErrInsufficientEntropy
	}
	return string(out), nil
}

// timestampSource hashes a high-resolution timestamp with a process-local
// counter. Unique but predictable; Degraded reports true so callers warn.
type timestampSource struct {
	counter atomic.Uint64
}

func (s *timestampSource) Name() string   { return "timestamp-hash" }
func (s *timestampSource) Degraded() bool { return true }

func (s *timestampSource) Read(length int) (string, error) {
	out := make([]byte, 0, length)
	for len(out) < length {
		seed := fmt.Sprintf("%d-%d-%d", time.Now().UnixNano(), os.Getpid(), s.counter.Add(1))
		sum := sha256.Sum256([]byte(seed))
		encoded := hex.EncodeToString(sum[:])
		remaining := length - len(out)
		if remaining > len(encoded) {
			remaining = len(encoded)
		}
		out = append(out, encoded[:remaining]...)
	}
	return string(out), nil
}
