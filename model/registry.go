package model

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/banter/logging"
)

// Registry errors.
var (
	// ErrUnknownProvider is returned when no factory is registered for a provider.
	ErrUnknownProvider = errors.New("unknown model provider")
	// ErrMissingCredentials is returned when no API key can be resolved.
	ErrMissingCredentials = errors.New("missing model credentials")
	// ErrMissingModel is returned when neither the config nor the registry names a model.
	ErrMissingModel = errors.New("missing model name")
)

// Config is the declarative binding of a participant to a model.
// Empty Provider and Model fall back to the registry defaults.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	APIKeyEnv string
	Display   string
	Options   map[string]any
}

// FactoryConfig is handed to a provider Factory once credentials are resolved.
type FactoryConfig struct {
	Model   string
	APIKey  string
	Options map[string]any
}

// Factory builds a client for one provider.
type Factory func(cfg FactoryConfig) (Client, error)

// Binding is a resolved client together with its display label.
type Binding struct {
	Client   Client
	Provider string
	Model    string
	Display  string
}

type provider struct {
	keyEnv  string
	keyless bool
	factory Factory
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// DefaultProvider is used when a Config names no provider.
	DefaultProvider string
	// DefaultModel is used when a Config names no model.
	DefaultModel string
	// LookupEnv resolves environment variables (defaults to os.LookupEnv).
	LookupEnv func(key string) (string, bool)
	// Logger receives client construction logs.
	Logger logging.Logger
}

// Registry owns provider factories and the clients built from them. A
// client is built once per (provider, model, credential) and reused until
// Close. Factories run outside the registry lock, so different bindings
// build concurrently while concurrent requests for one binding share a
// single build.
type Registry struct {
	opts RegistryOptions

	mu        sync.Mutex
	providers map[string]provider
	clients   map[string]Client
	builds    singleflight.Group
}

// NewRegistry creates a registry with the keyless "echo" provider
// registered.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{
		DefaultProvider: "openai",
		LookupEnv:       os.LookupEnv,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	r := &Registry{
		opts:      opts,
		providers: make(map[string]provider),
		clients:   make(map[string]Client),
	}
	r.RegisterKeyless("echo", func(cfg FactoryConfig) (Client, error) {
		return NewMockClient(cfg.Model), nil
	})
	return r
}

// Register adds a provider whose API key defaults to the keyEnv
// environment variable. An empty keyEnv forces configs to name a key.
func (r *Registry) Register(name, keyEnv string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(name)] = provider{keyEnv: keyEnv, factory: f}
}

// RegisterKeyless adds a provider that needs no credentials.
func (r *Registry) RegisterKeyless(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[strings.ToLower(name)] = provider{keyless: true, factory: f}
}

// Providers returns the registered provider names, sorted.
func (r *Registry) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns the client bound by cfg, building it on first use.
func (r *Registry) Resolve(_ context.Context, cfg Config) (Binding, error) {
	name := strings.ToLower(cfg.Provider)
	if name == "" {
		name = strings.ToLower(r.opts.DefaultProvider)
	}
	modelName := cfg.Model
	if modelName == "" {
		modelName = r.opts.DefaultModel
	}

	r.mu.Lock()
	p, ok := r.providers[name]
	r.mu.Unlock()
	if !ok {
		return Binding{}, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if modelName == "" {
		return Binding{}, fmt.Errorf("%w: provider %s", ErrMissingModel, name)
	}

	apiKey, credID, err := r.credentials(name, p, cfg)
	if err != nil {
		return Binding{}, err
	}

	display := cfg.Display
	if display == "" {
		display = name
	}
	binding := Binding{Provider: name, Model: modelName, Display: display}

	cacheKey := name + "|" + modelName + "|" + credID
	v, err, _ := r.builds.Do(cacheKey, func() (any, error) {
		r.mu.Lock()
		c, ok := r.clients[cacheKey]
		r.mu.Unlock()
		if ok {
			return c, nil
		}

		c, err := p.factory(FactoryConfig{Model: modelName, APIKey: apiKey, Options: cfg.Options})
		if err != nil {
			return nil, fmt.Errorf("build %s client: %w", name, err)
		}

		r.mu.Lock()
		r.clients[cacheKey] = c
		r.mu.Unlock()
		r.opts.Logger.Debug("model.client.created", "provider", name, "model", modelName, "credentials", credID)
		return c, nil
	})
	if err != nil {
		return Binding{}, err
	}

	binding.Client = v.(Client)
	return binding, nil
}

// credentials resolves the API key for cfg: an explicit key first, then
// the configured environment variable, then the provider default. The
// returned id identifies the credential without exposing it.
func (r *Registry) credentials(name string, p provider, cfg Config) (string, string, error) {
	if p.keyless {
		return "", "none", nil
	}
	if cfg.APIKey != "" {
		sum := sha256.Sum256([]byte(cfg.APIKey))
		return cfg.APIKey, "key:" + hex.EncodeToString(sum[:6]), nil
	}
	env := cfg.APIKeyEnv
	if env == "" {
		env = p.keyEnv
	}
	if env == "" {
		return "", "", fmt.Errorf("%w: provider %s has no default key variable, set api_key_env", ErrMissingCredentials, name)
	}
	key, ok := r.opts.LookupEnv(env)
	if !ok || key == "" {
		return "", "", fmt.Errorf("%w: environment variable %s is not set", ErrMissingCredentials, env)
	}
	return key, "env:" + env, nil
}

// Close closes every cached client that implements io.Closer and empties
// the cache.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for key, c := range r.clients {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		delete(r.clients, key)
	}
	return errors.Join(errs...)
}
