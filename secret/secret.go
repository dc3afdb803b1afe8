package secret

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
)

var (
	// ErrMissingEnv indicates a ${VAR} reference to an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrUnknownProvider indicates a reference to an unregistered provider.
	ErrUnknownProvider = errors.New("secret: provider is not registered")

	// ErrEmptySecret indicates a strict resolver got an empty value.
	ErrEmptySecret = errors.New("secret: provider returned an empty value")
)

// Provider resolves secrets by reference.
//
// Implementations must be safe for concurrent use and must not log secret
// values.
type Provider interface {
	Name() string
	Resolve(ctx context.Context, ref string) (string, error)
}

// ExpandEnvStrict expands $VAR and ${VAR} in s. A ${VAR} whose variable is
// unset is an error; a bare $VAR expands to the empty string. "$$" yields a
// literal "$".
func ExpandEnvStrict(s string) (string, error) {
	missing := map[string]struct{}{}
	out := os.Expand(s, func(key string) string {
		if key == "$" {
			return "$"
		}
		v, ok := os.LookupEnv(key)
		if !ok && strings.Contains(s, "${"+key+"}") {
			missing[key] = struct{}{}
		}
		return v
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(slices.Sorted(maps.Keys(missing)), ", "))
	}
	return out, nil
}

// Resolver expands environment variables and secret references.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. A strict resolver rejects empty secrets.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{providers: make(map[string]Provider), strict: strict}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

var refPattern = regexp.MustCompile(`secretref:([^:\s@/]+):([^\s@]+)`)

// ResolveValue expands environment variables in value, then replaces every
// secretref:<provider>:<ref> with the provider's answer. A nil Resolver only
// expands the environment.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil {
		return expanded, nil
	}

	matches := refPattern.FindAllStringSubmatchIndex(expanded, -1)
	out := expanded
	// replace from the end so earlier indexes stay valid
	for _, m := range slices.Backward(matches) {
		resolved, err := r.resolve(ctx, out[m[2]:m[3]], out[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		out = out[:m[0]] + resolved + out[m[1]:]
	}
	return out, nil
}

func (r *Resolver) resolve(ctx context.Context, name, ref string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	v, err := p.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("secret: provider %q: %w", name, err)
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: %q", ErrEmptySecret, name)
	}
	return v, nil
}

// FileProvider reads secrets from files in a directory, one secret per
// file, as mounted by container orchestrators. Trailing newlines are
// trimmed.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider named "file" rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{dir: dir}
}

func (p *FileProvider) Name() string { return "file" }

// Resolve reads dir/ref. ref must not leave dir.
func (p *FileProvider) Resolve(_ context.Context, ref string) (string, error) {
	if !filepath.IsLocal(ref) {
		return "", fmt.Errorf("secret: invalid reference %q", ref)
	}
	b, err := os.ReadFile(filepath.Join(p.dir, ref))
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
