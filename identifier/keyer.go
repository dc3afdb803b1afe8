package identifier

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jonwraymond/docstore/request"
)

// Keyer derives deterministic cache keys from request shapes.
//
// Contract:
// - Determinism: same shape must produce the same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives a key for the request. It never considers SkipCache.
	Key(req *request.Request) (string, error)
}

// HashKeyer derives SHA-256 based keys.
type HashKeyer struct{}

// NewHashKeyer creates a new hash keyer.
func NewHashKeyer() *HashKeyer {
	return &HashKeyer{}
}

// Key generates a deterministic key.
// Format: doc:<op>:<hash>
// where hash is the first 16 hex characters of SHA-256(canonical JSON(shape)).
func (k *HashKeyer) Key(req *request.Request) (string, error) {
	canonical, err := canonicalize(shapeOf(req))
	if err != nil {
		return "", fmt.Errorf("identifier: failed to canonicalize request: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return fmt.Sprintf("doc:%s:%s", req.Op, hex.EncodeToString(sum[:8])), nil
}

// shapeOf keeps only the parts of a request that change what the server
// returns. Headers, Reload and BackgroundReload do not.
func shapeOf(req *request.Request) map[string]any {
	shape := map[string]any{
		"op":     string(req.Op),
		"url":    req.URL,
		"method": req.Method,
		"type":   req.Data.Type,
	}
	if ref, ok := req.Record(); ok {
		shape["record"] = map[string]any{"type": ref.Type, "id": ref.ID, "lid": ref.LID}
	}
	if req.Data.Query != nil {
		shape["query"] = toGeneric(req.Data.Query)
	}
	if req.Data.Options != nil {
		shape["options"] = toGeneric(req.Data.Options)
	}
	return shape
}

// toGeneric round-trips through JSON so nested typed maps and slices reach
// canonicalize as map[string]any and []any.
func toGeneric(v map[string]any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}

// canonicalize produces a deterministic JSON representation of v.
// Maps are sorted by key.
func canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []byte("{")
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')

		vb, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	out := []byte("[")
	for i, v := range s {
		if i > 0 {
			out = append(out, ',')
		}
		vb, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		out = append(out, vb...)
	}
	return append(out, ']'), nil
}

var _ Keyer = (*HashKeyer)(nil)
