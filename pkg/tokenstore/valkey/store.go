package tokenstorevalkey

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/valkey-io/valkey-go"
)

const objectTypeSession = "session"

// Backend persists the session as plain strings under
// <prefix>:session:<key>.
type Backend struct {
	valkey valkey.Client
	prefix string
}

func NewBackend(valkeyClient valkey.Client, prefix string) *Backend {
	prefix = strings.TrimSuffix(prefix, ":")
	return &Backend{
		valkey: valkeyClient,
		prefix: prefix,
	}
}

func (b *Backend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := b.valkey.Do(ctx, b.valkey.B().Get().Key(b.key(key)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return "", false, nil
		}

		return "", false, fmt.Errorf("executing get command: %w", err)
	}

	return v, true, nil
}

// SetMany writes all values with a single MSET so readers never observe a
// partial update.
func (b *Backend) SetMany(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}

	cmd := b.valkey.B().Mset().KeyValue()
	for _, k := range slices.Sorted(maps.Keys(values)) {
		cmd = cmd.KeyValue(b.key(k), values[k])
	}

	if err := b.valkey.Do(ctx, cmd.Build()).Error(); err != nil {
		return fmt.Errorf("executing mset command: %w", err)
	}

	return nil
}

func (b *Backend) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	prefixed := make([]string, 0, len(keys))
	for _, k := range keys {
		prefixed = append(prefixed, b.key(k))
	}

	if err := b.valkey.Do(ctx, b.valkey.B().Del().Key(prefixed...).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

func (b *Backend) key(objectID string) string {
	return fmt.Sprintf("%s:%s:%s", b.prefix, objectTypeSession, objectID)
}
