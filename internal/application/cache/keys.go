package cache

import (
	"fmt"
	"sort"
	"strings"
)

// ProductPrefix namespaces every product cache key.
const ProductPrefix = "product"

func MetaKey(id int64) string     { return fmt.Sprintf("%s:%d:meta", ProductPrefix, id) }
func PriceKey(id int64) string    { return fmt.Sprintf("%s:%d:price", ProductPrefix, id) }
func VariantsKey(id int64) string { return fmt.Sprintf("%s:%d:variants", ProductPrefix, id) }
func DetailKey(id int64) string   { return fmt.Sprintf("%s:%d:detail", ProductPrefix, id) }
func LockKey(id int64) string     { return fmt.Sprintf("%s:%d:lock", ProductPrefix, id) }

// GuardLockKey is the stampede lock protecting recomputation of key.
func GuardLockKey(key string) string { return key + ":lock" }

func ListKey(fingerprint string) string {
	return ListPrefix(ProductPrefix) + fingerprint
}

// CursorListKey keeps cursor pages under the list prefix so InvalidateAll
// removes them together with offset pages.
func CursorListKey(fingerprint string) string {
	return ListPrefix(ProductPrefix) + "cursor:" + fingerprint
}

func ListPrefix(entity string) string { return entity + ":list:" }

// ListPattern matches every list entry of entity.
func ListPattern(entity string) string { return ListPrefix(entity) + "*" }

var fingerprintEscaper = strings.NewReplacer(`\`, `\\`, "|", `\|`)

// Fingerprint renders params as a canonical "k:v|k:v" string. Keys are sorted
// and empty values dropped, so equal queries always map to the same key.
// Separators inside values are escaped.
func Fingerprint(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(k)
		b.WriteByte(':')
		fingerprintEscaper.WriteString(&b, params[k])
	}
	return b.String()
}
