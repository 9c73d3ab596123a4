package analytics

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Param is one key/value pair of a query. A nil Value (or a nil pointer)
// marks the parameter as absent.
type Param struct {
	Key   string
	Value any
}

// Params is an insertion-ordered parameter list.
type Params []Param

// Set replaces the value of an existing key in place or appends a new pair.
func (p Params) Set(key string, value any) Params {
	for i := range p {
		if p[i].Key == key {
			p[i].Value = value
			return p
		}
	}
	return append(p, Param{Key: key, Value: value})
}

// Build encodes params as a query string without the leading '?'.
//
// Absent values are skipped, pairs keep their insertion order, a repeated key
// keeps its first position with the last present value, and spaces are
// encoded as %20. An empty or all-absent list yields "".
func Build(params Params) string {
	type pair struct{ k, v string }
	pairs := make([]pair, 0, len(params))
	index := make(map[string]int, len(params))
	for _, p := range params {
		v, ok := formatValue(p.Value)
		if !ok {
			continue
		}
		if i, seen := index[p.Key]; seen {
			pairs[i].v = v
			continue
		}
		index[p.Key] = len(pairs)
		pairs = append(pairs, pair{p.Key, v})
	}
	if len(pairs) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(p.k))
		b.WriteByte('=')
		b.WriteString(escape(p.v))
	}
	return b.String()
}

// escape is url.QueryEscape with %20 for spaces. QueryEscape already turns a
// literal '+' into %2B, so every remaining '+' was a space.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func formatValue(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.FormatInt(int64(x), 10), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), true
	case *string:
		if x == nil {
			return "", false
		}
		return *x, true
	case *bool:
		if x == nil {
			return "", false
		}
		return strconv.FormatBool(*x), true
	case *int:
		if x == nil {
			return "", false
		}
		return strconv.Itoa(*x), true
	case *float64:
		if x == nil {
			return "", false
		}
		return strconv.FormatFloat(*x, 'f', -1, 64), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}
