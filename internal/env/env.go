package env

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Source is the lookup used to read variables; os.LookupEnv in production.
type Source func(key string) (string, bool)

// Overlay returns a Source where the keys in over shadow src.
func Overlay(src Source, over map[string]string) Source {
	return func(k string) (string, bool) {
		if v, ok := over[k]; ok {
			return v, true
		}
		return src(k)
	}
}

// Reader reads typed values from a Source and remembers the first problem per key.
type Reader struct {
	src  Source
	errs []error
}

func NewReader(src Source) *Reader { return &Reader{src: src} }

func (r *Reader) raw(k string) string {
	v, _ := r.src(k)
	return strings.TrimSpace(v)
}

func (r *Reader) Must(k string) string {
	v := r.raw(k)
	if v == "" {
		r.errs = append(r.errs, fmt.Errorf("missing required env %s", k))
	}
	return v
}

func (r *Reader) Get(k, def string) string {
	if v := r.raw(k); v != "" {
		return v
	}
	return def
}

func (r *Reader) GetInt(k string, def int) int {
	v := r.raw(k)
	if v == "" { return def }
	i, err := strconv.Atoi(v)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("env %s: %q is not an integer", k, v))
		return def
	}
	return i
}

func (r *Reader) MustInt(k string) int {
	if r.raw(k) == "" {
		r.errs = append(r.errs, fmt.Errorf("missing required env %s", k))
		return 0
	}
	return r.GetInt(k, 0)
}

func (r *Reader) GetBool(k string, def bool) bool {
	v := r.raw(k)
	if v == "" { return def }
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		r.errs = append(r.errs, fmt.Errorf("env %s: %q is not a boolean", k, v))
		return def
	}
}

// GetDuration accepts Go durations ("1500ms") or a bare number of seconds.
func (r *Reader) GetDuration(k string, def time.Duration) time.Duration {
	v := r.raw(k)
	if v == "" { return def }
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if i, err := strconv.Atoi(v); err == nil {
		return time.Duration(i) * time.Second
	}
	r.errs = append(r.errs, fmt.Errorf("env %s: %q is not a duration", k, v))
	return def
}

func (r *Reader) GetFloat(k string, def float64) float64 {
	v := r.raw(k)
	if v == "" { return def }
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("env %s: %q is not a number", k, v))
		return def
	}
	return f
}

// Errs returns every problem seen so far.
func (r *Reader) Errs() []error { return r.errs }
