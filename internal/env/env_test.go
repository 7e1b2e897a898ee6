package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReader(t *testing.T) {
	vals := map[string]string{
		"NAME": "  feed ", "N": "42", "BAD_N": "x", "ON": "yes", "DUR": "1500ms",
		"SECS": "3", "RATE": "2.5",
	}
	r := NewReader(func(k string) (string, bool) {
		v, ok := vals[k]
		return v, ok
	})

	assert.Equal(t, "feed", r.Must("NAME"))
	assert.Equal(t, "dflt", r.Get("MISSING", "dflt"))
	assert.Equal(t, 42, r.GetInt("N", 0))
	assert.Equal(t, 7, r.GetInt("BAD_N", 7))
	assert.True(t, r.GetBool("ON", false))
	assert.Equal(t, 1500*time.Millisecond, r.GetDuration("DUR", 0))
	assert.Equal(t, 3*time.Second, r.GetDuration("SECS", 0))
	assert.Equal(t, 2.5, r.GetFloat("RATE", 0))
	assert.Len(t, r.Errs(), 1)

	r.Must("NOPE")
	r.MustInt("NOPE_INT")
	assert.Len(t, r.Errs(), 3)
}

func TestOverlayShadowsSource(t *testing.T) {
	base := func(k string) (string, bool) {
		if k == "A" || k == "B" {
			return "base", true
		}
		return "", false
	}
	src := Overlay(base, map[string]string{"B": "flag", "C": "new"})

	v, ok := src("A")
	assert.True(t, ok)
	assert.Equal(t, "base", v)
	v, _ = src("B")
	assert.Equal(t, "flag", v)
	v, ok = src("C")
	assert.True(t, ok)
	assert.Equal(t, "new", v)
	_, ok = src("D")
	assert.False(t, ok)
}
