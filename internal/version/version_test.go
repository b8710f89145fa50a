package version

import (
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	v := Get()
	if v == "" {
		t.Fatal("Get() returned empty version")
	}
	if strings.ContainsAny(v, " \n\t") {
		t.Errorf("Get() = %q, want trimmed", v)
	}
}

func TestUserAgent(t *testing.T) {
	if got, want := UserAgent(), "validator/"+Get(); got != want {
		t.Errorf("UserAgent() = %q, want %q", got, want)
	}
}
