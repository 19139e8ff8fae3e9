package env_test

import (
	"testing"

	"github.com/dechogo/hearing-gateway/internal/env"
)

func TestStr_FallsBackWhenUnset(t *testing.T) {
	t.Parallel()
	if got := env.Str("ENV_TEST_STR_UNSET", "fallback"); got != "fallback" {
		t.Errorf("Str = %q, want %q", got, "fallback")
	}
}

func TestStr_UsesSetValue(t *testing.T) {
	t.Setenv("ENV_TEST_STR_SET", "value")
	if got := env.Str("ENV_TEST_STR_SET", "fallback"); got != "value" {
		t.Errorf("Str = %q, want %q", got, "value")
	}
}

func TestInt_FallsBackOnUnparseable(t *testing.T) {
	t.Setenv("ENV_TEST_INT", "not-a-number")
	if got := env.Int("ENV_TEST_INT", 42); got != 42 {
		t.Errorf("Int = %d, want fallback 42", got)
	}
}

func TestInt_ParsesSetValue(t *testing.T) {
	t.Setenv("ENV_TEST_INT_OK", "7")
	if got := env.Int("ENV_TEST_INT_OK", 0); got != 7 {
		t.Errorf("Int = %d, want 7", got)
	}
}

func TestFloat_ParsesSetValue(t *testing.T) {
	t.Setenv("ENV_TEST_FLOAT", "1.5")
	if got := env.Float("ENV_TEST_FLOAT", 0); got != 1.5 {
		t.Errorf("Float = %v, want 1.5", got)
	}
}

func TestBool_AcceptsParseBoolForms(t *testing.T) {
	t.Setenv("ENV_TEST_BOOL", "1")
	if got := env.Bool("ENV_TEST_BOOL", false); !got {
		t.Errorf("Bool = false, want true for \"1\"")
	}
}

func TestBool_FallsBackOnUnparseable(t *testing.T) {
	t.Setenv("ENV_TEST_BOOL_BAD", "maybe")
	if got := env.Bool("ENV_TEST_BOOL_BAD", true); !got {
		t.Errorf("Bool = false, want fallback true")
	}
}
