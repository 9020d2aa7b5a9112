package runtime

import (
	"testing"

	"github.com/lemonberrylabs/treewalk/pkg/types"
)

func TestEnvironmentSetGet(t *testing.T) {
	env := NewEnvironment(nil)
	if env.Len() != 0 {
		t.Fatalf("expected empty environment, got %s", env)
	}
	if _, ok := env.Get("x"); ok {
		t.Error("unexpected binding for x")
	}

	env.Set("x", types.NewNumber(1))
	env.Set("x", types.NewBool(true))
	v, ok := env.Get("x")
	if !ok || !v.Equal(types.NewBool(true)) {
		t.Errorf("got %v, %v; want true", v, ok)
	}
	if !env.Has("x") || env.Len() != 1 {
		t.Errorf("unexpected environment %s", env)
	}
}

func TestEnvironmentCopiesInitialBindings(t *testing.T) {
	initial := map[string]types.Value{"a": types.NewNumber(1)}
	env := NewEnvironment(initial)
	env.Set("a", types.NewNumber(2))
	env.Set("b", types.NewNumber(3))

	if !initial["a"].Equal(types.NewNumber(1)) || len(initial) != 1 {
		t.Errorf("initial map was mutated: %v", initial)
	}
}

func TestEnvironmentString(t *testing.T) {
	env := NewEnvironment(map[string]types.Value{
		"zeta":  types.NewBool(false),
		"alpha": types.NewNumber(0.5),
		"mid":   types.NewNumber(-2),
	})

	if got, want := env.String(), "{alpha: 0.5, mid: -2, zeta: false}"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}
