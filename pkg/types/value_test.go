package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{NewNumber(42), "42"},
		{NewNumber(15), "15"},
		{NewNumber(-3), "-3"},
		{NewNumber(0), "0"},
		{NewNumber(math.Copysign(0, -1)), "0"},
		{NewNumber(0.5), "0.5"},
		{NewNumber(3.14), "3.14"},
		{NewNumber(1.0 / 3.0), "0.3333333333333333"},
		{NewNumber(1e21), "1e+21"},
		{NewNumber(100000), "100000"},
		{NewNumber(math.Inf(1)), "inf"},
		{NewNumber(math.Inf(-1)), "-inf"},
		{NewNumber(math.NaN()), "nan"},
		{NewBool(true), "true"},
		{NewBool(false), "false"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValueEqual(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{NewNumber(1), NewNumber(1), true},
		{NewNumber(1), NewNumber(2), false},
		{NewBool(true), NewBool(true), true},
		{NewBool(true), NewBool(false), false},
		{NewNumber(1), NewBool(true), false},
		{NewNumber(0), NewBool(false), false},
		{NewNumber(math.NaN()), NewNumber(math.NaN()), false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s==%s", tt.a, tt.b), func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAccessorPanicsOnWrongVariant(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	NewBool(true).AsNumber()
}

func TestValueJSON(t *testing.T) {
	env := map[string]Value{
		"x":   NewNumber(42),
		"ok":  NewBool(true),
		"inf": NewNumber(math.Inf(1)),
	}
	b, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got, want := string(b), `{"inf":"inf","ok":true,"x":42}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}

	var back map[string]Value
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back["x"].Equal(NewNumber(42)) || !back["ok"].Equal(NewBool(true)) {
		t.Errorf("unexpected decoded environment %v", back)
	}
	if !math.IsInf(back["inf"].AsNumber(), 1) {
		t.Errorf("expected +inf, got %v", back["inf"])
	}
}

func TestValueFromJSONRejectsOtherTypes(t *testing.T) {
	for _, in := range []interface{}{"hello", nil, []interface{}{1.0}, map[string]interface{}{}} {
		if _, err := ValueFromJSON(in); err == nil {
			t.Errorf("expected error for %#v", in)
		}
	}
}

func TestFormatBindings(t *testing.T) {
	got := FormatBindings(map[string]Value{
		"y": NewBool(false),
		"x": NewNumber(3),
	})
	if want := "{x: 3, y: false}"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got := FormatBindings(nil); got != "{}" {
		t.Errorf("got %q, want {}", got)
	}
}

func TestSortedNames(t *testing.T) {
	got := SortedNames(map[string]Value{
		"zeta":  NewBool(false),
		"alpha": NewNumber(0.5),
		"mid":   NewNumber(-2),
	})
	if !reflect.DeepEqual(got, []string{"alpha", "mid", "zeta"}) {
		t.Errorf("got %v", got)
	}
	if got := SortedNames(nil); len(got) != 0 {
		t.Errorf("got %v, want empty", got)
	}
}

func TestEvaluationErrorKinds(t *testing.T) {
	err := fmt.Errorf("run failed: %w", NewUndefinedVariableError("x").WithNode("print x"))
	if !IsKind(err, KindUndefinedVariable) {
		t.Errorf("expected UndefinedVariable, got %v", err)
	}
	if IsKind(err, KindTypeMismatch) {
		t.Error("did not expect TypeMismatch")
	}
	if IsKind(errors.New("plain"), KindUndefinedVariable) {
		t.Error("plain errors have no kind")
	}

	var ee *EvaluationError
	if !errors.As(err, &ee) {
		t.Fatal("expected EvaluationError")
	}
	if ee.Name != "x" || ee.Node != "print x" {
		t.Errorf("unexpected fields: %+v", ee)
	}

	tm := NewTypeMismatchError("-", TypeNumber, TypeBool)
	if tm.Expected != "number" || tm.Actual != "boolean" || tm.Operator != "-" {
		t.Errorf("unexpected fields: %+v", tm)
	}

	// The innermost node is kept.
	inner := NewInvalidAssignmentTargetError("1").WithNode("(1 = 2)").WithNode("print (1 = 2)")
	if inner.Node != "(1 = 2)" {
		t.Errorf("got node %q", inner.Node)
	}
}
