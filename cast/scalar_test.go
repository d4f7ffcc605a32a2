package cast

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/materia"
)

func desc(name, kind string) *materia.Descriptor {
	return &materia.Descriptor{Name: name, Cast: kind}
}

func TestBool_Vocabulary(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		in   any
		want bool
	}{
		{"true", true}, {"1", true}, {"YES", true}, {" on ", true},
		{"false", false}, {"0", false}, {"no", false}, {"Off", false}, {"", false},
		{"maybe", true},
		{1, true}, {0, false}, {2.5, true}, {0.0, false},
		{true, true}, {false, false},
	}
	for _, tc := range cases {
		got, err := Bool{}.Materialize(ctx, tc.in, desc("b", materia.CastBool))
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "input %#v", tc.in)
	}
	assert.True(t, BoolWord("Yes"))
	assert.False(t, BoolWord("maybe"))
}

func TestInt(t *testing.T) {
	ctx := context.Background()
	d := desc("n", materia.CastInt)
	for in, want := range map[any]int{"42": 42, " 7 ": 7, "4.9": 4, 3.99: 3, int64(9): 9, uint8(3): 3, true: 1} {
		got, err := Int{}.Materialize(ctx, in, d)
		require.NoError(t, err, "input %#v", in)
		assert.Equal(t, want, got, "input %#v", in)
	}
	got, err := Int{}.Materialize(ctx, json.Number("12"), d)
	require.NoError(t, err)
	assert.Equal(t, 12, got)

	_, err = Int{}.Materialize(ctx, "abc", d)
	assert.ErrorIs(t, err, materia.ErrCastFailure)
	_, err = Int{}.Materialize(ctx, []any{1}, d)
	assert.ErrorIs(t, err, materia.ErrCastFailure)
}

func TestInt_OutOfRange(t *testing.T) {
	ctx := context.Background()
	d := desc("n", materia.CastInt)
	for _, in := range []any{1e20, -1e20, "1e20", json.Number("1e20"), uint64(math.MaxUint64), float32(1e30)} {
		_, err := Int{}.Materialize(ctx, in, d)
		assert.ErrorIs(t, err, materia.ErrCastFailure, "input %#v", in)
	}
	got, err := Int{}.Materialize(ctx, uint64(math.MaxInt64), d)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt, got)
	got, err = Int{}.Materialize(ctx, float64(math.MinInt64), d)
	require.NoError(t, err)
	assert.Equal(t, math.MinInt, got)
}

func TestFloat(t *testing.T) {
	ctx := context.Background()
	d := desc("f", materia.CastFloat)
	got, err := Float{}.Materialize(ctx, "19.99", d)
	require.NoError(t, err)
	assert.Equal(t, 19.99, got)
	got, err = Float{}.Materialize(ctx, 3, d)
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)
	_, err = Float{}.Materialize(ctx, "x", d)
	assert.ErrorIs(t, err, materia.ErrCastFailure)
}

type label struct{ s string }

func (l label) String() string { return l.s }

func TestString(t *testing.T) {
	ctx := context.Background()
	d := desc("s", materia.CastString)
	for _, tc := range []struct {
		in   any
		want string
	}{
		{"x", "x"}, {42, "42"}, {2.5, "2.5"}, {true, "true"}, {[]byte("raw"), "raw"},
		{label{"stringer"}, "stringer"}, {json.Number("7"), "7"},
	} {
		got, err := String{}.Materialize(ctx, tc.in, d)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}
	_, err := String{}.Materialize(ctx, map[string]any{"a": 1}, d)
	assert.ErrorIs(t, err, materia.ErrCastFailure)
	_, err = String{}.Materialize(ctx, []any{"a"}, d)
	assert.ErrorIs(t, err, materia.ErrCastFailure)
}

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestArray(t *testing.T) {
	ctx := context.Background()
	d := desc("a", materia.CastArray)

	got, err := Array{}.Materialize(ctx, `["a", "b"]`, d)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)

	got, err = Array{}.Materialize(ctx, `{"k": 1}`, d)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": float64(1)}, got)

	got, err = Array{}.Materialize(ctx, "plain", d)
	require.NoError(t, err)
	assert.Equal(t, []any{"plain"}, got)

	got, err = Array{}.Materialize(ctx, []string{"x", "y"}, d)
	require.NoError(t, err)
	assert.Equal(t, []any{"x", "y"}, got)

	got, err = Array{}.Materialize(ctx, point{X: 1, Y: 2}, d)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"x": float64(1), "y": float64(2)}, got)

	got, err = Array{}.Materialize(ctx, 5, d)
	require.NoError(t, err)
	assert.Equal(t, []any{5}, got)
}

func TestRegistry_OrderAndPassthrough(t *testing.T) {
	ctx := context.Background()
	r := New(String{}, upper{})
	got, err := r.Materialize(ctx, "abc", desc("s", materia.CastString))
	require.NoError(t, err)
	assert.Equal(t, "abc", got, "first match wins")

	got, err = r.Materialize(ctx, "abc", desc("s", "shout"))
	require.NoError(t, err)
	assert.Equal(t, "ABC", got)

	got, err = r.Materialize(ctx, struct{}{}, desc("s", "unknown-kind"))
	require.NoError(t, err)
	assert.Equal(t, struct{}{}, got)

	got, err = r.Materialize(ctx, nil, desc("s", materia.CastString))
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.False(t, r.Handles(materia.CastNone))
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_FailureNamesProperty(t *testing.T) {
	r := New(Int{})
	_, err := r.Materialize(context.Background(), "x", desc("age", materia.CastInt))
	var ce *materia.CastError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "age", ce.Property)
	assert.Equal(t, materia.CastInt, ce.Kind)
	assert.Equal(t, "string", ce.ValueKind)
}

type upper struct{}

func (upper) CanCast(kind string) bool { return kind == "shout" || kind == materia.CastString }

func (upper) Materialize(_ context.Context, v any, _ *materia.Descriptor) (any, error) {
	s, _ := v.(string)
	return strings.ToUpper(s), nil
}

func (upper) Externalize(_ context.Context, v any, _ *materia.Descriptor) (any, error) { return v, nil }
