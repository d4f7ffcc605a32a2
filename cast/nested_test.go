package cast_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/materia"
	"github.com/reoring/materia/cast"
	"github.com/reoring/materia/codec"
	"github.com/reoring/materia/engine"
)

func setup(t *testing.T) (*engine.Engine, *cast.Registry) {
	t.Helper()
	reg := materia.NewRegistry()
	require.NoError(t, reg.RegisterEnum(
		materia.NewEnum("Status", "active", "inactive"),
		materia.NewBackedEnum("Priority", "low", 1, "high", 10),
	))
	reg.MustRegister(
		materia.Define("Tag").Field("label", materia.String).Required().MustBuild(),
	)
	e := engine.New(reg)
	return e, e.Casters()
}

func nestedDesc(name string, many bool) *materia.Descriptor {
	return &materia.Descriptor{Name: name, Type: materia.Nested, Cast: materia.CastNested, Nested: "Tag", Collection: many}
}

func TestNested_CollectionOfThree(t *testing.T) {
	_, cr := setup(t)
	ctx := context.Background()
	in := []any{
		map[string]any{"label": "a"},
		map[string]any{"label": "b"},
		map[string]any{"label": "c"},
	}
	got, err := cr.Materialize(ctx, in, nestedDesc("tags", true))
	require.NoError(t, err)
	recs, ok := got.([]*materia.Record)
	require.True(t, ok)
	require.Len(t, recs, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, "Tag", recs[i].TypeName())
		assert.Equal(t, want, recs[i].GetString("label"))
	}

	out, err := cr.Externalize(ctx, recs, nestedDesc("tags", true))
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"label": "a"},
		map[string]any{"label": "b"},
		map[string]any{"label": "c"},
	}, out)
}

func TestNested_EmptyAndInvalidCollections(t *testing.T) {
	_, cr := setup(t)
	ctx := context.Background()

	got, err := cr.Materialize(ctx, []any{}, nestedDesc("tags", true))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	_, err = cr.Materialize(ctx, map[string]any{"label": "a"}, nestedDesc("tags", true))
	assert.ErrorIs(t, err, materia.ErrCastFailure)

	_, err = cr.Materialize(ctx, []any{nil}, nestedDesc("tags", true))
	assert.ErrorIs(t, err, materia.ErrCastFailure)
}

func TestNested_TypedMapAndForeignRecord(t *testing.T) {
	e, cr := setup(t)
	ctx := context.Background()

	got, err := cr.Materialize(ctx, map[string]string{"label": "typed"}, nestedDesc("tag", false))
	require.NoError(t, err)
	assert.Equal(t, "typed", got.(*materia.Record).GetString("label"))

	other := materia.Define("Label").Field("label", materia.String).MustBuild()
	require.NoError(t, e.Registry().Register(other))
	foreign, err := e.Materialize(ctx, "Label", map[string]any{"label": "moved"})
	require.NoError(t, err)

	got, err = cr.Materialize(ctx, foreign, nestedDesc("tag", false))
	require.NoError(t, err)
	rec := got.(*materia.Record)
	assert.Equal(t, "Tag", rec.TypeName())
	assert.Equal(t, "moved", rec.GetString("label"))
}

func TestNested_UnregisteredTarget(t *testing.T) {
	_, cr := setup(t)
	d := nestedDesc("tag", false)
	d.Nested = "Missing"
	_, err := cr.Materialize(context.Background(), map[string]any{}, d)
	assert.ErrorIs(t, err, materia.ErrUnresolvedNestedType)
}

func enumDesc(ref string) *materia.Descriptor {
	return &materia.Descriptor{Name: "e", Type: materia.EnumType, Cast: materia.CastEnum, Nested: ref}
}

func TestEnum(t *testing.T) {
	e, cr := setup(t)
	ctx := context.Background()
	status, _ := e.Registry().Enum("Status")

	got, err := cr.Materialize(ctx, "active", enumDesc("Status"))
	require.NoError(t, err)
	assert.Equal(t, status.MustCase("active"), got)

	got, err = cr.Materialize(ctx, "INACTIVE", enumDesc("Status"))
	require.NoError(t, err)
	assert.Equal(t, "inactive", got.(materia.EnumCase).Name)

	_, err = cr.Materialize(ctx, "bogus", enumDesc("Status"))
	assert.ErrorIs(t, err, materia.ErrCastFailure)

	got, err = cr.Materialize(ctx, "10", enumDesc("Priority"))
	require.NoError(t, err)
	assert.Equal(t, "high", got.(materia.EnumCase).Name)

	got, err = cr.Materialize(ctx, 1.0, enumDesc("Priority"))
	require.NoError(t, err)
	assert.Equal(t, "low", got.(materia.EnumCase).Name)

	_, err = cr.Materialize(ctx, 5, enumDesc("Priority"))
	assert.ErrorIs(t, err, materia.ErrCastFailure)

	out, err := cr.Externalize(ctx, got, enumDesc("Priority"))
	require.NoError(t, err)
	assert.Equal(t, 1, out)

	out, err = cr.Externalize(ctx, status.MustCase("active"), enumDesc("Status"))
	require.NoError(t, err)
	assert.Equal(t, "active", out)

	_, err = cr.Materialize(ctx, "x", enumDesc("Nope"))
	assert.ErrorIs(t, err, materia.ErrUnresolvedNestedType)
}

func TestDate(t *testing.T) {
	now := time.Date(2025, 8, 2, 12, 0, 0, 0, time.UTC)
	dc := codec.NewDate(codec.WithClock(func() time.Time { return now }))
	c := cast.NewDate(dc)
	ctx := context.Background()
	d := &materia.Descriptor{Name: "at", Type: materia.Date, Cast: materia.CastDate}

	got, err := c.Materialize(ctx, "2025-08-01T12:00:00Z", d)
	require.NoError(t, err)
	at := got.(time.Time)
	assert.True(t, at.Equal(time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)))

	fromUnix, err := c.Materialize(ctx, at.Unix(), d)
	require.NoError(t, err)
	assert.True(t, at.Equal(fromUnix.(time.Time)))

	bundle, err := c.Externalize(ctx, at, d)
	require.NoError(t, err)
	m := bundle.(map[string]any)
	assert.Equal(t, "1 day ago", m["diff_from_now"])
	assert.Equal(t, "2025-08-01T12:00:00Z", m["iso"])

	back, err := c.Materialize(ctx, m, d)
	require.NoError(t, err)
	assert.True(t, at.Equal(back.(time.Time)))

	d.Format = "2006-01-02"
	out, err := c.Externalize(ctx, at, d)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-01", out)
	again, err := c.Materialize(ctx, out, d)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-01", again.(time.Time).Format("2006-01-02"))

	_, err = c.Materialize(ctx, "not a date at all", d)
	assert.ErrorIs(t, err, materia.ErrCastFailure)
	_, err = c.Materialize(ctx, map[string]any{}, d)
	assert.ErrorIs(t, err, materia.ErrCastFailure)
	_, err = c.Materialize(ctx, uint64(math.MaxUint64), d)
	assert.ErrorIs(t, err, materia.ErrCastFailure)
}

func TestDate_Timezone(t *testing.T) {
	c := cast.NewDate(nil)
	ctx := context.Background()
	d := &materia.Descriptor{Name: "at", Type: materia.Date, Cast: materia.CastDate, Timezone: "Asia/Tokyo"}
	got, err := c.Materialize(ctx, "2025-08-01T12:00:00Z", d)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", got.(time.Time).Location().String())
	assert.Equal(t, 21, got.(time.Time).Hour())
	require.NoError(t, cast.CheckTimezone(d))

	d.Timezone = "Mars/Olympus"
	_, err = c.Materialize(ctx, "2025-08-01T12:00:00Z", d)
	assert.ErrorIs(t, err, materia.ErrCastFailure)
	_, err = c.Materialize(ctx, time.Now(), d)
	assert.ErrorIs(t, err, materia.ErrCastFailure)
	assert.Error(t, cast.CheckTimezone(d))
}
