package materia_test

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/materia"
	"github.com/reoring/materia/engine"
)

type Address struct {
	City string `json:"city" materia:"required"`
	Zip  string `json:"zip"`
}

type Customer struct {
	Name      string    `json:"name" materia:"required;validate=min:2;transform=trim"`
	Handle    string    `materia:"name=handle;transform=slug:name"`
	Age       int       `json:"age,omitempty" materia:"default=18"`
	Score     *float64  `json:"score"`
	Active    bool      `json:"active"`
	Tier      string    `json:"tier" materia:"type=enum;ref=Tier;default=basic"`
	Joined    time.Time `json:"joined" materia:"format=2006-01-02"`
	Home      Address   `json:"home"`
	Previous  []Address `json:"previous"`
	Notes     []string  `json:"notes"`
	Internal  string    `json:"-"`
	unexposed string
}

func customerEngine(t *testing.T) (*engine.Engine, *materia.Type) {
	t.Helper()
	reg := materia.NewRegistry()
	require.NoError(t, reg.RegisterEnum(materia.NewEnum("Tier", "basic", "gold")))
	typ, err := materia.TypeFor[Customer](reg)
	require.NoError(t, err)
	return engine.New(reg), typ
}

func TestTypeFor_InfersDeclaredTypes(t *testing.T) {
	e, typ := customerEngine(t)
	assert.Equal(t, "Customer", typ.Name())
	assert.Equal(t,
		[]string{"name", "handle", "age", "score", "active", "tier", "joined", "home", "previous", "notes"},
		typ.Fields())

	ds, err := e.Registry().Describe(typ)
	require.NoError(t, err)
	want := map[string]materia.DeclaredType{
		"name": materia.String, "age": materia.Int, "score": materia.Float, "active": materia.Bool,
		"tier": materia.EnumType, "joined": materia.Date, "home": materia.Nested,
		"previous": materia.Collection, "notes": materia.Array,
	}
	for name, dt := range want {
		d, ok := ds.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, dt, d.Type, name)
	}
	home, _ := ds.Get("home")
	assert.Equal(t, "Address", home.Nested)
	_, ok := e.Registry().Type("Address")
	assert.True(t, ok, "nested struct types are registered")

	again, err := materia.TypeFor[Customer](e.Registry())
	require.NoError(t, err)
	assert.Same(t, typ, again)
}

func TestTypeOf_RejectsBadInput(t *testing.T) {
	reg := materia.NewRegistry()
	_, err := reg.TypeOf(reflect.TypeOf(42))
	assert.Error(t, err)

	type bad struct {
		X string `materia:"colour=red"`
	}
	_, err = reg.TypeOf(reflect.TypeOf(bad{}))
	assert.ErrorContains(t, err, "unknown tag option")
}

const customerJSON = `{
  "name": "  Ada Lovelace ",
  "score": "9.5",
  "active": "yes",
  "tier": "gold",
  "joined": "2024-03-01",
  "home": {"city": "London", "zip": "N1"},
  "previous": [{"city": "Paris"}],
  "notes": ["first"]
}`

func materializeCustomer(t *testing.T) (*engine.Engine, *materia.Record) {
	t.Helper()
	e, _ := customerEngine(t)
	var in map[string]any
	require.NoError(t, json.Unmarshal([]byte(customerJSON), &in))
	rec, err := e.Materialize(context.Background(), "Customer", in)
	require.NoError(t, err)
	return e, rec
}

func TestRecord_Getters(t *testing.T) {
	_, rec := materializeCustomer(t)
	assert.Equal(t, "Ada Lovelace", rec.GetString("name"))
	assert.Equal(t, "ada-lovelace", rec.GetString("handle"))
	assert.Equal(t, 18, rec.GetInt("age"))
	assert.Equal(t, 9.5, rec.GetFloat("score"))
	assert.True(t, rec.GetBool("active"))
	assert.Equal(t, "gold", rec.GetEnum("tier").Name)
	assert.Equal(t, "London", rec.GetRecord("home").GetString("city"))
	assert.Len(t, rec.GetRecords("previous"), 1)
	assert.True(t, rec.Has("name"))
	assert.False(t, rec.Has("missing"))
	assert.Equal(t, "Customer", rec.TypeName())
}

func TestRecord_Bind(t *testing.T) {
	_, rec := materializeCustomer(t)
	var c Customer
	require.NoError(t, rec.Bind(&c))
	assert.Equal(t, "Ada Lovelace", c.Name)
	assert.Equal(t, "ada-lovelace", c.Handle)
	assert.Equal(t, 18, c.Age)
	require.NotNil(t, c.Score)
	assert.Equal(t, 9.5, *c.Score)
	assert.Equal(t, "gold", c.Tier)
	assert.Equal(t, "2024-03-01", c.Joined.Format("2006-01-02"))
	assert.Equal(t, Address{City: "London", Zip: "N1"}, c.Home)
	assert.Equal(t, []Address{{City: "Paris"}}, c.Previous)
	assert.Equal(t, []string{"first"}, c.Notes)

	assert.Error(t, rec.Bind(c), "non-pointer target")

	var wrong struct {
		Name int `json:"name"`
	}
	err := rec.Bind(&wrong)
	iss, ok := materia.AsIssues(err)
	require.True(t, ok, "%v", err)
	assert.Equal(t, "/name", iss[0].Path)
}

func TestRecord_ExportAndJSON(t *testing.T) {
	_, rec := materializeCustomer(t)
	out := rec.ToMap()
	assert.Equal(t, "2024-03-01", out["joined"])
	assert.Equal(t, "gold", out["tier"])
	assert.Equal(t, map[string]any{"city": "London", "zip": "N1"}, out["home"])

	b, err := json.Marshal(rec)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, "Ada Lovelace", decoded["name"])
	assert.Equal(t, "ada-lovelace", decoded["handle"])
}

func TestRecord_WithValuesIsImmutable(t *testing.T) {
	_, rec := materializeCustomer(t)
	ctx := context.Background()
	next, err := rec.WithValues(ctx, map[string]any{"name": "Grace Hopper", "age": 85})
	require.NoError(t, err)
	assert.Equal(t, "grace-hopper", next.GetString("handle"))
	assert.Equal(t, 85, next.GetInt("age"))
	assert.Equal(t, "Ada Lovelace", rec.GetString("name"))
	assert.False(t, rec.Equal(next))

	_, err = rec.With(ctx, "tier", "platinum")
	assert.True(t, errors.Is(err, materia.ErrCastFailure))

	same, err := rec.WithValues(ctx, nil)
	require.NoError(t, err)
	assert.True(t, rec.Equal(same))
}

func TestRecord_NoMaterializer(t *testing.T) {
	typ := materia.Define("Loose").Field("a", materia.String).MustBuild()
	rec := materia.NewRecord(nil, typ, map[string]any{"a": "x"}, nil, map[string]any{"b": 1})
	assert.Equal(t, map[string]any{"a": "x", "b": 1}, rec.ToMap())
	assert.Equal(t, map[string]any{"b": 1}, rec.Extras())
	_, err := rec.With(context.Background(), "a", "y")
	assert.Error(t, err)
}
