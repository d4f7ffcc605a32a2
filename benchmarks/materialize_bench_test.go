package benchmarks_test

import (
	"bytes"
	"context"
	"strconv"
	"testing"

	"github.com/reoring/materia"
	"github.com/reoring/materia/engine"
	"github.com/reoring/materia/source"
)

func benchEngine(tb testing.TB, opts ...engine.Option) *engine.Engine {
	tb.Helper()
	reg := materia.NewRegistry()
	if err := reg.RegisterEnum(materia.NewEnum("Status", "draft", "published")); err != nil {
		tb.Fatalf("enum: %v", err)
	}
	err := reg.Register(
		materia.Define("Point").
			Field("x", materia.Float).
			Field("y", materia.Float).
			Field("z", materia.Float).
			MustBuild(),
		materia.Define("Post").
			Field("title", materia.String).Required().Validate("min:3|max:120").Transform("trim").
			Field("slug", materia.String).Transform("slug:title").
			Field("status", "custom").Ref("Status").Default("draft").
			Field("views", materia.Int).Default(0).
			Field("tags", materia.Array).
			Field("published_at", materia.Date).
			Field("points", materia.Collection).Ref("Point").
			MustBuild(),
	)
	if err != nil {
		tb.Fatalf("register: %v", err)
	}
	return engine.New(reg, opts...)
}

var postJSON = []byte(`{"title":"  Benchmarking Materia  ","status":"published","views":"42","tags":["go","bench"],"published_at":"2025-01-02T03:04:05Z","points":[{"x":1,"y":2.5,"z":-3.75}]}`)

func Benchmark_Materialize_Post(b *testing.B) {
	ctx := context.Background()
	e := benchEngine(b)
	in, err := source.Decode(source.JSON, postJSON)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Materialize(ctx, "Post", in); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Materialize_Post_NoValidation(b *testing.B) {
	ctx := context.Background()
	e := benchEngine(b, engine.WithoutValidation())
	in, err := source.Decode(source.JSON, postJSON)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Materialize(ctx, "Post", in); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_DecodeAndMaterialize_Post(b *testing.B) {
	ctx := context.Background()
	e := benchEngine(b)
	b.ReportAllocs()
	b.SetBytes(int64(len(postJSON)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		in, err := source.Decode(source.JSON, postJSON)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := e.Materialize(ctx, "Post", in); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Externalize_Post(b *testing.B) {
	ctx := context.Background()
	e := benchEngine(b)
	in, err := source.Decode(source.JSON, postJSON)
	if err != nil {
		b.Fatal(err)
	}
	rec, err := e.Materialize(ctx, "Post", in)
	if err != nil {
		b.Fatal(err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Externalize(ctx, rec); err != nil {
			b.Fatal(err)
		}
	}
}

func generatePoints(num int) []byte {
	var buf bytes.Buffer
	buf.Grow(num * 48)
	buf.WriteString(`{"title":"points","points":[`)
	for i := 0; i < num; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		n := strconv.Itoa(i)
		buf.WriteString(`{"x":` + n + `,"y":` + n + `.5,"z":-` + n + `}`)
	}
	buf.WriteString(`]}`)
	return buf.Bytes()
}

func benchmarkCollection(b *testing.B, num int, opts ...source.Option) {
	ctx := context.Background()
	e := benchEngine(b)
	data := generatePoints(num)
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		in, err := source.Decode(source.JSON, data, opts...)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := e.Materialize(ctx, "Post", in); err != nil {
			b.Fatal(err)
		}
	}
}

func Benchmark_Collection_1k_JSONNumber(b *testing.B) { benchmarkCollection(b, 1000) }

func Benchmark_Collection_1k_Float64(b *testing.B) {
	benchmarkCollection(b, 1000, source.WithFloats())
}

func Benchmark_Collection_1k_NoDuplicateScan(b *testing.B) {
	benchmarkCollection(b, 1000, source.WithDuplicates(source.DuplicatesLast))
}
