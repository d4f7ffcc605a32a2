package materia

// Package materia provides:
//
// - Declarative record types built from property descriptors (Define/Field/Build or struct tags)
// - A two-phase materialization pipeline: input-only transforms and casts first, context-derived properties second
// - A stable error model: sentinel errors matched with errors.Is, Issues with JSON Pointer paths
// - Presence metadata per property (seen, was null, default applied, derived)
//
// Design policy:
// - Keep the model and contracts in the root package; the pipeline lives in engine/, casters in cast/, transformers in transform/.
// - The root package performs no I/O; decoding documents into input bags is source/'s job.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//  reg := materia.NewRegistry()
//  reg.MustRegister(materia.Define("Post").
//      Field("title", materia.String).Required().Transform("trim").
//      Field("slug", materia.String).Transform("slug:title").
//      MustBuild())
//
//  e := engine.New(reg)
//  rec, err := e.Materialize(ctx, "Post", map[string]any{"title": " Hello World "})
//  rec.GetString("slug") // "hello-world"
//
//  out, err := e.Externalize(ctx, rec)
