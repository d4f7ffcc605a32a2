package source_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reoring/materia"
	"github.com/reoring/materia/engine"
	"github.com/reoring/materia/source"
)

func codes(t *testing.T, err error) ([]string, materia.Issues) {
	t.Helper()
	iss, ok := materia.AsIssues(err)
	require.True(t, ok, "want issues, got %v", err)
	out := make([]string, 0, len(iss))
	for _, it := range iss {
		out = append(out, it.Code+"@"+it.Path)
	}
	return out, iss
}

func TestJSON_PreservesNumbersAndShape(t *testing.T) {
	m, err := source.Decode(source.JSON, []byte(`{"id": 9007199254740993, "tags": ["a", 1], "author": {"name": "x"}, "x": null}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), m["id"])
	assert.Equal(t, []any{"a", json.Number("1")}, m["tags"])
	assert.Equal(t, map[string]any{"name": "x"}, m["author"])
	assert.Contains(t, m, "x")
	assert.Nil(t, m["x"])

	m, err = source.Decode(source.JSON, []byte(`{"n": 2}`), source.WithFloats())
	require.NoError(t, err)
	assert.Equal(t, float64(2), m["n"])
}

func TestJSON_DuplicateKeys(t *testing.T) {
	doc := []byte(`{"a": 1, "b": {"c": 1, "c": 2}, "list": [{"k": 1}, {"k": 1, "k": 2}], "a": 3}`)
	_, err := source.Decode(source.JSON, doc)
	got, iss := codes(t, err)
	assert.Equal(t, []string{"duplicate_key@/b/c", "duplicate_key@/list/1/k", "duplicate_key@/a"}, got)
	assert.Equal(t, "c", iss[0].Params["key"])
	assert.Equal(t, "key c is duplicated", iss[0].Message)

	m, err := source.Decode(source.JSON, doc, source.WithDuplicates(source.DuplicatesLast))
	require.NoError(t, err)
	assert.Equal(t, json.Number("3"), m["a"])
}

func TestJSON_MaxIssues(t *testing.T) {
	doc := []byte(`{"a": 1, "a": 2, "a": 3, "a": 4}`)
	_, err := source.Decode(source.JSON, doc, source.WithMaxIssues(2))
	got, _ := codes(t, err)
	assert.Equal(t, []string{"duplicate_key@/a", "duplicate_key@/a", "truncated@/"}, got)
}

func TestJSON_Errors(t *testing.T) {
	_, err := source.Decode(source.JSON, []byte(`{"a": `))
	got, _ := codes(t, err)
	assert.Equal(t, []string{"parse_error@/"}, got)

	_, err = source.Decode(source.JSON, []byte(`[1, 2]`))
	got, _ = codes(t, err)
	assert.Equal(t, []string{"invalid_type@/"}, got)

	_, err = source.Decode(source.JSON, []byte(`{} {}`), source.WithDuplicates(source.DuplicatesLast))
	got, _ = codes(t, err)
	assert.Equal(t, []string{"parse_error@/"}, got)
}

func TestDecodeList(t *testing.T) {
	list, err := source.DecodeList(source.JSON, []byte(`[{"a": 1}, {"a": 2}]`))
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = source.DecodeList(source.YAML, []byte("a: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"a": 1}}, list)

	_, err = source.DecodeList(source.JSON, []byte(`[{"a": 1}, 2]`))
	got, _ := codes(t, err)
	assert.Equal(t, []string{"invalid_type@/1"}, got)
}

const postYAML = `
defaults: &defaults
  status: draft
  views: 0
title: Hello
<<: *defaults
views: 12
tags: [go, yaml]
author:
  name: Ada
`

func TestYAML_MergeAndScalars(t *testing.T) {
	m, err := source.Decode(source.YAML, []byte(postYAML))
	require.NoError(t, err)
	assert.Equal(t, "Hello", m["title"])
	assert.Equal(t, "draft", m["status"])
	assert.Equal(t, 12, m["views"])
	assert.Equal(t, []any{"go", "yaml"}, m["tags"])
	assert.Equal(t, map[string]any{"name": "Ada"}, m["author"])

	empty, err := source.Decode(source.YAML, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestYAML_DuplicateKeys(t *testing.T) {
	doc := []byte("a: 1\nnested:\n  b: 1\n  b: 2\na: 2\n")
	_, err := source.Decode(source.YAML, doc)
	got, _ := codes(t, err)
	assert.Equal(t, []string{"duplicate_key@/nested/b", "duplicate_key@/a"}, got)

	m, err := source.Decode(source.YAML, doc, source.WithDuplicates(source.DuplicatesLast))
	require.NoError(t, err)
	assert.Equal(t, 2, m["a"])

	_, err = source.Decode(source.YAML, []byte("a: [1, 2\n"))
	got, _ = codes(t, err)
	assert.Equal(t, []string{"parse_error@/"}, got)
}

func TestFormatOf(t *testing.T) {
	for in, want := range map[string]source.Format{
		"post.json": source.JSON, "post.YAML": source.YAML, "a/b.yml": source.YAML, "json": source.JSON, ".yaml": source.YAML,
	} {
		got, err := source.FormatOf(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := source.FormatOf("post.toml")
	assert.Error(t, err)
	assert.Equal(t, "yaml", source.YAML.String())
}

func TestDecodeReader_FeedsMaterialize(t *testing.T) {
	reg := materia.NewRegistry()
	reg.MustRegister(materia.Define("Item").
		Field("id", materia.Int).Required().
		Field("price", materia.Float).
		Field("name", materia.String).Transform("trim").
		MustBuild())
	e := engine.New(reg)

	in, err := source.DecodeReader(source.JSON, strings.NewReader(`{"id": 42, "price": 9.5, "name": " pen "}`))
	require.NoError(t, err)
	rec, err := e.Materialize(context.Background(), "Item", in)
	require.NoError(t, err)
	assert.Equal(t, 42, rec.GetInt("id"))
	assert.Equal(t, 9.5, rec.GetFloat("price"))
	assert.Equal(t, "pen", rec.GetString("name"))
}
