package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemorySetGetDelete(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	_, ok, err := mem.Get(ctx, "c", "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, mem.Set(ctx, "c", "k", []byte(`{"a":1}`)))

	val, ok, err := mem.Get(ctx, "c", "k")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"a":1}`, string(val))

	require.NoError(t, mem.Delete(ctx, "c", "k"))
	_, ok, err = mem.Get(ctx, "c", "k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMergeOverlaysFields(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Set(ctx, "c", "k", []byte(`{"a":1,"b":2}`)))
	require.NoError(t, mem.Merge(ctx, "c", "k", map[string]json.RawMessage{
		"b": json.RawMessage(`3`),
		"c": json.RawMessage(`"x"`),
	}))

	val, _, err := mem.Get(ctx, "c", "k")
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1,"b":3,"c":"x"}`, string(val))
}

func TestMergeCreatesDocument(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	require.NoError(t, mem.Merge(ctx, "c", "new", map[string]json.RawMessage{
		"a": json.RawMessage(`1`),
	}))

	val, ok, err := mem.Get(ctx, "c", "new")
	require.NoError(t, err)
	require.True(t, ok)
	require.JSONEq(t, `{"a":1}`, string(val))
}

func TestWriteCategoryOverwrites(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	first, err := WriteCategory(ctx, mem, "id1", "attendance", json.RawMessage(`{"v":1}`))
	require.NoError(t, err)

	second, err := WriteCategory(ctx, mem, "id1", "attendance", json.RawMessage(`{"v":2}`))
	require.NoError(t, err)
	require.False(t, second.LastUpdated.Before(first.LastUpdated))

	got, err := ReadCategory(ctx, mem, "id1", "attendance")
	require.NoError(t, err)
	require.JSONEq(t, `{"v":2}`, string(got.Data))
}

func TestWriteCategoryKeepsSiblings(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	_, err := WriteCategory(ctx, mem, "id1", "attendance", json.RawMessage(`{"v":1}`))
	require.NoError(t, err)
	_, err = WriteCategory(ctx, mem, "id1", "sgpa", json.RawMessage(`{"sgpa":"8.9"}`))
	require.NoError(t, err)

	att, err := ReadCategory(ctx, mem, "id1", "attendance")
	require.NoError(t, err)
	require.NotNil(t, att)
	require.JSONEq(t, `{"v":1}`, string(att.Data))
}

func TestReadCategoryMissing(t *testing.T) {
	mem := NewMemory()

	got, err := ReadCategory(context.Background(), mem, "id1", "attendance")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAppendCategoryUnions(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	_, err := AppendCategory(ctx, mem, "id1", "grievances", json.RawMessage(`{"text":"one"}`))
	require.NoError(t, err)
	val, err := AppendCategory(ctx, mem, "id1", "grievances", json.RawMessage(`{"text":"two"}`))
	require.NoError(t, err)

	var history []map[string]string
	require.NoError(t, json.Unmarshal(val.Data, &history))
	require.Len(t, history, 2)
	require.Equal(t, "one", history[0]["text"])
	require.Equal(t, "two", history[1]["text"])
}
