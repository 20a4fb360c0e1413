package docstore

import (
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/slate/pkg/types"
)

func TestDBOperations(t *testing.T) {
	db, err := Open(NewMemory())
	require.NoError(t, err)

	assert.Equal(t, 1, db.NextID("Shot"))
	require.NoError(t, db.Insert("Shot", 2, types.Record{"code": "b"}))
	require.NoError(t, db.Insert("Shot", 1, types.Record{"code": "a"}))
	assert.Error(t, db.Insert("Shot", 1, types.Record{"code": "dup"}))

	require.NoError(t, db.Insert("Retired:Shot", 5, types.Record{"code": "r"}))
	assert.Equal(t, 3, db.NextID("Shot"))
	assert.Equal(t, 6, db.NextID("Shot", "Retired:Shot"))

	require.NoError(t, db.Update("Shot", 1, func(r types.Record) { r["code"] = "aa" }))
	assert.Equal(t, "aa", db.Get("Shot", 1)["code"])
	assert.ErrorIs(t, db.Update("Shot", 9, func(types.Record) {}), types.ErrEntityNotFound)

	all := db.All("Shot")
	require.Len(t, all, 2)
	assert.Equal(t, "aa", all[0]["code"])
	assert.Equal(t, "b", all[1]["code"])

	found, err := db.Search("Shot", func(r types.Record) (bool, error) { return r["code"] == "b", nil })
	require.NoError(t, err)
	require.Len(t, found, 1)

	removed, err := db.Remove("Shot", 2)
	require.NoError(t, err)
	assert.Equal(t, "b", removed["code"])
	assert.Nil(t, db.Get("Shot", 2))
	_, err = db.Remove("Shot", 2)
	assert.ErrorIs(t, err, types.ErrEntityNotFound)

	assert.Equal(t, []string{"Retired:Shot", "Shot"}, db.Tables())
}

func TestFlushRereadsSnapshot(t *testing.T) {
	db, err := Open(NewMemory())
	require.NoError(t, err)

	require.NoError(t, db.Insert("Shot", 1, types.Record{
		"count":  int64(3),
		"ratio":  2.5,
		"handle": types.Handle{Type: "Sequence", ID: 1},
		"tags":   []string{"a"},
	}))
	require.NoError(t, db.Flush())

	r := db.Get("Shot", 1)
	require.NotNil(t, r)
	assert.Equal(t, int64(3), r["count"])
	assert.Equal(t, 2.5, r["ratio"])
	assert.Equal(t, map[string]any{"type": "Sequence", "id": int64(1)}, r["handle"])
	assert.Equal(t, []any{"a"}, r["tags"])
}

func TestOpenJSONRequiresFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "slate.json")

	_, err := OpenJSON(path, false)
	assert.ErrorIs(t, err, types.ErrStorage)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	s, err := OpenJSON(path, true)
	require.NoError(t, err)
	assert.FileExists(t, path)

	reopened, err := OpenJSON(path, false)
	require.NoError(t, err)
	data, err := reopened.Read()
	require.NoError(t, err)
	assert.Empty(t, data)
	assert.Equal(t, path, s.Path())
}

func storages(t *testing.T) map[string]Storage {
	t.Helper()
	dir := t.TempDir()
	js, err := OpenJSON(filepath.Join(dir, "slate.json"), true)
	require.NoError(t, err)
	sq, err := OpenSQLite(filepath.Join(dir, "slate.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	return map[string]Storage{
		"json":   js,
		"sqlite": sq,
		"memory": NewMemory(),
	}
}

func TestStoragesRoundTrip(t *testing.T) {
	for name, s := range storages(t) {
		t.Run(name, func(t *testing.T) {
			in := Data{
				"Shot": Table{
					1: types.Record{"code": "0100.0010", "frames": int64(48)},
					2: types.Record{"code": "0100.0020", "fps": 23.976},
					3: types.Record{"fps": 24.0, "meta": map[string]any{
						"x": 2.0, "n": int64(1), "l": []any{1.0, "a"}, "big": 1e21,
					}},
				},
				"_schema": Table{1: types.Record{"entity_type": "Shot"}},
				"Empty":   Table{},
			}
			require.NoError(t, s.Write(in))

			out, err := s.Read()
			require.NoError(t, err)
			assert.Equal(t, in["Shot"], out["Shot"])
			assert.Equal(t, in["_schema"], out["_schema"])
			assert.Contains(t, out, "Empty")

			require.NoError(t, s.Write(Data{"Shot": Table{3: types.Record{"code": "x"}}}))
			out, err = s.Read()
			require.NoError(t, err)
			assert.Equal(t, Data{"Shot": Table{3: types.Record{"code": "x"}}}, out)
		})
	}
}

func TestOpenSQLiteRequiresFile(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "missing.db"), false)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestDecodeRejectsBadIDs(t *testing.T) {
	_, err := Decode([]byte(`{"Shot": {"one": {}}}`))
	assert.Error(t, err)

	data, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestReloadDiscardsUnflushedChanges(t *testing.T) {
	db, err := Open(NewMemory())
	require.NoError(t, err)
	require.NoError(t, db.Insert("Shot", 1, types.Record{"code": "a"}))
	require.NoError(t, db.Flush())

	require.NoError(t, db.Insert("Shot", 2, types.Record{"code": "b"}))
	require.NoError(t, db.Reload())

	assert.Nil(t, db.Get("Shot", 2))
	assert.NotNil(t, db.Get("Shot", 1))
}
