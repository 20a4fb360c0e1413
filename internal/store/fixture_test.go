package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/slate/internal/docstore"
	"github.com/mesh-intelligence/slate/pkg/types"
)

func ref(entityType string, id int) map[string]any {
	return map[string]any{"type": entityType, "id": id}
}

func named(entityType string, id int, name string) types.Handle {
	return types.Handle{Type: entityType, ID: id, Name: name}
}

func newStore(t *testing.T, storage docstore.Storage, opts ...Option) *Store {
	t.Helper()
	s, err := Open(storage, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type fieldDef struct {
	entityType string
	name       string
	spec       types.FieldSpec
}

var productionSchema = []fieldDef{
	{"Project", "code", types.FieldSpec{Type: types.FieldText, Required: true, Identifier: true}},

	{"Sequence", "code", types.FieldSpec{Type: types.FieldText, Required: true}},
	{"Sequence", "project", types.FieldSpec{Type: types.FieldEntity, Link: []string{"Project"}}},
	{"Sequence", "shots", types.FieldSpec{Type: types.FieldMultiEntity, Link: []string{"Shot"},
		LinkField: "sequence", Table: "sequence_shots"}},

	{"Shot", "code", types.FieldSpec{Type: types.FieldText, Required: true, Identifier: true}},
	{"Shot", "sequence", types.FieldSpec{Type: types.FieldEntity, Link: []string{"Sequence"},
		LinkField: "shots", Table: "sequence_shots"}},
	{"Shot", "assets", types.FieldSpec{Type: types.FieldMultiEntity, Link: []string{"Asset"},
		LinkField: "shots", Table: "asset_shots"}},
	{"Shot", "frames", types.FieldSpec{Type: types.FieldNumber}},
	{"Shot", "status", types.FieldSpec{Type: types.FieldEnum, Values: []string{"wip", "final"}, Default: "wip"}},

	{"Asset", "code", types.FieldSpec{Type: types.FieldText, Required: true, Identifier: true}},
	{"Asset", "name", types.FieldSpec{Type: types.FieldText, Identifier: true}},
	{"Asset", "asset_type", types.FieldSpec{Type: types.FieldEnum, Values: []string{"Character", "Prop"}, Identifier: true}},
	{"Asset", "project", types.FieldSpec{Type: types.FieldEntity, Link: []string{"Project"}, Identifier: true}},
	{"Asset", "shots", types.FieldSpec{Type: types.FieldMultiEntity, Link: []string{"Shot"},
		LinkField: "assets", Table: "asset_shots"}},
}

// seed builds a store holding:
//
//	Project  1 test, 2 prod
//	Sequence 1 0100, 2 0200 (both in test)
//	Shot     1 0100.0010, 2 0100.0020 (sequence 1), 3 0200.0010 (sequence 2)
//	Asset    1 the_hero (shots 1, 3), 2 the_sword (shot 1)
func seed(t *testing.T, opts ...Option) *Store {
	t.Helper()
	return seedStorage(t, docstore.NewMemory(), opts...)
}

func seedStorage(t *testing.T, storage docstore.Storage, opts ...Option) *Store {
	t.Helper()
	s := newStore(t, storage, opts...)
	for _, et := range []string{"Project", "Sequence", "Shot", "Asset"} {
		_, err := s.CreateEntityType(et)
		require.NoError(t, err)
	}
	for _, f := range productionSchema {
		_, err := s.CreateField(f.entityType, f.name, f.spec)
		require.NoError(t, err, "%s.%s", f.entityType, f.name)
	}

	create := func(et string, data map[string]any) {
		t.Helper()
		_, err := s.Create(et, data, nil)
		require.NoError(t, err)
	}
	create("Project", map[string]any{"code": "test"})
	create("Project", map[string]any{"code": "prod"})
	create("Sequence", map[string]any{"code": "0100", "project": ref("Project", 1)})
	create("Sequence", map[string]any{"code": "0200", "project": ref("Project", 1)})
	create("Shot", map[string]any{"code": "0100.0010", "sequence": ref("Sequence", 1), "frames": 24})
	create("Shot", map[string]any{"code": "0100.0020", "sequence": ref("Sequence", 1)})
	create("Shot", map[string]any{"code": "0200.0010", "sequence": ref("Sequence", 2)})
	create("Asset", map[string]any{"code": "the_hero", "asset_type": "Character",
		"project": ref("Project", 1), "shots": []any{ref("Shot", 1), ref("Shot", 3)}})
	create("Asset", map[string]any{"code": "the_sword", "asset_type": "Prop",
		"project": ref("Project", 1), "shots": []any{ref("Shot", 1)}})
	return s
}

// linked reads one link field of an entity.
func linked(t *testing.T, s *Store, entityType string, id int, field string) []types.Handle {
	t.Helper()
	rec, err := s.ReadOne(entityType, []types.Filter{types.F("id", "is", id)}, []string{field}, false)
	require.NoError(t, err)
	require.NotNil(t, rec, "%s %d", entityType, id)
	return handlesOf(rec[field])
}

func ids(hs []types.Handle) []int {
	out := make([]int, len(hs))
	for i, h := range hs {
		out[i] = h.ID
	}
	return out
}

func recordIDs(recs []types.Record) []int {
	out := make([]int, len(recs))
	for i, r := range recs {
		out[i] = r.ID()
	}
	return out
}

// requireSymmetric checks that every forward link is mirrored by its reverse
// link among active entities.
func requireSymmetric(t *testing.T, s *Store) {
	t.Helper()
	pairs := []struct{ a, f, b, g string }{
		{"Sequence", "shots", "Shot", "sequence"},
		{"Asset", "shots", "Shot", "assets"},
	}
	for _, p := range pairs {
		as, err := s.ReadAll(p.a, nil, []string{p.f}, false)
		require.NoError(t, err)
		bs, err := s.ReadAll(p.b, nil, []string{p.g}, false)
		require.NoError(t, err)

		forward := map[[2]int]bool{}
		for _, x := range as {
			for _, y := range handlesOf(x[p.f]) {
				forward[[2]int{x.ID(), y.ID}] = true
			}
		}
		reverse := map[[2]int]bool{}
		for _, y := range bs {
			for _, x := range handlesOf(y[p.g]) {
				reverse[[2]int{x.ID, y.ID()}] = true
			}
		}
		require.Equal(t, forward, reverse, "%s.%s <-> %s.%s", p.a, p.f, p.b, p.g)
	}
}
