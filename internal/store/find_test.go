package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/slate/internal/clock"
	"github.com/mesh-intelligence/slate/internal/filter"
	"github.com/mesh-intelligence/slate/pkg/types"
)

func TestReadAll(t *testing.T) {
	s := seed(t)

	tests := []struct {
		name       string
		entityType string
		filters    []types.Filter
		want       []int
	}{
		{"no filters", "Shot", nil, []int{1, 2, 3}},
		{"text prefix", "Shot", []types.Filter{types.F("code", filter.OpStartsWith, "0100")}, []int{1, 2}},
		{"conjunction", "Shot", []types.Filter{
			types.F("code", filter.OpStartsWith, "0100"),
			types.F("code", filter.OpEndsWith, "20"),
		}, []int{2}},
		{"by id", "Shot", []types.Filter{types.F("id", filter.OpIn, []any{1, 3})}, []int{1, 3}},
		{"entity link", "Shot", []types.Filter{types.F("sequence", filter.OpIs, ref("Sequence", 1))}, []int{1, 2}},
		{"multi link membership", "Asset", []types.Filter{types.F("shots", filter.OpIs, ref("Shot", 3))}, []int{1}},
		{"multi link any", "Asset", []types.Filter{types.F("shots", filter.OpIn, []any{ref("Shot", 1), ref("Shot", 2)})}, []int{1, 2}},
		{"missing field never matches", "Shot", []types.Filter{types.F("frames", filter.OpIsNot, 10)}, []int{1}},
		{"default applied", "Shot", []types.Filter{types.F("status", filter.OpIs, "wip")}, []int{1, 2, 3}},
		{"no match", "Shot", []types.Filter{types.F("code", filter.OpIs, "9999")}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.ReadAll(tt.entityType, tt.filters, []string{"code"}, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, recordIDs(recs))
		})
	}
}

func TestReadOne(t *testing.T) {
	s := seed(t)

	rec, err := s.ReadOne("Shot", []types.Filter{types.F("code", filter.OpStartsWith, "0100")}, []string{"code"}, false)
	require.NoError(t, err)
	assert.Equal(t, types.Record{"id": 1, "type": "Shot", "code": "0100.0010"}, rec)

	rec, err = s.ReadOne("Shot", []types.Filter{types.F("code", filter.OpIs, "none")}, nil, false)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestReadRetiredOnly(t *testing.T) {
	s := seed(t)
	_, err := s.Delete("Shot", 2)
	require.NoError(t, err)

	retired, err := s.ReadAll("Shot", nil, []string{"code"}, true)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, recordIDs(retired))

	active, err := s.ReadAll("Shot", nil, []string{"code"}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, recordIDs(active))
}

func TestReadErrors(t *testing.T) {
	s := seed(t)

	tests := []struct {
		name    string
		filters []types.Filter
		fields  []string
		want    error
	}{
		{"unknown entity field", []types.Filter{types.F("nope", filter.OpIs, 1)}, nil, types.ErrSchema},
		{"unknown operator", []types.Filter{types.F("code", "like", "x")}, nil, types.ErrFilterSpec},
		{"wrong arity", []types.Filter{types.F("code", filter.OpBetween, "a")}, nil, types.ErrFilterSpec},
		{"deep on scalar field", []types.Filter{types.F("code.Sequence.code", filter.OpIs, "x")}, nil, types.ErrSchema},
		{"deep to unlinked type", []types.Filter{types.F("sequence.Shot.code", filter.OpIs, "x")}, nil, types.ErrLinkType},
		{"deep to unknown type", []types.Filter{types.F("sequence.Nope.code", filter.OpIs, "x")}, nil, types.ErrSchema},
		{"short deep name", []types.Filter{types.F("sequence.Sequence", filter.OpIs, "x")}, nil, types.ErrFilterSpec},
		{"deep tail unknown", []types.Filter{types.F("sequence.Sequence.nope", filter.OpIs, "x")}, nil, types.ErrSchema},
		{"unknown return field", nil, []string{"nope"}, types.ErrSchema},
		{"deep return on scalar", nil, []string{"code.Sequence.code"}, types.ErrSchema},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.ReadAll("Shot", tt.filters, tt.fields, false)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := s.ReadAll("Nope", nil, nil, false)
	assert.ErrorIs(t, err, types.ErrSchema)
}

func TestDeepFilter(t *testing.T) {
	s := seed(t)

	tests := []struct {
		name       string
		entityType string
		filters    []types.Filter
		want       []int
	}{
		{"one hop", "Shot", []types.Filter{types.F("sequence.Sequence.code", filter.OpIs, "0200")}, []int{3}},
		{"one hop many targets", "Shot", []types.Filter{types.F("sequence.Sequence.code", filter.OpIn, []any{"0100", "0200"})}, []int{1, 2, 3}},
		{"no targets", "Shot", []types.Filter{types.F("sequence.Sequence.code", filter.OpIs, "9999")}, []int{}},
		{"shared head merges tails", "Shot", []types.Filter{
			types.F("sequence.Sequence.code", filter.OpStartsWith, "0"),
			types.F("sequence.Sequence.code", filter.OpEndsWith, "200"),
		}, []int{3}},
		{"two hops through multi link", "Asset", []types.Filter{
			types.F("shots.Shot.sequence.Sequence.code", filter.OpIs, "0200"),
		}, []int{1}},
		{"deep and local", "Shot", []types.Filter{
			types.F("sequence.Sequence.code", filter.OpIs, "0100"),
			types.F("code", filter.OpEndsWith, "20"),
		}, []int{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.ReadAll(tt.entityType, tt.filters, []string{"code"}, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, recordIDs(recs))
		})
	}
}

func TestDeepFilterMatchesManualResolution(t *testing.T) {
	s := seed(t)

	for _, code := range []string{"0100", "0200", "9999"} {
		deep, err := s.ReadAll("Shot", []types.Filter{types.F("sequence.Sequence.code", filter.OpIs, code)}, []string{"code"}, false)
		require.NoError(t, err)

		seqs, err := s.ReadAll("Sequence", []types.Filter{types.F("code", filter.OpIs, code)}, []string{"code"}, false)
		require.NoError(t, err)
		targets := make([]any, len(seqs))
		for i, r := range seqs {
			targets[i] = r.Handle()
		}
		manual, err := s.ReadAll("Shot", []types.Filter{types.F("sequence", filter.OpIn, targets)}, []string{"code"}, false)
		require.NoError(t, err)

		assert.Equal(t, recordIDs(manual), recordIDs(deep), code)
	}
}

func TestResolveFilters(t *testing.T) {
	s := seed(t)

	got, err := s.ResolveFilters("Shot", []types.Filter{types.F("sequence.Sequence.code", filter.OpIs, "0200")})
	require.NoError(t, err)
	assert.Equal(t, []types.Filter{types.F("sequence", filter.OpIs, types.Handle{Type: "Sequence", ID: 2})}, got)

	got, err = s.ResolveFilters("Shot", []types.Filter{types.F("sequence.Sequence.project.Project.code", filter.OpIs, "test")})
	require.NoError(t, err)
	assert.Equal(t, []types.Filter{types.F("sequence", filter.OpIn, []types.Handle{
		{Type: "Sequence", ID: 1},
		{Type: "Sequence", ID: 2},
	})}, got)

	got, err = s.ResolveFilters("Shot", []types.Filter{types.F("sequence.Sequence.code", filter.OpIs, "9999")})
	require.NoError(t, err)
	assert.Equal(t, []types.Filter{types.F("sequence", filter.OpIs, types.NullHandle("Sequence"))}, got)

	local := types.F("code", filter.OpIs, "0100.0010")
	got, err = s.ResolveFilters("Shot", []types.Filter{local})
	require.NoError(t, err)
	assert.Equal(t, []types.Filter{local}, got)
}

func TestDeepReturnFields(t *testing.T) {
	s := seed(t)

	rec, err := s.ReadOne("Asset", []types.Filter{types.F("id", filter.OpIs, 1)},
		[]string{"code", "shots.Shot.sequence"}, false)
	require.NoError(t, err)

	withSequence := func(shot types.Handle, seq types.Handle) types.Handle {
		shot.Fields = map[string]any{"sequence": seq}
		return shot
	}
	assert.Equal(t, types.Record{
		"id":   1,
		"type": "Asset",
		"code": "the_hero",
		"shots": []types.Handle{
			withSequence(named("Shot", 1, "0100.0010"), named("Sequence", 1, "0100")),
			withSequence(named("Shot", 3, "0200.0010"), named("Sequence", 2, "0200")),
		},
	}, rec)

	rec, err = s.ReadOne("Asset", []types.Filter{types.F("id", filter.OpIs, 2)},
		[]string{"shots.Shot.sequence.Sequence.project"}, false)
	require.NoError(t, err)
	seq := named("Sequence", 1, "0100")
	seq.Fields = map[string]any{"project": named("Project", 1, "test")}
	assert.Equal(t, []types.Handle{withSequence(named("Shot", 1, "0100.0010"), seq)}, rec["shots"])
}

func TestCalendarFilterOnDates(t *testing.T) {
	defer clock.Freeze(time.Date(2024, 3, 15, 9, 0, 0, 0, time.Local))()
	s := seed(t)

	_, err := s.CreateField("Shot", "due", types.FieldSpec{Type: types.FieldDate})
	require.NoError(t, err)
	for id, due := range map[int]time.Time{
		1: time.Date(2024, 3, 15, 0, 0, 0, 0, time.Local),
		2: time.Date(2024, 3, 20, 0, 0, 0, 0, time.Local),
		3: time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local),
	} {
		_, err := s.Update("Shot", id, map[string]any{"due": due}, nil)
		require.NoError(t, err)
	}

	recs, err := s.ReadAll("Shot", []types.Filter{types.F("due", filter.OpInNext, 1, "WEEK")}, []string{"due"}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, recordIDs(recs))
	assert.Equal(t, "2024-03-20", recs[1]["due"])

	recs, err = s.ReadAll("Shot", []types.Filter{types.F("due", filter.OpInCalendar, 2, "MONTH")}, []string{"due"}, false)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, recordIDs(recs))
}

func addShotValueFields(t *testing.T, s *Store) {
	t.Helper()
	for name, ft := range map[string]types.FieldType{
		"tags":  types.FieldTextList,
		"meta":  types.FieldJSON,
		"ratio": types.FieldFloat,
	} {
		_, err := s.CreateField("Shot", name, types.FieldSpec{Type: ft})
		require.NoError(t, err)
	}
}

func TestReadResultsDoNotShareCache(t *testing.T) {
	s := seed(t)
	addShotValueFields(t, s)
	_, err := s.Update("Shot", 1, map[string]any{
		"tags": []string{"hero"},
		"meta": map[string]any{"k": "v", "list": []any{"a"}},
	}, nil)
	require.NoError(t, err)

	byID := []types.Filter{types.F("id", "is", 1)}
	for _, returnFields := range [][]string{nil, {"tags", "meta"}} {
		rec, err := s.ReadOne("Shot", byID, returnFields, false)
		require.NoError(t, err)
		rec["tags"].([]string)[0] = "changed"
		rec["meta"].(map[string]any)["k"] = "changed"
		rec["meta"].(map[string]any)["list"].([]any)[0] = "changed"
	}
	all, err := s.ReadAll("Shot", byID, nil, false)
	require.NoError(t, err)
	all[0]["tags"].([]string)[0] = "changed"

	_, err = s.Update("Shot", 2, map[string]any{"frames": 5}, nil)
	require.NoError(t, err)

	rec, err := s.ReadOne("Shot", byID, []string{"tags", "meta"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, rec["tags"])
	assert.Equal(t, map[string]any{"k": "v", "list": []any{"a"}}, rec["meta"])
}

func TestCreateInputIsNotRetained(t *testing.T) {
	s := seed(t)
	addShotValueFields(t, s)
	tags := []string{"hero"}
	meta := map[string]any{"k": "v"}
	_, err := s.Create("Shot", map[string]any{"code": "0300.0010", "tags": tags, "meta": meta}, nil)
	require.NoError(t, err)

	tags[0] = "changed"
	meta["k"] = "changed"

	rec, err := s.ReadOne("Shot", []types.Filter{types.F("code", "is", "0300.0010")}, []string{"tags", "meta"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, rec["tags"])
	assert.Equal(t, map[string]any{"k": "v"}, rec["meta"])
}
