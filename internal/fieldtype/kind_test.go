package fieldtype

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/slate/internal/clock"
	"github.com/mesh-intelligence/slate/pkg/types"
)

func field(t types.FieldType) types.FieldSpec {
	return types.FieldSpec{EntityType: "Asset", Name: "f", Type: t}
}

func TestEveryFieldTypeHasKind(t *testing.T) {
	for _, name := range Names() {
		k, err := Lookup(types.FieldType(name))
		require.NoError(t, err, name)
		assert.Equal(t, types.FieldType(name), k.Type())
	}
	_, err := Lookup("blob")
	assert.ErrorIs(t, err, types.ErrSchema)
}

func TestValidateSpec(t *testing.T) {
	tests := []struct {
		name    string
		spec    types.FieldSpec
		wantErr bool
	}{
		{"bool default true", types.FieldSpec{Name: "f", Type: types.FieldBool, Default: true}, false},
		{"bool default string", types.FieldSpec{Name: "f", Type: types.FieldBool, Default: "yes"}, true},
		{"date default flag", types.FieldSpec{Name: "f", Type: types.FieldDate, Default: true}, false},
		{"date_time default string", types.FieldSpec{Name: "f", Type: types.FieldDateTime, Default: "now"}, true},
		{"entity without link", types.FieldSpec{Name: "f", Type: types.FieldEntity}, true},
		{"entity with default", types.FieldSpec{Name: "f", Type: types.FieldEntity, Link: []string{"Shot"}, Default: 1}, true},
		{"entity with link", types.FieldSpec{Name: "f", Type: types.FieldEntity, Link: []string{"Shot"}}, false},
		{"multi entity without link", types.FieldSpec{Name: "f", Type: types.FieldMultiEntity}, true},
		{"enum without values", types.FieldSpec{Name: "f", Type: types.FieldEnum}, true},
		{"enum default member", types.FieldSpec{Name: "f", Type: types.FieldEnum, Values: []string{"a", "b"}, Default: "b"}, false},
		{"enum default not member", types.FieldSpec{Name: "f", Type: types.FieldEnum, Values: []string{"a", "b"}, Default: "c"}, true},
		{"float default int", types.FieldSpec{Name: "f", Type: types.FieldFloat, Default: 3}, false},
		{"float default text", types.FieldSpec{Name: "f", Type: types.FieldFloat, Default: "3"}, true},
		{"number default int", types.FieldSpec{Name: "f", Type: types.FieldNumber, Default: 3}, false},
		{"number default json number", types.FieldSpec{Name: "f", Type: types.FieldNumber, Default: json.Number("3")}, false},
		{"number default float", types.FieldSpec{Name: "f", Type: types.FieldNumber, Default: 3.5}, true},
		{"json default", types.FieldSpec{Name: "f", Type: types.FieldJSON, Default: map[string]any{}}, true},
		{"text default", types.FieldSpec{Name: "f", Type: types.FieldText, Default: "x"}, true},
		{"text_list default", types.FieldSpec{Name: "f", Type: types.FieldTextList, Default: []string{"x"}}, true},
		{"missing type", types.FieldSpec{Name: "f"}, true},
		{"missing name", types.FieldSpec{Type: types.FieldText}, true},
		{"unknown type", types.FieldSpec{Name: "f", Type: "blob"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSpec(tt.spec)
			if tt.wantErr {
				assert.ErrorIs(t, err, types.ErrSchema)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestHandleValue(t *testing.T) {
	defer clock.Freeze(time.Date(2024, 3, 9, 14, 5, 6, 0, time.Local))()

	shotLink := types.FieldSpec{EntityType: "Asset", Name: "shots", Type: types.FieldMultiEntity, Link: []string{"Shot"}}
	projectLink := types.FieldSpec{EntityType: "Asset", Name: "project", Type: types.FieldEntity, Link: []string{"Project"}}
	enum := types.FieldSpec{EntityType: "Asset", Name: "status", Type: types.FieldEnum, Values: []string{"Active", "Hold"}, Default: "Active"}

	tests := []struct {
		name string
		spec types.FieldSpec
		in   any
		want any
	}{
		{"bool nil defaults false", field(types.FieldBool), nil, false},
		{"bool nil uses default", types.FieldSpec{Type: types.FieldBool, Default: true}, nil, true},
		{"bool from int", field(types.FieldBool), 1, true},
		{"date from time", field(types.FieldDate), time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), "2020-01-02"},
		{"date nil without default", field(types.FieldDate), nil, nil},
		{"date nil with default is today", types.FieldSpec{Type: types.FieldDate, Default: true}, nil, "2024-03-09"},
		{"date_time from time", field(types.FieldDateTime), time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), "2020-01-02 03:04:05"},
		{"date_time nil with default is now", types.FieldSpec{Type: types.FieldDateTime, Default: true}, nil, "2024-03-09 14:05:06"},
		{"entity nil", projectLink, nil, nil},
		{"entity truncated", projectLink, map[string]any{"type": "Project", "id": 1, "name": "test"}, types.Handle{Type: "Project", ID: 1}},
		{"multi entity nil", shotLink, nil, nil},
		{"multi entity empty", shotLink, []any{}, []types.Handle{}},
		{"multi entity list", shotLink, []any{map[string]any{"type": "Shot", "id": 2}, types.Handle{Type: "Shot", ID: 1, Name: "x"}},
			[]types.Handle{{Type: "Shot", ID: 2}, {Type: "Shot", ID: 1}}},
		{"enum empty uses default", enum, "", "Active"},
		{"enum member", enum, "Hold", "Hold"},
		{"float from int", field(types.FieldFloat), 2, 2.0},
		{"float from json number", field(types.FieldFloat), json.Number("2.5"), 2.5},
		{"float nil default", types.FieldSpec{Type: types.FieldFloat, Default: 1}, nil, 1.0},
		{"number from int", field(types.FieldNumber), 7, int64(7)},
		{"number from json number", field(types.FieldNumber), json.Number("7"), int64(7)},
		{"number nil no default", field(types.FieldNumber), nil, nil},
		{"json value", field(types.FieldJSON), map[string]any{"a": []any{1, 2}}, map[string]any{"a": []any{int64(1), int64(2)}}},
		{"json keeps whole floats", field(types.FieldJSON), map[string]any{"x": 2.0, "n": 3, "l": []float64{1, 1.5}},
			map[string]any{"x": 2.0, "n": int64(3), "l": []any{1.0, 1.5}}},
		{"text empty is nil", field(types.FieldText), "", nil},
		{"text value", field(types.FieldText), "hero", "hero"},
		{"text_list empty is nil", field(types.FieldTextList), []any{}, nil},
		{"text_list values", field(types.FieldTextList), []any{"a", "b"}, []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := HandleValue(tt.in, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHandleValueCopiesJSON(t *testing.T) {
	in := map[string]any{"k": "v", "list": []any{"a"}}
	got, err := HandleValue(in, types.FieldSpec{Name: "meta", Type: types.FieldJSON})
	require.NoError(t, err)

	in["k"] = "changed"
	in["list"].([]any)[0] = "changed"
	assert.Equal(t, map[string]any{"k": "v", "list": []any{"a"}}, got)
}

func TestHandleValueRejects(t *testing.T) {
	shotLink := types.FieldSpec{EntityType: "Asset", Name: "shots", Type: types.FieldMultiEntity, Link: []string{"Shot"}}
	projectLink := types.FieldSpec{EntityType: "Asset", Name: "project", Type: types.FieldEntity, Link: []string{"Project"}}
	enum := types.FieldSpec{EntityType: "Asset", Name: "status", Type: types.FieldEnum, Values: []string{"Active", "Hold"}}

	tests := []struct {
		name    string
		spec    types.FieldSpec
		in      any
		wantErr error
	}{
		{"bool from text", field(types.FieldBool), "yes", types.ErrInvalidValue},
		{"date from text", field(types.FieldDate), "2020-01-02", types.ErrInvalidValue},
		{"entity without id", projectLink, map[string]any{"type": "Project"}, types.ErrInvalidValue},
		{"entity without type", projectLink, map[string]any{"id": 1}, types.ErrInvalidValue},
		{"entity wrong link type", projectLink, map[string]any{"type": "Shot", "id": 1}, types.ErrLinkType},
		{"multi entity not a list", shotLink, map[string]any{"type": "Shot", "id": 1}, types.ErrInvalidValue},
		{"multi entity bad element", shotLink, []any{map[string]any{"type": "Shot", "id": 1}, map[string]any{"type": "Asset", "id": 1}}, types.ErrLinkType},
		{"enum not member", enum, "Gone", types.ErrInvalidValue},
		{"float from text", field(types.FieldFloat), "1.5", types.ErrInvalidValue},
		{"number from float", field(types.FieldNumber), 1.5, types.ErrInvalidValue},
		{"number from fractional json number", field(types.FieldNumber), json.Number("1.5"), types.ErrInvalidValue},
		{"json unserializable", field(types.FieldJSON), map[string]any{"c": make(chan int)}, types.ErrInvalidValue},
		{"text from int", field(types.FieldText), 4, types.ErrInvalidValue},
		{"text_list bad element", field(types.FieldTextList), []any{"a", 2}, types.ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := HandleValue(tt.in, tt.spec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateMultiEntity(t *testing.T) {
	shot1 := types.Handle{Type: "Shot", ID: 1}
	shot2 := types.Handle{Type: "Shot", ID: 2}
	shot3 := types.Handle{Type: "Shot", ID: 3}

	old := []types.Handle{shot1}
	next := []types.Handle{shot2}

	assert.Equal(t, []types.Handle{shot1, shot2}, UpdateMultiEntity(old, next, types.UpdateAdd))
	assert.Equal(t, []types.Handle{shot1}, UpdateMultiEntity(old, next, types.UpdateRemove))
	assert.Equal(t, []types.Handle{shot2}, UpdateMultiEntity(old, next, types.UpdateSet))
	assert.Equal(t, []types.Handle{shot2}, UpdateMultiEntity(old, next, ""))

	t.Run("add keeps existing order", func(t *testing.T) {
		got := UpdateMultiEntity([]types.Handle{shot3, shot1}, []types.Handle{shot1, shot2}, types.UpdateAdd)
		assert.Equal(t, []types.Handle{shot3, shot1, shot2}, got)
	})

	t.Run("remove ignores absent keys", func(t *testing.T) {
		got := UpdateMultiEntity([]types.Handle{shot1, shot2}, []types.Handle{shot3, shot1}, types.UpdateRemove)
		assert.Equal(t, []types.Handle{shot2}, got)
	})

	t.Run("unknown mode panics", func(t *testing.T) {
		assert.Panics(t, func() { UpdateMultiEntity(old, next, "merge") })
		assert.Equal(t, []types.Handle{shot1}, old)
	})
}
