package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsHandle(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   Handle
		wantOK bool
	}{
		{"handle value", Handle{Type: "Shot", ID: 2}, Handle{Type: "Shot", ID: 2}, true},
		{"map with int id", map[string]any{"type": "Shot", "id": 3}, Handle{Type: "Shot", ID: 3}, true},
		{"map with json number id", map[string]any{"type": "Shot", "id": json.Number("4")}, Handle{Type: "Shot", ID: 4}, true},
		{"map with integral float id", map[string]any{"type": "Shot", "id": 5.0}, Handle{Type: "Shot", ID: 5}, true},
		{"map keeps name", map[string]any{"type": "Shot", "id": 1, "name": "0100.0010"}, Handle{Type: "Shot", ID: 1, Name: "0100.0010"}, true},
		{"missing id", map[string]any{"type": "Shot"}, Handle{}, false},
		{"missing type", map[string]any{"id": 1}, Handle{}, false},
		{"fractional id", map[string]any{"type": "Shot", "id": 1.5}, Handle{}, false},
		{"not a map", "Shot", Handle{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsHandle(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestHandleJSONFlattensFields(t *testing.T) {
	h := Handle{Type: "Shot", ID: 1, Name: "0100.0010", Fields: map[string]any{"number": "0010"}}
	data, err := json.Marshal(h)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"Shot","id":1,"name":"0100.0010","number":"0010"}`, string(data))

	var back Handle
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, h, back)
}

func TestHandleUnmarshalRejectsBadShape(t *testing.T) {
	var h Handle
	err := json.Unmarshal([]byte(`{"type":"Shot"}`), &h)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestSortHandlesAndNull(t *testing.T) {
	hs := []Handle{{Type: "Shot", ID: 3}, {Type: "Shot", ID: 1}, {Type: "Asset", ID: 1}}
	SortHandles(hs)
	assert.Equal(t, []Handle{{Type: "Asset", ID: 1}, {Type: "Shot", ID: 1}, {Type: "Shot", ID: 3}}, hs)

	null := NullHandle("Shot")
	assert.Equal(t, NullID, null.ID)
	assert.False(t, null.Same(Handle{Type: "Shot", ID: 1}))
	assert.True(t, hs[1].Same(Handle{Type: "Shot", ID: 1, Name: "x"}))
}

func TestRecordAccessors(t *testing.T) {
	r := Record{"type": "Asset", "id": json.Number("7"), "shots": []Handle{{Type: "Shot", ID: 1}}}
	assert.Equal(t, "Asset", r.Type())
	assert.Equal(t, 7, r.ID())
	assert.Equal(t, Handle{Type: "Asset", ID: 7}, r.Handle())

	c := r.Clone()
	c["shots"].([]Handle)[0].ID = 9
	assert.Equal(t, 1, r["shots"].([]Handle)[0].ID)
}
