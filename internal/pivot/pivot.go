// Package pivot keeps link fields out of persisted entity records. On write
// it turns the link fields of active entities into rows of shared relation
// tables; on read it rebuilds every link field, forward and reverse, from
// those rows.
//
// Retired records emit no rows. Retiring an entity therefore drops it from
// every partner's reverse field at the next write, and reviving it restores
// both sides.
package pivot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/slate/internal/docstore"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// Relation row columns.
const (
	ColLeft    = "left"
	ColLeftID  = "left_id"
	ColRight   = "right"
	ColRightID = "right_id"
)

// Storage is a docstore.Storage middleware that normalizes link fields.
type Storage struct {
	inner  docstore.Storage
	logger *zap.Logger
}

// Wrap returns a pivot storage over inner.
func Wrap(inner docstore.Storage, logger *zap.Logger) *Storage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Storage{inner: inner, logger: logger}
}

// Close closes the inner storage.
func (s *Storage) Close() error {
	return s.inner.Close()
}

// ThisKey is the endpoint key of a link field's own side.
func ThisKey(f types.FieldSpec) string {
	return f.EntityType + "." + f.Name
}

// LinkKey is the endpoint key of the far side of a link to linkType.
func LinkKey(f types.FieldSpec, linkType string) string {
	if f.LinkField == "" {
		return linkType
	}
	return linkType + "." + f.LinkField
}

// endpointType returns the entity type named by an endpoint key.
func endpointType(key string) string {
	if i := strings.Index(key, "."); i >= 0 {
		return key[:i]
	}
	return key
}

// schema is the part of a snapshot the protocol needs.
type schema struct {
	entityTypes []string
	fields      map[string][]types.FieldSpec
}

func loadSchema(data docstore.Data) (schema, error) {
	sc := schema{fields: map[string][]types.FieldSpec{}}
	for _, id := range sortedIDs(data[types.SchemaTable]) {
		r := data[types.SchemaTable][id]
		if name, ok := r["entity_type"].(string); ok {
			sc.entityTypes = append(sc.entityTypes, name)
		}
	}
	for _, id := range sortedIDs(data[types.FieldsTable]) {
		spec, err := types.DecodeFieldSpec(data[types.FieldsTable][id])
		if err != nil {
			return schema{}, fmt.Errorf("field definition %d: %w", id, err)
		}
		sc.fields[spec.EntityType] = append(sc.fields[spec.EntityType], spec)
	}
	return sc, nil
}

func (sc schema) linkFields(entityType string) []types.FieldSpec {
	var out []types.FieldSpec
	for _, f := range sc.fields[entityType] {
		if f.IsLink() {
			out = append(out, f)
		}
	}
	return out
}

func (sc schema) relationTables() map[string]bool {
	tables := map[string]bool{}
	for _, et := range sc.entityTypes {
		for _, f := range sc.linkFields(et) {
			tables[f.RelationTable()] = true
		}
	}
	return tables
}

// checkCollisions fails if a relation table would overwrite a reserved table
// or the records of an entity type.
func (sc schema) checkCollisions(relationTables map[string]bool) error {
	taken := map[string]bool{}
	for _, name := range types.ReservedTableNames {
		taken[name] = true
	}
	for _, et := range sc.entityTypes {
		taken[types.TableName(et, false)] = true
		taken[types.TableName(et, true)] = true
	}
	for name := range relationTables {
		if taken[name] || types.IsRetiredTable(name) {
			return fmt.Errorf("%w: relation table '%s' collides with a record table", types.ErrStorage, name)
		}
	}
	return nil
}

func sortedIDs(t docstore.Table) []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

type endpoint struct {
	key string
	id  int
}

func (e endpoint) less(o endpoint) bool {
	if e.key != o.key {
		return e.key < o.key
	}
	return e.id < o.id
}

func (e endpoint) String() string {
	return e.key + "#" + strconv.Itoa(e.id)
}

type row struct {
	left, right endpoint
}

func newRow(a, b endpoint) row {
	if b.less(a) {
		a, b = b, a
	}
	return row{left: a, right: b}
}

func (r row) record() types.Record {
	return types.Record{
		ColLeft:    r.left.key,
		ColLeftID:  r.left.id,
		ColRight:   r.right.key,
		ColRightID: r.right.id,
	}
}

func rowFromRecord(rec types.Record) (row, bool) {
	lk, ok1 := rec[ColLeft].(string)
	rk, ok2 := rec[ColRight].(string)
	lid, ok3 := types.ToInt(rec[ColLeftID])
	rid, ok4 := types.ToInt(rec[ColRightID])
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return row{}, false
	}
	return row{left: endpoint{lk, lid}, right: endpoint{rk, rid}}, true
}
