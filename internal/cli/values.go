package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/mesh-intelligence/slate/internal/clock"
	"github.com/mesh-intelligence/slate/internal/docstore"
	"github.com/mesh-intelligence/slate/internal/fieldtype"
	"github.com/mesh-intelligence/slate/pkg/slate"
	"github.com/mesh-intelligence/slate/pkg/types"
)

// parseObject decodes a JSON object argument. Integral numbers become
// int64, others float64.
func parseObject(arg string) (map[string]any, error) {
	rec, err := docstore.DecodeRecord([]byte(arg))
	if err != nil {
		return nil, fmt.Errorf("%w: expected a JSON object: %v", types.ErrInvalidValue, err)
	}
	return rec, nil
}

// parseFilters decodes a JSON list of [field, operator, value...] lists.
func parseFilters(arg string) ([]types.Filter, error) {
	if arg == "" {
		return nil, nil
	}
	var filters []types.Filter
	if err := json.Unmarshal([]byte(arg), &filters); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON list of filters: %v", types.ErrFilterSpec, err)
	}
	return filters, nil
}

// parseModes decodes field=mode pairs.
func parseModes(pairs []string) (map[string]types.UpdateMode, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	modes := make(map[string]types.UpdateMode, len(pairs))
	for _, p := range pairs {
		field, mode, ok := strings.Cut(p, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("%w: invalid mode %q (expected field=add|remove|set)", types.ErrUpdateMode, p)
		}
		modes[field] = types.UpdateMode(mode)
	}
	return modes, nil
}

var dateParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseTime reads a date given as YYYY-MM-DD, YYYY-MM-DD HH:MM:SS, RFC 3339
// or a natural-language phrase such as "next friday".
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{fieldtype.DateTimeLayout, fieldtype.DateLayout} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	r, err := dateParser.Parse(s, clock.Now())
	if err != nil {
		return time.Time{}, err
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: cannot read %q as a date", types.ErrInvalidValue, s)
	}
	return r.Time, nil
}

// convertDates replaces text values of date and date_time fields with the
// times they describe. Fields unknown to the schema are left for the store
// to reject.
func convertDates(s *slate.Store, entityType string, data map[string]any) error {
	for name, v := range data {
		text, ok := v.(string)
		if !ok {
			continue
		}
		spec, err := s.ReadField(entityType, name)
		if err != nil {
			continue
		}
		if spec.Type != types.FieldDate && spec.Type != types.FieldDateTime {
			continue
		}
		t, err := parseTime(text)
		if err != nil {
			return fmt.Errorf("field '%s.%s': %w", entityType, name, err)
		}
		data[name] = t
	}
	return nil
}

// splitList splits a comma-separated flag value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
