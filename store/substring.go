package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jacentio/tessera/schema"
)

// fanout returns the substring rows of a value: every suffix of its
// lower-cased first maxRunes runes, longest first. A prefix scan over the
// suffixes finds every value containing a fragment.
func fanout(value string, maxRunes int) []string {
	runes := []rune(strings.ToLower(value))
	if len(runes) > maxRunes {
		runes = runes[:maxRunes]
	}
	out := make([]string, 0, len(runes))
	for i := range runes {
		out = append(out, string(runes[i:]))
	}
	return out
}

// SearchSubstring returns rows whose Substring field contains fragment,
// case-insensitively. Matches are looked for within the first
// Config.SubstringMaxRunes runes of each value. Rows are grouped by value in
// substring order and capped at limit (<= 0 uses Config.PageSize).
func (s *Store) SearchSubstring(ctx context.Context, field string, group int64, fragment string, limit int) ([]*Row, error) {
	f, ok := s.entity.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownField, field)
	}
	if f.Kind != schema.Substring {
		return nil, fmt.Errorf("%w: field %q is not a substring field", ErrUnsupported, field)
	}
	limit = s.pageSize(limit)

	t := s.table(schema.SubstringTable(s.entity.Name(), f.Name))
	q := s.query(t, []Cond{
		{Column: schema.ColGroup, Op: Eq, Value: Int(group)},
		{Column: schema.ColSubstring, Op: Prefix, Value: Text(strings.ToLower(fragment))},
	}, s.config.SearchScanLimit)

	recs, err := s.session.Query(ctx, q, s.config.ReadConsistency)
	if err != nil {
		return nil, storeErr("search_substring", s.config.ReadConsistency, err)
	}

	seen := make(map[string]bool)
	var rows []*Row
	for _, rec := range recs {
		v := rec[schema.ColValue]
		if v.Kind() != KindText || seen[v.AsText()] {
			continue
		}
		seen[v.AsText()] = true

		// Fan-out rows left behind by a shared old value resolve to nothing
		matches, err := s.ListByField(ctx, field, group, v, limit-len(rows))
		if err != nil {
			return nil, err
		}
		rows = append(rows, matches...)
		if len(rows) >= limit {
			break
		}
	}
	return rows, nil
}
