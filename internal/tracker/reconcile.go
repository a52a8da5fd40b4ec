package tracker

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/issuesync/issuesync/internal/types"
)

// Reconcile classifies issues against the existing rows.
//
// Issues without a row are scheduled for insert. Issues with a row are
// scheduled for update when any tracked field differs (see TrackedFields;
// timestamps are never compared). Everything else is counted as unchanged.
//
// Reconcile performs no I/O. It fails only when the rows violate the join
// key invariant: two rows share an issue number, or a row's issue number is
// unreadable.
func Reconcile(issues []types.Issue, rows []types.Row) (*Plan, error) {
	index, unkeyed, err := IndexRows(rows)
	if err != nil {
		return nil, err
	}

	plan := &Plan{UnkeyedRows: unkeyed}
	for _, issue := range issues {
		row, ok := index[issue.Number]
		if !ok {
			plan.Insert = append(plan.Insert, issue)
			continue
		}

		projected := Project(issue)
		changed, malformed := rowDiffers(projected, row)
		if malformed != nil {
			plan.Malformed = append(plan.Malformed, malformed)
		}
		if !changed {
			plan.Unchanged++
			continue
		}

		plan.Update = append(plan.Update, UpdatePair{
			Issue: issue,
			RowID: row.ID,
			Clear: clearedFields(projected, row),
		})
	}
	return plan, nil
}

// IndexRows builds the issue number → row map used for matching. Rows with
// no issue number are returned separately and take no part in matching.
func IndexRows(rows []types.Row) (map[int]types.Row, []string, error) {
	index := make(map[int]types.Row, len(rows))
	var unkeyed []string
	dups := make(map[int][]string)

	for _, row := range rows {
		number, ok, err := joinKey(row)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			unkeyed = append(unkeyed, row.ID)
			continue
		}
		if prev, exists := index[number]; exists {
			if len(dups[number]) == 0 {
				dups[number] = append(dups[number], prev.ID)
			}
			dups[number] = append(dups[number], row.ID)
			continue
		}
		index[number] = row
	}

	if len(dups) > 0 {
		keys := make([]DuplicateKey, 0, len(dups))
		for number, ids := range dups {
			keys = append(keys, DuplicateKey{Number: number, RowIDs: ids})
		}
		sort.Slice(keys, func(i, j int) bool { return keys[i].Number < keys[j].Number })
		return nil, nil, &DuplicateKeyError{Keys: keys}
	}
	return index, unkeyed, nil
}

// joinKey reads a row's issue number. ok is false when the row has none.
func joinKey(row types.Row) (number int, ok bool, err error) {
	v := row.Fields[types.FieldIssueNumber]
	malformed := &MalformedRowError{RowID: row.ID, Field: types.FieldIssueNumber, Value: v}

	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case int:
		return x, true, nil
	case int64:
		return int(x), true, nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return 0, false, malformed
		}
		return int(x), true, nil
	case json.Number:
		n, err := strconv.Atoi(x.String())
		if err != nil {
			return 0, false, malformed
		}
		return n, true, nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false, nil
		}
		n, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
		if err != nil {
			return 0, false, malformed
		}
		return n, true, nil
	default:
		return 0, false, malformed
	}
}

// rowDiffers compares tracked fields and stops at the first difference.
// A stored value of an unexpected type counts as a difference and is
// reported so the caller can warn about it.
func rowDiffers(projected types.Fields, row types.Row) (bool, *MalformedFieldError) {
	for _, field := range types.TrackedFields {
		want := projected[field]
		have := row.Fields[field]

		// The row was matched on this value, so it is read the same way.
		if field == types.FieldIssueNumber {
			number, ok, err := joinKey(row)
			if err != nil || !ok || number != want {
				return true, nil
			}
			continue
		}

		if field == types.FieldLabels {
			if stored, isList, ok := storedList(have); isList {
				if !ok {
					return true, &MalformedFieldError{RowID: row.ID, Field: field, Value: have}
				}
				wantStr, _ := canonical(want)
				if labelSetDiffers(wantStr, stored) {
					return true, nil
				}
				continue
			}
		}

		wantStr, _ := canonical(want)
		haveStr, ok := canonical(have)
		if !ok {
			return true, &MalformedFieldError{RowID: row.ID, Field: field, Value: have}
		}
		if wantStr != haveStr {
			return true, nil
		}
	}
	return false, nil
}

// clearedFields lists columns the projection leaves out while the row still
// holds a value. Patching only sends present keys, so these must be nulled
// explicitly or the difference would be detected again on every run.
func clearedFields(projected types.Fields, row types.Row) []string {
	var clear []string
	for _, field := range types.TrackedFields {
		if _, present := projected[field]; present {
			continue
		}
		if s, ok := canonical(row.Fields[field]); !ok || s != "" {
			clear = append(clear, field)
		}
	}
	return clear
}

// labelSetDiffers compares a comma-joined label string with a stored
// multi-value cell, ignoring order and empty entries.
func labelSetDiffers(projected string, stored []string) bool {
	have := make(map[string]struct{}, len(stored))
	for _, s := range stored {
		if s != "" {
			have[s] = struct{}{}
		}
	}

	want := make(map[string]struct{})
	for _, tok := range strings.Split(projected, ",") {
		if tok != "" {
			want[tok] = struct{}{}
		}
	}

	if len(have) > 0 && len(want) == 0 {
		return true
	}
	if len(have) != len(want) {
		return true
	}
	for tok := range want {
		if _, ok := have[tok]; !ok {
			return true
		}
	}
	return false
}

// storedList unpacks a multi-value cell. isList is false for scalars; ok is
// false when an entry cannot be rendered as a string.
func storedList(v interface{}) (items []string, isList bool, ok bool) {
	switch x := v.(type) {
	case []string:
		return x, true, true
	case []interface{}:
		items = make([]string, 0, len(x))
		for _, e := range x {
			s, ok := canonical(e)
			if !ok {
				return nil, true, false
			}
			items = append(items, s)
		}
		return items, true, true
	default:
		return nil, false, true
	}
}

// canonical renders a scalar cell value for comparison. nil, a missing key
// and "" all map to "". ok is false for values with no scalar form.
func canonical(v interface{}) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", true
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case json.Number:
		return x.String(), true
	default:
		return "", false
	}
}
