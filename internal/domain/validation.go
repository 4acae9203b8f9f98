package domain

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

var errDetailWithoutMsg = errors.New("validation detail without msg")

// ValidationError is the 422 body: {"detail": [{"loc": [...], "msg": "...", "type": "..."}]}.
type ValidationError struct {
	Detail []ValidationDetail `json:"detail"`
}

type ValidationDetail struct {
	Loc  []string
	Msg  string
	Type string
}

func (d *ValidationDetail) UnmarshalJSON(data []byte) error {
	var raw struct {
		Loc  []json.RawMessage `json:"loc"`
		Msg  *string           `json:"msg"`
		Type string            `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Msg == nil {
		return errDetailWithoutMsg
	}

	d.Msg = *raw.Msg
	d.Type = raw.Type
	d.Loc = make([]string, 0, len(raw.Loc))
	// loc mixes field names and list indexes
	for _, part := range raw.Loc {
		var s string
		if err := json.Unmarshal(part, &s); err == nil {
			d.Loc = append(d.Loc, s)
			continue
		}
		var f float64
		if err := json.Unmarshal(part, &f); err == nil {
			d.Loc = append(d.Loc, strconv.FormatFloat(f, 'f', -1, 64))
		}
	}
	return nil
}

// Path joins loc with dots, e.g. "body.username".
func (d ValidationDetail) Path() string {
	return strings.Join(d.Loc, ".")
}

// Field is the innermost loc element, or "" when loc is empty.
func (d ValidationDetail) Field() string {
	if len(d.Loc) == 0 {
		return ""
	}
	return d.Loc[len(d.Loc)-1]
}

// Message renders one line per entry as "<msg> (at <loc>)".
func (v ValidationError) Message() string {
	lines := make([]string, 0, len(v.Detail))
	for _, d := range v.Detail {
		lines = append(lines, d.Msg+" (at "+d.Path()+")")
	}
	return strings.Join(lines, "\n")
}

// FieldMessage renders one line per entry as "<field>: <msg>".
func (v ValidationError) FieldMessage() string {
	lines := make([]string, 0, len(v.Detail))
	for _, d := range v.Detail {
		if f := d.Field(); f != "" {
			lines = append(lines, f+": "+d.Msg)
			continue
		}
		lines = append(lines, d.Msg)
	}
	return strings.Join(lines, "\n")
}
