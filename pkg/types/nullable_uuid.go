package types

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// NullableUUID distinguishes three JSON states for a UUID field:
// absent (Valid false), explicit null (Valid true, Value nil), and a
// concrete value. PATCH handlers rely on the distinction to tell
// "leave unchanged" apart from "clear".
type NullableUUID struct {
	Valid bool
	Value *uuid.UUID
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *NullableUUID) UnmarshalJSON(data []byte) error {
	raw := bytes.TrimSpace(data)
	if len(raw) == 0 {
		return nil
	}

	n.Valid = true
	if bytes.Equal(raw, []byte("null")) {
		n.Value = nil
		return nil
	}

	var id uuid.UUID
	if err := json.Unmarshal(raw, &id); err != nil {
		n.Valid = false
		return err
	}
	n.Value = &id
	return nil
}

// Clone returns a deep copy so callers can mutate the result freely.
func (n NullableUUID) Clone() NullableUUID {
	out := NullableUUID{Valid: n.Valid}
	if n.Value != nil {
		v := *n.Value
		out.Value = &v
	}
	return out
}
