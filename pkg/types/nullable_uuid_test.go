package types

import (
	"encoding/json"
	"testing"
)

func TestNullableUUIDDistinguishesMissingNullAndValue(t *testing.T) {
	type payload struct {
		OrgID NullableUUID `json:"org_id"`
	}

	var withValue payload
	if err := json.Unmarshal([]byte(`{"org_id": "00000000-0000-0000-0000-00000000000a"}`), &withValue); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if !withValue.OrgID.Valid || withValue.OrgID.Value == nil {
		t.Fatalf("value case: got %+v", withValue.OrgID)
	}
	if got := withValue.OrgID.Value.String(); got != "00000000-0000-0000-0000-00000000000a" {
		t.Fatalf("value case: uuid = %s", got)
	}

	var withNull payload
	if err := json.Unmarshal([]byte(`{"org_id": null}`), &withNull); err != nil {
		t.Fatalf("unmarshal null: %v", err)
	}
	if !withNull.OrgID.Valid || withNull.OrgID.Value != nil {
		t.Fatalf("null case: got %+v", withNull.OrgID)
	}

	var missing payload
	if err := json.Unmarshal([]byte(`{}`), &missing); err != nil {
		t.Fatalf("unmarshal missing: %v", err)
	}
	if missing.OrgID.Valid {
		t.Fatalf("missing case: got %+v", missing.OrgID)
	}
}

func TestNullableUUIDRejectsGarbage(t *testing.T) {
	var n NullableUUID
	if err := n.UnmarshalJSON([]byte(`"not-a-uuid"`)); err == nil {
		t.Fatal("expected error for malformed uuid")
	}
	if n.Valid {
		t.Fatalf("failed parse must not mark the field valid: %+v", n)
	}
}

func TestNullableUUIDClone(t *testing.T) {
	var n NullableUUID
	if err := n.UnmarshalJSON([]byte(`"00000000-0000-0000-0000-00000000000b"`)); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	clone := n.Clone()
	if clone.Value == n.Value {
		t.Fatal("clone shares the original pointer")
	}
	if *clone.Value != *n.Value {
		t.Fatalf("clone value = %s, want %s", clone.Value, n.Value)
	}
}
