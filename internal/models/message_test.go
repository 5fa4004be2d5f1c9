package models

import (
	"encoding/json"
	"testing"
)

func TestAfterFindDropsJSONNull(t *testing.T) {
	m := &ChatMessage{ReferenceData: json.RawMessage("null")}
	if err := m.AfterFind(nil); err != nil {
		t.Fatal(err)
	}
	if m.ReferenceData != nil {
		t.Fatalf("reference data = %q, want nil", m.ReferenceData)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatal(err)
	}
	if _, ok := fields["reference_data"]; ok {
		t.Fatalf("reference_data must be omitted: %s", out)
	}

	kept := &ChatMessage{ReferenceData: json.RawMessage(`{"lat":1}`)}
	_ = kept.AfterFind(nil)
	if string(kept.ReferenceData) != `{"lat":1}` {
		t.Fatalf("object must survive, got %q", kept.ReferenceData)
	}
}
