package models

import "testing"

func TestQueryRequestValidate(t *testing.T) {
	q := &QueryRequest{Intent: IntentGeneral, Query: "hello"}
	if err := q.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}
	if q.Limit != 5 {
		t.Errorf("default limit = %d, want 5", q.Limit)
	}

	q = &QueryRequest{Intent: IntentFeeding, Query: "kibble", Limit: 500}
	if err := q.Validate(); err != nil {
		t.Fatal(err)
	}
	if q.Limit != 50 {
		t.Errorf("limit not clamped: %d", q.Limit)
	}
}

func TestQueryRequestValidate_Errors(t *testing.T) {
	if err := (&QueryRequest{Intent: IntentGeneral}).Validate(); err == nil {
		t.Error("empty query accepted")
	}
	if err := (&QueryRequest{Intent: "chitchat", Query: "hi"}).Validate(); err == nil {
		t.Error("unknown intent accepted")
	}
}

func TestMetadataAccessors(t *testing.T) {
	m := Metadata{"pet_type": "dog", "owner_id": float64(42), "pet_id": int64(7)}
	if m.MetaString("pet_type") != "dog" {
		t.Error("MetaString failed")
	}
	if m.MetaString("missing") != "" {
		t.Error("missing key should be empty string")
	}
	if m.MetaInt64("owner_id") != 42 {
		t.Error("MetaInt64 should accept float64 (JSON numbers)")
	}
	if m.MetaInt64("pet_id") != 7 {
		t.Error("MetaInt64 should accept int64")
	}
	var nilMeta Metadata
	if nilMeta.MetaString("x") != "" || nilMeta.MetaInt64("x") != 0 {
		t.Error("nil metadata accessors should return zero values")
	}
}
