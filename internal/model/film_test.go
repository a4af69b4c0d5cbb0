package model

import (
	"encoding/json"
	"testing"
)

func TestFilmSerializesCamelCase(t *testing.T) {
	body, err := json.Marshal(Film{ID: 3, Title: "Heat", Owner: 1, Private: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var keys map[string]interface{}
	if err := json.Unmarshal(body, &keys); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, want := range []string{"id", "title", "owner", "private", "createdAt", "updatedAt"} {
		if _, ok := keys[want]; !ok {
			t.Fatalf("film JSON missing key %q, got %s", want, body)
		}
	}
	if _, ok := keys["ID"]; ok {
		t.Fatalf("film JSON must not expose Go field names, got %s", body)
	}
}
