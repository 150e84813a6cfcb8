package events

import "testing"

func TestDecodeEvent(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"valid", `{"type":"payment_received","payload":{"collection_id":"abc"}}`, false},
		{"malformed json", `{"type":`, true},
		{"missing type", `{"payload":{"collection_id":"abc"}}`, true},
		{"empty payload ok", `{"type":"payment_expired"}`, false},
	}
	for _, tc := range cases {
		event, err := decodeEvent(tc.payload)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%s: expected error, got event %+v", tc.name, event)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tc.name, err)
		}
	}
}

func TestDecodeEventPreservesPayload(t *testing.T) {
	event, err := decodeEvent(`{"type":"collection_status_changed","payload":{"status":"deployed"}}`)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if event.Type != EventCollectionStatusChanged {
		t.Fatalf("type = %s", event.Type)
	}
	if event.Payload["status"] != "deployed" {
		t.Fatalf("payload = %+v", event.Payload)
	}
}
