package jobscheduler

import "testing"

func TestDispatchEventValidate(t *testing.T) {
	cases := []struct {
		name    string
		event   DispatchEvent
		wantErr bool
	}{
		{"sent", DispatchEvent{DispatchID: "d-1", Status: StatusSent}, false},
		{"failed", DispatchEvent{DispatchID: "d-1", Status: StatusFailed}, false},
		{"blank id", DispatchEvent{DispatchID: "  ", Status: StatusSent}, true},
		{"unknown status", DispatchEvent{DispatchID: "d-1", Status: "queued"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.event.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}
