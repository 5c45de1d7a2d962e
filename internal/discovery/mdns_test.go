package discovery

import "testing"

func TestAdvertiseRejectsServiceName(t *testing.T) {
	for _, svc := range []string{"", "lightmeter", "_lightmeter", "lightmeter._tcp"} {
		if _, err := Advertise("meter", svc, 8080, nil); err == nil {
			t.Errorf("service %q accepted", svc)
		}
	}
}

func TestTXTRecords(t *testing.T) {
	txt := TXTRecords("1.2.3", "/v1/reading")
	want := []string{"version=1.2.3", "path=/v1/reading", "format=json"}
	if len(txt) != len(want) {
		t.Fatalf("txt = %v", txt)
	}
	for i := range want {
		if txt[i] != want[i] {
			t.Fatalf("txt[%d] = %q, want %q", i, txt[i], want[i])
		}
	}
}
