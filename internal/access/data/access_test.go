package data

import (
	"testing"
)

func TestStringSetJSON_RoundTrip(t *testing.T) {
	set := StringSetJSON{"0xabc", "0xdef"}

	v, err := set.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	raw, ok := v.([]byte)
	if !ok {
		t.Fatalf("Value() = %T, want []byte", v)
	}

	var back StringSetJSON
	if err := back.Scan(raw); err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(back) != 2 || back[0] != "0xabc" || back[1] != "0xdef" {
		t.Errorf("round trip = %v, want %v", back, set)
	}
}

func TestStringSetJSON_Null(t *testing.T) {
	var set StringSetJSON
	v, err := set.Value()
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	if v != nil {
		t.Errorf("nil set Value() = %v, want nil", v)
	}

	populated := StringSetJSON{"x"}
	if err := populated.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) error = %v", err)
	}
	if populated != nil {
		t.Errorf("Scan(nil) left %v, want nil", populated)
	}
}
