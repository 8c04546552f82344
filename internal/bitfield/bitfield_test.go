package bitfield

import "testing"

type gateAttr struct {
	GateType uint8 `bitfield:",4"`
	Zero     uint8 `bitfield:",1"`
	DPL      uint8 `bitfield:",2"`
	Present  bool  `bitfield:",1"`
}

func TestPackGateAttr(t *testing.T) {
	cases := []struct {
		name     string
		in       gateAttr
		expected uint64
	}{
		{"all zero", gateAttr{}, 0},
		{"interrupt gate present", gateAttr{GateType: 0xE, Present: true}, 0x8E},
		{"dpl3", gateAttr{GateType: 0xE, DPL: 3, Present: true}, 0xEE},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := Pack(c.in, &Config{NumBits: 8})
			if err != nil {
				t.Fatalf("Pack() error = %v", err)
			}
			if got != c.expected {
				t.Errorf("Pack() = 0x%02x, want 0x%02x", got, c.expected)
			}
		})
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	in := gateAttr{GateType: 0xE, DPL: 3, Present: true}
	packed, err := Pack(in, &Config{NumBits: 8})
	if err != nil {
		t.Fatalf("Pack() error = %v", err)
	}
	var out gateAttr
	if err := Unpack(&out, packed); err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}

func TestPackOverflow(t *testing.T) {
	_, err := Pack(gateAttr{GateType: 0xFF}, &Config{NumBits: 8})
	if err == nil {
		t.Fatal("expected overflow error")
	}
}
