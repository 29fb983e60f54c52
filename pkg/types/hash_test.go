package types

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestHash_IsZero(t *testing.T) {
	var zero Hash
	if !zero.IsZero() {
		t.Error("zero hash should be zero")
	}
	if (Hash{0x01}).IsZero() {
		t.Error("non-zero hash reported as zero")
	}
}

func TestHash_String(t *testing.T) {
	var h Hash
	if got := h.String(); got != strings.Repeat("0", 64) {
		t.Errorf("zero String() = %s", got)
	}

	h[0] = 0xab
	h[31] = 0xcd
	s := h.String()
	if !strings.HasPrefix(s, "ab") || !strings.HasSuffix(s, "cd") {
		t.Errorf("String() = %s", s)
	}
	if h.Short() != s[:16] {
		t.Errorf("Short() = %s, want %s", h.Short(), s[:16])
	}
}

func TestHash_Bytes(t *testing.T) {
	h := Hash{0x01, 0x02, 0x03}
	b := h.Bytes()

	if len(b) != HashSize {
		t.Fatalf("len = %d, want %d", len(b), HashSize)
	}
	if !bytes.Equal(b[:3], []byte{0x01, 0x02, 0x03}) {
		t.Errorf("prefix = %x", b[:3])
	}

	// Must be a copy.
	b[0] = 0xFF
	if h[0] != 0x01 {
		t.Error("Bytes() aliases the hash")
	}
}

func TestHash_Less(t *testing.T) {
	a, b := Hash{0x01}, Hash{0x02}
	if !a.Less(b) || b.Less(a) || a.Less(a) {
		t.Errorf("Less ordering broken: a<b=%v b<a=%v a<a=%v", a.Less(b), b.Less(a), a.Less(a))
	}
}

func TestHash_JSON(t *testing.T) {
	h := Hash{0xde, 0xad, 0xbe, 0xef}
	data, err := json.Marshal(h)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"`+h.String()+`"` {
		t.Errorf("marshal = %s", data)
	}

	var got Hash
	if err := json.Unmarshal(data, &got); err != nil || got != h {
		t.Fatalf("unmarshal = %v, %v; want %v", got, err, h)
	}

	var empty Hash
	if err := json.Unmarshal([]byte(`""`), &empty); err != nil || !empty.IsZero() {
		t.Errorf("empty string: %v, %v", empty, err)
	}

	for _, bad := range []string{`"abcd"`, `"zz"`} {
		if err := json.Unmarshal([]byte(bad), &got); err == nil {
			t.Errorf("unmarshal %s: expected error", bad)
		}
	}
}

func TestHexToHash(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "valid 64 hex chars", input: "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262"},
		{name: "all zeros", input: strings.Repeat("0", 64)},
		{name: "too short", input: "abcd", wantErr: true},
		{name: "too long", input: strings.Repeat("a", 66), wantErr: true},
		{name: "invalid hex character", input: strings.Repeat("g", 64), wantErr: true},
		{name: "empty string", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := HexToHash(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if h.String() != tt.input {
				t.Errorf("round trip = %s, want %s", h.String(), tt.input)
			}
		})
	}
}
