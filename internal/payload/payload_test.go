package payload

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	sizes := []int{0, 1, 63, 64, 65, 255, 512, MaxTransactionSize}
	for _, size := range sizes {
		raw := make([]byte, size)
		rng.Read(raw)

		for _, enc := range []Encoding{Hex, Base64} {
			encoded, err := Encode(raw, enc)
			if err != nil {
				t.Fatalf("Encode(%d bytes, %s) failed: %v", size, enc, err)
			}
			decoded, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode(%d bytes, %s) failed: %v", size, enc, err)
			}
			if !bytes.Equal(raw, decoded) {
				t.Errorf("Round trip mismatch for %d bytes with %s", size, enc)
			}
		}
	}
}

func TestDecodeHex(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []byte
		wantErr bool
	}{
		{"plain", "00ff10", []byte{0x00, 0xff, 0x10}, false},
		{"prefixed", "0x00ff10", []byte{0x00, 0xff, 0x10}, false},
		{"uppercase", "ABCD", []byte{0xab, 0xcd}, false},
		{"empty", "", []byte{}, false},
		{"odd length", "abc", nil, true},
		{"not hex", "zz", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeHex(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && !bytes.Equal(got, tt.want) {
				t.Errorf("Expected %x, got %x", tt.want, got)
			}
		})
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	if _, err := Encode([]byte{1}, "base58"); err == nil {
		t.Errorf("Expected error for unsupported encoding")
	}
	if _, err := Decode(Encoded{Encoding: "base58", Text: "1"}); err == nil {
		t.Errorf("Expected error for unsupported encoding")
	}
}

func TestPrefix(t *testing.T) {
	long := strings.Repeat("ab", 100)
	got := Prefix(long)
	if len(got) != logPrefixLen+3 {
		t.Errorf("Expected prefix of length %d, got %d", logPrefixLen+3, len(got))
	}
	if Prefix("short") != "short" {
		t.Errorf("Expected short payloads unchanged")
	}
}

func TestCheckSize(t *testing.T) {
	if err := CheckSize(nil); err == nil {
		t.Errorf("Expected error for empty transaction")
	}
	if err := CheckSize(make([]byte, MaxTransactionSize)); err != nil {
		t.Errorf("Expected maximum size to be accepted, got %v", err)
	}
	if err := CheckSize(make([]byte, MaxTransactionSize+1)); err == nil {
		t.Errorf("Expected error above maximum size")
	}
}
