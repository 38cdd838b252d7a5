package model

import "testing"

func TestNormalizeAddressLowersAndTrims(t *testing.T) {
	got := NormalizeAddress("  0xABCDEF1234567890ABCDEF1234567890ABCDEF12  ")
	want := "0xabcdef1234567890abcdef1234567890abcdef12"
	if got != want {
		t.Errorf("NormalizeAddress() = %q, want %q", got, want)
	}
}

func TestBigFromDecimalString(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"0", "0"},
		{"123456789012345678901234567890", "123456789012345678901234567890"},
		{"not-a-number", "0"},
	}
	for _, c := range cases {
		if got := BigFromDecimalString(c.in).String(); got != c.want {
			t.Errorf("BigFromDecimalString(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEncodeDecodeDecimalArrayRoundTrips(t *testing.T) {
	values := []string{"1", "2", "340282366920938463463374607431768211455"}
	encoded := EncodeDecimalArray(values)
	decoded := DecodeDecimalArray(encoded)
	if len(decoded) != len(values) {
		t.Fatalf("len(decoded) = %d, want %d", len(decoded), len(values))
	}
	for i, v := range values {
		if decoded[i] != v {
			t.Errorf("decoded[%d] = %q, want %q", i, decoded[i], v)
		}
	}
}

func TestDecodeDecimalArrayEmptyString(t *testing.T) {
	if got := DecodeDecimalArray(""); got != nil {
		t.Errorf("DecodeDecimalArray(\"\") = %v, want nil", got)
	}
}
