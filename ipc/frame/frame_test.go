package frame

import (
	"testing"
)

// TestHeaderRoundTrip tests that headers survive an append/parse cycle
func TestHeaderRoundTrip(t *testing.T) {
	headers := []Header{
		{},
		{Cookie: 0x6449504376310a00, Type: 1, Length: 0},
		{Cookie: 0xffffffffffffffff, Type: -1, Length: 1},
		{Cookie: 42, Type: -9223372036854775808, Length: 18446744073709551615},
		{Cookie: 1, Type: 9223372036854775807, Length: 1 << 32},
	}

	for i, h := range headers {
		buf := h.Append(nil)
		if len(buf) != HeaderSize {
			t.Fatalf("header %d: expected %d bytes, got %d", i, HeaderSize, len(buf))
		}

		parsed := ParseHeader(buf)
		if parsed != h {
			t.Errorf("header %d: expected %+v, got %+v", i, h, parsed)
		}
	}
}

// TestHeaderAppendPreservesPrefix tests that Append extends rather than
// overwrites the destination slice
func TestHeaderAppendPreservesPrefix(t *testing.T) {
	prefix := []byte{0xde, 0xad}
	h := Header{Cookie: 7, Type: 3, Length: 11}

	buf := h.Append(prefix)
	if len(buf) != len(prefix)+HeaderSize {
		t.Fatalf("expected %d bytes, got %d", len(prefix)+HeaderSize, len(buf))
	}
	if buf[0] != 0xde || buf[1] != 0xad {
		t.Errorf("prefix was overwritten: %v", buf[:2])
	}
	if parsed := ParseHeader(buf[2:]); parsed != h {
		t.Errorf("expected %+v, got %+v", h, parsed)
	}
}

// TestErrorMessages tests the formatting of the protocol error types
func TestErrorMessages(t *testing.T) {
	t.Run("CookieMismatch", func(t *testing.T) {
		err := &CookieMismatchError{Want: 1, Got: 2}
		if err.Error() == "" {
			t.Error("empty error message")
		}

		withEndpoint := &CookieMismatchError{Want: 1, Got: 2, Endpoint: "10.0.0.1:1234"}
		if withEndpoint.Error() == err.Error() {
			t.Error("endpoint not included in error message")
		}
	})

	t.Run("Oversize", func(t *testing.T) {
		err := &OversizeError{Length: 1 << 40, Limit: 1 << 20}
		if err.Error() == "" {
			t.Error("empty error message")
		}
	})
}
