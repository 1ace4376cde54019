// v0
// internal/hashing/hashing_test.go
package hashing

import "testing"

func TestLookupAlgorithms(t *testing.T) {
	cases := []struct {
		name    string
		wantErr bool
	}{
		{name: "", wantErr: false},
		{name: "sha256", wantErr: false},
		{name: "BLAKE2b", wantErr: false},
		{name: " blake3 ", wantErr: false},
		{name: "md5", wantErr: true},
	}
	for _, tc := range cases {
		f, err := Lookup(tc.name)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", tc.name, err)
		}
		if got := len(f([]byte("payload"))); got != 32 {
			t.Fatalf("%q: expected 32-byte digest, got %d", tc.name, got)
		}
	}
}

func TestDigestsAreDeterministicAndDistinct(t *testing.T) {
	for _, f := range []Func{SHA256, BLAKE2b, BLAKE3} {
		if Hex(f, []byte("abc")) != Hex(f, []byte("abc")) {
			t.Fatalf("digest is not deterministic")
		}
		if Hex(f, []byte("abc")) == Hex(f, []byte("abd")) {
			t.Fatalf("distinct inputs produced the same digest")
		}
	}
	if Genesis(SHA256) == Genesis(BLAKE3) {
		t.Fatalf("expected genesis hash to depend on the algorithm")
	}
}

func TestSHA256KnownVector(t *testing.T) {
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HexString(SHA256, "abc"); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}
