package checksum

import "testing"

func TestSum(t *testing.T) {
	// Known SHA-256 vector.
	if got := Sum([]byte("abc")); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("Sum(abc) = %s", got)
	}
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different inputs collided")
	}
	if Sum([]byte("same")) != Sum([]byte("same")) {
		t.Error("Sum is not deterministic")
	}
}
