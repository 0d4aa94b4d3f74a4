package password

import "testing"

func TestHashAndCompare(t *testing.T) {
	hash, err := Hash("s3nha-forte")
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if hash == "s3nha-forte" {
		t.Fatal("hash must not equal the plaintext")
	}

	if err := Compare(hash, "s3nha-forte"); err != nil {
		t.Fatalf("compare with correct password failed: %v", err)
	}
	if err := Compare(hash, "senha-errada"); err == nil {
		t.Fatal("compare with wrong password should fail")
	}
}

func TestHashIsSalted(t *testing.T) {
	h1, _ := Hash("mesma-senha")
	h2, _ := Hash("mesma-senha")
	if h1 == h2 {
		t.Fatal("two hashes of the same password should differ")
	}
}
