package services

import "testing"

func TestDigestDefaultAlgorithmIsSHA256(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, DigestPath)

	alg := mustInvoke(t, ctx, rc, recv, desc, "GetAlgorithm")
	if alg.Payload.(string) != "SHA256" {
		t.Fatalf("GetAlgorithm: got %q, want SHA256", alg.Payload)
	}

	mustInvoke(t, ctx, rc, recv, desc, "DigestStr", vo("abc"))
	sum := mustInvoke(t, ctx, rc, recv, desc, "GetAsString")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if sum.Payload.(string) != want {
		t.Fatalf("GetAsString: got %q, want %q", sum.Payload, want)
	}
}

func TestDigestSetAlgorithmRejectsUnknownName(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, DigestPath)

	_, err := invoke(t, ctx, rc, recv, desc, "SetAlgorithm", vo("NOT-A-REAL-ALGORITHM"))
	if err == nil {
		t.Fatal("expected SetAlgorithm to raise for an unknown algorithm")
	}
}

func TestDigestResetClearsAccumulatedInput(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, DigestPath)

	mustInvoke(t, ctx, rc, recv, desc, "SetAlgorithm", vo("MD5"))
	mustInvoke(t, ctx, rc, recv, desc, "DigestStr", vo("hello"))
	first := mustInvoke(t, ctx, rc, recv, desc, "GetAsString").Payload.(string)

	mustInvoke(t, ctx, rc, recv, desc, "Reset")
	emptySum := mustInvoke(t, ctx, rc, recv, desc, "GetAsString").Payload.(string)
	if emptySum == first {
		t.Fatal("Reset did not clear previously digested input")
	}

	mustInvoke(t, ctx, rc, recv, desc, "DigestStr", vo("hello"))
	second := mustInvoke(t, ctx, rc, recv, desc, "GetAsString").Payload.(string)
	if second != first {
		t.Fatalf("digesting the same input after Reset: got %q, want %q", second, first)
	}
}

func TestDigestEqualComparesHexDigest(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, DigestPath)
	mustInvoke(t, ctx, rc, recv, desc, "SetAlgorithm", vo("MD5"))
	mustInvoke(t, ctx, rc, recv, desc, "DigestStr", vo("hello"))

	sum := mustInvoke(t, ctx, rc, recv, desc, "GetAsString").Payload.(string)
	match := mustInvoke(t, ctx, rc, recv, desc, "Equal", vo(sum))
	if match.Payload.(bool) != true {
		t.Fatal("Equal: expected true comparing a digest against itself")
	}

	mismatch := mustInvoke(t, ctx, rc, recv, desc, "Equal", vo("not-the-right-hash"))
	if mismatch.Payload.(bool) != false {
		t.Fatal("Equal: expected false for a mismatched digest")
	}
}
