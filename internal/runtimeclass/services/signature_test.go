package services

import "testing"

func TestSignatureVerifierRaisesOnUnparsableData(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, SignatureVerifierPath)

	_, err := invoke(t, ctx, rc, recv, desc, "VerifySignedData", vo([]byte("not a pkcs7 envelope")))
	if err == nil {
		t.Fatal("expected VerifySignedData to raise ParseFailed for non-PKCS7 data")
	}
}
