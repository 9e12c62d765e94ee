package services

import (
	"go.mozilla.org/pkcs7"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// SignatureVerifierPath is MEng.System.Runtime.SignatureVerifier's class
// path.
const SignatureVerifierPath = "MEng.System.Runtime.SignatureVerifier"

const (
	errOrdParseFailed uint32 = iota + 1
	errOrdVerifyFailed
)

// SignatureVerifier is MEng.System.Runtime.SignatureVerifier: parses a
// PKCS#7 signed-data blob and verifies the embedded signer chain against
// the signed content, the Go analogue of Authenticode verification
// (grounded on saferwall-pe's parseSecurityDirectory, which is the only
// place in the retrieval pack that drives go.mozilla.org/pkcs7).
// Verify trusts the chain embedded in the PKCS#7 envelope itself
// (pkcs7.Verify), matching saferwall-pe's own default path before it
// escalates to an explicit cert pool.
type SignatureVerifier struct {
	idVerifySignedData ids.MethodID
}

func NewSignatureVerifier() *SignatureVerifier { return &SignatureVerifier{} }

func (s *SignatureVerifier) Path() string { return SignatureVerifierPath }

func (s *SignatureVerifier) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(s.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	id, err := reg.NextMethodID(desc.ID)
	if err != nil {
		return nil, err
	}
	s.idVerifySignedData = id
	if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: "VerifySignedData", ReturnClassID: desc.ID}); err != nil {
		return nil, err
	}
	return desc, nil
}

func (s *SignatureVerifier) MakeStorage(bool) classmeta.Payload { return nil }

func (s *SignatureVerifier) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	if methodID != s.idVerifySignedData {
		return nil, false, nil
	}

	signed, err := pkcs7.Parse(bytesArg(args, 0))
	if err != nil {
		return nil, true, ctx.Raise(receiver.ClassID, errOrdParseFailed, err.Error())
	}
	if err := signed.Verify(); err != nil {
		return nil, true, ctx.Raise(receiver.ClassID, errOrdVerifyFailed, err.Error())
	}
	return classmeta.NewValueObject(ids.InvalidClassID, true), true, nil
}
