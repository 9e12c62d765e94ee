package services

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/md4"
	"golang.org/x/crypto/ripemd160"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// DigestPath is MEng.System.Runtime.Digest's class path.
const DigestPath = "MEng.System.Runtime.Digest"

const (
	errOrdUnknownAlgorithm uint32 = iota + 1
)

func newHash(name string) (hash.Hash, bool) {
	switch name {
	case "MD5":
		return md5.New(), true
	case "SHA1":
		return sha1.New(), true
	case "SHA256":
		return sha256.New(), true
	case "BLAKE2b":
		h, err := blake2b.New256(nil)
		return h, err == nil
	case "MD4":
		return md4.New(), true
	case "RIPEMD160":
		return ripemd160.New(), true
	}
	return nil, false
}

type digestStorage struct {
	algorithm string
	h         hash.Hash
}

// Digest is MEng.System.Runtime.Digest: a named hash algorithm fed
// incrementally via DigestStr/DigestBuf and read out as a hex string,
// grounded on CIDMacroEng_MD5Classes.cpp's TMEngMD5HashInfo /
// TMEngMD5HashVal (DigestStr/DigestBuf/GetAsString/Reset), generalized
// from a single fixed algorithm to any of the digests the retrieval
// pack's dependency stack provides.
type Digest struct {
	idSetAlgorithm, idGetAlgorithm ids.MethodID
	idDigestStr, idDigestBuf       ids.MethodID
	idGetAsString, idReset         ids.MethodID
	idEqual                        ids.MethodID
}

func NewDigest() *Digest { return &Digest{} }

func (d *Digest) Path() string { return DigestPath }

func (d *Digest) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(d.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"SetAlgorithm": &d.idSetAlgorithm, "GetAlgorithm": &d.idGetAlgorithm,
		"DigestStr": &d.idDigestStr, "DigestBuf": &d.idDigestBuf,
		"GetAsString": &d.idGetAsString, "Reset": &d.idReset, "Equal": &d.idEqual,
	} {
		id, err := reg.NextMethodID(desc.ID)
		if err != nil {
			return nil, err
		}
		*target = id
		if err := desc.AddMethod(&classmeta.MethodDescriptor{ID: id, Name: name, ReturnClassID: desc.ID}); err != nil {
			return nil, err
		}
	}
	return desc, nil
}

func newDigestStorage() *digestStorage {
	h, _ := newHash("SHA256")
	return &digestStorage{algorithm: "SHA256", h: h}
}

func (d *Digest) MakeStorage(bool) classmeta.Payload { return newDigestStorage() }

func (d *Digest) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*digestStorage)
	if store == nil {
		store = newDigestStorage()
		receiver.Payload = store
	}

	switch methodID {
	case d.idSetAlgorithm:
		name := strArg(args, 0)
		h, ok := newHash(name)
		if !ok {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdUnknownAlgorithm, "unknown digest algorithm: "+name)
		}
		store.algorithm = name
		store.h = h
		return receiver, true, nil

	case d.idGetAlgorithm:
		return classmeta.NewValueObject(ids.InvalidClassID, store.algorithm), true, nil

	case d.idDigestStr:
		store.h.Write([]byte(strArg(args, 0)))
		return receiver, true, nil

	case d.idDigestBuf:
		store.h.Write(bytesArg(args, 0))
		return receiver, true, nil

	case d.idGetAsString:
		return classmeta.NewValueObject(ids.InvalidClassID, hex.EncodeToString(store.h.Sum(nil))), true, nil

	case d.idReset:
		h, _ := newHash(store.algorithm)
		store.h = h
		return receiver, true, nil

	case d.idEqual:
		other := strArg(args, 0)
		return classmeta.NewValueObject(ids.InvalidClassID, hex.EncodeToString(store.h.Sum(nil)) == other), true, nil
	}
	return nil, false, nil
}
