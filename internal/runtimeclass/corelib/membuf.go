package corelib

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

const errOrdBufferFull uint32 = 200

// memBufStorage is MemBuf's native payload: a growable byte slice capped
// at maxSize, mirroring CIDMacroEng_MemBufClass.cpp's fixed-capacity
// buffer with a separately tracked current size.
type memBufStorage struct {
	data    []byte
	maxSize int
}

// MemBuf is MEng.MemBuf: a resizable byte buffer with byte-level
// accessors. The larger memory-mapped-file variant lives in
// internal/runtimeclass/services over github.com/edsrzf/mmap-go; this
// class is the plain heap-backed one every program gets for free.
type MemBuf struct {
	idSetSize, idMaxSize, idCurSize            ids.MethodID
	idPutCard1, idGetCard1, idPutCard4, idGetCard4 ids.MethodID
	idAppend                                    ids.MethodID
}

func (m *MemBuf) Path() string { return "MEng.MemBuf" }

func (m *MemBuf) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(m.Path(), ids.InvalidClassID, classmeta.NonFinal, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"SetSize": &m.idSetSize, "MaxSize": &m.idMaxSize, "CurSize": &m.idCurSize,
		"PutCard1": &m.idPutCard1, "GetCard1": &m.idGetCard1,
		"PutCard4": &m.idPutCard4, "GetCard4": &m.idGetCard4,
		"Append": &m.idAppend,
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

func (m *MemBuf) MakeStorage(bool) classmeta.Payload {
	return &memBufStorage{maxSize: 1 << 24}
}

// NewMappedStorage wraps an already-mapped byte slice (e.g. a read-only
// memory-mapped file) as MemBuf storage without copying it. The caller is
// expected to mark the resulting ValueObject const, since GetCard1/GetCard4
// read through data directly but SetSize/PutCard1/PutCard4/Append would
// otherwise write into the mapping.
func NewMappedStorage(data []byte) classmeta.Payload {
	return &memBufStorage{data: data, maxSize: len(data)}
}

func (m *MemBuf) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*memBufStorage)
	if store == nil {
		store = &memBufStorage{maxSize: 1 << 24}
		receiver.Payload = store
	}

	switch methodID {
	case m.idSetSize:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		n := intArg(args, 0)
		if n > store.maxSize {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdBufferFull, "requested size exceeds the buffer's maximum")
		}
		if n <= len(store.data) {
			store.data = store.data[:n]
		} else {
			store.data = append(store.data, make([]byte, n-len(store.data))...)
		}
		return receiver, true, nil

	case m.idMaxSize:
		return classmeta.NewValueObject(ids.InvalidClassID, int64(store.maxSize)), true, nil

	case m.idCurSize:
		return classmeta.NewValueObject(ids.InvalidClassID, int64(len(store.data))), true, nil

	case m.idPutCard1:
		at := intArg(args, 0)
		if at < 0 || at >= len(store.data) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "byte index out of range")
		}
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		store.data[at] = byte(intArg(args, 1))
		return receiver, true, nil

	case m.idGetCard1:
		at := intArg(args, 0)
		if at < 0 || at >= len(store.data) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "byte index out of range")
		}
		return classmeta.NewValueObject(ids.InvalidClassID, uint64(store.data[at])), true, nil

	case m.idPutCard4:
		at := intArg(args, 0)
		if at < 0 || at+4 > len(store.data) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "4-byte span out of range")
		}
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		v := uint32(intArg(args, 1))
		store.data[at], store.data[at+1] = byte(v), byte(v>>8)
		store.data[at+2], store.data[at+3] = byte(v>>16), byte(v>>24)
		return receiver, true, nil

	case m.idGetCard4:
		at := intArg(args, 0)
		if at < 0 || at+4 > len(store.data) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "4-byte span out of range")
		}
		v := uint32(store.data[at]) | uint32(store.data[at+1])<<8 | uint32(store.data[at+2])<<16 | uint32(store.data[at+3])<<24
		return classmeta.NewValueObject(ids.InvalidClassID, uint64(v)), true, nil

	case m.idAppend:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		if len(store.data)+1 > store.maxSize {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdBufferFull, "buffer is at its maximum size")
		}
		store.data = append(store.data, byte(intArg(args, 0)))
		return receiver, true, nil
	}
	return nil, false, nil
}
