package corelib

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// KVPair is MEng.KVPair: a (key, value) string pair, the building block
// the host uses to return map-like results without a dedicated map class.
type KVPair struct {
	idKey, idValue, idSetKey, idSetValue ids.MethodID
}

type kvPairStorage struct {
	key, value string
}

func (p *KVPair) Path() string { return "MEng.KVPair" }

func (p *KVPair) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(p.Path(), ids.InvalidClassID, classmeta.NonFinal, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"Key": &p.idKey, "Value": &p.idValue, "SetKey": &p.idSetKey, "SetValue": &p.idSetValue,
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

func (p *KVPair) MakeStorage(bool) classmeta.Payload { return &kvPairStorage{} }

func (p *KVPair) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*kvPairStorage)
	if store == nil {
		store = &kvPairStorage{}
		receiver.Payload = store
	}
	argStr := func(i int) string {
		if i < len(args) && args[i] != nil {
			if s, ok := args[i].Payload.(string); ok {
				return s
			}
		}
		return ""
	}

	switch methodID {
	case p.idKey:
		return classmeta.NewValueObject(ids.InvalidClassID, store.key), true, nil
	case p.idValue:
		return classmeta.NewValueObject(ids.InvalidClassID, store.value), true, nil
	case p.idSetKey:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		store.key = argStr(0)
		return receiver, true, nil
	case p.idSetValue:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		store.value = argStr(0)
		return receiver, true, nil
	}
	return nil, false, nil
}
