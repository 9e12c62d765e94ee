package corelib

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

const errOrdAlreadyUsed uint32 = 100

// stringListStorage is StringList's native payload: an ordered slice plus
// an optional uniqueness constraint (AlreadyUsed error on violation).
type stringListStorage struct {
	items  []string
	unique bool
}

// StringList is MEng.StringList: an ordered string collection.
type StringList struct {
	idAppend, idInsert, idRemove, idFind, idCount ids.MethodID
	idStealFrom, idCopyFrom, idAppendFrom         ids.MethodID
	idClear, idValueAt                            ids.MethodID
}

func (l *StringList) Path() string { return "MEng.StringList" }

func (l *StringList) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(l.Path(), ids.InvalidClassID, classmeta.NonFinal, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"Append": &l.idAppend, "Insert": &l.idInsert, "Remove": &l.idRemove,
		"Find": &l.idFind, "Count": &l.idCount, "StealFrom": &l.idStealFrom,
		"CopyFrom": &l.idCopyFrom, "AppendFrom": &l.idAppendFrom,
		"Clear": &l.idClear, "ValueAt": &l.idValueAt,
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

func (l *StringList) MakeStorage(bool) classmeta.Payload { return &stringListStorage{} }

func (l *StringList) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*stringListStorage)
	if store == nil {
		store = &stringListStorage{}
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
	case l.idAppend:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		v := argStr(0)
		if store.unique {
			for _, existing := range store.items {
				if existing == v {
					return nil, true, ctx.Raise(receiver.ClassID, errOrdAlreadyUsed, "value already present in this list")
				}
			}
		}
		store.items = append(store.items, v)
		return receiver, true, nil

	case l.idInsert:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		at := intArg(args, 1)
		if at < 0 || at > len(store.items) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "insert index out of range")
		}
		if store.unique {
			for _, existing := range store.items {
				if existing == argStr(0) {
					return nil, true, ctx.Raise(receiver.ClassID, errOrdAlreadyUsed, "value already present in this list")
				}
			}
		}
		store.items = append(store.items[:at], append([]string{argStr(0)}, store.items[at:]...)...)
		return receiver, true, nil

	case l.idRemove:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		at := intArg(args, 0)
		if at < 0 || at >= len(store.items) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "remove index out of range")
		}
		store.items = append(store.items[:at], store.items[at+1:]...)
		return receiver, true, nil

	case l.idFind:
		want := argStr(0)
		for i, v := range store.items {
			if v == want {
				return classmeta.NewValueObject(ids.InvalidClassID, int64(i)), true, nil
			}
		}
		return classmeta.NewValueObject(ids.InvalidClassID, int64(-1)), true, nil

	case l.idCount:
		return classmeta.NewValueObject(ids.InvalidClassID, int64(len(store.items))), true, nil

	case l.idValueAt:
		at := intArg(args, 0)
		if at < 0 || at >= len(store.items) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "index out of range")
		}
		return classmeta.NewValueObject(ids.InvalidClassID, store.items[at]), true, nil

	case l.idStealFrom:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		if len(args) > 0 {
			if other, ok := args[0].Payload.(*stringListStorage); ok {
				store.items = other.items
				other.items = nil
			}
		}
		return receiver, true, nil

	case l.idCopyFrom:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		if len(args) > 0 {
			if other, ok := args[0].Payload.(*stringListStorage); ok {
				store.items = append([]string(nil), other.items...)
			}
		}
		return receiver, true, nil

	case l.idAppendFrom:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		if len(args) > 0 {
			if other, ok := args[0].Payload.(*stringListStorage); ok {
				for _, v := range other.items {
					if store.unique {
						dup := false
						for _, existing := range store.items {
							if existing == v {
								dup = true
								break
							}
						}
						if dup {
							return nil, true, ctx.Raise(receiver.ClassID, errOrdAlreadyUsed, "value already present in this list")
						}
					}
					store.items = append(store.items, v)
				}
			}
		}
		return receiver, true, nil

	case l.idClear:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		store.items = nil
		return receiver, true, nil
	}
	return nil, false, nil
}
