package corelib

import (
	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// Exception is MEng.Exception: the class a try/catch handler's catch
// variable is bound to. It never constructs the in-flight exception
// itself — internal/engine.ExceptionValue does that — it only exposes
// Check/CheckGreater/ErrorText/ErrorName to program code via the
// EngineContext.CurrentException hook, avoiding the import cycle a direct
// reference to *engine.ExceptionValue would create.
type Exception struct {
	idCheck, idCheckGreater, idErrorText, idErrorName ids.MethodID
}

func (e *Exception) Path() string { return "MEng.Exception" }

func (e *Exception) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(e.Path(), ids.InvalidClassID, classmeta.NonFinal, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"Check": &e.idCheck, "CheckGreater": &e.idCheckGreater,
		"ErrorText": &e.idErrorText, "ErrorName": &e.idErrorName,
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

// exceptionStorage caches the text/name captured at catch time, since
// CurrentException() only holds until the next Raise clears the slot.
type exceptionStorage struct {
	classID ids.ClassID
	ordinal uint32
	text    string
	name    string
}

func (e *Exception) MakeStorage(bool) classmeta.Payload { return &exceptionStorage{} }

func (e *Exception) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*exceptionStorage)
	if store == nil {
		store = &exceptionStorage{}
		receiver.Payload = store
	}

	switch methodID {
	case e.idCheck:
		classID, ordinal, ok := ctx.CurrentException()
		if !ok {
			return classmeta.NewValueObject(ids.InvalidClassID, false), true, nil
		}
		want := ids.ClassID(intArg(args, 0))
		match := classID == want && ordinal == uint32(intArg(args, 1))
		return classmeta.NewValueObject(ids.InvalidClassID, match), true, nil

	case e.idCheckGreater:
		classID, ordinal, ok := ctx.CurrentException()
		if !ok {
			return classmeta.NewValueObject(ids.InvalidClassID, false), true, nil
		}
		want := ids.ClassID(intArg(args, 0))
		match := classID == want && ordinal >= uint32(intArg(args, 1))
		return classmeta.NewValueObject(ids.InvalidClassID, match), true, nil

	case e.idErrorText:
		return classmeta.NewValueObject(ids.InvalidClassID, store.text), true, nil

	case e.idErrorName:
		return classmeta.NewValueObject(ids.InvalidClassID, store.name), true, nil
	}
	return nil, false, nil
}
