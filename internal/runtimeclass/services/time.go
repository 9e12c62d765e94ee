package services

import (
	"time"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// TimePath is MEng.System.Runtime.Time's class path.
const TimePath = "MEng.System.Runtime.Time"

// Time is MEng.System.Runtime.Time: a UTC wall-clock snapshot with
// Unix-seconds/millisecond accessors and RFC3339 formatting, grounded
// on go-dws's own time.Now().UTC()/UnixMilli() usage in
// builtins_datetime_info.go and datetime_format.go (there is no
// surviving CIDMacroEng time-class source file in the retrieval pack).
type Time struct {
	idSetNow, idUnix, idUnixMilli ids.MethodID
	idFormat                      ids.MethodID
}

func NewTime() *Time { return &Time{} }

func (t *Time) Path() string { return TimePath }

func (t *Time) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(t.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"SetNow": &t.idSetNow, "Unix": &t.idUnix, "UnixMilli": &t.idUnixMilli, "Format": &t.idFormat,
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

func (t *Time) MakeStorage(bool) classmeta.Payload {
	now := time.Now().UTC()
	return &now
}

func (t *Time) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*time.Time)
	if store == nil {
		now := time.Now().UTC()
		store = &now
		receiver.Payload = store
	}

	switch methodID {
	case t.idSetNow:
		*store = time.Now().UTC()
		return receiver, true, nil

	case t.idUnix:
		return classmeta.NewValueObject(ids.InvalidClassID, store.Unix()), true, nil

	case t.idUnixMilli:
		return classmeta.NewValueObject(ids.InvalidClassID, store.UnixMilli()), true, nil

	case t.idFormat:
		layout := strArg(args, 0)
		if layout == "" {
			layout = time.RFC3339
		}
		return classmeta.NewValueObject(ids.InvalidClassID, store.Format(layout)), true, nil
	}
	return nil, false, nil
}
