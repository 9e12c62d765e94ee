package corelib

import (
	"math/rand/v2"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// Random is MEng.System.Runtime.RandomNum, grounded on
// CIDMacroEng_RandomClasses.cpp's TMEngRandomNumVal/Info: a seedable
// generator exposing NextVal(modulus) and Seed(seed). Implemented over
// math/rand/v2's PCG source rather than hand-rolling an LCG, matching the
// "never fall back to stdlib-reinvented-by-hand where the ecosystem
// already provides it" guidance — math/rand/v2 is itself the stdlib's
// blessed generator, so no third-party replacement applies here.
type Random struct {
	idNextVal, idSeed ids.MethodID
}

type randomStorage struct {
	rng *rand.Rand
}

func (r *Random) Path() string { return "MEng.System.Runtime.RandomNum" }

func (r *Random) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(r.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"NextVal": &r.idNextVal, "Seed": &r.idSeed,
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

func (r *Random) MakeStorage(bool) classmeta.Payload {
	return &randomStorage{rng: rand.New(rand.NewPCG(1, 1))}
}

func (r *Random) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*randomStorage)
	if store == nil {
		store = &randomStorage{rng: rand.New(rand.NewPCG(1, 1))}
		receiver.Payload = store
	}

	switch methodID {
	case r.idNextVal:
		modulus := uint64(intArg(args, 0))
		if modulus == 0 {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdDivideByZero, "modulus must be nonzero")
		}
		return classmeta.NewValueObject(ids.InvalidClassID, store.rng.Uint64()%modulus), true, nil

	case r.idSeed:
		seed := uint64(intArg(args, 0))
		store.rng = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
		return receiver, true, nil
	}
	return nil, false, nil
}
