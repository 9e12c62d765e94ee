// Package classio loads program-defined class descriptors from the JSON
// form an external compiler emits; bytecode production itself stays out
// of scope, the engine only ever consumes the already-decoded form.
// Grounded on go-dws's internal/bytecode serializer ("compiled chunk on
// disk"), reshaped from a single-chunk-per-file format into one JSON
// document per class, keyed by class path, registering one class at a
// time.
package classio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/engine"
	"github.com/cidlib/macroeng/internal/ids"
)

// Instruction is one opcode in a method's JSON-encoded code stream, named
// by the engine's OpCode constant instead of its numeric value so
// hand-written/compiler-emitted descriptors stay readable.
type Instruction struct {
	Op      string `json:"op"`
	ClassID uint16 `json:"classId,omitempty"`
	B       uint16 `json:"b,omitempty"`
}

// Param is one method parameter.
type Param struct {
	Name      string `json:"name"`
	Class     string `json:"class"`
	Direction string `json:"direction,omitempty"` // "in" (default), "out", "inout"
}

// Method is one method of a JSON class document. Code is nil for an
// abstract/required method.
type Method struct {
	Name          string        `json:"name"`
	Returns       string        `json:"returns,omitempty"`
	Params        []Param       `json:"params,omitempty"`
	Const         bool          `json:"const,omitempty"`
	Extensibility string        `json:"extensibility,omitempty"` // "final" (default), "virtual", "required", "override"
	Code          []Instruction `json:"code,omitempty"`
}

// Literal is one named class-scoped constant.
type Literal struct {
	Name  string      `json:"name"`
	Class string      `json:"class"`
	Value interface{} `json:"value"`
}

// Member is one class-scoped field.
type Member struct {
	Name  string `json:"name"`
	Class string `json:"class"`
	Const bool   `json:"const,omitempty"`
}

// ClassDoc is the on-disk JSON shape of one program-defined class.
type ClassDoc struct {
	Path     string    `json:"path"`
	Parent   string    `json:"parent,omitempty"`
	Finality string    `json:"finality,omitempty"` // "nonfinal" (default), "final", "abstract"
	Members  []Member  `json:"members,omitempty"`
	Methods  []Method  `json:"methods,omitempty"`
	Literals []Literal `json:"literals,omitempty"`
}

// DirLoader implements classmeta.ClassLoader over a directory of ClassDoc
// JSON files, one file per class, named arbitrarily (the file is read and
// indexed by its declared Path, not its filename).
type DirLoader struct {
	byPath map[string]ClassDoc
}

// NewDirLoader reads every *.json file in dir and indexes it by its
// declared class path. It does not register any classes yet — that
// happens lazily, on the first FindClassByPath miss for each path.
func NewDirLoader(dir string) (*DirLoader, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("classio: reading %s: %w", dir, err)
	}

	l := &DirLoader{byPath: make(map[string]ClassDoc)}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("classio: reading %s: %w", entry.Name(), err)
		}
		var doc ClassDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("classio: parsing %s: %w", entry.Name(), err)
		}
		if doc.Path == "" {
			return nil, fmt.Errorf("classio: %s has no \"path\"", entry.Name())
		}
		l.byPath[doc.Path] = doc
	}
	return l, nil
}

// LoadClass implements classmeta.ClassLoader.
func (l *DirLoader) LoadClass(reg *classmeta.Registry, path string) (*classmeta.ClassDescriptor, bool, error) {
	doc, ok := l.byPath[path]
	if !ok {
		return nil, false, nil
	}

	var parentID ids.ClassID
	if doc.Parent != "" {
		parentDesc, err := reg.FindClassByPath(doc.Parent)
		if err != nil {
			return nil, false, fmt.Errorf("classio: %s: resolving parent %s: %w", path, doc.Parent, err)
		}
		parentID = parentDesc.ID
	}

	desc, err := reg.RegisterClass(path, parentID, parseFinality(doc.Finality), false)
	if err != nil {
		return nil, false, err
	}

	for _, m := range doc.Members {
		classID, err := classIDFor(reg, m.Class)
		if err != nil {
			return nil, false, fmt.Errorf("classio: %s member %s: %w", path, m.Name, err)
		}
		if err := desc.AddMember(&classmeta.MemberDescriptor{Name: m.Name, ClassID: classID, Const: m.Const}); err != nil {
			return nil, false, err
		}
	}

	for _, method := range doc.Methods {
		md, err := l.buildMethod(reg, desc.ID, method)
		if err != nil {
			return nil, false, fmt.Errorf("classio: %s.%s: %w", path, method.Name, err)
		}
		if err := desc.AddMethod(md); err != nil {
			return nil, false, err
		}
	}

	for _, lit := range doc.Literals {
		classID, err := classIDFor(reg, lit.Class)
		if err != nil {
			return nil, false, fmt.Errorf("classio: %s literal %s: %w", path, lit.Name, err)
		}
		if err := desc.AddLiteral(&classmeta.LiteralValue{Name: lit.Name, ClassID: classID, Payload: lit.Value}); err != nil {
			return nil, false, err
		}
	}

	return desc, true, nil
}

func (l *DirLoader) buildMethod(reg *classmeta.Registry, owner ids.ClassID, m Method) (*classmeta.MethodDescriptor, error) {
	id, err := reg.NextMethodID(owner)
	if err != nil {
		return nil, err
	}

	var returnID ids.ClassID
	if m.Returns != "" {
		returnID, err = classIDFor(reg, m.Returns)
		if err != nil {
			return nil, err
		}
	}

	params := make([]classmeta.ParamDescriptor, len(m.Params))
	for i, p := range m.Params {
		classID, err := classIDFor(reg, p.Class)
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", p.Name, err)
		}
		params[i] = classmeta.ParamDescriptor{Index: i, Name: p.Name, ClassID: classID, Direction: parseDirection(p.Direction)}
	}

	ext := parseExtensibility(m.Extensibility)
	var code []byte
	if len(m.Code) > 0 {
		instrs := make([]engine.Instruction, len(m.Code))
		for i, in := range m.Code {
			op, err := opCodeFor(in.Op)
			if err != nil {
				return nil, err
			}
			instrs[i] = engine.Instruction{Op: op, ClassID: in.ClassID, B: in.B}
		}
		code = engine.EncodeInstructions(instrs)
	}

	return &classmeta.MethodDescriptor{
		ID: id, Name: m.Name, Const: m.Const, ReturnClassID: returnID,
		Params: params, Extensibility: ext, Required: ext == classmeta.MethodRequired,
		Code: code,
	}, nil
}

func classIDFor(reg *classmeta.Registry, path string) (ids.ClassID, error) {
	if path == "" {
		return ids.InvalidClassID, nil
	}
	desc, err := reg.FindClassByPath(path)
	if err != nil {
		return ids.InvalidClassID, err
	}
	return desc.ID, nil
}

func parseFinality(s string) classmeta.Finality {
	switch strings.ToLower(s) {
	case "final":
		return classmeta.Final
	case "abstract":
		return classmeta.Abstract
	default:
		return classmeta.NonFinal
	}
}

func parseDirection(s string) classmeta.Direction {
	switch strings.ToLower(s) {
	case "out":
		return classmeta.DirOut
	case "inout":
		return classmeta.DirInOut
	default:
		return classmeta.DirIn
	}
}

func parseExtensibility(s string) classmeta.Extensibility {
	switch strings.ToLower(s) {
	case "virtual":
		return classmeta.MethodVirtual
	case "required":
		return classmeta.MethodRequired
	case "override":
		return classmeta.MethodOverride
	default:
		return classmeta.MethodFinal
	}
}

var opCodesByName = map[string]engine.OpCode{
	"PushBoolean": engine.OpPushBoolean, "PushCard1": engine.OpPushCard1,
	"PushCard2": engine.OpPushCard2, "PushCard4": engine.OpPushCard4,
	"PushCard8": engine.OpPushCard8, "PushInt1": engine.OpPushInt1,
	"PushInt2": engine.OpPushInt2, "PushInt4": engine.OpPushInt4,
	"PushFloat4": engine.OpPushFloat4, "PushFloat8": engine.OpPushFloat8,
	"PushChar": engine.OpPushChar, "PushStringPool": engine.OpPushStringPool,
	"PushEnum": engine.OpPushEnum, "PushLocal": engine.OpPushLocal,
	"PopLocal": engine.OpPopLocal, "PushParam": engine.OpPushParam,
	"PopParam": engine.OpPopParam, "PushMember": engine.OpPushMember,
	"PopMember": engine.OpPopMember, "PushPoolValue": engine.OpPushPoolValue,
	"Dup": engine.OpDup, "Pop": engine.OpPop, "Repush": engine.OpRepush,
	"CallDirect": engine.OpCallDirect, "CallPolymorphic": engine.OpCallPolymorphic,
	"CallRequired": engine.OpCallRequired, "Return": engine.OpReturn,
	"Branch": engine.OpBranch, "BranchIfFalse": engine.OpBranchIfFalse,
	"CompareEQ": engine.OpCompareEQ, "CompareNE": engine.OpCompareNE,
	"CompareLT": engine.OpCompareLT, "CompareLE": engine.OpCompareLE,
	"CompareGT": engine.OpCompareGT, "CompareGE": engine.OpCompareGE,
	"Try": engine.OpTry, "EndTry": engine.OpEndTry, "Throw": engine.OpThrow,
	"CastStatic": engine.OpCastStatic, "CastDynamic": engine.OpCastDynamic,
}

func opCodeFor(name string) (engine.OpCode, error) {
	op, ok := opCodesByName[name]
	if !ok {
		return 0, fmt.Errorf("unknown opcode %q", name)
	}
	return op, nil
}
