package corelib

import (
	"strconv"
	"strings"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// maxStringLength bounds allocations: a hard max-length cap of 2^28
// characters.
const maxStringLength = 1 << 28

const (
	errOrdStringTooLong uint32 = iota + 1
	errOrdIndexError
	errOrdBadParseFormat
)

// String is MEng.String: a mutable character sequence. Grounded on
// CIDMacroEng_StringClass.cpp for the method surface, implemented over
// Go's strings/strconv stdlib — no third-party string-manipulation
// library appears anywhere in the retrieval pack, so stdlib is the
// justified choice here (see DESIGN.md).
type String struct {
	idAppend, idInsert, idCut, idCap, idReplace              ids.MethodID
	idToUpper, idToLower                                     ids.MethodID
	idFind, idFindLast, idReplaceToken                       ids.MethodID
	idStrip, idSplit, idParseNum                             ids.MethodID
	idExtractName, idExtractExt, idExtractPath, idAddLevel   ids.MethodID
	idEq, idNe, idFormatTo                                   ids.MethodID
}

func (s *String) Path() string { return "MEng.String" }

func (s *String) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(s.Path(), ids.InvalidClassID, classmeta.NonFinal, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"Append": &s.idAppend, "Insert": &s.idInsert, "Cut": &s.idCut, "Cap": &s.idCap,
		"Replace": &s.idReplace, "ToUpper": &s.idToUpper, "ToLower": &s.idToLower,
		"Find": &s.idFind, "FindLast": &s.idFindLast, "ReplaceToken": &s.idReplaceToken,
		"Strip": &s.idStrip, "Split": &s.idSplit, "ParseNum": &s.idParseNum,
		"ExtractName": &s.idExtractName, "ExtractExt": &s.idExtractExt,
		"ExtractPath": &s.idExtractPath, "AddLevel": &s.idAddLevel,
		"Eq": &s.idEq, "Ne": &s.idNe, "FormatTo": &s.idFormatTo,
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

func (s *String) MakeStorage(bool) classmeta.Payload { return "" }

// StripMode selects the leading/trailing/middle/total strip flags.
type StripMode int

const (
	StripLeading StripMode = iota
	StripTrailing
	StripMiddle
	StripTotal
)

func (s *String) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	self, _ := receiver.Payload.(string)
	argStr := func(i int) string {
		if i < len(args) && args[i] != nil {
			if t, ok := args[i].Payload.(string); ok {
				return t
			}
		}
		return ""
	}

	switch methodID {
	case s.idAppend:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		next := self + argStr(0)
		if len(next) > maxStringLength {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdStringTooLong, "string exceeds the maximum length")
		}
		receiver.Payload = next
		return receiver, true, nil

	case s.idInsert:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		at := intArg(args, 1)
		if at < 0 || at > len(self) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "insert index out of range")
		}
		receiver.Payload = self[:at] + argStr(0) + self[at:]
		return receiver, true, nil

	case s.idCut:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		from, count := intArg(args, 0), intArg(args, 1)
		if from < 0 || from > len(self) || from+count > len(self) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "cut range out of range")
		}
		receiver.Payload = self[:from] + self[from+count:]
		return receiver, true, nil

	case s.idCap:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		n := intArg(args, 0)
		if n < 0 || n > len(self) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdIndexError, "cap length out of range")
		}
		receiver.Payload = self[:n]
		return receiver, true, nil

	case s.idReplace:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		receiver.Payload = strings.ReplaceAll(self, argStr(0), argStr(1))
		return receiver, true, nil

	case s.idToUpper:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		receiver.Payload = strings.ToUpper(self)
		return receiver, true, nil

	case s.idToLower:
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		receiver.Payload = strings.ToLower(self)
		return receiver, true, nil

	case s.idFind:
		idx := strings.Index(self, argStr(0))
		return classmeta.NewValueObject(ids.InvalidClassID, int64(idx)), true, nil

	case s.idFindLast:
		idx := strings.LastIndex(self, argStr(0))
		return classmeta.NewValueObject(ids.InvalidClassID, int64(idx)), true, nil

	case s.idReplaceToken:
		// %(1) through %(n) substitution; findResult reports whether every
		// token in the template was found among args[1:].
		result, allFound := replaceTokens(self, args)
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		receiver.Payload = result
		return classmeta.NewValueObject(ids.InvalidClassID, allFound), true, nil

	case s.idStrip:
		mode := StripTotal
		if len(args) > 1 {
			if m, ok := args[1].Payload.(StripMode); ok {
				mode = m
			}
		}
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		receiver.Payload = stripString(self, argStr(0), mode)
		return receiver, true, nil

	case s.idSplit:
		parts := strings.Split(self, argStr(0))
		members := make([]*classmeta.ValueObject, len(parts))
		for i, p := range parts {
			members[i] = classmeta.NewValueObject(receiver.ClassID, p)
		}
		return classmeta.NewCompositeValueObject(ids.InvalidClassID, members), true, nil

	case s.idParseNum:
		f, err := strconv.ParseFloat(strings.TrimSpace(self), 64)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdBadParseFormat, "cannot parse %q as a number")
		}
		return classmeta.NewValueObject(ids.InvalidClassID, f), true, nil

	case s.idExtractName:
		return classmeta.NewValueObject(ids.InvalidClassID, pathBase(self)), true, nil

	case s.idExtractExt:
		return classmeta.NewValueObject(ids.InvalidClassID, pathExt(self)), true, nil

	case s.idExtractPath:
		return classmeta.NewValueObject(ids.InvalidClassID, pathDir(self)), true, nil

	case s.idAddLevel:
		joined := strings.TrimSuffix(self, "/") + "/" + strings.TrimPrefix(argStr(0), "/")
		if err := receiver.CheckMutable(); err != nil {
			return nil, true, err
		}
		receiver.Payload = joined
		return receiver, true, nil

	case s.idEq:
		return classmeta.NewValueObject(ids.InvalidClassID, self == argStr(0)), true, nil
	case s.idNe:
		return classmeta.NewValueObject(ids.InvalidClassID, self != argStr(0)), true, nil
	case s.idFormatTo:
		return classmeta.NewValueObject(ids.InvalidClassID, self), true, nil
	}
	return nil, false, nil
}

func intArg(args []*classmeta.ValueObject, i int) int {
	if i >= len(args) || args[i] == nil {
		return 0
	}
	switch v := args[i].Payload.(type) {
	case int64:
		return int(v)
	case uint64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// replaceTokens substitutes %(1) through %(n) in template with the
// formatted text of args[1:], the ReplaceToken fast path.
func replaceTokens(template string, args []*classmeta.ValueObject) (string, bool) {
	result := template
	allFound := true
	for i := 1; i < len(args); i++ {
		token := "%(" + strconv.Itoa(i) + ")"
		if !strings.Contains(result, token) {
			allFound = false
			continue
		}
		text := ""
		if args[i] != nil {
			if t, ok := args[i].Payload.(string); ok {
				text = t
			}
		}
		result = strings.ReplaceAll(result, token, text)
	}
	return result, allFound
}

func stripString(s, cutset string, mode StripMode) string {
	if cutset == "" {
		cutset = " \t\r\n"
	}
	switch mode {
	case StripLeading:
		return strings.TrimLeft(s, cutset)
	case StripTrailing:
		return strings.TrimRight(s, cutset)
	case StripMiddle:
		// Collapse runs of cutset characters down to nothing, keeping the
		// leading/trailing text intact.
		start := len(s) - len(strings.TrimLeft(s, cutset))
		end := len(strings.TrimRight(s, cutset))
		if start >= end {
			return s
		}
		var b strings.Builder
		b.WriteString(s[:start])
		for _, r := range s[start:end] {
			if !strings.ContainsRune(cutset, r) {
				b.WriteRune(r)
			}
		}
		b.WriteString(s[end:])
		return b.String()
	default:
		return strings.Trim(s, cutset)
	}
}

func pathBase(p string) string {
	i := strings.LastIndexByte(p, '/')
	return p[i+1:]
}

func pathExt(p string) string {
	base := pathBase(p)
	i := strings.LastIndexByte(base, '.')
	if i < 0 {
		return ""
	}
	return base[i:]
}

func pathDir(p string) string {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return ""
	}
	return p[:i]
}
