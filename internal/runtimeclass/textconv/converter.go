package textconv

import (
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// TextConverterPath is MEng.System.Runtime.TextConverter's class path.
const TextConverterPath = "MEng.System.Runtime.TextConverter"

// errAction mirrors the streams package's error-action triple; kept as
// its own unexported type here rather than shared, since RuntimeClass
// payloads never cross package boundaries in this codebase (see
// streams.StringInStream.SyncWith, which reaches into stringOutStreamStorage
// only because both live in the same package).
type errAction int64

const (
	errActThrow errAction = iota
	errActStopThenThrow
	errActReplace
)

func (a errAction) valid() bool { return a >= errActThrow && a <= errActReplace }

const (
	errOrdBadSrcData uint32 = iota + 1
	errOrdUnrep
	errOrdConfigure
)

// namedEncoding resolves an encoding name to a concrete codec. Names are
// matched case-insensitively, the same as CIDLib facility-level name
// lookups elsewhere in this codebase (see sandbox's case-insensitive
// base-path comparison).
func namedEncoding(name string) (encoding.Encoding, bool) {
	switch strings.ToUpper(name) {
	case "UTF-8", "UTF8":
		return encoding.Nop, true
	case "US-ASCII", "USASCII", "ASCII":
		return asciiEncoding{}, true
	case "UTF-16LE", "UTF16LE":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), true
	case "UTF-16BE", "UTF16BE":
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), true
	}
	return nil, false
}

type converterStorage struct {
	name    string
	enc     encoding.Encoding
	action  errAction
	repChar rune
}

func newConverterStorage() *converterStorage {
	enc, _ := namedEncoding("UTF-8")
	return &converterStorage{name: "UTF-8", enc: enc, action: errActThrow, repChar: '?'}
}

// TextConverter is MEng.System.Runtime.TextConverter: converts between a
// host byte buffer and a program string under a named encoding, chosen
// late through SetEncoding, with the same error-action/replacement-char
// controls every text stream exposes.
type TextConverter struct {
	idSetEncoding, idGetEncoding ids.MethodID
	idSetErrAction, idSetRepChar ids.MethodID
	idConvertFrom, idConvertTo   ids.MethodID
}

func NewTextConverter() *TextConverter { return &TextConverter{} }

func (c *TextConverter) Path() string { return TextConverterPath }

func (c *TextConverter) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(c.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"SetEncoding": &c.idSetEncoding, "GetEncoding": &c.idGetEncoding,
		"SetErrAction": &c.idSetErrAction, "SetRepChar": &c.idSetRepChar,
		"ConvertFrom": &c.idConvertFrom, "ConvertTo": &c.idConvertTo,
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

func (c *TextConverter) MakeStorage(bool) classmeta.Payload { return newConverterStorage() }

func (c *TextConverter) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*converterStorage)
	if store == nil {
		store = newConverterStorage()
		receiver.Payload = store
	}

	switch methodID {
	case c.idSetEncoding:
		name := strArg(args, 0)
		enc, ok := namedEncoding(name)
		if !ok {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdConfigure, "unknown encoding name: "+name)
		}
		store.name = name
		store.enc = enc
		return receiver, true, nil

	case c.idGetEncoding:
		return classmeta.NewValueObject(ids.InvalidClassID, store.name), true, nil

	case c.idSetErrAction:
		v := errAction(intArg(args, 0))
		if !v.valid() {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdConfigure, "unknown error action ordinal")
		}
		store.action = v
		return receiver, true, nil

	case c.idSetRepChar:
		store.repChar = runeArg(args, 0)
		return receiver, true, nil

	case c.idConvertFrom:
		data := bytesArg(args, 0)
		text, consumed, err := convertFrom(store, data)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdBadSrcData, err.Error())
		}
		return classmeta.NewValueObject(ids.InvalidClassID, convertResult{text: text, consumed: consumed}), true, nil

	case c.idConvertTo:
		text := strArg(args, 0)
		data, err := convertTo(store, text)
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdUnrep, err.Error())
		}
		return classmeta.NewValueObject(ids.InvalidClassID, data), true, nil
	}
	return nil, false, nil
}

// convertResult is ConvertFrom's payload: the decoded text plus the
// number of source bytes it consumed, per the two-value contract the
// language description calls for.
type convertResult struct {
	text     string
	consumed int
}

// Text returns the decoded string half of a ConvertFrom result.
func (r convertResult) Text() string { return r.text }

// Consumed returns the number of source bytes a ConvertFrom call used.
func (r convertResult) Consumed() int { return r.consumed }

// convertFrom decodes data under store's encoding, honoring the current
// error action: Throw and StopThenThrow both surface the first bad byte
// immediately (there is no partial-line boundary to stop at outside a
// stream), Replace substitutes repChar for each bad byte and keeps going.
func convertFrom(store *converterStorage, data []byte) (string, int, error) {
	if store.action != errActReplace {
		out, n, err := transform.Bytes(store.enc.NewDecoder(), data)
		if err != nil {
			return "", n, err
		}
		return string(out), n, nil
	}

	var sb strings.Builder
	remaining := data
	consumed := 0
	for len(remaining) > 0 {
		out, n, err := transform.Bytes(store.enc.NewDecoder(), remaining)
		sb.Write(out)
		consumed += n
		if err == nil {
			break
		}
		// Skip the offending byte, note it as a replacement, and retry
		// the rest of the buffer.
		sb.WriteRune(store.repChar)
		skip := n + 1
		if skip > len(remaining) {
			skip = len(remaining)
		}
		remaining = remaining[skip:]
		consumed = consumed + (skip - n)
	}
	return sb.String(), consumed, nil
}

// convertTo encodes text under store's encoding, honoring the same
// error-action triple on the encode side: Replace substitutes repChar
// for each source rune the target encoding cannot represent.
func convertTo(store *converterStorage, text string) ([]byte, error) {
	if store.action != errActReplace {
		out, _, err := transform.Bytes(store.enc.NewEncoder(), []byte(text))
		if err != nil {
			return nil, err
		}
		return out, nil
	}

	var out []byte
	remaining := []byte(text)
	for len(remaining) > 0 {
		chunk, n, err := transform.Bytes(store.enc.NewEncoder(), remaining)
		out = append(out, chunk...)
		if err == nil {
			break
		}
		repBytes, _, rerr := transform.Bytes(store.enc.NewEncoder(), []byte(string(store.repChar)))
		if rerr == nil {
			out = append(out, repBytes...)
		}
		// Skip past the rune that failed to encode.
		skip := n
		if skip < len(remaining) {
			_, size := decodeRuneSize(remaining[skip:])
			skip += size
		}
		if skip <= n || skip > len(remaining) {
			skip = len(remaining)
		}
		remaining = remaining[skip:]
	}
	return out, nil
}

// decodeRuneSize returns a throwaway rune and the byte width of the
// leading UTF-8 sequence in b, used only to step past an unencodable
// rune during a Replace pass.
func decodeRuneSize(b []byte) (rune, int) {
	if len(b) == 0 {
		return 0, 0
	}
	r := rune(b[0])
	switch {
	case b[0] < 0x80:
		return r, 1
	case b[0]&0xE0 == 0xC0 && len(b) >= 2:
		return r, 2
	case b[0]&0xF0 == 0xE0 && len(b) >= 3:
		return r, 3
	case b[0]&0xF8 == 0xF0 && len(b) >= 4:
		return r, 4
	}
	return r, 1
}
