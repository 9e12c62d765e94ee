package textconv

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"
)

// asciiEncoding is a strict 7-bit US-ASCII codec. x/text ships UTF-8 and
// UTF-16 variants but no plain ASCII one; this fills that gap the same
// way the rest of the class wraps a named encoding.Encoding.
type asciiEncoding struct{}

func (asciiEncoding) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: asciiDecoder{}}
}

func (asciiEncoding) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: asciiEncoder{}}
}

// errNotASCII marks a source byte (decode) or rune (encode) outside the
// 7-bit range; ConvertFrom/ConvertTo treat it as their BadSrcData/Unrep
// trigger.
type errNotASCII struct{}

func (errNotASCII) Error() string { return "byte outside 7-bit ASCII range" }

type asciiDecoder struct{ transform.NopResetter }

func (asciiDecoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		b := src[nSrc]
		if b >= 0x80 {
			return nDst, nSrc, errNotASCII{}
		}
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = b
		nDst++
		nSrc++
	}
	return nDst, nSrc, nil
}

type asciiEncoder struct{ transform.NopResetter }

func (asciiEncoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		b := src[nSrc]
		if b >= 0x80 {
			return nDst, nSrc, errNotASCII{}
		}
		if nDst >= len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}
		dst[nDst] = b
		nDst++
		nSrc++
	}
	return nDst, nSrc, nil
}
