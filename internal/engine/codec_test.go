package engine

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeInstructionsRoundTrip(t *testing.T) {
	want := []Instruction{
		{Op: OpPushBoolean, ClassID: 3, B: 0},
		{Op: OpCallDirect, ClassID: 7, B: 12},
		{Op: OpReturn},
	}
	got, err := DecodeInstructions(EncodeInstructions(want))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestDecodeInstructionsRejectsMalformedLength(t *testing.T) {
	if _, err := DecodeInstructions([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error decoding a stream whose length isn't a multiple of the instruction width")
	}
}
