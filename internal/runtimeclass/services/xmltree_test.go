package services

import "testing"

const sampleXML = `<root attr="v"><child>text</child><child>again</child></root>`

func TestXMLTreeParseAndNavigate(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, XMLTreeParserPath)

	mustInvoke(t, ctx, rc, recv, desc, "ParseString", vo(sampleXML))
	root := mustInvoke(t, ctx, rc, recv, desc, "GetRootAnchor").Payload.(int64)

	name := mustInvoke(t, ctx, rc, recv, desc, "GetElemName", vo(root)).Payload.(string)
	if name != "root" {
		t.Fatalf("GetElemName(root): got %q, want root", name)
	}

	attr := mustInvoke(t, ctx, rc, recv, desc, "GetAttribute", vo(root), vo("attr")).Payload.(string)
	if attr != "v" {
		t.Fatalf("GetAttribute(root, attr): got %q, want v", attr)
	}

	count := mustInvoke(t, ctx, rc, recv, desc, "ChildCount", vo(root)).Payload.(int64)
	if count != 2 {
		t.Fatalf("ChildCount(root): got %d, want 2", count)
	}

	firstChild := mustInvoke(t, ctx, rc, recv, desc, "ChildAnchor", vo(root), vo(int64(0))).Payload.(int64)
	childText := mustInvoke(t, ctx, rc, recv, desc, "GetChildText", vo(firstChild)).Payload.(string)
	if childText != "text" {
		t.Fatalf("GetChildText(first child): got %q, want text", childText)
	}

	found := mustInvoke(t, ctx, rc, recv, desc, "FindChildByName", vo(root), vo("child")).Payload.(int64)
	if found != firstChild {
		t.Fatalf("FindChildByName: got anchor %d, want %d", found, firstChild)
	}
}

func TestXMLTreeGetRootAnchorRaisesBeforeParse(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, XMLTreeParserPath)

	_, err := invoke(t, ctx, rc, recv, desc, "GetRootAnchor")
	if err == nil {
		t.Fatal("expected GetRootAnchor to raise before any document has been parsed")
	}
}

func TestXMLTreeBadAnchorRaises(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, XMLTreeParserPath)
	mustInvoke(t, ctx, rc, recv, desc, "ParseString", vo(sampleXML))

	_, err := invoke(t, ctx, rc, recv, desc, "GetElemName", vo(int64(999)))
	if err == nil {
		t.Fatal("expected GetElemName to raise for an out-of-range anchor")
	}
}

func TestXMLTreeParseStringRaisesOnMalformedInput(t *testing.T) {
	ctx, desc, rc, recv := newTestClass(t, XMLTreeParserPath)

	_, err := invoke(t, ctx, rc, recv, desc, "ParseString", vo("<unclosed>"))
	if err == nil {
		t.Fatal("expected ParseString to raise for malformed XML")
	}
}
