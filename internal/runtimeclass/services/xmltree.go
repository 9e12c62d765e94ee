package services

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/cidlib/macroeng/internal/classmeta"
	"github.com/cidlib/macroeng/internal/ids"
	"github.com/cidlib/macroeng/internal/runtimeclass"
)

// XMLTreeParserPath is MEng.System.Runtime.XMLTreeParser's class path.
const XMLTreeParserPath = "MEng.System.Runtime.XMLTreeParser"

const (
	errOrdXMLParseFailed uint32 = iota + 1
	errOrdXMLElemNotFound
	errOrdXMLAttrNotFound
	errOrdXMLBadAnchor
	errOrdXMLNoDocument
)

// xmlNode is one element in the parsed tree; anchors (as used by
// CIDMacroEng_XMLClasses.cpp's TMEngXMLTreeAnchorVal) are plain indices
// into treeStorage.nodes rather than a distinct macro-visible value
// type, since nothing else in this package models an opaque handle and
// an int64 already serves every anchor operation the source exposes.
type xmlNode struct {
	name     string
	attrs    map[string]string
	text     string
	children []int
	parent   int
}

type treeStorage struct {
	nodes    []xmlNode
	rootDone bool
}

// XMLTreeParser is MEng.System.Runtime.XMLTreeParser: parses an XML
// document into an anchor-addressable tree, grounded on
// CIDMacroEng_XMLClasses.cpp's TMEngXMLTreeParserInfo (ParseString,
// GetRootAnchor, FindChildByName, GetElemName, GetChildText,
// GetAttribute) using stdlib encoding/xml — no third-party XML library
// appears anywhere in the retrieval pack.
type XMLTreeParser struct {
	idParseString                     ids.MethodID
	idGetRootAnchor                   ids.MethodID
	idGetElemName, idGetChildText     ids.MethodID
	idGetAttribute, idFindChildByName ids.MethodID
	idChildCount, idChildAnchor       ids.MethodID
}

func NewXMLTreeParser() *XMLTreeParser { return &XMLTreeParser{} }

func (x *XMLTreeParser) Path() string { return XMLTreeParserPath }

func (x *XMLTreeParser) Init(ctx runtimeclass.EngineContext, reg *classmeta.Registry) (*classmeta.ClassDescriptor, error) {
	desc, err := reg.RegisterClass(x.Path(), ids.InvalidClassID, classmeta.Final, true)
	if err != nil {
		return nil, err
	}
	for name, target := range map[string]*ids.MethodID{
		"ParseString": &x.idParseString, "GetRootAnchor": &x.idGetRootAnchor,
		"GetElemName": &x.idGetElemName, "GetChildText": &x.idGetChildText,
		"GetAttribute": &x.idGetAttribute, "FindChildByName": &x.idFindChildByName,
		"ChildCount": &x.idChildCount, "ChildAnchor": &x.idChildAnchor,
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

func (x *XMLTreeParser) MakeStorage(bool) classmeta.Payload { return &treeStorage{} }

func (x *XMLTreeParser) InvokeMethod(ctx runtimeclass.EngineContext, methodID ids.MethodID, receiver *classmeta.ValueObject, args []*classmeta.ValueObject) (*classmeta.ValueObject, bool, error) {
	store, _ := receiver.Payload.(*treeStorage)
	if store == nil {
		store = &treeStorage{}
		receiver.Payload = store
	}

	switch methodID {
	case x.idParseString:
		nodes, err := parseXMLTree(strArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLParseFailed, err.Error())
		}
		store.nodes = nodes
		store.rootDone = true
		return receiver, true, nil

	case x.idGetRootAnchor:
		if !store.rootDone || len(store.nodes) == 0 {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLNoDocument, "no document has been parsed")
		}
		return classmeta.NewValueObject(ids.InvalidClassID, int64(0)), true, nil

	case x.idGetElemName:
		node, err := anchorNode(store, intArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLBadAnchor, err.Error())
		}
		return classmeta.NewValueObject(ids.InvalidClassID, node.name), true, nil

	case x.idGetChildText:
		node, err := anchorNode(store, intArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLBadAnchor, err.Error())
		}
		return classmeta.NewValueObject(ids.InvalidClassID, strings.TrimSpace(node.text)), true, nil

	case x.idGetAttribute:
		node, err := anchorNode(store, intArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLBadAnchor, err.Error())
		}
		attrName := strArg(args, 1)
		val, ok := node.attrs[attrName]
		if !ok {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLAttrNotFound, "no attribute named "+attrName)
		}
		return classmeta.NewValueObject(ids.InvalidClassID, val), true, nil

	case x.idFindChildByName:
		node, err := anchorNode(store, intArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLBadAnchor, err.Error())
		}
		childName := strArg(args, 1)
		for _, childIdx := range node.children {
			if store.nodes[childIdx].name == childName {
				return classmeta.NewValueObject(ids.InvalidClassID, int64(childIdx)), true, nil
			}
		}
		return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLElemNotFound, "no child element named "+childName)

	case x.idChildCount:
		node, err := anchorNode(store, intArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLBadAnchor, err.Error())
		}
		return classmeta.NewValueObject(ids.InvalidClassID, int64(len(node.children))), true, nil

	case x.idChildAnchor:
		node, err := anchorNode(store, intArg(args, 0))
		if err != nil {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLBadAnchor, err.Error())
		}
		idx := intArg(args, 1)
		if idx < 0 || idx >= len(node.children) {
			return nil, true, ctx.Raise(receiver.ClassID, errOrdXMLBadAnchor, "child index out of range")
		}
		return classmeta.NewValueObject(ids.InvalidClassID, int64(node.children[idx])), true, nil
	}
	return nil, false, nil
}

func anchorNode(store *treeStorage, anchor int) (*xmlNode, error) {
	if anchor < 0 || anchor >= len(store.nodes) {
		return nil, errBadAnchor
	}
	return &store.nodes[anchor], nil
}

type anchorErr string

func (e anchorErr) Error() string { return string(e) }

var errBadAnchor = anchorErr("anchor does not refer to a node in this document")

// parseXMLTree walks an XML document into a flat xmlNode slice, the
// index of each node within it doubling as its anchor.
func parseXMLTree(text string) ([]xmlNode, error) {
	dec := xml.NewDecoder(strings.NewReader(text))
	var nodes []xmlNode
	stack := []int{-1}

	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			node := xmlNode{name: t.Name.Local, attrs: map[string]string{}, parent: stack[len(stack)-1]}
			for _, a := range t.Attr {
				node.attrs[a.Name.Local] = a.Value
			}
			idx := len(nodes)
			nodes = append(nodes, node)
			if parent := stack[len(stack)-1]; parent >= 0 {
				nodes[parent].children = append(nodes[parent].children, idx)
			}
			stack = append(stack, idx)

		case xml.CharData:
			if top := stack[len(stack)-1]; top >= 0 {
				nodes[top].text += string(t)
			}

		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
	return nodes, nil
}
