// Package extract finds candidate URLs in change-log rows.
package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Kind identifies the type of a Node.
type Kind int

// Node kinds mirror the JSON value types.
const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindObject
)

// Node is a generic semi-structured document. Only the fields matching Kind
// are meaningful.
type Node struct {
	Kind   Kind
	Bool   bool
	Number json.Number
	String string
	List   []Node
	// Fields keeps object members in document order.
	Fields []Field
}

// Field is one member of an object node.
type Field struct {
	Key   string
	Value Node
}

var errTrailingData = errors.New("trailing data after document")

// ParseNode decodes a JSON document into a Node tree. Numbers are kept in
// their textual form.
func ParseNode(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := decodeNode(dec)
	if err != nil {
		return Node{}, fmt.Errorf("decode payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Node{}, errTrailingData
	}
	return n, nil
}

func decodeNode(dec *json.Decoder) (Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return Node{}, err
	}
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeList(dec)
		default:
			return Node{}, fmt.Errorf("unexpected delimiter %q", v)
		}
	case string:
		return Node{Kind: KindString, String: v}, nil
	case json.Number:
		return Node{Kind: KindNumber, Number: v}, nil
	case bool:
		return Node{Kind: KindBool, Bool: v}, nil
	case nil:
		return Node{Kind: KindNull}, nil
	default:
		return Node{}, fmt.Errorf("unexpected token %T", tok)
	}
}

func decodeObject(dec *json.Decoder) (Node, error) {
	n := Node{Kind: KindObject}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Node{}, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return Node{}, fmt.Errorf("object key is %T", keyTok)
		}
		value, err := decodeNode(dec)
		if err != nil {
			return Node{}, err
		}
		n.Fields = append(n.Fields, Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return Node{}, err
	}
	return n, nil
}

func decodeList(dec *json.Decoder) (Node, error) {
	n := Node{Kind: KindList}
	for dec.More() {
		item, err := decodeNode(dec)
		if err != nil {
			return Node{}, err
		}
		n.List = append(n.List, item)
	}
	if _, err := dec.Token(); err != nil {
		return Node{}, err
	}
	return n, nil
}

// WalkStrings calls fn for every string value in the tree, depth first.
// Object keys are not visited.
func (n Node) WalkStrings(fn func(string)) {
	switch n.Kind {
	case KindString:
		fn(n.String)
	case KindList:
		for _, item := range n.List {
			item.WalkStrings(fn)
		}
	case KindObject:
		for _, f := range n.Fields {
			f.Value.WalkStrings(fn)
		}
	}
}
