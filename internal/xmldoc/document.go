package xmldoc

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"
)

// PartnerNamespace is stamped onto every response root element.
const PartnerNamespace = "http://toursgds.com/api/01"

var interTagWhitespace = regexp.MustCompile(`>\s+<`)

type Attr struct {
	Name  string
	Value string
}

type Element struct {
	Tag      string
	Text     string
	Attrs    []Attr
	Children []*Element
}

// Document wraps one parsed or built XML tree. Parse failures are data,
// not errors: Validated flips to false and ErrorMessage says why.
type Document struct {
	Root         *Element
	Validated    bool
	ErrorMessage string
}

// Parse validates and loads a raw request body. Accepts an optional
// "data=" URL-encoded wrapper. Namespace prefixes are stripped from every
// tag so lookups use bare local names.
func Parse(raw []byte) *Document {
	doc := &Document{Validated: true}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		doc.Validated = false
		doc.ErrorMessage = "The content was empty"
		return doc
	}

	if strings.HasPrefix(trimmed, "data=") {
		encoded := strings.SplitN(trimmed, "=", 2)[1]
		if decoded, err := url.QueryUnescape(encoded); err == nil {
			trimmed = decoded
		} else {
			trimmed = encoded
		}
		trimmed = strings.TrimSpace(trimmed)
	}

	trimmed = interTagWhitespace.ReplaceAllString(trimmed, "><")

	if trimmed == "" || trimmed[0] != '<' {
		doc.Validated = false
		doc.ErrorMessage = "Invalid XML - Missing starting tag"
		return doc
	}

	root, err := decode(strings.NewReader(trimmed))
	if err != nil {
		doc.Validated = false
		doc.ErrorMessage = fmt.Sprintf("Malformed xml (%s)", err)
		return doc
	}

	doc.Root = root
	return doc
}

// New starts a response document with the given root tag, carrying the
// partner namespace.
func New(rootTag string) *Document {
	return &Document{
		Validated: true,
		Root: &Element{
			Tag:   rootTag,
			Attrs: []Attr{{Name: "xmlns", Value: PartnerNamespace}},
		},
	}
}

func decode(r io.Reader) (*Element, error) {
	decoder := xml.NewDecoder(r)

	var root *Element
	var stack []*Element

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			element := &Element{Tag: localName(t.Name.Local)}
			for _, a := range t.Attr {
				if a.Name.Local == "xmlns" || a.Name.Space == "xmlns" {
					continue
				}
				element.Attrs = append(element.Attrs, Attr{Name: localName(a.Name.Local), Value: a.Value})
			}

			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = element
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, element)
			}
			stack = append(stack, element)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, fmt.Errorf("unexpected closing tag %s", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text != "" {
				stack[len(stack)-1].Text += text
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("unclosed tag %s", stack[len(stack)-1].Tag)
	}

	return root, nil
}

// localName drops a namespace prefix left in the raw tag. The decoder
// resolves declared namespaces itself; this catches prefixes without a
// matching declaration.
func localName(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// RootTag returns the root tag name, or "" for an invalid document.
func (d *Document) RootTag() string {
	if d.Root == nil {
		return ""
	}
	return d.Root.Tag
}

// Element finds the first element with the given tag under base (root when
// base is nil). Direct children win over deeper matches. Absence is nil.
func (d *Document) Element(name string, base *Element) *Element {
	if base == nil {
		base = d.Root
	}
	if base == nil {
		return nil
	}

	for _, child := range base.Children {
		if child.Tag == name {
			return child
		}
	}
	for _, child := range base.Children {
		if found := d.Element(name, child); found != nil {
			return found
		}
	}

	return nil
}

// ElementText returns the text content of the first matching element, or ""
// when the element is missing.
func (d *Document) ElementText(name string, base *Element) string {
	element := d.Element(name, base)
	if element == nil {
		return ""
	}
	return element.Text
}

// ElementList returns every direct child of base with the given tag, walking
// deeper only when no direct child matches.
func (d *Document) ElementList(name string, base *Element) []*Element {
	if base == nil {
		base = d.Root
	}
	if base == nil {
		return nil
	}

	var matches []*Element
	for _, child := range base.Children {
		if child.Tag == name {
			matches = append(matches, child)
		}
	}
	if len(matches) > 0 {
		return matches
	}

	for _, child := range base.Children {
		if found := d.ElementList(name, child); len(found) > 0 {
			return found
		}
	}

	return nil
}

// CreateElement appends a new child with optional text under base (root when
// nil) and returns it.
func (d *Document) CreateElement(tag string, base *Element, text string) *Element {
	if base == nil {
		base = d.Root
	}
	if base == nil {
		return nil
	}

	element := &Element{Tag: tag, Text: text}
	base.Children = append(base.Children, element)
	return element
}

// Append moves an existing element (for example one lifted out of the request
// document) under base.
func (d *Document) Append(element *Element, base *Element) *Element {
	if element == nil {
		return nil
	}
	if base == nil {
		base = d.Root
	}
	if base == nil {
		return nil
	}

	base.Children = append(base.Children, element)
	return element
}

func (e *Element) SetText(text string) {
	e.Text = text
}

// Serialize renders the tree as pretty-printed UTF-8 with an XML
// declaration, matching the historical wire format.
func (d *Document) Serialize() []byte {
	var buffer bytes.Buffer
	buffer.WriteString("<?xml version='1.0' encoding='UTF-8'?>\n")
	if d.Root != nil {
		writeElement(&buffer, d.Root, 0)
	}
	return buffer.Bytes()
}

func writeElement(buffer *bytes.Buffer, element *Element, depth int) {
	indent := strings.Repeat("  ", depth)

	buffer.WriteString(indent)
	buffer.WriteByte('<')
	buffer.WriteString(element.Tag)
	for _, attr := range element.Attrs {
		buffer.WriteByte(' ')
		buffer.WriteString(attr.Name)
		buffer.WriteString(`="`)
		buffer.WriteString(escape(attr.Value))
		buffer.WriteByte('"')
	}

	if len(element.Children) == 0 && element.Text == "" {
		buffer.WriteString("/>\n")
		return
	}

	buffer.WriteByte('>')

	if len(element.Children) == 0 {
		buffer.WriteString(escape(element.Text))
		buffer.WriteString("</")
		buffer.WriteString(element.Tag)
		buffer.WriteString(">\n")
		return
	}

	buffer.WriteByte('\n')
	if element.Text != "" {
		buffer.WriteString(strings.Repeat("  ", depth+1))
		buffer.WriteString(escape(element.Text))
		buffer.WriteByte('\n')
	}
	for _, child := range element.Children {
		writeElement(buffer, child, depth+1)
	}
	buffer.WriteString(indent)
	buffer.WriteString("</")
	buffer.WriteString(element.Tag)
	buffer.WriteString(">\n")
}

func escape(text string) string {
	var buffer bytes.Buffer
	_ = xml.EscapeText(&buffer, []byte(text))
	return buffer.String()
}
