// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package xmltree parses a complete XML document string into a tree of
// elements with tag-name lookup. It is deliberately minimal: no namespaces,
// no entity expansion, no comments or CDATA, only what repository search
// results actually use. The whole document must fit in memory.
package xmltree

import (
	"fmt"
	"regexp"
	"strings"
)

// MalformedDocumentError reports a document that cannot be built into a
// single rooted tree: mismatched open/close tags, an invalid tag token, or
// input that ends with elements still open.
type MalformedDocumentError struct {
	Reason string
}

func (e *MalformedDocumentError) Error() string {
	return "malformed document: " + e.Reason
}

// Element is one node of the parse tree. Elements are immutable once Parse
// returns; the tree is strictly parent-owns-children.
type Element struct {
	// Tag is the element name.
	Tag string

	// Attrib maps attribute names to their unquoted values.
	Attrib map[string]string

	// Children holds the direct child elements in document order.
	Children []*Element

	// Text is the character data found immediately inside the element,
	// trimmed of surrounding whitespace. If an element contains several
	// text runs separated by children, the last run wins; that is an
	// accepted parser limitation.
	Text string
}

// Find returns the first direct child with the given tag, or nil.
func (e *Element) Find(tag string) *Element {
	for _, child := range e.Children {
		if child.Tag == tag {
			return child
		}
	}
	return nil
}

// FindAll returns all direct children with the given tag, in document order.
func (e *Element) FindAll(tag string) []*Element {
	var subset []*Element
	for _, child := range e.Children {
		if child.Tag == tag {
			subset = append(subset, child)
		}
	}
	return subset
}

// FindText returns the text of the first direct child with the given tag,
// or "" when there is no such child.
func (e *Element) FindText(tag string) string {
	if child := e.Find(tag); child != nil {
		return child.Text
	}
	return ""
}

type tagKind int

const (
	tagOpen   tagKind = iota // <foo>
	tagClose                 // </foo>
	tagSingle                // <foo/>
)

// tagNamePattern matches the start of a tag token: optional leading
// whitespace, '<', an optional '/' (group 1), and the tag name (group 2).
// Tag names may contain letters, digits, '_', '-', and '.'.
var tagNamePattern = regexp.MustCompile(`^[ \t\n]*<(/)?([A-Za-z_0-9\-.]+)`)

// parsedTag is the result of decoding one tag token.
type parsedTag struct {
	name   string
	kind   tagKind
	attrib map[string]string
}

// parseTag decodes a raw tag token like `<article article-type="editorial">`.
func parseTag(token string) (parsedTag, error) {
	m := tagNamePattern.FindStringSubmatch(token)
	if m == nil {
		return parsedTag{}, &MalformedDocumentError{Reason: fmt.Sprintf("invalid tag: %s", token)}
	}

	pt := parsedTag{name: m[2], attrib: map[string]string{}}
	switch {
	case m[1] == "/":
		pt.kind = tagClose
	case len(token) >= 2 && token[len(token)-2] == '/':
		pt.kind = tagSingle
	default:
		pt.kind = tagOpen
	}

	rest := token[len(m[0]):]
	rest = strings.TrimSuffix(rest, ">")
	rest = strings.TrimSuffix(rest, "/")
	rest = strings.TrimSpace(rest)
	if rest != "" {
		parseAttributes(rest, pt.attrib)
	}
	return pt, nil
}

// parseAttributes scans `name="value"` pairs. It alternates between reading
// an attribute name (up to '=') and a quoted value; either quote character
// may open a value, and the other quote is then literal inside it.
func parseAttributes(s string, attrib map[string]string) {
	var (
		inName, inValue bool
		openQuote       byte
		name, value     strings.Builder
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inName:
			if c == '=' {
				inName = false
			} else {
				name.WriteByte(c)
			}
		case inValue:
			if c == openQuote {
				inValue = false
				attrib[name.String()] = value.String()
				name.Reset()
				value.Reset()
			} else {
				value.WriteByte(c)
			}
		case c == ' ' || c == '\t' || c == '\n':
			// between tokens
		case name.Len() == 0:
			inName = true
			name.WriteByte(c)
		case c == '\'' || c == '"':
			inValue = true
			openQuote = c
		}
	}
}

// nextTag pulls the next tag token from the front of s, returning the text
// found before the tag, the tag token itself, and the unconsumed remainder.
// Quoted spans inside a tag are honored so that '<', '>', and the other
// quote character inside an attribute value do not terminate the scan.
// When no further tag exists it returns (s, "", "").
func nextTag(s string) (before, tag, rest string) {
	var (
		inTag, inQuote bool
		openQuote      byte
		beforeB, tagB  strings.Builder
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case !inTag:
			if c == '<' {
				inTag = true
				tagB.WriteByte(c)
			} else {
				beforeB.WriteByte(c)
			}
		case inQuote:
			if c == openQuote {
				inQuote = false
			}
			tagB.WriteByte(c)
		case c == '\'' || c == '"':
			inQuote = true
			openQuote = c
			tagB.WriteByte(c)
		case c == '>':
			tagB.WriteByte(c)
			return beforeB.String(), tagB.String(), s[i+1:]
		default:
			tagB.WriteByte(c)
		}
	}
	return s, "", ""
}

// Parse tokenizes the document and builds the element tree with an explicit
// stack of open elements. It returns the root element, or a
// *MalformedDocumentError when tags are mismatched or the document ends
// with unclosed elements.
func Parse(document string) (*Element, error) {
	var stack []*Element

	text, token, rest := nextTag(document)
	for token != "" || rest != "" {
		if trimmed := strings.TrimSpace(text); trimmed != "" && len(stack) > 0 {
			stack[len(stack)-1].Text = trimmed
		}

		// The XML prolog is recognized and skipped, not treated as an element.
		if token != "" && !strings.HasPrefix(token, "<?xml") {
			pt, err := parseTag(token)
			if err != nil {
				return nil, err
			}

			switch pt.kind {
			case tagOpen:
				stack = append(stack, &Element{Tag: pt.name, Attrib: pt.attrib})

			case tagClose:
				if len(stack) == 0 {
					return nil, &MalformedDocumentError{
						Reason: fmt.Sprintf("closing tag %q with no open element", pt.name),
					}
				}
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.Tag != pt.name {
					return nil, &MalformedDocumentError{
						Reason: fmt.Sprintf("mismatching open/close tags: (%s, %s)", top.Tag, pt.name),
					}
				}
				if len(stack) == 0 {
					return top, nil // document root
				}
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, top)

			case tagSingle:
				if len(stack) == 0 {
					return nil, &MalformedDocumentError{
						Reason: fmt.Sprintf("self-closing tag %q outside any element", pt.name),
					}
				}
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, &Element{Tag: pt.name, Attrib: pt.attrib})
			}
		}

		text, token, rest = nextTag(rest)
	}

	return nil, &MalformedDocumentError{Reason: "did not find end of document"}
}
