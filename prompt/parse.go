package prompt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnterminatedSection is returned by Render when an {{#each}} or {{#if}}
// has no matching close tag. It is the only template error; the renderer
// never attempts partial recovery of a malformed template.
var ErrUnterminatedSection = errors.New("unterminated template section")

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

type nodeKind int

const (
	textNode nodeKind = iota
	varNode
	eachNode
	ifNode
)

func (k nodeKind) String() string {
	switch k {
	case eachNode:
		return "each"
	case ifNode:
		return "if"
	case varNode:
		return "var"
	default:
		return "text"
	}
}

// node is one element of a parsed template. Sections own their body.
type node struct {
	kind nodeKind
	text string   // literal text for textNode
	path []string // dotted expression for varNode / sections
	body []node
}

// parser turns template source into a node tree. Sections of either kind
// nest through a recursive descent. A section only ends at a close tag of
// its own kind; close tags of the other kind are body text.
type parser struct {
	src string
	pos int
}

func parse(src string) ([]node, error) {
	p := &parser{src: src}
	nodes, _, err := p.parseUntil(nil)
	return nodes, err
}

// parseUntil consumes nodes until the close tag of open (if any) is found.
// It returns the name of the consumed close tag ("" at end of input).
func (p *parser) parseUntil(open *node) ([]node, string, error) {
	var (
		nodes []node
		text  strings.Builder
	)
	flush := func() {
		if text.Len() > 0 {
			nodes = append(nodes, node{kind: textNode, text: text.String()})
			text.Reset()
		}
	}

	for p.pos < len(p.src) {
		idx := strings.Index(p.src[p.pos:], openDelim)
		if idx < 0 {
			text.WriteString(p.src[p.pos:])
			p.pos = len(p.src)
			break
		}
		start := p.pos + idx
		text.WriteString(p.src[p.pos:start])

		end := strings.Index(p.src[start+len(openDelim):], closeDelim)
		if end < 0 {
			text.WriteString(p.src[start:])
			p.pos = len(p.src)
			break
		}
		inner := p.src[start+len(openDelim) : start+len(openDelim)+end]
		after := start + len(openDelim) + end + len(closeDelim)

		switch tag, kind, expr := classify(inner); tag {
		case tagOpen:
			flush()
			p.pos = after
			section := node{kind: kind, path: splitPath(expr)}
			body, closed, err := p.parseUntil(&section)
			if err != nil {
				return nil, "", err
			}
			if closed == "" {
				return nil, "", fmt.Errorf("%w: {{#%s %s}} at offset %d", ErrUnterminatedSection, kind, expr, start)
			}
			section.body = body
			nodes = append(nodes, section)
		case tagClose:
			if open == nil || kind != open.kind {
				// stray or foreign close tags are kept verbatim
				text.WriteString(p.src[start:after])
				p.pos = after
				continue
			}
			flush()
			p.pos = after
			return nodes, kind.String(), nil
		case tagVar:
			flush()
			nodes = append(nodes, node{kind: varNode, path: splitPath(expr)})
			p.pos = after
		default:
			// not a tag: emit the first brace and rescan from the next byte,
			// so "{{{x}}}" still resolves the inner "{{x}}"
			text.WriteByte(p.src[start])
			p.pos = start + 1
		}
	}
	flush()
	return nodes, "", nil
}

type tagType int

const (
	tagNone tagType = iota
	tagOpen
	tagClose
	tagVar
)

// classify inspects the text between "{{" and "}}".
func classify(inner string) (tagType, nodeKind, string) {
	if inner == "" || strings.ContainsRune(inner, '}') {
		return tagNone, textNode, ""
	}
	switch inner[0] {
	case '#':
		for _, kind := range []nodeKind{eachNode, ifNode} {
			prefix := "#" + kind.String() + " "
			if strings.HasPrefix(inner, prefix) {
				expr := strings.TrimSpace(inner[len(prefix):])
				if expr == "" {
					return tagNone, textNode, ""
				}
				return tagOpen, kind, expr
			}
		}
		return tagNone, textNode, ""
	case '/':
		switch inner {
		case "/each":
			return tagClose, eachNode, ""
		case "/if":
			return tagClose, ifNode, ""
		}
		return tagNone, textNode, ""
	case '{':
		return tagNone, textNode, ""
	default:
		return tagVar, varNode, strings.TrimSpace(inner)
	}
}

func splitPath(expr string) []string {
	return strings.Split(expr, ".")
}
