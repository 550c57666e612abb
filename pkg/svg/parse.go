package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"golang.org/x/net/html/charset"

	errs "github.com/matzehuels/skylayer/pkg/errors"
)

// Document is a parsed vector document.
type Document struct {
	// Root is the <svg> element.
	Root *Node

	// ViewBox is the canvas rectangle, possibly the DefaultViewBox fallback.
	ViewBox ViewBox

	// Prolog holds comments, directives and processing instructions that
	// precede the root element, excluding the XML declaration.
	Prolog []string

	// Source is the exact input Parse was given, nil for built documents.
	Source []byte
}

// ParseOption configures Parse.
type ParseOption func(*parseConfig)

type parseConfig struct {
	logger   *log.Logger
	fallback ViewBox
}

// WithLogger sets the logger that receives the viewBox fallback warning.
func WithLogger(l *log.Logger) ParseOption {
	return func(c *parseConfig) { c.logger = l }
}

// WithDefaultViewBox replaces DefaultViewBox as the fallback canvas.
// Degenerate values are ignored.
func WithDefaultViewBox(vb ViewBox) ParseOption {
	return func(c *parseConfig) {
		if !vb.Degenerate() {
			c.fallback = vb
		}
	}
}

// Parse decodes data into a Document.
//
// It fails with an errors.ErrCodeParseFailure error when data is not
// well-formed XML, has no root element, has more than one root element, or
// the root element is not svg.
func Parse(data []byte, opts ...ParseOption) (*Document, error) {
	cfg := parseConfig{logger: log.New(io.Discard), fallback: DefaultViewBox}
	for _, opt := range opts {
		opt(&cfg)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errs.New(errs.ErrCodeParseFailure, "document is empty")
	}

	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	doc := &Document{Source: data}
	var stack []*Node
	closed := false

	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeParseFailure, err, "decode document")
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if closed {
				return nil, errs.New(errs.ErrCodeParseFailure, "unexpected element <%s> after root", qualified(t.Name))
			}
			n := &Node{Kind: ElementNode, Prefix: t.Name.Space, Name: t.Name.Local}
			for _, a := range t.Attr {
				n.Attrs = append(n.Attrs, Attr{Prefix: a.Name.Space, Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) == 0 {
				doc.Root = n
			} else {
				stack[len(stack)-1].Append(n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errs.New(errs.ErrCodeParseFailure, "unexpected closing tag </%s>", qualified(t.Name))
			}
			top := stack[len(stack)-1]
			if top.Prefix != t.Name.Space || top.Name != t.Name.Local {
				return nil, errs.New(errs.ErrCodeParseFailure,
					"closing tag </%s> does not match <%s>", qualified(t.Name), qualifiedNode(top))
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				closed = true
			}

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Append(&Node{Kind: TextNode, Text: string(t)})
			} else if len(bytes.TrimSpace(t)) > 0 {
				return nil, errs.New(errs.ErrCodeParseFailure, "text outside of root element")
			}

		case xml.Comment:
			if len(stack) > 0 {
				stack[len(stack)-1].Append(&Node{Kind: CommentNode, Text: string(t)})
			} else if doc.Root == nil {
				doc.Prolog = append(doc.Prolog, "<!--"+string(t)+"-->")
			}

		case xml.ProcInst:
			if t.Target == "xml" || doc.Root != nil {
				continue
			}
			doc.Prolog = append(doc.Prolog, fmt.Sprintf("<?%s %s?>", t.Target, t.Inst))

		case xml.Directive:
			if doc.Root == nil {
				doc.Prolog = append(doc.Prolog, "<!"+string(t)+">")
			}
		}
	}

	if doc.Root == nil {
		return nil, errs.New(errs.ErrCodeParseFailure, "document has no root element")
	}
	if len(stack) > 0 {
		return nil, errs.New(errs.ErrCodeParseFailure, "unclosed element <%s>", qualifiedNode(stack[len(stack)-1]))
	}
	if doc.Root.Name != "svg" {
		return nil, errs.New(errs.ErrCodeParseFailure, "root element is <%s>, want <svg>", qualifiedNode(doc.Root))
	}

	doc.ViewBox = resolveViewBox(doc.Root, cfg)
	return doc, nil
}

func resolveViewBox(root *Node, cfg parseConfig) ViewBox {
	fallback := cfg.fallback
	fallback.Fallback = true

	raw, ok := root.Attr("viewBox")
	if !ok {
		cfg.logger.Warn("document has no viewBox, using default canvas", "viewBox", fallback.String())
		return fallback
	}
	vb, ok := ParseViewBox(raw)
	if !ok {
		cfg.logger.Warn("unparseable viewBox, using default canvas", "value", raw, "viewBox", fallback.String())
		return fallback
	}
	return vb
}

// New creates an empty document with the given canvas.
func New(vb ViewBox) *Document {
	vb.Fallback = false
	root := NewElement("svg", "xmlns", Namespace, "viewBox", vb.String())
	return &Document{Root: root, ViewBox: vb}
}

// Namespace is the SVG namespace URI.
const Namespace = "http://www.w3.org/2000/svg"

// Namespaces returns the prefixed namespace declarations (xmlns:*) of the
// root element in source order.
func (d *Document) Namespaces() []Attr {
	var out []Attr
	for _, a := range d.Root.Attrs {
		if a.Prefix == "xmlns" {
			out = append(out, a)
		}
	}
	return out
}

// Declare adds prefixed namespace declarations to the root element. Prefixes
// the root already declares keep their value.
func (d *Document) Declare(ns []Attr) {
	for _, a := range ns {
		if a.Prefix != "xmlns" || d.Root.declares(a.Name) {
			continue
		}
		d.Root.Attrs = append(d.Root.Attrs, a)
	}
}

func (n *Node) declares(prefix string) bool {
	for _, a := range n.Attrs {
		if a.Prefix == "xmlns" && a.Name == prefix {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of d without its Source.
func (d *Document) Clone() *Document {
	c := &Document{
		Root:    d.Root.Clone(),
		ViewBox: d.ViewBox,
	}
	if d.Prolog != nil {
		c.Prolog = append([]string(nil), d.Prolog...)
	}
	return c
}

// SetViewBox updates the canvas and the root's viewBox attribute.
func (d *Document) SetViewBox(vb ViewBox) {
	vb.Fallback = false
	d.ViewBox = vb
	d.Root.SetAttr("viewBox", vb.String())
}

func qualified(n xml.Name) string {
	if n.Space != "" {
		return n.Space + ":" + n.Local
	}
	return n.Local
}

func qualifiedNode(n *Node) string {
	return strings.TrimPrefix(n.Prefix+":"+n.Name, ":")
}
