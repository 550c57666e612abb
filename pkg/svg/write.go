package svg

import (
	"bytes"
	"io"
	"strings"
)

// Declaration is the XML declaration written at the top of every document.
const Declaration = `<?xml version="1.0" encoding="UTF-8"?>`

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer(
		"&", "&amp;", "<", "&lt;", `"`, "&quot;",
		"\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;",
	)
)

// Bytes serializes the document as a standalone UTF-8 document.
func (d *Document) Bytes() []byte {
	var buf bytes.Buffer
	_, _ = d.WriteTo(&buf)
	return buf.Bytes()
}

// WriteTo writes the serialized document to w.
func (d *Document) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	buf.WriteString(Declaration)
	buf.WriteByte('\n')
	for _, p := range d.Prolog {
		buf.WriteString(p)
		buf.WriteByte('\n')
	}
	writeNode(&buf, d.Root)
	buf.WriteByte('\n')
	return buf.WriteTo(w)
}

func writeNode(buf *bytes.Buffer, n *Node) {
	switch n.Kind {
	case TextNode:
		buf.WriteString(textEscaper.Replace(n.Text))
		return
	case CommentNode:
		buf.WriteString("<!--")
		buf.WriteString(n.Text)
		buf.WriteString("-->")
		return
	}

	buf.WriteByte('<')
	writeName(buf, n.Prefix, n.Name)
	for _, a := range n.Attrs {
		buf.WriteByte(' ')
		writeName(buf, a.Prefix, a.Name)
		buf.WriteString(`="`)
		buf.WriteString(attrEscaper.Replace(a.Value))
		buf.WriteByte('"')
	}
	if len(n.Children) == 0 {
		buf.WriteString("/>")
		return
	}
	buf.WriteByte('>')
	for _, c := range n.Children {
		writeNode(buf, c)
	}
	buf.WriteString("</")
	writeName(buf, n.Prefix, n.Name)
	buf.WriteByte('>')
}

func writeName(buf *bytes.Buffer, prefix, name string) {
	if prefix != "" {
		buf.WriteString(prefix)
		buf.WriteByte(':')
	}
	buf.WriteString(name)
}
