package filter

import (
	"bytes"
	"strings"
)

// header is one header field to prepend
type header struct {
	name  string
	value string
}

// splitMessage returns the raw header block and body. The header block keeps
// its trailing line ending and the body excludes the blank separator line.
func splitMessage(raw []byte) (head, body []byte) {
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		return raw[:i+2], raw[i+4:]
	}
	if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		return raw[:i+1], raw[i+2:]
	}
	return raw, nil
}

// rewriteMessage prepends headers and, when subjectPrefix is set, prefixes
// the Subject field. Everything else is passed through unchanged.
func rewriteMessage(raw []byte, add []header, subjectPrefix string) []byte {
	head, body := splitMessage(raw)

	var out bytes.Buffer
	for _, h := range add {
		out.WriteString(h.name)
		out.WriteString(": ")
		out.WriteString(sanitizeHeaderValue(h.value))
		out.WriteString("\r\n")
	}

	if subjectPrefix != "" {
		head = prefixSubject(head, subjectPrefix)
	}
	out.Write(head)
	switch {
	case bytes.HasSuffix(head, []byte("\r\n")):
		out.WriteString("\r\n")
	case bytes.HasSuffix(head, []byte("\n")):
		out.WriteString("\n")
	default:
		out.WriteString("\r\n\r\n")
	}
	out.Write(body)
	return out.Bytes()
}

// prefixSubject inserts prefix at the start of the Subject value, adding a
// Subject field when there is none
func prefixSubject(head []byte, prefix string) []byte {
	lines := bytes.SplitAfter(head, []byte("\n"))
	for i, line := range lines {
		name, value, ok := bytes.Cut(line, []byte(":"))
		if !ok || !strings.EqualFold(string(name), "Subject") {
			continue
		}
		value = bytes.TrimLeft(value, " \t")
		var b bytes.Buffer
		b.Write(name)
		b.WriteString(": ")
		b.WriteString(sanitizeHeaderValue(prefix))
		b.Write(value)
		lines[i] = b.Bytes()
		return bytes.Join(lines, nil)
	}

	var b bytes.Buffer
	b.Write(head)
	if len(head) > 0 && !bytes.HasSuffix(head, []byte("\n")) {
		b.WriteString("\r\n")
	}
	b.WriteString("Subject: " + strings.TrimSpace(sanitizeHeaderValue(prefix)) + "\r\n")
	return b.Bytes()
}

// sanitizeHeaderValue keeps a value on one line
func sanitizeHeaderValue(v string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(v)
}
