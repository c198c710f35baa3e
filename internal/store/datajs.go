package store

// datajs.go - reading and writing data.js, the ES module that holds the
// books catalog and the origin tree:
//
//	export const ORIGIN_TREE = { "Tothymia": { "Silvanea": {} } };
//	export const BOOKS = [ "Herbal Basics" ];
//
// Comments are stripped first. Each literal is then rewritten into JSON
// (JS string escapes decoded, single-quoted strings and bare keys quoted)
// and parsed as a YAML flow collection, which also accepts trailing
// commas. The export keyword is optional on read and always written.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"gopkg.in/yaml.v3"

	"potiondb/internal/model"
)

const (
	originTreeVar = "ORIGIN_TREE"
	booksVar      = "BOOKS"
)

var declRe = regexp.MustCompile(`(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=`)

// DecodeDataJS parses data.js content into the books catalog and origin
// tree. A missing declaration yields an empty value.
func DecodeDataJS(src []byte) (books []string, tree *model.Tree, err error) {
	text := stripComments(string(src))
	tree = model.NewTree()

	lits := make(map[string]string)
	for _, m := range declRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		if name != originTreeVar && name != booksVar {
			continue
		}
		lit, err := literalAt(text, m[1])
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		if lit, err = normalizeLiteral(lit); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		lits[name] = lit
	}

	if lit, ok := lits[originTreeVar]; ok {
		var node yaml.Node
		if err := yaml.Unmarshal([]byte(lit), &node); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", originTreeVar, err)
		}
		if err := buildTree(tree, model.Root, documentContent(&node)); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", originTreeVar, err)
		}
	}
	if lit, ok := lits[booksVar]; ok {
		var node yaml.Node
		if err := yaml.Unmarshal([]byte(lit), &node); err != nil {
			return nil, nil, fmt.Errorf("parse %s: %w", booksVar, err)
		}
		if seq := documentContent(&node); seq != nil && seq.Kind == yaml.SequenceNode {
			for _, item := range seq.Content {
				if item.Kind == yaml.ScalarNode {
					books = append(books, item.Value)
				}
			}
		}
	}
	return model.CleanList(books), tree, nil
}

func documentContent(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil
		}
		return n.Content[0]
	}
	return n
}

// buildTree adds the keys of a mapping node under parent, in source order.
// Non-mapping values are leaves. Repeated sibling keys are merged. A key
// that cannot be a label (empty, or holding the path separator) fails the
// whole decode; it is never dropped.
func buildTree(tree *model.Tree, parent model.NodeID, n *yaml.Node) error {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		id, err := tree.Add(parent, key)
		if errors.Is(err, model.ErrDuplicateName) {
			id, _ = tree.Child(parent, strings.TrimSpace(key))
		} else if err != nil {
			// Not wrapped: the file is broken, the caller's input is not.
			return fmt.Errorf("origin key %q under %q: %v", key, tree.Path(parent), err)
		}
		if err := buildTree(tree, id, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// EncodeDataJS renders books and tree as an ES module.
func EncodeDataJS(books []string, tree *model.Tree) []byte {
	var buf bytes.Buffer
	buf.WriteString("export const " + originTreeVar + " = ")
	writeNode(&buf, tree, model.Root, 0)
	buf.WriteString(";\n\nexport const " + booksVar + " = ")
	if len(books) == 0 {
		buf.WriteString("[]")
	} else {
		buf.WriteString("[\n")
		for i, b := range books {
			buf.WriteString("  " + jsString(b))
			if i < len(books)-1 {
				buf.WriteByte(',')
			}
			buf.WriteByte('\n')
		}
		buf.WriteString("]")
	}
	buf.WriteString(";\n")
	return buf.Bytes()
}

func writeNode(buf *bytes.Buffer, tree *model.Tree, id model.NodeID, depth int) {
	children := tree.Children(id)
	if len(children) == 0 {
		buf.WriteString("{}")
		return
	}
	indent := strings.Repeat("  ", depth+1)
	buf.WriteString("{\n")
	for i, c := range children {
		buf.WriteString(indent + jsString(tree.Label(c)) + ": ")
		writeNode(buf, tree, c, depth+1)
		if i < len(children)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString(strings.Repeat("  ", depth) + "}")
}

// jsString quotes s as a JSON string, which is also a valid JS literal.
func jsString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// ---------------------------------------------------------------------------
// Lexing helpers
// ---------------------------------------------------------------------------

// stripComments removes // and /* */ comments outside string literals.
func stripComments(src string) string {
	var out strings.Builder
	out.Grow(len(src))
	var quote byte
	for i := 0; i < len(src); i++ {
		c := src[i]
		if quote != 0 {
			out.WriteByte(c)
			switch c {
			case '\\':
				if i+1 < len(src) {
					i++
					out.WriteByte(src[i])
				}
			case quote:
				quote = 0
			}
			continue
		}
		switch {
		case c == '"' || c == '\'' || c == '`':
			quote = c
			out.WriteByte(c)
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			for i < len(src) && src[i] != '\n' {
				i++
			}
			if i < len(src) {
				out.WriteByte('\n')
			}
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := strings.Index(src[i+2:], "*/")
			if end < 0 {
				i = len(src)
			} else {
				i += end + 3
			}
			out.WriteByte(' ')
		default:
			out.WriteByte(c)
		}
	}
	return out.String()
}

// literalAt returns the object or array literal starting at the first
// non-space character at or after pos, up to its matching bracket.
func literalAt(text string, pos int) (string, error) {
	start := pos
	for start < len(text) && strings.ContainsRune(" \t\r\n", rune(text[start])) {
		start++
	}
	if start >= len(text) || (text[start] != '{' && text[start] != '[') {
		return "", fmt.Errorf("expected an object or array literal")
	}
	depth := 0
	var quote byte
	for i := start; i < len(text); i++ {
		c := text[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unterminated literal")
}

// normalizeLiteral rewrites a JS object or array literal into JSON text:
// every string literal is decoded and re-quoted as a JSON string, bare
// keys are quoted, and a space follows every ':' and ','. Other bare words
// (numbers, true, null) pass through.
func normalizeLiteral(lit string) (string, error) {
	var out strings.Builder
	out.Grow(len(lit) + len(lit)/4)
	for i := 0; i < len(lit); {
		c := lit[i]
		switch {
		case c == '"' || c == '\'' || c == '`':
			v, next, err := unquoteJS(lit, i)
			if err != nil {
				return "", err
			}
			out.WriteString(jsString(v))
			i = next
		case c == ':' || c == ',':
			out.WriteByte(c)
			out.WriteByte(' ')
			i++
		case strings.IndexByte("{}[] \t\r\n", c) >= 0:
			out.WriteByte(c)
			i++
		default:
			j := i
			for j < len(lit) && strings.IndexByte("{}[]:,\"'` \t\r\n", lit[j]) < 0 {
				j++
			}
			word := lit[i:j]
			k := j
			for k < len(lit) && strings.IndexByte(" \t\r\n", lit[k]) >= 0 {
				k++
			}
			if k < len(lit) && lit[k] == ':' {
				out.WriteString(jsString(word))
			} else {
				out.WriteString(word)
			}
			i = j
		}
	}
	return out.String(), nil
}

// unquoteJS decodes the JS string literal whose opening quote is at
// src[start]. It returns the value and the index just past the closing
// quote.
func unquoteJS(src string, start int) (string, int, error) {
	quote := src[start]
	var b strings.Builder
	for i := start + 1; i < len(src); {
		c := src[i]
		switch {
		case c == quote:
			return b.String(), i + 1, nil
		case quote == '`' && c == '$' && i+1 < len(src) && src[i+1] == '{':
			return "", 0, fmt.Errorf("template substitution at offset %d is not supported", i)
		case c == '\\':
			if i+1 >= len(src) {
				return "", 0, fmt.Errorf("unterminated string at offset %d", start)
			}
			n, err := unescapeJS(src, i+1, &b)
			if err != nil {
				return "", 0, err
			}
			i = n
		case c == '\n' && quote != '`':
			return "", 0, fmt.Errorf("newline in string at offset %d", i)
		default:
			b.WriteByte(c)
			i++
		}
	}
	return "", 0, fmt.Errorf("unterminated string at offset %d", start)
}

// unescapeJS writes the escape sequence whose first character (after the
// backslash) is at src[i] and returns the index following it.
func unescapeJS(src string, i int, b *strings.Builder) (int, error) {
	switch c := src[i]; c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\r':
		// Line continuation, possibly CRLF.
		if i+1 < len(src) && src[i+1] == '\n' {
			return i + 2, nil
		}
	case '\n':
	case 'x':
		r, err := hexRune(src, i+1, i+3)
		if err != nil {
			return 0, err
		}
		b.WriteRune(r)
		return i + 3, nil
	case 'u':
		r, next, err := unicodeEscape(src, i+1)
		if err != nil {
			return 0, err
		}
		if utf16.IsSurrogate(r) && next+1 < len(src) && src[next] == '\\' && src[next+1] == 'u' {
			if r2, next2, err := unicodeEscape(src, next+2); err == nil {
				if pair := utf16.DecodeRune(r, r2); pair != '\uFFFD' {
					b.WriteRune(pair)
					return next2, nil
				}
			}
		}
		b.WriteRune(r)
		return next, nil
	default:
		b.WriteByte(c)
	}
	return i + 1, nil
}

// unicodeEscape parses the XXXX or {X...} part of a \u escape starting at i.
func unicodeEscape(src string, i int) (rune, int, error) {
	if i < len(src) && src[i] == '{' {
		end := strings.IndexByte(src[i:], '}')
		if end < 0 {
			return 0, 0, fmt.Errorf("unterminated \\u{ escape at offset %d", i)
		}
		r, err := hexRune(src, i+1, i+end)
		return r, i + end + 1, err
	}
	r, err := hexRune(src, i, i+4)
	return r, i + 4, err
}

func hexRune(src string, from, to int) (rune, error) {
	if to > len(src) || from >= to {
		return 0, fmt.Errorf("short escape at offset %d", from)
	}
	v, err := strconv.ParseUint(src[from:to], 16, 32)
	if err != nil || v > 0x10FFFF {
		return 0, fmt.Errorf("bad escape %q at offset %d", src[from:to], from)
	}
	return rune(v), nil
}
