package clean

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// CellSeparator joins the cells of a flattened table row.
const CellSeparator = " | "

var (
	tableParser = goldmark.New(goldmark.WithExtensions(extension.Table)).Parser()

	delimiterRow = regexp.MustCompile(`^\|?\s*:?-+:?\s*(\|\s*:?-+:?\s*)*\|?$`)
)

// FlattenTables rewrites every markdown table in src as one line per body
// row, cells joined by CellSeparator. Header and delimiter rows are removed.
// Lines outside tables are returned untouched.
//
// Only tables whose rows start with a pipe are recognized; that is the form
// OCR engines emit.
func FlattenTables(src string) string {
	lines := strings.Split(src, "\n")
	out := make([]string, 0, len(lines))

	for i := 0; i < len(lines); {
		if !isTableLine(lines[i]) || i+1 >= len(lines) || !delimiterRow.MatchString(strings.TrimSpace(lines[i+1])) {
			out = append(out, lines[i])
			i++
			continue
		}

		end := i + 2
		for end < len(lines) && isTableLine(lines[end]) {
			end++
		}

		rows, ok := tableRows(strings.Join(lines[i:end], "\n"))
		if ok {
			out = append(out, rows...)
		} else {
			out = append(out, lines[i:end]...)
		}
		i = end
	}

	return strings.Join(out, "\n")
}

func isTableLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "|")
}

// tableRows parses a single markdown table block and returns its body rows.
func tableRows(block string) ([]string, bool) {
	src := []byte(block)
	doc := tableParser.Parse(text.NewReader(src))

	var rows []string
	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *extast.Table:
			found = true
		case *extast.TableHeader:
			return ast.WalkSkipChildren, nil
		case *extast.TableRow:
			var cells []string
			empty := true
			for c := n.FirstChild(); c != nil; c = c.NextSibling() {
				cell := strings.TrimSpace(inlineText(c, src))
				if cell != "" {
					empty = false
				}
				cells = append(cells, cell)
			}
			if !empty {
				rows = append(rows, strings.Join(cells, CellSeparator))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return rows, found
}

// inlineText concatenates the literal text below n.
func inlineText(n ast.Node, src []byte) string {
	var sb strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		default:
			sb.WriteString(inlineText(c, src))
		}
	}
	return sb.String()
}
