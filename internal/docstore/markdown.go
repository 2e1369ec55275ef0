package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// LoadMarkdownDir ingests every .md file under dir (non-recursive) into
// passages. Files are processed in lexical order so corpus insertion order
// is reproducible. The base metadata is applied to every passage; per-file
// title and sections come from the document headings.
func LoadMarkdownDir(dir string, base Metadata) ([]Passage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading corpus dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var passages []Passage
	for _, name := range names {
		src, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", name, err)
		}
		passages = append(passages, ParseMarkdown(strings.TrimSuffix(name, ".md"), src, base)...)
	}
	return passages, nil
}

// ParseMarkdown splits a markdown document into passages, one per section.
// A level-1 heading sets the passage title for the rest of the file;
// level-2 and level-3 headings start a new section. Text before the first
// section heading becomes an untitled lead passage.
func ParseMarkdown(name string, src []byte, base Metadata) []Passage {
	doc := goldmark.New().Parser().Parse(gmtext.NewReader(src))

	title := base.Title
	var passages []Passage
	var section string
	var buf strings.Builder

	flush := func() {
		content := strings.TrimSpace(buf.String())
		buf.Reset()
		if content == "" {
			return
		}
		meta := base
		if title != "" {
			meta.Title = title
		}
		meta.Section = section
		passages = append(passages, Passage{
			ID:      passageID(name, len(passages)),
			Content: content,
			Meta:    meta,
		})
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			text := strings.TrimSpace(blockText(h, src))
			switch {
			case h.Level == 1:
				flush()
				title = text
				section = ""
			case h.Level <= 3:
				flush()
				section = text
			default:
				// Deep headings stay inside the current section.
				buf.WriteString(text)
				buf.WriteString("\n")
			}
			continue
		}

		if t := blockText(n, src); t != "" {
			buf.WriteString(t)
			buf.WriteString("\n")
		}
	}
	flush()

	return passages
}

// blockText extracts the raw text of a block node, descending into nested
// blocks (lists, quotes) as needed.
func blockText(n ast.Node, src []byte) string {
	var sb strings.Builder
	collectText(n, src, &sb)
	return strings.TrimSpace(sb.String())
}

func collectText(n ast.Node, src []byte, sb *strings.Builder) {
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			sb.Write(seg.Value(src))
		}
		sb.WriteString(" ")
		return
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		collectText(c, src, sb)
	}
}

func passageID(name string, idx int) string {
	return fmt.Sprintf("%s-%d", slug(name), idx+1)
}

// slug lowercases s and replaces runs of non-alphanumerics with hyphens.
func slug(s string) string {
	var sb strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				sb.WriteRune('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(sb.String(), "-")
}
