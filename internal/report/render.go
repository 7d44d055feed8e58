package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/nao1215/bakinscan/internal/model"
	"github.com/nao1215/markdown"
)

// IndexFileName is the file name of the rendered index page.
const IndexFileName = "index.md"

// DocRenderer renders a dataset into browsable Markdown pages, one per
// namespace plus an index linking them.
//
// Design decision: Rendering is a pure transform over the dataset
// artifact rather than part of the crawl because:
// 1. A captured dataset can be re-rendered without touching the network
// 2. Page layout can evolve without invalidating captured data
// 3. The render command works on datasets produced by past runs
type DocRenderer struct {
	// outDir receives the rendered pages. It is created on render.
	outDir string
}

// NewDocRenderer creates a renderer writing into outDir.
func NewDocRenderer(outDir string) *DocRenderer {
	return &DocRenderer{outDir: outDir}
}

// Render writes the index page and one page per namespace, returning the
// written paths in write order.
func (r *DocRenderer) Render(ds *model.Dataset) ([]string, error) {
	paths := make([]string, 0, len(ds.Namespaces)+1)

	data, err := r.renderIndex(ds)
	if err != nil {
		return nil, fmt.Errorf("failed to render index page: %w", err)
	}
	indexPath := filepath.Join(r.outDir, IndexFileName)
	if err := writeFileAtomic(r.outDir, indexPath, data); err != nil {
		return nil, err
	}
	paths = append(paths, indexPath)

	for i := range ds.Namespaces {
		ns := &ds.Namespaces[i]

		data, err := r.renderNamespace(ns)
		if err != nil {
			return nil, fmt.Errorf("failed to render namespace %s: %w", ns.Name, err)
		}
		path := filepath.Join(r.outDir, namespacePageName(ns.Name))
		if err := writeFileAtomic(r.outDir, path, data); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// renderIndex builds the index page linking every namespace.
func (r *DocRenderer) renderIndex(ds *model.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H1("Bakin C# Reference")
	md.PlainText("")
	md.PlainTextf("Captured from %s at %s (dataset version %s).",
		ds.Metadata.SourceURL, ds.Metadata.ScrapedAt, ds.Metadata.Version)
	md.PlainText("")

	rows := make([][]string, len(ds.Namespaces))
	for i := range ds.Namespaces {
		ns := &ds.Namespaces[i]
		rows[i] = []string{
			fmt.Sprintf("[%s](%s)", ns.Name, namespacePageName(ns.Name)),
			fmt.Sprintf("%d", len(ns.Classes)),
			cellText(derefOr(ns.Description, "-")),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Namespace", "Classes", "Description"},
		Rows:   rows,
	})
	md.PlainText("")

	if err := md.Build(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// renderNamespace builds one namespace page with a section per class.
func (r *DocRenderer) renderNamespace(ns *model.Namespace) ([]byte, error) {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H1(ns.Name)
	md.PlainText("")
	md.PlainTextf("[Back to index](%s) | [Source page](%s)", IndexFileName, ns.URL)
	md.PlainText("")

	if desc := derefOr(ns.Description, ""); desc != "" {
		md.PlainText(desc)
		md.PlainText("")
	}

	for i := range ns.Classes {
		r.writeClassSection(md, &ns.Classes[i])
	}

	if err := md.Build(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeClassSection writes one class with its member tables.
func (r *DocRenderer) writeClassSection(md *markdown.Markdown, c *model.Class) {
	md.H2(c.Name)
	md.PlainText("")
	md.PlainTextf("`%s` ([reference page](%s))", c.FullName, c.URL)
	md.PlainText("")

	if desc := derefOr(c.Description, ""); desc != "" {
		md.PlainText(desc)
		md.PlainText("")
	}
	if inh := derefOr(c.Inheritance, ""); inh != "" {
		md.PlainTextf("Inheritance: `%s`", inh)
		md.PlainText("")
	}

	r.writeConstructors(md, c.Constructors)
	r.writeMethods(md, c.Methods)
	r.writeProperties(md, c.Properties)
	r.writeFields(md, c.Fields)
	r.writeEvents(md, c.Events)
}

// writeConstructors writes the constructor table for one class.
func (r *DocRenderer) writeConstructors(md *markdown.Markdown, ctors []model.Constructor) {
	if len(ctors) == 0 {
		return
	}

	md.H3("Constructors")
	md.PlainText("")

	rows := make([][]string, len(ctors))
	for i, ctor := range ctors {
		rows[i] = []string{
			ctor.Name,
			formatParameters(ctor.Parameters),
			accessOr(ctor.AccessModifier),
			cellText(derefOr(ctor.Description, "-")),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Constructor", "Parameters", "Access", "Description"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeMethods writes the method table for one class. Exceptions are
// folded into the description cell; the JSON artifact keeps them
// structured.
func (r *DocRenderer) writeMethods(md *markdown.Markdown, methods []model.Method) {
	if len(methods) == 0 {
		return
	}

	md.H3("Methods")
	md.PlainText("")

	rows := make([][]string, len(methods))
	for i, m := range methods {
		name := m.Name
		if m.IsStatic {
			name = "static " + name
		}

		desc := derefOr(m.Description, "")
		if len(m.Exceptions) > 0 {
			types := make([]string, len(m.Exceptions))
			for j, exc := range m.Exceptions {
				types[j] = "`" + exc.Type + "`"
			}
			throws := "Throws " + strings.Join(types, ", ") + "."
			if desc == "" {
				desc = throws
			} else {
				desc = desc + " " + throws
			}
		}
		if desc == "" {
			desc = "-"
		}

		rows[i] = []string{
			name,
			"`" + m.ReturnType + "`",
			formatParameters(m.Parameters),
			accessOr(m.AccessModifier),
			cellText(desc),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Method", "Returns", "Parameters", "Access", "Description"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeProperties writes the property table for one class.
func (r *DocRenderer) writeProperties(md *markdown.Markdown, props []model.Property) {
	if len(props) == 0 {
		return
	}

	md.H3("Properties")
	md.PlainText("")

	rows := make([][]string, len(props))
	for i, p := range props {
		name := p.Name
		if p.IsStatic {
			name = "static " + name
		}

		accessors := make([]string, 0, 2)
		if p.Getter {
			accessors = append(accessors, "get")
		}
		if p.Setter {
			accessors = append(accessors, "set")
		}
		accessorText := "-"
		if len(accessors) > 0 {
			accessorText = strings.Join(accessors, "; ") + ";"
		}

		rows[i] = []string{
			name,
			"`" + p.Type + "`",
			accessOr(p.AccessModifier),
			accessorText,
			cellText(derefOr(p.Description, "-")),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Type", "Access", "Accessors", "Description"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFields writes the field table for one class.
func (r *DocRenderer) writeFields(md *markdown.Markdown, fields []model.Field) {
	if len(fields) == 0 {
		return
	}

	md.H3("Fields")
	md.PlainText("")

	rows := make([][]string, len(fields))
	for i, f := range fields {
		name := f.Name
		if f.IsReadonly {
			name = "readonly " + name
		}
		if f.IsStatic {
			name = "static " + name
		}

		value := "-"
		if v := derefOr(f.Value, ""); v != "" {
			value = "`" + v + "`"
		}

		rows[i] = []string{
			name,
			"`" + f.Type + "`",
			accessOr(f.AccessModifier),
			value,
			cellText(derefOr(f.Description, "-")),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Field", "Type", "Access", "Value", "Description"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeEvents writes the event table for one class.
func (r *DocRenderer) writeEvents(md *markdown.Markdown, events []model.Event) {
	if len(events) == 0 {
		return
	}

	md.H3("Events")
	md.PlainText("")

	rows := make([][]string, len(events))
	for i, e := range events {
		rows[i] = []string{
			e.Name,
			"`" + e.Type + "`",
			accessOr(e.AccessModifier),
			cellText(derefOr(e.Description, "-")),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Event", "Type", "Access", "Description"},
		Rows:   rows,
	})
	md.PlainText("")
}

// namespacePageName maps a namespace name to its page file name.
// Namespace names are dotted ASCII identifiers; anything else is
// replaced so the result is always a plain file name.
func namespacePageName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteRune('_')
		}
	}
	return sb.String() + ".md"
}

// formatParameters renders a parameter list for a table cell.
func formatParameters(params []model.Parameter) string {
	if len(params) == 0 {
		return "-"
	}
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = "`" + p.Type + "` " + p.Name
	}
	return cellText(strings.Join(parts, ", "))
}

// accessOr renders an access modifier cell, defaulting to public since
// the reference only documents the public surface.
func accessOr(access string) string {
	if access == "" {
		return "public"
	}
	return access
}

// derefOr returns the pointed-to string or the fallback for nil.
func derefOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

// cellText makes free text safe inside a Markdown table cell.
func cellText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", "\\|")
}
