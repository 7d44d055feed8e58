package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/bakinscan/internal/model"
)

// indentPixelsPerLevel is how many pixels of span width the generator
// emits per nesting level in directory tables.
const indentPixelsPerLevel = 16

var indentWidthRe = regexp.MustCompile(`width:(\d+)px`)

// hierarchyNode is one entry of a directory table with its position in
// the nesting tree resolved.
type hierarchyNode struct {
	// name is the link text of the entry.
	name string

	// fullPath is the dotted path from the tree root to this entry.
	fullPath string

	// href is the raw link target, usually relative.
	href string

	// description is the text of the entry's description cell, if any.
	description *string

	// level is the nesting depth derived from the indent width.
	level int

	// role distinguishes namespace rows from class rows.
	role model.PageRole

	parent *hierarchyNode
}

// parseDirectoryTree reads the indent structure of a directory table.
// Nesting is not encoded in the markup tree; every entry is a sibling
// row and the depth lives in an inline span width, 16px per level. The
// parser replays the rows against a stack to recover parent links and
// dotted paths.
func parseDirectoryTree(table *goquery.Selection) []*hierarchyNode {
	var nodes []*hierarchyNode
	var stack []*hierarchyNode

	table.Find("tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a.el").First()
		if link.Length() == 0 {
			return
		}
		name := cleanText(link.Text())
		if name == "" {
			return
		}
		href, _ := link.Attr("href")
		level := indentLevel(row)

		node := &hierarchyNode{
			name:        name,
			href:        href,
			description: rowDescription(link),
			level:       level,
			role:        nodeRole(row, href),
		}

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			node.parent = stack[len(stack)-1]
		}
		// Namespaces always open a scope. A class opens one only when
		// the next row is indented deeper, nested types exist.
		if node.role == model.PageRoleNamespace || rowHasChildren(row, level) {
			stack = append(stack, node)
		}
		node.fullPath = dottedPath(node)
		nodes = append(nodes, node)
	})

	return nodes
}

// classPathMap indexes class entries by name and by href so lookups
// from links can recover the dotted path.
func classPathMap(nodes []*hierarchyNode) map[string]string {
	paths := make(map[string]string)
	for _, node := range nodes {
		if node.role != model.PageRoleClass {
			continue
		}
		paths[node.name] = node.fullPath
		if node.href != "" {
			paths[node.href] = node.fullPath
		}
	}
	return paths
}

// indentLevel extracts the nesting depth of a row from its indent span.
// Rows without one sit at the top level.
func indentLevel(row *goquery.Selection) int {
	level := 0
	row.Find("span[style*='width:']").EachWithBreak(func(_ int, span *goquery.Selection) bool {
		style, _ := span.Attr("style")
		match := indentWidthRe.FindStringSubmatch(style)
		if match == nil {
			return true
		}
		px, err := strconv.Atoi(match[1])
		if err != nil {
			return true
		}
		level = px / indentPixelsPerLevel
		return false
	})
	return level
}

// nodeRole decides whether a directory row is a namespace or a class,
// from its icon letter first and its link target second.
func nodeRole(row *goquery.Selection, href string) model.PageRole {
	switch cleanText(row.Find("span.icon").First().Text()) {
	case "N":
		return model.PageRoleNamespace
	case "C":
		return model.PageRoleClass
	}
	switch {
	case strings.Contains(href, "namespace"):
		return model.PageRoleNamespace
	case strings.Contains(href, "class"):
		return model.PageRoleClass
	}
	return model.PageRoleUnknown
}

// rowHasChildren reports whether the next row is nested deeper.
func rowHasChildren(row *goquery.Selection, level int) bool {
	next := row.Next()
	if next.Length() == 0 || !next.Is("tr") {
		return false
	}
	return indentLevel(next) > level
}

// dottedPath joins the names from the tree root down to the node.
func dottedPath(node *hierarchyNode) string {
	var parts []string
	for current := node; current != nil; current = current.parent {
		parts = append(parts, current.name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}
