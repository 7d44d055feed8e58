package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/bakinscan/internal/model"
)

// classDefinitionRe captures the base class of a C# declaration such as
// "public class MapScene : SceneBase".
var classDefinitionRe = regexp.MustCompile(`(?i)class\s+\w+\s*:\s*([^{,\s]+)`)

// navigationMarkers are fragments of Doxygen navigation text that
// disqualify a paragraph from serving as the class description.
var navigationMarkers = []string{
	"公開メンバ関数",
	"公開変数類",
	"全メンバ一覧",
	"#include",
	"Public Member Functions",
	"Public Attributes",
}

// Class extracts the full class record from a fetched class page. The ref
// supplies the identity discovered on the namespace page; the page content
// fills description, inheritance, and the member lists. Member sections are
// parsed independently: a section that cannot be parsed stays empty and adds
// a warning instead of failing the page. Only a page without a title block
// fails hard.
func (e *Extractor) Class(page *model.Page, ref model.ClassRef) (*model.Class, []string, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, nil, err
	}
	if err := requireTitle(doc); err != nil {
		return nil, nil, err
	}

	fullName := ref.FullName
	if fullName == "" {
		fullName = fullNameFromURL(page.URL, ref.Name)
	}
	class := model.NewClass(ref.Name, fullName, ref.URL)
	if class.URL == "" {
		class.URL = page.URL
	}

	class.Description = classDescription(doc, ref.Description)
	class.Inheritance = classInheritance(doc)
	warnings := e.collectMembers(doc, class)

	e.logWarnings(page.URL, warnings)
	return class, warnings, nil
}

// classDescription resolves the class summary through the layered strategy
// the Doxygen pages need: the text block, the first member doc, any
// meaningful contents paragraph, a labeled table row, and finally the page
// title. The listing summary from the namespace page is the last resort.
func classDescription(doc *goquery.Document, fallback *string) *string {
	if desc := firstParagraph(doc.Find(".textblock").First(), minDescriptionLen); desc != nil {
		return desc
	}
	if desc := firstParagraph(doc.Find(".memdoc").First(), minDescriptionLen); desc != nil {
		return desc
	}
	if desc := contentsParagraph(doc); desc != nil {
		return desc
	}
	if desc := tableValueByKeywords(doc, "説明", "description"); desc != nil {
		return desc
	}
	if desc := titleDescription(doc); desc != nil {
		return desc
	}
	return fallback
}

// firstParagraph returns the text of the first paragraph under sel when it
// is longer than min runes.
func firstParagraph(sel *goquery.Selection, min int) *string {
	p := sel.Find("p").First()
	if p.Length() == 0 {
		return nil
	}
	text := cleanText(p.Text())
	if !longerThan(text, min) {
		return nil
	}
	return &text
}

// contentsParagraph scans the main contents area for the first paragraph
// that is long enough to be a description and is not navigation text.
func contentsParagraph(doc *goquery.Document) *string {
	var desc *string
	doc.Find("div.contents p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := cleanText(p.Text())
		if !longerThan(text, minMeaningfulLen) {
			return true
		}
		if containsAny(text, navigationMarkers...) {
			return true
		}
		desc = &text
		return false
	})
	return desc
}

// tableValueByKeywords scans every table for a row whose first cell mentions
// one of the keywords and returns the second cell's text. The first matching
// row decides; an empty value means not found. Keywords must be lowercase,
// labels are folded before matching.
func tableValueByKeywords(doc *goquery.Document, keywords ...string) *string {
	var value *string
	doc.Find("table tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return true
		}
		label := strings.ToLower(cleanText(cells.First().Text()))
		if !containsAny(label, keywords...) {
			return true
		}
		value = optionalText(cells.Eq(1).Text())
		return false
	})
	return value
}

// titleDescription builds a minimal summary out of the page title when no
// other layer yields one. A Doxygen class title reads
// "BAKIN: SharpKmyGfx::Color クラス" and the part after the last colon
// still names the class.
func titleDescription(doc *goquery.Document) *string {
	title := cleanText(doc.Find("title").First().Text())
	if !strings.Contains(title, "クラス") {
		return nil
	}
	parts := strings.Split(title, ":")
	name := strings.TrimSpace(parts[len(parts)-1])
	if name == "" {
		return nil
	}
	text := "Bakinの" + name + "です。"
	return &text
}

// classInheritance resolves the base class through the layered strategy:
// dedicated inheritance elements first, then labeled table rows, then the
// C# declaration inside a code block, and finally inheritance links.
func classInheritance(doc *goquery.Document) *string {
	for _, selector := range []string{".inheritance", ".base-class", ".inherits"} {
		if text := selectionText(doc, selector); text != nil {
			return text
		}
	}
	if text := tableValueByKeywords(doc, "継承", "inheritance", "base", "extends", "parent"); text != nil {
		return text
	}
	for _, selector := range []string{".class-hierarchy", "div[class*='inherit']", ".inherit", ".hierarchy"} {
		if text := selectionText(doc, selector); text != nil {
			return text
		}
	}
	if base := declaredBaseClass(doc); base != nil {
		return base
	}
	return linkedBaseClass(doc)
}

// selectionText returns the cleaned text of the first element the selector
// matches, nil when absent or empty.
func selectionText(doc *goquery.Document, selector string) *string {
	sel := doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil
	}
	return optionalText(sel.Text())
}

// declaredBaseClass reads the base class out of a C# class declaration
// rendered in a code or prototype block. Object roots are not inheritance
// worth recording.
func declaredBaseClass(doc *goquery.Document) *string {
	var base *string
	doc.Find("code, pre, .code, .definition, .memproto").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		match := classDefinitionRe.FindStringSubmatch(sel.Text())
		if match == nil {
			return true
		}
		candidate := strings.TrimSpace(match[1])
		switch strings.ToLower(candidate) {
		case "object", "system.object":
			return true
		}
		base = &candidate
		return false
	})
	return base
}

// linkedBaseClass is the last inheritance fallback: an anchor to another
// class page whose surrounding text mentions inheritance.
func linkedBaseClass(doc *goquery.Document) *string {
	var base *string
	doc.Find("a[href*='class_']").EachWithBreak(func(_ int, link *goquery.Selection) bool {
		parent := link.Parent()
		if parent.Length() == 0 {
			return true
		}
		context := strings.ToLower(cleanText(parent.Text()))
		if !containsAny(context, "継承", "inherit", "base", "extends") {
			return true
		}
		if text := optionalText(link.Text()); text != nil {
			base = text
			return false
		}
		return true
	})
	return base
}
