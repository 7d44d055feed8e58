package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/bakinscan/internal/model"
)

// memberKind classifies which record list a parsed member lands in.
type memberKind int

const (
	kindUnknown memberKind = iota
	kindConstructor
	kindMethod
	kindProperty
	kindField
	kindEvent
)

// classifyHeader maps a section heading to a member kind. The site is
// Japanese-first, so the Japanese headings come before their English
// counterparts.
func classifyHeader(text string) memberKind {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "構築子", "constructor"):
		return kindConstructor
	case containsAny(lower, "プロパティ", "propert"):
		return kindProperty
	case containsAny(lower, "イベント", "event"):
		return kindEvent
	case containsAny(lower, "変数", "フィールド", "attribute", "field", "variable"):
		return kindField
	case containsAny(lower, "関数", "function", "method"):
		return kindMethod
	default:
		return kindUnknown
	}
}

// containsAny reports whether s contains at least one of the given
// substrings.
func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// collectMembers walks the member documentation blocks and fills the
// class record section by section. Detailed blocks are preferred; when
// a page carries none, the summary tables are parsed instead. Every
// block that cannot be parsed adds a warning and is skipped, it never
// fails the page.
func (e *Extractor) collectMembers(doc *goquery.Document, class *model.Class) []string {
	if doc.Find("div.memitem").Length() == 0 {
		return e.collectMemberSummaries(doc, class)
	}

	warnings := make([]string, 0)
	section := kindUnknown
	doc.Find("h2.groupheader, div.memitem").Each(func(_ int, sel *goquery.Selection) {
		if sel.Is("h2") {
			section = classifyHeader(cleanText(sel.Text()))
			return
		}

		proto := sel.Find("div.memproto").First()
		memdoc := sel.Find("div.memdoc").First()

		sig := parseSignature(proto.Text())
		if sig == nil {
			warnings = append(warnings, memberWarning(proto.Text()))
			return
		}

		desc := blockDescription(memdoc)
		mergeParameterDocs(sig.params, parameterDocs(memdoc))
		e.appendMember(class, sig, section, desc, extractExceptions(memdoc))
	})
	return warnings
}

// collectMemberSummaries parses the member summary tables. They carry
// less detail than the documentation blocks, no parameter docs and no
// exceptions, but some pages have nothing else.
func (e *Extractor) collectMemberSummaries(doc *goquery.Document, class *model.Class) []string {
	warnings := make([]string, 0)
	tables := doc.Find("table.memberdecls")
	if tables.Length() == 0 {
		warnings = append(warnings, "no member sections found on class page")
		return warnings
	}

	section := kindUnknown
	tables.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if header := row.Find("h2.groupheader").First(); header.Length() > 0 {
			section = classifyHeader(cleanText(header.Text()))
			return
		}

		left := row.Find("td.memItemLeft").First()
		right := row.Find("td.memItemRight").First()
		if right.Length() == 0 {
			return
		}

		sig := parseSignature(cleanText(left.Text()) + " " + cleanText(right.Text()))
		if sig == nil {
			warnings = append(warnings, memberWarning(right.Text()))
			return
		}

		e.appendMember(class, sig, section, summaryDescription(row), nil)
	})
	return warnings
}

// appendMember places a parsed signature into the record list its kind
// selects.
func (e *Extractor) appendMember(class *model.Class, sig *memberSignature, section memberKind, desc *string, exceptions []model.ExceptionSpec) {
	switch resolveKind(sig, section, class.Name) {
	case kindConstructor:
		class.Constructors = append(class.Constructors, model.Constructor{
			Name:           sig.name,
			Parameters:     sig.params,
			Description:    desc,
			AccessModifier: sig.accessOrDefault(),
		})
	case kindProperty:
		class.Properties = append(class.Properties, model.Property{
			Name:           sig.name,
			Type:           sig.returnType,
			Description:    desc,
			AccessModifier: sig.accessOrDefault(),
			Getter:         sig.getter,
			Setter:         sig.setter,
			IsStatic:       sig.isStatic,
		})
	case kindEvent:
		class.Events = append(class.Events, model.Event{
			Name:           sig.name,
			Type:           sig.returnType,
			Description:    desc,
			AccessModifier: sig.accessOrDefault(),
		})
	case kindField:
		class.Fields = append(class.Fields, model.Field{
			Name:           sig.name,
			Type:           sig.returnType,
			Description:    desc,
			AccessModifier: sig.accessOrDefault(),
			IsStatic:       sig.isStatic,
			IsReadonly:     sig.isReadonly,
			Value:          sig.value,
		})
	default:
		class.Methods = append(class.Methods, model.Method{
			Name:           sig.name,
			ReturnType:     sig.returnType,
			Parameters:     sig.params,
			Description:    desc,
			IsStatic:       sig.isStatic,
			AccessModifier: sig.accessOrDefault(),
			Exceptions:     exceptions,
		})
	}
}

// resolveKind decides which member list a signature belongs to. The
// signature's own shape wins over the section heading; a heading only
// settles members whose shape is ambiguous.
func resolveKind(sig *memberSignature, section memberKind, className string) memberKind {
	if sig.hasParams {
		if sig.name == className && sig.returnType == "" {
			return kindConstructor
		}
		return kindMethod
	}
	if sig.getter || sig.setter {
		return kindProperty
	}
	if sig.isEvent || section == kindEvent {
		return kindEvent
	}
	if section == kindProperty {
		return kindProperty
	}
	return kindField
}

// blockDescription pulls the first meaningful paragraph out of a
// member documentation block.
func blockDescription(memdoc *goquery.Selection) *string {
	var desc *string
	memdoc.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		text := cleanText(p.Text())
		if longerThan(text, minDescriptionLen) {
			desc = &text
			return false
		}
		return true
	})
	return desc
}

// summaryDescription reads the description row that follows a summary
// table entry.
func summaryDescription(row *goquery.Selection) *string {
	next := row.Next()
	if next.Length() == 0 {
		return nil
	}
	cell := next.Find("td.mdescRight").First()
	if cell.Length() == 0 {
		return nil
	}
	return optionalText(cell.Text())
}

// parameterDocs reads the parameter description table of a member
// documentation block into a name-to-description map.
func parameterDocs(memdoc *goquery.Selection) map[string]string {
	docs := make(map[string]string)
	memdoc.Find("table.params tr").Each(func(_ int, row *goquery.Selection) {
		name := cleanText(row.Find("td.paramname").First().Text())
		if name == "" {
			return
		}
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		if desc := cleanText(cells.Last().Text()); desc != "" {
			docs[name] = desc
		}
	})
	return docs
}

// mergeParameterDocs attaches documented descriptions to the parsed
// parameters by name.
func mergeParameterDocs(params []model.Parameter, docs map[string]string) {
	if len(docs) == 0 {
		return
	}
	for i := range params {
		if desc, ok := docs[params[i].Name]; ok {
			params[i].Description = model.Ptr(desc)
		}
	}
}

// extractExceptions reads the declared exceptions of a member
// documentation block. Nil means the member declares none.
func extractExceptions(memdoc *goquery.Selection) []model.ExceptionSpec {
	var exceptions []model.ExceptionSpec
	memdoc.Find("table.exception tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		excType := cleanText(row.Find("td.paramname").First().Text())
		if excType == "" {
			excType = cleanText(cells.First().Text())
		}
		if excType == "" {
			return
		}
		exceptions = append(exceptions, model.ExceptionSpec{
			Type:        excType,
			Description: cleanText(cells.Last().Text()),
		})
	})
	return exceptions
}

// memberWarning formats the warning for an unparsable member block,
// keeping a short prefix of the offending text for diagnosis.
func memberWarning(text string) string {
	cleaned := cleanText(text)
	if runes := []rune(cleaned); len(runes) > 60 {
		cleaned = string(runes[:60]) + "..."
	}
	return fmt.Sprintf("unparsable member block: %q", cleaned)
}
