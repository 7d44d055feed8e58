package extract

import (
	"regexp"
	"strings"

	"github.com/nao1215/bakinscan/internal/model"
)

// memberSignature is the parsed form of one member prototype line.
type memberSignature struct {
	// name is the member's own name, the last dotted segment.
	name string

	// qualifier is the dotted prefix before the name, usually the
	// declaring type's full path.
	qualifier string

	// returnType is the declared type before the name. For properties,
	// fields, and events it is the member's type; for constructors it
	// is empty.
	returnType string

	// params holds the parsed parameter list.
	params []model.Parameter

	// hasParams is true when the prototype carries a parameter list,
	// even an empty one. It separates methods from typed members.
	hasParams bool

	isStatic   bool
	isReadonly bool
	isEvent    bool
	getter     bool
	setter     bool

	// access is the declared access modifier, empty when the prototype
	// does not name one.
	access string

	// value is the initializer text after "=", set for fields.
	value *string
}

var markerGroupRe = regexp.MustCompile(`\[([^\[\]]*)\]`)

// markerLabels are the bracketed label words the generator appends to
// prototypes. A bracket group made only of these is a marker; anything
// else (an array type, an attribute) is part of the declaration.
var markerLabels = map[string]bool{
	"get": true, "set": true, "add": true, "remove": true,
	"static": true, "readonly": true, "const": true,
	"virtual": true, "override": true, "abstract": true, "sealed": true,
	"inline": true, "inherited": true, "final": true, "explicit": true,
	"public": true, "private": true, "protected": true, "internal": true,
}

// parseSignature parses one member prototype. It returns nil when no
// member name can be recovered from the text. Keyword matching is
// case-sensitive throughout: C# keywords are lowercase and a
// capitalized look-alike ("Event") is a type name.
func parseSignature(text string) *memberSignature {
	sig := &memberSignature{}
	rest := cleanText(text)
	if rest == "" {
		return nil
	}

	rest = sig.consumeMarkers(rest)
	rest, sig.value = splitInitializer(rest)
	rest = sig.consumeModifiers(rest)
	if rest == "" {
		return nil
	}

	if open := strings.Index(rest, "("); open >= 0 {
		head := strings.TrimSpace(rest[:open])
		if head == "" {
			return nil
		}
		paramText := rest[open+1:]
		if closing := strings.LastIndex(paramText, ")"); closing >= 0 {
			paramText = paramText[:closing]
		}
		returnType, qualified := splitHead(head)
		sig.splitQualifiedName(qualified)
		sig.returnType = tidyType(returnType)
		sig.params = parseParameters(paramText)
		sig.hasParams = true
		return sig
	}

	returnType, qualified := splitHead(rest)
	if qualified == "" {
		return nil
	}
	sig.splitQualifiedName(qualified)
	sig.returnType = tidyType(returnType)
	sig.params = []model.Parameter{}
	return sig
}

// consumeMarkers reads the bracketed label groups and removes them.
func (s *memberSignature) consumeMarkers(text string) string {
	return markerGroupRe.ReplaceAllStringFunc(text, func(group string) string {
		inner := strings.TrimSpace(group[1 : len(group)-1])
		if inner == "" {
			return group
		}
		labels := strings.Split(inner, ",")
		for _, label := range labels {
			if !markerLabels[strings.ToLower(strings.TrimSpace(label))] {
				return group
			}
		}
		for _, label := range labels {
			switch strings.ToLower(strings.TrimSpace(label)) {
			case "get":
				s.getter = true
			case "set":
				s.setter = true
			case "static":
				s.isStatic = true
			case "readonly", "const":
				s.isReadonly = true
			case "public", "private", "protected", "internal":
				if s.access == "" {
					s.access = strings.ToLower(strings.TrimSpace(label))
				}
			}
		}
		return ""
	})
}

// splitInitializer cuts a field initializer off the declaration. Only
// a spaced "=" outside brackets counts, so "operator==" prototypes and
// parameter defaults inside a method's parentheses stay untouched.
func splitInitializer(text string) (string, *string) {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case '=':
			if depth == 0 && i > 0 && text[i-1] == ' ' && i+1 < len(text) && text[i+1] == ' ' {
				decl := strings.TrimSpace(text[:i])
				value := strings.TrimSpace(text[i+1:])
				if value == "" {
					return decl, nil
				}
				return decl, &value
			}
		}
	}
	return strings.TrimSpace(text), nil
}

// consumeModifiers reads the leading declaration keywords.
func (s *memberSignature) consumeModifiers(text string) string {
	fields := strings.Fields(text)
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "public", "private", "protected", "internal":
			if s.access == "" {
				s.access = fields[i]
			}
		case "static":
			s.isStatic = true
		case "readonly":
			s.isReadonly = true
		case "const":
			// A const member is implicitly static in C#.
			s.isReadonly = true
			s.isStatic = true
		case "event":
			s.isEvent = true
		case "virtual", "override", "abstract", "sealed", "new",
			"unsafe", "extern", "partial", "delegate", "async":
			// Keyword noted, nothing recorded.
		default:
			return strings.Join(fields[i:], " ")
		}
	}
	return ""
}

// splitHead separates the return type from the qualified member name.
// The scan runs backwards so a space inside generic arguments, which
// the generator renders as "List< T >", does not split the name.
func splitHead(head string) (returnType, qualified string) {
	depth := 0
	for i := len(head) - 1; i >= 0; i-- {
		switch head[i] {
		case '>':
			depth++
		case '<':
			depth--
		case ' ':
			if depth == 0 {
				return strings.TrimSpace(head[:i]), strings.TrimSpace(head[i+1:])
			}
		}
	}
	return "", strings.TrimSpace(head)
}

// splitQualifiedName fills name and qualifier from a dotted name.
func (s *memberSignature) splitQualifiedName(qualified string) {
	if dot := strings.LastIndex(qualified, "."); dot >= 0 {
		s.qualifier = qualified[:dot]
		s.name = qualified[dot+1:]
		return
	}
	s.name = qualified
}

// accessOrDefault returns the declared access modifier, defaulting to
// public since the reference documents the public surface.
func (s *memberSignature) accessOrDefault() string {
	if s.access != "" {
		return s.access
	}
	return model.DefaultAccessModifier
}

// tidyType removes the padding the generator puts around generic
// argument brackets.
func tidyType(t string) string {
	t = strings.ReplaceAll(t, "< ", "<")
	t = strings.ReplaceAll(t, " >", ">")
	t = strings.ReplaceAll(t, " ,", ",")
	return t
}

// parseParameters splits a parameter list into typed parameters.
// Commas inside generic arguments do not split.
func parseParameters(text string) []model.Parameter {
	params := []model.Parameter{}
	for _, part := range splitParameterList(text) {
		if param, ok := parseParameter(part); ok {
			params = append(params, param)
		}
	}
	return params
}

// splitParameterList splits at commas outside angle brackets and
// parentheses, so generic arguments and call-shaped default values
// stay whole.
func splitParameterList(text string) []string {
	var parts []string
	var current strings.Builder
	depth := 0

	for _, r := range text {
		switch r {
		case '<', '(':
			depth++
			current.WriteRune(r)
		case '>', ')':
			depth--
			current.WriteRune(r)
		case ',':
			if depth == 0 {
				if part := strings.TrimSpace(current.String()); part != "" {
					parts = append(parts, part)
				}
				current.Reset()
			} else {
				current.WriteRune(r)
			}
		default:
			current.WriteRune(r)
		}
	}
	if part := strings.TrimSpace(current.String()); part != "" {
		parts = append(parts, part)
	}
	return parts
}

// parseParameter parses a single "type name" declaration. Defaults are
// dropped, passing-mode keywords are dropped, and a lone type gets the
// placeholder name "param".
func parseParameter(text string) (model.Parameter, bool) {
	if eq := strings.Index(text, "="); eq >= 0 {
		text = text[:eq]
	}

	fields := strings.Fields(text)
	filtered := fields[:0]
	for _, field := range fields {
		switch field {
		case "ref", "out", "in", "params", "this":
			continue
		}
		filtered = append(filtered, field)
	}

	switch len(filtered) {
	case 0:
		return model.Parameter{}, false
	case 1:
		return model.Parameter{Name: "param", Type: tidyType(filtered[0])}, true
	default:
		return model.Parameter{
			Name: filtered[len(filtered)-1],
			Type: tidyType(strings.Join(filtered[:len(filtered)-1], " ")),
		}, true
	}
}
