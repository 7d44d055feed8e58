package model

// defaultAccessModifier is assumed when a member signature carries no
// explicit access keyword. The reference only documents public API surface.
const DefaultAccessModifier = "public"

// Parameter represents a method or constructor parameter.
//
// Description is a pointer so an absent description serializes as JSON
// null rather than an empty string. Downstream renderers distinguish
// "no description on the page" from "empty description".
type Parameter struct {
	// Name is the parameter name as written in the signature.
	Name string `json:"name"`

	// Type is the C# type of the parameter, generics preserved.
	Type string `json:"type"`

	// Description is the documented meaning of the parameter, if any.
	Description *string `json:"description"`
}

// ExceptionSpec represents an exception a method is documented to throw.
type ExceptionSpec struct {
	// Type is the exception type name.
	Type string `json:"type"`

	// Description explains when the exception is thrown.
	Description string `json:"description"`
}

// Constructor represents a class constructor.
type Constructor struct {
	// Name is the constructor name, which matches the class name.
	Name string `json:"name"`

	// Parameters lists the constructor parameters in declaration order.
	Parameters []Parameter `json:"parameters"`

	// Description is the documented purpose of the constructor, if any.
	Description *string `json:"description"`

	// AccessModifier is the access level, "public" unless stated otherwise.
	AccessModifier string `json:"accessModifier"`
}

// Method represents a class method.
type Method struct {
	// Name is the method name without parameters.
	Name string `json:"name"`

	// ReturnType is the declared return type, "void" included.
	ReturnType string `json:"returnType"`

	// Parameters lists the method parameters in declaration order.
	Parameters []Parameter `json:"parameters"`

	// Description is the documented behavior of the method, if any.
	Description *string `json:"description"`

	// IsStatic reports whether the method is declared static.
	IsStatic bool `json:"isStatic"`

	// AccessModifier is the access level, "public" unless stated otherwise.
	AccessModifier string `json:"accessModifier"`

	// Exceptions lists documented throw conditions. Nil serializes as
	// null when the page documents none.
	Exceptions []ExceptionSpec `json:"exceptions"`
}

// Property represents a class property.
type Property struct {
	// Name is the property name.
	Name string `json:"name"`

	// Type is the property type.
	Type string `json:"type"`

	// Description is the documented meaning of the property, if any.
	Description *string `json:"description"`

	// AccessModifier is the access level, "public" unless stated otherwise.
	AccessModifier string `json:"accessModifier"`

	// Getter reports whether the property has a getter.
	Getter bool `json:"getter"`

	// Setter reports whether the property has a setter.
	Setter bool `json:"setter"`

	// IsStatic reports whether the property is declared static.
	IsStatic bool `json:"isStatic"`
}

// Field represents a class field.
type Field struct {
	// Name is the field name.
	Name string `json:"name"`

	// Type is the field type.
	Type string `json:"type"`

	// Description is the documented meaning of the field, if any.
	Description *string `json:"description"`

	// AccessModifier is the access level, "public" unless stated otherwise.
	AccessModifier string `json:"accessModifier"`

	// IsStatic reports whether the field is declared static.
	IsStatic bool `json:"isStatic"`

	// IsReadonly reports whether the field is declared readonly or const.
	IsReadonly bool `json:"isReadonly"`

	// Value is the initializer for const fields, if shown on the page.
	Value *string `json:"value"`
}

// Event represents a class event.
type Event struct {
	// Name is the event name.
	Name string `json:"name"`

	// Type is the delegate type of the event.
	Type string `json:"type"`

	// Description is the documented meaning of the event, if any.
	Description *string `json:"description"`

	// AccessModifier is the access level, "public" unless stated otherwise.
	AccessModifier string `json:"accessModifier"`
}

// Class represents one C# class with all extracted members. This is the
// record a class page extraction produces and the checkpoint store keeps
// as the item payload.
//
// Member slices are always non-nil. A section that is absent, or that
// failed tolerant extraction, yields an empty list so the artifact shape
// stays stable.
type Class struct {
	// Name is the short class name.
	Name string `json:"name"`

	// FullName is the namespace qualified name.
	FullName string `json:"fullName"`

	// URL is the absolute page URL the record came from.
	URL string `json:"url"`

	// Description is the class summary text, if any.
	Description *string `json:"description"`

	// Inheritance is the base class name, if one could be determined.
	Inheritance *string `json:"inheritance"`

	// Constructors lists the class constructors in document order.
	Constructors []Constructor `json:"constructors"`

	// Methods lists the class methods in document order.
	Methods []Method `json:"methods"`

	// Properties lists the class properties in document order.
	Properties []Property `json:"properties"`

	// Fields lists the class fields in document order.
	Fields []Field `json:"fields"`

	// Events lists the class events in document order.
	Events []Event `json:"events"`
}

// NewClass returns a Class with the identifying fields set and every
// member list initialized empty.
func NewClass(name, fullName, url string) *Class {
	return &Class{
		Name:         name,
		FullName:     fullName,
		URL:          url,
		Constructors: []Constructor{},
		Methods:      []Method{},
		Properties:   []Property{},
		Fields:       []Field{},
		Events:       []Event{},
	}
}

// MemberCount returns the total number of extracted members across all
// sections.
func (c *Class) MemberCount() int {
	return len(c.Constructors) + len(c.Methods) + len(c.Properties) +
		len(c.Fields) + len(c.Events)
}

// Namespace represents one namespace in the final dataset, carrying the
// fully extracted records of its classes.
type Namespace struct {
	// Name is the namespace name, for example "Yukar.Engine".
	Name string `json:"name"`

	// URL is the absolute namespace page URL.
	URL string `json:"url"`

	// Description is the namespace summary from the index page, if any.
	Description *string `json:"description"`

	// Classes lists the extracted class records sorted by name.
	Classes []Class `json:"classes"`
}

// Ptr returns a pointer to v. It keeps literal optional fields short when
// building records and test fixtures.
func Ptr[T any](v T) *T {
	return &v
}
