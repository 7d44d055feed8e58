package model

// roleUnknownStr is the string representation for unknown role values.
const roleUnknownStr = "unknown"

// PageRole identifies which kind of reference page a URL points at.
//
// The reference site has a fixed three level topology: a single index page
// listing all namespaces, one page per namespace listing its classes, and
// one page per class carrying the full member documentation. The extractor
// selects its strategy based on this role, and the checkpoint store persists
// it so a resumed run knows how to treat each pending item.
type PageRole string

// Page role constants.
const (
	// PageRoleUnknown represents an unrecognized page role.
	PageRoleUnknown PageRole = ""
	// PageRoleIndex is the root page listing all namespaces.
	PageRoleIndex PageRole = "index"
	// PageRoleNamespace is a namespace page listing its classes.
	PageRoleNamespace PageRole = "namespace"
	// PageRoleClass is a class page with full member documentation.
	PageRoleClass PageRole = "class"
)

// String returns the string representation of the PageRole.
func (r PageRole) String() string {
	if r == PageRoleUnknown {
		return roleUnknownStr
	}
	return string(r)
}

// IsValid returns true if this is a known page role.
func (r PageRole) IsValid() bool {
	switch r {
	case PageRoleIndex, PageRoleNamespace, PageRoleClass:
		return true
	default:
		return false
	}
}

// ParsePageRole converts a string to PageRole.
func ParsePageRole(s string) PageRole {
	switch s {
	case "index":
		return PageRoleIndex
	case "namespace":
		return PageRoleNamespace
	case "class":
		return PageRoleClass
	default:
		return PageRoleUnknown
	}
}
