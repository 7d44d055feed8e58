package extract

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/bakinscan/internal/model"
)

// Index extracts the namespace listing from the reference index page. The
// directory table is the primary source because its indentation carries the
// namespace nesting; without it every namespace link on the page is taken
// as a flat listing. A page with neither listing shape nor a contents area
// fails with ErrMissingListing. Zero namespaces inside an intact listing is
// a valid result that only adds a warning.
func (e *Extractor) Index(page *model.Page) (*model.IndexListing, []string, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, nil, err
	}

	listing := &model.IndexListing{
		SourceURL:  page.URL,
		Namespaces: []model.NamespaceRef{},
	}
	warnings := make([]string, 0)
	seen := make(map[string]bool)

	if table := doc.Find("table.directory").First(); table.Length() > 0 {
		for _, node := range parseDirectoryTree(table) {
			if node.role != model.PageRoleNamespace || node.href == "" {
				continue
			}
			if seen[node.fullPath] {
				continue
			}
			seen[node.fullPath] = true
			listing.Namespaces = append(listing.Namespaces, model.NamespaceRef{
				Name:        node.fullPath,
				URL:         e.resolveHref(page.URL, node.href),
				Description: node.description,
			})
		}
	} else {
		anchors := doc.Find("a[href*='namespace']")
		if anchors.Length() == 0 && doc.Find("div.contents").Length() == 0 {
			return nil, nil, ErrMissingListing
		}
		warnings = append(warnings, "index page has no directory table, namespace links taken from the whole page")
		anchors.Each(func(_ int, link *goquery.Selection) {
			name := cleanText(link.Text())
			href, _ := link.Attr("href")
			if name == "" || href == "" || seen[name] {
				return
			}
			seen[name] = true
			listing.Namespaces = append(listing.Namespaces, model.NamespaceRef{
				Name:        name,
				URL:         e.resolveHref(page.URL, href),
				Description: rowDescription(link),
			})
		})
	}

	if len(listing.Namespaces) == 0 {
		warnings = append(warnings, "index page lists no namespaces")
	}
	e.logWarnings(page.URL, warnings)
	return listing, warnings, nil
}

// Namespace extracts the class listing from one namespace page. The ref
// carries the identity discovered on the index; page content fills the gaps
// when the ref is bare. Class links come from the directory table first,
// the member declaration tables second, and any table as the last resort.
func (e *Extractor) Namespace(page *model.Page, ref model.NamespaceRef) (*model.NamespaceListing, []string, error) {
	doc, err := parseDocument(page)
	if err != nil {
		return nil, nil, err
	}
	if err := requireTitle(doc); err != nil {
		return nil, nil, err
	}

	listing := &model.NamespaceListing{
		Name:        ref.Name,
		URL:         ref.URL,
		Description: ref.Description,
		Classes:     []model.ClassRef{},
	}
	if listing.Name == "" {
		listing.Name = namespaceNameFromTitle(doc)
	}
	if listing.URL == "" {
		listing.URL = page.URL
	}
	if listing.Description == nil {
		listing.Description = firstParagraph(doc.Find(".textblock").First(), minDescriptionLen)
	}

	warnings := make([]string, 0)
	var anchors *goquery.Selection
	paths := map[string]string{}
	if table := doc.Find("table.directory").First(); table.Length() > 0 {
		anchors = table.Find("a[href*='class']")
		paths = classPathMap(parseDirectoryTree(table))
	} else {
		warnings = append(warnings, "namespace page has no directory table, class links taken from declaration tables")
		tables := doc.Find("table.memberdecls")
		if tables.Length() == 0 {
			tables = doc.Find("table")
		}
		anchors = tables.Find("a[href*='class']")
	}

	seen := make(map[string]bool)
	anchors.Each(func(_ int, link *goquery.Selection) {
		name := cleanText(link.Text())
		href, _ := link.Attr("href")
		if name == "" || href == "" || seen[name] {
			return
		}
		seen[name] = true
		classURL := e.resolveHref(page.URL, href)
		listing.Classes = append(listing.Classes, model.ClassRef{
			Name:        name,
			FullName:    classFullName(listing.Name, name, href, classURL, paths),
			URL:         classURL,
			Description: rowDescription(link),
		})
	})

	if len(listing.Classes) == 0 {
		e.logger.Debug("namespace page lists no classes",
			slog.String("url", page.URL),
			slog.String("namespace", listing.Name))
	}
	e.logWarnings(page.URL, warnings)
	return listing, warnings, nil
}

// classFullName resolves the fully qualified class name: URL derivation
// first, the hierarchy paths when the URL does not follow the encoding, and
// the namespace qualified link text as the last resort.
func classFullName(namespace, name, href, classURL string, paths map[string]string) string {
	if full := fullNameFromURL(classURL, ""); full != "" {
		return full
	}
	if path, ok := paths[name]; ok {
		return qualifyName(namespace, path)
	}
	if path, ok := paths[href]; ok {
		return qualifyName(namespace, path)
	}
	return qualifyName(namespace, name)
}

// qualifyName prefixes name with the namespace unless it already is.
func qualifyName(namespace, name string) string {
	if namespace == "" || name == namespace || strings.HasPrefix(name, namespace+".") {
		return name
	}
	return namespace + "." + name
}

// namespaceNameFromTitle recovers the namespace name from the page heading,
// shaped like "Yukar.Engine 名前空間参照" or
// "BAKIN: Yukar.Engine Namespace Reference".
func namespaceNameFromTitle(doc *goquery.Document) string {
	title := pageTitle(doc)
	for _, suffix := range []string{"名前空間参照", "名前空間", "Namespace Reference"} {
		title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(title), suffix))
	}
	fields := strings.Fields(title)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// logWarnings reports tolerated extraction problems.
func (e *Extractor) logWarnings(url string, warnings []string) {
	for _, warning := range warnings {
		e.logger.Warn("tolerated extraction problem",
			slog.String("url", url),
			slog.String("problem", warning))
	}
}
