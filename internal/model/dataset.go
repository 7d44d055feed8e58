package model

import (
	"sort"
	"time"
)

// DatasetVersion is the schema version stamped into every dataset
// artifact. Renderers compare it before consuming the file, so it only
// changes when the record shape changes.
const DatasetVersion = "1.0"

// DatasetTimestampLayout is the layout for the timestamp embedded in
// artifact file names.
const DatasetTimestampLayout = "20060102_150405"

// DatasetMetadata is the metadata block at the head of a dataset artifact.
type DatasetMetadata struct {
	// ScrapedAt is the capture time in RFC 3339 form. It is derived from
	// the run start time recorded in the checkpoint store, never from the
	// wall clock at write time, so re-emitting the dataset reproduces the
	// same bytes.
	ScrapedAt string `json:"scrapedAt"`

	// SourceURL is the root index page the crawl started from.
	SourceURL string `json:"sourceUrl"`

	// Version is the dataset schema version, see DatasetVersion.
	Version string `json:"version"`

	// TotalNamespaces is the number of namespaces in the dataset.
	TotalNamespaces int `json:"totalNamespaces"`

	// TotalClasses is the number of class records across all namespaces.
	TotalClasses int `json:"totalClasses"`
}

// Dataset is the full structured artifact: one metadata block and the
// namespace tree with every extracted class record.
type Dataset struct {
	Metadata   DatasetMetadata `json:"metadata"`
	Namespaces []Namespace     `json:"namespaces"`
}

// NewDataset returns an empty dataset stamped with the given capture time
// and source URL.
func NewDataset(scrapedAt time.Time, sourceURL string) *Dataset {
	return &Dataset{
		Metadata: DatasetMetadata{
			ScrapedAt: scrapedAt.UTC().Format(time.RFC3339),
			SourceURL: sourceURL,
			Version:   DatasetVersion,
		},
		Namespaces: []Namespace{},
	}
}

// Sort orders namespaces by name and the classes inside each namespace by
// full name, then name. Assembly iterates store rows whose order is an
// implementation detail, so sorting is what makes re-emitted artifacts
// byte identical.
func (d *Dataset) Sort() {
	sort.Slice(d.Namespaces, func(i, j int) bool {
		return d.Namespaces[i].Name < d.Namespaces[j].Name
	})
	for i := range d.Namespaces {
		classes := d.Namespaces[i].Classes
		sort.Slice(classes, func(a, b int) bool {
			if classes[a].FullName != classes[b].FullName {
				return classes[a].FullName < classes[b].FullName
			}
			return classes[a].Name < classes[b].Name
		})
	}
}

// Recount refreshes the metadata totals from the namespace tree.
func (d *Dataset) Recount() {
	d.Metadata.TotalNamespaces = len(d.Namespaces)
	total := 0
	for i := range d.Namespaces {
		total += len(d.Namespaces[i].Classes)
	}
	d.Metadata.TotalClasses = total
}

// DatasetFileName returns the timestamped artifact file name for a run
// started at the given time, for example "namespaces_list_20260825_093000.json".
// The original file naming is kept so existing renderers pick the artifact
// up unchanged.
func DatasetFileName(startedAt time.Time) string {
	return "namespaces_list_" + startedAt.UTC().Format(DatasetTimestampLayout) + ".json"
}
