package model

import (
	"testing"
	"time"
)

func TestDatasetSort(t *testing.T) {
	t.Parallel()

	t.Run("namespaces are ordered by name and classes by full name", func(t *testing.T) {
		t.Parallel()
		dataset := &Dataset{
			Namespaces: []Namespace{
				{
					Name: "Yukar.Engine",
					Classes: []Class{
						{Name: "MapScene", FullName: "Yukar.Engine.MapScene"},
						{Name: "BattleScene", FullName: "Yukar.Engine.BattleScene"},
					},
				},
				{Name: "SharpKmyBase"},
			},
		}
		dataset.Sort()

		if dataset.Namespaces[0].Name != "SharpKmyBase" {
			t.Errorf("expected SharpKmyBase first, got %s", dataset.Namespaces[0].Name)
		}
		classes := dataset.Namespaces[1].Classes
		if classes[0].Name != "BattleScene" || classes[1].Name != "MapScene" {
			t.Errorf("expected classes sorted by full name, got %s, %s", classes[0].Name, classes[1].Name)
		}
	})

	t.Run("full name wins over short name", func(t *testing.T) {
		t.Parallel()
		dataset := &Dataset{
			Namespaces: []Namespace{
				{
					Name: "Yukar.Engine",
					Classes: []Class{
						{Name: "AScene", FullName: "Yukar.Engine.Sub.AScene"},
						{Name: "ZScene", FullName: "Yukar.Engine.Battle.ZScene"},
					},
				},
			},
		}
		dataset.Sort()

		classes := dataset.Namespaces[0].Classes
		if classes[0].Name != "ZScene" {
			t.Errorf("expected ZScene first by full name, got %s", classes[0].Name)
		}
	})

	t.Run("sorting twice produces the same order", func(t *testing.T) {
		t.Parallel()
		dataset := &Dataset{
			Namespaces: []Namespace{{Name: "B"}, {Name: "A"}, {Name: "C"}},
		}
		dataset.Sort()
		first := []string{dataset.Namespaces[0].Name, dataset.Namespaces[1].Name, dataset.Namespaces[2].Name}
		dataset.Sort()
		second := []string{dataset.Namespaces[0].Name, dataset.Namespaces[1].Name, dataset.Namespaces[2].Name}
		for i := range first {
			if first[i] != second[i] {
				t.Errorf("order changed between sorts at %d: %s != %s", i, first[i], second[i])
			}
		}
	})
}

func TestDatasetRecount(t *testing.T) {
	t.Parallel()

	dataset := &Dataset{
		Namespaces: []Namespace{
			{Name: "A", Classes: []Class{{Name: "One"}, {Name: "Two"}}},
			{Name: "B", Classes: []Class{{Name: "Three"}}},
			{Name: "C"},
		},
	}
	dataset.Recount()

	if dataset.Metadata.TotalNamespaces != 3 {
		t.Errorf("expected 3 namespaces, got %d", dataset.Metadata.TotalNamespaces)
	}
	if dataset.Metadata.TotalClasses != 3 {
		t.Errorf("expected 3 classes, got %d", dataset.Metadata.TotalClasses)
	}
}

func TestNewDataset(t *testing.T) {
	t.Parallel()

	scrapedAt := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	dataset := NewDataset(scrapedAt, "https://rpgbakin.com/csreference/doc/ja/namespaces.html")

	if dataset.Metadata.ScrapedAt != "2026-08-25T09:30:00Z" {
		t.Errorf("unexpected scrapedAt: %s", dataset.Metadata.ScrapedAt)
	}
	if dataset.Metadata.Version != DatasetVersion {
		t.Errorf("expected version %s, got %s", DatasetVersion, dataset.Metadata.Version)
	}
	if dataset.Namespaces == nil {
		t.Error("expected namespaces to be initialized empty, not nil")
	}
}

func TestDatasetFileName(t *testing.T) {
	t.Parallel()

	startedAt := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	if got := DatasetFileName(startedAt); got != "namespaces_list_20260825_093000.json" {
		t.Errorf("unexpected file name: %s", got)
	}

	t.Run("same start time yields same name", func(t *testing.T) {
		t.Parallel()
		if DatasetFileName(startedAt) != DatasetFileName(startedAt) {
			t.Error("expected stable file name for a fixed start time")
		}
	})
}
