package report

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/bakinscan/internal/model"
)

// createRenderDataset creates a dataset exercising every member table.
func createRenderDataset() *model.Dataset {
	ds := model.NewDataset(testRunStart, "https://rpgbakin.com/csreference/doc/ja/annotated.html")
	ds.Namespaces = []model.Namespace{
		{
			Name:        "SharpKmyBase",
			URL:         "https://rpgbakin.com/csreference/doc/ja/namespace_sharp_kmy_base.html",
			Description: model.Ptr("基盤ライブラリ"),
		},
		{
			Name:        "Yukar.Engine",
			URL:         "https://rpgbakin.com/csreference/doc/ja/namespace_yukar_1_1_engine.html",
			Description: model.Ptr("ゲームエンジン本体の名前空間"),
			Classes: []model.Class{
				{
					Name:        "MapScene",
					FullName:    "Yukar.Engine.MapScene",
					URL:         "https://rpgbakin.com/csreference/doc/ja/class_yukar_1_1_engine_1_1_map_scene.html",
					Description: model.Ptr("マップシーンを管理するクラス"),
					Inheritance: model.Ptr("SceneBase"),
					Constructors: []model.Constructor{
						{
							Name:           "MapScene",
							Parameters:     []model.Parameter{{Name: "owner", Type: "GameMain"}},
							AccessModifier: "public",
						},
					},
					Methods: []model.Method{
						{
							Name:       "Update",
							ReturnType: "void",
							Parameters: []model.Parameter{{Name: "delta", Type: "float"}},
							IsStatic:   false,
						},
						{
							Name:       "Load",
							ReturnType: "MapScene",
							IsStatic:   true,
							Exceptions: []model.ExceptionSpec{{Type: "System.IO.FileNotFoundException", Description: "マップが存在しない"}},
						},
					},
					Properties: []model.Property{
						{Name: "IsBattle", Type: "bool", Getter: true},
					},
					Fields: []model.Field{
						{Name: "MaxLayers", Type: "int", IsStatic: true, IsReadonly: true, Value: model.Ptr("8")},
					},
				},
			},
		},
	}
	ds.Recount()
	return ds
}

// TestDocRenderer tests rendering datasets into Markdown pages.
func TestDocRenderer(t *testing.T) {
	t.Parallel()

	t.Run("writes index and one page per namespace", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		r := NewDocRenderer(dir)

		paths, err := r.Render(createRenderDataset())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(paths) != 3 {
			t.Fatalf("expected 3 pages, got %d", len(paths))
		}
		if filepath.Base(paths[0]) != IndexFileName {
			t.Errorf("expected index first, got %s", paths[0])
		}
		for _, path := range paths {
			if _, err := os.Stat(path); err != nil {
				t.Errorf("expected page on disk: %v", err)
			}
		}
	})

	t.Run("index links every namespace", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		r := NewDocRenderer(dir)

		if _, err := r.Render(createRenderDataset()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(dir, IndexFileName))
		if err != nil {
			t.Fatalf("failed to read index: %v", err)
		}

		content := string(data)
		if !strings.Contains(content, "# Bakin C# Reference") {
			t.Error("expected index H1")
		}
		if !strings.Contains(content, "[Yukar.Engine](Yukar.Engine.md)") {
			t.Error("expected link to the namespace page")
		}
		if !strings.Contains(content, "[SharpKmyBase](SharpKmyBase.md)") {
			t.Error("expected link to the class-free namespace page")
		}
	})

	t.Run("renders class sections with member tables", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		r := NewDocRenderer(dir)

		if _, err := r.Render(createRenderDataset()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(dir, "Yukar.Engine.md"))
		if err != nil {
			t.Fatalf("failed to read namespace page: %v", err)
		}

		content := string(data)
		if !strings.Contains(content, "# Yukar.Engine") {
			t.Error("expected namespace H1")
		}
		if !strings.Contains(content, "## MapScene") {
			t.Error("expected class H2")
		}
		if !strings.Contains(content, "Inheritance: `SceneBase`") {
			t.Error("expected inheritance line")
		}
		for _, section := range []string{"### Constructors", "### Methods", "### Properties", "### Fields"} {
			if !strings.Contains(content, section) {
				t.Errorf("expected section %s", section)
			}
		}
		if strings.Contains(content, "### Events") {
			t.Error("expected empty events section to be omitted")
		}
	})

	t.Run("marks static members and folded exceptions", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		r := NewDocRenderer(dir)

		if _, err := r.Render(createRenderDataset()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(dir, "Yukar.Engine.md"))
		if err != nil {
			t.Fatalf("failed to read namespace page: %v", err)
		}

		content := string(data)
		if !strings.Contains(content, "static Load") {
			t.Error("expected static method marker")
		}
		if !strings.Contains(content, "Throws `System.IO.FileNotFoundException`") {
			t.Error("expected exception folded into the description")
		}
		if !strings.Contains(content, "`float` delta") {
			t.Error("expected parameter rendering")
		}
		if !strings.Contains(content, "static readonly MaxLayers") {
			t.Error("expected field modifiers")
		}
	})

	t.Run("class free namespace page still renders", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		r := NewDocRenderer(dir)

		if _, err := r.Render(createRenderDataset()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(dir, "SharpKmyBase.md"))
		if err != nil {
			t.Fatalf("failed to read namespace page: %v", err)
		}

		content := string(data)
		if !strings.Contains(content, "# SharpKmyBase") {
			t.Error("expected namespace H1")
		}
		if !strings.Contains(content, "基盤ライブラリ") {
			t.Error("expected namespace description")
		}
	})
}

// TestNamespacePageName tests page file name derivation.
func TestNamespacePageName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain name", input: "SharpKmyBase", want: "SharpKmyBase.md"},
		{name: "dotted name", input: "Yukar.Common.Rom", want: "Yukar.Common.Rom.md"},
		{name: "separator replaced", input: "Evil/Name", want: "Evil_Name.md"},
		{name: "spaces replaced", input: "odd name", want: "odd_name.md"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := namespacePageName(tt.input); got != tt.want {
				t.Errorf("namespacePageName(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
