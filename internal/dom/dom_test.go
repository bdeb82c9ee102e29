package dom

import (
	"testing"
)

func newFixture() (*Document, map[string]*Element) {
	nodes := map[string]*Element{
		"main":   NewElement("video", "main", "cam", "wide"),
		"side":   NewElement("video", "side", "cam"),
		"music":  NewElement("audio", "music"),
		"poster": NewElement("div", "poster", "cam"),
	}
	doc := NewDocument(nodes["main"], nodes["side"], nodes["music"], nodes["poster"])
	return doc, nodes
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Selector
		wantErr bool
	}{
		{name: "tag", input: "video", want: []Selector{{Tag: "VIDEO"}}},
		{name: "id", input: "#main", want: []Selector{{ID: "main"}}},
		{name: "class", input: ".cam", want: []Selector{{Classes: []string{"cam"}}}},
		{name: "compound", input: "video#main.cam.wide", want: []Selector{{Tag: "VIDEO", ID: "main", Classes: []string{"cam", "wide"}}}},
		{name: "group", input: "audio, .cam", want: []Selector{{Tag: "AUDIO"}, {Classes: []string{"cam"}}}},
		{name: "universal", input: "*", want: []Selector{{Tag: "*"}}},
		{name: "empty", input: "  ", wantErr: true},
		{name: "descendant", input: "div video", wantErr: true},
		{name: "attribute", input: "video[src]", wantErr: true},
		{name: "dangling class", input: "video.", wantErr: true},
		{name: "two ids", input: "#a#b", wantErr: true},
		{name: "empty group", input: "video,", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelector(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSelector(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseSelector(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i].Tag != tt.want[i].Tag || got[i].ID != tt.want[i].ID || len(got[i].Classes) != len(tt.want[i].Classes) {
					t.Errorf("group %d = %+v, want %+v", i, got[i], tt.want[i])
					continue
				}
				for j := range got[i].Classes {
					if got[i].Classes[j] != tt.want[i].Classes[j] {
						t.Errorf("group %d class %d = %s, want %s", i, j, got[i].Classes[j], tt.want[i].Classes[j])
					}
				}
			}
		})
	}
}

func TestDocument(t *testing.T) {
	t.Run("QuerySelectorAll keeps document order", func(t *testing.T) {
		doc, nodes := newFixture()

		got := doc.QuerySelectorAll(".cam")
		want := []Node{nodes["main"], nodes["side"], nodes["poster"]}
		if len(got) != len(want) {
			t.Fatalf("expected %d matches, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("match %d = %s, want %s", i, got[i].ID(), want[i].ID())
			}
		}
	})

	t.Run("QuerySelectorAll is case insensitive on tags", func(t *testing.T) {
		doc, _ := newFixture()
		if got := doc.QuerySelectorAll("VIDEO"); len(got) != 2 {
			t.Errorf("expected 2 videos, got %d", len(got))
		}
	})

	t.Run("QuerySelectorAll with invalid selector", func(t *testing.T) {
		doc, _ := newFixture()
		if got := doc.QuerySelectorAll("div > video"); got != nil {
			t.Errorf("expected no matches, got %d", len(got))
		}
	})

	t.Run("QuerySelector and GetElementByID", func(t *testing.T) {
		doc, nodes := newFixture()
		if got := doc.QuerySelector("audio"); got != nodes["music"] {
			t.Errorf("QuerySelector(audio) = %v", got)
		}
		if got := doc.QuerySelector("span"); got != nil {
			t.Errorf("QuerySelector(span) = %v, want nil", got)
		}
		if got := doc.GetElementByID("side"); got != nodes["side"] {
			t.Errorf("GetElementByID(side) = %v", got)
		}
	})

	t.Run("Append and Remove", func(t *testing.T) {
		doc, nodes := newFixture()
		doc.Append(nodes["main"])
		if n := doc.Nodes().Len(); n != 4 {
			t.Errorf("appending an existing node should be a no-op, got %d nodes", n)
		}
		if !doc.Remove(nodes["main"]) {
			t.Error("expected Remove to report success")
		}
		if doc.Remove(nodes["main"]) {
			t.Error("expected second Remove to report absence")
		}
		if doc.GetElementByID("main") != nil {
			t.Error("removed node should not be found")
		}
	})
}

func TestNormalize(t *testing.T) {
	doc, nodes := newFixture()

	tests := []struct {
		name  string
		doc   *Document
		input any
		want  []string
	}{
		{name: "nil input", doc: doc, input: nil, want: nil},
		{name: "single node", doc: doc, input: nodes["side"], want: []string{"side"}},
		{name: "selector", doc: doc, input: "video", want: []string{"main", "side"}},
		{name: "selector without document", doc: nil, input: "video", want: nil},
		{name: "collection", doc: doc, input: NodeList{nodes["music"], nodes["main"]}, want: []string{"music", "main"}},
		{
			name:  "nested slices are flattened in order",
			doc:   doc,
			input: []any{nodes["music"], []any{"#side", []*Element{nodes["main"]}}},
			want:  []string{"music", "side", "main"},
		},
		{
			name:  "duplicates are dropped",
			doc:   doc,
			input: []any{"#main", nodes["main"], ".cam"},
			want:  []string{"main", "side", "poster"},
		},
		{name: "typed nil is skipped", doc: doc, input: []*Element{nil, nodes["side"]}, want: []string{"side"}},
		{name: "unsupported input", doc: doc, input: 42, want: nil},
		{name: "array", doc: doc, input: [2]Node{nodes["side"], nodes["music"]}, want: []string{"side", "music"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.doc, tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Normalize() returned %d nodes, want %d", len(got), len(tt.want))
			}
			for i, id := range tt.want {
				if got[i].ID() != id {
					t.Errorf("node %d = %s, want %s", i, got[i].ID(), id)
				}
			}
		})
	}

	t.Run("Document implements Resolver", func(t *testing.T) {
		var r Resolver = doc
		if got := r.Resolve("#music"); len(got) != 1 || got[0] != nodes["music"] {
			t.Errorf("Resolve(#music) = %v", got)
		}
	})
}

func TestIsNil(t *testing.T) {
	var node Node
	tests := []struct {
		name string
		v    any
		want bool
	}{
		{name: "untyped nil", v: nil, want: true},
		{name: "nil element pointer", v: (*Element)(nil), want: true},
		{name: "nil element held as a node", v: Node((*Element)(nil)), want: true},
		{name: "empty node interface", v: node, want: true},
		{name: "element", v: NewElement("video", "main"), want: false},
		{name: "string", v: "", want: false},
		{name: "number", v: 0, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNil(tt.v); got != tt.want {
				t.Errorf("IsNil(%#v) = %v, want %v", tt.v, got, tt.want)
			}
		})
	}
}
