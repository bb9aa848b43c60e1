package source

import "testing"

func TestFileSetVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("pkgs/Main.yaml", []byte("package: Main"), 0)
	if id1 != 1 {
		t.Fatalf("expected first FileID to be 1, got %d", id1)
	}
	id2 := fs.Add("pkgs/Main.yaml", []byte("package: Main2"), 0)
	if id2 == id1 {
		t.Fatalf("re-adding a path must allocate a new id")
	}
	latest, ok := fs.Lookup("pkgs/./Main.yaml")
	if !ok || latest != id2 {
		t.Fatalf("Lookup = %d,%v want %d", latest, ok, id2)
	}
	if fs.Get(id1).Hash == fs.Get(id2).Hash {
		t.Fatalf("different contents must hash differently")
	}
	if fs.Len() != 2 {
		t.Fatalf("Len = %d, want 2", fs.Len())
	}
}

func TestFileSetFormat(t *testing.T) {
	fs := NewFileSet()
	fs.SetBaseDir("/work")
	abs := fs.Add("/work/pkgs/Shapes.yaml", nil, 0)
	virt := fs.AddVirtual("test.yaml")

	tests := []struct {
		pos  Pos
		want string
	}{
		{Pos{File: abs, Line: 3, Col: 5}, "pkgs/Shapes.yaml:3:5"},
		{Pos{File: abs, Line: 3}, "pkgs/Shapes.yaml:3"},
		{Pos{File: virt, Line: 1, Col: 1}, "test.yaml:1:1"},
		{NoPos, "<unknown>"},
	}
	for _, tt := range tests {
		if got := fs.Format(tt.pos); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.pos, got, tt.want)
		}
	}
}

func TestPosBefore(t *testing.T) {
	a := Pos{File: 1, Line: 2, Col: 9}
	b := Pos{File: 1, Line: 3, Col: 1}
	c := Pos{File: 2, Line: 1, Col: 1}
	if !a.Before(b) || b.Before(a) {
		t.Fatalf("line ordering broken")
	}
	if !b.Before(c) {
		t.Fatalf("file ordering broken")
	}
}

func TestFileSetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.Add("a.yaml", []byte("package: A\r\nheader:\n  classes: []"), 0)
	cases := map[uint32]string{1: "package: A", 2: "header:", 3: "  classes: []"}
	for n, want := range cases {
		if got, ok := fs.Line(id, n); !ok || got != want {
			t.Errorf("Line(%d) = %q,%v want %q", n, got, ok, want)
		}
	}
	if _, ok := fs.Line(id, 4); ok {
		t.Error("line past the end must not resolve")
	}
}
