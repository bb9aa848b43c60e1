package report

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"kpc/internal/driver"
	"kpc/internal/loader"
)

const shapes = `package: Shapes
header:
  interfaces:
    - {name: Shape, messages: [{selector: area, returns: int}]}
  classes:
    - name: A
      implements: [Shape]
      fields: [{name: x, type: int}]
      methods: [{selector: area, returns: int}]
    - name: B
      super: A
      fields: [{name: label, type: {ptr: char}}]
      methods: [{selector: scale}]
`

func compile(t *testing.T) *driver.Result {
	t.Helper()
	res, err := driver.Compile(context.Background(), []loader.Input{{Path: "shapes.yaml", Content: []byte(shapes)}}, driver.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Session.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics: %+v", res.Session.Bag.Items())
	}
	return res
}

func TestLayoutReport(t *testing.T) {
	res := compile(t)
	var buf bytes.Buffer
	if err := Layout(&buf, res.Prog, res.Order, Options{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"package Shapes",
		"class A  size 8",
		"class B  size 12",
		"+4       4  x      int  from Shapes.A",
		"+8       4  label  ptr to char",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestDispatchReport(t *testing.T) {
	res := compile(t)
	var buf bytes.Buffer
	if err := Dispatch(&buf, res.Prog, res.Order, Options{}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "package Shapes  compiled") {
		t.Fatalf("header:\n%s", out)
	}
	b := out[strings.Index(out, "class B"):]
	area, scale := strings.Index(b, "area"), strings.Index(b, "scale")
	if area < 0 || scale < 0 || area > scale {
		t.Fatalf("B lists selectors by offset:\n%s", b)
	}
	if !strings.Contains(b, "area  from Shapes.A") {
		t.Fatalf("inherited selector not marked:\n%s", b)
	}
}

func TestTruncate(t *testing.T) {
	p := &printer{opts: Options{Width: 6}}
	if got := p.truncate("rectangle"); got != "rec..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := p.truncate("世界世界"); got != "世..." {
		t.Fatalf("truncate = %q", got)
	}
	if got := p.truncate("box"); got != "box" {
		t.Fatalf("truncate = %q", got)
	}
}
