// Package testkit checks structural invariants of a checked program. Tests
// and fuzz harnesses run it after a compilation without errors.
package testkit

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"kpc/internal/ast"
	"kpc/internal/source"
)

// CheckLayout verifies the class layouts of pkgs:
// 1) fields are placed in order and do not overlap
// 2) every field ends within the class size
// 3) inherited fields keep the offsets they have in the superclass
func CheckLayout(prog *ast.Program, pkgs []ast.PkgID) error {
	var errs []error
	for _, id := range pkgs {
		for _, d := range prog.Package(id).Classes {
			if err := checkClass(prog, d); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", prog.DefName(d), err))
			}
		}
	}
	return errors.Join(errs...)
}

func checkClass(prog *ast.Program, d ast.DefID) error {
	def := prog.Def(d)
	if def.Size < 0 {
		return fmt.Errorf("size unresolved")
	}
	var end int32
	for _, f := range def.Fields {
		v := prog.Var(f)
		if v.Offset < end {
			return fmt.Errorf("field %s at %d overlaps the previous field ending at %d", prog.Name(v.Name), v.Offset, end)
		}
		next, err := safecast.Conv[int32](int64(v.Offset) + int64(v.Size))
		if err != nil {
			return fmt.Errorf("field %s: %w", prog.Name(v.Name), err)
		}
		end = next
	}
	if end > def.Size {
		return fmt.Errorf("fields end at %d beyond size %d", end, def.Size)
	}

	super := prog.Def(typeDef(prog, def.Super))
	if super == nil {
		return nil
	}
	if len(super.Fields) > len(def.Fields) {
		return fmt.Errorf("has %d fields, superclass %d", len(def.Fields), len(super.Fields))
	}
	for i, f := range super.Fields {
		want, got := prog.Var(f), prog.Var(def.Fields[i])
		if want.Name != got.Name || want.Offset != got.Offset {
			return fmt.Errorf("inherited field %d is %s at %d, superclass has %s at %d",
				i, prog.Name(got.Name), got.Offset, prog.Name(want.Name), want.Offset)
		}
	}
	return nil
}

// CheckDispatch verifies the dispatch offsets of pkgs:
// 1) every selector has a positive offset, distinct within its abstract
// 2) a selector shared with a superclass, implemented interface or
// extended interface has the same offset in both
func CheckDispatch(prog *ast.Program, pkgs []ast.PkgID) error {
	var errs []error
	for _, id := range pkgs {
		for _, d := range prog.Package(id).Abstracts() {
			if err := checkAbstract(prog, d); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", prog.DefName(d), err))
			}
		}
	}
	return errors.Join(errs...)
}

func checkAbstract(prog *ast.Program, d ast.DefID) error {
	def := prog.Def(d)
	offsets := make(map[source.StringID]int32, len(def.Protos))
	holder := make(map[int32]source.StringID, len(def.Protos))
	for _, p := range def.Protos {
		proto := prog.Proto(p)
		if proto.Offset <= 0 {
			return fmt.Errorf("selector %s has no offset", prog.Name(proto.Selector))
		}
		if other, ok := holder[proto.Offset]; ok {
			return fmt.Errorf("selectors %s and %s share offset %d", prog.Name(other), prog.Name(proto.Selector), proto.Offset)
		}
		holder[proto.Offset] = proto.Selector
		offsets[proto.Selector] = proto.Offset
	}

	parents := append([]ast.TypeID{def.Super}, def.Implements...)
	parents = append(parents, def.Extends...)
	for _, t := range parents {
		parent := prog.Def(typeDef(prog, t))
		if parent == nil {
			continue
		}
		for _, p := range parent.Protos {
			proto := prog.Proto(p)
			if o, ok := offsets[proto.Selector]; ok && o != proto.Offset {
				return fmt.Errorf("selector %s at %d, %s has it at %d",
					prog.Name(proto.Selector), o, prog.Name(parent.Name), proto.Offset)
			}
		}
	}
	return nil
}

func typeDef(prog *ast.Program, t ast.TypeID) ast.DefID {
	if typ := prog.Type(t); typ != nil {
		return typ.Def
	}
	return ast.NoDefID
}
