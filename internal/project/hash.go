package project

import (
	"crypto/sha256"

	"kpc/internal/ast"
	"kpc/internal/source"
)

// Digest is a sha256 hash, the same width as source.File.Hash.
type Digest [32]byte

// Combine hashes a package's own content followed by the digests of the
// packages it uses: H(content || dep1 || dep2 ...). deps must come in a
// deterministic order.
func Combine(content Digest, deps ...Digest) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	for _, d := range deps {
		_, _ = h.Write(d[:])
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// PackageDigests computes the digest of every package in order, which must
// list dependencies first. A package's digest covers its header and code
// files and the digests of the packages it uses, in uses order, so editing
// a used package invalidates every export built against it.
func PackageDigests(prog *ast.Program, order []ast.PkgID) map[ast.PkgID]Digest {
	out := make(map[ast.PkgID]Digest, len(order))
	for _, id := range order {
		pkg := prog.Package(id)
		content := fileDigest(prog, pkg.File)
		if pkg.CodeFile != source.NoFileID {
			content = Combine(content, fileDigest(prog, pkg.CodeFile))
		}
		deps := make([]Digest, 0, len(pkg.Uses))
		for _, u := range pkg.Uses {
			if d, ok := out[u.Target]; ok {
				deps = append(deps, d)
			}
		}
		out[id] = Combine(content, deps...)
	}
	return out
}

func fileDigest(prog *ast.Program, id source.FileID) Digest {
	if f := prog.Files.Get(id); f != nil {
		return f.Hash
	}
	return Digest{}
}
