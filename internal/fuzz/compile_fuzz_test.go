package fuzztests

import (
	"context"
	"errors"
	"testing"
	"time"

	"kpc/internal/driver"
	"kpc/internal/loader"
	"kpc/internal/session"
	"kpc/internal/testkit"
)

// compileTimeout bounds one run; exceeding it points at a non-terminating
// fixed point or walk.
const compileTimeout = 5 * time.Second

func FuzzCompile(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		input = clamp(input)
		ctx, cancel := context.WithTimeout(context.Background(), compileTimeout)
		defer cancel()

		opts := driver.Options{Session: session.Options{MaxErrors: 64}}
		res, err := driver.Compile(ctx, []loader.Input{{Path: "fuzz.yaml", Content: input}}, opts)
		var ie *session.InternalError
		switch {
		case errors.As(err, &ie):
			t.Fatalf("internal error: %v", ie)
		case errors.Is(err, context.DeadlineExceeded):
			t.Fatalf("compile did not finish within %v", compileTimeout)
		}
		if err != nil || res.Session.Bag.HasErrors() {
			return
		}
		if err := testkit.CheckLayout(res.Prog, res.Order); err != nil {
			t.Fatal(err)
		}
		if err := testkit.CheckDispatch(res.Prog, res.Order); err != nil {
			t.Fatal(err)
		}
	})
}
