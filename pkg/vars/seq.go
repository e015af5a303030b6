package vars

import "context"

// Seq is a pull-based sequence of provider results. Next returns the next
// element, or ok=false once the sequence is exhausted, or a non-nil error
// (including cancellation) after which the sequence must not be pulled
// again. A Seq is consumed at most once and is not restartable; callers may
// stop pulling early at any point without draining the remainder.
type Seq interface {
	Next() (r Result, ok bool, err error)
}

// SeqFunc adapts a fetch function to the Seq interface.
type SeqFunc func() (Result, bool, error)

// Next implements Seq.
func (f SeqFunc) Next() (Result, bool, error) { return f() }

// SliceSeq returns a Seq over a fixed set of results. It checks ctx between
// pulls, so a revoked cancellation handle surfaces as an error on the next
// pull rather than being ignored.
func SliceSeq(ctx context.Context, results []Result) Seq {
	i := 0
	return SeqFunc(func() (Result, bool, error) {
		if err := ctx.Err(); err != nil {
			return Result{}, false, err
		}
		if i >= len(results) {
			return Result{}, false, nil
		}
		r := results[i]
		i++
		return r, true, nil
	})
}

// EmptySeq is a Seq that is already exhausted.
var EmptySeq Seq = SeqFunc(func() (Result, bool, error) {
	return Result{}, false, nil
})
