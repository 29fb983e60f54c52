package txhandler

import (
	"bytes"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/ledgernode/internal/utxo"
	"github.com/Klingon-tech/ledgernode/pkg/tx"
)

// verdict caches one signature check. The verdict only applies when the
// owner resolved at admission time equals the owner it was checked against.
type verdict struct {
	owner []byte
	ok    bool
	done  bool
}

// preverify checks, in parallel, the signatures of every candidate input
// whose utxo is present in pool at batch start. The returned slice is
// indexed by candidate then input. Inputs that cannot be resolved yet are
// left for inline verification during admission.
func (h *Handler) preverify(candidates []*tx.Transaction, pool *utxo.Pool) [][]verdict {
	pre := make([][]verdict, len(candidates))
	if h.workers <= 0 {
		return pre
	}

	type job struct {
		c, i  int
		owner []byte
	}
	var jobs []job
	for c, t := range candidates {
		if t == nil {
			continue
		}
		pre[c] = make([]verdict, len(t.Inputs))
		for i, in := range t.Inputs {
			prev, err := pool.Get(in.Outpoint())
			if err != nil {
				continue
			}
			jobs = append(jobs, job{c: c, i: i, owner: prev.Owner})
		}
	}
	if len(jobs) < 2 {
		return pre
	}

	var g errgroup.Group
	g.SetLimit(h.workers)
	for _, j := range jobs {
		g.Go(func() error {
			t := candidates[j.c]
			digest := t.SigHash(j.i)
			pre[j.c][j.i] = verdict{
				owner: j.owner,
				ok:    h.verifier.Verify(digest[:], t.Inputs[j.i].Signature, j.owner),
				done:  true,
			}
			return nil
		})
	}
	_ = g.Wait()
	return pre
}

// verifyInput checks the signature of input i against owner, using a
// cached verdict when one matches.
func (h *Handler) verifyInput(t *tx.Transaction, i int, owner []byte, pre []verdict) bool {
	if i < len(pre) && pre[i].done && bytes.Equal(pre[i].owner, owner) {
		return pre[i].ok
	}
	digest := t.SigHash(i)
	return h.verifier.Verify(digest[:], t.Inputs[i].Signature, owner)
}
