package utxo

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/crypto"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// Commitment computes a merkle root over all UTXOs in the pool.
// Each UTXO is hashed, the hashes are sorted and a merkle tree is built
// from them. Equal pools give equal commitments; an empty pool gives the
// zero hash.
func (p *Pool) Commitment() types.Hash {
	hashes := make([]types.Hash, 0, p.Count())
	for _, u := range p.All() {
		hashes = append(hashes, hashUTXO(u))
	}
	if len(hashes) == 0 {
		return types.Hash{}
	}

	// Iteration order varies.
	sort.Slice(hashes, func(i, j int) bool {
		return hashes[i].Less(hashes[j])
	})

	return block.ComputeMerkleRoot(hashes)
}

// hashUTXO hashes txid(32) | index(4) | value(8) | owner.
func hashUTXO(u UTXO) types.Hash {
	buf := u.Outpoint.Bytes()
	buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(u.Output.Value))
	buf = append(buf, u.Output.Owner...)
	return crypto.Hash(buf)
}
