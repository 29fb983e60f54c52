package types

import (
	"encoding/binary"
	"fmt"
)

// OutpointSize is the length of an encoded outpoint: txid(32) | index(4).
const OutpointSize = HashSize + 4

// Outpoint identifies a spendable output: the hash of the transaction that
// produced it and the output's position in that transaction.
type Outpoint struct {
	TxID  Hash   `json:"txid"`
	Index uint32 `json:"index"`
}

// IsZero returns true if the outpoint has a zero TxID and zero index.
func (o Outpoint) IsZero() bool {
	return o.TxID.IsZero() && o.Index == 0
}

// String returns "txid:index" in hex.
func (o Outpoint) String() string {
	return fmt.Sprintf("%s:%d", o.TxID.String(), o.Index)
}

// Bytes returns txid(32) | index(4, little-endian), the same layout used
// inside transaction raw data.
func (o Outpoint) Bytes() []byte {
	buf := make([]byte, 0, OutpointSize)
	buf = append(buf, o.TxID[:]...)
	return binary.LittleEndian.AppendUint32(buf, o.Index)
}
