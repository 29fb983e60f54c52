package chain

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/ledgernode/internal/storage"
	"github.com/Klingon-tech/ledgernode/pkg/block"
	"github.com/Klingon-tech/ledgernode/pkg/types"
)

// Key prefixes and state keys for the archive.
var (
	prefixBlock  = []byte("b/") // b/<hash(32)> -> archived block JSON
	prefixHeight = []byte("h/") // h/<height(8)> -> hash(32)
	keyTipHash   = []byte("s/tip")
	keyHeight    = []byte("s/height")
)

// archivedBlock is the stored form of a block that left the retained window.
type archivedBlock struct {
	Height uint64       `json:"height"`
	Block  *block.Block `json:"block"`
}

// BlockStore archives blocks that dropped out of the canonical branch's
// retained window. The height index is last-writer-wins.
type BlockStore struct {
	db storage.DB
}

// NewBlockStore creates a block store backed by the given database.
func NewBlockStore(db storage.DB) *BlockStore {
	return &BlockStore{db: db}
}

// PutBlock archives blk at height and advances the archive tip when height
// is not below it. Block, height index and tip are written in one batch.
func (bs *BlockStore) PutBlock(blk *block.Block, height uint64) error {
	data, err := json.Marshal(archivedBlock{Height: height, Block: blk})
	if err != nil {
		return fmt.Errorf("block marshal: %w", err)
	}
	hash := blk.Hash()

	batch := storage.NewBatch(bs.db)
	if err := batch.Put(blockKey(hash), data); err != nil {
		return fmt.Errorf("block put: %w", err)
	}
	if err := batch.Put(heightKey(height), hash[:]); err != nil {
		return fmt.Errorf("height index put: %w", err)
	}

	_, tipHeight, found, err := bs.GetTip()
	if err != nil {
		return err
	}
	if !found || height >= tipHeight {
		var heightBuf [8]byte
		binary.BigEndian.PutUint64(heightBuf[:], height)
		if err := batch.Put(keyTipHash, hash[:]); err != nil {
			return fmt.Errorf("set tip hash: %w", err)
		}
		if err := batch.Put(keyHeight, heightBuf[:]); err != nil {
			return fmt.Errorf("set tip height: %w", err)
		}
	}

	if err := batch.Commit(); err != nil {
		return fmt.Errorf("archive block %s: %w", hash.Short(), err)
	}
	return nil
}

// GetBlock retrieves an archived block and its height.
func (bs *BlockStore) GetBlock(hash types.Hash) (*block.Block, uint64, error) {
	data, err := bs.db.Get(blockKey(hash))
	if err != nil {
		return nil, 0, fmt.Errorf("block get: %w", err)
	}
	var ab archivedBlock
	if err := json.Unmarshal(data, &ab); err != nil {
		return nil, 0, fmt.Errorf("block unmarshal: %w", err)
	}
	if ab.Block == nil {
		return nil, 0, fmt.Errorf("corrupt archive entry for %s", hash.Short())
	}
	return ab.Block, ab.Height, nil
}

// GetBlockByHeight retrieves the block last archived at height.
func (bs *BlockStore) GetBlockByHeight(height uint64) (*block.Block, error) {
	hashBytes, err := bs.db.Get(heightKey(height))
	if err != nil {
		return nil, fmt.Errorf("height index get: %w", err)
	}
	if len(hashBytes) != types.HashSize {
		return nil, fmt.Errorf("corrupt height index: got %d bytes, want %d", len(hashBytes), types.HashSize)
	}
	var hash types.Hash
	copy(hash[:], hashBytes)
	blk, _, err := bs.GetBlock(hash)
	return blk, err
}

// HasBlock checks if a block is archived.
func (bs *BlockStore) HasBlock(hash types.Hash) (bool, error) {
	return bs.db.Has(blockKey(hash))
}

// Count returns the number of archived blocks.
func (bs *BlockStore) Count() (int, error) {
	n := 0
	err := bs.db.ForEach(prefixBlock, func(_, _ []byte) error {
		n++
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count archived blocks: %w", err)
	}
	return n, nil
}

// GetTip returns the highest archived block hash and height.
// found is false for an empty archive.
func (bs *BlockStore) GetTip() (hash types.Hash, height uint64, found bool, err error) {
	hashBytes, err := bs.db.Get(keyTipHash)
	if errors.Is(err, storage.ErrNotFound) {
		return types.Hash{}, 0, false, nil
	}
	if err != nil {
		return types.Hash{}, 0, false, fmt.Errorf("tip hash get: %w", err)
	}
	if len(hashBytes) != types.HashSize {
		return types.Hash{}, 0, false, fmt.Errorf("corrupt tip hash: got %d bytes", len(hashBytes))
	}
	heightBytes, err := bs.db.Get(keyHeight)
	if err != nil {
		return types.Hash{}, 0, false, fmt.Errorf("tip height missing: %w", err)
	}
	if len(heightBytes) != 8 {
		return types.Hash{}, 0, false, fmt.Errorf("corrupt tip height: got %d bytes", len(heightBytes))
	}
	copy(hash[:], hashBytes)
	return hash, binary.BigEndian.Uint64(heightBytes), true, nil
}

func blockKey(hash types.Hash) []byte {
	key := make([]byte, len(prefixBlock)+types.HashSize)
	copy(key, prefixBlock)
	copy(key[len(prefixBlock):], hash[:])
	return key
}

func heightKey(height uint64) []byte {
	key := make([]byte, len(prefixHeight)+8)
	copy(key, prefixHeight)
	binary.BigEndian.PutUint64(key[len(prefixHeight):], height)
	return key
}
