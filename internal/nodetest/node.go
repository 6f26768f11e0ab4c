// Package nodetest provides an in-memory node endpoint for tests.
package nodetest

import (
	"context"
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"contractbind/internal/codec"
	"contractbind/internal/model"
)

// CallHandler answers a read-only call. Returning a *model.RevertPayload
// simulates a revert.
type CallHandler func(msg model.CallMsg) ([]byte, error)

// Log is a log emitted by a transaction handler. The node fills in the
// address and positions.
type Log struct {
	Topics []common.Hash
	Data   []byte
}

// TxHandler executes a transaction. Returning a *model.RevertPayload mines
// the transaction with a failed status; any other error rejects it at
// submission.
type TxHandler func(msg model.CallMsg) ([]Log, error)

var accountKey = mustKey("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")

func mustKey(hex string) *ecdsa.PrivateKey {
	key, err := crypto.HexToECDSA(hex)
	if err != nil {
		panic(err)
	}
	return key
}

// BaseTimestamp is the timestamp of block zero; each block adds 12 seconds.
const BaseTimestamp = 1_700_000_000

// Node is a single-account, in-memory chain. Every mined transaction gets a
// block of its own.
type Node struct {
	mu sync.Mutex

	chainID  uint64
	head     uint64
	nonce    uint64
	holding  bool
	handlers map[codec.Selector]CallHandler
	txs      map[codec.Selector]TxHandler
	logs     []model.LogRecord
	receipts map[common.Hash]*model.Receipt
	pending  []pendingTx
	queries  []model.LogQuery

	headErr    error
	logsErr    error
	callErr    error
	receiptErr error
	submitErr  error
}

type pendingTx struct {
	hash    common.Hash
	to      common.Address
	logs    []Log
	success bool
}

// New returns a node at block zero.
func New() *Node {
	return &Node{
		chainID:  1337,
		handlers: make(map[codec.Selector]CallHandler),
		txs:      make(map[codec.Selector]TxHandler),
		receipts: make(map[common.Hash]*model.Receipt),
	}
}

// HandleCall registers a read-only handler for a selector.
func (n *Node) HandleCall(sel codec.Selector, h CallHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[sel] = h
}

// HandleTransaction registers a transaction handler for a selector.
func (n *Node) HandleTransaction(sel codec.Selector, h TxHandler) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.txs[sel] = h
}

// HoldReceipts keeps submitted transactions pending until Mine is called.
func (n *Node) HoldReceipts(hold bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.holding = hold
}

// FailHead makes HeadBlockNumber return err; nil restores it.
func (n *Node) FailHead(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.headErr = err
}

// FailLogs makes GetLogs return err; nil restores it.
func (n *Node) FailLogs(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logsErr = err
}

// FailCalls makes ExecuteReadOnly return err; nil restores it.
func (n *Node) FailCalls(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.callErr = err
}

// FailReceipts makes GetReceipt return err; nil restores it.
func (n *Node) FailReceipts(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.receiptErr = err
}

// FailSubmit makes SubmitTransaction return err; nil restores it.
func (n *Node) FailSubmit(err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.submitErr = err
}

// AdvanceHead mines count empty blocks.
func (n *Node) AdvanceHead(count uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.head += count
}

// Head returns the current head without error injection.
func (n *Node) Head() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.head
}

// LogQueries returns every query GetLogs received.
func (n *Node) LogQueries() []model.LogQuery {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.LogQuery, len(n.queries))
	copy(out, n.queries)
	return out
}

// EmitLog mines a block holding a single log from address.
func (n *Node) EmitLog(address common.Address, topics []common.Hash, data []byte) model.LogRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	hash := n.nextHash()
	n.head++
	return n.appendLogs(address, hash, []Log{{Topics: topics, Data: data}})[0]
}

// Mine includes every held transaction, one block each.
func (n *Node) Mine() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, tx := range n.pending {
		n.mine(tx)
	}
	n.pending = nil
}

func (n *Node) ChainID(ctx context.Context) (*big.Int, error) {
	return new(big.Int).SetUint64(n.chainID), nil
}

func (n *Node) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	return BaseTimestamp + number*12, nil
}

func (n *Node) HeadBlockNumber(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.headErr != nil {
		return 0, n.headErr
	}
	return n.head, nil
}

func (n *Node) ExecuteReadOnly(ctx context.Context, msg model.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	callErr := n.callErr
	sel, ok := selectorOf(msg.Data)
	call := n.handlers[sel]
	tx := n.txs[sel]
	n.mu.Unlock()

	if callErr != nil {
		return nil, callErr
	}
	switch {
	case !ok:
		return nil, &model.RevertPayload{Message: "execution reverted"}
	case call != nil:
		return call(msg)
	case tx != nil:
		_, err := tx(msg)
		return nil, err
	default:
		return nil, &model.RevertPayload{Message: "execution reverted"}
	}
}

func (n *Node) SubmitTransaction(ctx context.Context, msg model.CallMsg, opts model.TxOptions) (common.Hash, error) {
	if err := ctx.Err(); err != nil {
		return common.Hash{}, err
	}
	if msg.To == nil {
		return common.Hash{}, errors.New("contract creation is not supported")
	}
	n.mu.Lock()
	submitErr := n.submitErr
	sel, _ := selectorOf(msg.Data)
	tx := n.txs[sel]
	n.mu.Unlock()

	if submitErr != nil {
		return common.Hash{}, submitErr
	}
	if tx == nil {
		return common.Hash{}, fmt.Errorf("no transaction handler for selector %s", sel.Hex())
	}

	logs, err := tx(msg)
	success := true
	if err != nil {
		var payload *model.RevertPayload
		if !errors.As(err, &payload) {
			return common.Hash{}, err
		}
		success = false
		logs = nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	p := pendingTx{hash: n.nextHash(), to: *msg.To, logs: logs, success: success}
	if n.holding {
		n.pending = append(n.pending, p)
	} else {
		n.mine(p)
	}
	return p.hash, nil
}

func (n *Node) GetReceipt(ctx context.Context, txHash common.Hash) (*model.Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.receiptErr != nil {
		return nil, n.receiptErr
	}
	receipt, ok := n.receipts[txHash]
	if !ok {
		return nil, nil
	}
	copied := *receipt
	return &copied, nil
}

func (n *Node) GetLogs(ctx context.Context, query model.LogQuery) ([]model.LogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.queries = append(n.queries, query)
	if n.logsErr != nil {
		return nil, n.logsErr
	}
	var out []model.LogRecord
	for _, log := range n.logs {
		if matchesQuery(log, query) {
			out = append(out, log)
		}
	}
	return out, nil
}

// Account is the one account the node signs for.
func (n *Node) Account() common.Address {
	return crypto.PubkeyToAddress(accountKey.PublicKey)
}

// SignMessage signs the prefixed message hash like eth_sign, returning
// r ‖ s ‖ v with v of 27 or 28.
func (n *Node) SignMessage(ctx context.Context, address common.Address, message []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if address != n.Account() {
		return nil, fmt.Errorf("unknown account %s", address.Hex())
	}
	sig, err := crypto.Sign(accounts.TextHash(message), accountKey)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

func (n *Node) mine(tx pendingTx) {
	n.head++
	status := model.ReceiptStatusFailed
	var logs []model.LogRecord
	if tx.success {
		status = model.ReceiptStatusSuccessful
		logs = n.appendLogs(tx.to, tx.hash, tx.logs)
	}
	n.receipts[tx.hash] = &model.Receipt{
		TxHash:      tx.hash,
		BlockNumber: n.head,
		BlockHash:   blockHash(n.head),
		Status:      status,
		GasUsed:     21000,
		Logs:        logs,
	}
}

// appendLogs records logs in the current head block.
func (n *Node) appendLogs(address common.Address, txHash common.Hash, logs []Log) []model.LogRecord {
	out := make([]model.LogRecord, 0, len(logs))
	for i, l := range logs {
		record := model.LogRecord{
			Address:     address,
			Topics:      append([]common.Hash(nil), l.Topics...),
			Data:        common.CopyBytes(l.Data),
			BlockNumber: n.head,
			BlockHash:   blockHash(n.head),
			TxHash:      txHash,
			LogIndex:    uint64(i),
		}
		n.logs = append(n.logs, record)
		out = append(out, record)
	}
	return out
}

func (n *Node) nextHash() common.Hash {
	n.nonce++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], n.nonce)
	return crypto.Keccak256Hash([]byte("tx"), buf[:])
}

func blockHash(number uint64) common.Hash {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], number)
	return crypto.Keccak256Hash([]byte("block"), buf[:])
}

func selectorOf(data []byte) (codec.Selector, bool) {
	var sel codec.Selector
	if len(data) < len(sel) {
		return sel, false
	}
	copy(sel[:], data)
	return sel, true
}

func matchesQuery(log model.LogRecord, q model.LogQuery) bool {
	if log.BlockNumber < q.FromBlock || log.BlockNumber > q.ToBlock {
		return false
	}
	if len(q.Addresses) > 0 {
		found := false
		for _, addr := range q.Addresses {
			if addr == log.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for i, alternatives := range q.Topics {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(log.Topics) {
			return false
		}
		found := false
		for _, topic := range alternatives {
			if topic == log.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
