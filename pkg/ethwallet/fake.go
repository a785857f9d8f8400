package ethwallet

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// FakeProvider is an in-memory Provider for tests. It models a wallet with a
// mutable account list, an active chain, a set of recognized chains, and
// scripted failure modes, and emits the same change notifications a real
// wallet would.
type FakeProvider struct {
	mu       sync.Mutex
	accounts []common.Address
	chainID  *big.Int
	known    map[uint64]bool
	balances map[common.Address]*big.Int
	receipts map[common.Hash]*types.Receipt
	added    []ChainDefinition
	sent     []FakeTransfer
	txCount  uint64

	RejectConnect bool // eth_requestAccounts returns 4001
	RejectTx      bool // transaction submission returns 4001
	RevertTx      bool // mined receipts carry failed status
	RefuseSwitch  bool // wallet_switchEthereumChain fails even for known chains

	events chan Event
	closed bool
}

// FakeTransfer records a submitted value transfer.
type FakeTransfer struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// fakeRPCError mimics a wallet JSON-RPC error with a numeric code.
type fakeRPCError struct {
	code int
	msg  string
}

func (e *fakeRPCError) Error() string  { return e.msg }
func (e *fakeRPCError) ErrorCode() int { return e.code }

// NewFakeProvider starts with the given active chain and account list. The
// chain is always part of the wallet's recognized set.
func NewFakeProvider(chainID *big.Int, accounts ...common.Address) *FakeProvider {
	return &FakeProvider{
		accounts: accounts,
		chainID:  new(big.Int).Set(chainID),
		known:    map[uint64]bool{chainID.Uint64(): true},
		balances: make(map[common.Address]*big.Int),
		receipts: make(map[common.Hash]*types.Receipt),
		events:   make(chan Event, 32),
	}
}

// Recognize adds a chain to the wallet's known set so SwitchChain succeeds.
func (p *FakeProvider) Recognize(chainID *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.known[chainID.Uint64()] = true
}

// SetBalance fixes an account's balance in wei.
func (p *FakeProvider) SetBalance(addr common.Address, wei *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.balances[addr] = new(big.Int).Set(wei)
}

// SetAccounts replaces the account list and emits an accountsChanged event.
func (p *FakeProvider) SetAccounts(accounts ...common.Address) {
	p.mu.Lock()
	p.accounts = accounts
	p.mu.Unlock()
	p.emit(Event{Kind: AccountsChanged, Accounts: accounts})
}

// SetChain changes the active chain and emits a chainChanged event.
func (p *FakeProvider) SetChain(chainID *big.Int) {
	p.mu.Lock()
	p.chainID = new(big.Int).Set(chainID)
	p.known[chainID.Uint64()] = true
	p.mu.Unlock()
	p.emit(Event{Kind: ChainChanged, ChainID: new(big.Int).Set(chainID)})
}

// Sent returns the transfers submitted so far.
func (p *FakeProvider) Sent() []FakeTransfer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]FakeTransfer(nil), p.sent...)
}

// AddedChains returns the definitions passed to AddChain.
func (p *FakeProvider) AddedChains() []ChainDefinition {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]ChainDefinition(nil), p.added...)
}

func (p *FakeProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RejectConnect {
		return nil, &fakeRPCError{code: providerCodeUserRejected, msg: "user rejected the request"}
	}
	return append([]common.Address(nil), p.accounts...), nil
}

func (p *FakeProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]common.Address(nil), p.accounts...), nil
}

func (p *FakeProvider) ChainID(ctx context.Context) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.chainID), nil
}

func (p *FakeProvider) SwitchChain(ctx context.Context, chainID *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.known[chainID.Uint64()] {
		return &fakeRPCError{code: providerCodeUnrecognizedChain, msg: "unrecognized chain"}
	}
	if p.RefuseSwitch {
		return &fakeRPCError{code: providerCodeUserRejected, msg: "user rejected chain switch"}
	}
	p.chainID = new(big.Int).Set(chainID)
	return nil
}

func (p *FakeProvider) AddChain(ctx context.Context, def ChainDefinition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.added = append(p.added, def)
	id, ok := new(big.Int).SetString(def.ChainID, 0)
	if !ok {
		return &fakeRPCError{code: -32602, msg: "invalid chain id"}
	}
	p.known[id.Uint64()] = true
	return nil
}

func (p *FakeProvider) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if wei, ok := p.balances[addr]; ok {
		return new(big.Int).Set(wei), nil
	}
	return big.NewInt(0), nil
}

func (p *FakeProvider) SendValue(ctx context.Context, from, to common.Address, wei *big.Int) (common.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RejectTx {
		return common.Hash{}, &fakeRPCError{code: providerCodeUserRejected, msg: "user rejected transaction"}
	}

	p.txCount++
	hash := crypto.Keccak256Hash(from.Bytes(), to.Bytes(), big.NewInt(int64(p.txCount)).Bytes())
	status := types.ReceiptStatusSuccessful
	if p.RevertTx {
		status = types.ReceiptStatusFailed
	} else {
		p.sent = append(p.sent, FakeTransfer{From: from, To: to, Value: new(big.Int).Set(wei)})
		if bal, ok := p.balances[from]; ok {
			p.balances[from] = new(big.Int).Sub(bal, wei)
		}
		if bal, ok := p.balances[to]; ok {
			p.balances[to] = new(big.Int).Add(bal, wei)
		}
	}
	p.receipts[hash] = &types.Receipt{Status: status, TxHash: hash}
	return hash, nil
}

func (p *FakeProvider) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if receipt, ok := p.receipts[txHash]; ok {
		return receipt, nil
	}
	return nil, ethereum.NotFound
}

func (p *FakeProvider) Events() <-chan Event { return p.events }

func (p *FakeProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
}

func (p *FakeProvider) emit(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.events <- ev
}
