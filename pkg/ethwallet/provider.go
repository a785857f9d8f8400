package ethwallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// EventKind distinguishes the two push-style change notifications the wallet
// provider emits.
type EventKind int

const (
	AccountsChanged EventKind = iota
	ChainChanged
)

// Event is a provider change notification.
type Event struct {
	Kind     EventKind
	Accounts []common.Address // AccountsChanged: full new account list
	ChainID  *big.Int         // ChainChanged: new active chain
}

// Provider is the wallet boundary: account authorization, chain queries and
// switching, balance queries, transfer submission, and change notifications.
type Provider interface {
	// RequestAccounts asks the wallet to authorize accounts (eth_requestAccounts).
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	// Accounts lists already-authorized accounts without prompting (eth_accounts).
	Accounts(ctx context.Context) ([]common.Address, error)
	// ChainID reports the active chain.
	ChainID(ctx context.Context) (*big.Int, error)
	// SwitchChain asks the wallet to activate the given chain
	// (wallet_switchEthereumChain).
	SwitchChain(ctx context.Context, chainID *big.Int) error
	// AddChain registers a chain definition with the wallet
	// (wallet_addEthereumChain). The definition is sent verbatim.
	AddChain(ctx context.Context, def ChainDefinition) error
	// BalanceAt returns the native-currency balance in wei.
	BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error)
	// SendValue submits a plain value transfer and returns the tx hash.
	SendValue(ctx context.Context, from, to common.Address, wei *big.Int) (common.Hash, error)
	// TransactionReceipt returns the receipt once mined, or ethereum.NotFound
	// while the transaction is pending.
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	// Events is the stream of change notifications. Closed by Close.
	Events() <-chan Event
	Close()
}

// Wallet provider error codes (EIP-1193 / EIP-3326).
const (
	providerCodeUserRejected      = 4001
	providerCodeUnrecognizedChain = 4902
)

func providerErrorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}

func isUserRejected(err error) bool {
	return providerErrorCode(err) == providerCodeUserRejected
}

func isUnrecognizedChain(err error) bool {
	return providerErrorCode(err) == providerCodeUnrecognizedChain
}

// RPCProvider implements Provider over a wallet-enabled JSON-RPC endpoint.
// When a local signing key is configured, account listing and transaction
// signing happen locally and only the raw transaction goes to the endpoint;
// otherwise both are delegated to the wallet behind the endpoint.
//
// Change notifications are derived by polling eth_accounts and eth_chainId
// and diffing against the previously observed values.
type RPCProvider struct {
	rpc *rpc.Client
	eth *ethclient.Client
	key *ecdsa.PrivateKey

	events chan Event
	stop   chan struct{}
	wg     sync.WaitGroup

	mu           sync.Mutex
	closed       bool
	lastAccounts []common.Address
	lastChain    *big.Int
}

// Dial connects to the wallet provider endpoint. privKeyHex may be empty.
func Dial(ctx context.Context, endpoint, privKeyHex string, pollInterval time.Duration) (*RPCProvider, error) {
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, wrapError(CodeProviderMissing,
			"wallet provider is not reachable at "+endpoint, err)
	}

	p := &RPCProvider{
		rpc:    client,
		eth:    ethclient.NewClient(client),
		events: make(chan Event, 16),
		stop:   make(chan struct{}),
	}
	if privKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privKeyHex, "0x"))
		if err != nil {
			client.Close()
			return nil, wrapError(CodeProviderMissing, "invalid signing key", err)
		}
		p.key = key
	}

	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	p.wg.Add(1)
	go p.poll(pollInterval)
	return p, nil
}

func (p *RPCProvider) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if p.key != nil {
		return []common.Address{crypto.PubkeyToAddress(p.key.PublicKey)}, nil
	}
	var accounts []common.Address
	if err := p.rpc.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *RPCProvider) Accounts(ctx context.Context) ([]common.Address, error) {
	if p.key != nil {
		return []common.Address{crypto.PubkeyToAddress(p.key.PublicKey)}, nil
	}
	var accounts []common.Address
	if err := p.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (p *RPCProvider) ChainID(ctx context.Context) (*big.Int, error) {
	return p.eth.ChainID(ctx)
}

func (p *RPCProvider) SwitchChain(ctx context.Context, chainID *big.Int) error {
	params := map[string]string{"chainId": hexutil.EncodeBig(chainID)}
	return p.rpc.CallContext(ctx, nil, "wallet_switchEthereumChain", params)
}

func (p *RPCProvider) AddChain(ctx context.Context, def ChainDefinition) error {
	return p.rpc.CallContext(ctx, nil, "wallet_addEthereumChain", def)
}

func (p *RPCProvider) BalanceAt(ctx context.Context, addr common.Address) (*big.Int, error) {
	return p.eth.BalanceAt(ctx, addr, nil)
}

func (p *RPCProvider) SendValue(ctx context.Context, from, to common.Address, wei *big.Int) (common.Hash, error) {
	if p.key == nil {
		// Delegate signing to the wallet behind the endpoint.
		params := map[string]interface{}{
			"from":  from,
			"to":    to,
			"value": (*hexutil.Big)(wei),
		}
		var hash common.Hash
		if err := p.rpc.CallContext(ctx, &hash, "eth_sendTransaction", params); err != nil {
			return common.Hash{}, err
		}
		return hash, nil
	}

	nonce, err := p.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, err
	}
	gasPrice, err := p.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	chainID, err := p.eth.ChainID(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    wei,
		Gas:      21000, // plain value transfer
		GasPrice: gasPrice,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), p.key)
	if err != nil {
		return common.Hash{}, err
	}
	if err := p.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	return signed.Hash(), nil
}

func (p *RPCProvider) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return p.eth.TransactionReceipt(ctx, txHash)
}

func (p *RPCProvider) Events() <-chan Event { return p.events }

func (p *RPCProvider) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.stop)
	p.wg.Wait()
	close(p.events)
	p.rpc.Close()
}

func (p *RPCProvider) poll(interval time.Duration) {
	defer p.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

func (p *RPCProvider) pollOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accounts, err := p.Accounts(ctx)
	if err == nil {
		p.mu.Lock()
		changed := !sameAccounts(p.lastAccounts, accounts)
		p.lastAccounts = accounts
		p.mu.Unlock()
		if changed {
			p.emit(Event{Kind: AccountsChanged, Accounts: accounts})
		}
	}

	chainID, err := p.ChainID(ctx)
	if err == nil {
		p.mu.Lock()
		changed := p.lastChain == nil || p.lastChain.Cmp(chainID) != 0
		p.lastChain = chainID
		p.mu.Unlock()
		if changed {
			p.emit(Event{Kind: ChainChanged, ChainID: chainID})
		}
	}
}

func (p *RPCProvider) emit(ev Event) {
	select {
	case p.events <- ev:
	case <-p.stop:
	}
}

func sameAccounts(a, b []common.Address) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
