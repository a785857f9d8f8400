package ethwallet

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// Session is the wallet session snapshot read by the rest of the application.
// IsConnected implies Address and ChainID are set and ChainID equals the
// required network's id.
type Session struct {
	Address     string `json:"address,omitempty"`
	IsConnected bool   `json:"is_connected"`
	ChainID     string `json:"chain_id,omitempty"` // hex, 0x-prefixed
	Balance     string `json:"balance,omitempty"`  // decimal ether string
	NetworkName string `json:"network_name,omitempty"`
	Error       string `json:"error,omitempty"` // wrong-network or connect failure message
}

// Connector owns the wallet session. It wraps the provider, enforces the
// network guard, and exposes connect/disconnect, balance, and transfer
// submission to the rest of the application.
type Connector struct {
	provider Provider
	guard    Guard

	mu      sync.RWMutex
	session Session
}

func NewConnector(provider Provider, network Network) *Connector {
	return &Connector{provider: provider, guard: NewGuard(network)}
}

// Session returns a copy of the current session snapshot.
func (c *Connector) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// Connect requests account authorization, steers the wallet onto the
// required network (adding the chain definition first if the wallet does not
// recognize it), and populates the session.
func (c *Connector) Connect(ctx context.Context) (Session, error) {
	accounts, err := c.provider.RequestAccounts(ctx)
	if err != nil {
		if isUserRejected(err) {
			return c.failConnect(wrapError(CodeUserRejected, "wallet connection request was rejected", err))
		}
		return c.failConnect(wrapError(CodeQueryError, "failed to request wallet accounts", err))
	}
	if len(accounts) == 0 {
		return c.failConnect(newError(CodeNoAccounts, "no accounts found. Please create an account in your wallet"))
	}

	chainID, err := c.provider.ChainID(ctx)
	if err != nil {
		return c.failConnect(wrapError(CodeQueryError, "failed to read active chain", err))
	}
	if c.guard.Check(chainID) != nil {
		if err := c.ensureRequiredChain(ctx); err != nil {
			return c.failConnect(err)
		}
		// Re-verify: the wallet may have silently refused the switch.
		chainID, err = c.provider.ChainID(ctx)
		if err != nil {
			return c.failConnect(wrapError(CodeQueryError, "failed to read active chain", err))
		}
		if c.guard.Check(chainID) != nil {
			return c.failConnect(newError(CodeNetworkSwitchFailed,
				"network switch failed. Please manually switch to "+c.guard.Network().Name()+" in your wallet"))
		}
	}

	address := accounts[0]
	session := Session{
		Address:     strings.ToLower(address.Hex()),
		IsConnected: true,
		ChainID:     hexutil.EncodeBig(chainID),
		NetworkName: c.guard.Network().Name(),
	}
	session.Balance = c.fetchBalance(ctx, address)

	c.setSession(session)
	log.Printf("Wallet connected: %s on %s", shortAddress(session.Address), session.NetworkName)
	return session, nil
}

// ensureRequiredChain runs the switch -> add -> switch dance against the
// wallet. Any failure collapses into NetworkSwitchFailed.
func (c *Connector) ensureRequiredChain(ctx context.Context) *Error {
	network := c.guard.Network()
	err := c.provider.SwitchChain(ctx, network.ChainID)
	if err == nil {
		return nil
	}
	if !isUnrecognizedChain(err) {
		return wrapError(CodeNetworkSwitchFailed,
			"failed to switch to "+network.Name()+". Please switch manually in your wallet", err)
	}
	if err := c.provider.AddChain(ctx, network.Definition); err != nil {
		return wrapError(CodeNetworkSwitchFailed,
			"failed to add "+network.Name()+" to your wallet. Please add it manually", err)
	}
	if err := c.provider.SwitchChain(ctx, network.ChainID); err != nil {
		return wrapError(CodeNetworkSwitchFailed,
			"failed to switch to "+network.Name()+". Please switch manually in your wallet", err)
	}
	return nil
}

// Resume adopts an already-authorized account without prompting, reproducing
// the page-load behavior. Errors are swallowed: an unauthorized or
// unreachable wallet simply leaves the session disconnected.
func (c *Connector) Resume(ctx context.Context) {
	accounts, err := c.provider.Accounts(ctx)
	if err != nil || len(accounts) == 0 {
		return
	}
	chainID, err := c.provider.ChainID(ctx)
	if err != nil {
		log.Printf("Error checking existing connection: %v", err)
		return
	}
	if gerr := c.guard.Check(chainID); gerr != nil {
		c.setSession(Session{
			NetworkName: NetworkName(chainID),
			Error:       MessageOf(gerr),
		})
		return
	}

	address := accounts[0]
	session := Session{
		Address:     strings.ToLower(address.Hex()),
		IsConnected: true,
		ChainID:     hexutil.EncodeBig(chainID),
		NetworkName: c.guard.Network().Name(),
	}
	session.Balance = c.fetchBalance(ctx, address)
	c.setSession(session)
	log.Printf("Wallet session resumed: %s", shortAddress(session.Address))
}

// Disconnect clears the local session. Injected-wallet protocols have no
// provider-level revocation, so this always succeeds.
func (c *Connector) Disconnect() {
	c.setSession(Session{})
}

// RefreshBalance re-reads the active account's balance. Failures are logged
// and ignored: balance display is best-effort and never alters connection
// state.
func (c *Connector) RefreshBalance(ctx context.Context) {
	c.mu.RLock()
	address := c.session.Address
	c.mu.RUnlock()
	if address == "" {
		return
	}

	wei, err := c.provider.BalanceAt(ctx, common.HexToAddress(address))
	if err != nil {
		log.Printf("Error updating balance for %s: %v", shortAddress(address), err)
		return
	}
	balance := FormatEther(wei)

	c.mu.Lock()
	// The session may have moved to another account while the query was in
	// flight; only apply the result if it still targets the same address.
	if c.session.Address == address {
		c.session.Balance = balance
	}
	c.mu.Unlock()
}

// SubmitTransfer re-verifies the active chain at submission time, then
// submits a transfer of the given decimal ether amount to the recipient.
func (c *Connector) SubmitTransfer(ctx context.Context, to, amount string) (common.Hash, error) {
	wei, err := ParseEther(amount)
	if err != nil {
		return common.Hash{}, err
	}

	chainID, err := c.provider.ChainID(ctx)
	if err != nil {
		return common.Hash{}, wrapError(CodeQueryError, "failed to read active chain", err)
	}
	if gerr := c.guard.Check(chainID); gerr != nil {
		return common.Hash{}, gerr
	}

	c.mu.RLock()
	from := c.session.Address
	c.mu.RUnlock()

	hash, err := c.provider.SendValue(ctx, common.HexToAddress(from), common.HexToAddress(to), wei)
	if err != nil {
		if isUserRejected(err) {
			return common.Hash{}, wrapError(CodeTransactionRejected, "transaction was rejected in the wallet", err)
		}
		return common.Hash{}, wrapError(CodeTransactionFailed, "transaction failed", err)
	}
	return hash, nil
}

// AwaitSettlement blocks until the transaction is mined and returns its
// receipt. A reverted transaction yields TransactionFailed.
func (c *Connector) AwaitSettlement(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		receipt, err := c.provider.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusFailed {
				return nil, newError(CodeTransactionFailed, "transaction reverted on chain")
			}
			return receipt, nil
		}
		if err != nil && err != ethereum.NotFound {
			return nil, wrapError(CodeQueryError, "failed to query transaction receipt", err)
		}
		select {
		case <-ctx.Done():
			return nil, wrapError(CodeTransactionFailed, "gave up waiting for confirmation", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Connector) fetchBalance(ctx context.Context, address common.Address) string {
	wei, err := c.provider.BalanceAt(ctx, address)
	if err != nil {
		log.Printf("Error updating balance for %s: %v", shortAddress(address.Hex()), err)
		return ""
	}
	return FormatEther(wei)
}

func (c *Connector) setSession(session Session) {
	c.mu.Lock()
	c.session = session
	c.mu.Unlock()
}

func (c *Connector) failConnect(err *Error) (Session, error) {
	c.mu.Lock()
	c.session = Session{Error: err.Message}
	c.mu.Unlock()
	return Session{Error: err.Message}, err
}

// shortAddress renders 0x1234...5678 for log lines and messages.
func shortAddress(address string) string {
	if len(address) <= 10 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
