package ethwallet

import (
	"context"
	"log"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const eventHandleTimeout = 10 * time.Second

// Watch starts the change-notification loop and returns a stop function.
// A single goroutine drains the provider's event channel and handles each
// notification to completion before reading the next, so no two change
// handlers ever interleave. The stop function is idempotent and waits for
// the in-flight handler to finish, so repeated start/stop cycles leak
// nothing.
func (c *Connector) Watch() (stop func()) {
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		events := c.provider.Events()
		for {
			select {
			case <-done:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				c.handleEvent(ev)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

func (c *Connector) handleEvent(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), eventHandleTimeout)
	defer cancel()

	switch ev.Kind {
	case AccountsChanged:
		c.handleAccountsChanged(ctx, ev.Accounts)
	case ChainChanged:
		c.handleChainChanged(ctx, ev.ChainID)
	}
}

// handleAccountsChanged reconciles the session with the wallet's new account
// list: empty means the user revoked access, otherwise the first account
// becomes active and the network guard is re-run before reconnecting.
func (c *Connector) handleAccountsChanged(ctx context.Context, accounts []common.Address) {
	if len(accounts) == 0 {
		log.Printf("Wallet disconnected: no authorized accounts")
		c.setSession(Session{})
		return
	}

	address := strings.ToLower(accounts[0].Hex())

	chainID, err := c.provider.ChainID(ctx)
	if err != nil {
		log.Printf("Error handling account change: %v", err)
		return
	}
	if gerr := c.guard.Check(chainID); gerr != nil {
		c.setSession(Session{
			Address:     address,
			NetworkName: NetworkName(chainID),
			Error:       MessageOf(gerr),
		})
		return
	}

	c.setSession(Session{
		Address:     address,
		IsConnected: true,
		ChainID:     hexutil.EncodeBig(chainID),
		NetworkName: c.guard.Network().Name(),
	})
	c.RefreshBalance(ctx)
	log.Printf("Active account changed: %s", shortAddress(address))
}

// handleChainChanged re-runs the network guard against the new chain. On a
// mismatch the session drops to disconnected with a wrong-network error; on a
// match an already-active account reconnects without any reload.
func (c *Connector) handleChainChanged(ctx context.Context, chainID *big.Int) {
	if gerr := c.guard.Check(chainID); gerr != nil {
		c.mu.Lock()
		c.session.IsConnected = false
		c.session.ChainID = hexutil.EncodeBig(chainID)
		c.session.NetworkName = NetworkName(chainID)
		c.session.Error = MessageOf(gerr)
		c.mu.Unlock()
		log.Printf("Chain changed to %s: wallet operations suspended", NetworkName(chainID))
		return
	}

	c.mu.Lock()
	c.session.ChainID = hexutil.EncodeBig(chainID)
	c.session.NetworkName = c.guard.Network().Name()
	c.session.Error = ""
	hasAccount := c.session.Address != ""
	if hasAccount {
		c.session.IsConnected = true
	}
	c.mu.Unlock()

	if hasAccount {
		c.RefreshBalance(ctx)
		log.Printf("Back on %s: wallet reconnected", c.guard.Network().Name())
	}
}
