package ethwallet

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	buyerAddr  = common.HexToAddress("0x1111111111111111111111111111111111111111")
	sellerAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")

	mainnetID = big.NewInt(1)
	oneEther  = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func TestConnectOnRequiredNetwork(t *testing.T) {
	provider := NewFakeProvider(Sepolia.ChainID, buyerAddr)
	provider.SetBalance(buyerAddr, oneEther)
	c := NewConnector(provider, Sepolia)

	session, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, session.IsConnected)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", session.Address)
	assert.Equal(t, "0xaa36a7", session.ChainID)
	assert.Equal(t, "Sepolia Test Network", session.NetworkName)
	assert.Equal(t, "1", session.Balance)
}

func TestConnectSwitchesToRequiredNetwork(t *testing.T) {
	provider := NewFakeProvider(mainnetID, buyerAddr)
	provider.Recognize(Sepolia.ChainID)
	c := NewConnector(provider, Sepolia)

	session, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, session.IsConnected)

	chainID, _ := provider.ChainID(context.Background())
	assert.Zero(t, chainID.Cmp(Sepolia.ChainID))
}

func TestConnectAddsUnrecognizedChain(t *testing.T) {
	// Wallet only knows mainnet: the connect flow must add the chain
	// definition verbatim, then switch.
	provider := NewFakeProvider(mainnetID, buyerAddr)
	c := NewConnector(provider, Sepolia)

	session, err := c.Connect(context.Background())
	require.NoError(t, err)
	assert.True(t, session.IsConnected)

	added := provider.AddedChains()
	require.Len(t, added, 1)
	assert.Equal(t, Sepolia.Definition, added[0])
}

func TestConnectFailsWhenSwitchRefused(t *testing.T) {
	provider := NewFakeProvider(mainnetID, buyerAddr)
	provider.Recognize(Sepolia.ChainID)
	provider.RefuseSwitch = true
	c := NewConnector(provider, Sepolia)

	_, err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeNetworkSwitchFailed, CodeOf(err))
	assert.False(t, c.Session().IsConnected)
	assert.NotEmpty(t, c.Session().Error)
}

func TestConnectUserRejected(t *testing.T) {
	provider := NewFakeProvider(Sepolia.ChainID, buyerAddr)
	provider.RejectConnect = true
	c := NewConnector(provider, Sepolia)

	_, err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeUserRejected, CodeOf(err))
}

func TestConnectNoAccounts(t *testing.T) {
	provider := NewFakeProvider(Sepolia.ChainID)
	c := NewConnector(provider, Sepolia)

	_, err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeNoAccounts, CodeOf(err))
}

func TestDisconnectClearsSession(t *testing.T) {
	provider := NewFakeProvider(Sepolia.ChainID, buyerAddr)
	c := NewConnector(provider, Sepolia)

	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	c.Disconnect()
	session := c.Session()
	assert.False(t, session.IsConnected)
	assert.Empty(t, session.Address)
	assert.Empty(t, session.Balance)
	assert.Empty(t, session.NetworkName)
}

func TestResumeAdoptsAuthorizedAccount(t *testing.T) {
	provider := NewFakeProvider(Sepolia.ChainID, buyerAddr)
	provider.SetBalance(buyerAddr, oneEther)
	c := NewConnector(provider, Sepolia)

	c.Resume(context.Background())
	session := c.Session()
	assert.True(t, session.IsConnected)
	assert.Equal(t, "1", session.Balance)
}

func TestResumeOnWrongNetworkStaysDisconnected(t *testing.T) {
	provider := NewFakeProvider(mainnetID, buyerAddr)
	c := NewConnector(provider, Sepolia)

	c.Resume(context.Background())
	session := c.Session()
	assert.False(t, session.IsConnected)
	assert.Equal(t, "mainnet", session.NetworkName)
	assert.Contains(t, session.Error, "Sepolia Test Network")
}

func TestSubmitTransferReVerifiesChain(t *testing.T) {
	provider := NewFakeProvider(Sepolia.ChainID, buyerAddr)
	c := NewConnector(provider, Sepolia)
	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	// Chain drifts away after connect; submission must re-check and refuse.
	provider.SetChain(mainnetID)

	_, err = c.SubmitTransfer(context.Background(), sellerAddr.Hex(), "0.05")
	require.Error(t, err)
	assert.Equal(t, CodeWrongNetwork, CodeOf(err))
	assert.Empty(t, provider.Sent(), "no transaction may be submitted on the wrong chain")
}

func TestSubmitTransferAndSettle(t *testing.T) {
	provider := NewFakeProvider(Sepolia.ChainID, buyerAddr)
	provider.SetBalance(buyerAddr, oneEther)
	c := NewConnector(provider, Sepolia)
	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	hash, err := c.SubmitTransfer(context.Background(), sellerAddr.Hex(), "0.05")
	require.NoError(t, err)

	receipt, err := c.AwaitSettlement(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, hash, receipt.TxHash)

	sent := provider.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, sellerAddr, sent[0].To)
	assert.Equal(t, "50000000000000000", sent[0].Value.String())
}

func TestSubmitTransferRejectedInWallet(t *testing.T) {
	provider := NewFakeProvider(Sepolia.ChainID, buyerAddr)
	provider.RejectTx = true
	c := NewConnector(provider, Sepolia)
	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	_, err = c.SubmitTransfer(context.Background(), sellerAddr.Hex(), "0.05")
	require.Error(t, err)
	assert.Equal(t, CodeTransactionRejected, CodeOf(err))
}

func TestAwaitSettlementRevertedTransaction(t *testing.T) {
	provider := NewFakeProvider(Sepolia.ChainID, buyerAddr)
	provider.RevertTx = true
	c := NewConnector(provider, Sepolia)
	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	hash, err := c.SubmitTransfer(context.Background(), sellerAddr.Hex(), "0.05")
	require.NoError(t, err)

	_, err = c.AwaitSettlement(context.Background(), hash)
	require.Error(t, err)
	assert.Equal(t, CodeTransactionFailed, CodeOf(err))
}

func TestRefreshBalanceBestEffort(t *testing.T) {
	provider := NewFakeProvider(Sepolia.ChainID, buyerAddr)
	c := NewConnector(provider, Sepolia)
	_, err := c.Connect(context.Background())
	require.NoError(t, err)

	provider.SetBalance(buyerAddr, new(big.Int).Div(oneEther, big.NewInt(2)))
	c.RefreshBalance(context.Background())
	assert.Equal(t, "0.5", c.Session().Balance)
}
