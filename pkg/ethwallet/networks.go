package ethwallet

import (
	"fmt"
	"math/big"
)

// ChainDefinition is the wallet_addEthereumChain payload. The field layout is
// part of the provider contract and is sent verbatim when the wallet does not
// recognize the required chain.
type ChainDefinition struct {
	ChainID           string         `json:"chainId"` // hex, 0x-prefixed
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// Network identifies the chain all wallet operations are required to run on.
type Network struct {
	ChainID    *big.Int
	Definition ChainDefinition
}

func (n Network) Name() string { return n.Definition.ChainName }

// Sepolia is the default required test network.
var Sepolia = Network{
	ChainID: big.NewInt(11155111),
	Definition: ChainDefinition{
		ChainID:   "0xaa36a7",
		ChainName: "Sepolia Test Network",
		NativeCurrency: NativeCurrency{
			Name:     "Sepolia ETH",
			Symbol:   "ETH",
			Decimals: 18,
		},
		RPCURLs:           []string{"https://sepolia.infura.io/v3/"},
		BlockExplorerURLs: []string{"https://sepolia.etherscan.io"},
	},
}

var networkNames = map[int64]string{
	1:        "mainnet",
	5:        "goerli",
	10:       "optimism",
	56:       "bnb",
	137:      "polygon",
	1337:     "localhost",
	17000:    "holesky",
	31337:    "hardhat",
	42161:    "arbitrum",
	11155111: "sepolia",
}

// NetworkName resolves a human name for a chain id, falling back to
// "Unknown (<id>)".
func NetworkName(id *big.Int) string {
	if id != nil && id.IsInt64() {
		if name, ok := networkNames[id.Int64()]; ok {
			return name
		}
	}
	return fmt.Sprintf("Unknown (%v)", id)
}

// NetworkForID returns the full descriptor for known networks, or a minimal
// one carrying just the chain id and resolved name.
func NetworkForID(id int64) Network {
	if Sepolia.ChainID.Int64() == id {
		return Sepolia
	}
	chainID := big.NewInt(id)
	return Network{
		ChainID: chainID,
		Definition: ChainDefinition{
			ChainID:        fmt.Sprintf("0x%x", id),
			ChainName:      NetworkName(chainID),
			NativeCurrency: NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		},
	}
}

// Guard validates the provider's active chain against the required network.
// It must be consulted at the moment of every wallet-dependent action, not
// only at connect, because the chain can change underneath at any time.
type Guard struct {
	network Network
}

func NewGuard(network Network) Guard {
	return Guard{network: network}
}

func (g Guard) Network() Network { return g.network }

// Check returns nil when observed matches the required chain, else a
// WrongNetwork error naming the observed network.
func (g Guard) Check(observed *big.Int) error {
	if observed != nil && observed.Cmp(g.network.ChainID) == 0 {
		return nil
	}
	return newError(CodeWrongNetwork, fmt.Sprintf(
		"please switch to %s in your wallet. Current network: %s",
		g.network.Name(), NetworkName(observed)))
}
