// Package chain exposes the wallet balance of an EVM node as a balance
// source for the query facade.
package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

var weiPerEth = new(big.Float).SetFloat64(1e18)

type Client struct {
	eth    *ethclient.Client
	wallet common.Address
}

func Dial(ctx context.Context, rpcURL, walletAddr string) (*Client, error) {
	if !common.IsHexAddress(walletAddr) {
		return nil, fmt.Errorf("bad wallet address %q", walletAddr)
	}
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial eth rpc: %w", err)
	}
	return &Client{eth: eth, wallet: common.HexToAddress(walletAddr)}, nil
}

// Balances returns the wallet's ETH balance at the latest block,
// converted from wei.
func (c *Client) Balances(ctx context.Context) (map[string]float64, error) {
	wei, err := c.eth.BalanceAt(ctx, c.wallet, nil)
	if err != nil {
		return nil, fmt.Errorf("balance at: %w", err)
	}
	eth, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEth).Float64()
	return map[string]float64{"ETH": eth}, nil
}

func (c *Client) Close() { c.eth.Close() }
