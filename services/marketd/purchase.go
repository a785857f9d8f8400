package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/riyajainn01/CodeMarketPlace/pkg/ethwallet"
	"github.com/riyajainn01/CodeMarketPlace/pkg/listings"
	"github.com/riyajainn01/CodeMarketPlace/services/marketd/models"
)

// Purchase lifecycle states, reported back to the caller.
const (
	StateIdle                       = "idle"
	StateAwaitingWalletConfirmation = "awaiting_wallet_confirmation"
	StateAwaitingBlockConfirmation  = "awaiting_block_confirmation"
	StateSettled                    = "settled"
	StateFailed                     = "failed"
)

// settlementTimeout bounds how long a purchase waits for the transaction to
// be mined before giving up.
const settlementTimeout = 2 * time.Minute

var (
	errNotConnected = errors.New("please connect your wallet first")
	errSelfPurchase = errors.New("you cannot buy your own code")
)

// purchase drives a buy end to end: eligibility checks, wallet-confirmed
// transfer to the seller, settlement wait, then the sold-state mutation.
// The listing is only marked sold after the transfer settles on chain.
func (s *Service) purchase(ctx context.Context, listingID, buyer string) (models.PurchaseResponse, error) {
	resp := models.PurchaseResponse{Status: StateIdle}

	session := s.wallet.Session()
	if !session.IsConnected || session.Address != buyer {
		return resp, errNotConnected
	}

	listing, err := s.store.Get(listingID)
	if err != nil {
		return resp, err
	}
	resp.Listing = listing

	if listing.Sold {
		return resp, listings.ErrAlreadySold
	}
	if listing.Seller == buyer {
		return resp, errSelfPurchase
	}

	resp.Status = StateAwaitingWalletConfirmation
	hash, err := s.wallet.SubmitTransfer(ctx, listing.Seller, listing.Price)
	if err != nil {
		resp.Status = StateFailed
		return resp, err
	}
	resp.TxHash = hash.Hex()
	log.Printf("Purchase submitted: listing %s, tx %s", listing.ID, hash.Hex())

	resp.Status = StateAwaitingBlockConfirmation
	waitCtx, cancel := context.WithTimeout(ctx, settlementTimeout)
	defer cancel()
	if _, err := s.wallet.AwaitSettlement(waitCtx, hash); err != nil {
		resp.Status = StateFailed
		return resp, err
	}

	sold, err := s.store.MarkSold(listing.ID, buyer)
	if err != nil {
		// The transfer already settled; surface the store failure but keep
		// the hash so the caller can reconcile manually.
		resp.Status = StateFailed
		return resp, err
	}
	resp.Listing = sold

	s.wallet.RefreshBalance(ctx)
	resp.Status = StateSettled
	log.Printf("Purchase settled: listing %s sold to %s", sold.ID, buyer)
	return resp, nil
}

// statusOf maps a purchase error onto an HTTP status and stable code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, listings.ErrNotFound):
		return http.StatusNotFound, "NotFound"
	case errors.Is(err, listings.ErrAlreadySold):
		return http.StatusConflict, string(ethwallet.CodeValidation)
	case errors.Is(err, errSelfPurchase), errors.Is(err, errNotConnected):
		return http.StatusBadRequest, string(ethwallet.CodeValidation)
	}

	switch code := ethwallet.CodeOf(err); code {
	case ethwallet.CodeWrongNetwork, ethwallet.CodeValidation,
		ethwallet.CodeUserRejected, ethwallet.CodeTransactionRejected:
		return http.StatusBadRequest, string(code)
	case ethwallet.CodeNoAccounts, ethwallet.CodeNetworkSwitchFailed:
		return http.StatusConflict, string(code)
	case ethwallet.CodeProviderMissing:
		return http.StatusServiceUnavailable, string(code)
	case ethwallet.CodeTransactionFailed, ethwallet.CodeQueryError:
		return http.StatusBadGateway, string(code)
	}
	return http.StatusInternalServerError, "InternalError"
}
