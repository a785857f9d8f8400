package models

import (
	"github.com/riyajainn01/CodeMarketPlace/pkg/ethwallet"
	"github.com/riyajainn01/CodeMarketPlace/pkg/listings"
)

type ConnectResponse struct {
	Token   string            `json:"token"`
	Session ethwallet.Session `json:"session"`
}

type CreateListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Price       string `json:"price"`
	Language    string `json:"language"`
}

type PurchaseResponse struct {
	Status  string           `json:"status"`
	TxHash  string           `json:"tx_hash,omitempty"`
	Listing listings.Listing `json:"listing"`
}

type StatsResponse struct {
	Total        int    `json:"total"`
	Active       int    `json:"active"`
	Sold         int    `json:"sold"`
	AveragePrice string `json:"average_price"`
}
