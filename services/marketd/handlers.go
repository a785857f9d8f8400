package main

import (
	"encoding/json"
	"errors"
	"log"
	"math/big"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"

	"github.com/riyajainn01/CodeMarketPlace/pkg/common"
	"github.com/riyajainn01/CodeMarketPlace/pkg/common/api"
	"github.com/riyajainn01/CodeMarketPlace/pkg/ethwallet"
	"github.com/riyajainn01/CodeMarketPlace/pkg/listings"
	"github.com/riyajainn01/CodeMarketPlace/services/marketd/models"
)

type Service struct {
	wallet    *ethwallet.Connector
	store     *listings.Store
	jwtSecret []byte
}

// ConnectHandler authorizes the wallet, steers it onto the required network,
// and issues a session token bound to the connected address.
func (s *Service) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	session, err := s.wallet.Connect(r.Context())
	if err != nil {
		status, code := statusOf(err)
		api.WriteError(w, status, code, ethwallet.MessageOf(err))
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": session.Address,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		log.Printf("Failed to sign session token: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "InternalError", "failed to issue session token")
		return
	}

	api.WriteSuccess(w, http.StatusOK, models.ConnectResponse{Token: signed, Session: session})
}

func (s *Service) DisconnectHandler(w http.ResponseWriter, r *http.Request) {
	s.wallet.Disconnect()
	api.WriteSuccess(w, http.StatusOK, s.wallet.Session())
}

// SessionHandler returns the current session snapshot, including the
// wrong-network message when the wallet sits on another chain.
func (s *Service) SessionHandler(w http.ResponseWriter, r *http.Request) {
	api.WriteSuccess(w, http.StatusOK, s.wallet.Session())
}

func (s *Service) BalanceHandler(w http.ResponseWriter, r *http.Request) {
	s.wallet.RefreshBalance(r.Context())
	session := s.wallet.Session()
	api.WriteSuccess(w, http.StatusOK, map[string]string{
		"address": session.Address,
		"balance": session.Balance,
	})
}

func (s *Service) ListingsHandler(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.Load()
	if err != nil {
		log.Printf("Failed to load listings: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "InternalError", "failed to load listings")
		return
	}
	api.WriteSuccess(w, http.StatusOK, all)
}

func (s *Service) GetListingHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	listing, err := s.store.Get(id)
	if err != nil {
		if errors.Is(err, listings.ErrNotFound) {
			api.WriteError(w, http.StatusNotFound, "NotFound", "listing not found")
			return
		}
		log.Printf("Failed to load listing %s: %v", id, err)
		api.WriteError(w, http.StatusInternalServerError, "InternalError", "failed to load listing")
		return
	}
	api.WriteSuccess(w, http.StatusOK, listing)
}

// CreateListingHandler appends a new listing with the token-bound address as
// the seller.
func (s *Service) CreateListingHandler(w http.ResponseWriter, r *http.Request) {
	seller, ok := common.AddressFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "Unauthorized", "session token required")
		return
	}

	var req models.CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, string(ethwallet.CodeValidation), "invalid request body")
		return
	}

	created, err := s.store.Append(listings.Listing{
		Title:       req.Title,
		Description: req.Description,
		Code:        req.Code,
		Price:       req.Price,
		Language:    req.Language,
		Seller:      seller,
	})
	if err != nil {
		var verr *listings.ValidationError
		if errors.As(err, &verr) {
			api.WriteError(w, http.StatusBadRequest, string(ethwallet.CodeValidation), verr.Message)
			return
		}
		log.Printf("Failed to persist listing: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "InternalError", "failed to save listing")
		return
	}

	log.Printf("Listing created: %s (%s ETH) by %s", created.Title, created.Price, seller)
	api.WriteSuccess(w, http.StatusCreated, created)
}

// PurchaseHandler buys the listing for the token-bound address.
func (s *Service) PurchaseHandler(w http.ResponseWriter, r *http.Request) {
	buyer, ok := common.AddressFromContext(r.Context())
	if !ok {
		api.WriteError(w, http.StatusUnauthorized, "Unauthorized", "session token required")
		return
	}

	id := mux.Vars(r)["id"]
	resp, err := s.purchase(r.Context(), id, buyer)
	if err != nil {
		status, code := statusOf(err)
		api.WriteError(w, status, code, ethwallet.MessageOf(err))
		return
	}
	api.WriteSuccess(w, http.StatusOK, resp)
}

// StatsHandler summarizes the collection for the storefront header.
func (s *Service) StatsHandler(w http.ResponseWriter, r *http.Request) {
	all, err := s.store.Load()
	if err != nil {
		log.Printf("Failed to load listings: %v", err)
		api.WriteError(w, http.StatusInternalServerError, "InternalError", "failed to load listings")
		return
	}

	stats := models.StatsResponse{Total: len(all)}
	sum := new(big.Int)
	priced := 0
	for _, l := range all {
		if l.Sold {
			stats.Sold++
		} else {
			stats.Active++
		}
		if wei, err := ethwallet.ParseEther(l.Price); err == nil {
			sum.Add(sum, wei)
			priced++
		}
	}
	if priced > 0 {
		stats.AveragePrice = ethwallet.FormatEther(sum.Div(sum, big.NewInt(int64(priced))))
	}
	api.WriteSuccess(w, http.StatusOK, stats)
}

func (s *Service) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/wallet/connect", s.ConnectHandler).Methods("POST")
	r.HandleFunc("/wallet/session", s.SessionHandler).Methods("GET")
	r.HandleFunc("/wallet/balance", s.BalanceHandler).Methods("GET")
	r.HandleFunc("/wallet/disconnect", common.SessionMiddleware(s.jwtSecret, s.DisconnectHandler)).Methods("POST")
	r.HandleFunc("/listings", s.ListingsHandler).Methods("GET")
	r.HandleFunc("/listings", common.SessionMiddleware(s.jwtSecret, s.CreateListingHandler)).Methods("POST")
	r.HandleFunc("/listings/stats", s.StatsHandler).Methods("GET")
	r.HandleFunc("/listings/{id}", s.GetListingHandler).Methods("GET")
	r.HandleFunc("/listings/{id}/purchase", common.SessionMiddleware(s.jwtSecret, s.PurchaseHandler)).Methods("POST")
	return r
}
