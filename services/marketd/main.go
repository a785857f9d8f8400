package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/riyajainn01/CodeMarketPlace/pkg/common"
	"github.com/riyajainn01/CodeMarketPlace/pkg/ethwallet"
	"github.com/riyajainn01/CodeMarketPlace/pkg/kvstore"
	"github.com/riyajainn01/CodeMarketPlace/pkg/listings"
)

func openStore(cfg *common.Config) (kvstore.Store, error) {
	if cfg.StoreBackend == "postgres" {
		database, err := kvstore.Connect(cfg.DB)
		if err != nil {
			return nil, err
		}
		return kvstore.NewPostgresStore(database)
	}
	return kvstore.NewFileStore(cfg.StoreDir), nil
}

func main() {
	cfg := common.LoadConfig()

	kv, err := openStore(cfg)
	if err != nil {
		log.Fatalf("Failed to open listing store: %v", err)
	}

	provider, err := ethwallet.Dial(context.Background(), cfg.RPCEndpoint, cfg.PrivateKey,
		time.Duration(cfg.PollSeconds)*time.Second)
	if err != nil {
		log.Fatalf("Failed to reach wallet provider: %v", err)
	}
	defer provider.Close()

	wallet := ethwallet.NewConnector(provider, ethwallet.NetworkForID(cfg.ChainID))
	wallet.Resume(context.Background())
	stop := wallet.Watch()
	defer stop()

	svc := &Service{
		wallet:    wallet,
		store:     listings.NewStore(kv),
		jwtSecret: []byte(cfg.JWTSecret),
	}

	log.Printf("Marketplace service running on :%s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, common.CORS(svc.routes())))
}
