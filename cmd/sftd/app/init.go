package sftd

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/iov-one/sftd/x/sft"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/commands/server"
	"github.com/iov-one/weave/crypto"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/msgfee"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

// GenInitOptions will produce some basic options for one rich
// account, to use for dev mode
func GenInitOptions(args []string) (json.RawMessage, error) {
	ticker := "IOV"
	if len(args) > 0 {
		ticker = args[0]
		if !coin.IsCC(ticker) {
			return nil, fmt.Errorf("invalid ticker %s", ticker)
		}
	}

	var addr string
	if len(args) > 1 {
		addr = args[1]
	} else {
		// if no address provided, auto-generate one
		// and print out a recovery phrase
		bz, phrase, err := GenerateCoinKey()
		if err != nil {
			return nil, err
		}
		addr = bz.String()
		fmt.Println(phrase)
	}

	type (
		dict  map[string]interface{}
		array []interface{}
	)
	market := sft.MarketCondition().Address()
	return json.Marshal(dict{
		"cash": array{
			dict{
				"address": addr,
				"coins": array{
					dict{
						"whole":  123456789,
						"ticker": ticker,
					},
				},
			},
		},
		"conf": dict{
			"cash": cash.Configuration{
				CollectorAddress: market,
				MinimalFee:       coin.Coin{}, // no fee
			},
			"sft": sft.Configuration{
				Owner:         weave.Address(nil),
				Market:        market,
				StoragePrice:  coin.Coin{},
				DustThreshold: coin.NewCoin(0, 1000, ticker),
				TransferGuard: coin.NewCoin(0, 1, ticker),
			},
			"migration": dict{
				"admin": addr,
			},
		},
		"initialize_schema": []dict{
			{"pkg": "cash", "ver": 1},
			{"pkg": "sigs", "ver": 1},
			{"pkg": "msgfee", "ver": 1},
			{"pkg": "utils", "ver": 1},
			{"pkg": "sft", "ver": 1},
		},
	})
}

// GenerateApp is used to create a stub for server/start.go command
func GenerateApp(options *server.Options) (abci.Application, error) {
	// db goes in a subdir, but "" -> "" for memdb
	var dbPath string
	if options.Home != "" {
		dbPath = filepath.Join(options.Home, "abci.db")
	}

	stack := Stack(options.MinFee)
	application, err := Application("sftd", stack, TxDecoder, dbPath, options.Debug)
	if err != nil {
		return nil, err
	}
	application.WithInit(app.ChainInitializers(
		&migration.Initializer{},
		&cash.Initializer{},
		&msgfee.Initializer{},
		&sft.Initializer{},
	))

	// set the logger and return
	application.WithLogger(options.Logger)
	return application, nil
}

var _ server.AppGenerator = GenerateApp

// InlineApp binds the application to an already opened store, the way the
// retry command needs it.
func InlineApp(kv weave.CommitKVStore, logger log.Logger, debug bool) abci.Application {
	minFee := coin.Coin{}
	stack := Stack(minFee)
	store := app.NewStoreApp("sftd", kv, QueryRouter(minFee), context.Background())
	base := app.NewBaseApp(store, TxDecoder, stack, nil, debug)
	base.WithLogger(logger)
	return base
}

var _ server.InlineAppGenerator = InlineApp

// GenerateCoinKey returns the address of a public key, along with a json
// representation of the keys. You can give coins to this address and
// import the keys in a client to use them.
func GenerateCoinKey() (weave.Address, string, error) {
	privKey := crypto.GenPrivKeyEd25519()
	pubKey := privKey.PublicKey()
	addr := pubKey.Address()

	keys, err := json.MarshalIndent(map[string]interface{}{
		"pub_key": pubKey,
		"secret":  privKey,
	}, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return addr, string(keys), nil
}
