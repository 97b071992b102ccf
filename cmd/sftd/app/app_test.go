package sftd

import (
	"testing"
	"time"

	"github.com/iov-one/sftd/x/sft"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/commands/server"
	"github.com/iov-one/weave/crypto"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x/cash"
	"github.com/iov-one/weave/x/sigs"
	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/libs/log"
)

const testChainID = "test-net-22"

func newTestApp(t *testing.T, genesisAddr weave.Address) app.BaseApp {
	t.Helper()

	abciApp, err := GenerateApp(&server.Options{
		Home:   "",
		Logger: log.NewNopLogger(),
		Debug:  true,
	})
	assert.Nil(t, err)
	myApp := abciApp.(app.BaseApp)

	appState, err := GenInitOptions([]string{"IOV", genesisAddr.String()})
	assert.Nil(t, err)
	myApp.InitChain(abci.RequestInitChain{
		AppStateBytes: appState,
		ChainId:       testChainID,
	})
	return myApp
}

// commitBlock commits at height h and returns the new app hash.
func commitBlock(t *testing.T, myApp app.BaseApp, h int64) []byte {
	t.Helper()

	header := abci.Header{Height: h, ChainID: testChainID, Time: time.Now()}
	myApp.BeginBlock(abci.RequestBeginBlock{Header: header})
	myApp.EndBlock(abci.RequestEndBlock{})
	cres := myApp.Commit()
	if len(cres.Data) == 0 {
		t.Fatal("commit returned an empty hash")
	}
	return cres.Data
}

func deliverTx(t *testing.T, myApp app.BaseApp, h int64, tx *Tx, signer *crypto.PrivateKey, seq int64) abci.ResponseDeliverTx {
	t.Helper()

	sig, err := sigs.SignTx(signer, tx, testChainID, seq)
	assert.Nil(t, err)
	tx.Signatures = []*sigs.StdSignature{sig}
	txBytes, err := tx.Marshal()
	assert.Nil(t, err)

	header := abci.Header{Height: h, ChainID: testChainID, Time: time.Now()}
	myApp.BeginBlock(abci.RequestBeginBlock{Header: header})
	chres := myApp.CheckTx(txBytes)
	if chres.Code != 0 {
		t.Fatalf("check failed: %s", chres.Log)
	}
	dres := myApp.DeliverTx(txBytes)
	if dres.Code != 0 {
		t.Fatalf("deliver failed: %s", dres.Log)
	}
	return dres
}

func queryOne(t *testing.T, myApp app.BaseApp, path string, data []byte, obj weave.Persistent) {
	t.Helper()

	qres := myApp.Query(abci.RequestQuery{Path: path, Data: data})
	if qres.Code != 0 {
		t.Fatalf("query failed: %s", qres.Log)
	}
	if len(qres.Value) == 0 {
		t.Fatalf("query %s returned no value", path)
	}
	assert.Nil(t, app.UnmarshalOneResult(qres.Value, obj))
}

func TestAppTokenLifecycle(t *testing.T) {
	alice := crypto.GenPrivKeyEd25519()
	aliceAddr := alice.PublicKey().Address()
	bob := crypto.GenPrivKeyEd25519()
	bobAddr := bob.PublicKey().Address()

	myApp := newTestApp(t, aliceAddr)
	hash1 := commitBlock(t, myApp, 1)

	guard := coin.NewCoin(0, 1, "IOV")

	// Mint a fresh class, all copies go to alice.
	mint := &Tx{Sum: &Tx_SftMintMsg{&sft.MintMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		TokenId:     "solar-1",
		Amount:      5,
		Destination: aliceAddr,
		Details: &sft.TokenDetails{
			Title:        "Solar Farm Shares",
			Description:  "Fractional ownership of the solar farm",
			Media:        "ipfs://QmSolarFarm/media",
			MediaHash:    []byte("solar-farm-media-hash"),
			PricePerUnit: coin.NewCoin(1, 0, "IOV"),
			CoverPhoto:   "ipfs://QmSolarFarm/cover",
		},
	}}}
	dres := deliverTx(t, myApp, 2, mint, alice, 0)
	assert.Equal(t, []byte("solar-1"), dres.Data)
	hash2 := commitBlock(t, myApp, 2)
	if string(hash1) == string(hash2) {
		t.Fatal("app hash must change after a mint")
	}

	var info sft.TokenInfo
	queryOne(t, myApp, "/sft/tokens", []byte("solar-1"), &info)
	assert.Equal(t, "Solar Farm Shares", info.Title)
	assert.Equal(t, aliceAddr, info.Creator)

	// Transfer two copies to bob, guard payment attached.
	transfer := &Tx{Sum: &Tx_SftTransferMsg{&sft.TransferMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		Source:      aliceAddr,
		Destination: bobAddr,
		TokenId:     "solar-1",
		Amount:      2,
		Memo:        "welcome aboard",
		Payment:     guard,
	}}}
	deliverTx(t, myApp, 3, transfer, alice, 1)
	commitBlock(t, myApp, 3)

	var balance sft.Balance
	queryOne(t, myApp, "/sft/inventory", bobAddr, &balance)
	assert.Equal(t, uint64(2), balance.Copies)

	// List one copy on the marketplace and let bob buy it.
	approve := &Tx{Sum: &Tx_SftApproveMsg{&sft.ApproveMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Source:   aliceAddr,
		Spender:  sft.MarketCondition().Address(),
		TokenId:  "solar-1",
		Amount:   1,
	}}}
	deliverTx(t, myApp, 4, approve, alice, 2)
	commitBlock(t, myApp, 4)

	// Bob needs cash first.
	send := &Tx{Sum: &Tx_CashSendMsg{&cash.SendMsg{
		Metadata:    &weave.Metadata{Schema: 1},
		Source:      aliceAddr,
		Destination: bobAddr,
		Amount:      &coin.Coin{Whole: 10, Ticker: "IOV"},
		Memo:        "seed money",
	}}}
	deliverTx(t, myApp, 5, send, alice, 3)
	commitBlock(t, myApp, 5)

	buy := &Tx{Sum: &Tx_SftMarketBuyMsg{&sft.MarketBuyMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Source:   bobAddr,
		Seller:   aliceAddr,
		TokenId:  "solar-1",
		Payment:  coin.NewCoin(1, 0, "IOV"),
	}}}
	deliverTx(t, myApp, 6, buy, bob, 0)
	commitBlock(t, myApp, 6)

	var after sft.Balance
	queryOne(t, myApp, "/sft/inventory", bobAddr, &after)
	assert.Equal(t, uint64(3), after.Copies)
}
