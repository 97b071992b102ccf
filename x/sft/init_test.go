package sft

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestGenesis(t *testing.T) {
	owner := weavetest.NewCondition().Address()
	market := MarketCondition().Address()

	genesis := fmt.Sprintf(`
{
	"conf": {
		"sft": {
			"metadata": {"schema": 1},
			"owner": "%s",
			"market": "%s",
			"storage_price": {"fractional": 2, "ticker": "IOV"},
			"dust_threshold": {"fractional": 5, "ticker": "IOV"},
			"transfer_guard": {"fractional": 1, "ticker": "IOV"}
		}
	}
}
`, owner, market)

	var opts weave.Options
	if err := json.Unmarshal([]byte(genesis), &opts); err != nil {
		t.Fatalf("cannot unmarshal genesis: %s", err)
	}

	db := store.MemStore()
	migration.MustInitPkg(db, "sft")
	var ini Initializer
	if err := ini.FromGenesis(opts, weave.GenesisParams{}, db); err != nil {
		t.Fatalf("cannot load genesis: %s", err)
	}

	conf, err := loadConf(db)
	assert.Nil(t, err)
	assert.Equal(t, owner, conf.Owner)
	assert.Equal(t, market, conf.Market)
	assert.Equal(t, coin.NewCoin(0, 2, "IOV"), conf.StoragePrice)
	assert.Equal(t, coin.NewCoin(0, 5, "IOV"), conf.DustThreshold)
	assert.Equal(t, coin.NewCoin(0, 1, "IOV"), conf.TransferGuard)
}

func TestGenesisWithInvalidConfiguration(t *testing.T) {
	// The marketplace account is mandatory.
	genesis := `
{
	"conf": {
		"sft": {
			"metadata": {"schema": 1}
		}
	}
}
`
	var opts weave.Options
	if err := json.Unmarshal([]byte(genesis), &opts); err != nil {
		t.Fatalf("cannot unmarshal genesis: %s", err)
	}

	db := store.MemStore()
	migration.MustInitPkg(db, "sft")
	var ini Initializer
	if err := ini.FromGenesis(opts, weave.GenesisParams{}, db); err == nil {
		t.Fatal("an incomplete configuration must not be accepted")
	}
}
