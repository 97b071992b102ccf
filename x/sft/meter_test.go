package sft

import (
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x/cash"
)

func TestMeteredStoreDelta(t *testing.T) {
	db := store.MemStore()
	m := newMeteredStore(db)

	// A fresh key accounts for key and value bytes.
	assert.Nil(t, m.Set([]byte("abcd"), []byte("123456")))
	bytes, anomaly := m.BytesAdded()
	assert.Equal(t, uint64(10), bytes)
	assert.Equal(t, false, anomaly)

	// Overwriting accounts only for the value growth.
	assert.Nil(t, m.Set([]byte("abcd"), []byte("12345678")))
	bytes, _ = m.BytesAdded()
	assert.Equal(t, uint64(12), bytes)

	// Shrinking gives bytes back.
	assert.Nil(t, m.Set([]byte("abcd"), []byte("12")))
	bytes, _ = m.BytesAdded()
	assert.Equal(t, uint64(6), bytes)

	// Deleting more than was written within this meter reports zero and
	// an anomaly, releases are never paid out.
	assert.Nil(t, db.Set([]byte("other"), []byte("some older entry")))
	m2 := newMeteredStore(db)
	assert.Nil(t, m2.Delete([]byte("other")))
	bytes, anomaly = m2.BytesAdded()
	assert.Equal(t, uint64(0), bytes)
	assert.Equal(t, true, anomaly)

	// Deleting an absent key changes nothing.
	m3 := newMeteredStore(db)
	assert.Nil(t, m3.Delete([]byte("missing")))
	bytes, anomaly = m3.BytesAdded()
	assert.Equal(t, uint64(0), bytes)
	assert.Equal(t, false, anomaly)
}

func TestStorageCost(t *testing.T) {
	free, err := storageCost(coin.Coin{}, 1000)
	assert.Nil(t, err)
	assert.Equal(t, true, free.IsZero())

	free, err = storageCost(coin.NewCoin(0, 2, "IOV"), 0)
	assert.Nil(t, err)
	assert.Equal(t, true, free.IsZero())

	cost, err := storageCost(coin.NewCoin(0, 2, "IOV"), 10)
	assert.Nil(t, err)
	assert.Equal(t, coin.NewCoin(0, 20, "IOV"), cost)
}

func TestWorthRefunding(t *testing.T) {
	dust := coin.NewCoin(0, 5, "IOV")

	cases := map[string]struct {
		refund coin.Coin
		dust   coin.Coin
		want   bool
	}{
		"zero refund":            {coin.Coin{}, dust, false},
		"refund below dust":      {coin.NewCoin(0, 3, "IOV"), dust, false},
		"refund at dust":         {coin.NewCoin(0, 5, "IOV"), dust, false},
		"refund above dust":      {coin.NewCoin(0, 6, "IOV"), dust, true},
		"no dust threshold":      {coin.NewCoin(0, 1, "IOV"), coin.Coin{}, true},
		"dust in other currency": {coin.NewCoin(0, 1, "IOV"), coin.NewCoin(0, 5, "BTC"), true},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, worthRefunding(tc.refund, tc.dust))
		})
	}
}

func TestRequireGuard(t *testing.T) {
	guarded := Configuration{TransferGuard: coin.NewCoin(0, 1, "IOV")}
	open := Configuration{}

	assert.Nil(t, requireGuard(guarded, coin.NewCoin(0, 1, "IOV")))
	assert.IsErr(t, ErrGuard, requireGuard(guarded, coin.Coin{}))
	assert.IsErr(t, ErrGuard, requireGuard(guarded, coin.NewCoin(0, 2, "IOV")))
	assert.IsErr(t, ErrGuard, requireGuard(guarded, coin.NewCoin(0, 1, "BTC")))

	assert.Nil(t, requireGuard(open, coin.Coin{}))
	assert.IsErr(t, ErrGuard, requireGuard(open, coin.NewCoin(0, 1, "IOV")))
}

func TestSettleDeposit(t *testing.T) {
	payer := weavetest.NewCondition().Address()
	market := MarketCondition().Address()
	conf := Configuration{
		Metadata:      &weave.Metadata{Schema: 1},
		Market:        market,
		StoragePrice:  coin.NewCoin(0, 2, "IOV"),
		DustThreshold: coin.NewCoin(0, 5, "IOV"),
	}

	setup := func(t *testing.T, funds coin.Coin) (weave.KVStore, cash.Controller, cash.Bucket) {
		db := store.MemStore()
		migration.MustInitPkg(db, "cash")
		bank := cash.NewBucket()
		ctrl := cash.NewController(bank)
		wallet, err := cash.WalletWith(payer, &funds)
		assert.Nil(t, err)
		assert.Nil(t, bank.Save(db, wallet))
		return db, ctrl, bank
	}

	balance := func(t *testing.T, db weave.KVStore, bank cash.Bucket, addr weave.Address) coin.Coins {
		acct, err := bank.Get(db, addr)
		assert.Nil(t, err)
		return cash.AsCoins(acct)
	}

	t.Run("cost charged and excess refunded", func(t *testing.T) {
		db, ctrl, bank := setup(t, coin.NewCoin(1, 0, "IOV"))
		// 10 bytes at 2 per byte, 50 attached, 30 refund is over dust.
		cost, err := settleDeposit(db, ctrl, conf, payer, coin.NewCoin(0, 50, "IOV"), 10)
		assert.Nil(t, err)
		assert.Equal(t, coin.NewCoin(0, 20, "IOV"), cost)
		want, err := coin.CombineCoins(coin.NewCoin(0, 999999980, "IOV"))
		assert.Nil(t, err)
		assert.Equal(t, true, balance(t, db, bank, payer).Equals(want))
		marketFunds, err := coin.CombineCoins(coin.NewCoin(0, 20, "IOV"))
		assert.Nil(t, err)
		assert.Equal(t, true, balance(t, db, bank, market).Equals(marketFunds))
	})

	t.Run("dust stays with the market", func(t *testing.T) {
		db, ctrl, bank := setup(t, coin.NewCoin(1, 0, "IOV"))
		// 24 attached, cost 20, the 4 refund is dust.
		_, err := settleDeposit(db, ctrl, conf, payer, coin.NewCoin(0, 24, "IOV"), 10)
		assert.Nil(t, err)
		marketFunds, err := coin.CombineCoins(coin.NewCoin(0, 24, "IOV"))
		assert.Nil(t, err)
		assert.Equal(t, true, balance(t, db, bank, market).Equals(marketFunds))
	})

	t.Run("payment below cost fails", func(t *testing.T) {
		db, ctrl, _ := setup(t, coin.NewCoin(1, 0, "IOV"))
		_, err := settleDeposit(db, ctrl, conf, payer, coin.NewCoin(0, 19, "IOV"), 10)
		assert.IsErr(t, ErrInsufficientDeposit, err)
	})

	t.Run("missing payment fails", func(t *testing.T) {
		db, ctrl, _ := setup(t, coin.NewCoin(1, 0, "IOV"))
		_, err := settleDeposit(db, ctrl, conf, payer, coin.Coin{}, 10)
		assert.IsErr(t, ErrInsufficientDeposit, err)
	})

	t.Run("nothing written, nothing charged", func(t *testing.T) {
		db, ctrl, bank := setup(t, coin.NewCoin(1, 0, "IOV"))
		cost, err := settleDeposit(db, ctrl, conf, payer, coin.Coin{}, 0)
		assert.Nil(t, err)
		assert.Equal(t, true, cost.IsZero())
		want, err := coin.CombineCoins(coin.NewCoin(1, 0, "IOV"))
		assert.Nil(t, err)
		assert.Equal(t, true, balance(t, db, bank, payer).Equals(want))
	})
}
