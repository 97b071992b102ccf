package sft_test

import (
	"context"
	"testing"

	"github.com/iov-one/sftd/x/sft"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/app"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"
)

var guardCoin = coin.NewCoin(0, 1, "IOV")

func defaultConf() sft.Configuration {
	return sft.Configuration{
		Metadata:      &weave.Metadata{Schema: 1},
		Market:        sft.MarketCondition().Address(),
		DustThreshold: coin.NewCoin(0, 5, "IOV"),
		TransferGuard: guardCoin,
	}
}

func TestMintHandler(t *testing.T) {
	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()

	bank := cash.NewBucket()
	ctrl := cash.NewController(bank)
	ledger := sft.NewLedger()

	r := app.NewRouter()
	authenticator := &weavetest.CtxAuth{Key: "auth"}
	auth := x.ChainAuth(authenticator)
	sft.RegisterRoutes(r, auth, ctrl)

	setBalance := func(t *testing.T, db weave.KVStore, addr weave.Address, funds coin.Coin) {
		acct, err := cash.WalletWith(addr, &funds)
		assert.Nil(t, err)
		assert.Nil(t, bank.Save(db, acct))
	}

	cases := map[string]struct {
		conf           sft.Configuration
		setup          func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context
		mutator        func(*sft.MintMsg)
		wantCheckErr   *errors.Error
		wantDeliverErr *errors.Error
		check          func(t *testing.T, db weave.KVStore)
	}{
		"first mint registers the class": {
			conf: defaultConf(),
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				return authenticator.SetConditions(ctx, alice)
			},
			check: func(t *testing.T, db weave.KVStore) {
				info, err := ledger.TokenInfo(db, "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, alice.Address(), info.Creator)
				total, err := ledger.Supply(db, "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, uint64(10), total)
				copies, err := ledger.Balance(db, bob.Address(), "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, uint64(10), copies)
			},
		},
		"mint into an existing class": {
			conf: defaultConf(),
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				assert.Nil(t, ledger.RegisterClass(db, "solar-1", testDetails(), alice.Address()))
				return authenticator.SetConditions(ctx, alice)
			},
			mutator: func(msg *sft.MintMsg) { msg.Details = nil },
			check: func(t *testing.T, db weave.KVStore) {
				total, err := ledger.Supply(db, "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, uint64(10), total)
			},
		},
		"metadata for an existing class is rejected": {
			conf: defaultConf(),
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				assert.Nil(t, ledger.RegisterClass(db, "solar-1", testDetails(), alice.Address()))
				return authenticator.SetConditions(ctx, alice)
			},
			wantDeliverErr: sft.ErrClassExists,
		},
		"mint into a missing class needs metadata": {
			conf: defaultConf(),
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				return authenticator.SetConditions(ctx, alice)
			},
			mutator:        func(msg *sft.MintMsg) { msg.Details = nil },
			wantDeliverErr: errors.ErrNotFound,
		},
		"no signer": {
			conf:           defaultConf(),
			wantCheckErr:   errors.ErrUnauthorized,
			wantDeliverErr: errors.ErrUnauthorized,
		},
		"storage deposit required": {
			conf: func() sft.Configuration {
				c := defaultConf()
				c.StoragePrice = coin.NewCoin(0, 1, "IOV")
				return c
			}(),
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				return authenticator.SetConditions(ctx, alice)
			},
			wantDeliverErr: sft.ErrInsufficientDeposit,
		},
		"excess deposit is refunded": {
			conf: defaultConf(),
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				setBalance(t, db, alice.Address(), coin.NewCoin(1, 0, "IOV"))
				return authenticator.SetConditions(ctx, alice)
			},
			mutator: func(msg *sft.MintMsg) { msg.Payment = coin.NewCoin(0, 50, "IOV") },
			check: func(t *testing.T, db weave.KVStore) {
				// Storage is free in this configuration, the whole
				// attached deposit comes back.
				acct, err := bank.Get(db, alice.Address())
				assert.Nil(t, err)
				want, err := coin.CombineCoins(coin.NewCoin(1, 0, "IOV"))
				assert.Nil(t, err)
				assert.Equal(t, true, cash.AsCoins(acct).Equals(want))
			},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "sft", "cash")
			assert.Nil(t, gconf.Save(db, "sft", &tc.conf))

			ctx := weave.WithHeight(context.Background(), 100)
			if tc.setup != nil {
				ctx = tc.setup(t, ctx, db)
			}

			msg := &sft.MintMsg{
				Metadata:    &weave.Metadata{Schema: 1},
				TokenId:     "solar-1",
				Amount:      10,
				Destination: bob.Address(),
				Details:     testDetails(),
			}
			if tc.mutator != nil {
				tc.mutator(msg)
			}
			tx := &weavetest.Tx{Msg: msg}

			cache := db.CacheWrap()
			if _, err := r.Check(ctx, cache, tx); !tc.wantCheckErr.Is(err) {
				t.Fatalf("check expected: %+v but got %+v", tc.wantCheckErr, err)
			}
			cache.Discard()

			if _, err := r.Deliver(ctx, db, tx); !tc.wantDeliverErr.Is(err) {
				t.Fatalf("deliver expected: %+v but got %+v", tc.wantDeliverErr, err)
			}
			if tc.check != nil {
				tc.check(t, db)
			}
		})
	}
}

func TestTransferHandler(t *testing.T) {
	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()
	pete := weavetest.NewCondition()

	bank := cash.NewBucket()
	ctrl := cash.NewController(bank)
	ledger := sft.NewLedger()

	r := app.NewRouter()
	authenticator := &weavetest.CtxAuth{Key: "auth"}
	sft.RegisterRoutes(r, x.ChainAuth(authenticator), ctrl)

	cases := map[string]struct {
		setup          func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context
		mutator        func(*sft.TransferMsg)
		wantCheckErr   *errors.Error
		wantDeliverErr *errors.Error
		check          func(t *testing.T, db weave.KVStore)
	}{
		"happy path": {
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				return authenticator.SetConditions(ctx, alice)
			},
			check: func(t *testing.T, db weave.KVStore) {
				copies, err := ledger.Balance(db, bob.Address(), "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, uint64(4), copies)
				copies, err = ledger.Balance(db, alice.Address(), "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, uint64(6), copies)
				// The guard payment stays on the market account.
				acct, err := bank.Get(db, sft.MarketCondition().Address())
				assert.Nil(t, err)
				want, err := coin.CombineCoins(guardCoin)
				assert.Nil(t, err)
				assert.Equal(t, true, cash.AsCoins(acct).Equals(want))
			},
		},
		"guard payment is mandatory": {
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				return authenticator.SetConditions(ctx, alice)
			},
			mutator:        func(msg *sft.TransferMsg) { msg.Payment = coin.Coin{} },
			wantDeliverErr: sft.ErrGuard,
		},
		"guard payment must be exact": {
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				return authenticator.SetConditions(ctx, alice)
			},
			mutator:        func(msg *sft.TransferMsg) { msg.Payment = coin.NewCoin(0, 2, "IOV") },
			wantDeliverErr: sft.ErrGuard,
		},
		"only the owner can transfer": {
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				return authenticator.SetConditions(ctx, pete)
			},
			wantCheckErr:   errors.ErrUnauthorized,
			wantDeliverErr: errors.ErrUnauthorized,
		},
		"insufficient copies": {
			setup: func(t *testing.T, ctx weave.Context, db weave.KVStore) weave.Context {
				return authenticator.SetConditions(ctx, alice)
			},
			mutator:        func(msg *sft.TransferMsg) { msg.Amount = 11 },
			wantDeliverErr: sft.ErrInsufficientCopies,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "sft", "cash")
			conf := defaultConf()
			assert.Nil(t, gconf.Save(db, "sft", &conf))

			assert.Nil(t, ledger.RegisterClass(db, "solar-1", testDetails(), alice.Address()))
			_, err := ledger.IncreaseSupply(db, "solar-1", 10)
			assert.Nil(t, err)
			assert.Nil(t, ledger.MoveCopies(db, nil, alice.Address(), "solar-1", 10))
			funds := coin.NewCoin(0, 100, "IOV")
			acct, err := cash.WalletWith(alice.Address(), &funds)
			assert.Nil(t, err)
			assert.Nil(t, bank.Save(db, acct))

			ctx := weave.WithHeight(context.Background(), 100)
			if tc.setup != nil {
				ctx = tc.setup(t, ctx, db)
			}

			msg := &sft.TransferMsg{
				Metadata:    &weave.Metadata{Schema: 1},
				Source:      alice.Address(),
				Destination: bob.Address(),
				TokenId:     "solar-1",
				Amount:      4,
				Payment:     guardCoin,
			}
			if tc.mutator != nil {
				tc.mutator(msg)
			}
			tx := &weavetest.Tx{Msg: msg}

			cache := db.CacheWrap()
			if _, err := r.Check(ctx, cache, tx); !tc.wantCheckErr.Is(err) {
				t.Fatalf("check expected: %+v but got %+v", tc.wantCheckErr, err)
			}
			cache.Discard()

			if _, err := r.Deliver(ctx, db, tx); !tc.wantDeliverErr.Is(err) {
				t.Fatalf("deliver expected: %+v but got %+v", tc.wantDeliverErr, err)
			}
			if tc.check != nil {
				tc.check(t, db)
			}
		})
	}
}

func TestApproveAndRevokeHandlers(t *testing.T) {
	alice := weavetest.NewCondition()
	bob := weavetest.NewCondition()

	bank := cash.NewBucket()
	ctrl := cash.NewController(bank)
	ledger := sft.NewLedger()

	r := app.NewRouter()
	authenticator := &weavetest.CtxAuth{Key: "auth"}
	sft.RegisterRoutes(r, x.ChainAuth(authenticator), ctrl)

	db := store.MemStore()
	migration.MustInitPkg(db, "sft", "cash")
	conf := defaultConf()
	assert.Nil(t, gconf.Save(db, "sft", &conf))
	funds := coin.NewCoin(0, 100, "IOV")
	acct, err := cash.WalletWith(alice.Address(), &funds)
	assert.Nil(t, err)
	assert.Nil(t, bank.Save(db, acct))

	ctx := weave.WithHeight(context.Background(), 100)
	ctx = authenticator.SetConditions(ctx, alice)

	approve := func(amount uint64) error {
		tx := &weavetest.Tx{Msg: &sft.ApproveMsg{
			Metadata: &weave.Metadata{Schema: 1},
			Source:   alice.Address(),
			Spender:  bob.Address(),
			TokenId:  "solar-1",
			Amount:   amount,
		}}
		_, err := r.Deliver(ctx, db, tx)
		return err
	}

	// Approvals overwrite.
	assert.Nil(t, approve(5))
	assert.Nil(t, approve(3))
	allowance, err := ledger.Allowance(db, alice.Address(), bob.Address(), "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(3), allowance)

	// Revoking an existing approval leaves an audit trail.
	revokeTx := &weavetest.Tx{Msg: &sft.RevokeMsg{
		Metadata: &weave.Metadata{Schema: 1},
		Source:   alice.Address(),
		Spender:  bob.Address(),
		TokenId:  "solar-1",
		Payment:  guardCoin,
	}}
	res, err := r.Deliver(ctx, db, revokeTx)
	assert.Nil(t, err)
	if len(res.Tags) == 0 {
		t.Fatal("revoking an existing approval must be tagged")
	}
	allowance, err = ledger.Allowance(db, alice.Address(), bob.Address(), "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), allowance)

	// Revoking again succeeds silently.
	res, err = r.Deliver(ctx, db, revokeTx)
	assert.Nil(t, err)
	if len(res.Tags) != 0 {
		t.Fatal("revoking an absent approval must not be tagged")
	}
}

func TestTransferFromHandler(t *testing.T) {
	owner := weavetest.NewCondition()
	spender := weavetest.NewCondition()
	dest := weavetest.NewCondition()

	bank := cash.NewBucket()
	ctrl := cash.NewController(bank)
	ledger := sft.NewLedger()

	r := app.NewRouter()
	authenticator := &weavetest.CtxAuth{Key: "auth"}
	sft.RegisterRoutes(r, x.ChainAuth(authenticator), ctrl)

	cases := map[string]struct {
		allowance      uint64
		ownerCopies    uint64
		amount         uint64
		wantDeliverErr *errors.Error
		wantLeft       uint64
	}{
		"happy path": {
			allowance:   5,
			ownerCopies: 10,
			amount:      3,
			wantLeft:    2,
		},
		"no approval": {
			allowance:      0,
			ownerCopies:    10,
			amount:         1,
			wantDeliverErr: sft.ErrNoApproval,
		},
		"allowance too small": {
			allowance:      2,
			ownerCopies:    10,
			amount:         3,
			wantDeliverErr: sft.ErrInsufficientAllowance,
			wantLeft:       2,
		},
		"approval without copies": {
			allowance:      5,
			ownerCopies:    0,
			amount:         3,
			wantDeliverErr: sft.ErrInsufficientCopies,
			wantLeft:       5,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "sft", "cash")
			conf := defaultConf()
			assert.Nil(t, gconf.Save(db, "sft", &conf))

			assert.Nil(t, ledger.RegisterClass(db, "solar-1", testDetails(), owner.Address()))
			if tc.ownerCopies > 0 {
				_, err := ledger.IncreaseSupply(db, "solar-1", tc.ownerCopies)
				assert.Nil(t, err)
				assert.Nil(t, ledger.MoveCopies(db, nil, owner.Address(), "solar-1", tc.ownerCopies))
			}
			if tc.allowance > 0 {
				assert.Nil(t, ledger.SetApproval(db, owner.Address(), spender.Address(), "solar-1", tc.allowance))
			}
			funds := coin.NewCoin(0, 100, "IOV")
			acct, err := cash.WalletWith(spender.Address(), &funds)
			assert.Nil(t, err)
			assert.Nil(t, bank.Save(db, acct))

			ctx := weave.WithHeight(context.Background(), 100)
			ctx = authenticator.SetConditions(ctx, spender)

			tx := &weavetest.Tx{Msg: &sft.TransferFromMsg{
				Metadata:    &weave.Metadata{Schema: 1},
				Source:      spender.Address(),
				Owner:       owner.Address(),
				Destination: dest.Address(),
				TokenId:     "solar-1",
				Amount:      tc.amount,
				Payment:     guardCoin,
			}}

			// Deliver into a cache so that a failed transaction can be
			// rolled back the way the savepoint decorator does it.
			cache := db.CacheWrap()
			_, err = r.Deliver(ctx, cache, tx)
			if !tc.wantDeliverErr.Is(err) {
				t.Fatalf("deliver expected: %+v but got %+v", tc.wantDeliverErr, err)
			}
			if err != nil {
				cache.Discard()
			} else {
				cache.Write()
			}

			allowance, err := ledger.Allowance(db, owner.Address(), spender.Address(), "solar-1")
			assert.Nil(t, err)
			assert.Equal(t, tc.wantLeft, allowance)

			if tc.wantDeliverErr == nil {
				copies, err := ledger.Balance(db, dest.Address(), "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, tc.amount, copies)
				copies, err = ledger.Balance(db, owner.Address(), "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, tc.ownerCopies-tc.amount, copies)
			} else {
				// A failed delivery must leave every balance untouched.
				copies, err := ledger.Balance(db, owner.Address(), "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, tc.ownerCopies, copies)
				copies, err = ledger.Balance(db, dest.Address(), "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, uint64(0), copies)
			}
		})
	}
}

func TestMarketBuyHandler(t *testing.T) {
	seller := weavetest.NewCondition()
	buyer := weavetest.NewCondition()

	bank := cash.NewBucket()
	ctrl := cash.NewController(bank)
	ledger := sft.NewLedger()

	r := app.NewRouter()
	authenticator := &weavetest.CtxAuth{Key: "auth"}
	sft.RegisterRoutes(r, x.ChainAuth(authenticator), ctrl)

	cases := map[string]struct {
		listed         uint64
		payment        coin.Coin
		tokenID        string
		wantDeliverErr *errors.Error
		check          func(t *testing.T, db weave.KVStore)
	}{
		"happy path": {
			listed:  2,
			payment: coin.NewCoin(1, 0, "IOV"),
			tokenID: "solar-1",
			check: func(t *testing.T, db weave.KVStore) {
				copies, err := ledger.Balance(db, buyer.Address(), "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, uint64(1), copies)
				// One listing slot was used up.
				left, err := ledger.Allowance(db, seller.Address(), sft.MarketCondition().Address(), "solar-1")
				assert.Nil(t, err)
				assert.Equal(t, uint64(1), left)
				// The seller received exactly the price.
				acct, err := bank.Get(db, seller.Address())
				assert.Nil(t, err)
				want, err := coin.CombineCoins(coin.NewCoin(1, 0, "IOV"))
				assert.Nil(t, err)
				assert.Equal(t, true, cash.AsCoins(acct).Equals(want))
			},
		},
		"payment above price is not charged": {
			listed:  1,
			payment: coin.NewCoin(2, 0, "IOV"),
			tokenID: "solar-1",
			check: func(t *testing.T, db weave.KVStore) {
				acct, err := bank.Get(db, buyer.Address())
				assert.Nil(t, err)
				want, err := coin.CombineCoins(coin.NewCoin(1, 0, "IOV"))
				assert.Nil(t, err)
				assert.Equal(t, true, cash.AsCoins(acct).Equals(want))
			},
		},
		"payment below price": {
			listed:         1,
			payment:        coin.NewCoin(0, 999, "IOV"),
			tokenID:        "solar-1",
			wantDeliverErr: sft.ErrInsufficientPayment,
		},
		"not listed": {
			listed:         0,
			payment:        coin.NewCoin(1, 0, "IOV"),
			tokenID:        "solar-1",
			wantDeliverErr: sft.ErrNoApproval,
		},
		"unknown class": {
			listed:         1,
			payment:        coin.NewCoin(1, 0, "IOV"),
			tokenID:        "wind-9",
			wantDeliverErr: errors.ErrNotFound,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			db := store.MemStore()
			migration.MustInitPkg(db, "sft", "cash")
			conf := defaultConf()
			assert.Nil(t, gconf.Save(db, "sft", &conf))

			assert.Nil(t, ledger.RegisterClass(db, "solar-1", testDetails(), seller.Address()))
			_, err := ledger.IncreaseSupply(db, "solar-1", 5)
			assert.Nil(t, err)
			assert.Nil(t, ledger.MoveCopies(db, nil, seller.Address(), "solar-1", 5))
			if tc.listed > 0 {
				assert.Nil(t, ledger.SetApproval(db, seller.Address(), conf.Market, "solar-1", tc.listed))
			}
			funds := coin.NewCoin(2, 0, "IOV")
			acct, err := cash.WalletWith(buyer.Address(), &funds)
			assert.Nil(t, err)
			assert.Nil(t, bank.Save(db, acct))

			ctx := weave.WithHeight(context.Background(), 100)
			ctx = authenticator.SetConditions(ctx, buyer)

			tx := &weavetest.Tx{Msg: &sft.MarketBuyMsg{
				Metadata: &weave.Metadata{Schema: 1},
				Source:   buyer.Address(),
				Seller:   seller.Address(),
				TokenId:  tc.tokenID,
				Payment:  tc.payment,
			}}

			cache := db.CacheWrap()
			_, err = r.Deliver(ctx, cache, tx)
			if !tc.wantDeliverErr.Is(err) {
				t.Fatalf("deliver expected: %+v but got %+v", tc.wantDeliverErr, err)
			}
			if err != nil {
				cache.Discard()
			} else {
				cache.Write()
			}
			if tc.check != nil {
				tc.check(t, db)
			}
		})
	}
}
