package sft_test

import (
	"bytes"
	"testing"

	"github.com/iov-one/sftd/x/sft"
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestInventoryQuery(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "sft")

	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	ledger := sft.NewLedger()

	for _, tokenID := range []string{"solar-1", "solar-2"} {
		assert.Nil(t, ledger.RegisterClass(db, tokenID, testDetails(), alice))
		_, err := ledger.IncreaseSupply(db, tokenID, 5)
		assert.Nil(t, err)
		assert.Nil(t, ledger.MoveCopies(db, nil, alice, tokenID, 5))
	}
	assert.Nil(t, ledger.MoveCopies(db, alice, bob, "solar-1", 2))

	models, err := sft.InventoryQuery{}.Query(db, "", alice)
	assert.Nil(t, err)
	assert.Equal(t, 2, len(models))
	for _, m := range models {
		if !bytes.Contains(m.Key, alice) {
			t.Fatalf("inventory key %q does not belong to the holder", m.Key)
		}
	}

	models, err = sft.InventoryQuery{}.Query(db, "", bob)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(models))

	// An account without holdings has an empty inventory.
	models, err = sft.InventoryQuery{}.Query(db, "", weavetest.NewCondition().Address())
	assert.Nil(t, err)
	assert.Equal(t, 0, len(models))

	// Garbage instead of an address is rejected.
	if _, err := (sft.InventoryQuery{}).Query(db, "", []byte("x")); err == nil {
		t.Fatal("an invalid holder address must be rejected")
	}
}

func TestClassListQuery(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "sft")

	creator := weavetest.NewCondition().Address()
	ledger := sft.NewLedger()
	for _, tokenID := range []string{"class-a", "class-b", "class-c"} {
		assert.Nil(t, ledger.RegisterClass(db, tokenID, testDetails(), creator))
	}

	// An empty request returns the first page.
	models, err := sft.ClassListQuery{}.Query(db, "", nil)
	assert.Nil(t, err)
	assert.Equal(t, 3, len(models))

	page := func(offset, limit uint64) []weave.Model {
		raw, err := (&sft.ClassPageRequest{Offset: offset, Limit: limit}).Marshal()
		assert.Nil(t, err)
		models, err := sft.ClassListQuery{}.Query(db, "", raw)
		assert.Nil(t, err)
		return models
	}

	first := page(0, 2)
	assert.Equal(t, 2, len(first))
	rest := page(2, 2)
	assert.Equal(t, 1, len(rest))
	if bytes.Equal(first[0].Key, rest[0].Key) {
		t.Fatal("pages must not overlap")
	}
	assert.Equal(t, 0, len(page(3, 2)))
}

func TestHolderListQuery(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "sft")

	ledger := sft.NewLedger()
	creator := weavetest.NewCondition().Address()
	assert.Nil(t, ledger.RegisterClass(db, "solar-1", testDetails(), creator))
	_, err := ledger.IncreaseSupply(db, "solar-1", 9)
	assert.Nil(t, err)
	for i := 0; i < 3; i++ {
		holder := weavetest.NewCondition().Address()
		assert.Nil(t, ledger.MoveCopies(db, nil, holder, "solar-1", 3))
	}

	models, err := sft.HolderListQuery{}.Query(db, "", nil)
	assert.Nil(t, err)
	assert.Equal(t, 3, len(models))

	page := func(offset, limit uint64) []weave.Model {
		raw, err := (&sft.ClassPageRequest{Offset: offset, Limit: limit}).Marshal()
		assert.Nil(t, err)
		models, err := sft.HolderListQuery{}.Query(db, "", raw)
		assert.Nil(t, err)
		return models
	}

	first := page(0, 2)
	assert.Equal(t, 2, len(first))
	rest := page(2, 2)
	assert.Equal(t, 1, len(rest))
	if bytes.Equal(first[0].Key, rest[0].Key) {
		t.Fatal("pages must not overlap")
	}
	assert.Equal(t, 0, len(page(3, 2)))
}

func TestApprovedSellersQuery(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "sft")
	conf := defaultConf()
	assert.Nil(t, gconf.Save(db, "sft", &conf))

	listed := weavetest.NewCondition().Address()
	unlisted := weavetest.NewCondition().Address()
	ledger := sft.NewLedger()
	assert.Nil(t, ledger.SetApproval(db, listed, conf.Market, "solar-1", 3))
	// An approval for someone other than the marketplace is not a listing.
	assert.Nil(t, ledger.SetApproval(db, unlisted, weavetest.NewCondition().Address(), "solar-1", 3))

	q := sft.ApprovedSellersQuery{}
	raw, err := (&sft.ApprovedSellersRequest{
		TokenId: "solar-1",
		Sellers: []weave.Address{listed, unlisted},
	}).Marshal()
	assert.Nil(t, err)

	models, err := q.Query(db, "", raw)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(models))
	if !bytes.Contains(models[0].Key, listed) {
		t.Fatalf("listing key %q does not belong to the listed seller", models[0].Key)
	}

	// No candidates, no results.
	raw, err = (&sft.ApprovedSellersRequest{TokenId: "solar-1"}).Marshal()
	assert.Nil(t, err)
	models, err = q.Query(db, "", raw)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(models))
}
