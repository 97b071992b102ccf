package sft_test

import (
	"testing"

	"github.com/iov-one/sftd/x/sft"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/store"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func testDetails() *sft.TokenDetails {
	return &sft.TokenDetails{
		Title:        "Solar Farm Shares",
		Description:  "Fractional ownership of the solar farm",
		Media:        "ipfs://QmSolarFarm/media",
		MediaHash:    []byte("solar-farm-media-hash"),
		PricePerUnit: coin.NewCoin(1, 0, "IOV"),
		CoverPhoto:   "ipfs://QmSolarFarm/cover",
	}
}

func TestRegisterClass(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "sft")

	creator := weavetest.NewCondition().Address()
	ledger := sft.NewLedger()

	assert.Nil(t, ledger.RegisterClass(db, "solar-1", testDetails(), creator))

	info, err := ledger.TokenInfo(db, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, "Solar Farm Shares", info.Title)
	assert.Equal(t, creator, info.Creator)

	total, err := ledger.Supply(db, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), total)

	// Registration is write once.
	err = ledger.RegisterClass(db, "solar-1", testDetails(), creator)
	assert.IsErr(t, sft.ErrClassExists, err)

	// An unknown class has no metadata.
	_, err = ledger.TokenInfo(db, "wind-1")
	assert.IsErr(t, errors.ErrNotFound, err)
}

func TestIncreaseSupply(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "sft")

	creator := weavetest.NewCondition().Address()
	ledger := sft.NewLedger()
	assert.Nil(t, ledger.RegisterClass(db, "solar-1", testDetails(), creator))

	total, err := ledger.IncreaseSupply(db, "solar-1", 10)
	assert.Nil(t, err)
	assert.Equal(t, uint64(10), total)

	// Increasing the supply of an unregistered class is not allowed.
	_, err = ledger.IncreaseSupply(db, "wind-1", 1)
	assert.IsErr(t, errors.ErrNotFound, err)

	// The total must never wrap around.
	_, err = ledger.IncreaseSupply(db, "solar-1", ^uint64(0))
	assert.IsErr(t, errors.ErrOverflow, err)
	total, err = ledger.Supply(db, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(10), total)
}

func TestMoveCopies(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "sft")

	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	ledger := sft.NewLedger()
	assert.Nil(t, ledger.RegisterClass(db, "solar-1", testDetails(), alice))

	// Mint credits without debiting anyone.
	_, err := ledger.IncreaseSupply(db, "solar-1", 10)
	assert.Nil(t, err)
	assert.Nil(t, ledger.MoveCopies(db, nil, alice, "solar-1", 10))

	assert.Nil(t, ledger.MoveCopies(db, alice, bob, "solar-1", 4))

	aliceCopies, err := ledger.Balance(db, alice, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(6), aliceCopies)
	bobCopies, err := ledger.Balance(db, bob, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(4), bobCopies)

	// Copies are conserved.
	total, err := ledger.Supply(db, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, total, aliceCopies+bobCopies)

	// More than held cannot be moved, and a failed move changes nothing.
	err = ledger.MoveCopies(db, bob, alice, "solar-1", 5)
	assert.IsErr(t, sft.ErrInsufficientCopies, err)
	bobCopies, err = ledger.Balance(db, bob, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(4), bobCopies)

	// An account without an entry holds zero.
	err = ledger.MoveCopies(db, weavetest.NewCondition().Address(), alice, "solar-1", 1)
	assert.IsErr(t, sft.ErrInsufficientCopies, err)

	err = ledger.MoveCopies(db, alice, bob, "solar-1", 0)
	assert.IsErr(t, errors.ErrAmount, err)
}

func TestMoveCopiesDrainsEntry(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "sft")

	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()
	ledger := sft.NewLedger()
	assert.Nil(t, ledger.RegisterClass(db, "solar-1", testDetails(), alice))
	_, err := ledger.IncreaseSupply(db, "solar-1", 3)
	assert.Nil(t, err)
	assert.Nil(t, ledger.MoveCopies(db, nil, alice, "solar-1", 3))

	assert.Nil(t, ledger.MoveCopies(db, alice, bob, "solar-1", 3))

	// The drained balance entry is deleted, not stored as zero.
	copies, err := ledger.Balance(db, alice, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), copies)
	inv, err := sft.InventoryQuery{}.Query(db, "", alice)
	assert.Nil(t, err)
	assert.Equal(t, 0, len(inv))
	inv, err = sft.InventoryQuery{}.Query(db, "", bob)
	assert.Nil(t, err)
	assert.Equal(t, 1, len(inv))
}

func TestApprovalLifecycle(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "sft")

	owner := weavetest.NewCondition().Address()
	spender := weavetest.NewCondition().Address()
	ledger := sft.NewLedger()

	// Approvals overwrite, they do not accumulate.
	assert.Nil(t, ledger.SetApproval(db, owner, spender, "solar-1", 5))
	assert.Nil(t, ledger.SetApproval(db, owner, spender, "solar-1", 3))
	allowance, err := ledger.Allowance(db, owner, spender, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(3), allowance)

	left, err := ledger.ConsumeApproval(db, owner, spender, "solar-1", 2)
	assert.Nil(t, err)
	assert.Equal(t, uint64(1), left)

	_, err = ledger.ConsumeApproval(db, owner, spender, "solar-1", 2)
	assert.IsErr(t, sft.ErrInsufficientAllowance, err)

	// Exhausting the allowance removes the entry.
	left, err = ledger.ConsumeApproval(db, owner, spender, "solar-1", 1)
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), left)
	_, err = ledger.ConsumeApproval(db, owner, spender, "solar-1", 1)
	assert.IsErr(t, sft.ErrNoApproval, err)

	// Revoke is idempotent and reports whether an entry existed.
	assert.Nil(t, ledger.SetApproval(db, owner, spender, "solar-1", 7))
	removed, err := ledger.RevokeApproval(db, owner, spender, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, true, removed)
	removed, err = ledger.RevokeApproval(db, owner, spender, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, false, removed)

	// A zero approval removes the entry as well.
	assert.Nil(t, ledger.SetApproval(db, owner, spender, "solar-1", 7))
	assert.Nil(t, ledger.SetApproval(db, owner, spender, "solar-1", 0))
	allowance, err = ledger.Allowance(db, owner, spender, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), allowance)
}

func TestApprovalsAreScoped(t *testing.T) {
	db := store.MemStore()
	migration.MustInitPkg(db, "sft")

	owner := weavetest.NewCondition().Address()
	spender := weavetest.NewCondition().Address()
	other := weavetest.NewCondition().Address()
	ledger := sft.NewLedger()

	assert.Nil(t, ledger.SetApproval(db, owner, spender, "solar-1", 5))

	// A different class, owner or spender does not share the allowance.
	allowance, err := ledger.Allowance(db, owner, spender, "wind-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), allowance)
	allowance, err = ledger.Allowance(db, owner, other, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), allowance)
	allowance, err = ledger.Allowance(db, other, spender, "solar-1")
	assert.Nil(t, err)
	assert.Equal(t, uint64(0), allowance)
}
