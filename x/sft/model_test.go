package sft

import (
	"bytes"
	"testing"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/weavetest"
	"github.com/iov-one/weave/weavetest/assert"
)

func TestBalanceValidate(t *testing.T) {
	b := Balance{Metadata: &weave.Metadata{Schema: 1}, Copies: 1}
	assert.Nil(t, b.Validate())

	// Zero balances are deleted, never stored.
	b.Copies = 0
	assert.IsErr(t, errors.ErrModel, b.Validate())
}

func TestApprovalValidate(t *testing.T) {
	a := Approval{Metadata: &weave.Metadata{Schema: 1}, Allowance: 1}
	assert.Nil(t, a.Validate())

	a.Allowance = 0
	assert.IsErr(t, errors.ErrModel, a.Validate())
}

func TestTokenSupplyValidate(t *testing.T) {
	// A zero total is valid, the supply entry is created before the first
	// copies are credited.
	s := TokenSupply{Metadata: &weave.Metadata{Schema: 1}}
	assert.Nil(t, s.Validate())
}

func TestTokenInfoValidate(t *testing.T) {
	creator := weavetest.NewCondition().Address()
	info := TokenInfo{
		Metadata:     &weave.Metadata{Schema: 1},
		Title:        "Solar Farm Shares",
		Description:  "Fractional ownership of the solar farm",
		Media:        "ipfs://QmSolarFarm/media",
		MediaHash:    []byte("solar-farm-media-hash"),
		PricePerUnit: coin.NewCoin(1, 0, "IOV"),
		CoverPhoto:   "ipfs://QmSolarFarm/cover",
		Creator:      creator,
	}
	assert.Nil(t, info.Validate())

	// The description is part of the mandatory metadata set.
	incomplete := info
	incomplete.Description = ""
	assert.IsErr(t, errors.ErrModel, incomplete.Validate())

	negative := info
	negative.PricePerUnit = coin.NewCoin(-1, 0, "IOV")
	assert.IsErr(t, errors.ErrModel, negative.Validate())
}

func TestCompositeKeys(t *testing.T) {
	alice := weavetest.NewCondition().Address()
	bob := weavetest.NewCondition().Address()

	if bytes.Equal(balanceKey(alice, "solar-1"), balanceKey(bob, "solar-1")) {
		t.Fatal("different holders must map to different keys")
	}
	if bytes.Equal(balanceKey(alice, "solar-1"), balanceKey(alice, "solar-2")) {
		t.Fatal("different classes must map to different keys")
	}
	if bytes.Equal(approvalKey(alice, bob, "solar-1"), approvalKey(bob, alice, "solar-1")) {
		t.Fatal("owner and spender are not interchangeable")
	}

	// The holder address prefixes the key, which makes one account's
	// inventory a single range scan.
	key := balanceKey(alice, "solar-1")
	if !bytes.HasPrefix(key, alice) {
		t.Fatal("balance key must start with the holder address")
	}
}
