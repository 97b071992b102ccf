package sft

import (
	"math"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/x/cash"
)

// meteredStore wraps a KVStore and tracks the byte delta of every write so
// that storage heavy calls can charge a deposit proportional to the state
// they persist. Reads pass through untouched.
type meteredStore struct {
	weave.KVStore
	delta int64
}

func newMeteredStore(db weave.KVStore) *meteredStore {
	return &meteredStore{KVStore: db}
}

func (m *meteredStore) Set(key, value []byte) error {
	old, err := m.KVStore.Get(key)
	if err != nil {
		return err
	}
	if old == nil {
		m.delta += int64(len(key) + len(value))
	} else {
		m.delta += int64(len(value)) - int64(len(old))
	}
	return m.KVStore.Set(key, value)
}

func (m *meteredStore) Delete(key []byte) error {
	old, err := m.KVStore.Get(key)
	if err != nil {
		return err
	}
	if old != nil {
		m.delta -= int64(len(key) + len(old))
	}
	return m.KVStore.Delete(key)
}

// BytesAdded returns how many bytes of state the metered writes added. A
// call that released more state than it wrote reports zero bytes and an
// anomaly, releases are never paid out.
func (m *meteredStore) BytesAdded() (uint64, bool) {
	if m.delta < 0 {
		return 0, true
	}
	return uint64(m.delta), false
}

// storageCost prices the added bytes. A zero price or zero bytes cost
// nothing.
func storageCost(price coin.Coin, bytes uint64) (coin.Coin, error) {
	if price.IsZero() || bytes == 0 {
		return coin.Coin{Ticker: price.Ticker}, nil
	}
	if bytes > math.MaxInt64 {
		return coin.Coin{}, errors.Wrap(errors.ErrOverflow, "storage bytes")
	}
	cost, err := price.Multiply(int64(bytes))
	if err != nil {
		return coin.Coin{}, errors.Wrap(err, "storage cost")
	}
	return cost, nil
}

// settleDeposit charges the payer for the bytes a call added. The whole
// payment is collected on the market account first, then the excess over the
// cost is refunded, unless the excess is dust. A payment below the cost
// fails the call and with it the whole transaction, including the collect.
func settleDeposit(db weave.KVStore, bank cash.CoinMover, conf Configuration, payer weave.Address, payment coin.Coin, bytesAdded uint64) (coin.Coin, error) {
	cost, err := storageCost(conf.StoragePrice, bytesAdded)
	if err != nil {
		return coin.Coin{}, err
	}
	if payment.IsZero() && cost.IsZero() {
		return cost, nil
	}
	if !payment.IsZero() {
		if err := cash.MoveCoins(db, bank, payer, conf.Market, []*coin.Coin{&payment}); err != nil {
			return coin.Coin{}, errors.Wrap(err, "collect deposit")
		}
	}
	if !cost.IsZero() {
		if payment.IsZero() || !payment.IsGTE(cost) {
			return coin.Coin{}, errors.Wrapf(ErrInsufficientDeposit, "attached %s, storage cost %s", payment, cost)
		}
	}
	refund := payment
	if !cost.IsZero() {
		refund, err = payment.Subtract(cost)
		if err != nil {
			return coin.Coin{}, errors.Wrap(err, "compute refund")
		}
	}
	if worthRefunding(refund, conf.DustThreshold) {
		if err := cash.MoveCoins(db, bank, conf.Market, payer, []*coin.Coin{&refund}); err != nil {
			return coin.Coin{}, errors.Wrap(err, "refund deposit")
		}
	}
	return cost, nil
}

// worthRefunding decides whether a refund is big enough to send back. A
// refund not greater than the dust threshold stays on the market account.
func worthRefunding(refund, dust coin.Coin) bool {
	if !refund.IsPositive() {
		return false
	}
	if dust.IsZero() || !refund.SameType(dust) {
		return true
	}
	return !dust.IsGTE(refund)
}

// requireGuard enforces the exact guard payment that every balance mutating
// call must attach. The guard must match to the unit, both a missing and an
// oversized payment are rejected before any state is read.
func requireGuard(conf Configuration, payment coin.Coin) error {
	if conf.TransferGuard.IsZero() {
		if payment.IsZero() {
			return nil
		}
		return errors.Wrapf(ErrGuard, "attached %s, no guard payment required", payment)
	}
	if !payment.Equals(conf.TransferGuard) {
		return errors.Wrapf(ErrGuard, "attached %s, required exactly %s", payment, conf.TransferGuard)
	}
	return nil
}
