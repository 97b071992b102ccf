package sft

import (
	"strconv"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/gconf"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/x"
	"github.com/iov-one/weave/x/cash"
	"github.com/tendermint/tendermint/libs/common"
)

const (
	mintCost         int64 = 300
	transferCost     int64 = 100
	approveCost      int64 = 100
	revokeCost       int64 = 50
	transferFromCost int64 = 150
	marketBuyCost    int64 = 200
)

// RegisterRoutes will instantiate and register all handlers in this package.
func RegisterRoutes(r weave.Registry, auth x.Authenticator, cashCtrl cash.Controller) {
	r = migration.SchemaMigratingRegistry("sft", r)

	ledger := NewLedger()
	r.Handle(&MintMsg{}, MintHandler{auth: auth, ledger: ledger, bank: cashCtrl})
	r.Handle(&TransferMsg{}, TransferHandler{auth: auth, ledger: ledger, bank: cashCtrl})
	r.Handle(&ApproveMsg{}, ApproveHandler{auth: auth, ledger: ledger, bank: cashCtrl})
	r.Handle(&RevokeMsg{}, RevokeHandler{auth: auth, ledger: ledger, bank: cashCtrl})
	r.Handle(&TransferFromMsg{}, TransferFromHandler{auth: auth, ledger: ledger, bank: cashCtrl})
	r.Handle(&MarketBuyMsg{}, MarketBuyHandler{auth: auth, ledger: ledger, bank: cashCtrl})
	r.Handle(&UpdateConfigurationMsg{}, NewConfigHandler(auth))
}

// RegisterQuery will register all buckets of this package under their usual
// paths.
func RegisterQuery(qr weave.QueryRouter) {
	NewTokenInfoBucket().Register("sft/tokens", qr)
	NewTokenSupplyBucket().Register("sft/supplies", qr)
	NewBalanceBucket().Register("sft/balances", qr)
	NewApprovalBucket().Register("sft/approvals", qr)
	NewKnownHolderBucket().Register("sft/holders", qr)
	RegisterViews(qr)
}

func NewConfigHandler(auth x.Authenticator) weave.Handler {
	var conf Configuration
	return gconf.NewUpdateConfigurationHandler("sft", &conf, auth, migration.CurrentAdmin)
}

// collectGuard enforces and collects the exact guard payment. The collected
// guard stays on the market account.
func collectGuard(db weave.KVStore, bank cash.CoinMover, conf Configuration, payer weave.Address, payment coin.Coin) error {
	if err := requireGuard(conf, payment); err != nil {
		return err
	}
	if payment.IsZero() {
		return nil
	}
	if err := cash.MoveCoins(db, bank, payer, conf.Market, []*coin.Coin{&payment}); err != nil {
		return errors.Wrap(err, "collect guard")
	}
	return nil
}

func numTag(key string, n uint64) common.KVPair {
	return common.KVPair{Key: []byte(key), Value: []byte(strconv.FormatUint(n, 10))}
}

func strTag(key, value string) common.KVPair {
	return common.KVPair{Key: []byte(key), Value: []byte(value)}
}

func addrTag(key string, a weave.Address) common.KVPair {
	return common.KVPair{Key: []byte(key), Value: []byte(a.String())}
}

// MintHandler creates copies, and with them the token class if its
// description is attached.
type MintHandler struct {
	auth   x.Authenticator
	ledger *Ledger
	bank   cash.CoinMover
}

var _ weave.Handler = MintHandler{}

func (h MintHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg MintMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if x.AnySigner(ctx, h.auth) == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "signature required")
	}
	return &weave.CheckResult{GasAllocated: mintCost}, nil
}

func (h MintHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg MintMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	signer := x.AnySigner(ctx, h.auth)
	if signer == nil {
		return nil, errors.Wrap(errors.ErrUnauthorized, "signature required")
	}
	payer := signer.Address()

	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}

	meter := newMeteredStore(db)
	if msg.Details != nil {
		if err := h.ledger.RegisterClass(meter, msg.TokenId, msg.Details, payer); err != nil {
			return nil, err
		}
	} else {
		// Minting into an existing class, the metadata must be there.
		if _, err := h.ledger.TokenInfo(db, msg.TokenId); err != nil {
			return nil, err
		}
	}
	if _, err := h.ledger.IncreaseSupply(meter, msg.TokenId, msg.Amount); err != nil {
		return nil, err
	}
	if err := h.ledger.MoveCopies(meter, nil, msg.Destination, msg.TokenId, msg.Amount); err != nil {
		return nil, err
	}

	bytesAdded, anomaly := meter.BytesAdded()
	if _, err := settleDeposit(db, h.bank, conf, payer, msg.Payment, bytesAdded); err != nil {
		return nil, err
	}

	tags := []common.KVPair{
		strTag("sft:token", msg.TokenId),
		addrTag("sft:owner", msg.Destination),
		numTag("sft:amount", msg.Amount),
	}
	if anomaly {
		tags = append(tags, strTag("sft:storage", "released"))
	}
	return &weave.DeliverResult{Data: []byte(msg.TokenId), Tags: tags}, nil
}

// TransferHandler moves copies between two accounts on the owner's
// authority.
type TransferHandler struct {
	auth   x.Authenticator
	ledger *Ledger
	bank   cash.CoinMover
}

var _ weave.Handler = TransferHandler{}

func (h TransferHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg TransferMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "source signature missing")
	}
	return &weave.CheckResult{GasAllocated: transferCost}, nil
}

func (h TransferHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg TransferMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "source signature missing")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if err := collectGuard(db, h.bank, conf, msg.Source, msg.Payment); err != nil {
		return nil, err
	}
	if err := h.ledger.MoveCopies(db, msg.Source, msg.Destination, msg.TokenId, msg.Amount); err != nil {
		return nil, err
	}
	tags := []common.KVPair{
		strTag("sft:token", msg.TokenId),
		addrTag("sft:owner", msg.Source),
		addrTag("sft:destination", msg.Destination),
		numTag("sft:amount", msg.Amount),
	}
	if msg.Memo != "" {
		tags = append(tags, strTag("sft:memo", msg.Memo))
	}
	return &weave.DeliverResult{Tags: tags}, nil
}

// ApproveHandler overwrites the allowance of a spender.
type ApproveHandler struct {
	auth   x.Authenticator
	ledger *Ledger
	bank   cash.CoinMover
}

var _ weave.Handler = ApproveHandler{}

func (h ApproveHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg ApproveMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "source signature missing")
	}
	return &weave.CheckResult{GasAllocated: approveCost}, nil
}

func (h ApproveHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg ApproveMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "source signature missing")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}

	meter := newMeteredStore(db)
	if err := h.ledger.SetApproval(meter, msg.Source, msg.Spender, msg.TokenId, msg.Amount); err != nil {
		return nil, err
	}

	bytesAdded, anomaly := meter.BytesAdded()
	if _, err := settleDeposit(db, h.bank, conf, msg.Source, msg.Payment, bytesAdded); err != nil {
		return nil, err
	}

	tags := []common.KVPair{
		strTag("sft:token", msg.TokenId),
		addrTag("sft:owner", msg.Source),
		addrTag("sft:spender", msg.Spender),
		numTag("sft:amount", msg.Amount),
	}
	if anomaly {
		tags = append(tags, strTag("sft:storage", "released"))
	}
	return &weave.DeliverResult{Tags: tags}, nil
}

// RevokeHandler removes the allowance of a spender. Revoking an absent
// allowance succeeds without leaving an audit trail.
type RevokeHandler struct {
	auth   x.Authenticator
	ledger *Ledger
	bank   cash.CoinMover
}

var _ weave.Handler = RevokeHandler{}

func (h RevokeHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg RevokeMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "source signature missing")
	}
	return &weave.CheckResult{GasAllocated: revokeCost}, nil
}

func (h RevokeHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg RevokeMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "source signature missing")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if err := collectGuard(db, h.bank, conf, msg.Source, msg.Payment); err != nil {
		return nil, err
	}
	removed, err := h.ledger.RevokeApproval(db, msg.Source, msg.Spender, msg.TokenId)
	if err != nil {
		return nil, err
	}
	var tags []common.KVPair
	if removed {
		tags = []common.KVPair{
			strTag("sft:token", msg.TokenId),
			addrTag("sft:owner", msg.Source),
			addrTag("sft:spender", msg.Spender),
		}
	}
	return &weave.DeliverResult{Tags: tags}, nil
}

// TransferFromHandler moves copies out of the owner account on a spender's
// authority, consuming the allowance before anything else happens.
type TransferFromHandler struct {
	auth   x.Authenticator
	ledger *Ledger
	bank   cash.CoinMover
}

var _ weave.Handler = TransferFromHandler{}

func (h TransferFromHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg TransferFromMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "spender signature missing")
	}
	return &weave.CheckResult{GasAllocated: transferFromCost}, nil
}

func (h TransferFromHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg TransferFromMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "spender signature missing")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	if err := collectGuard(db, h.bank, conf, msg.Source, msg.Payment); err != nil {
		return nil, err
	}
	// The allowance is consumed before the balances change. A failed move
	// aborts the transaction and restores the allowance with it.
	if _, err := h.ledger.ConsumeApproval(db, msg.Owner, msg.Source, msg.TokenId, msg.Amount); err != nil {
		return nil, err
	}
	if err := h.ledger.MoveCopies(db, msg.Owner, msg.Destination, msg.TokenId, msg.Amount); err != nil {
		return nil, err
	}
	tags := []common.KVPair{
		strTag("sft:token", msg.TokenId),
		addrTag("sft:owner", msg.Owner),
		addrTag("sft:destination", msg.Destination),
		numTag("sft:amount", msg.Amount),
		addrTag("sft:authorized", msg.Source),
	}
	if msg.Memo != "" {
		tags = append(tags, strTag("sft:memo", msg.Memo))
	}
	return &weave.DeliverResult{Tags: tags}, nil
}

// MarketBuyHandler settles the purchase of a single copy through the
// marketplace account.
type MarketBuyHandler struct {
	auth   x.Authenticator
	ledger *Ledger
	bank   cash.CoinMover
}

var _ weave.Handler = MarketBuyHandler{}

func (h MarketBuyHandler) Check(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.CheckResult, error) {
	var msg MarketBuyMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "buyer signature missing")
	}
	return &weave.CheckResult{GasAllocated: marketBuyCost}, nil
}

func (h MarketBuyHandler) Deliver(ctx weave.Context, db weave.KVStore, tx weave.Tx) (*weave.DeliverResult, error) {
	var msg MarketBuyMsg
	if err := weave.LoadMsg(tx, &msg); err != nil {
		return nil, errors.Wrap(err, "load msg")
	}
	if !h.auth.HasAddress(ctx, msg.Source) {
		return nil, errors.Wrap(errors.ErrUnauthorized, "buyer signature missing")
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	info, err := h.ledger.TokenInfo(db, msg.TokenId)
	if err != nil {
		return nil, err
	}
	price := info.PricePerUnit
	if price.IsPositive() && !msg.Payment.IsGTE(price) {
		return nil, errors.Wrapf(ErrInsufficientPayment, "attached %s, price %s", msg.Payment, price)
	}

	// The seller must have listed with the marketplace. Consume that
	// allowance first, then pay, then hand over the copy. Only the price
	// is ever charged, the excess of the attached payment stays with the
	// buyer.
	if _, err := h.ledger.ConsumeApproval(db, msg.Seller, conf.Market, msg.TokenId, 1); err != nil {
		return nil, err
	}
	if price.IsPositive() {
		if err := cash.MoveCoins(db, h.bank, msg.Source, msg.Seller, []*coin.Coin{&price}); err != nil {
			return nil, errors.Wrap(err, "pay seller")
		}
	}
	if err := h.ledger.MoveCopies(db, msg.Seller, msg.Source, msg.TokenId, 1); err != nil {
		return nil, err
	}

	tags := []common.KVPair{
		strTag("sft:token", msg.TokenId),
		addrTag("sft:owner", msg.Seller),
		addrTag("sft:destination", msg.Source),
		numTag("sft:amount", 1),
		addrTag("sft:authorized", conf.Market),
	}
	return &weave.DeliverResult{Tags: tags}, nil
}
