package sft

import (
	"math"

	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/orm"
)

// Ledger is the accounting core. Every change of copy balances, class
// supplies and allowances flows through this single choke point so that the
// bookkeeping invariants hold regardless of which message triggered the
// change.
type Ledger struct {
	tokens    orm.ModelBucket
	supplies  orm.ModelBucket
	balances  orm.ModelBucket
	approvals orm.ModelBucket
	holders   orm.ModelBucket
}

func NewLedger() *Ledger {
	return &Ledger{
		tokens:    NewTokenInfoBucket(),
		supplies:  NewTokenSupplyBucket(),
		balances:  NewBalanceBucket(),
		approvals: NewApprovalBucket(),
		holders:   NewKnownHolderBucket(),
	}
}

// RegisterClass creates the metadata and the zero supply entry of a new
// token class. Registration is write once, an existing class is never
// overwritten.
func (l *Ledger) RegisterClass(db weave.KVStore, tokenID string, details *TokenDetails, creator weave.Address) error {
	switch err := l.tokens.Has(db, []byte(tokenID)); {
	case err == nil:
		return errors.Wrapf(ErrClassExists, "token class %q", tokenID)
	case errors.ErrNotFound.Is(err):
		// Free to register.
	default:
		return errors.Wrap(err, "class lookup")
	}
	info := TokenInfo{
		Metadata:     &weave.Metadata{Schema: 1},
		Title:        details.Title,
		Description:  details.Description,
		Media:        details.Media,
		MediaHash:    details.MediaHash,
		PricePerUnit: details.PricePerUnit,
		CoverPhoto:   details.CoverPhoto,
		Creator:      creator,
	}
	if _, err := l.tokens.Put(db, []byte(tokenID), &info); err != nil {
		return errors.Wrap(err, "store token info")
	}
	supply := TokenSupply{Metadata: &weave.Metadata{Schema: 1}}
	if _, err := l.supplies.Put(db, []byte(tokenID), &supply); err != nil {
		return errors.Wrap(err, "store token supply")
	}
	return nil
}

// TokenInfo returns the metadata of a class or ErrNotFound.
func (l *Ledger) TokenInfo(db weave.ReadOnlyKVStore, tokenID string) (*TokenInfo, error) {
	var info TokenInfo
	if err := l.tokens.One(db, []byte(tokenID), &info); err != nil {
		if errors.ErrNotFound.Is(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "token class %q", tokenID)
		}
		return nil, errors.Wrap(err, "token info")
	}
	return &info, nil
}

// IncreaseSupply adds newly minted copies to the class total and returns the
// new total. The supply entry must exist, it is created during class
// registration.
func (l *Ledger) IncreaseSupply(db weave.KVStore, tokenID string, amount uint64) (uint64, error) {
	var supply TokenSupply
	if err := l.supplies.One(db, []byte(tokenID), &supply); err != nil {
		if errors.ErrNotFound.Is(err) {
			return 0, errors.Wrapf(errors.ErrNotFound, "token class %q", tokenID)
		}
		return 0, errors.Wrap(err, "supply")
	}
	if supply.Total > math.MaxUint64-amount {
		return 0, errors.Wrapf(errors.ErrOverflow, "total supply of %q", tokenID)
	}
	supply.Total += amount
	if _, err := l.supplies.Put(db, []byte(tokenID), &supply); err != nil {
		return 0, errors.Wrap(err, "update supply")
	}
	return supply.Total, nil
}

// Supply returns the total number of copies minted for a class. A class
// without a supply entry reports zero.
func (l *Ledger) Supply(db weave.ReadOnlyKVStore, tokenID string) (uint64, error) {
	var supply TokenSupply
	switch err := l.supplies.One(db, []byte(tokenID), &supply); {
	case err == nil:
		return supply.Total, nil
	case errors.ErrNotFound.Is(err):
		return 0, nil
	default:
		return 0, errors.Wrap(err, "supply")
	}
}

// MoveCopies transfers copies of one class between two accounts. A nil
// source mints, crediting the destination without debiting anyone. Both
// sides are validated before anything is written so a failed move leaves no
// partial state. A balance drained to zero is deleted.
func (l *Ledger) MoveCopies(db weave.KVStore, src weave.Address, dest weave.Address, tokenID string, amount uint64) error {
	if amount == 0 {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}

	var srcBalance Balance
	if src != nil {
		if err := l.balances.One(db, balanceKey(src, tokenID), &srcBalance); err != nil {
			if errors.ErrNotFound.Is(err) {
				return errors.Wrapf(ErrInsufficientCopies, "%s holds 0 copies of %q, want %d", src, tokenID, amount)
			}
			return errors.Wrap(err, "source balance")
		}
		if srcBalance.Copies < amount {
			return errors.Wrapf(ErrInsufficientCopies, "%s holds %d copies of %q, want %d", src, srcBalance.Copies, tokenID, amount)
		}
	}

	var destBalance Balance
	switch err := l.balances.One(db, balanceKey(dest, tokenID), &destBalance); {
	case err == nil:
	case errors.ErrNotFound.Is(err):
		destBalance = Balance{Metadata: &weave.Metadata{Schema: 1}}
	default:
		return errors.Wrap(err, "destination balance")
	}
	if destBalance.Copies > math.MaxUint64-amount {
		return errors.Wrapf(errors.ErrOverflow, "balance of %q", tokenID)
	}

	if src != nil {
		if left := srcBalance.Copies - amount; left == 0 {
			if err := l.balances.Delete(db, balanceKey(src, tokenID)); err != nil {
				return errors.Wrap(err, "delete empty balance")
			}
		} else {
			srcBalance.Copies = left
			if _, err := l.balances.Put(db, balanceKey(src, tokenID), &srcBalance); err != nil {
				return errors.Wrap(err, "update source balance")
			}
		}
	}
	destBalance.Copies += amount
	if _, err := l.balances.Put(db, balanceKey(dest, tokenID), &destBalance); err != nil {
		return errors.Wrap(err, "update destination balance")
	}

	switch err := l.holders.Has(db, dest); {
	case err == nil:
	case errors.ErrNotFound.Is(err):
		holder := KnownHolder{Metadata: &weave.Metadata{Schema: 1}, Address: dest}
		if _, err := l.holders.Put(db, dest, &holder); err != nil {
			return errors.Wrap(err, "mark holder")
		}
	default:
		return errors.Wrap(err, "holder lookup")
	}
	return nil
}

// Balance returns the number of copies an account holds. A missing entry
// reports zero.
func (l *Ledger) Balance(db weave.ReadOnlyKVStore, holder weave.Address, tokenID string) (uint64, error) {
	var b Balance
	switch err := l.balances.One(db, balanceKey(holder, tokenID), &b); {
	case err == nil:
		return b.Copies, nil
	case errors.ErrNotFound.Is(err):
		return 0, nil
	default:
		return 0, errors.Wrap(err, "balance")
	}
}

// SetApproval overwrites the allowance a spender has for one class of the
// owner. The previous value does not matter. A zero amount removes the
// entry.
func (l *Ledger) SetApproval(db weave.KVStore, owner weave.Address, spender weave.Address, tokenID string, amount uint64) error {
	key := approvalKey(owner, spender, tokenID)
	if amount == 0 {
		switch err := l.approvals.Delete(db, key); {
		case err == nil, errors.ErrNotFound.Is(err):
			return nil
		default:
			return errors.Wrap(err, "delete approval")
		}
	}
	approval := Approval{Metadata: &weave.Metadata{Schema: 1}, Allowance: amount}
	if _, err := l.approvals.Put(db, key, &approval); err != nil {
		return errors.Wrap(err, "store approval")
	}
	return nil
}

// RevokeApproval removes an allowance entry. It reports whether an entry
// existed, revoking an absent allowance is not an error.
func (l *Ledger) RevokeApproval(db weave.KVStore, owner weave.Address, spender weave.Address, tokenID string) (bool, error) {
	switch err := l.approvals.Delete(db, approvalKey(owner, spender, tokenID)); {
	case err == nil:
		return true, nil
	case errors.ErrNotFound.Is(err):
		return false, nil
	default:
		return false, errors.Wrap(err, "delete approval")
	}
}

// ConsumeApproval spends part of an allowance and returns what remains. The
// entry is deleted when fully used up.
func (l *Ledger) ConsumeApproval(db weave.KVStore, owner weave.Address, spender weave.Address, tokenID string, amount uint64) (uint64, error) {
	key := approvalKey(owner, spender, tokenID)
	var approval Approval
	if err := l.approvals.One(db, key, &approval); err != nil {
		if errors.ErrNotFound.Is(err) {
			return 0, errors.Wrapf(ErrNoApproval, "spender %s, token class %q", spender, tokenID)
		}
		return 0, errors.Wrap(err, "approval")
	}
	if approval.Allowance < amount {
		return 0, errors.Wrapf(ErrInsufficientAllowance, "approved %d copies of %q, want %d", approval.Allowance, tokenID, amount)
	}
	left := approval.Allowance - amount
	if left == 0 {
		if err := l.approvals.Delete(db, key); err != nil {
			return 0, errors.Wrap(err, "delete exhausted approval")
		}
		return 0, nil
	}
	approval.Allowance = left
	if _, err := l.approvals.Put(db, key, &approval); err != nil {
		return 0, errors.Wrap(err, "update approval")
	}
	return left, nil
}

// Allowance returns the number of copies a spender may move for the owner.
// A missing entry reports zero.
func (l *Ledger) Allowance(db weave.ReadOnlyKVStore, owner weave.Address, spender weave.Address, tokenID string) (uint64, error) {
	var approval Approval
	switch err := l.approvals.One(db, approvalKey(owner, spender, tokenID), &approval); {
	case err == nil:
		return approval.Allowance, nil
	case errors.ErrNotFound.Is(err):
		return 0, nil
	default:
		return 0, errors.Wrap(err, "approval")
	}
}
