package sft

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
	"github.com/iov-one/weave/orm"
)

func init() {
	migration.MustRegister(1, &TokenInfo{}, migration.NoModification)
	migration.MustRegister(1, &TokenSupply{}, migration.NoModification)
	migration.MustRegister(1, &Balance{}, migration.NoModification)
	migration.MustRegister(1, &Approval{}, migration.NoModification)
	migration.MustRegister(1, &KnownHolder{}, migration.NoModification)
}

// maxTokenIDSize bounds the class identifier so that composite storage keys
// stay small.
const maxTokenIDSize = 128

func validateTokenID(tokenID string) error {
	if tokenID == "" {
		return errors.Wrap(errors.ErrEmpty, "token id")
	}
	if len(tokenID) > maxTokenIDSize {
		return errors.Wrapf(errors.ErrInput, "token id longer than %d characters", maxTokenIDSize)
	}
	return nil
}

var _ orm.CloneableData = (*TokenInfo)(nil)

func (t *TokenInfo) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", t.Metadata.Validate())
	if t.Title == "" {
		errs = errors.Append(errs, errors.Field("Title", errors.ErrModel, "required"))
	}
	if t.Description == "" {
		errs = errors.Append(errs, errors.Field("Description", errors.ErrModel, "required"))
	}
	if t.Media == "" {
		errs = errors.Append(errs, errors.Field("Media", errors.ErrModel, "required"))
	}
	if len(t.MediaHash) == 0 {
		errs = errors.Append(errs, errors.Field("MediaHash", errors.ErrModel, "required"))
	}
	errs = errors.AppendField(errs, "PricePerUnit", t.PricePerUnit.Validate())
	if !t.PricePerUnit.IsNonNegative() {
		errs = errors.Append(errs, errors.Field("PricePerUnit", errors.ErrModel, "negative price"))
	}
	if t.CoverPhoto == "" {
		errs = errors.Append(errs, errors.Field("CoverPhoto", errors.ErrModel, "required"))
	}
	errs = errors.AppendField(errs, "Creator", t.Creator.Validate())
	return errs
}

func (t *TokenInfo) Copy() orm.CloneableData {
	return &TokenInfo{
		Metadata:     t.Metadata.Copy(),
		Title:        t.Title,
		Description:  t.Description,
		Media:        t.Media,
		MediaHash:    t.MediaHash,
		PricePerUnit: *t.PricePerUnit.Clone(),
		CoverPhoto:   t.CoverPhoto,
		Creator:      t.Creator.Clone(),
	}
}

var _ orm.CloneableData = (*TokenSupply)(nil)

// Validate allows a zero total. A class registered together with its first
// mint passes through the zero state before the copies are credited.
func (t *TokenSupply) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", t.Metadata.Validate())
	return errs
}

func (t *TokenSupply) Copy() orm.CloneableData {
	return &TokenSupply{
		Metadata: t.Metadata.Copy(),
		Total:    t.Total,
	}
}

var _ orm.CloneableData = (*Balance)(nil)

// Validate rejects a zero amount. A balance entry exists only while copies
// are held, zero balances are deleted instead of stored.
func (b *Balance) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", b.Metadata.Validate())
	if b.Copies == 0 {
		errs = errors.Append(errs, errors.Field("Copies", errors.ErrModel, "empty balance must not be stored"))
	}
	return errs
}

func (b *Balance) Copy() orm.CloneableData {
	return &Balance{
		Metadata: b.Metadata.Copy(),
		Copies:   b.Copies,
	}
}

var _ orm.CloneableData = (*Approval)(nil)

// Validate rejects a zero allowance. Revoked or exhausted approvals are
// deleted instead of stored.
func (a *Approval) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", a.Metadata.Validate())
	if a.Allowance == 0 {
		errs = errors.Append(errs, errors.Field("Allowance", errors.ErrModel, "empty allowance must not be stored"))
	}
	return errs
}

func (a *Approval) Copy() orm.CloneableData {
	return &Approval{
		Metadata:  a.Metadata.Copy(),
		Allowance: a.Allowance,
	}
}

var _ orm.CloneableData = (*KnownHolder)(nil)

func (h *KnownHolder) Validate() error {
	var errs error
	errs = errors.AppendField(errs, "Metadata", h.Metadata.Validate())
	errs = errors.AppendField(errs, "Address", h.Address.Validate())
	return errs
}

func (h *KnownHolder) Copy() orm.CloneableData {
	return &KnownHolder{
		Metadata: h.Metadata.Copy(),
		Address:  h.Address.Clone(),
	}
}

// balanceKey is the primary key of a Balance entry. The holder address comes
// first so that one account's whole inventory is a single prefix scan.
func balanceKey(holder weave.Address, tokenID string) []byte {
	key := make([]byte, 0, len(holder)+len(tokenID))
	key = append(key, holder...)
	return append(key, tokenID...)
}

// approvalKey is the primary key of an Approval entry. Both addresses are of
// fixed length, the variable length token id goes last so that keys cannot
// collide.
func approvalKey(owner weave.Address, spender weave.Address, tokenID string) []byte {
	key := make([]byte, 0, len(owner)+len(spender)+len(tokenID))
	key = append(key, owner...)
	key = append(key, spender...)
	return append(key, tokenID...)
}

// NewTokenInfoBucket returns a bucket for keeping token class metadata,
// keyed by token id.
func NewTokenInfoBucket() orm.ModelBucket {
	b := orm.NewModelBucket("token", &TokenInfo{})
	return migration.NewModelBucket("sft", b)
}

// NewTokenSupplyBucket returns a bucket for keeping the total supply of each
// token class, keyed by token id.
func NewTokenSupplyBucket() orm.ModelBucket {
	b := orm.NewModelBucket("supply", &TokenSupply{})
	return migration.NewModelBucket("sft", b)
}

// NewBalanceBucket returns a bucket for keeping per account copy balances.
func NewBalanceBucket() orm.ModelBucket {
	b := orm.NewModelBucket("balance", &Balance{})
	return migration.NewModelBucket("sft", b)
}

// NewApprovalBucket returns a bucket for keeping allowances granted by
// owners to spenders.
func NewApprovalBucket() orm.ModelBucket {
	b := orm.NewModelBucket("approval", &Approval{})
	return migration.NewModelBucket("sft", b)
}

// NewKnownHolderBucket returns a bucket marking every account that ever
// received copies, keyed by address.
func NewKnownHolderBucket() orm.ModelBucket {
	b := orm.NewModelBucket("holder", &KnownHolder{})
	return migration.NewModelBucket("sft", b)
}
