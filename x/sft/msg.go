package sft

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/coin"
	"github.com/iov-one/weave/errors"
	"github.com/iov-one/weave/migration"
)

func init() {
	// Migration needs to be registered for every message introduced in the
	// codec. This is the convention to message versioning.
	migration.MustRegister(1, &MintMsg{}, migration.NoModification)
	migration.MustRegister(1, &TransferMsg{}, migration.NoModification)
	migration.MustRegister(1, &ApproveMsg{}, migration.NoModification)
	migration.MustRegister(1, &RevokeMsg{}, migration.NoModification)
	migration.MustRegister(1, &TransferFromMsg{}, migration.NoModification)
	migration.MustRegister(1, &MarketBuyMsg{}, migration.NoModification)
	migration.MustRegister(1, &UpdateConfigurationMsg{}, migration.NoModification)
}

const (
	pathMint                = "sft/mint"
	pathTransfer            = "sft/transfer"
	pathApprove             = "sft/approve"
	pathRevoke              = "sft/revoke"
	pathTransferFrom        = "sft/transfer_from"
	pathMarketBuy           = "sft/market_buy"
	pathUpdateConfiguration = "sft/update_configuration"

	maxMemoSize = 128
)

var _ weave.Msg = (*MintMsg)(nil)
var _ weave.Msg = (*TransferMsg)(nil)
var _ weave.Msg = (*ApproveMsg)(nil)
var _ weave.Msg = (*RevokeMsg)(nil)
var _ weave.Msg = (*TransferFromMsg)(nil)
var _ weave.Msg = (*MarketBuyMsg)(nil)
var _ weave.Msg = (*UpdateConfigurationMsg)(nil)

// ROUTING, Path method fulfills weave.Msg interface to allow routing

func (MintMsg) Path() string {
	return pathMint
}

func (TransferMsg) Path() string {
	return pathTransfer
}

func (ApproveMsg) Path() string {
	return pathApprove
}

func (RevokeMsg) Path() string {
	return pathRevoke
}

func (TransferFromMsg) Path() string {
	return pathTransferFrom
}

func (MarketBuyMsg) Path() string {
	return pathMarketBuy
}

func (UpdateConfigurationMsg) Path() string {
	return pathUpdateConfiguration
}

// VALIDATION, Validate method makes sure basic rules are enforced upon input
// data and fulfills weave.Msg interface

func (m *MintMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := validateTokenID(m.TokenId); err != nil {
		return err
	}
	if m.Amount == 0 {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	if err := m.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if m.Details != nil {
		if err := m.Details.Validate(); err != nil {
			return errors.Wrap(err, "details")
		}
	}
	return validatePayment(m.Payment)
}

// Validate enforces the all-or-nothing rule. Either the whole class
// description is provided or the details payload is left out entirely.
func (d *TokenDetails) Validate() error {
	if d.Title == "" {
		return errors.Wrap(errors.ErrEmpty, "title")
	}
	if d.Description == "" {
		return errors.Wrap(errors.ErrEmpty, "description")
	}
	if d.Media == "" {
		return errors.Wrap(errors.ErrEmpty, "media")
	}
	if len(d.MediaHash) == 0 {
		return errors.Wrap(errors.ErrEmpty, "media hash")
	}
	if err := d.PricePerUnit.Validate(); err != nil {
		return errors.Wrap(err, "price per unit")
	}
	if !d.PricePerUnit.IsNonNegative() {
		return errors.Wrap(errors.ErrAmount, "negative price per unit")
	}
	if d.CoverPhoto == "" {
		return errors.Wrap(errors.ErrEmpty, "cover photo")
	}
	return nil
}

func (m *TransferMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := m.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := m.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	if m.Source.Equals(m.Destination) {
		return errors.Wrap(errors.ErrInput, "source and destination are the same")
	}
	if err := validateTokenID(m.TokenId); err != nil {
		return err
	}
	if m.Amount == 0 {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	if len(m.Memo) > maxMemoSize {
		return errors.Wrapf(errors.ErrInput, "memo %s", m.Memo)
	}
	return validatePayment(m.Payment)
}

func (m *ApproveMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := m.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := m.Spender.Validate(); err != nil {
		return errors.Wrap(err, "spender")
	}
	if m.Source.Equals(m.Spender) {
		return errors.Wrap(errors.ErrInput, "cannot approve self")
	}
	if err := validateTokenID(m.TokenId); err != nil {
		return err
	}
	return validatePayment(m.Payment)
}

func (m *RevokeMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := m.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := m.Spender.Validate(); err != nil {
		return errors.Wrap(err, "spender")
	}
	if err := validateTokenID(m.TokenId); err != nil {
		return err
	}
	return validatePayment(m.Payment)
}

func (m *TransferFromMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := m.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := m.Owner.Validate(); err != nil {
		return errors.Wrap(err, "owner")
	}
	if err := m.Destination.Validate(); err != nil {
		return errors.Wrap(err, "destination")
	}
	// All three participants must be distinct.
	if m.Owner.Equals(m.Destination) {
		return errors.Wrap(errors.ErrInput, "owner and destination are the same")
	}
	if m.Source.Equals(m.Destination) {
		return errors.Wrap(errors.ErrInput, "spender and destination are the same")
	}
	if m.Source.Equals(m.Owner) {
		return errors.Wrap(errors.ErrInput, "spender and owner are the same")
	}
	if err := validateTokenID(m.TokenId); err != nil {
		return err
	}
	if m.Amount == 0 {
		return errors.Wrap(errors.ErrAmount, "amount must be positive")
	}
	if len(m.Memo) > maxMemoSize {
		return errors.Wrapf(errors.ErrInput, "memo %s", m.Memo)
	}
	return validatePayment(m.Payment)
}

func (m *MarketBuyMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if err := m.Source.Validate(); err != nil {
		return errors.Wrap(err, "source")
	}
	if err := m.Seller.Validate(); err != nil {
		return errors.Wrap(err, "seller")
	}
	if m.Source.Equals(m.Seller) {
		return errors.Wrap(errors.ErrInput, "cannot buy from self")
	}
	if err := validateTokenID(m.TokenId); err != nil {
		return err
	}
	return validatePayment(m.Payment)
}

func (m *UpdateConfigurationMsg) Validate() error {
	if err := m.Metadata.Validate(); err != nil {
		return errors.Wrap(err, "metadata")
	}
	if m.Patch == nil {
		return errors.Wrap(errors.ErrEmpty, "patch")
	}
	return m.Patch.Validate()
}

// validatePayment makes sure an attached payment is a well formed,
// non-negative coin. A zero value means no payment and is always accepted.
func validatePayment(payment coin.Coin) error {
	if payment.IsZero() {
		return nil
	}
	if err := payment.Validate(); err != nil {
		return errors.Wrap(err, "payment")
	}
	if !payment.IsNonNegative() {
		return errors.Wrap(errors.ErrAmount, "negative payment")
	}
	return nil
}
