package sft

import (
	"github.com/iov-one/weave/errors"
)

var (
	// ErrClassExists is returned when minting declares metadata for a
	// token class that was already registered.
	ErrClassExists = errors.Register(1400, "token class exists")

	// ErrInsufficientCopies is returned when an account holds fewer
	// copies than a move requires.
	ErrInsufficientCopies = errors.Register(1401, "insufficient copies")

	// ErrNoApproval is returned when a delegated move finds no allowance
	// entry for the spender.
	ErrNoApproval = errors.Register(1402, "no approval")

	// ErrInsufficientAllowance is returned when an allowance entry exists
	// but covers fewer copies than requested.
	ErrInsufficientAllowance = errors.Register(1403, "insufficient allowance")

	// ErrInsufficientDeposit is returned when the attached payment does
	// not cover the storage cost of a call.
	ErrInsufficientDeposit = errors.Register(1404, "insufficient storage deposit")

	// ErrInsufficientPayment is returned when a market purchase attaches
	// less than the class price.
	ErrInsufficientPayment = errors.Register(1405, "insufficient payment")

	// ErrGuard is returned when a call does not attach exactly the
	// configured transfer guard payment.
	ErrGuard = errors.Register(1406, "transfer guard payment mismatch")
)
