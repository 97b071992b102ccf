package sft

import (
	"testing"

	"github.com/iov-one/weave/errors"
)

func TestErrorsRegistration(t *testing.T) {
	// Codes must stay clear of the framework's reserved range and of
	// each other, and every error must match its wrapped form.
	cases := map[string]struct {
		err      *errors.Error
		wantCode uint32
	}{
		"class exists":           {ErrClassExists, 1400},
		"insufficient copies":    {ErrInsufficientCopies, 1401},
		"no approval":            {ErrNoApproval, 1402},
		"insufficient allowance": {ErrInsufficientAllowance, 1403},
		"insufficient deposit":   {ErrInsufficientDeposit, 1404},
		"insufficient payment":   {ErrInsufficientPayment, 1405},
		"guard":                  {ErrGuard, 1406},
	}
	seen := make(map[uint32]string, len(cases))
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := tc.err.ABCICode(); got != tc.wantCode {
				t.Fatalf("unexpected code: %d", got)
			}
			if prev, ok := seen[tc.wantCode]; ok {
				t.Fatalf("code taken by %q", prev)
			}
			seen[tc.wantCode] = testName
			if !tc.err.Is(errors.Wrap(tc.err, "wrapped")) {
				t.Fatal("wrapped error must match")
			}
			if tc.err.Is(errors.ErrNotFound) {
				t.Fatal("must not match a framework error")
			}
		})
	}
}
