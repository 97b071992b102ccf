/*
Package sft implements a ledger of semi fungible tokens: token classes with
shared metadata whose copies are held in per account balances, like a
multi-class extension of a plain token wallet.

Classes are registered on first mint together with their immutable
description. Copies move between accounts directly, or on behalf of the
owner through overwritable allowances. A marketplace account settles single
copy purchases at the class price using the cash controller for payments.

Calls that grow the state charge a storage deposit proportional to the bytes
written, with the excess refunded unless it is dust. Balance mutating calls
must attach an exact guard payment as a confirmation of intent.
*/
package sft
