package sft

import (
	"github.com/iov-one/weave"
	"github.com/iov-one/weave/errors"
)

// Raw storage prefixes of the package buckets. Custom views below iterate
// the store directly and return entries under their full storage keys, the
// same way bucket based queries do.
var (
	balancePrefix = []byte("balance:")
	tokenPrefix   = []byte("token:")
	approvalRaw   = []byte("approval:")
	holderPrefix  = []byte("holder:")
)

// maxClassPage bounds a single page of the class listing.
const maxClassPage = 100

// RegisterViews registers the read-only views that cannot be expressed as
// plain bucket lookups.
func RegisterViews(qr weave.QueryRouter) {
	qr.Register("/sft/inventory", InventoryQuery{})
	qr.Register("/sft/market", ApprovedSellersQuery{})
	qr.Register("/sft/classes", ClassListQuery{})
	qr.Register("/sft/owners", HolderListQuery{})
}

var _ weave.QueryHandler = InventoryQuery{}

// InventoryQuery lists every balance entry of one account, over all token
// classes. The request data is the raw account address.
type InventoryQuery struct{}

func (InventoryQuery) Query(db weave.ReadOnlyKVStore, mod string, data []byte) ([]weave.Model, error) {
	holder := weave.Address(data)
	if err := holder.Validate(); err != nil {
		return nil, errors.Wrap(err, "holder address")
	}
	prefix := make([]byte, 0, len(balancePrefix)+len(holder))
	prefix = append(prefix, balancePrefix...)
	prefix = append(prefix, holder...)
	return collectPrefix(db, prefix, 0, 0)
}

var _ weave.QueryHandler = ApprovedSellersQuery{}

// ApprovedSellersQuery filters the given candidate sellers down to those
// that granted the marketplace account an allowance for the class. The
// request data is a serialized ApprovedSellersRequest.
type ApprovedSellersQuery struct{}

func (ApprovedSellersQuery) Query(db weave.ReadOnlyKVStore, mod string, data []byte) ([]weave.Model, error) {
	var req ApprovedSellersRequest
	if err := req.Unmarshal(data); err != nil {
		return nil, errors.Wrap(err, "unmarshal request")
	}
	if err := validateTokenID(req.TokenId); err != nil {
		return nil, err
	}
	conf, err := loadConf(db)
	if err != nil {
		return nil, err
	}
	var res []weave.Model
	for _, seller := range req.Sellers {
		if err := weave.Address(seller).Validate(); err != nil {
			return nil, errors.Wrap(err, "seller address")
		}
		key := approvalKey(weave.Address(seller), conf.Market, req.TokenId)
		raw := make([]byte, 0, len(approvalRaw)+len(key))
		raw = append(raw, approvalRaw...)
		raw = append(raw, key...)
		value, err := db.Get(raw)
		if err != nil {
			return nil, errors.Wrap(err, "approval lookup")
		}
		if value == nil {
			continue
		}
		res = append(res, weave.Pair(raw, value))
	}
	return res, nil
}

var _ weave.QueryHandler = ClassListQuery{}

// ClassListQuery pages through all registered token classes. The request
// data is a serialized ClassPageRequest, a zero value returns the first
// page.
type ClassListQuery struct{}

func (ClassListQuery) Query(db weave.ReadOnlyKVStore, mod string, data []byte) ([]weave.Model, error) {
	var req ClassPageRequest
	if len(data) != 0 {
		if err := req.Unmarshal(data); err != nil {
			return nil, errors.Wrap(err, "unmarshal request")
		}
	}
	limit := req.Limit
	if limit == 0 || limit > maxClassPage {
		limit = maxClassPage
	}
	return collectPrefix(db, tokenPrefix, req.Offset, limit)
}

var _ weave.QueryHandler = HolderListQuery{}

// HolderListQuery pages through every account that ever received copies,
// in address order. The request data is a serialized ClassPageRequest, a
// zero value returns the first page.
type HolderListQuery struct{}

func (HolderListQuery) Query(db weave.ReadOnlyKVStore, mod string, data []byte) ([]weave.Model, error) {
	var req ClassPageRequest
	if len(data) != 0 {
		if err := req.Unmarshal(data); err != nil {
			return nil, errors.Wrap(err, "unmarshal request")
		}
	}
	limit := req.Limit
	if limit == 0 || limit > maxClassPage {
		limit = maxClassPage
	}
	return collectPrefix(db, holderPrefix, req.Offset, limit)
}

// collectPrefix walks all entries under a storage prefix, skipping offset
// entries and returning at most limit results. A zero limit means no bound.
func collectPrefix(db weave.ReadOnlyKVStore, prefix []byte, offset uint64, limit uint64) ([]weave.Model, error) {
	it, err := db.Iterator(prefixRange(prefix))
	if err != nil {
		return nil, errors.Wrap(err, "iterator")
	}
	defer it.Release()

	var res []weave.Model
	for {
		key, value, err := it.Next()
		switch {
		case err == nil:
		case errors.ErrIteratorDone.Is(err):
			return res, nil
		default:
			return nil, errors.Wrap(err, "iterate")
		}
		if offset > 0 {
			offset--
			continue
		}
		k := append([]byte(nil), key...)
		v := append([]byte(nil), value...)
		res = append(res, weave.Pair(k, v))
		if limit > 0 && uint64(len(res)) >= limit {
			return res, nil
		}
	}
}

// prefixRange turns a prefix into a (start, end) iterator range. The end is
// the shortest key greater than every key with the prefix, or nil if the
// prefix is all 0xff.
func prefixRange(prefix []byte) ([]byte, []byte) {
	if len(prefix) == 0 {
		return nil, nil
	}
	end := make([]byte, len(prefix))
	copy(end, prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] < 0xff {
			end[i]++
			return prefix, end[:i+1]
		}
	}
	return prefix, nil
}
