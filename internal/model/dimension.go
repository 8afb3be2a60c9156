package model

// UnknownCode is the reserved business code every dimension is seeded
// with. Codes absent from the seed set resolve to its surrogate key when
// the map-to-unknown policy is active.
const UnknownCode = 0

// DimensionEntry is one seeded reference row: business code → name,
// identified by its surrogate key.
type DimensionEntry struct {
	Key  int64  `json:"key"`
	Code int    `json:"code"`
	Name string `json:"name"`
}

// DimensionSnapshot is an immutable code→surrogate-key view of the three
// reference dimensions, loaded once per batch at transform start. It is
// passed by value through the transformer so concurrent runs stay
// independent; nothing writes to it after load.
type DimensionSnapshot struct {
	Vendors      map[int]int64
	RateCodes    map[int]int64
	PaymentTypes map[int]int64
}

// VendorKey resolves a vendor business code. ok is false when the code
// is not in the seed set.
func (s *DimensionSnapshot) VendorKey(code int) (int64, bool) {
	k, ok := s.Vendors[code]
	return k, ok
}

// RateCodeKey resolves a rate-code business code.
func (s *DimensionSnapshot) RateCodeKey(code int) (int64, bool) {
	k, ok := s.RateCodes[code]
	return k, ok
}

// PaymentTypeKey resolves a payment-type business code.
func (s *DimensionSnapshot) PaymentTypeKey(code int) (int64, bool) {
	k, ok := s.PaymentTypes[code]
	return k, ok
}
