package pipeline

import (
	"math"

	"taxi-warehouse-pipeline/internal/config"
	"taxi-warehouse-pipeline/internal/model"
)

// Transformer resolves dimension surrogate keys and derives the
// analytical metrics for validated trips. The dimension snapshot is
// loaded once per batch and never mutated, so concurrent batch runs stay
// independent.
type Transformer struct {
	dims   *model.DimensionSnapshot
	policy config.UnknownCodePolicy
}

// NewTransformer builds a transformer over an immutable dimension
// snapshot. policy is applied uniformly to all three dimensions.
func NewTransformer(dims *model.DimensionSnapshot, policy config.UnknownCodePolicy) *Transformer {
	return &Transformer{dims: dims, policy: policy}
}

// TransformTrips produces one fact record or one rejection per input
// trip, preserving input order.
func (t *Transformer) TransformTrips(rc *RunContext, trips []model.TypedTripRecord) ([]model.FactTripRecord, []model.Rejection) {
	facts := make([]model.FactTripRecord, 0, len(trips))
	var rejects []model.Rejection
	for _, trip := range trips {
		fact, rej := t.transformTrip(trip)
		if rej != nil {
			rc.RowRejected()
			rejects = append(rejects, *rej)
			continue
		}
		rc.RowPassed()
		facts = append(facts, fact)
	}
	return facts, rejects
}

func (t *Transformer) transformTrip(trip model.TypedTripRecord) (model.FactTripRecord, *model.Rejection) {
	vendorKey, ok := t.resolve(trip.VendorID, t.dims.VendorKey)
	if !ok {
		return model.FactTripRecord{}, rejectTyped(trip, model.ReasonDimensionResolutionFailed, fieldVendorID)
	}
	rateCodeKey, ok := t.resolve(trip.RateCodeID, t.dims.RateCodeKey)
	if !ok {
		return model.FactTripRecord{}, rejectTyped(trip, model.ReasonDimensionResolutionFailed, fieldRateCodeID)
	}
	paymentTypeKey, ok := t.resolve(trip.PaymentType, t.dims.PaymentTypeKey)
	if !ok {
		return model.FactTripRecord{}, rejectTyped(trip, model.ReasonDimensionResolutionFailed, fieldPaymentType)
	}

	// The validator already enforced chronological order; a negative
	// duration here means the record changed between stages. Reject, do
	// not clamp: silent clamping would hide the corruption.
	duration := trip.DropoffDatetime.Sub(trip.PickupDatetime)
	if duration < 0 {
		return model.FactTripRecord{}, rejectTyped(trip, model.ReasonDerivationFailed, fieldDropoffDatetime)
	}

	return model.FactTripRecord{
		VendorKey:            vendorKey,
		RateCodeKey:          rateCodeKey,
		PaymentTypeKey:       paymentTypeKey,
		PickupDatetime:       trip.PickupDatetime,
		DropoffDatetime:      trip.DropoffDatetime,
		PULocationID:         trip.PULocationID,
		DOLocationID:         trip.DOLocationID,
		PassengerCount:       trip.PassengerCount,
		TripDistance:         trip.TripDistance,
		StoreAndFwdFlag:      trip.StoreAndFwdFlag,
		FareAmount:           trip.FareAmount,
		Extra:                trip.Extra,
		MTATax:               trip.MTATax,
		TipAmount:            trip.TipAmount,
		TollsAmount:          trip.TollsAmount,
		ImprovementSurcharge: trip.ImprovementSurcharge,
		TotalAmount:          trip.TotalAmount,
		CongestionSurcharge:  trip.CongestionSurcharge,
		TripDurationMinutes:  int(math.Round(duration.Minutes())),
		TripDate:             trip.PickupDatetime.Format("2006-01-02"),
		SourceFile:           trip.SourceFile,
		LoadedAt:             trip.LoadedAt,
	}, nil
}

// resolve maps a business code to its surrogate key, applying the
// unknown-code policy when the code is not in the seed set.
func (t *Transformer) resolve(code int, lookup func(int) (int64, bool)) (int64, bool) {
	if key, ok := lookup(code); ok {
		return key, true
	}
	if t.policy == config.PolicyMapToUnknown {
		return lookup(model.UnknownCode)
	}
	return 0, false
}

func rejectTyped(trip model.TypedTripRecord, reason model.RejectionReason, field string) *model.Rejection {
	return &model.Rejection{
		Stage:      model.StageTransform,
		Reason:     reason,
		Field:      field,
		SourceFile: trip.SourceFile,
		Record:     trip,
	}
}
