package pipeline

import (
	"strings"

	"taxi-warehouse-pipeline/internal/model"
	"taxi-warehouse-pipeline/pkg/parse"
)

// Field names as they appear in the raw extract, used in rejection
// records.
const (
	fieldVendorID             = "vendorid"
	fieldPickupDatetime       = "tpep_pickup_datetime"
	fieldDropoffDatetime      = "tpep_dropoff_datetime"
	fieldPassengerCount       = "passenger_count"
	fieldTripDistance         = "trip_distance"
	fieldRateCodeID           = "ratecodeid"
	fieldStoreAndFwdFlag      = "store_and_fwd_flag"
	fieldPULocationID         = "pulocationid"
	fieldDOLocationID         = "dolocationid"
	fieldPaymentType          = "payment_type"
	fieldFareAmount           = "fare_amount"
	fieldExtra                = "extra"
	fieldMTATax               = "mta_tax"
	fieldTipAmount            = "tip_amount"
	fieldTollsAmount          = "tolls_amount"
	fieldImprovementSurcharge = "improvement_surcharge"
	fieldTotalAmount          = "total_amount"
	fieldCongestionSurcharge  = "congestion_surcharge"
)

// Bounds from the reference trip schema.
const (
	maxPassengerCount = 9
	maxTripDistance   = 500 // miles; beyond this the row is noise
	minLocationID     = 1
	maxLocationID     = 265
)

// ValidateTrips applies the validation rules to each staged row and
// returns one outcome per input, in input order. No row is ever dropped:
// it either becomes a TypedTripRecord or a Rejection. Rules run in a
// fixed order (presence, then parseability, then ranges) so the first
// failing rule alone determines the rejection reason.
func ValidateTrips(rc *RunContext, raws []model.RawTripRecord) []model.ValidationOutcome {
	outcomes := make([]model.ValidationOutcome, 0, len(raws))
	for _, raw := range raws {
		trip, rej := validateTrip(raw)
		if rej != nil {
			rc.RowRejected()
			outcomes = append(outcomes, model.ValidationOutcome{Reject: rej})
			continue
		}
		rc.RowPassed()
		outcomes = append(outcomes, model.ValidationOutcome{Trip: trip})
	}
	return outcomes
}

func validateTrip(raw model.RawTripRecord) (*model.TypedTripRecord, *model.Rejection) {
	// 1. Required-field presence.
	required := []struct {
		value string
		field string
	}{
		{raw.PickupDatetime, fieldPickupDatetime},
		{raw.DropoffDatetime, fieldDropoffDatetime},
		{raw.PULocationID, fieldPULocationID},
		{raw.DOLocationID, fieldDOLocationID},
	}
	for _, r := range required {
		if isBlank(r.value) {
			return nil, rejectRaw(raw, model.ReasonMissingField, r.field)
		}
	}

	// 2. Type parseability, in schema order.
	var (
		trip model.TypedTripRecord
		err  error
	)
	if trip.VendorID, err = parse.Int(raw.VendorID); err != nil {
		return nil, rejectRaw(raw, model.ReasonMalformedValue, fieldVendorID)
	}
	if trip.PickupDatetime, err = parse.Timestamp(raw.PickupDatetime); err != nil {
		return nil, rejectRaw(raw, model.ReasonMalformedValue, fieldPickupDatetime)
	}
	if trip.DropoffDatetime, err = parse.Timestamp(raw.DropoffDatetime); err != nil {
		return nil, rejectRaw(raw, model.ReasonMalformedValue, fieldDropoffDatetime)
	}
	if trip.PassengerCount, err = parse.Int(raw.PassengerCount); err != nil {
		return nil, rejectRaw(raw, model.ReasonMalformedValue, fieldPassengerCount)
	}
	if trip.TripDistance, err = parse.Decimal(raw.TripDistance); err != nil {
		return nil, rejectRaw(raw, model.ReasonMalformedValue, fieldTripDistance)
	}
	if trip.RateCodeID, err = parse.Int(raw.RateCodeID); err != nil {
		return nil, rejectRaw(raw, model.ReasonMalformedValue, fieldRateCodeID)
	}
	if trip.StoreAndFwdFlag, err = parse.Flag(raw.StoreAndFwdFlag); err != nil {
		return nil, rejectRaw(raw, model.ReasonMalformedValue, fieldStoreAndFwdFlag)
	}
	if trip.PULocationID, err = parse.Int(raw.PULocationID); err != nil {
		return nil, rejectRaw(raw, model.ReasonMalformedValue, fieldPULocationID)
	}
	if trip.DOLocationID, err = parse.Int(raw.DOLocationID); err != nil {
		return nil, rejectRaw(raw, model.ReasonMalformedValue, fieldDOLocationID)
	}
	if trip.PaymentType, err = parse.Int(raw.PaymentType); err != nil {
		return nil, rejectRaw(raw, model.ReasonMalformedValue, fieldPaymentType)
	}
	amounts := []struct {
		src   string
		dst   *float64
		field string
	}{
		{raw.FareAmount, &trip.FareAmount, fieldFareAmount},
		{raw.Extra, &trip.Extra, fieldExtra},
		{raw.MTATax, &trip.MTATax, fieldMTATax},
		{raw.TipAmount, &trip.TipAmount, fieldTipAmount},
		{raw.TollsAmount, &trip.TollsAmount, fieldTollsAmount},
		{raw.ImprovementSurcharge, &trip.ImprovementSurcharge, fieldImprovementSurcharge},
		{raw.TotalAmount, &trip.TotalAmount, fieldTotalAmount},
		{raw.CongestionSurcharge, &trip.CongestionSurcharge, fieldCongestionSurcharge},
	}
	for _, a := range amounts {
		if *a.dst, err = parse.Decimal(a.src); err != nil {
			return nil, rejectRaw(raw, model.ReasonMalformedValue, a.field)
		}
	}

	// 3. Domain ranges, in schema order. Dimension existence for
	// vendor/rate/payment codes is resolved by the transformer, not here.
	if trip.PassengerCount < 0 || trip.PassengerCount > maxPassengerCount {
		return nil, rejectRaw(raw, model.ReasonOutOfRange, fieldPassengerCount)
	}
	if trip.TripDistance < 0 || trip.TripDistance > maxTripDistance {
		return nil, rejectRaw(raw, model.ReasonOutOfRange, fieldTripDistance)
	}
	if trip.PULocationID < minLocationID || trip.PULocationID > maxLocationID {
		return nil, rejectRaw(raw, model.ReasonOutOfRange, fieldPULocationID)
	}
	if trip.DOLocationID < minLocationID || trip.DOLocationID > maxLocationID {
		return nil, rejectRaw(raw, model.ReasonOutOfRange, fieldDOLocationID)
	}
	// Charges must be non-negative; total_amount is free to go negative
	// on refunds and disputes.
	nonNegative := []struct {
		value float64
		field string
	}{
		{trip.FareAmount, fieldFareAmount},
		{trip.Extra, fieldExtra},
		{trip.MTATax, fieldMTATax},
		{trip.TipAmount, fieldTipAmount},
		{trip.TollsAmount, fieldTollsAmount},
		{trip.ImprovementSurcharge, fieldImprovementSurcharge},
		{trip.CongestionSurcharge, fieldCongestionSurcharge},
	}
	for _, c := range nonNegative {
		if c.value < 0 {
			return nil, rejectRaw(raw, model.ReasonOutOfRange, c.field)
		}
	}
	if !trip.DropoffDatetime.After(trip.PickupDatetime) {
		return nil, rejectRaw(raw, model.ReasonOutOfRange, fieldDropoffDatetime)
	}

	trip.SourceFile = raw.SourceFile
	trip.LoadedAt = raw.LoadedAt
	return &trip, nil
}

func rejectRaw(raw model.RawTripRecord, reason model.RejectionReason, field string) *model.Rejection {
	return &model.Rejection{
		Stage:      model.StageValidate,
		Reason:     reason,
		Field:      field,
		SourceFile: raw.SourceFile,
		Record:     raw,
	}
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
