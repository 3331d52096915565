package ingest

import "errors"

// ReferencePolicy controls how a record kind treats its warehouse reference
type ReferencePolicy int

const (
	// PolicyNone skips reference validation (master-data kinds)
	PolicyNone ReferencePolicy = iota
	// PolicyRequired rejects records with a blank or unknown reference
	PolicyRequired
	// PolicyOptional admits blank references as-is but rejects unknown ones
	PolicyOptional
)

// Rejection reasons surfaced to callers. Callers use these together with
// the invalid-code list to repair upstream mappings.
const (
	ReasonMissingReference = "missing required field"
	ReasonUnknownReference = "reference code not found"
)

// PolicyFor returns the reference policy for a data kind. Inventory rows
// must land in a known warehouse; order lines may omit the warehouse.
func PolicyFor(kind DataKind) ReferencePolicy {
	switch kind {
	case KindInventory:
		return PolicyRequired
	case KindSalesOrders, KindPurchaseOrders:
		return PolicyOptional
	default:
		return PolicyNone
	}
}

// referenceFieldName is the raw field carrying the reference code
const referenceFieldName = "warehouse_code"

// OutcomeStatus tags the result of validating one record
type OutcomeStatus int

const (
	// StatusAdmitted means the record is normalized and eligible for persistence
	StatusAdmitted OutcomeStatus = iota
	// StatusRejected means the reference check failed; the record is excluded
	StatusRejected
	// StatusMalformed means the record could not be normalized (hard error)
	StatusMalformed
)

// Outcome is the result of validating a single record. Every input record
// yields exactly one outcome.
type Outcome struct {
	Status OutcomeStatus
	// Record is the normalized record; set only when Status is StatusAdmitted
	Record NormalizedRecord
	// Reference is the offending reference value; set when Status is StatusRejected
	Reference string
	// Reason is the rejection reason or hard-error description
	Reason string
	// Keys are the record's natural-key fields, for the rejection sample
	Keys map[string]string
}

// Validate decides admit/reject for one record against one resolved
// reference set, then normalizes on admit. Reference failures and
// normalization failures are distinct outcomes: the former indicate missing
// master data, the latter broken field mappings.
func Validate(kind DataKind, raw RawRecord, refs *ReferenceSet) Outcome {
	policy := PolicyFor(kind)
	ref := stringField(raw, referenceFieldName)

	switch policy {
	case PolicyRequired:
		if ref == "" {
			return Outcome{
				Status:    StatusRejected,
				Reference: ref,
				Reason:    ReasonMissingReference,
				Keys:      rawKeys(kind, raw),
			}
		}
		if !refs.Contains(ref) {
			return Outcome{
				Status:    StatusRejected,
				Reference: ref,
				Reason:    ReasonUnknownReference,
				Keys:      rawKeys(kind, raw),
			}
		}
	case PolicyOptional:
		if ref != "" && !refs.Contains(ref) {
			return Outcome{
				Status:    StatusRejected,
				Reference: ref,
				Reason:    ReasonUnknownReference,
				Keys:      rawKeys(kind, raw),
			}
		}
	}

	record, err := Normalize(kind, raw)
	if err != nil {
		return Outcome{
			Status: StatusMalformed,
			Reason: err.Error(),
			Keys:   rawKeys(kind, raw),
		}
	}
	return Outcome{Status: StatusAdmitted, Record: record, Keys: record.BusinessKey()}
}

// rawKeys extracts whatever natural-key fields are present on a record that
// failed before normalization
func rawKeys(kind DataKind, raw RawRecord) map[string]string {
	keys := make(map[string]string)
	switch kind {
	case KindInventory:
		keys["item_code"] = stringField(raw, "item_code")
	case KindSalesOrders, KindPurchaseOrders:
		keys["order_id"] = stringField(raw, "order_id")
		keys["item_code"] = stringField(raw, "item_code")
	default:
		keys["item_code"] = stringField(raw, "item_code")
	}
	return keys
}

// IsMalformed reports whether err is a hard normalization error
func IsMalformed(err error) bool {
	var me *MalformedRecordError
	return errors.As(err, &me)
}
