package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MalformedRecordError is a hard error: the record cannot be normalized
// (missing key fields or uncoercible values). It is counted separately from
// reference rejections so operators can tell mapping problems from missing
// master data.
type MalformedRecordError struct {
	Field  string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed record: field %q: %s", e.Field, e.Reason)
}

func malformed(field, reason string) error {
	return &MalformedRecordError{Field: field, Reason: reason}
}

// Normalize derives the typed record for kind from raw. It is executed once
// per record at admission time; field-name fallbacks for drifted agent
// schemas live here and nowhere else.
func Normalize(kind DataKind, raw RawRecord) (NormalizedRecord, error) {
	switch kind {
	case KindWarehouses:
		return normalizeWarehouse(raw)
	case KindVendors:
		return normalizeVendor(raw)
	case KindItems:
		return normalizeItem(raw)
	case KindInventory:
		return normalizeInventory(raw)
	case KindSalesOrders:
		return normalizeSalesOrderLine(raw)
	case KindPurchaseOrders:
		return normalizePurchaseOrderLine(raw)
	case KindCosts:
		return normalizeCost(raw)
	case KindPricing:
		return normalizePrice(raw)
	default:
		return nil, ErrUnknownDataKind
	}
}

func normalizeWarehouse(raw RawRecord) (NormalizedRecord, error) {
	code := stringField(raw, "warehouse_code")
	if code == "" {
		return nil, malformed("warehouse_code", "required")
	}
	return &WarehouseRecord{
		Code:     code,
		Name:     stringField(raw, "warehouse_name"),
		IsActive: boolField(raw, "is_active", true),
	}, nil
}

func normalizeVendor(raw RawRecord) (NormalizedRecord, error) {
	code := stringField(raw, "vendor_code")
	if code == "" {
		return nil, malformed("vendor_code", "required")
	}
	return &VendorRecord{
		Code:          code,
		Name:          stringField(raw, "vendor_name"),
		ContactPerson: stringField(raw, "contact_person"),
		Phone:         stringField(raw, "phone"),
		Email:         stringField(raw, "email"),
		IsActive:      boolField(raw, "is_active", true),
	}, nil
}

func normalizeItem(raw RawRecord) (NormalizedRecord, error) {
	code := stringField(raw, "item_code")
	if code == "" {
		return nil, malformed("item_code", "required")
	}
	return &ItemRecord{
		Code:     code,
		Name:     stringField(raw, "item_name"),
		Group:    stringField(raw, "item_group"),
		IsActive: boolField(raw, "is_active", true),
	}, nil
}

func normalizeInventory(raw RawRecord) (NormalizedRecord, error) {
	itemCode := stringField(raw, "item_code")
	if itemCode == "" {
		return nil, malformed("item_code", "required")
	}
	// Older agent builds report the stock level as on_hand_qty
	qty, err := decimalField(raw, "quantity", "on_hand_qty")
	if err != nil {
		return nil, err
	}
	price, err := decimalField(raw, "unit_price", "unit_cost")
	if err != nil {
		return nil, err
	}
	return &InventoryRecord{
		ItemCode:      itemCode,
		WarehouseCode: stringField(raw, "warehouse_code"),
		Quantity:      qty,
		UnitPrice:     price,
	}, nil
}

func normalizeSalesOrderLine(raw RawRecord) (NormalizedRecord, error) {
	orderID, err := intField(raw, "order_id")
	if err != nil {
		return nil, err
	}
	orderDate, err := dateField(raw, "order_date")
	if err != nil {
		return nil, err
	}
	qty, err := decimalField(raw, "quantity")
	if err != nil {
		return nil, err
	}
	price, err := decimalField(raw, "unit_price")
	if err != nil {
		return nil, err
	}
	total, err := decimalField(raw, "line_total")
	if err != nil {
		return nil, err
	}
	return &SalesOrderLine{
		OrderID:       orderID,
		OrderDate:     orderDate,
		CustomerCode:  stringField(raw, "customer_code"),
		ItemCode:      stringField(raw, "item_code"),
		WarehouseCode: stringField(raw, "warehouse_code"),
		Quantity:      qty,
		UnitPrice:     price,
		LineTotal:     total,
	}, nil
}

func normalizePurchaseOrderLine(raw RawRecord) (NormalizedRecord, error) {
	orderID, err := intField(raw, "order_id")
	if err != nil {
		return nil, err
	}
	orderDate, err := dateField(raw, "order_date")
	if err != nil {
		return nil, err
	}
	qty, err := decimalField(raw, "quantity")
	if err != nil {
		return nil, err
	}
	price, err := decimalField(raw, "unit_price")
	if err != nil {
		return nil, err
	}
	total, err := decimalField(raw, "line_total")
	if err != nil {
		return nil, err
	}
	return &PurchaseOrderLine{
		OrderID:       orderID,
		OrderDate:     orderDate,
		VendorCode:    stringField(raw, "vendor_code"),
		ItemCode:      stringField(raw, "item_code"),
		WarehouseCode: stringField(raw, "warehouse_code"),
		Quantity:      qty,
		UnitPrice:     price,
		LineTotal:     total,
	}, nil
}

func normalizeCost(raw RawRecord) (NormalizedRecord, error) {
	itemCode := stringField(raw, "item_code")
	if itemCode == "" {
		return nil, malformed("item_code", "required")
	}
	costDate, err := dateField(raw, "cost_date")
	if err != nil {
		return nil, err
	}
	avg, err := decimalField(raw, "avg_cost")
	if err != nil {
		return nil, err
	}
	last, err := decimalField(raw, "last_cost")
	if err != nil {
		return nil, err
	}
	return &CostRecord{
		ItemCode: itemCode,
		CostDate: costDate,
		AvgCost:  avg,
		LastCost: last,
	}, nil
}

func normalizePrice(raw RawRecord) (NormalizedRecord, error) {
	itemCode := stringField(raw, "item_code")
	if itemCode == "" {
		return nil, malformed("item_code", "required")
	}
	priceList := stringField(raw, "price_list")
	if priceList == "" {
		return nil, malformed("price_list", "required")
	}
	price, err := decimalField(raw, "price")
	if err != nil {
		return nil, err
	}
	currency := stringField(raw, "currency")
	if currency == "" {
		currency = "USD"
	}
	return &PriceRecord{
		ItemCode:  itemCode,
		PriceList: priceList,
		Price:     price,
		Currency:  currency,
	}, nil
}

// stringField returns the trimmed string value of the first present field,
// or "" when absent or nil
func stringField(raw RawRecord, names ...string) string {
	for _, name := range names {
		v, ok := raw[name]
		if !ok || v == nil {
			continue
		}
		switch s := v.(type) {
		case string:
			return strings.TrimSpace(s)
		case json.Number:
			return s.String()
		case float64:
			return strconv.FormatFloat(s, 'f', -1, 64)
		case int:
			return strconv.Itoa(s)
		case int64:
			return strconv.FormatInt(s, 10)
		}
	}
	return ""
}

// decimalField coerces the first present field to a decimal. Absent or nil
// values coerce to zero; present but non-numeric values are a hard error.
func decimalField(raw RawRecord, names ...string) (decimal.Decimal, error) {
	for _, name := range names {
		v, ok := raw[name]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return decimal.NewFromFloat(n), nil
		case int:
			return decimal.NewFromInt(int64(n)), nil
		case int64:
			return decimal.NewFromInt(n), nil
		case json.Number:
			d, err := decimal.NewFromString(n.String())
			if err != nil {
				return decimal.Zero, malformed(name, "must be numeric")
			}
			return d, nil
		case string:
			s := strings.TrimSpace(n)
			if s == "" {
				return decimal.Zero, nil
			}
			d, err := decimal.NewFromString(s)
			if err != nil {
				return decimal.Zero, malformed(name, "must be numeric")
			}
			return d, nil
		default:
			return decimal.Zero, malformed(name, "must be numeric")
		}
	}
	return decimal.Zero, nil
}

// intField coerces a required integer field
func intField(raw RawRecord, name string) (int64, error) {
	v, ok := raw[name]
	if !ok || v == nil {
		return 0, malformed(name, "required")
	}
	switch n := v.(type) {
	case float64:
		if n != float64(int64(n)) {
			return 0, malformed(name, "must be an integer")
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, malformed(name, "must be an integer")
		}
		return i, nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, malformed(name, "must be an integer")
		}
		return i, nil
	default:
		return 0, malformed(name, "must be an integer")
	}
}

// dateField parses a required ISO 8601 date or datetime field
func dateField(raw RawRecord, name string) (time.Time, error) {
	s := stringField(raw, name)
	if s == "" {
		return time.Time{}, malformed(name, "required")
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, malformed(name, "must be an ISO 8601 date")
}

// boolField coerces SAP-style 0/1 flags and booleans
func boolField(raw RawRecord, name string, def bool) bool {
	v, ok := raw[name]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case int:
		return b != 0
	case json.Number:
		return b.String() != "0"
	case string:
		s := strings.TrimSpace(b)
		return s != "" && s != "0" && !strings.EqualFold(s, "false")
	}
	return def
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}
