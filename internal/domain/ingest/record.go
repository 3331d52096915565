package ingest

import (
	"time"

	"github.com/shopspring/decimal"
)

// DataKind identifies the kind of records carried by a batch. The values
// match the data_type tags sent by the extraction agent.
type DataKind string

const (
	KindWarehouses     DataKind = "warehouses_full"
	KindVendors        DataKind = "vendors_full"
	KindItems          DataKind = "items_full"
	KindInventory      DataKind = "inventory_current_full"
	KindSalesOrders    DataKind = "sales_orders_incremental"
	KindPurchaseOrders DataKind = "purchase_orders_incremental"
	KindCosts          DataKind = "costs_incremental"
	KindPricing        DataKind = "pricing_full"
)

// ParseDataKind validates a data_type tag
func ParseDataKind(s string) (DataKind, error) {
	switch k := DataKind(s); k {
	case KindWarehouses, KindVendors, KindItems, KindInventory,
		KindSalesOrders, KindPurchaseOrders, KindCosts, KindPricing:
		return k, nil
	default:
		return "", ErrUnknownDataKind
	}
}

// RawRecord is a record as decoded from the wire: field name to value.
// The pipeline never mutates it; normalization derives typed records from it.
type RawRecord map[string]any

// NormalizedRecord is a typed business record ready for persistence.
// Implementations are the per-kind record structs below.
type NormalizedRecord interface {
	Kind() DataKind
	// BusinessKey returns the record's natural-key fields for reporting
	BusinessKey() map[string]string
}

// WarehouseRecord is a warehouse master-data row
type WarehouseRecord struct {
	Code     string
	Name     string
	IsActive bool
}

func (r *WarehouseRecord) Kind() DataKind { return KindWarehouses }
func (r *WarehouseRecord) BusinessKey() map[string]string {
	return map[string]string{"warehouse_code": r.Code}
}

// VendorRecord is a vendor master-data row
type VendorRecord struct {
	Code          string
	Name          string
	ContactPerson string
	Phone         string
	Email         string
	IsActive      bool
}

func (r *VendorRecord) Kind() DataKind { return KindVendors }
func (r *VendorRecord) BusinessKey() map[string]string {
	return map[string]string{"vendor_code": r.Code}
}

// ItemRecord is an item master-data row
type ItemRecord struct {
	Code     string
	Name     string
	Group    string
	IsActive bool
}

func (r *ItemRecord) Kind() DataKind { return KindItems }
func (r *ItemRecord) BusinessKey() map[string]string {
	return map[string]string{"item_code": r.Code}
}

// InventoryRecord is a current stock snapshot for one item in one warehouse.
// WarehouseCode is a required reference into warehouse master data.
type InventoryRecord struct {
	ItemCode      string
	WarehouseCode string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
}

func (r *InventoryRecord) Kind() DataKind { return KindInventory }
func (r *InventoryRecord) BusinessKey() map[string]string {
	return map[string]string{"item_code": r.ItemCode, "warehouse_code": r.WarehouseCode}
}

// SalesOrderLine is one line of a sales order. WarehouseCode is optional:
// a blank value passes through blank, a non-blank value must be valid.
type SalesOrderLine struct {
	OrderID       int64
	OrderDate     time.Time
	CustomerCode  string
	ItemCode      string
	WarehouseCode string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
}

func (r *SalesOrderLine) Kind() DataKind { return KindSalesOrders }
func (r *SalesOrderLine) BusinessKey() map[string]string {
	return map[string]string{"order_id": formatInt(r.OrderID), "item_code": r.ItemCode}
}

// PurchaseOrderLine is one line of a purchase order
type PurchaseOrderLine struct {
	OrderID       int64
	OrderDate     time.Time
	VendorCode    string
	ItemCode      string
	WarehouseCode string
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
}

func (r *PurchaseOrderLine) Kind() DataKind { return KindPurchaseOrders }
func (r *PurchaseOrderLine) BusinessKey() map[string]string {
	return map[string]string{"order_id": formatInt(r.OrderID), "item_code": r.ItemCode}
}

// CostRecord is an item cost observation on a date
type CostRecord struct {
	ItemCode string
	CostDate time.Time
	AvgCost  decimal.Decimal
	LastCost decimal.Decimal
}

func (r *CostRecord) Kind() DataKind { return KindCosts }
func (r *CostRecord) BusinessKey() map[string]string {
	return map[string]string{"item_code": r.ItemCode, "cost_date": r.CostDate.Format("2006-01-02")}
}

// PriceRecord is an item price in a price list and currency
type PriceRecord struct {
	ItemCode  string
	PriceList string
	Price     decimal.Decimal
	Currency  string
}

func (r *PriceRecord) Kind() DataKind { return KindPricing }
func (r *PriceRecord) BusinessKey() map[string]string {
	return map[string]string{"item_code": r.ItemCode, "price_list": r.PriceList, "currency": r.Currency}
}
