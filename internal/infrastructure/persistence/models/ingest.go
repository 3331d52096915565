package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/forecast/ingestion/internal/domain/ingest"
)

// WarehouseModel is the persistence model for warehouse master data
type WarehouseModel struct {
	WarehouseCode string    `gorm:"primaryKey;size:64"`
	WarehouseName string    `gorm:"size:255"`
	IsActive      bool      `gorm:"not null;default:true"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (WarehouseModel) TableName() string {
	return "warehouses"
}

// VendorModel is the persistence model for vendor master data
type VendorModel struct {
	VendorCode    string    `gorm:"primaryKey;size:64"`
	VendorName    string    `gorm:"size:255"`
	ContactPerson string    `gorm:"size:255"`
	Phone         string    `gorm:"size:64"`
	Email         string    `gorm:"size:255"`
	IsActive      bool      `gorm:"not null;default:true"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (VendorModel) TableName() string {
	return "vendors"
}

// ItemModel is the persistence model for item master data
type ItemModel struct {
	ItemCode  string    `gorm:"primaryKey;size:64"`
	ItemName  string    `gorm:"size:255"`
	ItemGroup string    `gorm:"size:128"`
	IsActive  bool      `gorm:"not null;default:true"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (ItemModel) TableName() string {
	return "items"
}

// InventoryModel is the current stock snapshot for one item in one warehouse
type InventoryModel struct {
	ItemCode      string          `gorm:"primaryKey;size:64"`
	WarehouseCode string          `gorm:"primaryKey;size:64"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (InventoryModel) TableName() string {
	return "inventory_current"
}

// SalesOrderModel is one sales order line
type SalesOrderModel struct {
	OrderID       int64           `gorm:"primaryKey"`
	ItemCode      string          `gorm:"primaryKey;size:64"`
	OrderDate     time.Time       `gorm:"not null;index"`
	CustomerCode  string          `gorm:"size:64;index"`
	WarehouseCode string          `gorm:"size:64"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (SalesOrderModel) TableName() string {
	return "sales_orders"
}

// PurchaseOrderModel is one purchase order line
type PurchaseOrderModel struct {
	OrderID       int64           `gorm:"primaryKey"`
	ItemCode      string          `gorm:"primaryKey;size:64"`
	OrderDate     time.Time       `gorm:"not null;index"`
	VendorCode    string          `gorm:"size:64;index"`
	WarehouseCode string          `gorm:"size:64"`
	Quantity      decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// CostModel is an item cost observation on a date
type CostModel struct {
	ItemCode  string          `gorm:"primaryKey;size:64"`
	CostDate  time.Time       `gorm:"primaryKey"`
	AvgCost   decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LastCost  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (CostModel) TableName() string {
	return "costs"
}

// PriceModel is an item price in a price list and currency
type PriceModel struct {
	ItemCode  string          `gorm:"primaryKey;size:64"`
	PriceList string          `gorm:"primaryKey;size:64"`
	Currency  string          `gorm:"primaryKey;size:8"`
	Price     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM
func (PriceModel) TableName() string {
	return "pricing"
}

// NewWarehouseModel converts a domain warehouse record
func NewWarehouseModel(r *ingest.WarehouseRecord) WarehouseModel {
	return WarehouseModel{
		WarehouseCode: r.Code,
		WarehouseName: r.Name,
		IsActive:      r.IsActive,
	}
}

// NewVendorModel converts a domain vendor record
func NewVendorModel(r *ingest.VendorRecord) VendorModel {
	return VendorModel{
		VendorCode:    r.Code,
		VendorName:    r.Name,
		ContactPerson: r.ContactPerson,
		Phone:         r.Phone,
		Email:         r.Email,
		IsActive:      r.IsActive,
	}
}

// NewItemModel converts a domain item record
func NewItemModel(r *ingest.ItemRecord) ItemModel {
	return ItemModel{
		ItemCode:  r.Code,
		ItemName:  r.Name,
		ItemGroup: r.Group,
		IsActive:  r.IsActive,
	}
}

// NewInventoryModel converts a domain inventory record
func NewInventoryModel(r *ingest.InventoryRecord) InventoryModel {
	return InventoryModel{
		ItemCode:      r.ItemCode,
		WarehouseCode: r.WarehouseCode,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
	}
}

// NewSalesOrderModel converts a domain sales order line
func NewSalesOrderModel(r *ingest.SalesOrderLine) SalesOrderModel {
	return SalesOrderModel{
		OrderID:       r.OrderID,
		ItemCode:      r.ItemCode,
		OrderDate:     r.OrderDate,
		CustomerCode:  r.CustomerCode,
		WarehouseCode: r.WarehouseCode,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		LineTotal:     r.LineTotal,
	}
}

// NewPurchaseOrderModel converts a domain purchase order line
func NewPurchaseOrderModel(r *ingest.PurchaseOrderLine) PurchaseOrderModel {
	return PurchaseOrderModel{
		OrderID:       r.OrderID,
		ItemCode:      r.ItemCode,
		OrderDate:     r.OrderDate,
		VendorCode:    r.VendorCode,
		WarehouseCode: r.WarehouseCode,
		Quantity:      r.Quantity,
		UnitPrice:     r.UnitPrice,
		LineTotal:     r.LineTotal,
	}
}

// NewCostModel converts a domain cost record
func NewCostModel(r *ingest.CostRecord) CostModel {
	return CostModel{
		ItemCode: r.ItemCode,
		CostDate: r.CostDate,
		AvgCost:  r.AvgCost,
		LastCost: r.LastCost,
	}
}

// NewPriceModel converts a domain price record
func NewPriceModel(r *ingest.PriceRecord) PriceModel {
	return PriceModel{
		ItemCode:  r.ItemCode,
		PriceList: r.PriceList,
		Currency:  r.Currency,
		Price:     r.Price,
	}
}

// All returns one zero value of every ingest model, for migration
func All() []any {
	return []any{
		&WarehouseModel{},
		&VendorModel{},
		&ItemModel{},
		&InventoryModel{},
		&SalesOrderModel{},
		&PurchaseOrderModel{},
		&CostModel{},
		&PriceModel{},
	}
}
