package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Table identifies one of the fact tables the generator writes to
type Table string

const (
	TableSales   Table = "sales"
	TableReturns Table = "returns"
)

// Key columns of the fact tables
const (
	SalesKeyColumn   = "ss_id"
	ReturnsKeyColumn = "sr_id"
)

// KeyColumn returns the primary key column of a table
func (t Table) KeyColumn() string {
	if t == TableReturns {
		return ReturnsKeyColumn
	}
	return SalesKeyColumn
}

// ParseTables maps the --tables selector to the tables it covers
func ParseTables(s string) ([]Table, error) {
	switch s {
	case "sales":
		return []Table{TableSales}, nil
	case "returns":
		return []Table{TableReturns}, nil
	case "both", "":
		return []Table{TableSales, TableReturns}, nil
	}
	return nil, fmt.Errorf("unknown table selector %q: must be sales, returns or both", s)
}

// Record is one row of a fact table
type Record interface {
	Table() Table
	Key() int64
	// Row returns the record as column -> value
	Row() map[string]any
	Clone() Record
}

// SalesRecord represents a row of the store sales fact table
type SalesRecord struct {
	ID               int64           `db:"ss_id" json:"ss_id"`
	SoldDateSK       int64           `db:"ss_sold_date_sk" json:"ss_sold_date_sk"`
	SoldTimeSK       int64           `db:"ss_sold_time_sk" json:"ss_sold_time_sk"`
	ItemSK           int64           `db:"ss_item_sk" json:"ss_item_sk"`
	CustomerSK       int64           `db:"ss_customer_sk" json:"ss_customer_sk"`
	CdemoSK          int64           `db:"ss_cdemo_sk" json:"ss_cdemo_sk"`
	HdemoSK          int64           `db:"ss_hdemo_sk" json:"ss_hdemo_sk"`
	AddrSK           int64           `db:"ss_addr_sk" json:"ss_addr_sk"`
	StoreSK          int64           `db:"ss_store_sk" json:"ss_store_sk"`
	PromoSK          *int64          `db:"ss_promo_sk" json:"ss_promo_sk,omitempty"`
	TicketNumber     int64           `db:"ss_ticket_number" json:"ss_ticket_number"`
	Quantity         int64           `db:"ss_quantity" json:"ss_quantity"`
	WholesaleCost    decimal.Decimal `db:"ss_wholesale_cost" json:"ss_wholesale_cost"`
	ListPrice        decimal.Decimal `db:"ss_list_price" json:"ss_list_price"`
	SalesPrice       decimal.Decimal `db:"ss_sales_price" json:"ss_sales_price"`
	ExtDiscountAmt   decimal.Decimal `db:"ss_ext_discount_amt" json:"ss_ext_discount_amt"`
	ExtSalesPrice    decimal.Decimal `db:"ss_ext_sales_price" json:"ss_ext_sales_price"`
	ExtWholesaleCost decimal.Decimal `db:"ss_ext_wholesale_cost" json:"ss_ext_wholesale_cost"`
	ExtListPrice     decimal.Decimal `db:"ss_ext_list_price" json:"ss_ext_list_price"`
	ExtTax           decimal.Decimal `db:"ss_ext_tax" json:"ss_ext_tax"`
	CouponAmt        decimal.Decimal `db:"ss_coupon_amt" json:"ss_coupon_amt"`
	NetPaid          decimal.Decimal `db:"ss_net_paid" json:"ss_net_paid"`
	NetPaidIncTax    decimal.Decimal `db:"ss_net_paid_inc_tax" json:"ss_net_paid_inc_tax"`
	NetProfit        decimal.Decimal `db:"ss_net_profit" json:"ss_net_profit"`

	// TaxRate is the factor ExtTax was derived with. It is not a column.
	TaxRate decimal.Decimal `db:"-" json:"-"`
}

func (r *SalesRecord) Table() Table { return TableSales }
func (r *SalesRecord) Key() int64   { return r.ID }

func (r *SalesRecord) Row() map[string]any {
	var promo any
	if r.PromoSK != nil {
		promo = *r.PromoSK
	}
	return map[string]any{
		"ss_id":                 r.ID,
		"ss_sold_date_sk":       r.SoldDateSK,
		"ss_sold_time_sk":       r.SoldTimeSK,
		"ss_item_sk":            r.ItemSK,
		"ss_customer_sk":        r.CustomerSK,
		"ss_cdemo_sk":           r.CdemoSK,
		"ss_hdemo_sk":           r.HdemoSK,
		"ss_addr_sk":            r.AddrSK,
		"ss_store_sk":           r.StoreSK,
		"ss_promo_sk":           promo,
		"ss_ticket_number":      r.TicketNumber,
		"ss_quantity":           r.Quantity,
		"ss_wholesale_cost":     r.WholesaleCost,
		"ss_list_price":         r.ListPrice,
		"ss_sales_price":        r.SalesPrice,
		"ss_ext_discount_amt":   r.ExtDiscountAmt,
		"ss_ext_sales_price":    r.ExtSalesPrice,
		"ss_ext_wholesale_cost": r.ExtWholesaleCost,
		"ss_ext_list_price":     r.ExtListPrice,
		"ss_ext_tax":            r.ExtTax,
		"ss_coupon_amt":         r.CouponAmt,
		"ss_net_paid":           r.NetPaid,
		"ss_net_paid_inc_tax":   r.NetPaidIncTax,
		"ss_net_profit":         r.NetProfit,
	}
}

func (r *SalesRecord) Clone() Record {
	c := *r
	if r.PromoSK != nil {
		promo := *r.PromoSK
		c.PromoSK = &promo
	}
	return &c
}

// ReturnsRecord represents a row of the store returns fact table
type ReturnsRecord struct {
	ID              int64           `db:"sr_id" json:"sr_id"`
	ReturnedDateSK  int64           `db:"sr_returned_date_sk" json:"sr_returned_date_sk"`
	ReturnTimeSK    int64           `db:"sr_return_time_sk" json:"sr_return_time_sk"`
	ItemSK          int64           `db:"sr_item_sk" json:"sr_item_sk"`
	CustomerSK      int64           `db:"sr_customer_sk" json:"sr_customer_sk"`
	CdemoSK         int64           `db:"sr_cdemo_sk" json:"sr_cdemo_sk"`
	HdemoSK         int64           `db:"sr_hdemo_sk" json:"sr_hdemo_sk"`
	AddrSK          int64           `db:"sr_addr_sk" json:"sr_addr_sk"`
	StoreSK         int64           `db:"sr_store_sk" json:"sr_store_sk"`
	ReasonSK        int64           `db:"sr_reason_sk" json:"sr_reason_sk"`
	TicketNumber    int64           `db:"sr_ticket_number" json:"sr_ticket_number"`
	ReturnQuantity  int64           `db:"sr_return_quantity" json:"sr_return_quantity"`
	ReturnAmt       decimal.Decimal `db:"sr_return_amt" json:"sr_return_amt"`
	ReturnTax       decimal.Decimal `db:"sr_return_tax" json:"sr_return_tax"`
	ReturnAmtIncTax decimal.Decimal `db:"sr_return_amt_inc_tax" json:"sr_return_amt_inc_tax"`
	Fee             decimal.Decimal `db:"sr_fee" json:"sr_fee"`
	ReturnShipCost  decimal.Decimal `db:"sr_return_ship_cost" json:"sr_return_ship_cost"`
	RefundedCash    decimal.Decimal `db:"sr_refunded_cash" json:"sr_refunded_cash"`
	ReversedCharge  decimal.Decimal `db:"sr_reversed_charge" json:"sr_reversed_charge"`
	StoreCredit     decimal.Decimal `db:"sr_store_credit" json:"sr_store_credit"`
	NetLoss         decimal.Decimal `db:"sr_net_loss" json:"sr_net_loss"`

	// TaxRate is the factor ReturnTax was derived with. It is not a column.
	TaxRate decimal.Decimal `db:"-" json:"-"`
}

func (r *ReturnsRecord) Table() Table { return TableReturns }
func (r *ReturnsRecord) Key() int64   { return r.ID }

func (r *ReturnsRecord) Row() map[string]any {
	return map[string]any{
		"sr_id":                 r.ID,
		"sr_returned_date_sk":   r.ReturnedDateSK,
		"sr_return_time_sk":     r.ReturnTimeSK,
		"sr_item_sk":            r.ItemSK,
		"sr_customer_sk":        r.CustomerSK,
		"sr_cdemo_sk":           r.CdemoSK,
		"sr_hdemo_sk":           r.HdemoSK,
		"sr_addr_sk":            r.AddrSK,
		"sr_store_sk":           r.StoreSK,
		"sr_reason_sk":          r.ReasonSK,
		"sr_ticket_number":      r.TicketNumber,
		"sr_return_quantity":    r.ReturnQuantity,
		"sr_return_amt":         r.ReturnAmt,
		"sr_return_tax":         r.ReturnTax,
		"sr_return_amt_inc_tax": r.ReturnAmtIncTax,
		"sr_fee":                r.Fee,
		"sr_return_ship_cost":   r.ReturnShipCost,
		"sr_refunded_cash":      r.RefundedCash,
		"sr_reversed_charge":    r.ReversedCharge,
		"sr_store_credit":       r.StoreCredit,
		"sr_net_loss":           r.NetLoss,
	}
}

func (r *ReturnsRecord) Clone() Record {
	c := *r
	return &c
}
