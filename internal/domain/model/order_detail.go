package model

import "github.com/shopspring/decimal"

// 購入時点のスナップショット。カタログの価格変更の影響を受けない
type OrderDetail struct {
	ID         string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID    string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	DesignID   string          `gorm:"type:varchar(36);not null;index" json:"design_id"`
	DesignerID string          `gorm:"type:varchar(36);not null;index" json:"designer_id"`
	DesignName string          `gorm:"type:varchar(255);not null" json:"design_name"`
	Quantity   int64           `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"unit_price"`
	LineTotal  decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"line_total"`
}

// SnapshotLine は注文明細の価格を確定する唯一の関数。
// 通常チェックアウトとVNPayチェックアウトの両方がここを通る。
func SnapshotLine(d Design, quantity int64) OrderDetail {
	return OrderDetail{
		DesignID:   d.ID,
		DesignerID: d.DesignerID,
		DesignName: d.Name,
		Quantity:   quantity,
		UnitPrice:  d.Price,
		LineTotal:  d.Price.Mul(decimal.NewFromInt(quantity)),
	}
}

// 明細合計
func SumLines(lines []OrderDetail) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.LineTotal)
	}
	return total
}
