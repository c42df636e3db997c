package service

import (
	"context"
	"fmt"
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

var orderExportHeaders = []string{
	"Order number", "Supplier", "Status", "Automatic", "Created at", "Received at",
	"Product", "Unit price", "Ordered", "Received", "Subtotal", "Notes",
}

// ExportOrders one row per order item of every order matching the filters
func (s *PurchaseOrderService) ExportOrders(ctx context.Context, filters map[string]string) (*excelize.File, string, error) {
	orders, err := s.ListForExport(ctx, filters)
	if err != nil {
		return nil, "", fmt.Errorf("list purchase orders: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Purchase orders"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range orderExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}

	row := 2
	for _, po := range orders {
		supplier := po.SupplierID
		if po.Supplier != nil {
			supplier = po.Supplier.Name
		}
		received := ""
		if po.ReceivedAt != nil {
			received = po.ReceivedAt.Format(time.DateTime)
		}
		for _, item := range po.Items {
			product := item.ProductID
			if item.Product != nil {
				product = item.Product.Name
			}
			writeOrderRow(f, sheet, row, po, supplier, received, product, item)
			row++
		}
	}

	summaryStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Total")
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), fmt.Sprintf("%d orders", len(orders)))
	grandTotal, _ := ordersTotal(orders).Float64()
	f.SetCellValue(sheet, fmt.Sprintf("K%d", row), grandTotal)
	f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("L%d", row), summaryStyle)

	colWidths := []float64{16, 24, 11, 10, 18, 18, 24, 11, 10, 10, 12, 30}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("purchase_orders_%s.xlsx", time.Now().Format("20060102"))
	return f, filename, nil
}

// ordersTotal exact sum of the order totals
func ordersTotal(orders []entity.PurchaseOrder) decimal.Decimal {
	total := decimal.Zero
	for _, po := range orders {
		total = total.Add(po.TotalAmount)
	}
	return total
}

func writeOrderRow(f *excelize.File, sheet string, row int, po entity.PurchaseOrder, supplier, received, product string, item entity.PurchaseOrderItem) {
	automatic := "no"
	if po.IsAutomatic {
		automatic = "yes"
	}
	unitPrice, _ := item.UnitPrice.Float64()
	ordered, _ := item.QuantityOrdered.Float64()
	qtyReceived, _ := item.QuantityReceived.Float64()
	subtotal, _ := item.Subtotal.Float64()

	f.SetCellValue(sheet, fmt.Sprintf("A%d", row), po.OrderNumber)
	f.SetCellValue(sheet, fmt.Sprintf("B%d", row), supplier)
	f.SetCellValue(sheet, fmt.Sprintf("C%d", row), po.Status)
	f.SetCellValue(sheet, fmt.Sprintf("D%d", row), automatic)
	f.SetCellValue(sheet, fmt.Sprintf("E%d", row), po.CreatedAt.Format(time.DateTime))
	f.SetCellValue(sheet, fmt.Sprintf("F%d", row), received)
	f.SetCellValue(sheet, fmt.Sprintf("G%d", row), product)
	f.SetCellValue(sheet, fmt.Sprintf("H%d", row), unitPrice)
	f.SetCellValue(sheet, fmt.Sprintf("I%d", row), ordered)
	f.SetCellValue(sheet, fmt.Sprintf("J%d", row), qtyReceived)
	f.SetCellValue(sheet, fmt.Sprintf("K%d", row), subtotal)
	f.SetCellValue(sheet, fmt.Sprintf("L%d", row), item.Notes)
}
