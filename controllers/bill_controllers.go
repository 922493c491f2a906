package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-pdf/fpdf"

	"github.com/suman7063/Restaurant-Managment-sub002/middlewares"
	"github.com/suman7063/Restaurant-Managment-sub002/services"
	"github.com/suman7063/Restaurant-Managment-sub002/utils"
)

const billCurrency = "INR"

type BillController struct {
	Ledger  *services.OrderLedger
	Timeout time.Duration
}

// GetBill -> tagihan sesi dalam JSON
func (bc *BillController) GetBill(c *gin.Context) {
	bill, ok := bc.load(c)
	if !ok {
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Session bill", bill)
}

// GetBillPDF -> tagihan sesi dalam PDF
func (bc *BillController) GetBillPDF(c *gin.Context) {
	bill, ok := bc.load(c)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := RenderBillPDF(&buf, bill); err != nil {
		utils.ErrorLogger.Printf("render bill %d: %v", bill.Session.ID, err)
		utils.RespondError(c, err)
		return
	}
	filename := fmt.Sprintf("bill-session-%d.pdf", bill.Session.ID)
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

func (bc *BillController) load(c *gin.Context) (*services.Bill, bool) {
	id, err := paramID(c, "session_id")
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	ctx, cancel := withTimeout(c, bc.Timeout)
	defer cancel()

	bill, err := bc.Ledger.Bill(ctx, middlewares.ActorFrom(c), id)
	if err != nil {
		utils.RespondError(c, err)
		return nil, false
	}
	return bill, true
}

// RenderBillPDF writes the bill as a single A4 document.
func RenderBillPDF(buf *bytes.Buffer, bill *services.Bill) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Bill - Table %s", bill.Table.TableNumber))
	pdf.Ln(10)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Session #%d (%s)", bill.Session.ID, bill.Session.Status))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Opened: "+bill.Session.CreatedAt.Format("02 Jan 2006 15:04"))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 7, "Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, "Subtotal", "1", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, order := range bill.Orders {
		for i := range order.Items {
			item := &order.Items[i]
			pdf.CellFormat(90, 7, item.Name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", false, 0, "")
			pdf.CellFormat(35, 7, utils.FormatCurrency(item.PriceAtTime, ""), "1", 0, "R", false, 0, "")
			pdf.CellFormat(40, 7, utils.FormatCurrency(item.Subtotal(), ""), "1", 1, "R", false, 0, "")
		}
	}
	pdf.Ln(4)

	if s := bill.Summary; s != nil {
		pdf.SetFont("Arial", "B", 11)
		pdf.Cell(0, 7, "Per customer")
		pdf.Ln(7)
		pdf.SetFont("Arial", "", 10)
		for _, ct := range s.Customers {
			pdf.CellFormat(145, 6, ct.DisplayName, "", 0, "L", false, 0, "")
			pdf.CellFormat(40, 6, utils.FormatCurrency(ct.Total, billCurrency), "", 1, "R", false, 0, "")
		}
		pdf.Ln(2)
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(145, 8, "Total", "T", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, utils.FormatCurrency(s.GrandTotal, billCurrency), "T", 1, "R", false, 0, "")
	}

	return pdf.Output(buf)
}
