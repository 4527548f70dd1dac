package report

import (
	"fmt"
	"io"
	"time"

	"loan-agreement-engine/internal/domain/agreement"

	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet     = "Ringkasan"
	InstallmentSheet = "Cicilan"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	// numFmtThousands is the builtin "#,##0" format.
	numFmtThousands = 3
)

var installmentHeader = []any{"No", "Jatuh Tempo", "Jumlah", "Dibayar", "Sisa", "Status", "Tanggal Bayar"}

// FileName is the download name for an agreement's payment history.
func FileName(agreementID int64) string {
	return fmt.Sprintf("perjanjian-%d-riwayat-pembayaran.xlsx", agreementID)
}

// WritePaymentHistory renders a workbook with an agreement summary sheet and
// one row per installment, followed by a totals row.
func WritePaymentHistory(w io.Writer, a *agreement.Agreement, installments []agreement.Installment) error {
	f, err := buildWorkbook(a, installments)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func buildWorkbook(a *agreement.Agreement, installments []agreement.Installment) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if err := writeSummary(f, a); err != nil {
		f.Close()
		return nil, err
	}

	idx, err := f.NewSheet(InstallmentSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := writeInstallments(f, installments); err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(idx)
	return f, nil
}

func writeSummary(f *excelize.File, a *agreement.Agreement) error {
	firstPayment := "-"
	if a.FirstPaymentDate != nil {
		firstPayment = a.FirstPaymentDate.Format(time.DateOnly)
	}
	signed := "-"
	if a.SignedAt != nil {
		signed = a.SignedAt.Format(time.DateOnly)
	}

	rows := [][]any{
		{"ID Perjanjian", a.ID},
		{"Peminjam", a.BorrowerName},
		{"No. HP Peminjam", a.BorrowerPhone},
		{"Total Pinjaman", a.TotalAmount},
		{"Cicilan per Bulan", a.InstallmentAmount},
		{"Jumlah Cicilan", a.InstallmentCount},
		{"Tanggal Bayar", a.PaymentDay},
		{"Pembayaran Pertama", firstPayment},
		{"Status", string(a.Status)},
		{"Ditandatangani", signed},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtThousands})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(rows)), bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "B4", "B5", money); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "A", "B", 22)
}

func writeInstallments(f *excelize.File, installments []agreement.Installment) error {
	if err := f.SetSheetRow(InstallmentSheet, "A1", &installmentHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	var totalAmount, totalPaid, totalRemaining int64
	for i, inst := range installments {
		paidAt := ""
		if inst.PaidAt != nil {
			paidAt = inst.PaidAt.Format(time.DateOnly)
		}
		remaining := inst.Outstanding()
		row := []any{
			inst.InstallmentNumber,
			inst.DueDate.Format(time.DateOnly),
			inst.Amount,
			inst.PaidAmount,
			remaining,
			string(inst.Status),
			paidAt,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(InstallmentSheet, cell, &row); err != nil {
			return fmt.Errorf("write installment %d: %w", inst.InstallmentNumber, err)
		}
		totalAmount += inst.Amount
		totalPaid += inst.PaidAmount
		totalRemaining += remaining
	}

	totalRow := len(installments) + 2
	totals := []any{"Total", "", totalAmount, totalPaid, totalRemaining}
	cell, _ := excelize.CoordinatesToCellName(1, totalRow)
	if err := f.SetSheetRow(InstallmentSheet, cell, &totals); err != nil {
		return fmt.Errorf("write totals: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: numFmtThousands})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(InstallmentSheet, "A1", "G1", header); err != nil {
		return err
	}
	if err := f.SetCellStyle(InstallmentSheet, "C2", fmt.Sprintf("E%d", totalRow), money); err != nil {
		return err
	}
	if err := f.SetCellStyle(InstallmentSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("A%d", totalRow), header); err != nil {
		return err
	}
	return f.SetColWidth(InstallmentSheet, "A", "G", 16)
}
