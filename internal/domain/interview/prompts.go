package interview

import (
	"fmt"
	"strings"

	"loan-agreement-engine/internal/domain/affordability"
	"loan-agreement-engine/internal/domain/agreement"
	"loan-agreement-engine/internal/domain/reminder"
)

const (
	usagePay  = "Format: BAYAR CICILAN [nomor] [nama peminjam]\nContoh: BAYAR CICILAN 1 Budi"
	usageDebt = "Format: PINJAM [nama] [nomor HP] [jumlah] [hari]hari \"[catatan]\"\nContoh: PINJAM Andi 081234567890 250000 7hari \"uang makan\"\nNomor HP boleh dikosongkan."

	// statusUpcomingLimit caps the upcoming debts listed by STATUS.
	statusUpcomingLimit = 5
)

func promptStart(r *LoanRequest) string {
	return fmt.Sprintf(`📋 MEMBUAT PERJANJIAN HUTANG

Peminjam: %s
Jumlah: %s

Silakan jawab beberapa pertanyaan untuk menentukan cicilan yang sesuai.

%s`, r.BorrowerName, FormatRupiah(r.TotalAmount), prompt(r))
}

// prompt is the question for the request's current step.
func prompt(r *LoanRequest) string {
	switch r.Step {
	case StepBorrowerPhone:
		return fmt.Sprintf("1️⃣ Nomor WhatsApp %s?\nKetik 10-13 digit, contoh: 081234567890", r.BorrowerName)
	case StepIncomeSource:
		return fmt.Sprintf("2️⃣ Sumber pendapatan %s?\nKetik salah satu:\n• GAJI (pegawai/karyawan)\n• BISNIS (usaha/wiraswasta)\n• LAINNYA", r.BorrowerName)
	case StepPaymentDay:
		return fmt.Sprintf("3️⃣ Tanggal berapa %s menerima %s setiap bulan?\nKetik tanggal (1-31), contoh: 25", r.BorrowerName, r.incomeWord())
	case StepMonthlyIncome:
		return fmt.Sprintf("4️⃣ Berapa perkiraan %s %s per bulan?\nKetik angka tanpa titik/koma, contoh: 5000000\n💡 Boleh ketik SKIP jika tidak mau memberitahu", r.incomeWord(), r.BorrowerName)
	case StepOtherDebts:
		return "5️⃣ Ada hutang lain yang sedang dicicil?\nJika ya, berapa total cicilan per bulan?\nKetik 0 jika tidak ada, atau nominalnya (contoh: 1500000)"
	case StepConfirmation:
		return "Apakah setuju dengan cicilan di atas?\nKetik: SETUJU atau UBAH [nominal]"
	case StepCounterparty:
		return fmt.Sprintf("6️⃣ Konfirmasi identitas peminjam.\nKetik SAMA jika %s (%s) sudah benar, atau ketik [nama] [nomor], contoh: Budi 081234567890", r.BorrowerName, r.BorrowerPhone)
	default:
		return ""
	}
}

// correction is sent with the unchanged prompt after invalid input.
func correction(step Step) string {
	switch step {
	case StepBorrowerPhone:
		return "Nomor tidak valid."
	case StepIncomeSource:
		return "Silakan ketik GAJI, BISNIS, atau LAINNYA."
	case StepPaymentDay:
		return "Silakan ketik tanggal 1-31, contoh: 25."
	case StepMonthlyIncome:
		return "Silakan ketik angka saja, contoh: 5000000 atau ketik SKIP."
	case StepOtherDebts:
		return "Jumlah terlalu besar. Ketik total cicilan lain per bulan, contoh: 500000."
	case StepConfirmation:
		return "Format salah."
	case StepCounterparty:
		return "Format salah."
	default:
		return "Input tidak dikenali."
	}
}

func affordabilityLabel(a affordability.Affordability) string {
	switch a {
	case affordability.Comfortable:
		return "✅ NYAMAN"
	case affordability.Manageable:
		return "⚠️ CUKUP"
	default:
		return "🔴 BERAT"
	}
}

func summary(r *LoanRequest) string {
	rec := r.Recommendation
	var b strings.Builder
	fmt.Fprintf(&b, "📊 ANALISIS KEMAMPUAN BAYAR\n\n")
	fmt.Fprintf(&b, "• %s: %s/bulan\n", strings.ToUpper(r.incomeWord()[:1])+r.incomeWord()[1:], FormatRupiah(r.assessedIncome()))
	fmt.Fprintf(&b, "• Cicilan lain: %s/bulan\n", FormatRupiah(r.OtherDebts))
	fmt.Fprintf(&b, "• Hutang baru: %s\n\n", FormatRupiah(r.TotalAmount))
	fmt.Fprintf(&b, "💰 REKOMENDASI CICILAN:\n")
	fmt.Fprintf(&b, "• Nominal cicilan: %s/bulan\n", FormatRupiah(rec.InstallmentAmount))
	fmt.Fprintf(&b, "• Jumlah bulan: %d kali\n", rec.Months)
	fmt.Fprintf(&b, "• Total bayar: %s\n", FormatRupiah(rec.TotalRepayment))
	fmt.Fprintf(&b, "• Tanggal bayar: setiap tanggal %d\n", r.PaymentDay)
	fmt.Fprintf(&b, "• Tingkat beban: %s (%s%%)\n\n", affordabilityLabel(rec.Affordability), rec.DebtToIncomeRatio.Shift(2).StringFixed(0))
	b.WriteString(prompt(r))
	return b.String()
}

func amendedSummary(r *LoanRequest) string {
	return fmt.Sprintf(`🔄 CICILAN DIUBAH

• Cicilan: %s/bulan
• Jumlah bulan: %d kali
• Total: %s

Ketik SETUJU untuk melanjutkan atau UBAH [nominal] untuk mengubah lagi.`,
		FormatRupiah(r.InstallmentAmount), r.Months, FormatRupiah(r.InstallmentAmount*int64(r.Months)))
}

func lenderConfirmation(a *agreement.Agreement) string {
	first := ""
	if a.FirstPaymentDate != nil {
		first = a.FirstPaymentDate.Format("2006-01-02")
	}
	return fmt.Sprintf(`✅ PERJANJIAN DIBUAT!

ID Perjanjian: #%d
Peminjam: %s (%s)
Cicilan: %s x %d bulan
Cicilan pertama: %s

Surat perjanjian sudah dikirim ke %s. Anda akan diberi kabar setelah peminjam merespon.`,
		a.ID, a.BorrowerName, a.BorrowerPhone, FormatRupiah(a.InstallmentAmount), a.InstallmentCount, first, a.BorrowerName)
}

func borrowerInvitation(a *agreement.Agreement) string {
	first := ""
	if a.FirstPaymentDate != nil {
		first = a.FirstPaymentDate.Format("2006-01-02")
	}
	return fmt.Sprintf(`📄 PERJANJIAN HUTANG #%d

Halo %s, Anda tercatat meminjam %s.
Cicilan: %s per bulan selama %d bulan, setiap tanggal %d.
Cicilan pertama jatuh tempo: %s

Balas SETUJU untuk menyetujui atau TOLAK untuk menolak.`,
		a.ID, a.BorrowerName, FormatRupiah(a.TotalAmount), FormatRupiah(a.InstallmentAmount), a.InstallmentCount, a.PaymentDay, first)
}

type activeAgreement struct {
	Agreement agreement.Agreement
	Next      *agreement.Installment
}

func installmentsMessage(active []activeAgreement) string {
	if len(active) == 0 {
		return "Tidak ada cicilan aktif."
	}
	var b strings.Builder
	b.WriteString("📋 CICILAN AKTIF\n")
	for _, e := range active {
		a := e.Agreement
		fmt.Fprintf(&b, "\n#%d %s\nTotal: %s\nCicilan: %s/bulan (%d kali)\n",
			a.ID, a.BorrowerName, FormatRupiah(a.TotalAmount), FormatRupiah(a.InstallmentAmount), a.InstallmentCount)
		if e.Next != nil {
			fmt.Fprintf(&b, "Berikutnya: cicilan ke-%d, %s, jatuh tempo %s\n",
				e.Next.InstallmentNumber, FormatRupiah(e.Next.Outstanding()), e.Next.DueDate.Format("2006-01-02"))
		}
	}
	b.WriteString("\nKetik BAYAR CICILAN [nomor] untuk membayar")
	return b.String()
}

func statusMessage(s *reminder.OwnerSummary) string {
	if len(s.Overdue) == 0 && len(s.Upcoming) == 0 {
		return "✅ Tidak ada hutang yang belum lunas."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📊 STATUS HUTANG\n\nTotal belum lunas: %s (%d)\n", FormatRupiah(s.Total), len(s.Overdue)+len(s.Upcoming))
	if len(s.Overdue) > 0 {
		b.WriteString("\n⚠️ Terlambat:\n")
		for _, d := range s.Overdue {
			fmt.Fprintf(&b, "• %s %s (%s)\n", d.DebtorName, FormatRupiah(d.Amount), d.DueDate.Format("2006-01-02"))
		}
	}
	if len(s.Upcoming) > 0 {
		b.WriteString("\n📅 Akan jatuh tempo:\n")
		for i, d := range s.Upcoming {
			if i == statusUpcomingLimit {
				fmt.Fprintf(&b, "...dan %d lainnya\n", len(s.Upcoming)-statusUpcomingLimit)
				break
			}
			fmt.Fprintf(&b, "• %s %s (%s)\n", d.DebtorName, FormatRupiah(d.Amount), d.DueDate.Format("2006-01-02"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func debtRecorded(d *reminder.Debt, note string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ Hutang tercatat\n\nNama: %s\nJumlah: %s\nJatuh tempo: %s",
		d.DebtorName, FormatRupiah(d.Amount), d.DueDate.Format("2006-01-02"))
	if note != "" {
		fmt.Fprintf(&b, "\nCatatan: %s", note)
	}
	b.WriteString("\n\nReminder akan dikirim sebelum jatuh tempo.")
	return b.String()
}

func paymentRecorded(a agreement.Agreement, res *agreement.PaymentResult, paid int64) string {
	msg := fmt.Sprintf("✅ Cicilan ke-%d %s sebesar %s tercatat lunas.",
		res.Installment.InstallmentNumber, a.BorrowerName, FormatRupiah(paid))
	if res.AgreementCompleted {
		msg += fmt.Sprintf("\n\n🎉 Perjanjian #%d sudah LUNAS.", a.ID)
	}
	return msg
}
