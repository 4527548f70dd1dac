package interview

import (
	"regexp"
	"strconv"
	"strings"

	"loan-agreement-engine/internal/pkg/money"
)

type CommandType string

const (
	CommandUnknown        CommandType = "UNKNOWN"
	CommandStartAgreement CommandType = "BUAT_PERJANJIAN"
	CommandCancel         CommandType = "BATAL"
	CommandApprove        CommandType = "SETUJU"
	CommandReject         CommandType = "TOLAK"
	CommandAmend          CommandType = "UBAH"
	CommandSkip           CommandType = "SKIP"
	CommandSame           CommandType = "SAMA"

	CommandInstallments   CommandType = "CICILAN"
	CommandStatus         CommandType = "STATUS"
	CommandPayInstallment CommandType = "BAYAR_CICILAN"
	CommandRecordDebt     CommandType = "PINJAM"
	// CommandMalformed is a recognised keyword with unusable arguments.
	// Usage holds the format to reply with.
	CommandMalformed CommandType = "MALFORMED"
)

// MaxDebtDays bounds the due date of a PINJAM debt.
const MaxDebtDays = 3650

type Command struct {
	Type         CommandType
	BorrowerName string
	Amount       int64
	Raw          string

	// PINJAM fields. DebtorPhone is empty when the owner gave none.
	DebtorPhone string
	Days        int
	Note        string

	// InstallmentNumber is the BAYAR CICILAN target.
	InstallmentNumber int

	Usage string
}

var (
	startPattern = regexp.MustCompile(`(?i)^BUAT\s+PERJANJIAN\s+(\S+)\s+([\d.,]+)\s*$`)
	amendPattern = regexp.MustCompile(`(?i)^UBAH\s+([\d.,]+)\s*$`)
	payPattern   = regexp.MustCompile(`(?i)^BAYAR\s+CICILAN\s+(\d+)(?:\s+(\S+))?\s*$`)
	debtPattern  = regexp.MustCompile(`(?i)^PINJAM\s+(\S+)\s+(?:((?:\+?62|0)\d{8,13})\s+)?([\d.,]+)\s+(\d+)\s*HARI(?:\s+"([^"]*)")?\s*$`)

	payKeyword  = regexp.MustCompile(`(?i)^BAYAR\s+CICILAN\b`)
	debtKeyword = regexp.MustCompile(`(?i)^PINJAM\b`)

	amountPattern = regexp.MustCompile(`^(\d+|\d{1,3}([.,]\d{3})+)$`)
)

// ParseCommand recognises the chat keywords. Matching is case-insensitive.
func ParseCommand(text string) Command {
	raw := strings.TrimSpace(text)
	cmd := Command{Type: CommandUnknown, Raw: raw}

	if m := startPattern.FindStringSubmatch(raw); m != nil {
		if amount, ok := ParseAmount(m[2]); ok {
			cmd.Type, cmd.BorrowerName, cmd.Amount = CommandStartAgreement, m[1], amount
		}
		return cmd
	}
	if m := amendPattern.FindStringSubmatch(raw); m != nil {
		if amount, ok := ParseAmount(m[1]); ok {
			cmd.Type, cmd.Amount = CommandAmend, amount
		}
		return cmd
	}

	if payKeyword.MatchString(raw) {
		return parsePay(cmd)
	}
	if debtKeyword.MatchString(raw) {
		return parseDebt(cmd)
	}

	switch CommandType(strings.ToUpper(raw)) {
	case CommandCancel:
		cmd.Type = CommandCancel
	case CommandApprove:
		cmd.Type = CommandApprove
	case CommandReject:
		cmd.Type = CommandReject
	case CommandSkip:
		cmd.Type = CommandSkip
	case CommandSame:
		cmd.Type = CommandSame
	case CommandInstallments:
		cmd.Type = CommandInstallments
	case CommandStatus:
		cmd.Type = CommandStatus
	}
	return cmd
}

func parsePay(cmd Command) Command {
	m := payPattern.FindStringSubmatch(cmd.Raw)
	if m == nil {
		return malformed(cmd, usagePay)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return malformed(cmd, usagePay)
	}
	cmd.Type, cmd.InstallmentNumber, cmd.BorrowerName = CommandPayInstallment, n, m[2]
	return cmd
}

func parseDebt(cmd Command) Command {
	m := debtPattern.FindStringSubmatch(cmd.Raw)
	if m == nil {
		return malformed(cmd, usageDebt)
	}
	amount, ok := ParseAmount(m[3])
	if !ok {
		return malformed(cmd, usageDebt)
	}
	days, err := strconv.Atoi(m[4])
	if err != nil || days > MaxDebtDays {
		return malformed(cmd, usageDebt)
	}
	cmd.Type = CommandRecordDebt
	cmd.BorrowerName, cmd.DebtorPhone, cmd.Amount, cmd.Days = m[1], m[2], amount, days
	cmd.Note = strings.TrimSpace(m[5])
	return cmd
}

func malformed(cmd Command, usage string) Command {
	cmd.Type, cmd.Usage = CommandMalformed, usage
	return cmd
}

// ParseAmount reads a whole rupiah amount, tolerating "Rp" and dot or comma
// thousands separators. A separator must be followed by exactly three digits,
// so "5,5" is rejected rather than read as 55. Only values in
// (0, money.MaxAmount] are accepted.
func ParseAmount(s string) (int64, bool) {
	s = strings.TrimSpace(strings.ToUpper(s))
	s = strings.TrimSpace(strings.TrimPrefix(s, "RP"))
	if !amountPattern.MatchString(s) {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.NewReplacer(".", "", ",", "").Replace(s), 10, 64)
	if err != nil || !money.InRange(v) {
		return 0, false
	}
	return v, true
}

// amountOutOfRange reports a well-formed number that ParseAmount refused
// because of its size.
func amountOutOfRange(s string) bool {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(strings.ToUpper(s)), "RP"))
	if !amountPattern.MatchString(s) {
		return false
	}
	_, ok := ParseAmount(s)
	return !ok && strings.Trim(s, "0.,") != ""
}

// FormatRupiah renders an amount with dot thousands separators, e.g. "Rp 1.500.000".
func FormatRupiah(amount int64) string {
	sign := ""
	if amount < 0 {
		sign, amount = "-", -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return "Rp " + sign + b.String()
}
