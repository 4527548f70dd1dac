package dto

import (
	"strconv"
	"time"

	"loan-agreement-engine/internal/domain/reminder"
)

type CreateDebtRequest struct {
	OwnerID     int64  `json:"ownerId" validate:"required,gt=0"`
	DebtorName  string `json:"debtorName" validate:"required,max=255"`
	DebtorPhone string `json:"debtorPhone" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
	DueInDays   int    `json:"dueInDays" validate:"gte=0,lte=3650"`
}

type DebtResponse struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	DebtorName   string     `json:"debtorName"`
	DebtorPhone  string     `json:"debtorPhone"`
	Amount       string     `json:"amount"`
	DueDate      string     `json:"dueDate"`
	Status       string     `json:"status"`
	ReminderTime *time.Time `json:"reminderTime,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type ReminderJobResponse struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Recipient string `json:"recipient"`
	Name      string `json:"name"`
	Amount    string `json:"amount"`
	DueDate   string `json:"dueDate"`
	DaysUntil int    `json:"daysUntil"`
}

type SystemStatusResponse struct {
	PendingDebts        int `json:"pendingDebts"`
	OverdueDebts        int `json:"overdueDebts"`
	ActiveAgreements    int `json:"activeAgreements"`
	PendingInstallments int `json:"pendingInstallments"`
	DaysBeforeDue       int `json:"daysBeforeDue"`
	CheckIntervalHours  int `json:"checkIntervalHours"`
}

func NewDebtResponse(d *reminder.Debt) DebtResponse {
	return DebtResponse{
		ID:           strconv.FormatInt(d.ID, 10),
		OwnerID:      strconv.FormatInt(d.OwnerID, 10),
		DebtorName:   d.DebtorName,
		DebtorPhone:  d.DebtorPhone,
		Amount:       Money(d.Amount),
		DueDate:      d.DueDate.Format(time.DateOnly),
		Status:       string(d.Status),
		ReminderTime: d.ReminderTime,
		CreatedAt:    d.CreatedAt,
	}
}

func NewReminderJobResponses(jobs []reminder.Job) []ReminderJobResponse {
	out := make([]ReminderJobResponse, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, ReminderJobResponse{
			ID:        j.ID,
			Kind:      string(j.Kind),
			Recipient: j.Recipient,
			Name:      j.Name,
			Amount:    Money(j.Amount),
			DueDate:   j.DueDate.Format(time.DateOnly),
			DaysUntil: j.DaysUntil,
		})
	}
	return out
}
