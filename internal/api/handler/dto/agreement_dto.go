package dto

import (
	"strconv"
	"time"

	"loan-agreement-engine/internal/domain/agreement"

	"github.com/shopspring/decimal"
)

type AgreementResponse struct {
	ID                string                `json:"id"`
	LenderID          string                `json:"lenderId"`
	BorrowerName      string                `json:"borrowerName"`
	BorrowerPhone     string                `json:"borrowerPhone"`
	TotalAmount       string                `json:"totalAmount"`
	IncomeSource      string                `json:"incomeSource"`
	MonthlyIncome     *string               `json:"monthlyIncome,omitempty"`
	OtherDebts        string                `json:"otherDebts"`
	InstallmentAmount string                `json:"installmentAmount"`
	InstallmentCount  int                   `json:"installmentCount"`
	PaymentDay        int                   `json:"paymentDay,omitempty"`
	FirstPaymentDate  string                `json:"firstPaymentDate,omitempty"`
	InterestRate      string                `json:"interestRate"`
	Status            string                `json:"status"`
	CreatedAt         time.Time             `json:"createdAt"`
	SignedAt          *time.Time            `json:"signedAt,omitempty"`
	Installments      []InstallmentResponse `json:"installments,omitempty"`
}

type InstallmentResponse struct {
	ID                string     `json:"id"`
	AgreementID       string     `json:"agreementId"`
	InstallmentNumber int        `json:"installmentNumber"`
	DueDate           string     `json:"dueDate"`
	Amount            string     `json:"amount"`
	PaidAmount        string     `json:"paidAmount"`
	Outstanding       string     `json:"outstanding"`
	Status            string     `json:"status"`
	PaidAt            *time.Time `json:"paidAt,omitempty"`
	ReminderSent      bool       `json:"reminderSent"`
}

type RecordPaymentRequest struct {
	Amount string `json:"amount" validate:"required"`
}

type PaymentResponse struct {
	Installment        InstallmentResponse `json:"installment"`
	AgreementCompleted bool                `json:"agreementCompleted"`
}

type PendingInstallmentsResponse struct {
	AgreementID  string                `json:"agreementId"`
	Outstanding  string                `json:"outstanding"`
	Installments []InstallmentResponse `json:"installments"`
}

func NewAgreementResponse(a *agreement.Agreement, includeInstallments bool) AgreementResponse {
	if a == nil {
		return AgreementResponse{}
	}

	resp := AgreementResponse{
		ID:                strconv.FormatInt(a.ID, 10),
		LenderID:          strconv.FormatInt(a.LenderID, 10),
		BorrowerName:      a.BorrowerName,
		BorrowerPhone:     a.BorrowerPhone,
		TotalAmount:       Money(a.TotalAmount),
		IncomeSource:      string(a.IncomeSource),
		OtherDebts:        Money(a.OtherDebts),
		InstallmentAmount: Money(a.InstallmentAmount),
		InstallmentCount:  a.InstallmentCount,
		PaymentDay:        a.PaymentDay,
		InterestRate:      decimal.NewFromFloat(a.InterestRate).String(),
		Status:            string(a.Status),
		CreatedAt:         a.CreatedAt,
		SignedAt:          a.SignedAt,
	}
	if a.MonthlyIncome != nil {
		income := Money(*a.MonthlyIncome)
		resp.MonthlyIncome = &income
	}
	if a.FirstPaymentDate != nil {
		resp.FirstPaymentDate = a.FirstPaymentDate.Format(time.DateOnly)
	}
	if includeInstallments {
		resp.Installments = NewInstallmentResponses(a.Installments)
	}
	return resp
}

func NewAgreementResponses(list []agreement.Agreement) []AgreementResponse {
	out := make([]AgreementResponse, 0, len(list))
	for i := range list {
		out = append(out, NewAgreementResponse(&list[i], false))
	}
	return out
}

func NewInstallmentResponse(i *agreement.Installment) InstallmentResponse {
	return InstallmentResponse{
		ID:                strconv.FormatInt(i.ID, 10),
		AgreementID:       strconv.FormatInt(i.AgreementID, 10),
		InstallmentNumber: i.InstallmentNumber,
		DueDate:           i.DueDate.Format(time.DateOnly),
		Amount:            Money(i.Amount),
		PaidAmount:        Money(i.PaidAmount),
		Outstanding:       Money(i.Outstanding()),
		Status:            string(i.Status),
		PaidAt:            i.PaidAt,
		ReminderSent:      i.ReminderSent,
	}
}

func NewInstallmentResponses(list []agreement.Installment) []InstallmentResponse {
	out := make([]InstallmentResponse, 0, len(list))
	for i := range list {
		out = append(out, NewInstallmentResponse(&list[i]))
	}
	return out
}
