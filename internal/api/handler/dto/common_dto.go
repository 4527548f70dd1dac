package dto

import (
	"errors"
	"fmt"
	"strings"

	"loan-agreement-engine/internal/pkg/money"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs the struct's `validate` tags and reports the first failure
// as "<field>: <rule>".
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &FieldError{Field: lowerFirst(fe.Field()), Rule: fe.Tag(), Param: fe.Param()}
	}
	return err
}

// FieldError is a single failed validation rule.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (e *FieldError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: must satisfy %s=%s", e.Field, e.Rule, e.Param)
	}
	return fmt.Sprintf("%s: must satisfy %s", e.Field, e.Rule)
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// Money renders a whole-rupiah amount as a decimal string.
func Money(amount int64) string {
	return decimal.NewFromInt(amount).String()
}

// ParseMoney accepts a decimal string holding a positive whole-rupiah amount
// no larger than money.MaxAmount.
func ParseMoney(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("amount %q is not a number", s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("amount %q must be a whole rupiah value", s)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("amount %q must be greater than zero", s)
	}
	if d.GreaterThan(decimal.NewFromInt(money.MaxAmount)) {
		return 0, fmt.Errorf("amount %q exceeds the maximum of %d", s, money.MaxAmount)
	}
	return d.IntPart(), nil
}
