package core

// validation.go checks form input before it reaches a sheet.
//
// Inputs are plain structs tagged for go-playground/validator. Decimal fields
// are validated through a custom type func that exposes them as float64, so
// the usual gt/gte tags apply. Failed tags are translated into one message
// per field; the combined message feeds MapError.

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// OrderInput is the order form.
type OrderInput struct {
	Product     string          `json:"product" validate:"required"`
	Store       string          `json:"store" validate:"required"`
	CustomStore string          `json:"custom_store" validate:"required_if=Store CUSTOM"`
	GrossCost   decimal.Decimal `json:"gross_cost" validate:"gt=0"`
	SalePrice   decimal.Decimal `json:"sale_price" validate:"gte=0"`

	// ExchangeRate overrides the live quote when positive.
	ExchangeRate decimal.Decimal `json:"exchange_rate" validate:"gte=0"`
}

// StoreName resolves the CUSTOM choice to the typed store name.
func (in OrderInput) StoreName() string {
	return resolveChoice(in.Store, StoreCustom, in.CustomStore)
}

// InventoryInput is the inventory form.
type InventoryInput struct {
	Product     string          `json:"product" validate:"required"`
	Store       string          `json:"store" validate:"required"`
	CustomStore string          `json:"custom_store" validate:"required_if=Store CUSTOM"`
	CostPrice   decimal.Decimal `json:"cost_price" validate:"gte=0"`
	SalePrice   decimal.Decimal `json:"sale_price" validate:"gte=0"`
	Color       string          `json:"color"`
	Size        string          `json:"size"`
	CustomSize  string          `json:"custom_size"`
	Quantity    decimal.Decimal `json:"quantity" validate:"gte=0"`
	Sold        decimal.Decimal `json:"sold" validate:"gte=0"`
}

// StoreName resolves the CUSTOM choice to the typed store name.
func (in InventoryInput) StoreName() string {
	return resolveChoice(in.Store, StoreCustom, in.CustomStore)
}

// SizeName resolves the free-text size choice.
func (in InventoryInput) SizeName() string {
	return resolveChoice(in.Size, SizeOther, in.CustomSize)
}

func resolveChoice(choice, freeText, typed string) string {
	if strings.EqualFold(strings.TrimSpace(choice), freeText) {
		return strings.TrimSpace(typed)
	}
	return strings.TrimSpace(choice)
}

// ValidationError maps input fields to human-readable problems.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]string, len(names))
	for i, name := range names {
		msgs[i] = e.Fields[name]
	}
	return strings.Join(msgs, "; ")
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
			if d, ok := v.Interface().(decimal.Decimal); ok {
				f, _ := d.Float64()
				return f
			}
			return nil
		}, decimal.Decimal{})
	})
	return validate
}

// fieldLabels names fields in messages.
var fieldLabels = map[string]string{
	"Product":      "product name",
	"Store":        "store",
	"CustomStore":  "custom store name",
	"GrossCost":    "gross cost",
	"SalePrice":    "sale price",
	"ExchangeRate": "exchange rate",
	"CostPrice":    "cost price",
	"Quantity":     "quantity",
	"Sold":         "units sold",
}

// Validate checks a tagged input struct and returns a *ValidationError
// describing every failed field.
func Validate(input any) error {
	err := validatorInstance().Struct(input)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := &ValidationError{Fields: make(map[string]string, len(fieldErrs))}
	for _, fe := range fieldErrs {
		label, ok := fieldLabels[fe.Field()]
		if !ok {
			label = strings.ToLower(fe.Field())
		}
		out.Fields[fe.Field()] = fieldMessage(label, fe.Tag(), fe.Param())
	}
	return out
}

func fieldMessage(label, tag, param string) string {
	switch tag {
	case "required", "required_if":
		return label + " is required"
	case "gt":
		if param == "0" {
			return label + " must be greater than zero"
		}
		return fmt.Sprintf("%s must be greater than %s", label, param)
	case "gte":
		if param == "0" {
			return label + " cannot be negative"
		}
		return fmt.Sprintf("%s must be at least %s", label, param)
	default:
		return fmt.Sprintf("%s has an invalid value", label)
	}
}
