package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"catalog/internal/apperrors"
	"catalog/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	msgRequired   = "is required"
	msgNotString  = "must be a string"
	msgNotNumber  = "must be a number"
	msgNotInteger = "must be an integer"
)

// createProductRequest is the decoded body of a create call.
type createProductRequest struct {
	Name     *string  `json:"name" validate:"required,max=255"`
	Price    *float64 `json:"price" validate:"required"`
	Quantity *int64   `json:"quantity" validate:"required"`
}

// updateProductRequest is the decoded body of an update call; every field is optional.
type updateProductRequest struct {
	Name     *string  `json:"name" validate:"omitempty,max=255"`
	Price    *float64 `json:"price"`
	Quantity *int64   `json:"quantity"`
}

// newValidator returns a validator that reports fields by their json name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeBody parses body as a JSON object. An empty body is an empty object.
func decodeBody(body []byte) (map[string]interface{}, error) {
	raw := make(map[string]interface{})
	if len(bytes.TrimSpace(body)) == 0 {
		return raw, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON object")
	}
	if raw == nil {
		raw = make(map[string]interface{})
	}
	return raw, nil
}

// productFields converts the raw payload into typed fields. Values of the
// wrong type are recorded in verr. A null is reported as a type error only
// when partial is set; otherwise the field stays nil and fails "required".
func productFields(raw map[string]interface{}, partial bool, verr *apperrors.ValidationError) models.ProductChanges {
	var changes models.ProductChanges

	if v, ok := raw["name"]; ok {
		switch s := v.(type) {
		case string:
			// Blank strings count as absent.
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				changes.Name = &trimmed
			} else if partial {
				verr.Add("name", msgNotString)
			}
		case nil:
			if partial {
				verr.Add("name", msgNotString)
			}
		default:
			verr.Add("name", msgNotString)
		}
	}

	if v, ok := raw["price"]; ok {
		if v == nil {
			if partial {
				verr.Add("price", msgNotNumber)
			}
		} else if price, ok := parseNumeric(v); ok {
			changes.Price = &price
		} else {
			verr.Add("price", msgNotNumber)
		}
	}

	if v, ok := raw["quantity"]; ok {
		if v == nil {
			if partial {
				verr.Add("quantity", msgNotInteger)
			}
		} else if quantity, ok := parseInteger(v); ok {
			changes.Quantity = &quantity
		} else {
			verr.Add("quantity", msgNotInteger)
		}
	}

	return changes
}

// parseNumeric accepts a JSON number or a numeric string.
func parseNumeric(v interface{}) (float64, bool) {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = strings.TrimSpace(n)
	default:
		return 0, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false
	}
	f := d.InexactFloat64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// parseInteger accepts a JSON number or string holding a base-10 integer.
func parseInteger(v interface{}) (int64, bool) {
	var s string
	switch n := v.(type) {
	case json.Number:
		s = n.String()
	case string:
		s = strings.TrimSpace(n)
	default:
		return 0, false
	}

	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

// collectRuleErrors runs struct tag rules and records failures for fields
// that did not already fail their type check.
func collectRuleErrors(validate *validator.Validate, req interface{}, verr *apperrors.ValidationError) {
	err := validate.Struct(req)
	if err == nil {
		return
	}
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		verr.Add("body", err.Error())
		return
	}
	for _, e := range validationErrors {
		field := e.Field()
		if verr.Has(field) {
			continue
		}
		switch e.Tag() {
		case "required":
			verr.Add(field, msgRequired)
		case "max":
			verr.Add(field, fmt.Sprintf("must not be greater than %s characters", e.Param()))
		default:
			verr.Add(field, fmt.Sprintf("failed on the '%s' rule", e.Tag()))
		}
	}
}

// parseCreateRequest validates a create body and returns the new product.
func parseCreateRequest(validate *validator.Validate, raw map[string]interface{}) (*models.Product, error) {
	verr := apperrors.NewValidationError()
	fields := productFields(raw, false, verr)

	collectRuleErrors(validate, createProductRequest{
		Name:     fields.Name,
		Price:    fields.Price,
		Quantity: fields.Quantity,
	}, verr)
	if !verr.Empty() {
		return nil, verr
	}

	return &models.Product{
		Name:     *fields.Name,
		Price:    *fields.Price,
		Quantity: *fields.Quantity,
	}, nil
}

// parseUpdateRequest validates an update body and returns the supplied changes.
func parseUpdateRequest(validate *validator.Validate, raw map[string]interface{}) (models.ProductChanges, error) {
	verr := apperrors.NewValidationError()
	fields := productFields(raw, true, verr)

	collectRuleErrors(validate, updateProductRequest{
		Name:     fields.Name,
		Price:    fields.Price,
		Quantity: fields.Quantity,
	}, verr)
	if !verr.Empty() {
		return models.ProductChanges{}, verr
	}
	return fields, nil
}
