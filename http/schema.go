package http

import (
	"github.com/xeipuuv/gojsonschema"

	paysim "github.com/corebank/paysim"
)

// transferSchema is the structural contract of the POST /transfer body.
// Amount precision is deliberately not encoded here: JSON Schema number
// handling would round-trip through float64, so exact decimal-place
// checks live in Amount.UnmarshalJSON instead.
const transferSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["client_transfer_id", "source_account", "destination_account", "amount", "currency"],
	"properties": {
		"client_transfer_id": {"type": "string", "minLength": 1, "maxLength": 100},
		"source_account": {"type": "string", "minLength": 1},
		"destination_account": {"type": "string", "minLength": 1},
		"amount": {"type": ["string", "number"]},
		"currency": {"type": "string"},
		"reference": {"type": "string", "maxLength": 120}
	},
	"additionalProperties": true
}`

var compiledTransferSchema = gojsonschema.NewStringLoader(transferSchema)

// validateSchema checks the raw body against the transfer schema and
// converts the first violation into a ValidationError.
func validateSchema(body []byte) error {
	result, err := gojsonschema.Validate(compiledTransferSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &DecodeError{Err: err}
	}
	if result.Valid() {
		return nil
	}
	first := result.Errors()[0]
	field := first.Field()
	if field == "(root)" {
		field = "body"
	}
	return paysim.NewValidationError(field, first.Description())
}
