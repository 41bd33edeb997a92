package webhook

import (
	"github.com/corray333/backend-labs/checkout/internal/service/models/payment"
	"github.com/xeipuuv/gojsonschema"
)

const envelopeSchema = `{
  "type": "object",
  "required": ["event"],
  "properties": {
    "event": {"type": "string", "minLength": 1},
    "data": {"type": "object"},
    "timestamp": {"type": "integer"},
    "checksum": {"type": "string"}
  }
}`

const transactionUpdatedSchema = `{
  "type": "object",
  "required": ["event", "data"],
  "properties": {
    "event": {"const": "transaction.updated"},
    "data": {
      "type": "object",
      "required": ["id", "reference", "status"],
      "properties": {
        "id": {"type": "string", "minLength": 1},
        "reference": {"type": "string", "minLength": 1, "maxLength": 64},
        "status": {"type": "string", "minLength": 1},
        "amount": {"type": "integer", "minimum": 0},
        "currency": {"type": "string"},
        "customer_email": {"type": "string"},
        "payment_method": {
          "type": "object",
          "properties": {
            "type": {"type": "string"},
            "installments": {"type": "integer", "minimum": 0}
          }
        },
        "created_at": {"type": "string"},
        "updated_at": {"type": "string"}
      }
    },
    "timestamp": {"type": "integer"},
    "checksum": {"type": "string"}
  }
}`

var (
	envelopeLoader = gojsonschema.NewStringLoader(envelopeSchema)
	// eventSchemas maps each actionable event type to the shape it must have.
	eventSchemas = map[string]gojsonschema.JSONLoader{
		payment.EventTransactionUpdated: gojsonschema.NewStringLoader(transactionUpdatedSchema),
	}
)
