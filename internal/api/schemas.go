package api

const createAccountSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["name", "initial_deposit", "account_type"],
  "properties": {
    "name": {"type": "string", "maxLength": 255},
    "initial_deposit": {"type": "number"},
    "account_type": {"type": "string", "minLength": 1, "maxLength": 50}
  }
}`

const amountSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["amount"],
  "properties": {
    "amount": {"type": "number"}
  }
}`

const transferSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["from_account_id", "to_account_id", "amount"],
  "properties": {
    "from_account_id": {"type": "integer", "minimum": 1},
    "to_account_id": {"type": "integer", "minimum": 1},
    "amount": {"type": "number"}
  }
}`
