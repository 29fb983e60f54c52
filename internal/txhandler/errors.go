package txhandler

import "errors"

// Validation rejections. All are expected outcomes: the caller drops the
// offending transaction or block and continues.
var (
	ErrUnknownUTXO    = errors.New("input claims unknown utxo")
	ErrDoubleClaim    = errors.New("utxo claimed by more than one input")
	ErrBadSignature   = errors.New("invalid input signature")
	ErrNegativeOutput = errors.New("output value is negative or not finite")
	ErrUnbalanced     = errors.New("outputs exceed claimed inputs")
	ErrBadCoinbase    = errors.New("invalid coinbase")
	ErrNilTransaction = errors.New("nil transaction")
)

// Reason returns a short label for a rejection, for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnknownUTXO):
		return "unknown_utxo"
	case errors.Is(err, ErrDoubleClaim):
		return "double_claim"
	case errors.Is(err, ErrBadSignature):
		return "bad_signature"
	case errors.Is(err, ErrNegativeOutput):
		return "negative_output"
	case errors.Is(err, ErrUnbalanced):
		return "unbalanced"
	case errors.Is(err, ErrBadCoinbase):
		return "bad_coinbase"
	case errors.Is(err, ErrNilTransaction):
		return "nil_transaction"
	default:
		return "other"
	}
}
