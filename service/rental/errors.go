package rental

import "errors"

type ErrCode string

const (
	ErrInvalidReference  ErrCode = "INVALID_REFERENCE"
	ErrOutOfStock        ErrCode = "OUT_OF_STOCK"
	ErrAlreadyRented     ErrCode = "ALREADY_RENTED"
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrAlreadyReturned   ErrCode = "ALREADY_RETURNED"
	ErrTransactionFailed ErrCode = "TRANSACTION_FAILED"
)

const (
	msgInvalidCustomer = "Invalid customer."
	msgInvalidMovie    = "Invalid movie."
	msgOutOfStock      = "Movie not in stock."
	msgAlreadyRented   = "Rental already processed."
	msgRentalNotFound  = "Rental not found."
	msgAlreadyReturned = "Return already processed."
	msgRentalByID      = "The rental with the given ID was not found."
	msgFailed          = "Something failed."
)

// codedError carries a client-facing message; cause is kept for logs only.
type codedError struct {
	code  ErrCode
	msg   string
	cause error
}

func (e codedError) Error() string {
	if e.cause != nil {
		return string(e.code) + ": " + e.cause.Error()
	}
	return string(e.code) + ": " + e.msg
}

func (e codedError) Code() ErrCode   { return e.code }
func (e codedError) Message() string { return e.msg }
func (e codedError) Unwrap() error   { return e.cause }

func makeErr(c ErrCode, msg string) error { return codedError{code: c, msg: msg} }

func failed(cause error) error {
	return codedError{code: ErrTransactionFailed, msg: msgFailed, cause: cause}
}

// Code extracts error code
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Message returns the client-facing text of a coded error, or "" otherwise.
func Message(err error) string {
	var ce interface{ Message() string }
	if errors.As(err, &ce) {
		return ce.Message()
	}
	return ""
}

// classify passes coded errors through and turns everything else into
// TRANSACTION_FAILED.
func classify(err error) error {
	if err == nil || Code(err) != "" {
		return err
	}
	return failed(err)
}
