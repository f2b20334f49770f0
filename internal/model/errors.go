package model

import "errors"

var (
	ErrInvalidArgument         = errors.New("invalid argument")
	ErrCurrencyNotAccepted     = errors.New("currency not accepted")
	ErrCurrencyAlreadyAccepted = errors.New("currency already accepted")
	ErrOverLimit               = errors.New("claim over limit")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrPaused                  = errors.New("paused")
	ErrNotPaused               = errors.New("not paused")
	ErrReentrantCall           = errors.New("reentrant call")
)

func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsOverLimit(err error) bool {
	return errors.Is(err, ErrOverLimit)
}

func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

func IsPaused(err error) bool {
	return errors.Is(err, ErrPaused)
}

// Reason maps an error onto the taxonomy for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrCurrencyNotAccepted):
		return "currency_not_accepted"
	case errors.Is(err, ErrCurrencyAlreadyAccepted):
		return "currency_already_accepted"
	case errors.Is(err, ErrOverLimit):
		return "over_limit"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrPaused):
		return "paused"
	case errors.Is(err, ErrNotPaused):
		return "not_paused"
	case errors.Is(err, ErrReentrantCall):
		return "reentrant"
	default:
		return "backend"
	}
}
