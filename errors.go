package raptorq

import "errors"

// Error kinds surfaced by the encoder and decoder. Each is a distinct
// sentinel so callers can use errors.Is instead of string matching.
var (
	// ErrInvalidObjectSize is returned when F is zero or exceeds MaxF.
	ErrInvalidObjectSize = errors.New("raptorq: invalid object size")

	// ErrInvalidParameters is returned when a block's K falls outside the
	// tabulated K' range, or Al does not divide T.
	ErrInvalidParameters = errors.New("raptorq: invalid transport parameters")

	// ErrUnknownBlock is returned when an operation names an SBN >= Z.
	ErrUnknownBlock = errors.New("raptorq: unknown source block number")

	// ErrEsiOutOfRange is returned when ESI >= 2^20.
	ErrEsiOutOfRange = errors.New("raptorq: esi out of range")

	// ErrBufferTooSmall is returned when an output buffer cannot hold a
	// symbol or block.
	ErrBufferTooSmall = errors.New("raptorq: output buffer too small")

	// ErrDuplicateSymbol is informational: AddSymbol already had this
	// (SBN, ESI) pair. It is never returned alongside a partial write.
	ErrDuplicateSymbol = errors.New("raptorq: duplicate symbol")

	// ErrNeedMoreSymbols is returned by Decode when fewer than K rows
	// have been received for a block.
	ErrNeedMoreSymbols = errors.New("raptorq: need more symbols")

	// ErrDecodeFailure is returned when inactivation decoding does not
	// converge despite K+epsilon or more received rows.
	ErrDecodeFailure = errors.New("raptorq: decode failure")

	// ErrPrecodeFailure is returned when the precode constraint matrix is
	// singular for a tabulated K'. This indicates a programming error,
	// never a runtime condition in production.
	ErrPrecodeFailure = errors.New("raptorq: precode failure (singular matrix)")
)
