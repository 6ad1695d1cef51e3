package services

import "errors"

var (
	// ErrVoucherRepositoryMissing indicates the voucher repositories are absent.
	ErrVoucherRepositoryMissing = errors.New("voucher service: repository is not configured")
	// ErrVoucherInvalidID signals a blank voucher identifier.
	ErrVoucherInvalidID = errors.New("voucher service: invalid voucher id")
	// ErrVoucherNotFound indicates no voucher exists for the identifier.
	ErrVoucherNotFound = errors.New("voucher service: voucher not found")
	// ErrVoucherConflict indicates a voucher with the same identifier already exists.
	ErrVoucherConflict = errors.New("voucher service: voucher already exists")
	// ErrVoucherUnavailable indicates the backing store cannot serve requests right now.
	ErrVoucherUnavailable = errors.New("voucher service: repository unavailable")
	// ErrVoucherInvalidChannel signals an unknown usage channel filter.
	ErrVoucherInvalidChannel = errors.New("voucher service: invalid usage channel")
	// ErrVoucherStoredTargetInvalid indicates the stored condition target can no longer be parsed,
	// so the edit form cannot be hydrated.
	ErrVoucherStoredTargetInvalid = errors.New("voucher service: stored condition target is invalid")
)
