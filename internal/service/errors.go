package service

import "errors"

// Ошибки валидации. Возвращаются до любых изменений в хранилище.
var (
	ErrNoUser             = errors.New("user id is required")
	ErrNoServer           = errors.New("server id or server name is required")
	ErrInvalidAmount      = errors.New("amount is out of the allowed range")
	ErrInvalidOrderType   = errors.New("unknown order type")
	ErrInvalidStatus      = errors.New("unknown order status")
	ErrInvalidStatsRole   = errors.New("unknown stats role")
	ErrInvalidBanDuration = errors.New("ban duration must not be negative")
	ErrUserBanned         = errors.New("user is banned")
)
