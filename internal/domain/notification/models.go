package notification

import (
	"errors"
	"time"
)

var validDeviceTypes = map[string]struct{}{
	"ios":     {},
	"android": {},
	"web":     {},
}

var (
	ErrDeviceTokenNotFound = errors.New("device token not found")
	ErrInvalidDeviceType   = errors.New("device type must be 'ios', 'android' or 'web'")
	ErrInvalidToken        = errors.New("device token is required")
)

// DeviceToken represents a registered FCM device token
type DeviceToken struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"userId"`
	Token      string    `json:"token"`
	DeviceType string    `json:"deviceType"`
	IsActive   bool      `json:"isActive"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsed   time.Time `json:"lastUsed"`
}

// CreateDeviceTokenParams are the parameters for registering a device token
type CreateDeviceTokenParams struct {
	UserID     int64  `json:"-"`
	Token      string `json:"token"`
	DeviceType string `json:"deviceType"`
}

func (p *CreateDeviceTokenParams) Validate() error {
	if p.Token == "" {
		return ErrInvalidToken
	}
	if _, ok := validDeviceTypes[p.DeviceType]; !ok {
		return ErrInvalidDeviceType
	}
	return nil
}
