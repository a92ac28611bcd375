package models

import "time"

// PressType physical button gesture
type PressType string

const (
	PressSingle PressType = "single"
	PressDouble PressType = "double"
	PressLong   PressType = "long"
	PressShake  PressType = "shake"
)

// ButtonPress event published by a cabin smart button
type ButtonPress struct {
	DeviceID   string    `json:"deviceId"`
	LocationID *string   `json:"locationId,omitempty"`
	Cabin      string    `json:"cabin,omitempty"`
	GuestID    *string   `json:"guestId,omitempty"`
	Button     string    `json:"button,omitempty"` // main, aux1..aux4
	PressType  PressType `json:"pressType"`
	Emergency  bool      `json:"emergency,omitempty"`
	Battery    int       `json:"battery"`
	RSSI       int       `json:"rssi"`
	Firmware   string    `json:"firmwareVersion,omitempty"`
	Sequence   int64     `json:"sequenceNumber"`
	Timestamp  time.Time `json:"timestamp"`
}
