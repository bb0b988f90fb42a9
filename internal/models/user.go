package models

import "time"

// User captures application-facing fields for a registered member or staff account.
type User struct {
	ID                string     `json:"id"`
	FullName          string     `json:"full_name"`
	PhoneNumber       string     `json:"phone_number"`
	PINHash           string     `json:"-"`
	ProfileImage      string     `json:"profile_image,omitempty"`
	DriverLicense     string     `json:"driver_license,omitempty"`
	InsuranceDocument string     `json:"insurance_image,omitempty"`
	InsuranceStart    *time.Time `json:"insurance_start,omitempty"`
	InsuranceEnd      *time.Time `json:"insurance_end,omitempty"`
	CarNumber         string     `json:"car_number"`
	Verified          bool       `json:"is_verified"`
	Role              string     `json:"role"`
	Version           int        `json:"version"`
	CreatedAt         time.Time  `json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
