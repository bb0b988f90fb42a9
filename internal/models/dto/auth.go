package dto

import "github.com/ong-aas/claims-portal/internal/models"

type RegisterRequest struct {
	FullName          string `json:"full_name"`
	CarNumber         string `json:"car_number"`
	PhoneNumber       string `json:"phone_number"`
	PIN               string `json:"pin"`
	ProfileImage      string `json:"profile_image"`
	DriverLicense     string `json:"driver_license"`
	InsuranceDocument string `json:"insurance_image"`
	InsuranceStart    string `json:"insurance_start"`
	InsuranceEnd      string `json:"insurance_end"`
}

type LoginRequest struct {
	PhoneNumber string `json:"phone_number"`
	PIN         string `json:"pin"`
}

type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expires_at"`
	User      models.User `json:"user"`
}

type PasswordSetupRequest struct {
	URL      string `json:"url"`
	Password string `json:"password"`
}
