// Package dto holds the JSON payloads shared by the HTTP layer.
package dto

import "time"

// HealthResponse describes the payload returned by standard /healthz endpoints.
type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment,omitempty"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TokenResponse is returned by register and login.
type TokenResponse struct {
	Success   bool         `json:"success"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// PageInfo describes a page of a listing.
type PageInfo struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"pageSize"`
	TotalItems int  `json:"totalItems"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
}

// UserListResponse is a page of accounts.
type UserListResponse struct {
	Success    bool           `json:"success"`
	Data       []UserResponse `json:"data"`
	Pagination PageInfo       `json:"pagination"`
}
