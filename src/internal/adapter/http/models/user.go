package models

import (
	"errors"
	"strings"
)

type LoginRequest struct {
	AccountID AccountID `json:"accountId"`
	Password  string    `json:"password"`
}

func (r LoginRequest) Validate() error {
	var errs []string

	if r.AccountID.String() == "" {
		errs = append(errs, "accountId is required")
	}
	if strings.TrimSpace(r.Password) == "" {
		errs = append(errs, "password is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

type LoginResponse struct {
	Token      string    `json:"token"`
	AccountID  AccountID `json:"accountId"`
	HolderName string    `json:"holderName"`
}
