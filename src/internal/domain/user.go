package domain

import (
	"fmt"
	"strings"
)

// Identity is the authenticated account holder. It is issued by login and
// never mutated afterwards.
type Identity struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	HolderName    string `json:"holderName"`
	AccountNumber string `json:"accountNumber"`
}

// Session is the single process-wide authentication slot.
type Session struct {
	Identity *Identity
	Token    string
}

func (s Session) IsAuthenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}

// MaskAccountNumber renders an account id in the XXXX-XXXX-dddd display form.
func MaskAccountNumber(accountID string) string {
	id := strings.TrimSpace(accountID)
	if len(id) > 4 {
		id = id[len(id)-4:]
	}
	if len(id) < 4 {
		id = strings.Repeat("0", 4-len(id)) + id
	}
	return fmt.Sprintf("XXXX-XXXX-%s", id)
}

// LoginResult is what the backend returns for accepted credentials.
type LoginResult struct {
	Token      string
	AccountID  string
	HolderName string
}
