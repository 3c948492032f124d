package domain

import "fmt"

// NotAvailable is the placeholder used by vendor level lookups.
const NotAvailable = "N/A"

// SelectMainAccount returns the first account flagged main, else the first
// account. Nil when accounts is empty.
func SelectMainAccount(accounts []BankAccount) *BankAccount {
	if len(accounts) == 0 {
		return nil
	}
	for i := range accounts {
		if accounts[i].IsMain {
			return &accounts[i]
		}
	}
	return &accounts[0]
}

// BankInfoFor renders account with placeholder substituted for every
// missing value. A nil account yields placeholders only.
func BankInfoFor(account *BankAccount, placeholder string) BankInfo {
	info := BankInfo{
		BankName:      placeholder,
		AccountNumber: placeholder,
		CCINumber:     placeholder,
		AccountType:   placeholder,
	}
	if account == nil {
		return info
	}
	info.BankName = valueOr(account.BankName, placeholder)
	info.AccountNumber = valueOr(account.AccountNumber, placeholder)
	info.CCINumber = valueOr(account.CCINumber, placeholder)
	if account.AccountType != nil {
		info.AccountType = valueOr(account.AccountType.Label(), placeholder)
	}
	return info
}

// DisplayName formats "<bank> - <number>" with the CCI appended when present.
func DisplayName(account BankAccount) string {
	name := fmt.Sprintf("%s - %s",
		valueOr(account.BankName, "Bank"),
		valueOr(account.AccountNumber, "No number"),
	)
	if account.CCINumber != "" {
		name += fmt.Sprintf(" (CCI: %s)", account.CCINumber)
	}
	return name
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
