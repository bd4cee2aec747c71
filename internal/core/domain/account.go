package domain

// AccountType is the fundamental accounting type of an account, determining
// which side (debit/credit) increases its balance.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// NormalSide returns the entry type (DEBIT or CREDIT) that increases an
// account of this type.
func (t AccountType) NormalSide() EntryType {
	switch t {
	case Asset, Expense:
		return Debit
	default:
		return Credit
	}
}

// Account is an immutable registry record in the chart of accounts.
// Accounts are global (not tenant-scoped): the chart of accounts is shared
// infrastructure, while journals and entries posted against it carry the
// tenant that owns the economic event.
type Account struct {
	Code       string      `json:"code"` // globally unique, colon-separated hierarchy e.g. "Cash:Operating"
	Name       string      `json:"name"`
	Type       AccountType `json:"type"`
	ParentCode *string     `json:"parentCode,omitempty"`
	IsSystem   bool        `json:"isSystem"`
	AuditFields
}
