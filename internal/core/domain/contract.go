package domain

import "time"

// ContractStatus is the lifecycle state of a loan contract.
type ContractStatus string

const (
	ContractPendingDisbursement ContractStatus = "PENDING_DISBURSEMENT"
	ContractActive              ContractStatus = "ACTIVE"
	ContractPaidOff             ContractStatus = "PAID_OFF"
	ContractDefaulted           ContractStatus = "DEFAULTED"
	ContractCancelled           ContractStatus = "CANCELLED"
)

// PaymentFrequency is how often scheduled payments fall due.
type PaymentFrequency string

const (
	Weekly   PaymentFrequency = "WEEKLY"
	Biweekly PaymentFrequency = "BIWEEKLY"
	Monthly  PaymentFrequency = "MONTHLY"
)

// LoanContract is an originated loan.
type LoanContract struct {
	ID                     string           `json:"id"`
	TenantID               string           `json:"tenantID"`
	Status                 ContractStatus   `json:"status"`
	PrincipalCents         int64            `json:"principalCents"`
	AprBps                 int              `json:"aprBps"`
	TermMonths             int              `json:"termMonths"`
	PaymentFrequency       PaymentFrequency `json:"paymentFrequency"`
	FirstPaymentDate       time.Time        `json:"firstPaymentDate"`
	PrincipalBalanceCents  int64            `json:"principalBalanceCents"`
	InterestBalanceCents   int64            `json:"interestBalanceCents"`
	FeesBalanceCents       int64            `json:"feesBalanceCents"`
	DisbursedAt            *time.Time       `json:"disbursedAt,omitempty"`
	PaidOffAt              *time.Time       `json:"paidOffAt,omitempty"`
	AuditFields
}

// TotalOutstandingCents sums the three balance buckets.
func (c LoanContract) TotalOutstandingCents() int64 {
	return c.PrincipalBalanceCents + c.InterestBalanceCents + c.FeesBalanceCents
}

// ScheduleItemStatus is the lifecycle of one amortization schedule line.
type ScheduleItemStatus string

const (
	ScheduleItemScheduled ScheduleItemStatus = "SCHEDULED"
	ScheduleItemDue       ScheduleItemStatus = "DUE"
	ScheduleItemPaid      ScheduleItemStatus = "PAID"
	ScheduleItemMissed    ScheduleItemStatus = "MISSED"
)

// ScheduleItem is one period of a contract's amortization schedule,
// limited to level-principal, simple-interest amortization.
type ScheduleItem struct {
	ID                string             `json:"id"`
	ContractID        string             `json:"contractID"`
	Period            int                `json:"period"`
	DueDate           time.Time          `json:"dueDate"`
	PrincipalDueCents int64              `json:"principalDueCents"`
	InterestDueCents  int64              `json:"interestDueCents"`
	FeesDueCents      int64              `json:"feesDueCents"`
	Status            ScheduleItemStatus `json:"status"`
}
