package store

type FinanceType string

const (
	FinanceTypeIncome  FinanceType = "income"
	FinanceTypeExpense FinanceType = "expense"
)

type FinanceRecord struct {
	ID           int64
	UID          string
	TenantID     string
	UserID       string
	Type         FinanceType
	Amount       float64
	Category     string
	Counterparty string
	Description  string
	CreatedTs    int64
}

type FindFinanceRecord struct {
	TenantID string
	Type     *FinanceType
	Limit    int
}
