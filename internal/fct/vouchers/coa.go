package vouchers

// Account pairs a ledger code with its display name.
type Account struct {
	Code string
	Name string
}

// ChartOfAccounts binds the rule engine to concrete ledger codes.
// Tenants can override the defaults without touching the rules.
type ChartOfAccounts struct {
	Cash              Account
	Bank              Account
	Receivable        Account
	Inventory         Account
	InputTax          Account
	Payable           Account
	OtherPayable      Account
	ContractLiability Account
	OutputTax         Account
	Revenue           Account
	SalesExpense      Account
	DiffAdjustment    Account
}

// DefaultChart returns the stock restaurant chart of accounts.
func DefaultChart() ChartOfAccounts {
	return ChartOfAccounts{
		Cash:              Account{Code: "1001", Name: "库存现金"},
		Bank:              Account{Code: "1002", Name: "银行存款"},
		Receivable:        Account{Code: "1122", Name: "应收账款"},
		Inventory:         Account{Code: "1405", Name: "库存商品"},
		InputTax:          Account{Code: "22210102", Name: "应交增值税-进项税额"},
		Payable:           Account{Code: "2202", Name: "应付账款"},
		OtherPayable:      Account{Code: "2241", Name: "其他应付款"},
		ContractLiability: Account{Code: "2203", Name: "合同负债"},
		OutputTax:         Account{Code: "22210101", Name: "应交增值税-销项税额"},
		Revenue:           Account{Code: "6001", Name: "主营业务收入"},
		SalesExpense:      Account{Code: "6601", Name: "销售费用"},
		DiffAdjustment:    Account{Code: "6603", Name: "差额调整"},
	}
}
