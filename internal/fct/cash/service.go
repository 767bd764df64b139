package cash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kitchenledger/kitchenledger/internal/fct/periods"
	"github.com/kitchenledger/kitchenledger/internal/fct/vouchers"
)

// BudgetCategory is the fixed category cash movements are controlled
// under.
const BudgetCategory = "cash"

// VoucherMaker synthesizes the manual voucher backing a cash movement.
// Satisfied by *vouchers.Service.
type VoucherMaker interface {
	CreateManual(ctx context.Context, in vouchers.ManualVoucherInput) (vouchers.Voucher, error)
}

// BudgetGate mirrors the voucher-side gate for cash creation.
type BudgetGate interface {
	Authorize(ctx context.Context, tenantID, entityID, category, period string, amount decimal.Decimal) error
}

// CreateInput describes a new cash movement.
type CreateInput struct {
	TenantID    string
	EntityID    string
	TxDate      time.Time
	Amount      decimal.Decimal
	Direction   Direction
	RefType     string
	RefID       string
	Description string
	// WithVoucher synthesizes a bank / other-payable voucher linked by
	// ref to this transaction.
	WithVoucher bool
}

// ImportRow is one row of a bulk import.
type ImportRow struct {
	EntityID    string          `json:"entity_id"`
	TxDate      string          `json:"tx_date"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	RefType     string          `json:"ref_type"`
	RefID       string          `json:"ref_id"`
	Description string          `json:"description"`
}

// Service owns cash reconciliation and the petty-cash fund.
type Service struct {
	repo     Repository
	vouchers VoucherMaker
	budget   BudgetGate
	chart    vouchers.ChartOfAccounts
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, maker VoucherMaker, budget BudgetGate, chart vouchers.ChartOfAccounts, logger *slog.Logger) *Service {
	return &Service{repo: repo, vouchers: maker, budget: budget, chart: chart, logger: logger, now: time.Now}
}

func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func validateCreate(in CreateInput) error {
	if in.TenantID == "" || in.EntityID == "" {
		return errors.New("cash: tenant and entity required")
	}
	if !in.Amount.IsPositive() {
		return errors.New("cash: amount must be positive")
	}
	if in.Direction != DirectionIn && in.Direction != DirectionOut {
		return fmt.Errorf("cash: unknown direction %q", in.Direction)
	}
	if in.TxDate.IsZero() {
		return errors.New("cash: tx_date required")
	}
	return nil
}

// Create records a pending movement, runs the budget gate under the
// fixed cash category, and optionally synthesizes the backing voucher.
func (s *Service) Create(ctx context.Context, in CreateInput) (Transaction, error) {
	if err := validateCreate(in); err != nil {
		return Transaction{}, err
	}
	if s.budget != nil && in.Direction == DirectionOut {
		if err := s.budget.Authorize(ctx, in.TenantID, in.EntityID, BudgetCategory, periods.KeyForDate(in.TxDate), in.Amount); err != nil {
			return Transaction{}, err
		}
	}
	created, err := s.repo.Insert(ctx, Transaction{
		TenantID:    in.TenantID,
		EntityID:    in.EntityID,
		TxDate:      in.TxDate,
		Amount:      in.Amount,
		Direction:   in.Direction,
		RefType:     in.RefType,
		RefID:       in.RefID,
		Description: in.Description,
	})
	if err != nil {
		return Transaction{}, err
	}
	if in.WithVoucher && s.vouchers != nil {
		voucher, err := s.vouchers.CreateManual(ctx, s.voucherFor(created))
		if err != nil {
			return Transaction{}, err
		}
		if err := s.repo.SetVoucher(ctx, created.ID, voucher.ID); err != nil {
			return Transaction{}, err
		}
		created.VoucherID = &voucher.ID
	}
	return created, nil
}

// voucherFor maps a movement onto bank vs other-payable sides.
func (s *Service) voucherFor(t Transaction) vouchers.ManualVoucherInput {
	bank := vouchers.ManualLineInput{AccountCode: s.chart.Bank.Code, AccountName: s.chart.Bank.Name, Description: t.Description}
	other := vouchers.ManualLineInput{AccountCode: s.chart.OtherPayable.Code, AccountName: s.chart.OtherPayable.Name, Description: t.Description}
	if t.Direction == DirectionIn {
		bank.Debit = t.Amount
		other.Credit = t.Amount
	} else {
		other.Debit = t.Amount
		bank.Credit = t.Amount
	}
	return vouchers.ManualVoucherInput{
		TenantID:    t.TenantID,
		EntityID:    t.EntityID,
		BizDate:     t.TxDate,
		Description: fmt.Sprintf("cash %s %s", t.Direction, t.RefID),
		Attachments: []string{fmt.Sprintf("cash_transaction:%d", t.ID)},
		Lines:       []vouchers.ManualLineInput{bank, other},
	}
}

// Match flips a pending transaction to matched under a fresh opaque
// match id.
func (s *Service) Match(ctx context.Context, tenantID string, id int64) (Transaction, error) {
	t, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Transaction{}, err
	}
	if t.Status != StatusPending {
		return Transaction{}, ErrNotPending
	}
	matchID := uuid.NewString()
	if err := s.repo.SetMatch(ctx, id, StatusMatched, &matchID); err != nil {
		return Transaction{}, err
	}
	t.Status = StatusMatched
	t.MatchID = &matchID
	return t, nil
}

// Unmatch reverts a matched transaction to pending.
func (s *Service) Unmatch(ctx context.Context, tenantID string, id int64) (Transaction, error) {
	t, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		return Transaction{}, err
	}
	if t.Status != StatusMatched {
		return Transaction{}, ErrNotMatched
	}
	if err := s.repo.SetMatch(ctx, id, StatusPending, nil); err != nil {
		return Transaction{}, err
	}
	t.Status = StatusPending
	t.MatchID = nil
	return t, nil
}

// Import bulk-inserts rows with per-row validation. With dedupe on,
// rows whose (entity, ref_type, ref_id) already exist are skipped
// rather than failing the batch.
func (s *Service) Import(ctx context.Context, tenantID string, rows []ImportRow, dedupe bool) (ImportResult, error) {
	var res ImportResult
	for i, row := range rows {
		txDate, err := time.Parse("2006-01-02", row.TxDate)
		if err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 1, Error: fmt.Sprintf("bad tx_date %q", row.TxDate)})
			continue
		}
		in := CreateInput{
			TenantID:    tenantID,
			EntityID:    row.EntityID,
			TxDate:      txDate,
			Amount:      row.Amount,
			Direction:   row.Direction,
			RefType:     row.RefType,
			RefID:       row.RefID,
			Description: row.Description,
		}
		if err := validateCreate(in); err != nil {
			res.Errors = append(res.Errors, RowError{Row: i + 1, Error: err.Error()})
			continue
		}
		if dedupe && row.RefType != "" && row.RefID != "" {
			exists, err := s.repo.ExistsRef(ctx, tenantID, row.EntityID, row.RefType, row.RefID)
			if err != nil {
				return ImportResult{}, err
			}
			if exists {
				res.Skipped++
				continue
			}
		}
		if _, err := s.repo.Insert(ctx, Transaction{
			TenantID:    in.TenantID,
			EntityID:    in.EntityID,
			TxDate:      in.TxDate,
			Amount:      in.Amount,
			Direction:   in.Direction,
			RefType:     in.RefType,
			RefID:       in.RefID,
			Description: in.Description,
		}); err != nil {
			return ImportResult{}, err
		}
		res.Imported++
	}
	if res.Skipped > 0 || len(res.Errors) > 0 {
		s.logger.Info("cash import finished with skips",
			slog.String("tenant", tenantID),
			slog.Int("imported", res.Imported),
			slog.Int("skipped", res.Skipped),
			slog.Int("errors", len(res.Errors)))
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, tenantID string, id int64) (Transaction, error) {
	return s.repo.Get(ctx, tenantID, id)
}

func (s *Service) List(ctx context.Context, tenantID, entityID string, status TxStatus) ([]Transaction, error) {
	return s.repo.List(ctx, tenantID, entityID, status)
}

// EnsureFund creates or updates the revolving fund for an entity.
func (s *Service) EnsureFund(ctx context.Context, tenantID, entityID, holder string) (PettyCash, error) {
	if tenantID == "" || entityID == "" {
		return PettyCash{}, errors.New("cash: tenant and entity required")
	}
	return s.repo.UpsertFund(ctx, PettyCash{TenantID: tenantID, EntityID: entityID, Holder: holder})
}

// FundMove applies/offsets/repays against the fund. Offsets and repays
// never push the balance negative.
func (s *Service) FundMove(ctx context.Context, tenantID, entityID, kind string, amount decimal.Decimal, note string) (PettyCash, error) {
	if !amount.IsPositive() {
		return PettyCash{}, errors.New("cash: amount must be positive")
	}
	fund, err := s.repo.GetFund(ctx, tenantID, entityID)
	if err != nil {
		return PettyCash{}, err
	}
	delta := amount
	switch kind {
	case PettyApply:
	case PettyOffset, PettyRepay:
		delta = amount.Neg()
	default:
		return PettyCash{}, fmt.Errorf("cash: unknown petty cash kind %q", kind)
	}
	return s.repo.AdjustFund(ctx, fund.ID, delta, PettyCashRecord{
		PettyCashID: fund.ID,
		Kind:        kind,
		Amount:      amount,
		Note:        note,
		At:          s.now(),
	})
}

// FundRecords lists the fund's movement history.
func (s *Service) FundRecords(ctx context.Context, tenantID, entityID string) ([]PettyCashRecord, error) {
	fund, err := s.repo.GetFund(ctx, tenantID, entityID)
	if err != nil {
		return nil, err
	}
	return s.repo.FundRecords(ctx, fund.ID)
}
