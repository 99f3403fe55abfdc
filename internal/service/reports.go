package service

import (
	"context"
	"fmt"
	"time"

	"dhukaan/backend/internal/domain"
	"dhukaan/backend/internal/ident"
	"dhukaan/backend/internal/store"
)

// CreateZReport settles every transaction not yet covered by an earlier
// report. The report's transaction set partitions history permanently:
// once a transaction appears in a report it never appears in another.
// When nothing is pending the returned report is empty and not persisted.
func (s *Service) CreateZReport(ctx context.Context) (domain.DailyReport, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.DailyReport{}, fmt.Errorf("admin role required")
	}

	reported, err := s.repo.ReportedTransactionIDs(ctx)
	if err != nil {
		return domain.DailyReport{}, err
	}
	all, err := s.repo.ListTransactions(ctx, 0)
	if err != nil {
		return domain.DailyReport{}, err
	}

	candidates := make([]domain.Transaction, 0, len(all))
	for _, tx := range all {
		if _, done := reported[tx.ID]; done {
			continue
		}
		candidates = append(candidates, tx)
	}

	now := time.Now().UTC()
	report := domain.DailyReport{
		Date:             now.Format("2006-01-02"),
		TransactionIDs:   make([]string, 0, len(candidates)),
		PaymentBreakdown: make(map[string]int64),
		CreatedAt:        now,
	}

	if len(candidates) == 0 {
		return report, nil
	}

	var costOfGoods int64
	for _, tx := range candidates {
		report.TransactionIDs = append(report.TransactionIDs, tx.ID)
		report.TotalSalesLaari += tx.TotalLaari
		report.TotalDiscountsLaari += tx.DiscountLaari

		returnedQty := make(map[string]int)
		for _, event := range tx.Returns {
			report.TotalReturnsLaari += event.RefundLaari
			for _, line := range event.Items {
				returnedQty[line.ProductID] += line.Quantity
			}
		}

		// Only units that stayed sold carry wholesale cost.
		for _, line := range tx.Items {
			returned := returnedQty[line.ProductID]
			if returned > line.Quantity {
				returned = line.Quantity
			}
			returnedQty[line.ProductID] -= returned
			costOfGoods += line.WholesalePriceLaari * int64(line.Quantity-returned)
		}

		addPaymentBreakdown(report.PaymentBreakdown, tx)
	}
	report.NetSalesLaari = report.TotalSalesLaari - report.TotalReturnsLaari
	report.TotalProfitLaari = report.NetSalesLaari - costOfGoods
	report.ID = ident.New("zrep")

	created, err := s.repo.CreateDailyReport(ctx, report)
	if err != nil {
		return domain.DailyReport{}, err
	}

	s.logAudit(ctx, "z_report_create", "daily_report", created.ID,
		fmt.Sprintf("transactions=%d,net=%d", len(created.TransactionIDs), created.NetSalesLaari))
	return *created, nil
}

// addPaymentBreakdown attributes collected money per tender. A "multiple"
// sale splits into its gift card portion first with the remainder on card;
// other methods take the whole total, with any gift card payments tracked
// under their own tender.
func addPaymentBreakdown(breakdown map[string]int64, tx domain.Transaction) {
	var giftPortion int64
	for _, payment := range tx.GiftCardPayments {
		giftPortion += payment.AmountLaari
	}

	switch tx.PaymentMethod {
	case domain.PaymentMethodMultiple:
		breakdown[domain.PaymentMethodGiftCard] += giftPortion
		breakdown[domain.PaymentMethodCard] += tx.TotalLaari
	case domain.PaymentMethodGiftCard:
		breakdown[domain.PaymentMethodGiftCard] += giftPortion
	default:
		if giftPortion > 0 {
			breakdown[domain.PaymentMethodGiftCard] += giftPortion
		}
		breakdown[tx.PaymentMethod] += tx.TotalLaari
	}
}

func (s *Service) ListZReports(ctx context.Context, limit int) ([]domain.DailyReport, error) {
	return s.repo.ListDailyReports(ctx, limit)
}

// GenerateMonthlyStatement collects a customer's unpaid credit sales for a
// period into one statement due on the configured day of the next month.
func (s *Service) GenerateMonthlyStatement(ctx context.Context, customerID string, year int, month int) (domain.MonthlyStatement, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.MonthlyStatement{}, fmt.Errorf("admin role required")
	}
	if customerID == "" || year < 2000 || month < 1 || month > 12 {
		return domain.MonthlyStatement{}, store.ErrInvalidRequest
	}

	if _, err := s.repo.GetCustomerByID(ctx, customerID); err != nil {
		return domain.MonthlyStatement{}, err
	}

	unpaid, err := s.repo.ListCustomerTransactions(ctx, customerID, domain.PaymentStatusUnpaid)
	if err != nil {
		return domain.MonthlyStatement{}, err
	}

	periodStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	statement := domain.MonthlyStatement{
		CustomerID:     customerID,
		PeriodYear:     year,
		PeriodMonth:    month,
		TransactionIDs: make([]string, 0, len(unpaid)),
		DueDate:        time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, s.cfg.StatementDueDay-1),
		Status:         domain.StatementStatusDue,
		OverdueStatus:  domain.OverdueStatusNone,
		CreatedAt:      time.Now().UTC(),
	}
	for _, tx := range unpaid {
		if tx.PaymentMethod != domain.PaymentMethodCredit {
			continue
		}
		if tx.CreatedAt.Before(periodStart) || !tx.CreatedAt.Before(periodEnd) {
			continue
		}
		statement.TransactionIDs = append(statement.TransactionIDs, tx.ID)
		statement.TotalDueLaari += tx.TotalLaari
	}
	if len(statement.TransactionIDs) == 0 {
		return domain.MonthlyStatement{}, store.ErrInvalidRequest
	}

	created, err := s.repo.CreateMonthlyStatement(ctx, statement)
	if err != nil {
		return domain.MonthlyStatement{}, err
	}

	s.logAudit(ctx, "statement_generate", "monthly_statement", created.ID,
		fmt.Sprintf("customer=%s,period=%d-%02d,due=%d", customerID, year, month, created.TotalDueLaari))
	return *created, nil
}

// PayMonthlyStatement settles a statement: its transactions flip to paid
// and, when no other overdue statements remain, the customer's credit block
// lifts.
func (s *Service) PayMonthlyStatement(ctx context.Context, statementID string) (domain.MonthlyStatement, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.MonthlyStatement{}, fmt.Errorf("admin role required")
	}

	statements, err := s.repo.ListMonthlyStatements(ctx, "", "")
	if err != nil {
		return domain.MonthlyStatement{}, err
	}
	var target *domain.MonthlyStatement
	for i := range statements {
		if statements[i].ID == statementID {
			target = &statements[i]
			break
		}
	}
	if target == nil {
		return domain.MonthlyStatement{}, store.ErrNotFound
	}
	if target.Status == domain.StatementStatusPaid {
		return domain.MonthlyStatement{}, store.ErrInvalidRequest
	}

	for _, txID := range target.TransactionIDs {
		if err := s.repo.SetTransactionPaymentStatus(ctx, txID, domain.PaymentStatusPaid); err != nil {
			return domain.MonthlyStatement{}, err
		}
	}

	wasOverdue := target.OverdueStatus != domain.OverdueStatusNone
	target.Status = domain.StatementStatusPaid
	target.OverdueStatus = domain.OverdueStatusNone

	updated, err := s.repo.UpdateMonthlyStatement(ctx, *target)
	if err != nil {
		return domain.MonthlyStatement{}, err
	}

	if wasOverdue {
		stillOverdue := false
		for _, st := range statements {
			if st.ID == updated.ID || st.CustomerID != updated.CustomerID {
				continue
			}
			if st.Status == domain.StatementStatusDue && st.OverdueStatus != domain.OverdueStatusNone {
				stillOverdue = true
				break
			}
		}
		if !stillOverdue {
			if err := s.repo.SetCustomerCreditBlocked(ctx, updated.CustomerID, false); err != nil {
				s.log.WithError(err).WithField("customer_id", updated.CustomerID).Warn("failed to lift credit block")
			}
		}
	}

	s.logAudit(ctx, "statement_pay", "monthly_statement", updated.ID,
		fmt.Sprintf("customer=%s,amount=%d", updated.CustomerID, updated.TotalDueLaari))
	return *updated, nil
}

func (s *Service) ListMonthlyStatements(ctx context.Context, customerID string, status string) ([]domain.MonthlyStatement, error) {
	return s.repo.ListMonthlyStatements(ctx, customerID, status)
}

// EscalateOverdueStatements marks statements unpaid past their due date
// plus the grace window as overdue and blocks further credit for those
// customers. It runs on a timer and is safe to re-run; already escalated
// statements are skipped.
func (s *Service) EscalateOverdueStatements(ctx context.Context, now time.Time) (int, error) {
	due, err := s.repo.ListMonthlyStatements(ctx, "", domain.StatementStatusDue)
	if err != nil {
		return 0, err
	}

	escalated := 0
	for _, statement := range due {
		if statement.OverdueStatus != domain.OverdueStatusNone {
			continue
		}
		cutoff := statement.DueDate.AddDate(0, 0, s.cfg.StatementOverdueGraceDays)
		if !now.After(cutoff) {
			continue
		}

		statement.OverdueStatus = domain.OverdueStatusSevenDays
		if _, err := s.repo.UpdateMonthlyStatement(ctx, statement); err != nil {
			s.log.WithError(err).WithField("statement_id", statement.ID).Warn("overdue escalation failed")
			continue
		}
		if err := s.repo.SetCustomerCreditBlocked(ctx, statement.CustomerID, true); err != nil {
			s.log.WithError(err).WithField("customer_id", statement.CustomerID).Warn("failed to set credit block")
			continue
		}

		s.logAudit(ctx, "statement_escalate", "monthly_statement", statement.ID,
			fmt.Sprintf("customer=%s,due_date=%s", statement.CustomerID, statement.DueDate.Format("2006-01-02")))
		escalated++
	}

	if escalated > 0 {
		s.log.WithField("count", escalated).Info("escalated overdue statements")
	}
	return escalated, nil
}
