package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
)

type ReportService struct {
	members memberStore
}

func NewReportService(members memberStore) *ReportService {
	return &ReportService{members: members}
}

// WriteMembersCSV streams the balance snapshot the treasurer hands to the
// report renderer: one row per member plus a totals row, amounts in whole
// currency units.
func (s *ReportService) WriteMembersCSV(ctx context.Context, w io.Writer) error {
	members, err := s.members.List(ctx)
	if err != nil {
		return fmt.Errorf("WriteMembersCSV: %w", err)
	}

	cw := csv.NewWriter(w)
	header := []string{"name", "email", "category", "savings", "fixed_term", "certificates", "loans", "penalties", "net"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("WriteMembersCSV: header: %w", err)
	}

	var totals [6]int64
	for i := range members {
		m := &members[i]
		row := []string{
			m.Name,
			m.Email,
			string(m.Category),
			money(m.SavingsTotal),
			money(m.FixedTermTotal),
			money(m.CertificateTotal),
			money(m.LoansTotal),
			money(m.PenaltiesTotal),
			money(m.NetPosition()),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("WriteMembersCSV: row: %w", err)
		}
		totals[0] += m.SavingsTotal
		totals[1] += m.FixedTermTotal
		totals[2] += m.CertificateTotal
		totals[3] += m.LoansTotal
		totals[4] += m.PenaltiesTotal
		totals[5] += m.NetPosition()
	}

	totalRow := []string{"TOTAL", "", strconv.Itoa(len(members)),
		money(totals[0]), money(totals[1]), money(totals[2]),
		money(totals[3]), money(totals[4]), money(totals[5])}
	if err := cw.Write(totalRow); err != nil {
		return fmt.Errorf("WriteMembersCSV: totals: %w", err)
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("WriteMembersCSV: flush: %w", err)
	}
	return nil
}

// money renders cents as a fixed two-decimal string.
func money(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
