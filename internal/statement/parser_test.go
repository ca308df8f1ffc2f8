package statement

import (
	"strings"
	"testing"
	"time"

	"github.com/Veraticus/spendwise/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const header = "Date Narration Chq./Ref.No. Value Dt Withdrawal Amt. Deposit Amt. Closing Balance"

var fixedNow = time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestParser() *Parser {
	return NewParser(
		WithLocation(time.UTC),
		WithClock(func() time.Time { return fixedNow }),
	)
}

func statementText(lines ...string) string {
	return strings.Join(lines, "\n")
}

func amountString(t *testing.T, txn model.PdfTransaction) string {
	t.Helper()
	return txn.Amount().StringFixed(2)
}

func TestParser_BalanceDeltaClassification(t *testing.T) {
	text := statementText(
		"HDFC BANK Ltd. Page No .: 1",
		"Statement of account",
		header,
		"01/03/24 UPI-ZOMATO-ZOMATO@HDFC 0000412345678901 01/03/24 200.00 800.00",
		"-PAYMENT FOR ORDER",
		"05/03/24 NEFT CR-ACME CORP SALARY 0000498765432109 05/03/24 150.00 950.00",
		"STATEMENT SUMMARY :-",
		"Opening Balance Dr Count Cr Count Debits Credits Closing Bal",
		"1,000.00 1 1 200.00 150.00 950.00",
	)

	txns := newTestParser().Parse(text)
	require.Len(t, txns, 2)

	withdrawal := txns[0]
	assert.True(t, withdrawal.IsDebit())
	assert.Nil(t, withdrawal.Credit)
	assert.Equal(t, "200.00", amountString(t, withdrawal))
	assert.Equal(t, "800.00", withdrawal.Balance.StringFixed(2))
	assert.Equal(t, "UPI-ZOMATO-ZOMATO@HDFC", withdrawal.Description)
	assert.Equal(t, "01/03/24", withdrawal.DateText)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), withdrawal.Timestamp)
	assert.True(t, withdrawal.IsSelected)

	deposit := txns[1]
	assert.False(t, deposit.IsDebit())
	require.NotNil(t, deposit.Credit)
	assert.Equal(t, "150.00", amountString(t, deposit))
	assert.Equal(t, "NEFT CR-ACME CORP SALARY", deposit.Description)
}

func TestParser_FirstRowWithoutOpeningBalance(t *testing.T) {
	text := statementText(
		header,
		"10/04/2024 ATM WDL 100.00 500.00",
		"11/04/2024 POS SWIGGY 50.00 450.00",
		"12/04/2024 IMPS REFUND 25.00 475.00",
	)

	txns := newTestParser().Parse(text)
	require.Len(t, txns, 2)

	assert.Equal(t, "POS SWIGGY", txns[0].Description)
	assert.True(t, txns[0].IsDebit())
	assert.Equal(t, "50.00", amountString(t, txns[0]))

	assert.Equal(t, "IMPS REFUND", txns[1].Description)
	assert.False(t, txns[1].IsDebit())
	assert.Equal(t, "25.00", amountString(t, txns[1]))
}

func TestParser_NoHeader(t *testing.T) {
	text := statementText(
		"Some unrelated document",
		"01/03/24 UPI-ZOMATO 0000412345678901 01/03/24 200.00 800.00",
	)

	assert.Empty(t, newTestParser().Parse(text))
	assert.Empty(t, newTestParser().Parse(""))
}

func TestParser_HeaderNeedsAllTokens(t *testing.T) {
	text := statementText(
		"Date Narration Withdrawal Amt. Closing Balance",
		"Opening Balance 1,000.00",
		"01/03/24 UPI-ZOMATO 0000412345678901 01/03/24 200.00 800.00",
	)

	assert.Empty(t, newTestParser().Parse(text))
}

func TestParser_OpeningBalanceSearch(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantDebit bool
		wantCount int
	}{
		{
			name: "label and figure on same line in summary",
			text: statementText(
				header,
				"01/03/24 UPI-UBER 0000412345678901 01/03/24 300.00 1,200.00",
				"STATEMENT SUMMARY",
				"Opening Balance : 1,500.00",
			),
			wantDebit: true,
			wantCount: 1,
		},
		{
			name: "figure on following line",
			text: statementText(
				header,
				"01/03/24 UPI-UBER 0000412345678901 01/03/24 300.00 1,200.00",
				"STATEMENT SUMMARY",
				"Op. Balance",
				"900.00",
			),
			wantDebit: false,
			wantCount: 1,
		},
		{
			name: "found before the table when summary lacks it",
			text: statementText(
				"Opening Bal 1,500.00",
				header,
				"01/03/24 UPI-UBER 0000412345678901 01/03/24 300.00 1,200.00",
				"STATEMENT SUMMARY",
			),
			wantDebit: true,
			wantCount: 1,
		},
		{
			name: "figure on the line after a label before the table",
			text: statementText(
				"OPENING BALANCE",
				"900.00",
				header,
				"01/03/24 UPI-UBER 0000412345678901 01/03/24 300.00 1,200.00",
			),
			wantDebit: false,
			wantCount: 1,
		},
		{
			name: "missing everywhere",
			text: statementText(
				header,
				"01/03/24 UPI-UBER 0000412345678901 01/03/24 300.00 1,200.00",
			),
			wantCount: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns := newTestParser().Parse(tt.text)
			require.Len(t, txns, tt.wantCount)
			if tt.wantCount > 0 {
				assert.Equal(t, tt.wantDebit, txns[0].IsDebit())
				assert.Equal(t, "300.00", amountString(t, txns[0]))
			}
		})
	}
}

func TestParser_RowBoundaries(t *testing.T) {
	text := statementText(
		"Opening Balance 5,000.00",
		header,
		"02/03/24 POS AMAZON",
		"RETAIL INDIA",
		"0000412345678901 02/03/24 1,250.50 3,749.50",
		"Page No .: 2",
		"this line belongs to no row 99.99",
		"03/03/24 BALANCE CARRIED FORWARD 3,749.50",
		"04/03/24 ELECTRICITY BILL 0000412345678902 04/03/24 749.50 3,000.00",
		"STATEMENT SUMMARY",
		"05/03/24 AFTER SUMMARY 0000412345678903 05/03/24 10.00 2,990.00",
	)

	txns := newTestParser().Parse(text)
	require.Len(t, txns, 2)

	assert.Equal(t, "POS AMAZON RETAIL INDIA", txns[0].Description)
	assert.Equal(t, "1250.50", txns[0].Amount().StringFixed(2))
	assert.True(t, txns[0].IsDebit())

	assert.Equal(t, "ELECTRICITY BILL", txns[1].Description)
	assert.Equal(t, "749.50", amountString(t, txns[1]))
	assert.True(t, txns[1].IsDebit())
}

func TestParser_RowCollectsAtMostTenLines(t *testing.T) {
	lines := []string{"Opening Balance 1,000.00", header, "01/03/24 LONG NARRATION"}
	for i := 0; i < 9; i++ {
		lines = append(lines, "CONTINUED")
	}
	// The eleventh line of the row is ignored.
	lines = append(lines, "0000412345678901 01/03/24 100.00 900.00")

	assert.Empty(t, newTestParser().Parse(statementText(lines...)))
}

func TestParser_AmbiguousAndEqualRows(t *testing.T) {
	text := statementText(
		"Opening Balance 800.00",
		header,
		"15/03/24 SPLIT TRANSFER 0000411111111111 15/03/24 100.00 50.00 700.00",
		"16/03/24 CHARGES REVERSED 0000411111111112 16/03/24 10.00 700.00",
		"17/03/24 INTEREST 0000411111111113 17/03/24 20.00 720.00",
	)

	txns := newTestParser().Parse(text)
	require.Len(t, txns, 3)

	assert.True(t, txns[0].IsDebit())
	assert.Equal(t, "100.00", amountString(t, txns[0]))

	assert.True(t, txns[1].IsDebit(), "unchanged balance is a withdrawal")
	assert.Equal(t, "10.00", amountString(t, txns[1]))

	assert.False(t, txns[2].IsDebit())
	assert.Equal(t, "20.00", amountString(t, txns[2]))
}

func TestParser_Dates(t *testing.T) {
	tests := []struct {
		date string
		want time.Time
	}{
		{date: "05/03/24", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{date: "31/12/99", want: time.Date(2099, 12, 31, 0, 0, 0, 0, time.UTC)},
		{date: "05/03/2024", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{date: "05-03-2024", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{date: "05-03-24", want: fixedNow},
		{date: "45/13/2024", want: fixedNow},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			text := statementText(
				"Opening Balance 100.00",
				header,
				tt.date+" COFFEE 0000412345678901 "+tt.date+" 10.00 90.00",
			)
			txns := newTestParser().Parse(text)
			require.Len(t, txns, 1)
			assert.Equal(t, tt.date, txns[0].DateText)
			assert.True(t, tt.want.Equal(txns[0].Timestamp), "got %v", txns[0].Timestamp)
		})
	}
}

func TestParser_FallbackWithoutReference(t *testing.T) {
	text := statementText(
		"Opening Balance 2,000.00",
		header,
		"20/03/2024 20/03/2024 CASH DEPOSIT BRANCH 500.00 2,500.00",
	)

	txns := newTestParser().Parse(text)
	require.Len(t, txns, 1)
	assert.Equal(t, "CASH DEPOSIT BRANCH", txns[0].Description)
	assert.False(t, txns[0].IsDebit())
	assert.Equal(t, "500.00", amountString(t, txns[0]))
}
