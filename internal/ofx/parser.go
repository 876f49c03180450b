// Package ofx reads OFX/QFX bank and credit card statements into ledger entries.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/model"
)

// amountPlaces bounds the fractional digits kept from an OFX amount.
const amountPlaces = model.MaxScale

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line with no closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Entry is one statement line. Amount is signed: negative for money leaving
// the account, positive for money arriving.
type Entry struct {
	PostedAt time.Time
	Amount   decimal.Decimal
	// FITID is the institution's unique id for the line, used for deduplication.
	FITID            string
	Description      string
	Category         string
	Type             string
	StatementAccount string
}

// IsDebit reports whether the entry withdraws money.
func (e Entry) IsDebit() bool {
	return e.Amount.IsNegative()
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be INFO, WARN or ERROR.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	return tagFixRegex.ReplaceAllString(content, "$1>")
}

func (p *Parser) parse(reader io.Reader) (*ofxgo.Response, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}
	return resp, nil
}

// ParseFile parses an OFX/QFX file and returns its entries oldest first.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]Entry, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	var bankStmts, ccStmts int

	for _, msg := range resp.Bank {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok {
			continue
		}
		bankStmts++
		converted, err := p.convertList(stmt.BankTranList, string(stmt.BankAcctFrom.AcctID))
		if err != nil {
			return nil, err
		}
		entries = append(entries, converted...)
	}

	for _, msg := range resp.CreditCard {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok {
			continue
		}
		ccStmts++
		converted, err := p.convertList(stmt.BankTranList, string(stmt.CCAcctFrom.AcctID))
		if err != nil {
			return nil, err
		}
		entries = append(entries, converted...)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PostedAt.Before(entries[j].PostedAt)
	})

	slog.Info("Parsed OFX file",
		"entries", len(entries),
		"bank_statements", bankStmts,
		"cc_statements", ccStmts)

	return entries, nil
}

func (p *Parser) convertList(list *ofxgo.TransactionList, statementAccount string) ([]Entry, error) {
	if list == nil {
		return nil, nil
	}

	entries := make([]Entry, 0, len(list.Transactions))
	for _, ofxTx := range list.Transactions {
		entry, err := p.convertTransaction(ofxTx, statementAccount)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// convertTransaction converts an OFX transaction, keeping the amount's sign
// and its exact value.
func (p *Parser) convertTransaction(ofxTx ofxgo.Transaction, statementAccount string) (Entry, error) {
	raw := ofxTx.TrnAmt.FloatString(amountPlaces)
	amount, err := model.ParseAmount(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("transaction %s: bad amount %q: %w", ofxTx.FiTID, raw, err)
	}
	if strings.TrimSpace(string(ofxTx.FiTID)) == "" {
		return Entry{}, fmt.Errorf("transaction posted %s has no FITID", ofxTx.DtPosted.Format("2006-01-02"))
	}

	trnType := ofxTx.TrnType.String()
	entry := Entry{
		FITID:            string(ofxTx.FiTID),
		PostedAt:         ofxTx.DtPosted.UTC(),
		Amount:           amount,
		Description:      p.extractMerchantName(ofxTx),
		Type:             trnType,
		StatementAccount: statementAccount,
	}

	// OFX carries no categories; a few transaction types imply one.
	switch trnType {
	case "INT", "DIV":
		entry.Category = "Income"
	case "FEE", "SRVCHG":
		entry.Category = "Bank Fees"
	case "ATM", "CASH":
		entry.Category = "Cash & ATM"
	}

	return entry, nil
}

// extractMerchantName tries to get a clean merchant name from OFX data.
func (p *Parser) extractMerchantName(tx ofxgo.Transaction) string {
	// PAYEE is usually cleaner than NAME.
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"MC PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}

	return name
}

// isGenericDescription checks if a transaction name is too generic.
func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// GetAccounts extracts the institution account numbers present in the file.
func (p *Parser) GetAccounts(ctx context.Context, reader io.Reader) ([]string, error) {
	resp, err := p.parse(reader)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, msg := range resp.Bank {
		if stmt, ok := msg.(*ofxgo.StatementResponse); ok && stmt.BankAcctFrom.AcctID != "" {
			seen[string(stmt.BankAcctFrom.AcctID)] = true
		}
	}
	for _, msg := range resp.CreditCard {
		if stmt, ok := msg.(*ofxgo.CCStatementResponse); ok && stmt.CCAcctFrom.AcctID != "" {
			seen[string(stmt.CCAcctFrom.AcctID)] = true
		}
	}

	accounts := make([]string, 0, len(seen))
	for acct := range seen {
		accounts = append(accounts, acct)
	}
	sort.Strings(accounts)
	return accounts, ctx.Err()
}
