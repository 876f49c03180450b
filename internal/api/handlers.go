package api

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/bloomfi/internal/auth"
	"github.com/Veraticus/bloomfi/internal/engine"
	"github.com/Veraticus/bloomfi/internal/model"
	"github.com/Veraticus/bloomfi/internal/service"
)

const dateLayout = "2006-01-02"

// money renders d as a JSON number with two fractional digits.
func money(d decimal.Decimal) json.Number {
	return json.Number(model.DisplayString(d))
}

// TransferBody accepts ids and amount as JSON numbers or numeric strings.
type TransferBody struct {
	FromAccount json.Number `json:"from_account" form:"from_account"`
	ToAccount   json.Number `json:"to_account" form:"to_account"`
	Amount      json.Number `json:"amount" form:"amount"`
}

// TransferResponse is returned by a successful transfer.
type TransferResponse struct {
	Message            string      `json:"message"`
	FromAccountBalance json.Number `json:"from_account_balance"`
	ToAccountBalance   json.Number `json:"to_account_balance"`
}

// AccountView is the public shape of an account.
type AccountView struct {
	ID               int64       `json:"id"`
	Type             string      `json:"type"`
	Name             string      `json:"name"`
	DisplayNumber    string      `json:"display_number"`
	Balance          json.Number `json:"balance"`
	FormattedBalance string      `json:"formatted_balance"`
}

// TransactionView is the public shape of a transaction.
type TransactionView struct {
	ID              int64       `json:"id"`
	AccountID       int64       `json:"account_id"`
	Type            string      `json:"type"`
	Amount          json.Number `json:"amount"`
	FormattedAmount string      `json:"formatted_amount"`
	Note            string      `json:"note"`
	Category        string      `json:"category"`
	State           string      `json:"state"`
	Timestamp       string      `json:"timestamp"`
}

// RecentTransaction is a dashboard row.
type RecentTransaction struct {
	Description     string      `json:"description"`
	Amount          json.Number `json:"amount"`
	FormattedAmount string      `json:"formatted_amount"`
	Category        string      `json:"category"`
	Timestamp       string      `json:"timestamp"`
}

// DashboardResponse summarizes the caller's money.
type DashboardResponse struct {
	TotalBalance       json.Number         `json:"total_balance"`
	FormattedBalance   string              `json:"formatted_balance"`
	RecentTransactions []RecentTransaction `json:"recent_transactions"`
	Message            string              `json:"message"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Server) handleCSRF(c *fiber.Ctx) error {
	token, err := auth.NewCSRFToken()
	if err != nil {
		return err
	}
	c.Cookie(&fiber.Cookie{
		Name:     auth.CSRFCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.opts.CSRFTTL.Seconds()),
		Secure:   s.opts.CSRFCookieSecure,
		HTTPOnly: false,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return c.JSON(fiber.Map{"csrf_token": token})
}

func (s *Server) handleTransfer(c *fiber.Ctx) error {
	var body TransferBody
	if err := c.BodyParser(&body); err != nil {
		return fmt.Errorf("%w: malformed body", engine.ErrInvalidInput)
	}

	req, err := engine.ParseTransferRequest(userID(c), body.FromAccount.String(), body.ToAccount.String(), body.Amount.String())
	if err != nil {
		return err
	}

	result, err := s.engine.Transfer(c.UserContext(), req)
	if err != nil {
		return err
	}

	return c.JSON(TransferResponse{
		Message:            "Transfer successful",
		FromAccountBalance: money(result.FromBalance),
		ToAccountBalance:   money(result.ToBalance),
	})
}

func (s *Server) handleDashboard(c *fiber.Ctx) error {
	dash, err := s.engine.Dashboard(c.UserContext(), userID(c))
	if err != nil {
		return err
	}

	recent := make([]RecentTransaction, 0, len(dash.Recent))
	for _, txn := range dash.Recent {
		description := txn.Note
		if description == "" {
			description = "Unknown"
		}
		category := txn.Category
		if category == "" {
			category = "Uncategorized"
		}
		recent = append(recent, RecentTransaction{
			Description:     description,
			Amount:          money(txn.Amount),
			FormattedAmount: model.FormatSigned(txn.Amount),
			Category:        category,
			Timestamp:       txn.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(DashboardResponse{
		TotalBalance:       money(dash.TotalBalance),
		FormattedBalance:   model.FormatCurrency(dash.TotalBalance),
		RecentTransactions: recent,
		Message:            "Dashboard data retrieved successfully",
	})
}

func (s *Server) handleListAccounts(c *fiber.Ctx) error {
	accounts, err := s.engine.Accounts(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	views := make([]AccountView, 0, len(accounts))
	for i := range accounts {
		views = append(views, accountView(&accounts[i]))
	}
	return c.JSON(fiber.Map{"accounts": views})
}

func (s *Server) handleGetAccount(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	account, err := s.engine.Account(c.UserContext(), userID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(accountView(account))
}

func (s *Server) handleListTransactions(c *fiber.Ctx) error {
	filter, err := transactionFilter(c)
	if err != nil {
		return err
	}
	txns, err := s.engine.Transactions(c.UserContext(), filter)
	if err != nil {
		return err
	}
	views := make([]TransactionView, 0, len(txns))
	for i := range txns {
		views = append(views, transactionView(&txns[i]))
	}
	return c.JSON(fiber.Map{"transactions": views})
}

func (s *Server) handleGetTransaction(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	txn, err := s.engine.Transaction(c.UserContext(), userID(c), id)
	if err != nil {
		return err
	}
	return c.JSON(transactionView(txn))
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id must be a positive integer", errBadQuery)
	}
	return id, nil
}

// transactionFilter reads start_date, end_date (inclusive of the whole day),
// account_id and limit from the query string.
func transactionFilter(c *fiber.Ctx) (service.TransactionFilter, error) {
	filter := service.TransactionFilter{UserID: userID(c)}

	if raw := c.Query("start_date"); raw != "" {
		start, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, fmt.Errorf("%w: start_date must be YYYY-MM-DD", errBadQuery)
		}
		filter.StartDate = &start
	}
	if raw := c.Query("end_date"); raw != "" {
		end, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, fmt.Errorf("%w: end_date must be YYYY-MM-DD", errBadQuery)
		}
		end = end.Add(24*time.Hour - time.Nanosecond)
		filter.EndDate = &end
	}
	if filter.StartDate != nil && filter.EndDate != nil && filter.EndDate.Before(*filter.StartDate) {
		return filter, fmt.Errorf("%w: end_date is before start_date", errBadQuery)
	}
	if raw := c.Query("account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, fmt.Errorf("%w: account_id must be a positive integer", errBadQuery)
		}
		filter.AccountID = id
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("%w: limit must be a non-negative integer", errBadQuery)
		}
		filter.Limit = limit
	}
	return filter, nil
}

func accountView(a *model.Account) AccountView {
	return AccountView{
		ID:               a.ID,
		Type:             a.Type,
		Name:             a.Name,
		DisplayNumber:    a.DisplayNumber,
		Balance:          money(a.Balance),
		FormattedBalance: model.FormatCurrency(a.Balance),
	}
}

func transactionView(t *model.Transaction) TransactionView {
	return TransactionView{
		ID:              t.ID,
		AccountID:       t.AccountID,
		Type:            string(t.Type),
		Amount:          money(t.Amount),
		FormattedAmount: model.FormatSigned(t.Amount),
		Note:            t.Note,
		Category:        t.Category,
		State:           t.State,
		Timestamp:       t.CreatedAt.UTC().Format(time.RFC3339),
	}
}
