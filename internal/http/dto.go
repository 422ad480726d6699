package http

import (
	"time"

	"divvy/internal/core"
)

type userResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}

type groupResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Members       []userResponse `json:"members"`
	CreatedAt     time.Time      `json:"created_at"`
	TotalExpenses core.Money     `json:"total_expenses"`
}

func toGroupResponse(g core.Group) groupResponse {
	members := make([]userResponse, len(g.Members))
	for i, m := range g.Members {
		members[i] = toUserResponse(m)
	}
	return groupResponse{
		ID:            g.ID,
		Name:          g.Name,
		Description:   g.Description,
		Members:       members,
		CreatedAt:     g.CreatedAt,
		TotalExpenses: g.TotalExpenses,
	}
}

type shareResponse struct {
	User   userResponse `json:"user"`
	Amount core.Money   `json:"amount"`
}

type expenseResponse struct {
	ID          string          `json:"id"`
	GroupID     string          `json:"group_id"`
	Description string          `json:"description"`
	Amount      core.Money      `json:"amount"`
	PaidBy      userResponse    `json:"paid_by"`
	SplitType   string          `json:"split_type"`
	Shares      []shareResponse `json:"shares"`
	Category    string          `json:"category,omitempty"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	shares := make([]shareResponse, len(e.Shares))
	for i, s := range e.Shares {
		shares[i] = shareResponse{User: toUserResponse(s.User), Amount: s.Amount}
	}
	return expenseResponse{
		ID:          e.ID,
		GroupID:     e.GroupID,
		Description: e.Description,
		Amount:      e.Amount,
		PaidBy:      toUserResponse(e.PaidBy),
		SplitType:   string(e.SplitType),
		Shares:      shares,
		Category:    e.Category,
		Date:        e.Date,
		CreatedAt:   e.CreatedAt,
	}
}

func toExpenseResponses(expenses []core.Expense) []expenseResponse {
	out := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		out[i] = toExpenseResponse(e)
	}
	return out
}

type balanceResponse struct {
	User      userResponse `json:"user"`
	Amount    core.Money   `json:"amount"`
	Direction string       `json:"direction"`
	Settled   bool         `json:"settled"`
}

type activityResponse struct {
	ID          string       `json:"id"`
	Kind        string       `json:"kind"`
	Description string       `json:"description"`
	Amount      *core.Money  `json:"amount,omitempty"`
	User        userResponse `json:"user"`
	Timestamp   time.Time    `json:"timestamp"`
}

func toActivityResponse(a core.Activity) activityResponse {
	resp := activityResponse{
		ID:          a.ID,
		Kind:        string(a.Kind),
		Description: a.Description,
		User:        toUserResponse(a.User),
		Timestamp:   a.Timestamp,
	}
	if !a.Amount.IsZero() {
		amount := a.Amount
		resp.Amount = &amount
	}
	return resp
}

type createUserRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
}

type createGroupRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	MemberIDs   []string `json:"member_ids"`
}

type createExpenseRequest struct {
	GroupID        string            `json:"group_id"`
	Description    string            `json:"description"`
	Amount         string            `json:"amount"`
	PaidBy         string            `json:"paid_by"`
	SplitType      string            `json:"split_type"`
	ParticipantIDs []string          `json:"participant_ids"`
	CustomShares   map[string]string `json:"custom_shares"`
	Category       string            `json:"category"`
	Date           string            `json:"date"` // 2006-01-02, optional
}

type settlementRequest struct {
	Viewer       string `json:"viewer"`
	Counterparty string `json:"counterparty"`
}

type settlementsResponse struct {
	Viewer  string   `json:"viewer"`
	Settled []string `json:"settled"`
}

type groupBalanceResponse struct {
	GroupID      string     `json:"group_id"`
	Viewer       string     `json:"viewer"`
	OwedByViewer core.Money `json:"owed_by_viewer"`
	OwedToViewer core.Money `json:"owed_to_viewer"`
}
