package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"divvy/internal/core"
	"divvy/internal/services"
)

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.Users(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]userResponse, len(users))
	for i, u := range users {
		out[i] = toUserResponse(u)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeDomainError(w, r, core.ErrEmptyName)
		return
	}
	user, err := s.ledgerSvc.CreateUser(r.Context(), req.Name, req.Email, req.Avatar)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.store.Groups(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]groupResponse, len(groups))
	for i, g := range groups {
		out[i] = toGroupResponse(g)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	group, err := s.ledgerSvc.CreateGroup(r.Context(), req.Name, req.Description, req.MemberIDs)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	group, err := s.store.GroupByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Server) handleGroupExpenses(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	if expenses, ok := s.groupExpenses.Get(groupID); ok {
		writeJSON(w, http.StatusOK, toExpenseResponses(expenses))
		return
	}

	if _, err := s.store.GroupByID(r.Context(), groupID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	expenses, err := s.store.ExpensesForGroup(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.groupExpenses.Set(groupID, expenses)
	writeJSON(w, http.StatusOK, toExpenseResponses(expenses))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.store.AllExpenses(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponses(expenses))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	var customShares map[string]core.Money
	if len(req.CustomShares) > 0 {
		customShares = make(map[string]core.Money, len(req.CustomShares))
		for userID, raw := range req.CustomShares {
			share, err := core.ParseShareAmount(raw)
			if err != nil {
				writeDomainError(w, r, err)
				return
			}
			customShares[userID] = share
		}
	}

	var date time.Time
	if req.Date != "" {
		date, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	expense, err := s.ledgerSvc.RecordExpense(r.Context(), services.RecordExpenseInput{
		GroupID:        req.GroupID,
		Description:    req.Description,
		Amount:         amount,
		PaidByID:       req.PaidBy,
		SplitType:      core.SplitType(req.SplitType),
		ParticipantIDs: req.ParticipantIDs,
		CustomShares:   customShares,
		Category:       req.Category,
		Date:           date,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateGroupExpenses(expense.GroupID)
	writeJSON(w, http.StatusCreated, toExpenseResponse(expense))
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	viewer := r.URL.Query().Get("viewer")
	if viewer == "" {
		writeError(w, http.StatusBadRequest, "viewer query parameter is required")
		return
	}
	groupID := r.URL.Query().Get("group_id")

	balances, err := s.balanceSvc.Balances(r.Context(), viewer, groupID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]balanceResponse, len(balances))
	for i, b := range balances {
		out[i] = balanceResponse{
			User:      toUserResponse(b.User),
			Amount:    b.Amount,
			Direction: string(b.Direction),
			Settled:   s.ledgerSvc.IsSettled(viewer, b.User.ID),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGroupBalance(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")
	viewer := r.URL.Query().Get("viewer")
	if viewer == "" {
		writeError(w, http.StatusBadRequest, "viewer query parameter is required")
		return
	}

	owedBy, owedTo, err := s.balanceSvc.GroupTotals(r.Context(), viewer, groupID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, groupBalanceResponse{
		GroupID:      groupID,
		Viewer:       viewer,
		OwedByViewer: owedBy,
		OwedToViewer: owedTo,
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	activities, err := s.ledgerSvc.RecentActivity(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	out := make([]activityResponse, len(activities))
	for i, a := range activities {
		out[i] = toActivityResponse(a)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarkSettled(w http.ResponseWriter, r *http.Request) {
	var req settlementRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Viewer == "" || req.Counterparty == "" {
		writeError(w, http.StatusBadRequest, "viewer and counterparty are required")
		return
	}
	if err := s.ledgerSvc.MarkSettled(r.Context(), req.Viewer, req.Counterparty); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	viewer := r.URL.Query().Get("viewer")
	if viewer == "" {
		writeError(w, http.StatusBadRequest, "viewer query parameter is required")
		return
	}

	// A counterparty narrows the query down to one yes/no check.
	if counterparty := r.URL.Query().Get("counterparty"); counterparty != "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"viewer":       viewer,
			"counterparty": counterparty,
			"settled":      s.ledgerSvc.IsSettled(viewer, counterparty),
		})
		return
	}

	settled := s.ledgerSvc.SettledCounterparties(viewer)
	if settled == nil {
		settled = []string{}
	}
	writeJSON(w, http.StatusOK, settlementsResponse{Viewer: viewer, Settled: settled})
}

func (s *Server) handleResetSettlements(w http.ResponseWriter, r *http.Request) {
	viewer := r.URL.Query().Get("viewer")
	if viewer == "" {
		writeError(w, http.StatusBadRequest, "viewer query parameter is required")
		return
	}
	s.ledgerSvc.ResetSettlements(viewer)
	w.WriteHeader(http.StatusNoContent)
}
