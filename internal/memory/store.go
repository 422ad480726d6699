// Package memory is an in-memory ledger backend for local development and
// tests. All state is lost on process exit.
package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"divvy/internal/core"
	"divvy/internal/ledger"
)

type Store struct {
	mu         sync.Mutex
	users      map[string]core.User
	userOrder  []string
	groups     map[string]core.Group
	groupOrder []string
	expenses   []core.Expense // append order, oldest first
	activities []core.Activity
}

func New(users []core.User) *Store {
	s := &Store{
		users:  make(map[string]core.User),
		groups: make(map[string]core.Group),
	}
	for _, u := range users {
		if _, ok := s.users[u.ID]; ok {
			continue
		}
		s.users[u.ID] = u
		s.userOrder = append(s.userOrder, u.ID)
	}
	return s
}

// NewFromFiles seeds the user registry from base/seed_users.txt, one
// "name,email" per line. A missing or empty file falls back to a small
// default roster so the app is usable out of the box.
func NewFromFiles(base string) *Store {
	users := readSeedUsers(filepath.Join(base, "seed_users.txt"))
	if len(users) == 0 {
		users = []core.User{
			{ID: uuid.NewString(), Name: "Alice", Email: "alice@example.com"},
			{ID: uuid.NewString(), Name: "Bob", Email: "bob@example.com"},
			{ID: uuid.NewString(), Name: "Charlie", Email: "charlie@example.com"},
		}
	}
	return New(users)
}

func (s *Store) CreateUser(_ context.Context, user core.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		s.userOrder = append(s.userOrder, user.ID)
	}
	s.users[user.ID] = user
	return nil
}

func (s *Store) UserByID(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return core.User{}, ledger.ErrNotFound
	}
	return u, nil
}

func (s *Store) Users(_ context.Context) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.User, 0, len(s.userOrder))
	for _, id := range s.userOrder {
		out = append(out, s.users[id])
	}
	return out, nil
}

func (s *Store) CreateGroup(_ context.Context, group core.Group, activity core.Activity) error {
	if err := group.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range group.Members {
		if _, ok := s.users[m.ID]; !ok {
			return ledger.ErrNotFound
		}
	}
	if _, ok := s.groups[group.ID]; !ok {
		s.groupOrder = append(s.groupOrder, group.ID)
	}
	s.groups[group.ID] = group
	s.activities = append(s.activities, activity)
	return nil
}

func (s *Store) GroupByID(_ context.Context, id string) (core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[id]
	if !ok {
		return core.Group{}, ledger.ErrNotFound
	}
	return g, nil
}

func (s *Store) Groups(_ context.Context) ([]core.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Group, 0, len(s.groupOrder))
	for _, id := range s.groupOrder {
		out = append(out, s.groups[id])
	}
	return out, nil
}

func (s *Store) AppendExpense(_ context.Context, expense core.Expense, activity core.Activity) error {
	if err := expense.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[expense.GroupID]
	if !ok {
		return ledger.ErrNotFound
	}
	s.expenses = append(s.expenses, expense)
	g.TotalExpenses = g.TotalExpenses.Add(expense.Amount)
	s.groups[expense.GroupID] = g
	s.activities = append(s.activities, activity)
	return nil
}

func (s *Store) ExpenseByID(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses {
		if e.ID == id {
			return e, nil
		}
	}
	return core.Expense{}, ledger.ErrNotFound
}

func (s *Store) ExpensesForGroup(_ context.Context, groupID string) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Expense
	for i := len(s.expenses) - 1; i >= 0; i-- {
		if s.expenses[i].GroupID == groupID {
			out = append(out, s.expenses[i])
		}
	}
	return out, nil
}

func (s *Store) AllExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.expenses))
	for i := len(s.expenses) - 1; i >= 0; i-- {
		out = append(out, s.expenses[i])
	}
	return out, nil
}

func (s *Store) AppendActivity(_ context.Context, activity core.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activities = append(s.activities, activity)
	return nil
}

func (s *Store) RecentActivities(_ context.Context, limit int) ([]core.Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Same default as the sqlite backend, so the two are interchangeable.
	if limit <= 0 {
		limit = 50
	}
	if limit > len(s.activities) {
		limit = len(s.activities)
	}
	out := make([]core.Activity, 0, limit)
	for i := len(s.activities) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.activities[i])
	}
	return out, nil
}

func (s *Store) Close() error { return nil }

func readSeedUsers(path string) []core.User {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []core.User
	seen := map[string]struct{}{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, email, _ := strings.Cut(line, ",")
		name = strings.TrimSpace(name)
		email = strings.TrimSpace(email)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, core.User{ID: uuid.NewString(), Name: name, Email: email})
	}
	return out
}
