// Package seed resets the database to a small demo data set.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/auth"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
)

// DemoPassword is shared by every seeded account.
const DemoPassword = "123456"

// Repositories are the stores the seeder clears and fills.
type Repositories struct {
	Users    repository.UserRepository
	Tickets  repository.TicketRepository
	Comments repository.CommentRepository
}

// Result reports what was inserted.
type Result struct {
	Users    []domain.User
	Tickets  []domain.Ticket
	Comments []domain.Comment
}

type seedUser struct {
	name  string
	email string
	role  domain.Role
}

type seedTicket struct {
	title       string
	description string
	priority    domain.TicketPriority
	status      domain.TicketStatus
	assignee    string
	tags        []string
}

type seedComment struct {
	ticket      int
	body        string
	commentType domain.CommentType
	author      string
}

var users = []seedUser{
	{"Admin User", "admin@test.com", domain.RoleAdmin},
	{"Agent User", "agent@test.com", domain.RoleAgent},
	{"Customer User", "customer@test.com", domain.RoleCustomer},
}

var tickets = []seedTicket{
	{
		title:       "Cannot login to my account",
		description: "I have been trying to login but keep getting invalid credentials error",
		priority:    domain.TicketPriorityHigh,
		status:      domain.TicketStatusOpen,
		tags:        []string{"login", "account"},
	},
	{
		title:       "Payment not processing correctly",
		description: "When I try to make a payment it keeps failing at the checkout stage",
		priority:    domain.TicketPriorityHigh,
		status:      domain.TicketStatusInProgress,
		assignee:    "agent@test.com",
		tags:        []string{"payment", "billing"},
	},
	{
		title:       "Need to update my email address",
		description: "I would like to change the email address associated with my account",
		priority:    domain.TicketPriorityLow,
		status:      domain.TicketStatusOpen,
		tags:        []string{"account", "email"},
	},
}

var comments = []seedComment{
	{0, "I am having this issue since yesterday", domain.CommentTypePublic, "customer@test.com"},
	{0, "Checking the account logs now", domain.CommentTypeInternal, "agent@test.com"},
	{1, "We are looking into the payment issue", domain.CommentTypePublic, "agent@test.com"},
	{1, "Payment gateway logs show timeout errors", domain.CommentTypeInternal, "admin@test.com"},
	{2, "Please provide your current email and new email", domain.CommentTypePublic, "agent@test.com"},
}

// Run wipes comments, tickets and users, then inserts the demo data. Every
// ticket is filed by the customer account.
func Run(ctx context.Context, repos Repositories, bcryptCost int, logger *zap.Logger) (*Result, error) {
	if err := repos.Comments.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("clear comments: %w", err)
	}
	if err := repos.Tickets.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("clear tickets: %w", err)
	}
	if err := repos.Users.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("clear users: %w", err)
	}
	logger.Info("cleared existing data")

	hash, err := auth.HashPassword(DemoPassword, bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}

	result := &Result{}
	base := time.Now().UTC().Add(-time.Hour)
	byEmail := make(map[string]string, len(users))
	for i, u := range users {
		at := base.Add(time.Duration(i) * time.Second)
		user := domain.User{
			ID:           uuid.NewString(),
			Name:         u.name,
			Email:        u.email,
			PasswordHash: hash,
			Role:         u.role,
			IsActive:     true,
			CreatedAt:    at,
			UpdatedAt:    at,
		}
		if err := repos.Users.Create(ctx, &user); err != nil {
			return nil, fmt.Errorf("create user %s: %w", u.email, err)
		}
		byEmail[u.email] = user.ID
		result.Users = append(result.Users, user)
	}

	customerID := byEmail["customer@test.com"]
	for i, t := range tickets {
		at := base.Add(time.Minute + time.Duration(i)*time.Second)
		ticket := domain.Ticket{
			ID:          uuid.NewString(),
			Title:       t.title,
			Description: t.description,
			Priority:    t.priority,
			Status:      t.status,
			CreatedBy:   customerID,
			Tags:        t.tags,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		if t.assignee != "" {
			id := byEmail[t.assignee]
			ticket.AssignedTo = &id
		}
		if err := repos.Tickets.Create(ctx, &ticket); err != nil {
			return nil, fmt.Errorf("create ticket %q: %w", t.title, err)
		}
		result.Tickets = append(result.Tickets, ticket)
	}

	for i, c := range comments {
		comment := domain.Comment{
			ID:        uuid.NewString(),
			TicketID:  result.Tickets[c.ticket].ID,
			Body:      c.body,
			Type:      c.commentType,
			CreatedBy: byEmail[c.author],
			CreatedAt: base.Add(2*time.Minute + time.Duration(i)*time.Second),
		}
		if err := repos.Comments.Create(ctx, &comment); err != nil {
			return nil, fmt.Errorf("create comment: %w", err)
		}
		result.Comments = append(result.Comments, comment)
	}

	logger.Info("seed completed",
		zap.Int("users", len(result.Users)),
		zap.Int("tickets", len(result.Tickets)),
		zap.Int("comments", len(result.Comments)))
	return result, nil
}
