package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/repository"
)

// Seeds the local cache database with plausible chats and messages so the
// client has something to show in degraded mode without a reachable server.
func main() {
	dbPath := "chat-cache.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}

	fmt.Printf("Using database at: %s\n", dbPath)

	db, err := initDatabase(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := seedCache(db); err != nil {
		log.Fatalf("Failed to seed cache: %v", err)
	}

	fmt.Println("Cache seeded.")
	fmt.Printf("Database location: %s\n", dbPath)
}

func initDatabase(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	db.Exec("PRAGMA journal_mode=WAL")

	err = db.AutoMigrate(
		&repository.ChatModel{},
		&repository.MessageModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

func seedCache(db *gorm.DB) error {
	self := domain.Participant{ID: "staff-self", Name: "Admin User", Role: "admin"}

	staff := []domain.Participant{
		{ID: "staff-1", Name: "Alice Johnson", Role: "sales"},
		{ID: "staff-2", Name: "Bob Smith", Role: "warehouse"},
		{ID: "staff-3", Name: "Charlie Brown", Role: "support"},
		{ID: "staff-4", Name: "Diana Prince", Role: "finance"},
	}
	customers := []domain.Participant{
		{ID: "cust-1", Name: "Eve Wilson", Role: "customer"},
		{ID: "cust-2", Name: "Frank Miller", Role: "customer"},
	}

	sampleTexts := []string{
		"Hi, quick question about the last delivery.",
		"The invoice is ready, sending it over.",
		"Can you check stock for SKU 4471?",
		"Customer asked to reschedule to Friday.",
		"Done, marked it as shipped.",
		"Thanks, that clears it up!",
		"Order confirmed, payment pending.",
		"I'll follow up with the supplier today.",
		"Refund processed this morning.",
		"Let me pull up the order details.",
	}

	now := time.Now()
	var chats []*domain.Chat

	// Direct internal chats with each staff member.
	for _, member := range staff {
		chats = append(chats, &domain.Chat{
			ID:           uuid.NewString(),
			Kind:         domain.ChatKindInternal,
			Participants: []domain.Participant{self, member},
		})
	}

	// External chats, one linked to an order.
	for i, customer := range customers {
		chat := &domain.Chat{
			ID:           uuid.NewString(),
			Kind:         domain.ChatKindExternal,
			Participants: []domain.Participant{self, customer},
		}
		if i == 0 {
			chat.ContextType = string(domain.ContextTypeOrder)
			chat.ContextID = domain.ContextID("order-10045")
		}
		chats = append(chats, chat)
	}

	// One team group chat.
	chats = append(chats, &domain.Chat{
		ID:   uuid.NewString(),
		Kind: domain.ChatKindInternal,
		Participants: append([]domain.Participant{self},
			staff[0], staff[1]),
		IsGroup:    true,
		GroupName:  "Operations",
		Department: "logistics",
	})

	ctx := context.Background()
	msgRepo := repository.NewMessageRepository(db)

	for _, chat := range chats {
		numMessages := 6 + rand.Intn(8)
		msgs := make([]*domain.Message, 0, numMessages)

		for i := 0; i < numMessages; i++ {
			sender := self
			if rand.Float32() < 0.5 && len(chat.Participants) > 1 {
				sender = chat.Participants[1+rand.Intn(len(chat.Participants)-1)]
			}
			at := now.Add(-time.Duration(numMessages-i) * 7 * time.Minute)
			msgs = append(msgs, &domain.Message{
				ID:         uuid.NewString(),
				ChatID:     chat.ID,
				SenderID:   sender.ID,
				SenderName: sender.Name,
				SenderRole: sender.Role,
				Text:       sampleTexts[rand.Intn(len(sampleTexts))],
				Status:     domain.StatusSeen,
				CreatedAt:  at,
			})
		}

		last := msgs[len(msgs)-1]
		chat.LastMessage = last.Text
		at := last.CreatedAt
		chat.LastMessageAt = &at
		if last.SenderID != self.ID {
			chat.UnreadCount = rand.Intn(3)
		}

		if err := msgRepo.ReplaceHistory(ctx, chat.ID, msgs); err != nil {
			return fmt.Errorf("failed to seed messages for %s: %w", chat.ID, err)
		}
	}

	chatRepo := repository.NewChatRepository(db)
	if err := chatRepo.ReplaceAll(ctx, chats); err != nil {
		return fmt.Errorf("failed to seed chats: %w", err)
	}

	fmt.Printf("Seeded %d chats\n", len(chats))
	return nil
}
