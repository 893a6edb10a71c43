package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"moneta/internal/domain/account"
	"moneta/internal/domain/bank"
	"moneta/internal/domain/category"
	"moneta/internal/domain/transaction"
	"moneta/internal/domain/user"
	"moneta/internal/infrastructure/postgres"
	"moneta/internal/shared/auth"
	"moneta/internal/shared/config"
)

const usage = `Moneta Admin CLI - Management commands for the Moneta API

Usage:
  admin <command> [options]

Commands:
  seed      Populate the database with demo users, banks, and transactions
  suggest   Run keyword categorization over uncategorized transactions

Examples:
  # Seed two demo users with 60 transactions each
  admin seed --users=2 --transactions=60

  # Suggest and apply categories for one user
  admin suggest --user-id=1 --apply

  # Dry-run suggestions for all users
  admin suggest --all
`

func main() {
	if len(os.Args) < 2 {
		fmt.Print(usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "seed":
		runSeed(os.Args[2:])
	case "suggest":
		runSuggest(os.Args[2:])
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		fmt.Print(usage)
		os.Exit(1)
	}
}

// seedCategories are created for every demo user. The keywords line up with
// the merchant names gofakeit is steered towards below.
var seedCategories = []category.CreateCategoryParams{
	{Name: "Groceries", Color: "#4caf50", Keywords: []string{"tesco", "sainsbury", "lidl", "aldi"}},
	{Name: "Eating Out", Color: "#ff9800", Keywords: []string{"pret", "nando", "deliveroo"}},
	{Name: "Transport", Color: "#2196f3", Keywords: []string{"tfl", "uber", "trainline"}},
	{Name: "Subscriptions", Color: "#9c27b0", Keywords: []string{"netflix", "spotify"}},
}

var seedMerchants = []string{
	"Tesco Stores", "Sainsbury's Local", "Lidl GB", "Aldi",
	"Pret A Manger", "Nando's", "Deliveroo",
	"TfL Travel", "Uber Trip", "Trainline",
	"Netflix.com", "Spotify AB",
}

func runSeed(args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	userCount := fs.Int("users", 1, "Number of demo users to create")
	txCount := fs.Int("transactions", 50, "Transactions per demo account")
	seed := fs.Int64("seed", 0, "Random seed (0 = random)")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *seed != 0 {
		gofakeit.Seed(*seed)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	userRepo := postgres.NewUserRepository(db)
	bankRepo := postgres.NewBankRepository(db)
	accountRepo := postgres.NewAccountRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for i := 0; i < *userCount; i++ {
		password := gofakeit.Password(true, true, true, false, false, 12)
		hash, err := auth.HashPassword(password)
		if err != nil {
			log.Fatalf("Failed to hash password: %v", err)
		}

		u, err := userRepo.Create(ctx, user.CreateUserParams{
			Email:        gofakeit.Email(),
			Name:         gofakeit.Name(),
			PasswordHash: &hash,
		})
		if err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
		log.Printf("Created user %d <%s> password=%s", u.ID, u.Email, password)

		for _, params := range seedCategories {
			if _, err := categoryRepo.Create(ctx, u.ID, params); err != nil {
				log.Fatalf("Failed to create category %q: %v", params.Name, err)
			}
		}

		b, err := bankRepo.Create(ctx, bank.CreateBankParams{
			UserID:        u.ID,
			InstitutionID: "SANDBOX_" + strings.ToUpper(gofakeit.LetterN(8)),
			Name:          gofakeit.Company() + " Bank",
			BIC:           gofakeit.LetterN(8),
		})
		if err != nil {
			log.Fatalf("Failed to create bank: %v", err)
		}

		acc, err := accountRepo.Upsert(ctx, account.UpsertParams{
			ID:        gofakeit.UUID(),
			UserID:    u.ID,
			BankID:    b.ID,
			Name:      "Current Account",
			OwnerName: u.Name,
			IBAN:      "GB" + gofakeit.DigitN(20),
			Currency:  "GBP",
			Balances: []account.Balance{
				{Type: "interimAvailable", Amount: decimal.NewFromFloat(gofakeit.Price(100, 5000)), Currency: "GBP"},
			},
		})
		if err != nil {
			log.Fatalf("Failed to create account: %v", err)
		}

		for j := 0; j < *txCount; j++ {
			merchant := seedMerchants[gofakeit.Number(0, len(seedMerchants)-1)]
			bookingDate := gofakeit.DateRange(time.Now().AddDate(0, -3, 0), time.Now())

			status := transaction.StatusBooked
			if gofakeit.Number(0, 9) == 0 {
				status = transaction.StatusPending
			}

			err := transactionRepo.Upsert(ctx, transaction.UpsertParams{
				ID:           gofakeit.UUID(),
				UserID:       u.ID,
				BankID:       b.ID,
				AccountID:    acc.ID,
				Status:       status,
				Amount:       decimal.NewFromFloat(-gofakeit.Price(2, 150)),
				Currency:     "GBP",
				BookingDate:  &bookingDate,
				CreditorName: merchant,
				Description:  merchant + " " + gofakeit.LetterN(6),
			})
			if err != nil {
				log.Fatalf("Failed to create transaction: %v", err)
			}
		}
		log.Printf("Seeded %d transactions for user %d", *txCount, u.ID)
	}

	log.Println("Seeding complete")
}

func runSuggest(args []string) {
	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	userIDStr := fs.String("user-id", "", "User ID(s) to process (comma-separated for multiple)")
	allUsers := fs.Bool("all", false, "Process all users")
	apply := fs.Bool("apply", false, "Apply suggestions instead of printing them")
	limit := fs.Int("limit", 500, "Maximum uncategorized transactions per user")
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if *userIDStr == "" && !*allUsers {
		fmt.Println("Error: must specify --user-id or --all")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := postgres.New(cfg.Database.ConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	userRepo := postgres.NewUserRepository(db)
	categoryRepo := postgres.NewCategoryRepository(db)
	transactionRepo := postgres.NewTransactionRepository(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var userIDs []int64
	if *allUsers {
		users, err := userRepo.List(ctx)
		if err != nil {
			log.Fatalf("Failed to list users: %v", err)
		}
		for _, u := range users {
			userIDs = append(userIDs, u.ID)
		}
	} else {
		for _, p := range strings.Split(*userIDStr, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			id, err := strconv.ParseInt(p, 10, 64)
			if err != nil {
				log.Fatalf("Invalid user ID '%s': %v", p, err)
			}
			userIDs = append(userIDs, id)
		}
	}

	for _, userID := range userIDs {
		categories, err := categoryRepo.ListByUserID(ctx, userID)
		if err != nil {
			log.Fatalf("Failed to list categories for user %d: %v", userID, err)
		}
		if len(categories) == 0 {
			log.Printf("User %d has no categories, skipping", userID)
			continue
		}

		transactions, err := transactionRepo.ListUncategorized(ctx, userID, *limit)
		if err != nil {
			log.Fatalf("Failed to list transactions for user %d: %v", userID, err)
		}

		matched, applied := 0, 0
		for _, t := range transactions {
			match, keyword := category.Match(categories, t.Description)
			if match == nil {
				continue
			}
			matched++

			if *apply {
				ok, err := transactionRepo.SetSuggestedCategory(ctx, userID, t.ID, match.ID)
				if err != nil {
					log.Fatalf("Failed to apply suggestion for %s: %v", t.ID, err)
				}
				if ok {
					applied++
				}
			} else {
				fmt.Printf("  %s  %-40q -> %s (keyword %q)\n", t.ID, t.Description, match.Name, keyword)
			}
		}

		if *apply {
			log.Printf("User %d: %d/%d uncategorized transactions matched, %d applied", userID, matched, len(transactions), applied)
		} else {
			log.Printf("User %d: %d/%d uncategorized transactions matched (dry run)", userID, matched, len(transactions))
		}
	}
}
