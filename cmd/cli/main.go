package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chronicle-app/chronicle/internal/config"
	"github.com/chronicle-app/chronicle/internal/logger"
	"github.com/chronicle-app/chronicle/internal/reporting"
	"github.com/chronicle-app/chronicle/internal/scribe"
	"github.com/chronicle-app/chronicle/internal/scribe/queue"
	"github.com/chronicle-app/chronicle/internal/service"
	"github.com/chronicle-app/chronicle/internal/store"
	"github.com/chronicle-app/chronicle/internal/store/firestore"
	"github.com/chronicle-app/chronicle/internal/store/memory"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, true)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "note":
		runNote(cfg, log)
	case "queue":
		runQueue(cfg, log)
	case "drain":
		runDrain(cfg, log)
	case "post-subscriptions":
		runPostSubscriptions(cfg, log)
	case "summary":
		runSummary(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Chronicle CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  note                Interpret a free-form note and apply the actions")
	fmt.Println("  queue               List notes waiting in the offline queue")
	fmt.Println("  drain               Replay queued notes against the model")
	fmt.Println("  post-subscriptions  Post subscription charges that have come due")
	fmt.Println("  summary             Print the current month's totals and net worth")
	fmt.Println("  help                Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Backend == config.BackendFirestore {
		return firestore.New(ctx, cfg.ProjectID, cfg.UserID)
	}
	return memory.New(), nil
}

// interpret runs one note through the model and applies the result.
func interpret(ctx context.Context, cfg config.Config, st store.Store, note string) (int, error) {
	client, err := scribe.NewClient(ctx, cfg.ScribeModel)
	if err != nil {
		return 0, err
	}
	accounts, err := st.Accounts(ctx)
	if err != nil {
		return 0, err
	}
	categories, err := st.Categories(ctx)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	actions, err := client.Interpret(ctx, note, scribe.Context{
		Categories:     categories,
		Accounts:       accounts,
		DefaultAccount: cfg.DefaultAccountID,
		Now:            now,
	})
	if err != nil {
		return 0, err
	}
	if err := scribe.Apply(ctx, st, actions, cfg.DefaultAccountID, now); err != nil {
		return 0, err
	}
	return len(actions), nil
}

func runNote(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("note", flag.ExitOnError)
	offline := fs.Bool("queue", false, "Queue the note instead of calling the model")
	fs.Parse(os.Args[2:])

	note := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if note == "" {
		log.Fatal().Msg("Usage: cli note [-queue] <text of the note>")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	if *offline {
		q, err := queue.Open(cfg.QueuePath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open queue")
		}
		entry, err := q.Enqueue(note, time.Now())
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to queue note")
		}
		fmt.Printf("Queued note %s (%d pending).\n", entry.ID, q.Len())
		return
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	applied, err := interpret(ctx, cfg, st, note)
	if err != nil {
		// Keep the note so a later drain can retry it.
		q, qerr := queue.Open(cfg.QueuePath)
		if qerr == nil {
			if _, qerr = q.Enqueue(note, time.Now()); qerr == nil {
				log.Warn().Err(err).Msg("Interpretation failed, note queued for retry")
				return
			}
		}
		log.Fatal().Err(err).Msg("Interpretation failed and note could not be queued")
	}
	fmt.Printf("Applied %d action(s).\n", applied)
}

func runQueue(cfg config.Config, log zerolog.Logger) {
	q, err := queue.Open(cfg.QueuePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open queue")
	}
	pending := q.Pending()
	if len(pending) == 0 {
		fmt.Println("Queue is empty.")
		return
	}
	for i, e := range pending {
		fmt.Printf("%d. [%s] %s (attempts: %d, queued %s)\n",
			i+1, e.ID, e.Note, e.Attempts, e.CreatedAt.Format("2006-01-02 15:04"))
	}
}

func runDrain(cfg config.Config, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	q, err := queue.Open(cfg.QueuePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open queue")
	}
	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	drained, err := q.Drain(ctx, func(ctx context.Context, e queue.Entry) error {
		_, err := interpret(ctx, cfg, st, e.Note)
		return err
	})
	if err != nil {
		log.Fatal().Err(err).Int("drained", drained).Int("remaining", q.Len()).Msg("Drain stopped")
	}
	fmt.Printf("Drained %d note(s).\n", drained)
}

func runPostSubscriptions(cfg config.Config, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	svc := service.New(st, log)
	posted, err := svc.PostDueSubscriptions(ctx, cfg.DefaultAccountID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to post subscriptions")
	}
	fmt.Printf("Posted %d subscription charge(s).\n", posted)
}

func runSummary(cfg config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	month := fs.String("month", time.Now().Format("2006-01"), "Month to summarise (YYYY-MM)")
	fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open store")
	}
	defer st.Close()

	txs, err := st.Transactions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load transactions")
	}
	accounts, err := st.Accounts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load accounts")
	}

	sum := reporting.MonthSummary(txs, *month)
	fmt.Printf("\n=== %s ===\n", *month)
	fmt.Printf("Income:    %s\n", sum.Income.StringFixed(2))
	fmt.Printf("Expenses:  %s\n", sum.Expenses.StringFixed(2))
	fmt.Printf("Net:       %s\n", sum.Net.StringFixed(2))

	spend := reporting.CategorySpend(txs, *month)
	if len(spend) > 0 {
		fmt.Println("\nBy category:")
		for cat, amount := range spend {
			fmt.Printf("  %-16s %s\n", cat, amount.StringFixed(2))
		}
	}

	fmt.Printf("\nNet worth: %s\n", reporting.CurrentNetWorth(accounts).Net.StringFixed(2))
	fmt.Println("\nAccounts:")
	for _, a := range accounts {
		fmt.Printf("  %-16s %-10s %s\n", a.Name, string(a.Type), a.Balance.StringFixed(2))
	}
	fmt.Println()
}
