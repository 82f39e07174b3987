package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/ldi/pwoa/internal/augment"
	"github.com/ldi/pwoa/internal/comms"
	"github.com/ldi/pwoa/internal/db"
	"github.com/ldi/pwoa/internal/extract"
	"github.com/ldi/pwoa/internal/gcal"
	"github.com/ldi/pwoa/internal/llm"
	"github.com/ldi/pwoa/internal/log"
	"github.com/ldi/pwoa/internal/mcp"
	"github.com/ldi/pwoa/internal/orchestrator"
	"github.com/ldi/pwoa/internal/scheduling"
	"github.com/ldi/pwoa/internal/scoring"
	"github.com/ldi/pwoa/internal/server"
	"github.com/ldi/pwoa/internal/ui"
	"github.com/ldi/pwoa/pkg/models"
)

var (
	dbPath       string
	snapshotPath string
	verbose      bool
)

func main() {
	// Missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	flag.StringVar(&dbPath, "db-path", ".pwoa/pwoa.db", "Path to database file")
	flag.StringVar(&snapshotPath, "snapshot-path", ".pwoa/snapshot.jsonl", "Path to snapshot file")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.Parse()

	if verbose {
		os.Setenv("LOG_LEVEL", "DEBUG")
	}

	var command string
	var args []string

	if flag.NArg() == 0 {
		selected, err := ui.RunMenu()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error running menu: %v\n", err)
			os.Exit(1)
		}
		if selected == "" {
			os.Exit(0)
		}
		command = selected
		args = []string{}
	} else {
		command = flag.Arg(0)
		args = flag.Args()[1:]
	}

	var err error
	switch command {
	case "init":
		err = runInit(args)
	case "add":
		err = runAdd(args)
	case "list":
		err = runList(args)
	case "extract":
		err = runExtract(args)
	case "schedule":
		err = runSchedule(args)
	case "complete":
		err = runComplete(args)
	case "delete":
		err = runDelete(args)
	case "status":
		err = runStatus(args)
	case "serve":
		err = runServe(args)
	case "mcp":
		err = runMCP(args)
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openDB(ctx context.Context) (*db.DB, error) {
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, err
	}
	database.EnableAutoSnapshot(snapshotPath)
	return database, nil
}

func buildOrchestrator(ctx context.Context, database *db.DB) *orchestrator.Orchestrator {
	client := llm.NewClientFromEnv()

	var augmenter scoring.Augmenter
	if client != nil {
		augmenter = augment.NewOpenAIAugmenter(client)
	} else {
		log.GetLogger().Info("OPENAI_API_KEY not set, running with rule-based scoring and extraction")
	}

	orch := orchestrator.NewOrchestrator(
		database,
		extract.NewExtractor(client),
		scoring.NewScorer(augmenter),
		scheduling.NewScheduler(),
		comms.NewDrafter(client),
	)

	maybeEnableCalendar(ctx, database, orch)
	return orch
}

// maybeEnableCalendar wires Google Calendar sync when credentials and a
// stored token are both available. Anything missing just disables sync.
func maybeEnableCalendar(ctx context.Context, database *db.DB, orch *orchestrator.Orchestrator) {
	credentialsFile := os.Getenv("GOOGLE_CREDENTIALS_FILE")
	if credentialsFile == "" {
		return
	}

	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		log.GetLogger().Warnf("could not read Google credentials: %v", err)
		return
	}

	tokenJSON, err := database.GetOAuthToken(ctx, "google")
	if err != nil {
		log.GetLogger().Warnf("could not load Google token: %v", err)
		return
	}
	if tokenJSON == nil {
		log.GetLogger().Info("no Google token stored, calendar sync disabled")
		return
	}

	srv, err := gcal.NewService(ctx, credentials, tokenJSON)
	if err != nil {
		log.GetLogger().Warnf("could not create calendar service: %v", err)
		return
	}

	calendarID := os.Getenv("PWOA_CALENDAR_ID")
	if calendarID == "" {
		calendarID = "primary"
	}
	orch.SetCalendar(gcal.NewClient(srv, calendarID))
}

func runInit(args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	pwoaDir := filepath.Join(targetDir, ".pwoa")
	if err := os.MkdirAll(pwoaDir, 0755); err != nil {
		return fmt.Errorf("failed to create .pwoa directory: %w", err)
	}
	fmt.Println("✓ Created .pwoa/ directory")

	gitignorePath := filepath.Join(pwoaDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("pwoa.db*\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Println("✓ Created .pwoa/.gitignore")

	// Default paths if not overridden by flags
	finalDBPath := dbPath
	if dbPath == ".pwoa/pwoa.db" {
		finalDBPath = filepath.Join(pwoaDir, "pwoa.db")
	}

	finalSnapshotPath := snapshotPath
	if snapshotPath == ".pwoa/snapshot.jsonl" {
		finalSnapshotPath = filepath.Join(pwoaDir, "snapshot.jsonl")
	}

	database, err := db.Open(finalDBPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Printf("✓ Initialized database at %s\n", finalDBPath)

	if _, err := os.Stat(finalSnapshotPath); err == nil {
		if err := database.ImportSnapshot(ctx, finalSnapshotPath); err != nil {
			return fmt.Errorf("failed to import snapshot: %w", err)
		}
		fmt.Printf("✓ Imported snapshot from %s\n", finalSnapshotPath)
	}

	fmt.Println("✓ PWOA initialized successfully")
	return nil
}

func runAdd(args []string) error {
	addFlags := flag.NewFlagSet("add", flag.ContinueOnError)
	deadline := addFlags.String("deadline", "", "Deadline (RFC3339 or YYYY-MM-DD)")
	category := addFlags.String("category", "", "Category (work, personal, learning, fitness, finance, misc)")
	minutes := addFlags.Int("minutes", 0, "Estimated time in minutes")
	notes := addFlags.String("notes", "", "Free-form notes")
	tags := addFlags.String("tags", "", "Comma-separated tags (tag 'calendar' enables calendar sync)")
	if err := addFlags.Parse(args); err != nil {
		return err
	}

	description := strings.TrimSpace(strings.Join(addFlags.Args(), " "))
	if description == "" {
		return fmt.Errorf("usage: pwoa add [flags] <description>")
	}

	task := models.NewTask(description, models.TaskSourceManual)
	task.Notes = *notes
	if models.ValidCategory(models.TaskCategory(*category)) {
		task.Category = models.TaskCategory(*category)
	}
	if *minutes > 0 {
		task.EstimatedTimeMinutes = *minutes
	}
	if *tags != "" {
		for _, tag := range strings.Split(*tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				task.Tags = append(task.Tags, tag)
			}
		}
	}
	if *deadline != "" {
		when, err := parseDeadlineArg(*deadline)
		if err != nil {
			return err
		}
		task.Deadline = &when
	}

	ctx := context.Background()
	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	orch := buildOrchestrator(ctx, database)
	if err := orch.AddTask(ctx, task); err != nil {
		return err
	}

	fmt.Printf("✓ Added task %s (priority: %s, score: %d)\n", task.ID, task.Priority, task.PriorityScore)
	return nil
}

func parseDeadlineArg(s string) (time.Time, error) {
	if when, err := time.Parse(time.RFC3339, s); err == nil {
		return when, nil
	}
	if when, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		// Day-only deadlines mean end of that day.
		return when.Add(24*time.Hour - time.Second), nil
	}
	return time.Time{}, fmt.Errorf("deadline must be RFC3339 or YYYY-MM-DD, got %q", s)
}

func runList(args []string) error {
	listFlags := flag.NewFlagSet("list", flag.ContinueOnError)
	statusFilter := listFlags.String("status", "", "Filter by status (pending, scheduled, in_progress, completed, cancelled)")
	categoryFilter := listFlags.String("category", "", "Filter by category")
	if err := listFlags.Parse(args); err != nil {
		return err
	}

	var status *models.TaskStatus
	if *statusFilter != "" {
		s := models.TaskStatus(*statusFilter)
		status = &s
	}

	var category *models.TaskCategory
	if *categoryFilter != "" {
		c := models.TaskCategory(*categoryFilter)
		category = &c
	}

	ctx := context.Background()
	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	tasks, err := database.ListTasks(ctx, status, category)
	if err != nil {
		return err
	}

	fmt.Printf("%-14s %-40s %-10s %-10s %-12s %s\n", "ID", "DESCRIPTION", "PRIORITY", "SCORE", "STATUS", "DEADLINE")
	fmt.Println(strings.Repeat("-", 100))
	for _, t := range tasks {
		deadline := "-"
		if t.Deadline != nil {
			deadline = t.Deadline.Local().Format("2006-01-02 15:04")
		}
		description := t.Description
		if len(description) > 38 {
			description = description[:35] + "..."
		}
		fmt.Printf("%-14s %-40s %-10s %-10d %-12s %s\n", t.ID, description, t.Priority, t.PriorityScore, t.Status, deadline)
	}
	return nil
}

func runExtract(args []string) error {
	extractFlags := flag.NewFlagSet("extract", flag.ContinueOnError)
	file := extractFlags.String("file", "", "Read input from a file instead of stdin")
	source := extractFlags.String("source", "text", "Input source (text, email, upload)")
	if err := extractFlags.Parse(args); err != nil {
		return err
	}

	var text string
	if *file != "" {
		data, err := os.ReadFile(*file)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		text = string(data)
	} else {
		fmt.Println("Enter text (end with Ctrl+D):")
		var b strings.Builder
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			b.WriteString(scanner.Text())
			b.WriteString("\n")
		}
		if err := scanner.Err(); err != nil {
			return err
		}
		text = b.String()
	}

	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no input text")
	}

	input := orchestrator.ExtractionInput{}
	switch *source {
	case "email":
		input.Emails = []string{text}
	case "upload":
		input.Uploads = []string{text}
	default:
		input.Text = text
	}

	ctx := context.Background()
	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	orch := buildOrchestrator(ctx, database)
	tasks, err := orch.RunExtraction(ctx, input)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Extracted %d tasks\n", len(tasks))
	for _, t := range tasks {
		fmt.Printf("  - %s [%s] %s\n", t.ID, t.Priority, t.Description)
	}
	return nil
}

func runSchedule(args []string) error {
	ctx := context.Background()
	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	orch := buildOrchestrator(ctx, database)
	plan, err := orch.RunScheduling(ctx)
	if err != nil {
		return err
	}

	printBucket := func(name string, tasks []*models.Task) {
		fmt.Printf("\n%s (%d tasks):\n", name, len(tasks))
		for _, t := range tasks {
			fmt.Printf("  - [%s, %dm] %s\n", t.Priority, t.EstimatedTimeMinutes, t.Description)
		}
	}

	fmt.Printf("Plan for %s\n", plan.Date.Local().Format("Monday, 2 Jan 2006"))
	printBucket("Today", plan.Today)
	printBucket("Tomorrow", plan.Tomorrow)
	printBucket("This Week", plan.ThisWeek)

	if len(plan.Dropped) > 0 {
		fmt.Printf("\nNot placed (%d): %s\n", len(plan.Dropped), strings.Join(plan.Dropped, ", "))
	}
	return nil
}

func runComplete(args []string) error {
	completeFlags := flag.NewFlagSet("complete", flag.ContinueOnError)
	minutes := completeFlags.Int("minutes", 0, "Actual time spent in minutes")
	if err := completeFlags.Parse(args); err != nil {
		return err
	}
	if completeFlags.NArg() == 0 {
		return fmt.Errorf("usage: pwoa complete [flags] <task-id>")
	}

	ctx := context.Background()
	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	orch := buildOrchestrator(ctx, database)
	task, err := orch.CompleteTask(ctx, completeFlags.Arg(0), *minutes)
	if err != nil {
		return err
	}

	fmt.Printf("✓ Completed task %s: %s\n", task.ID, task.Description)
	return nil
}

func runDelete(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: pwoa delete <task-id>")
	}

	ctx := context.Background()
	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.DeleteTask(ctx, args[0]); err != nil {
		return err
	}

	fmt.Printf("✓ Deleted task %s\n", args[0])
	return nil
}

func runStatus(args []string) error {
	ctx := context.Background()
	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	stats, err := database.GetStats(ctx)
	if err != nil {
		return err
	}

	fmt.Println("PWOA Status")
	fmt.Println("===========")
	fmt.Printf("Total Tasks: %d\n", stats.Total)

	fmt.Println("\nBy Status:")
	for _, status := range []models.TaskStatus{
		models.TaskStatusPending,
		models.TaskStatusScheduled,
		models.TaskStatusInProgress,
		models.TaskStatusCompleted,
		models.TaskStatusCancelled,
	} {
		fmt.Printf("  %-12s %d\n", status, stats.ByStatus[status])
	}

	fmt.Println("\nBy Priority:")
	for _, priority := range []models.TaskPriority{
		models.TaskPriorityCritical,
		models.TaskPriorityHigh,
		models.TaskPriorityMedium,
		models.TaskPriorityLow,
	} {
		fmt.Printf("  %-12s %d\n", priority, stats.ByPriority[priority])
	}

	if len(stats.ByCategory) > 0 {
		fmt.Println("\nBy Category:")
		for category, count := range stats.ByCategory {
			fmt.Printf("  %-12s %d\n", category, count)
		}
	}
	return nil
}

func runServe(args []string) error {
	serveFlags := flag.NewFlagSet("serve", flag.ContinueOnError)
	port := serveFlags.String("port", "8000", "Port to listen on")
	if err := serveFlags.Parse(args); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	orch := buildOrchestrator(ctx, database)
	srv := server.NewServer(orch)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	fmt.Printf("Listening on http://localhost:%s\n", *port)
	if err := srv.Start(fmt.Sprintf(":%s", *port)); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func runMCP(args []string) error {
	ctx := context.Background()
	database, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer database.Close()

	orch := buildOrchestrator(ctx, database)
	s := mcp.NewServer(orch)
	return mcp.Serve(s)
}
