package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourorg/centerattend/internal/domain"
	"github.com/yourorg/centerattend/internal/infrastructure/logger"
	"github.com/yourorg/centerattend/internal/repository"
	"github.com/yourorg/centerattend/pkg/config"
	"github.com/yourorg/centerattend/pkg/database"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "auth":
		handleAuth(args)
	case "attendance":
		handleAttendance(args)
	case "admin":
		handleAdmin(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: centerattend auth <login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "login":
		loginUser(args[1:])
	case "logout":
		logoutUser()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleAttendance(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: centerattend attendance <mark|bulk|list>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "mark":
		markAttendance(args[1:])
	case "bulk":
		bulkAttendance(args[1:])
	case "list":
		listAttendance(args[1:])
	default:
		fmt.Printf("unknown attendance command: %s\n", subCmd)
	}
}

func handleAdmin(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: centerattend admin <bootstrap>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "bootstrap":
		bootstrapAdmin(args[1:])
	default:
		fmt.Printf("unknown admin command: %s\n", subCmd)
	}
}

// Auth commands
func loginUser(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	username := fs.String("username", "", "account username")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *username == "" || *password == "" {
		fmt.Println("Error: username and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"username": *username, "password": *password}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/login", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		if token, ok := result["token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s (%v)\n", *username, result["role"])
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logoutUser() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/auth/me", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 200 {
		fmt.Printf("✓ %v (%v)\n", result["username"], result["role"])
	} else {
		fmt.Println("Session expired, log in again")
	}
}

// Attendance commands
func markAttendance(args []string) {
	fs := flag.NewFlagSet("mark", flag.ExitOnError)
	kind := fs.String("kind", "student", "subject kind: student or instructor")
	subject := fs.String("subject", "", "subject external ID")
	date := fs.String("date", time.Now().Format(time.DateOnly), "date (YYYY-MM-DD)")
	status := fs.String("status", "present", "status: present, absent or late")
	center := fs.String("center", "", "center code (optional)")

	fs.Parse(args)

	if *subject == "" {
		fmt.Println("Error: subject is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"date":              *date,
		"subjectExternalId": *subject,
		"status":            *status,
	}
	if *center != "" {
		payload["centerCode"] = *center
	}

	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/attendance/"+*kind, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Marked %s %s on %s\n", *kind, *subject, *date)
	} else {
		fmt.Printf("✗ Mark failed: %v\n", result)
	}
}

func bulkAttendance(args []string) {
	fs := flag.NewFlagSet("bulk", flag.ExitOnError)
	kind := fs.String("kind", "student", "subject kind: student or instructor")
	file := fs.String("f", "", "JSON file with the records array")

	fs.Parse(args)

	if *file == "" {
		fmt.Println("Error: -f file is required")
		fs.PrintDefaults()
		return
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	var records []map[string]string
	if err := json.Unmarshal(raw, &records); err != nil {
		fmt.Printf("Error: invalid records file: %v\n", err)
		return
	}

	payload := map[string]interface{}{"kind": *kind, "records": records}
	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/attendance/bulk", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	addAuthHeader(req)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Created     int `json:"created"`
		FailedCount int `json:"failedCount"`
		Failed      []struct {
			Record map[string]string `json:"record"`
			Reason string            `json:"reason"`
		} `json:"failed"`
	}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != 201 {
		fmt.Printf("✗ Bulk submission rejected (HTTP %d)\n", resp.StatusCode)
		return
	}

	fmt.Printf("✓ %d created, %d failed\n", result.Created, result.FailedCount)
	for _, f := range result.Failed {
		fmt.Printf("  ✗ %s: %s\n", f.Record["subjectExternalId"], f.Reason)
	}
}

func listAttendance(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	date := fs.String("date", "", "filter by date (YYYY-MM-DD)")

	fs.Parse(args)

	url := getAPIURL() + "/attendance"
	if *date != "" {
		url += "?date=" + *date
	}

	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var records []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&records)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tKIND\tSUBJECT\tSTATUS")
	for _, rec := range records {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", rec["date"], rec["kind"], rec["subjectId"], rec["status"])
	}
	w.Flush()
}

// Admin commands

// bootstrapAdmin creates the first admin account straight in the database.
// There is intentionally no HTTP endpoint for this: the server only even
// accepts admin calls from accounts that already exist.
func bootstrapAdmin(args []string) {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	username := fs.String("username", "admin", "admin username")
	email := fs.String("email", "", "admin email")
	password := fs.String("password", "", "admin password")

	fs.Parse(args)

	if *password == "" || len(*password) < 8 {
		fmt.Println("Error: a password of at least 8 characters is required")
		fs.PrintDefaults()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log := logger.NewLogger("error")
	pool, err := database.NewConnectionPool(ctx, cfg.Database, log)
	if err != nil {
		fmt.Printf("Error: cannot reach database: %v\n", err)
		return
	}
	defer pool.Close()

	if err := pool.EnsureSchema(ctx); err != nil {
		fmt.Printf("Error: cannot apply schema: %v\n", err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	accounts := repository.NewPostgresAccountRepository(pool.GetDB(), log)
	account := &domain.Account{
		Username:     *username,
		Email:        *email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Active:       true,
	}
	if err := accounts.Create(account); err != nil {
		fmt.Printf("✗ Bootstrap failed: %v\n", err)
		return
	}

	fmt.Printf("✓ Admin account created: %s (%s)\n", account.Username, account.ID)
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("CENTERATTEND_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.centerattend/token"
}

func saveToken(token string) error {
	home, _ := os.UserHomeDir()
	os.MkdirAll(home+"/.centerattend", 0700)
	return os.WriteFile(tokenFile(), []byte(token), 0600)
}

func loadToken() string {
	data, _ := os.ReadFile(tokenFile())
	return string(data)
}

func addAuthHeader(req *http.Request) {
	token := loadToken()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func printUsage() {
	fmt.Print(`CenterAttend CLI

Usage:
  centerattend <command> [options]

Commands:
  auth        Session management (login, logout, who)
  attendance  Attendance operations (mark, bulk, list)
  admin       Admin operations (bootstrap) - talks straight to the database
  help        Show this help message

Environment Variables:
  CENTERATTEND_API    API endpoint (default: http://localhost:8080/api)

Examples:
  centerattend auth login -username E-20-123 -password secret123
  centerattend attendance mark -kind student -subject S-001 -date 2025-03-01
  centerattend attendance bulk -kind student -f records.json
  centerattend admin bootstrap -username admin -password changeme123
`)
}
