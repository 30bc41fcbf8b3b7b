//go:build ignore
// +build ignore

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"
)

const dateLayout = "02 January 2006"

func main() {
	// Get API URL from environment or use default
	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8111"
	}

	// Get user ID from environment or use default local dev user
	userID := os.Getenv("USER_ID")
	if userID == "" {
		userID = "local-dev-user"
	}

	log.Printf("🌱 Seeding data for user: %s", userID)
	log.Printf("📡 API URL: %s", apiURL)

	client := &http.Client{Timeout: 10 * time.Second}

	if err := seedExpenses(client, apiURL, userID); err != nil {
		log.Fatalf("Failed to seed expenses: %v", err)
	}

	if err := seedIncomes(client, apiURL, userID); err != nil {
		log.Fatalf("Failed to seed incomes: %v", err)
	}

	log.Println("✅ Successfully seeded all test data!")

	// Verify seeded data is queryable
	log.Println("")
	log.Println("🔍 Verifying seeded data is queryable...")
	if err := verifySeededData(client, apiURL, userID); err != nil {
		log.Fatalf("❌ Verification failed: %v", err)
	}
	log.Println("✅ All data verified successfully!")
}

func post(client *http.Client, apiURL, path string, body map[string]any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := client.Post(apiURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
	return nil
}

func get(client *http.Client, apiURL, path, userID string, out any) error {
	resp, err := client.Get(apiURL + path + "?userId=" + url.QueryEscape(userID))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func seedExpenses(client *http.Client, apiURL, userID string) error {
	log.Println("📝 Creating expenses...")

	expenses := []struct {
		name        string
		description string
		amount      string
		category    string
		daysAgo     int
	}{
		// Recent expenses (this week)
		{"Woolworths", "Grocery shopping", "156.80", "Groceries", 0},
		{"Netflix", "Netflix subscription", "22.99", "Entertainment", 1},
		{"Local Cafe", "Coffee", "6.50", "Other", 2},
		{"Origin Energy", "Electricity bill", "185.00", "Utility", 3},

		// Last week
		{"Telstra", "Phone bill", "79.00", "Utility", 9},
		{"Hoyts", "Movie tickets", "36.00", "Entertainment", 11},

		// Two weeks ago
		{"Coles", "Weekly groceries", "142.30", "Groceries", 14},
		{"Aussie Broadband", "Internet bill", "89.00", "Utility", 15},

		// Last month
		{"Ray White", "Rent payment", "2200.00", "Rent", 30},
		{"Sydney Water", "Water bill", "65.00", "Utility", 32},
		{"Ticketek", "Concert tickets", "120.00", "Entertainment", 38},
	}

	for _, exp := range expenses {
		date := time.Now().AddDate(0, 0, -exp.daysAgo)
		err := post(client, apiURL, "/expense", map[string]any{
			"uid":         userID,
			"amount":      exp.amount,
			"category":    exp.category,
			"date":        date.Format(dateLayout),
			"description": exp.description,
			"name":        exp.name,
		})
		if err != nil {
			return fmt.Errorf("failed to create expense '%s': %w", exp.description, err)
		}
		log.Printf("  ✓ Created expense: %s ($%s)", exp.description, exp.amount)
	}

	return nil
}

func seedIncomes(client *http.Client, apiURL, userID string) error {
	log.Println("💰 Creating incomes...")

	incomes := []struct {
		name      string
		category  string
		amount    string
		frequency string
		daysAgo   int
	}{
		// Regular salary
		{"Software Engineer Salary", "salary", "8500.00", "monthly", 0},
		{"Software Engineer Salary", "salary", "8500.00", "monthly", 30},

		// Side income
		{"Freelance project", "freelance", "1500.00", "monthly", 15},
		{"Dividend payment", "investment", "250.00", "monthly", 20},

		// One-off income
		{"Tax refund", "refund", "1200.00", "annually", 45},
	}

	for _, inc := range incomes {
		date := time.Now().AddDate(0, 0, -inc.daysAgo)
		err := post(client, apiURL, "/income", map[string]any{
			"uid":       userID,
			"amount":    inc.amount,
			"category":  inc.category,
			"date":      date.Format(dateLayout),
			"frequency": inc.frequency,
			"name":      inc.name,
		})
		if err != nil {
			return fmt.Errorf("failed to create income '%s': %w", inc.name, err)
		}
		log.Printf("  ✓ Created income: %s ($%s)", inc.name, inc.amount)
	}

	return nil
}

func verifySeededData(client *http.Client, apiURL, userID string) error {
	var expenses struct {
		Expenses []json.RawMessage `json:"expenses"`
	}
	if err := get(client, apiURL, "/expenses", userID, &expenses); err != nil {
		return fmt.Errorf("failed to list expenses: %w", err)
	}
	log.Printf("  ✓ Found %d expenses", len(expenses.Expenses))
	if len(expenses.Expenses) == 0 {
		return fmt.Errorf("no expenses found after seeding")
	}

	var summary map[string]json.Number
	if err := get(client, apiURL, "/summary", userID, &summary); err != nil {
		return fmt.Errorf("failed to fetch summary: %w", err)
	}
	log.Printf("  ✓ Summary: income %s, expenses %s, savings %s",
		summary["total_income"], summary["total_expenses"], summary["savings"])

	var monthly map[string]json.RawMessage
	if err := get(client, apiURL, "/monthly-savings", userID, &monthly); err != nil {
		return fmt.Errorf("failed to fetch monthly savings: %w", err)
	}
	log.Printf("  ✓ Monthly savings for %d months", len(monthly))

	return nil
}
