package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
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
	case "employee":
		handleEmployee(args)
	case "complaint":
		handleComplaint(args)
	case "profile":
		showProfile()
	case "health":
		checkHealth()
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
		fmt.Println("Usage: civictrack auth <login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "login":
		login(args[1:])
	case "logout":
		logout()
	case "who":
		whoAmI()
	default:
		fmt.Printf("unknown auth command: %s\n", subCmd)
	}
}

func handleEmployee(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: civictrack employee <create|deactivate>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "create":
		createEmployee(args[1:])
	case "deactivate":
		deactivateEmployee(args[1:])
	default:
		fmt.Printf("unknown employee command: %s\n", subCmd)
	}
}

func handleComplaint(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: civictrack complaint <list|get|assign|status>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "list":
		listComplaints()
	case "get":
		getComplaint(args[1:])
	case "assign":
		assignComplaint(args[1:])
	case "status":
		setComplaintStatus(args[1:])
	default:
		fmt.Printf("unknown complaint command: %s\n", subCmd)
	}
}

// Auth commands
func login(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	employeeID := fs.String("id", "", "employee ID")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *employeeID == "" || *password == "" {
		fmt.Println("Error: id and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"employee_id": *employeeID, "password": *password}
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
		if token, ok := result["access_token"].(string); ok {
			saveToken(token)
			fmt.Printf("✓ Logged in as: %s\n", *employeeID)
		}
	} else {
		fmt.Printf("✗ Login failed: %v\n", result)
	}
}

func logout() {
	os.Remove(tokenFile())
	fmt.Println("✓ Logged out")
}

func whoAmI() {
	token := loadToken()
	if token == "" {
		fmt.Println("Not logged in")
		return
	}
	fmt.Printf("✓ Logged in (token: %s...)\n", token[:20])
}

// Employee commands
func createEmployee(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	employeeID := fs.String("id", "", "employee ID")
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email address")
	department := fs.String("department", "", "department (sanitation, electrical, admin)")
	phone := fs.String("phone", "", "contact phone")
	password := fs.String("password", "", "password (min 8 characters)")

	fs.Parse(args)

	if *employeeID == "" || *name == "" || *password == "" {
		fmt.Println("Error: id, name, and password are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"employee_id":   *employeeID,
		"name":          *name,
		"email":         *email,
		"department":    *department,
		"contact_phone": *phone,
		"password":      *password,
	}
	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/employees", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Employee created: %s\n", *employeeID)
	} else {
		fmt.Printf("✗ Creation failed: %v\n", result)
	}
}

func deactivateEmployee(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: civictrack employee deactivate <employee-id>")
		return
	}
	employeeID := args[0]

	req, _ := http.NewRequest("DELETE", getAPIURL()+"/employees/"+employeeID, nil)
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
		fmt.Printf("✓ Employee deactivated: %s\n", employeeID)
	} else {
		fmt.Printf("✗ Deactivation failed: %v\n", result)
	}
}

// Complaint commands
func listComplaints() {
	req, _ := http.NewRequest("GET", getAPIURL()+"/complaints", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		var result map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&result)
		fmt.Printf("✗ List failed: %v\n", result)
		return
	}

	var complaints []map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&complaints)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tSTATUS\tASSIGNED\tCREATED")
	for _, c := range complaints {
		assigned := c["assigned_employee_id"]
		if assigned == nil {
			assigned = "-"
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n",
			c["id"], c["title"], c["category"], c["status"], assigned, c["created_at"])
	}
	w.Flush()
}

func getComplaint(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: civictrack complaint get <complaint-id>")
		return
	}

	req, _ := http.NewRequest("GET", getAPIURL()+"/complaints/"+args[0], nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != 200 {
		fmt.Printf("✗ Fetch failed: %v\n", result)
		return
	}

	pretty, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(pretty))
}

func assignComplaint(args []string) {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	employeeID := fs.String("id", "", "assignee employee ID")
	name := fs.String("name", "", "assignee name")

	if len(args) < 1 {
		fmt.Println("Usage: civictrack complaint assign <complaint-id> -id <employee-id> -name <name>")
		return
	}
	complaintID := args[0]
	fs.Parse(args[1:])

	if *employeeID == "" || *name == "" {
		fmt.Println("Error: id and name are required")
		fs.PrintDefaults()
		return
	}

	patch := map[string]string{
		"assigned_employee_id":   *employeeID,
		"assigned_employee_name": *name,
	}
	putComplaint(complaintID, patch, fmt.Sprintf("assigned to %s", *employeeID))
}

func setComplaintStatus(args []string) {
	if len(args) < 2 {
		fmt.Println("Usage: civictrack complaint status <complaint-id> <pending|active|resolved>")
		return
	}
	putComplaint(args[0], map[string]string{"status": args[1]}, "status set to "+args[1])
}

func putComplaint(complaintID string, patch map[string]string, action string) {
	data, _ := json.Marshal(patch)
	req, _ := http.NewRequest("PUT", getAPIURL()+"/complaints/"+complaintID, bytes.NewReader(data))
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
	if resp.StatusCode == 200 {
		fmt.Printf("✓ Complaint %s: %s\n", complaintID, action)
	} else {
		fmt.Printf("✗ Update failed: %v\n", result)
	}
}

func showProfile() {
	req, _ := http.NewRequest("GET", getAPIURL()+"/profile", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != 200 {
		fmt.Printf("✗ Profile fetch failed: %v\n", result)
		return
	}

	pretty, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(pretty))
}

func checkHealth() {
	resp, err := http.Get(getAPIURL() + "/health")
	if err != nil {
		fmt.Printf("✗ Server unreachable: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	fmt.Printf("✓ %v (%v)\n", result["status"], result["timestamp"])
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("CIVICTRACK_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.civictrack/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.civictrack", 0700)
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
	fmt.Print(`CivicTrack CLI

Usage:
  civictrack <command> [options]

Commands:
  auth       Employee authentication (login, logout, who)
  employee   Employee operations (create, deactivate)
  complaint  Complaint operations (list, get, assign, status)
  profile    Show the logged-in employee's profile and stats
  health     Check server health
  help       Show this help message

Environment Variables:
  CIVICTRACK_API    API endpoint (default: http://localhost:8080/api)

Examples:
  civictrack auth login -id EMP001 -password secret123
  civictrack complaint list
  civictrack complaint assign 7f3c... -id EMP001 -name "Ravi Kumar"
  civictrack complaint status 7f3c... active
`)
}
