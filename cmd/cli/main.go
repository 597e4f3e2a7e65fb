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
	case "roster":
		handleRoster(args)
	case "academy":
		handleAcademy(args)
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
		fmt.Println("Usage: rosterd auth <signup|login|logout|who>")
		return
	}

	subCmd := args[0]
	switch subCmd {
	case "signup":
		signup(args[1:])
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

func handleRoster(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: rosterd roster <list>")
		return
	}

	switch args[0] {
	case "list":
		listRoster(args[1:])
	default:
		fmt.Printf("unknown roster command: %s\n", args[0])
	}
}

func handleAcademy(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: rosterd academy <list|create>")
		return
	}

	switch args[0] {
	case "list":
		listAcademies(args[1:])
	case "create":
		createAcademy(args[1:])
	default:
		fmt.Printf("unknown academy command: %s\n", args[0])
	}
}

// Auth commands
func signup(args []string) {
	fs := flag.NewFlagSet("signup", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email")
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", "", "password")
	role := fs.String("role", "STUDENT", "role (DIRECTOR, TEACHER, STUDENT)")
	academyName := fs.String("academy", "", "academy name (joins or creates)")
	academyCode := fs.String("code", "", "academy join code")
	academyID := fs.String("academy-id", "", "explicit academy id")

	fs.Parse(args)

	if *name == "" || *password == "" || (*email == "" && *phone == "") {
		fmt.Println("Error: name, password, and email or phone are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{
		"name":     *name,
		"password": *password,
		"role":     *role,
	}
	if *email != "" {
		payload["email"] = *email
	}
	if *phone != "" {
		payload["phone"] = *phone
	}
	if *academyName != "" {
		payload["academyName"] = *academyName
	}
	if *academyCode != "" {
		payload["academyCode"] = *academyCode
	}
	if *academyID != "" {
		payload["academyId"] = *academyID
	}

	data, _ := json.Marshal(payload)
	resp, err := http.Post(getAPIURL()+"/auth/signup", "application/json", bytes.NewReader(data))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode == 201 {
		fmt.Printf("✓ Account created: %s\n", *name)
		if user, ok := result["user"].(map[string]interface{}); ok {
			if academyID, ok := user["academyId"].(string); ok && academyID != "" {
				fmt.Printf("  academy: %s\n", academyID)
			}
		}
	} else {
		fmt.Printf("✗ Signup failed: %v\n", result["message"])
	}
}

func login(args []string) {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email")
	phone := fs.String("phone", "", "phone number (student login)")
	password := fs.String("password", "", "password")

	fs.Parse(args)

	if *password == "" || (*email == "" && *phone == "") {
		fmt.Println("Error: password and email or phone are required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]interface{}{"password": *password}
	if *email != "" {
		payload["email"] = *email
	} else {
		payload["phone"] = *phone
		payload["isStudentLogin"] = true
	}

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
		if d, ok := result["data"].(map[string]interface{}); ok {
			if token, ok := d["token"].(string); ok {
				saveToken(token)
				fmt.Println("✓ Logged in")
				return
			}
		}
		fmt.Println("✗ Login response missing token")
	} else {
		fmt.Printf("✗ Login failed: %v\n", result["message"])
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

// Roster commands
func listRoster(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	role := fs.String("role", "", "filter by role (default STUDENT)")
	fs.Parse(args)

	url := getAPIURL() + "/students"
	if *role != "" {
		url += "?role=" + *role
	}

	req, _ := http.NewRequest("GET", url, nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Success  bool                     `json:"success"`
		Students []map[string]interface{} `json:"students"`
		Count    int                      `json:"count"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tROLE\tACADEMY\tAPPROVED")
	for _, s := range result.Students {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", s["id"], s["name"], s["role"], s["academyId"], s["approved"])
	}
	w.Flush()
	fmt.Printf("%d account(s)\n", result.Count)
}

// Academy commands
func listAcademies(args []string) {
	_ = args
	req, _ := http.NewRequest("GET", getAPIURL()+"/academies", nil)
	addAuthHeader(req)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer resp.Body.Close()

	var result struct {
		Success bool                     `json:"success"`
		Data    []map[string]interface{} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&result)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCODE\tCREATED")
	for _, a := range result.Data {
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\n", a["id"], a["name"], a["code"], a["createdAt"])
	}
	w.Flush()
}

func createAcademy(args []string) {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	name := fs.String("name", "", "academy name")
	address := fs.String("address", "", "academy address")
	email := fs.String("email", "", "contact email")
	fs.Parse(args)

	if *name == "" {
		fmt.Println("Error: name is required")
		fs.PrintDefaults()
		return
	}

	payload := map[string]string{"name": *name}
	if *address != "" {
		payload["address"] = *address
	}
	if *email != "" {
		payload["email"] = *email
	}

	data, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", getAPIURL()+"/academies", bytes.NewReader(data))
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
		if d, ok := result["data"].(map[string]interface{}); ok {
			fmt.Printf("✓ Academy created: %v (code %v)\n", d["id"], d["code"])
			return
		}
	}
	fmt.Printf("✗ Create failed: %v\n", result["message"])
}

// Helper functions
func getAPIURL() string {
	if url := os.Getenv("ROSTERD_API"); url != "" {
		return url
	}
	return "http://localhost:8080/api"
}

func tokenFile() string {
	home, _ := os.UserHomeDir()
	return home + "/.rosterd/token"
}

func saveToken(token string) error {
	os.MkdirAll(os.Getenv("HOME")+"/.rosterd", 0700)
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
	fmt.Print(`rosterd CLI

Usage:
  rosterd <command> [options]

Commands:
  auth     Authentication (signup, login, logout, who)
  roster   Roster queries (list)
  academy  Academy operations (list, create) - admin access required
  help     Show this help message

Environment Variables:
  ROSTERD_API    API endpoint (default: http://localhost:8080/api)

Examples:
  rosterd auth signup -name "Director Kim" -email kim@academy.kr -password secret123 -role DIRECTOR -academy "Seoul Math"
  rosterd auth login -email kim@academy.kr -password secret123
  rosterd roster list
  rosterd academy list
`)
}
