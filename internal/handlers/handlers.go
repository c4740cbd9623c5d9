// Package handlers implements the three application handlers (login,
// user-lookup, file-text search), reconstructed from
// original_source/src/auth.c and src/api.c. Each is a router.Handler:
// it reads from conn.Request and writes only through conn.Queue.
package handlers

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tyx3211/edgeserve/internal/httpcore"
	"github.com/tyx3211/edgeserve/internal/jsonutil"
	"github.com/tyx3211/edgeserve/internal/jwtauth"
)

// Users reconstructs the login/lookup handlers' shared view of
// www/data/users.csv: a header line followed by user,pass lines.
type Users struct {
	Path string
}

func (u *Users) lookup(username string) (password string, found bool) {
	f, err := os.Open(u.Path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	first := true
	for scanner.Scan() {
		if first {
			first = false
			continue // header line
		}
		row := strings.SplitN(scanner.Text(), ",", 2)
		if len(row) != 2 {
			continue
		}
		if row[0] == username {
			return row[1], true
		}
	}
	return "", false
}

// API bundles the dependencies the three handlers need.
type API struct {
	Users        *Users
	Auth         *jwtauth.Authenticator
	DocumentRoot string
}

// Login handles POST /api/login: validates username/password from
// body_params against users.csv and, on success, issues a bearer token.
func (a *API) Login(conn *httpcore.Connection) {
	req := &conn.Request
	username, _ := req.BodyParams.Get("username")
	password, _ := req.BodyParams.Get("password")

	stored, found := a.Users.lookup(username)
	if !found || stored != password {
		writeJSON(conn, 401, map[string]string{"error": "invalid credentials"})
		return
	}

	token, err := a.Auth.Issue(username)
	if err != nil {
		writeJSON(conn, 500, map[string]string{"error": "token issue failed"})
		return
	}
	req.AuthUser = username
	writeJSON(conn, 200, map[string]string{"token": token})
}

// User handles GET /api/user: gated behind a verified bearer token, it
// answers {"user": <name>} when ?user=<name> has a row in users.csv and
// 404 otherwise; the stored password is never returned. The router only matches exact paths
// (no /api/users/:name wildcard), so the lookup key travels as a query param.
func (a *API) User(conn *httpcore.Connection) {
	req := &conn.Request
	authz, _ := req.Header("Authorization")
	subject, err := a.Auth.VerifyHeader(authz)
	if err != nil {
		writeJSON(conn, 401, map[string]string{"error": "unauthorized"})
		return
	}
	req.AuthUser = subject

	username, ok := req.QueryParams.Get("user")
	if !ok {
		writeJSON(conn, 400, map[string]string{"error": "missing user"})
		return
	}
	if _, found := a.Users.lookup(username); !found {
		writeJSON(conn, 404, map[string]string{"error": "not found"})
		return
	}
	writeJSON(conn, 200, map[string]string{"user": username})
}

// Search handles GET /api/search: scans files under DocumentRoot for
// lines containing ?q=<term>. original_source/src/api.c's search does a
// plain strstr with no regex engine; edgeserve matches that with
// strings.Contains rather than reaching for regexp.
func (a *API) Search(conn *httpcore.Connection) {
	req := &conn.Request
	authz, _ := req.Header("Authorization")
	subject, err := a.Auth.VerifyHeader(authz)
	if err != nil {
		writeJSON(conn, 401, map[string]string{"error": "unauthorized"})
		return
	}
	req.AuthUser = subject

	q, ok := req.QueryParams.Get("q")
	if !ok || q == "" {
		writeJSON(conn, 400, map[string]string{"error": "missing q"})
		return
	}

	var matches []string
	_ = filepath.Walk(a.DocumentRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()
		scanner := bufio.NewScanner(f)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			if strings.Contains(scanner.Text(), q) {
				rel, _ := filepath.Rel(a.DocumentRoot, path)
				matches = append(matches, fmt.Sprintf("%s:%d", rel, lineNo))
			}
		}
		return nil
	})

	writeJSON(conn, 200, map[string]any{"matches": matches})
}

func writeJSON(conn *httpcore.Connection, status int, v any) {
	body, err := jsonutil.Encode(v)
	if err != nil {
		body = []byte(`{"error":"encode failed"}`)
		status = 500
	}
	head := fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Length: %d\r\nContent-Type: application/json\r\n\r\n",
		status, reason(status), len(body))
	conn.Queue([]byte(head))
	conn.Queue(body)
	conn.SetStatus(status)
}

func reason(status int) string {
	switch status {
	case 200:
		return "OK"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 404:
		return "Not Found"
	default:
		return "Internal Server Error"
	}
}
