package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/emergent-company/codeforge/pkg/auth"
)

// TestUser represents a test user fixture
type TestUser struct {
	ID            string
	ZitadelUserID string
	Email         string
	FirstName     string
	LastName      string
	Scopes        []string
}

// TestTokenConfig maps a test token to its user configuration.
// This is the single source of truth for test token -> user mappings.
type TestTokenConfig struct {
	Token  string   // The token string used in Authorization header
	Sub    string   // The zitadel_user_id (subject) this token maps to
	Scopes []string // Scopes granted to this token
}

// Predefined test users - these are created in the database by SetupTestFixtures.
// The ZitadelUserID must match the Sub field in TestTokenConfigs for the mapping to work.
var (
	// AdminUser - a user with admin privileges, used by e2e-test-user token
	AdminUser = TestUser{
		ID:            "00000000-0000-0000-0000-000000000001",
		ZitadelUserID: "test-admin-user",
		Email:         "admin@test.local",
		FirstName:     "Test",
		LastName:      "Admin",
		Scopes:        auth.GetAllScopes(),
	}

	// RegularUser - a standard user with basic scopes (no token maps to this by default)
	RegularUser = TestUser{
		ID:            "00000000-0000-0000-0000-000000000002",
		ZitadelUserID: "test-regular-user",
		Email:         "user@test.local",
		FirstName:     "Test",
		LastName:      "User",
		Scopes:        []string{"project:read"},
	}

	// NoScopeUser - matches middleware "no-scope" test token
	NoScopeUser = TestUser{
		ID:            "00000000-0000-0000-0000-000000000003",
		ZitadelUserID: "test-user-no-scope",
		Email:         "noscope@test.local",
		FirstName:     "No",
		LastName:      "Scope",
		Scopes:        []string{},
	}

	// WithScopeUser - matches middleware "with-scope" test token
	WithScopeUser = TestUser{
		ID:            "00000000-0000-0000-0000-000000000004",
		ZitadelUserID: "test-user-with-scope",
		Email:         "withscope@test.local",
		FirstName:     "With",
		LastName:      "Scope",
		Scopes:        []string{"documents:read", "documents:write", "project:read"},
	}

	// AllScopesUser - matches middleware "all-scopes" test token
	AllScopesUser = TestUser{
		ID:            "00000000-0000-0000-0000-000000000005",
		ZitadelUserID: "test-user-all-scopes",
		Email:         "allscopes@test.local",
		FirstName:     "All",
		LastName:      "Scopes",
		Scopes:        auth.GetAllScopes(),
	}

	// GraphReadUser - matches middleware "graph-read" test token
	GraphReadUser = TestUser{
		ID:            "00000000-0000-0000-0000-000000000006",
		ZitadelUserID: "test-user-graph-read",
		Email:         "graphread@test.local",
		FirstName:     "Graph",
		LastName:      "Reader",
		Scopes:        []string{"graph:read", "graph:search:read"},
	}

	// ReadOnlyUser - matches middleware "read-only" test token (no write/delete permissions)
	ReadOnlyUser = TestUser{
		ID:            "00000000-0000-0000-0000-000000000007",
		ZitadelUserID: "test-user-read-only",
		Email:         "readonly@test.local",
		FirstName:     "Read",
		LastName:      "Only",
		Scopes:        []string{"documents:read", "project:read", "org:read", "chunks:read", "search:read", "graph:read"},
	}
)

// TestTokenConfigs defines all test tokens and their mappings.
// This should match the testTokens map in pkg/auth/middleware.go.
//
// Token naming convention:
//   - Simple tokens: "no-scope", "with-scope", "all-scopes", "graph-read", "read-only"
//   - E2E tokens: "e2e-test-user", "e2e-query-token" (mapped to AdminUser)
var TestTokenConfigs = []TestTokenConfig{
	{Token: "no-scope", Sub: "test-user-no-scope", Scopes: []string{}},
	{Token: "with-scope", Sub: "test-user-with-scope", Scopes: []string{"documents:read", "documents:write", "project:read"}},
	{Token: "read-only", Sub: "test-user-read-only", Scopes: []string{"documents:read", "project:read", "org:read", "chunks:read", "search:read", "graph:read"}},
	{Token: "graph-read", Sub: "test-user-graph-read", Scopes: []string{"graph:read", "graph:search:read"}},
	{Token: "all-scopes", Sub: "test-user-all-scopes", Scopes: auth.GetAllScopes()},
	{Token: "e2e-test-user", Sub: "test-admin-user", Scopes: auth.GetAllScopes()},
	{Token: "e2e-query-token", Sub: "test-admin-user", Scopes: auth.GetAllScopes()},
}

// GetTestTokenConfig returns the config for a given token, or nil if not found
func GetTestTokenConfig(token string) *TestTokenConfig {
	for _, cfg := range TestTokenConfigs {
		if cfg.Token == token {
			return &cfg
		}
	}
	return nil
}

// GetUserByZitadelID returns the TestUser that matches the given zitadel_user_id
func GetUserByZitadelID(zitadelUserID string) *TestUser {
	users := []TestUser{AdminUser, RegularUser, NoScopeUser, WithScopeUser, AllScopesUser, GraphReadUser, ReadOnlyUser}
	for _, u := range users {
		if u.ZitadelUserID == zitadelUserID {
			return &u
		}
	}
	return nil
}

// CreateTestUser inserts a test user into the database
func CreateTestUser(ctx context.Context, db bun.IDB, user TestUser) error {
	// Insert user profile
	_, err := db.NewRaw(`
		INSERT INTO core.user_profiles (id, zitadel_user_id, first_name, last_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, NOW(), NOW())
		ON CONFLICT (zitadel_user_id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			updated_at = NOW()
	`, user.ID, user.ZitadelUserID, user.FirstName, user.LastName).Exec(ctx)
	if err != nil {
		return err
	}

	// Insert email if provided
	if user.Email != "" {
		_, err = db.NewRaw(`
			INSERT INTO core.user_emails (user_id, email, verified, created_at)
			VALUES (?, ?, true, NOW())
			ON CONFLICT (email) DO NOTHING
		`, user.ID, user.Email).Exec(ctx)
		if err != nil {
			return err
		}
	}

	return nil
}

// CreateTestAPIToken creates an API token for a test user
func CreateTestAPIToken(ctx context.Context, db bun.IDB, userID string, token string, scopes []string, projectID string) error {
	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	// Convert Go []string to PostgreSQL array literal format: {elem1,elem2,...}
	pgArray := "{" + strings.Join(scopes, ",") + "}"

	_, err := db.NewRaw(`
		INSERT INTO core.api_tokens (user_id, project_id, token_hash, scopes, created_at)
		VALUES (?, ?, ?, ?::text[], NOW())
	`, userID, projectID, tokenHash, pgArray).Exec(ctx)

	return err
}

// CreateExpiredAPIToken creates a revoked API token for testing. The schema
// has no expires_at column; revoked_at in the past stands in for expiry.
func CreateExpiredAPIToken(ctx context.Context, db bun.IDB, userID string, token string, projectID string) error {
	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	_, err := db.NewRaw(`
		INSERT INTO core.api_tokens (user_id, project_id, token_hash, scopes, created_at, revoked_at)
		VALUES (?, ?, ?, '{}', NOW(), NOW() - INTERVAL '1 hour')
	`, userID, projectID, tokenHash).Exec(ctx)

	return err
}

// CreateDeletedAPIToken creates a revoked API token for testing
func CreateDeletedAPIToken(ctx context.Context, db bun.IDB, userID string, token string, projectID string) error {
	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	_, err := db.NewRaw(`
		INSERT INTO core.api_tokens (user_id, project_id, token_hash, scopes, created_at, revoked_at)
		VALUES (?, ?, ?, '{}', NOW(), NOW())
	`, userID, projectID, tokenHash).Exec(ctx)

	return err
}

// CacheIntrospectionResult caches a token introspection result
func CacheIntrospectionResult(ctx context.Context, db bun.IDB, token string, sub string, email string, scopes []string, expiresIn time.Duration) error {
	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	scopeStr := ""
	for i, s := range scopes {
		if i > 0 {
			scopeStr += " "
		}
		scopeStr += s
	}

	data := map[string]any{
		"sub":   sub,
		"email": email,
		"scope": scopeStr,
	}

	_, err := db.NewRaw(`
		INSERT INTO core.auth_introspection_cache (token_hash, introspection_data, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (token_hash) DO UPDATE SET
			introspection_data = EXCLUDED.introspection_data,
			expires_at = EXCLUDED.expires_at
	`, tokenHash, data, time.Now().Add(expiresIn)).Exec(ctx)

	return err
}

// SetupTestFixtures creates all standard test fixtures
func SetupTestFixtures(ctx context.Context, db bun.IDB) error {
	// Create test users - include all predefined users that match middleware test tokens
	users := []TestUser{AdminUser, RegularUser, NoScopeUser, WithScopeUser, AllScopesUser, GraphReadUser, ReadOnlyUser}
	for _, user := range users {
		if err := CreateTestUser(ctx, db, user); err != nil {
			return err
		}
	}

	return nil
}

// AuthHeader returns an Authorization header value for a token
func AuthHeader(token string) string {
	return "Bearer " + token
}
